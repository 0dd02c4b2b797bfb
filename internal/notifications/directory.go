package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

// Contact is an addressable person.
type Contact struct {
	Email string
	Name  string
}

// Directory resolves who should hear about an event when the payload only
// carries ids.
type Directory interface {
	User(ctx context.Context, userID uuid.UUID) (*Contact, error)
	CompanyHR(ctx context.Context, companyID uuid.UUID) ([]Contact, error)
	OrderContact(ctx context.Context, orderID uuid.UUID) (*Contact, error)
}

type gormDirectory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) Directory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) User(ctx context.Context, userID uuid.UUID) (*Contact, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Select("email", "name").
		Where("id = ? AND is_active = ?", userID, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Contact{Email: user.Email, Name: user.Name}, nil
}

// CompanyHR lists active users of the company whose stored role normalizes to
// company_hr.
func (d *gormDirectory) CompanyHR(ctx context.Context, companyID uuid.UUID) ([]Contact, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("email ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make([]Contact, 0, len(users))
	for _, u := range users {
		if access.ToAppRole(u.Role) != enums.AppRoleCompanyHR {
			continue
		}
		out = append(out, Contact{Email: u.Email, Name: u.Name})
	}
	return out, nil
}

// OrderContact prefers the gift recipient behind a campaign order and falls
// back to the user who placed it.
func (d *gormDirectory) OrderContact(ctx context.Context, orderID uuid.UUID) (*Contact, error) {
	var order models.Order
	err := d.db.WithContext(ctx).
		Select("id", "created_by", "campaign_recipient_id").
		Where("id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if order.CampaignRecipientID != nil {
		var recipient models.CampaignRecipient
		err := d.db.WithContext(ctx).
			Select("email", "name").
			Where("id = ?", *order.CampaignRecipientID).
			First(&recipient).Error
		if err == nil {
			return &Contact{Email: recipient.Email, Name: recipient.Name}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if order.CreatedBy == nil {
		return nil, nil
	}
	return d.User(ctx, *order.CreatedBy)
}
