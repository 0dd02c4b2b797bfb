package redemption

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

// Repository is the persistence surface of the redemption workflow.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRecipientByToken(ctx context.Context, token string) (*models.CampaignRecipient, error)
	FindCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	FindCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CampaignProducts(ctx context.Context, campaignID uuid.UUID) ([]models.Product, error)
	InCampaign(ctx context.Context, campaignID, productID uuid.UUID) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	MarkRedeemed(ctx context.Context, recipientID uuid.UUID, mark Mark) (bool, error)
}

// Mark is what a successful redemption writes onto the recipient row.
type Mark struct {
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	ShippingAddress *types.Address
	Preferences     types.JSONMap
	SelectedAt      time.Time
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindRecipientByToken(ctx context.Context, token string) (*models.CampaignRecipient, error) {
	var row models.CampaignRecipient
	if err := r.db.WithContext(ctx).Where("gift_link_token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var row models.Campaign
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var row models.Company
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindProduct includes soft-deleted rows so callers can tell "gone" from "unknown".
func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CampaignProducts(ctx context.Context, campaignID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Joins("JOIN campaign_products cp ON cp.product_id = products.id").
		Where("cp.campaign_id = ? AND products.deleted_at IS NULL", campaignID).
		Order("products.name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) InCampaign(ctx context.Context, campaignID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CampaignProduct{}).
		Where("campaign_id = ? AND product_id = ?", campaignID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// MarkRedeemed spends the link only if no order is attached yet. False means
// another redemption won.
func (r *repository) MarkRedeemed(ctx context.Context, recipientID uuid.UUID, mark Mark) (bool, error) {
	updates := map[string]any{
		"order_id":            mark.OrderID,
		"selected_product_id": mark.ProductID,
		"gift_selected_at":    mark.SelectedAt,
		"shipping_address":    mark.ShippingAddress,
	}
	if mark.Preferences != nil {
		updates["preferences"] = mark.Preferences
	}
	res := r.db.WithContext(ctx).Model(&models.CampaignRecipient{}).
		Where("id = ? AND order_id IS NULL", recipientID).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}
