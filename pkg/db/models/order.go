package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

type Order struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CompanyID           uuid.UUID         `gorm:"column:company_id;type:uuid;not null;index"`
	CreatedBy           *uuid.UUID        `gorm:"column:created_by;type:uuid"`
	CampaignID          *uuid.UUID        `gorm:"column:campaign_id;type:uuid;index"`
	CampaignRecipientID *uuid.UUID        `gorm:"column:campaign_recipient_id;type:uuid;index"`
	Status              enums.OrderStatus `gorm:"column:status;not null"`
	Total               decimal.Decimal   `gorm:"column:total;type:numeric(14,2);not null"`
	Currency            string            `gorm:"column:currency;not null"`
	ShippingAddress     *types.Address    `gorm:"column:shipping_address;type:jsonb"`
	Notes               *string           `gorm:"column:notes"`
	Items               []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem copies name and price from the product at order time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
