package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product belongs to one company, or to none when it is platform-global.
// DeletedAt is a plain soft-delete marker; reads filter on it explicitly so
// historical order lines can still resolve the row.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID   *uuid.UUID      `gorm:"column:company_id;type:uuid;index"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	SKU         *string         `gorm:"column:sku"`
	Category    *string         `gorm:"column:category"`
	ImageURL    *string         `gorm:"column:image_url"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Currency    string          `gorm:"column:currency;not null"`
	Stock       int             `gorm:"column:stock;not null"`
	DeletedAt   *time.Time      `gorm:"column:deleted_at;index"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsDeleted reports whether the product was soft deleted.
func (p Product) IsDeleted() bool {
	return p.DeletedAt != nil
}
