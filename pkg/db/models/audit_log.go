package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

// AuditLogEntry is append-only; the application never updates or deletes rows.
type AuditLogEntry struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID       *uuid.UUID    `gorm:"column:user_id;type:uuid;index"`
	CompanyID    *uuid.UUID    `gorm:"column:company_id;type:uuid;index"`
	Action       string        `gorm:"column:action;not null;index"`
	ResourceType string        `gorm:"column:resource_type;not null"`
	ResourceID   *string       `gorm:"column:resource_id"`
	Details      types.JSONMap `gorm:"column:details;type:jsonb"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime;index"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log"
}

func (e *AuditLogEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
