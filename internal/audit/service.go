package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

// Filter narrows an audit listing.
type Filter struct {
	Action       string
	ResourceType string
	UserID       *uuid.UUID
	CompanyID    *uuid.UUID
}

type EntryDTO struct {
	ID           uuid.UUID      `json:"id"`
	UserID       *uuid.UUID     `json:"user_id,omitempty"`
	CompanyID    *uuid.UUID     `json:"company_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *string        `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type Service interface {
	List(ctx context.Context, actor *access.Actor, filter Filter, params pagination.Params) (*pagination.Page[EntryDTO], error)
}

type service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

// List is restricted to super admins and pages newest first.
func (s *service) List(ctx context.Context, actor *access.Actor, filter Filter, params pagination.Params) (*pagination.Page[EntryDTO], error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}

	q := s.db.WithContext(ctx).Model(&models.AuditLogEntry{})
	if action := strings.TrimSpace(filter.Action); action != "" {
		q = q.Where("action = ?", action)
	}
	if rt := strings.TrimSpace(filter.ResourceType); rt != "" {
		q = q.Where("resource_type = ?", rt)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.CompanyID != nil {
		q = q.Where("company_id = ?", *filter.CompanyID)
	}

	var rows []models.AuditLogEntry
	if err := pagination.Apply(q, "audit_log", cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit log")
	}

	page := pagination.BuildPage(rows, params.Limit, func(r models.AuditLogEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := pagination.Page[EntryDTO]{NextCursor: page.NextCursor, Items: make([]EntryDTO, 0, len(page.Items))}
	for _, r := range page.Items {
		out.Items = append(out.Items, EntryDTO{
			ID:           r.ID,
			UserID:       r.UserID,
			CompanyID:    r.CompanyID,
			Action:       r.Action,
			ResourceType: r.ResourceType,
			ResourceID:   r.ResourceID,
			Details:      r.Details,
			CreatedAt:    r.CreatedAt,
		})
	}
	return &out, nil
}
