package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/besteffort"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/types"
)

// Entry describes one mutation to record.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   string
	CompanyID    *uuid.UUID
	Details      map[string]any
}

// Recorder is the write side used by every mutating service.
type Recorder interface {
	Record(ctx context.Context, actor *access.Actor, entry Entry)
}

type recorder struct {
	db   *gorm.DB
	logg *logger.Logger
	now  func() time.Time
}

// NewRecorder returns a Recorder that appends to audit_log. Record never
// fails; write errors are logged as audit.record.failed.
func NewRecorder(db *gorm.DB, logg *logger.Logger) Recorder {
	if logg == nil {
		logg = logger.Nop()
	}
	return &recorder{db: db, logg: logg, now: time.Now}
}

func (r *recorder) Record(ctx context.Context, actor *access.Actor, entry Entry) {
	besteffort.Run(ctx, r.logg, "audit.record", func(ctx context.Context) error {
		row := models.AuditLogEntry{
			Action:       entry.Action,
			ResourceType: entry.ResourceType,
			CompanyID:    entry.CompanyID,
			Details:      types.JSONMap(entry.Details),
			CreatedAt:    r.now().UTC(),
		}
		if entry.ResourceID != "" {
			id := entry.ResourceID
			row.ResourceID = &id
		}
		if actor != nil {
			userID := actor.UserID
			row.UserID = &userID
			if row.CompanyID == nil {
				row.CompanyID = actor.CompanyID
			}
		}
		return r.db.WithContext(ctx).Create(&row).Error
	})
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, *access.Actor, Entry) {}
