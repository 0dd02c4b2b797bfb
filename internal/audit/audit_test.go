package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
)

func TestRecordAppendsRow(t *testing.T) {
	client := dbtest.Open(t)
	rec := NewRecorder(client.DB(), logger.Nop())

	companyID := uuid.New()
	actor := &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &companyID}
	rec.Record(context.Background(), actor, Entry{
		Action:       "product.deleted",
		ResourceType: "product",
		ResourceID:   "p-1",
		Details:      map[string]any{"name": "Mug"},
	})

	var rows []models.AuditLogEntry
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "product.deleted", rows[0].Action)
	assert.Equal(t, actor.UserID, *rows[0].UserID)
	assert.Equal(t, companyID, *rows[0].CompanyID)
	assert.Equal(t, "Mug", rows[0].Details["name"])
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory"), &gorm.Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: &buf})
	rec := NewRecorder(conn, logg)

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), nil, Entry{Action: "gift.redeemed", ResourceType: "campaign_recipient"})
	})
	assert.True(t, strings.Contains(buf.String(), "audit.record.failed"), buf.String())
}

func TestListRequiresSuperAdmin(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(client.DB())
	companyID := uuid.New()

	_, err := svc.List(context.Background(), &access.Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &companyID}, Filter{}, pagination.Params{})
	assert.Equal(t, access.ReasonRoleInsufficient, pkgerrors.Reason(err))

	_, err = svc.List(context.Background(), nil, Filter{}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestListPagesNewestFirst(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(client.DB())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		row := models.AuditLogEntry{
			Action:       "wallet.credited",
			ResourceType: "wallet",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, client.DB().Create(&row).Error)
	}
	require.NoError(t, client.DB().Create(&models.AuditLogEntry{Action: "order.created", ResourceType: "order", CreatedAt: base}).Error)

	super := &access.Actor{UserID: uuid.New(), Role: enums.AppRoleSuperAdmin}
	first, err := svc.List(context.Background(), super, Filter{Action: "wallet.credited"}, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, base.Add(4*time.Minute), first.Items[0].CreatedAt.UTC())
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(context.Background(), super, Filter{Action: "wallet.credited"}, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, base, second.Items[1].CreatedAt.UTC())
}
