// Package reports aggregates across tenants for the platform operator.
package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
)

// CompanyStats is one company row annotated with its activity. Revenue is
// in the company's currency; orders billed in any other currency are summed
// separately in OtherRevenue, keyed by currency.
type CompanyStats struct {
	CompanyID     uuid.UUID                  `json:"company_id"`
	Name          string                     `json:"name"`
	Currency      string                     `json:"currency"`
	EmployeeCount int64                      `json:"employee_count"`
	OrderCount    int64                      `json:"order_count"`
	Revenue       decimal.Decimal            `json:"revenue"`
	OtherRevenue  map[string]decimal.Decimal `json:"other_currency_revenue,omitempty"`
}

// PlatformSummary totals are never converted between currencies.
type PlatformSummary struct {
	Companies                 int64                      `json:"companies"`
	Users                     int64                      `json:"users"`
	Orders                    int64                      `json:"orders"`
	Revenue                   map[string]decimal.Decimal `json:"revenue_by_currency"`
	ActiveCampaigns           int64                      `json:"active_campaigns"`
	PendingWalletTransactions int64                      `json:"pending_wallet_transactions"`
}

type Service interface {
	CompanyOverview(ctx context.Context, actor *access.Actor, companyID *uuid.UUID) ([]CompanyStats, error)
	PlatformSummary(ctx context.Context, actor *access.Actor) (*PlatformSummary, error)
}

type service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

type countRow struct {
	CompanyID uuid.UUID
	Count     int64
}

type orderRow struct {
	CompanyID uuid.UUID
	Currency  string
	Count     int64
	Revenue   decimal.NullDecimal
}

func (o orderRow) revenue() decimal.Decimal {
	if !o.Revenue.Valid {
		return decimal.Zero
	}
	return o.Revenue.Decimal.Round(2)
}

// CompanyOverview runs one query per table and joins the results in memory.
// Cancelled orders count toward neither orders nor revenue.
func (s *service) CompanyOverview(ctx context.Context, actor *access.Actor, companyID *uuid.UUID) ([]CompanyStats, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	companiesQ := db.Model(&models.Company{}).Order("name ASC, id ASC")
	if companyID != nil {
		companiesQ = companiesQ.Where("id = ?", *companyID)
	}
	var companies []models.Company
	if err := companiesQ.Find(&companies).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load companies")
	}

	usersQ := db.Model(&models.User{}).
		Select("company_id, COUNT(*) AS count").
		Where("company_id IS NOT NULL").
		Group("company_id")
	if companyID != nil {
		usersQ = usersQ.Where("company_id = ?", *companyID)
	}
	var users []countRow
	if err := usersQ.Scan(&users).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}

	ordersQ := db.Model(&models.Order{}).
		Select("company_id, currency, COUNT(*) AS count, SUM(total) AS revenue").
		Where("status <> ?", enums.OrderStatusCancelled).
		Group("company_id, currency")
	if companyID != nil {
		ordersQ = ordersQ.Where("company_id = ?", *companyID)
	}
	var orders []orderRow
	if err := ordersQ.Scan(&orders).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate orders")
	}

	userCounts := make(map[uuid.UUID]int64, len(users))
	for _, u := range users {
		userCounts[u.CompanyID] = u.Count
	}
	orderStats := make(map[uuid.UUID][]orderRow, len(orders))
	for _, o := range orders {
		orderStats[o.CompanyID] = append(orderStats[o.CompanyID], o)
	}

	out := make([]CompanyStats, 0, len(companies))
	for _, c := range companies {
		stats := CompanyStats{
			CompanyID:     c.ID,
			Name:          c.Name,
			Currency:      c.Currency,
			EmployeeCount: userCounts[c.ID],
			Revenue:       decimal.Zero,
		}
		for _, o := range orderStats[c.ID] {
			stats.OrderCount += o.Count
			if o.Currency == c.Currency {
				stats.Revenue = o.revenue()
				continue
			}
			if stats.OtherRevenue == nil {
				stats.OtherRevenue = map[string]decimal.Decimal{}
			}
			stats.OtherRevenue[o.Currency] = o.revenue()
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *service) PlatformSummary(ctx context.Context, actor *access.Actor) (*PlatformSummary, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := &PlatformSummary{Revenue: map[string]decimal.Decimal{}}

	counts := []struct {
		dest  *int64
		model any
		where []any
	}{
		{&out.Companies, &models.Company{}, nil},
		{&out.Users, &models.User{}, nil},
		{&out.ActiveCampaigns, &models.Campaign{}, []any{"status = ?", enums.CampaignStatusActive}},
		{&out.PendingWalletTransactions, &models.WalletTransaction{}, []any{"status = ?", enums.WalletTxPending}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if len(c.where) > 0 {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "platform counts")
		}
	}

	var orders []orderRow
	err := db.Model(&models.Order{}).
		Select("currency, COUNT(*) AS count, SUM(total) AS revenue").
		Where("status <> ?", enums.OrderStatusCancelled).
		Group("currency").
		Scan(&orders).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate orders")
	}
	for _, o := range orders {
		out.Orders += o.Count
		out.Revenue[o.Currency] = o.revenue()
	}
	return out, nil
}
