package access

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FilterKind int

const (
	// FilterNone matches no rows.
	FilterNone FilterKind = iota
	// FilterCompany restricts rows to one company.
	FilterCompany
	// FilterAll applies no tenant restriction.
	FilterAll
)

// Filter is the tenant restriction for one read.
type Filter struct {
	Kind      FilterKind
	CompanyID uuid.UUID
}

type scopeOptions struct {
	narrow        *uuid.UUID
	unboundAll    bool
	column        string
	includeGlobal bool
}

type ScopeOption func(*scopeOptions)

// Narrow restricts a super admin to one company. Other roles ignore it.
func Narrow(companyID *uuid.UUID) ScopeOption {
	return func(o *scopeOptions) {
		o.narrow = companyID
	}
}

// AllowUnboundFallback lets an actor without a company see every company.
// Only the invite and company-picker flows use it.
func AllowUnboundFallback() ScopeOption {
	return func(o *scopeOptions) {
		o.unboundAll = true
	}
}

// Column overrides the tenant column, e.g. "orders.company_id" in joins.
func Column(name string) ScopeOption {
	return func(o *scopeOptions) {
		o.column = name
	}
}

// IncludeGlobal also matches rows with no company (platform catalog).
func IncludeGlobal() ScopeOption {
	return func(o *scopeOptions) {
		o.includeGlobal = true
	}
}

func buildOptions(opts []ScopeOption) scopeOptions {
	o := scopeOptions{column: "company_id"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TenantFilter decides what an actor may read. A nil actor sees nothing.
func TenantFilter(actor *Actor, opts ...ScopeOption) Filter {
	o := buildOptions(opts)
	switch {
	case actor == nil:
		return Filter{Kind: FilterNone}
	case actor.IsSuperAdmin():
		if o.narrow != nil {
			return Filter{Kind: FilterCompany, CompanyID: *o.narrow}
		}
		return Filter{Kind: FilterAll}
	case actor.CompanyID != nil:
		return Filter{Kind: FilterCompany, CompanyID: *actor.CompanyID}
	case o.unboundAll:
		return Filter{Kind: FilterAll}
	default:
		return Filter{Kind: FilterNone}
	}
}

// ScopeFilter applies TenantFilter to q.
func ScopeFilter(actor *Actor, q *gorm.DB, opts ...ScopeOption) *gorm.DB {
	o := buildOptions(opts)
	filter := TenantFilter(actor, opts...)
	switch filter.Kind {
	case FilterAll:
		return q
	case FilterCompany:
		if o.includeGlobal {
			return q.Where("("+o.column+" = ? OR "+o.column+" IS NULL)", filter.CompanyID)
		}
		return q.Where(o.column+" = ?", filter.CompanyID)
	default:
		return q.Where("1 = 0")
	}
}
