// Package access holds the request actor and the two policy primitives every
// read and write goes through: tenant scoping and mutation authorization.
package access

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
)

// Actor is the resolved caller. It is built once per request and passed to
// services explicitly.
type Actor struct {
	UserID    uuid.UUID
	Role      enums.AppRole
	RawRole   string
	CompanyID *uuid.UUID
	Name      string
	Email     string
}

func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.Role == enums.AppRoleSuperAdmin
}

// BelongsTo reports whether the actor is bound to companyID.
func (a *Actor) BelongsTo(companyID uuid.UUID) bool {
	return a != nil && a.CompanyID != nil && *a.CompanyID == companyID
}

// OutboxRef is the actor as recorded on outbox envelopes.
func (a *Actor) OutboxRef() *outbox.ActorRef {
	if a == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, CompanyID: a.CompanyID, Role: string(a.Role)}
}

var storedToApp = map[enums.StoredRole]enums.AppRole{
	enums.StoredRoleSuperAdmin: enums.AppRoleSuperAdmin,
	enums.StoredRoleAdmin:      enums.AppRoleCompanyHR,
	enums.StoredRoleHR:         enums.AppRoleCompanyHR,
	enums.StoredRoleManager:    enums.AppRoleCompanyHR,
	enums.StoredRoleEmployee:   enums.AppRoleEmployee,
}

// ToAppRole collapses a stored role onto the application role. It never
// fails: nil, blank and unknown values become employee.
func ToAppRole(raw *string) enums.AppRole {
	if raw == nil {
		return enums.AppRoleEmployee
	}
	normalized := strings.ToUpper(strings.TrimSpace(*raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	if role, ok := storedToApp[enums.StoredRole(normalized)]; ok {
		return role
	}
	return enums.AppRoleEmployee
}
