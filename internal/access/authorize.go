package access

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
)

// Denial reasons surfaced in error details.
const (
	ReasonNotAuthenticated = "not_authenticated"
	ReasonProfileMissing   = "profile_missing"
	ReasonRoleInsufficient = "role_insufficient"
	ReasonWrongTenant      = "wrong_tenant"
	ReasonNotFound         = "not_found"
	ReasonConflict         = "conflict"
)

// Rule is what a mutation demands of its actor. A nil TenantID skips the
// ownership check; super admins always pass it.
type Rule struct {
	MinRole  enums.AppRole
	TenantID *uuid.UUID
}

// Authorize checks role then tenant.
func Authorize(actor *Actor, rule Rule) error {
	if err := RequireRole(actor, rule.MinRole); err != nil {
		return err
	}
	if rule.TenantID != nil {
		return RequireTenant(actor, *rule.TenantID)
	}
	return nil
}

func RequireRole(actor *Actor, min enums.AppRole) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required").
			WithDetails(reason(ReasonNotAuthenticated))
	}
	if actor.UserID == uuid.Nil {
		return ProfileMissing()
	}
	if !actor.Role.AtLeast(min) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
			WithDetails(map[string]any{"reason": ReasonRoleInsufficient, "required": string(min)})
	}
	return nil
}

// RequireTenant is called after the target resource is loaded.
func RequireTenant(actor *Actor, companyID uuid.UUID) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required").
			WithDetails(reason(ReasonNotAuthenticated))
	}
	if actor.IsSuperAdmin() || actor.BelongsTo(companyID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "resource belongs to another company").
		WithDetails(reason(ReasonWrongTenant))
}

func ProfileMissing() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "user profile not found").
		WithDetails(reason(ReasonProfileMissing))
}

func NotFound(resource string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
}

func Conflict(msg string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, msg).WithDetails(reason(ReasonConflict))
}

// StateConflict reports a precondition on resource state that does not hold.
func StateConflict(msg string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).WithDetails(reason(ReasonConflict))
}

func reason(r string) map[string]any {
	return map[string]any{"reason": r}
}

// LoadError maps a failed load of the target resource onto the public taxonomy.
func LoadError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if db.IsNotFound(err) {
		return NotFound(resource)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+resource)
}
