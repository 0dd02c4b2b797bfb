package access

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
)

func TestAuthorize(t *testing.T) {
	c1, c2 := uuid.New(), uuid.New()
	hr := &Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR, CompanyID: &c1}
	employee := &Actor{UserID: uuid.New(), Role: enums.AppRoleEmployee, CompanyID: &c1}
	super := &Actor{UserID: uuid.New(), Role: enums.AppRoleSuperAdmin}

	cases := []struct {
		name   string
		actor  *Actor
		rule   Rule
		code   pkgerrors.Code
		reason string
	}{
		{"anonymous", nil, Rule{MinRole: enums.AppRoleEmployee}, pkgerrors.CodeUnauthorized, ReasonNotAuthenticated},
		{"profile missing", &Actor{Role: enums.AppRoleCompanyHR}, Rule{MinRole: enums.AppRoleEmployee}, pkgerrors.CodeForbidden, ReasonProfileMissing},
		{"role insufficient", employee, Rule{MinRole: enums.AppRoleCompanyHR, TenantID: &c1}, pkgerrors.CodeForbidden, ReasonRoleInsufficient},
		{"wrong tenant", hr, Rule{MinRole: enums.AppRoleCompanyHR, TenantID: &c2}, pkgerrors.CodeForbidden, ReasonWrongTenant},
		{"own tenant", hr, Rule{MinRole: enums.AppRoleCompanyHR, TenantID: &c1}, "", ""},
		{"super admin bypasses tenant", super, Rule{MinRole: enums.AppRoleCompanyHR, TenantID: &c2}, "", ""},
		{"no tenant rule", employee, Rule{MinRole: enums.AppRoleEmployee}, "", ""},
		{"super admin only", hr, Rule{MinRole: enums.AppRoleSuperAdmin}, pkgerrors.CodeForbidden, ReasonRoleInsufficient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, tc.rule)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if got := pkgerrors.Reason(err); got != tc.reason {
				t.Fatalf("expected reason %s, got %s", tc.reason, got)
			}
		})
	}
}

func TestUnboundActorFailsTenantCheck(t *testing.T) {
	actor := &Actor{UserID: uuid.New(), Role: enums.AppRoleCompanyHR}
	if err := RequireTenant(actor, uuid.New()); pkgerrors.Reason(err) != ReasonWrongTenant {
		t.Fatalf("expected wrong tenant, got %v", err)
	}
}

func TestLoadError(t *testing.T) {
	if !pkgerrors.IsCode(LoadError(gorm.ErrRecordNotFound, "order"), pkgerrors.CodeNotFound) {
		t.Fatal("record not found should map to not found")
	}
	if !pkgerrors.IsCode(LoadError(errors.New("conn reset"), "order"), pkgerrors.CodeDependency) {
		t.Fatal("driver errors should map to dependency")
	}
	if LoadError(nil, "order") != nil {
		t.Fatal("nil stays nil")
	}
}
