package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/internal/audit"
	"github.com/angelmondragon/giftdesk-backend/pkg/config"
	"github.com/angelmondragon/giftdesk-backend/pkg/db"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdesk-backend/pkg/errors"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftdesk-backend/pkg/pagination"
	"github.com/angelmondragon/giftdesk-backend/pkg/security"
)

const tempPasswordLength = 14

type Service interface {
	List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[UserDTO], error)
	Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*UserDTO, error)
	UpdateMe(ctx context.Context, actor *access.Actor, input UpdateProfileInput) (*UserDTO, error)
	ChangeRole(ctx context.Context, actor *access.Actor, id uuid.UUID, role enums.StoredRole) (*UserDTO, error)
	Invite(ctx context.Context, actor *access.Actor, input InviteInput) (*InviteResult, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type companyChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type ServiceParams struct {
	Repo      *Repository
	DB        *db.Client
	Outbox    outboxEmitter
	Companies companyChecker
	Audit     audit.Recorder
	Password  config.PasswordConfig
}

type service struct {
	repo      *Repository
	db        *db.Client
	outbox    outboxEmitter
	companies companyChecker
	audit     audit.Recorder
	password  config.PasswordConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Companies == nil {
		return nil, fmt.Errorf("company checker required")
	}
	if params.Audit == nil {
		params.Audit = audit.Nop{}
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		outbox:    params.Outbox,
		companies: params.Companies,
		audit:     params.Audit,
		password:  params.Password,
	}, nil
}

func (s *service) List(ctx context.Context, actor *access.Actor, input ListInput) (*pagination.Page[UserDTO], error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation("cursor", "invalid cursor")
	}
	rows, err := s.repo.ListScoped(ctx, actor, input.CompanyID, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	page := pagination.BuildPage(rows, input.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	out := &pagination.Page[UserDTO]{NextCursor: page.NextCursor, Items: make([]UserDTO, 0, len(page.Items))}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

// Get returns a user to themselves, to HR of their company, or to a super admin.
func (s *service) Get(ctx context.Context, actor *access.Actor, id uuid.UUID) (*UserDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "user")
	}
	if user.ID != actor.UserID {
		if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
			return nil, err
		}
		if user.CompanyID == nil {
			if !actor.IsSuperAdmin() {
				return nil, access.NotFound("user")
			}
		} else if err := access.RequireTenant(actor, *user.CompanyID); err != nil {
			return nil, err
		}
	}
	dto := FromModel(user)
	return &dto, nil
}

func (s *service) UpdateMe(ctx context.Context, actor *access.Actor, input UpdateProfileInput) (*UserDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleEmployee); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.Validation("name", "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, pkgerrors.Validation("email", "email cannot be blank")
		}
		updates["email"] = email
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, actor.UserID, updates); err != nil {
			if db.IsUniqueViolation(err, "ux_users_email") || db.IsUniqueViolation(err, "users.email") {
				return nil, access.Conflict("email already in use")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, access.LoadError(err, "user")
	}
	s.audit.Record(ctx, actor, audit.Entry{Action: "user.profile_updated", ResourceType: "user", ResourceID: user.ID.String()})
	dto := FromModel(user)
	return &dto, nil
}

// ChangeRole is reserved to super admins; the raw stored role is validated.
func (s *service) ChangeRole(ctx context.Context, actor *access.Actor, id uuid.UUID, role enums.StoredRole) (*UserDTO, error) {
	if err := access.RequireRole(actor, enums.AppRoleSuperAdmin); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, pkgerrors.Validation("role", "unknown role")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, access.LoadError(err, "user")
	}
	previous := user.Role
	raw := role.String()
	if err := s.repo.Update(ctx, id, map[string]any{"role": raw}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	user.Role = &raw

	details := map[string]any{"to": raw}
	if previous != nil {
		details["from"] = *previous
	}
	s.audit.Record(ctx, actor, audit.Entry{Action: "user.role_changed", ResourceType: "user", ResourceID: id.String(), CompanyID: user.CompanyID, Details: details})
	dto := FromModel(user)
	return &dto, nil
}

// Invite creates an active user with a temporary password. HR invites into
// their own company; an HR actor without a company may pick one (the
// company-picker fallback); super admins may invite anywhere.
func (s *service) Invite(ctx context.Context, actor *access.Actor, input InviteInput) (*InviteResult, error) {
	if err := access.RequireRole(actor, enums.AppRoleCompanyHR); err != nil {
		return nil, err
	}
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.Validation("email", "email is required")
	}
	role := input.Role
	if role == "" {
		role = enums.StoredRoleEmployee
	}
	if !role.IsValid() {
		return nil, pkgerrors.Validation("role", "unknown role")
	}
	if role == enums.StoredRoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot grant super admin").
			WithDetails(map[string]any{"reason": access.ReasonRoleInsufficient})
	}

	companyID := input.CompanyID
	if companyID == nil && !actor.IsSuperAdmin() {
		companyID = actor.CompanyID
	}
	if !actor.IsSuperAdmin() {
		if companyID == nil {
			return nil, pkgerrors.Validation("company_id", "company is required")
		}
		if actor.CompanyID != nil {
			if err := access.RequireTenant(actor, *companyID); err != nil {
				return nil, err
			}
		}
	}
	if companyID != nil {
		ok, err := s.companies.Exists(ctx, *companyID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
		}
		if !ok {
			return nil, access.NotFound("company")
		}
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = email
	}
	temp, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(temp, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	raw := role.String()
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         &raw,
		CompanyID:    companyID,
		IsActive:     true,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserInvited,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.UserInvitedEvent{
				UserID:       user.ID,
				CompanyID:    companyID,
				Email:        email,
				Name:         name,
				TempPassword: temp,
				InvitedBy:    actor.UserID,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, access.Conflict("email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invite user")
	}

	s.audit.Record(ctx, actor, audit.Entry{
		Action:       "user.invited",
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		CompanyID:    companyID,
		Details:      map[string]any{"email": email, "role": raw},
	})
	return &InviteResult{User: FromModel(user), TempPassword: temp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
