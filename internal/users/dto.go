package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdesk-backend/internal/access"
	"github.com/angelmondragon/giftdesk-backend/pkg/db/models"
	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID     `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        enums.AppRole `json:"role"`
	RawRole     *string       `json:"raw_role,omitempty"`
	CompanyID   *uuid.UUID    `json:"company_id,omitempty"`
	AvatarURL   *string       `json:"avatar_url,omitempty"`
	IsActive    bool          `json:"is_active"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// FromModel maps a user row to its DTO.
func FromModel(u *models.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        access.ToAppRole(u.Role),
		RawRole:     u.Role,
		CompanyID:   u.CompanyID,
		AvatarURL:   u.AvatarURL,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// ListInput narrows a user listing.
type ListInput struct {
	CompanyID *uuid.UUID
	Limit     int
	Cursor    string
}

// UpdateProfileInput is a partial self-update.
type UpdateProfileInput struct {
	Name      *string
	Email     *string
	AvatarURL *string
}

// InviteInput creates a user with a temporary password.
type InviteInput struct {
	Email     string
	Name      string
	Role      enums.StoredRole
	CompanyID *uuid.UUID
}

// InviteResult carries the one-time temporary password back to the inviter.
type InviteResult struct {
	User         UserDTO `json:"user"`
	TempPassword string  `json:"temp_password"`
}
