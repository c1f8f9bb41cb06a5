package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, userID snowflake.ID, req UpdateProfileRequest) (*User, error)
	MarkEmailVerified(ctx context.Context, userID snowflake.ID) error
	SetDefaultOrganization(ctx context.Context, userID snowflake.ID, orgID *snowflake.ID) error
	ChangePassword(ctx context.Context, userID snowflake.ID, newPassword string) error
}

type CreateUserRequest struct {
	Name     string
	Email    string
	Password string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// UpdateProfileRequest carries optional profile fields. Nil pointers
// leave the existing value untouched.
type UpdateProfileRequest struct {
	Name      *string
	Email     *string
	AvatarURL *string
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
