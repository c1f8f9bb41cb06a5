package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*Organization, error)
	Get(ctx context.Context, userID, orgID snowflake.ID) (*Organization, error)
	GetBySlug(ctx context.Context, userID snowflake.ID, slug string) (*Organization, error)
	Update(ctx context.Context, userID, orgID snowflake.ID, req UpdateRequest) (*Organization, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]ListItem, error)

	ListMembers(ctx context.Context, userID, orgID snowflake.ID) ([]OrganizationMember, error)
	AddMember(ctx context.Context, userID, orgID, targetUserID snowflake.ID, role string) error
	UpdateMemberRole(ctx context.Context, userID, orgID, targetUserID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, userID, orgID, targetUserID snowflake.ID) error

	InviteMembers(ctx context.Context, userID, orgID snowflake.ID, invites []InviteRequest) error
	AcceptInvite(ctx context.Context, userID snowflake.ID, inviteID snowflake.ID, email string) error
}

type CreateRequest struct {
	Name string
}

// UpdateRequest carries optional fields; nil leaves the value as is.
type UpdateRequest struct {
	Name *string
}

type InviteRequest struct {
	Email string
	Role  string
}
