package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      string
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id snowflake.ID) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	SlugExists(ctx context.Context, slug string, excludeID snowflake.ID) (bool, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]ListItem, error)

	AddMember(ctx context.Context, member *OrganizationMember) error
	GetMember(ctx context.Context, orgID, userID snowflake.ID) (*OrganizationMember, error)
	UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]OrganizationMember, error)

	CreateInvite(ctx context.Context, invite *OrganizationInvite) error
	GetInvite(ctx context.Context, id snowflake.ID) (*OrganizationInvite, error)
	FindPendingInvite(ctx context.Context, orgID snowflake.ID, email string) (*OrganizationInvite, error)
	UpdateInviteStatus(ctx context.Context, id snowflake.ID, status string, now time.Time) error
}
