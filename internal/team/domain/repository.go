package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, team *Team) error
	Get(ctx context.Context, id snowflake.ID) (*Team, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
	ListByWorkspace(ctx context.Context, workspaceID snowflake.ID) ([]Team, error)
	CountProjects(ctx context.Context, teamID snowflake.ID) (int64, error)

	AddMember(ctx context.Context, member *TeamMember) error
	GetMember(ctx context.Context, teamID, userID snowflake.ID) (*TeamMember, error)
	UpdateMemberRole(ctx context.Context, teamID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, teamID, userID snowflake.ID) error
	ListMembers(ctx context.Context, teamID snowflake.ID) ([]TeamMember, error)
}

type Service interface {
	Create(ctx context.Context, userID, orgID, workspaceID snowflake.ID, req CreateRequest) (*Team, error)
	Get(ctx context.Context, userID, teamID snowflake.ID) (*Team, error)
	ListByWorkspace(ctx context.Context, userID, workspaceID snowflake.ID) ([]Team, error)
	Update(ctx context.Context, userID, teamID snowflake.ID, req UpdateRequest) (*Team, error)
	Delete(ctx context.Context, userID, teamID snowflake.ID) error

	AddMember(ctx context.Context, userID, teamID, targetUserID snowflake.ID, role string) error
	UpdateMemberRole(ctx context.Context, userID, teamID, targetUserID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, userID, teamID, targetUserID snowflake.ID) error
	ListMembers(ctx context.Context, userID, teamID snowflake.ID) ([]TeamMember, error)
}

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
