package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, ws *Workspace) error
	Get(ctx context.Context, id snowflake.ID) (*Workspace, error)
	GetBySlug(ctx context.Context, orgID snowflake.ID, slug string) (*Workspace, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
	SlugExists(ctx context.Context, orgID snowflake.ID, slug string, excludeID snowflake.ID) (bool, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Workspace, error)

	CountTeams(ctx context.Context, workspaceID snowflake.ID) (int64, error)
	CountProjects(ctx context.Context, workspaceID snowflake.ID) (int64, error)

	AddMember(ctx context.Context, member *WorkspaceMember) error
	GetMember(ctx context.Context, workspaceID, userID snowflake.ID) (*WorkspaceMember, error)
	GetMemberIncludingDeleted(ctx context.Context, workspaceID, userID snowflake.ID) (*WorkspaceMember, error)
	UpdateMemberFields(ctx context.Context, memberID snowflake.ID, fields map[string]any) error
	ListMembers(ctx context.Context, workspaceID snowflake.ID) ([]WorkspaceMember, error)
}

type Service interface {
	Create(ctx context.Context, userID, orgID snowflake.ID, req CreateRequest) (*Workspace, error)
	Get(ctx context.Context, userID, workspaceID snowflake.ID) (*Workspace, error)
	ListByOrg(ctx context.Context, userID, orgID snowflake.ID) ([]Workspace, error)
	Update(ctx context.Context, userID, workspaceID snowflake.ID, req UpdateRequest) (*Workspace, error)
	Delete(ctx context.Context, userID, workspaceID snowflake.ID) error

	AddMember(ctx context.Context, userID, workspaceID, targetUserID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, userID, workspaceID, targetUserID snowflake.ID) error
	ListMembers(ctx context.Context, userID, workspaceID snowflake.ID) ([]WorkspaceMember, error)
}

type CreateRequest struct {
	Name        string  `json:"name"`
	Slug        *string `json:"slug,omitempty"`
	Description string  `json:"description"`
}

type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
