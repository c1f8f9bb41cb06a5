package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, project *Project) error
	Get(ctx context.Context, id snowflake.ID) (*Project, error)
	GetIncludingDeleted(ctx context.Context, id snowflake.ID) (*Project, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	KeyExists(ctx context.Context, key string) (bool, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID, includeDeleted bool) ([]Project, error)
	ListByWorkspace(ctx context.Context, workspaceID snowflake.ID) ([]Project, error)

	AddMember(ctx context.Context, member *ProjectMember) error
	GetMember(ctx context.Context, projectID, userID snowflake.ID) (*ProjectMember, error)
	GetMemberIncludingDeleted(ctx context.Context, projectID, userID snowflake.ID) (*ProjectMember, error)
	UpdateMemberFields(ctx context.Context, memberID snowflake.ID, fields map[string]any) error
	ListMembers(ctx context.Context, projectID snowflake.ID) ([]ProjectMember, error)
}

type Service interface {
	Create(ctx context.Context, userID, orgID, workspaceID snowflake.ID, req CreateRequest) (*Project, error)
	Get(ctx context.Context, userID, projectID snowflake.ID) (*Project, error)
	ListByOrg(ctx context.Context, userID, orgID snowflake.ID) ([]Project, error)
	Update(ctx context.Context, userID, projectID snowflake.ID, req UpdateRequest) (*Project, error)
	SoftDelete(ctx context.Context, userID, projectID snowflake.ID) error
	Restore(ctx context.Context, userID, projectID snowflake.ID) error

	AddMember(ctx context.Context, userID, projectID, targetUserID snowflake.ID, role string) error
	UpdateMemberRole(ctx context.Context, userID, projectID, targetUserID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, userID, projectID, targetUserID snowflake.ID) error
	ListMembers(ctx context.Context, userID, projectID snowflake.ID) ([]ProjectMember, error)
}

type CreateRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Key            string          `json:"key"`
	BoardType      string          `json:"board_type"`
	WorkflowStates []WorkflowState `json:"workflow_states,omitempty"`
	IsPublic       bool            `json:"is_public"`
	TeamID         *snowflake.ID   `json:"team_id,omitempty"`
}

type UpdateRequest struct {
	Name              *string         `json:"name,omitempty"`
	Description       *string         `json:"description,omitempty"`
	BoardType         *string         `json:"board_type,omitempty"`
	WorkflowStates    []WorkflowState `json:"workflow_states,omitempty"`
	IsPublic          *bool           `json:"is_public,omitempty"`
	TeamID            *snowflake.ID   `json:"team_id,omitempty"`
	SharedWithTeamIDs []snowflake.ID  `json:"shared_with_team_ids,omitempty"`
}
