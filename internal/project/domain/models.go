// Package domain contains persistence models for the project service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/softdelete"
	"gorm.io/datatypes"
)

// Workflow state categories. Every project keeps at least one state per
// category so issue statuses always have somewhere to land.
const (
	CategoryTodo       = "todo"
	CategoryInProgress = "inprogress"
	CategoryDone       = "done"
)

// WorkflowState is one column on a project board.
type WorkflowState struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Order    int    `json:"order"`
}

// Board types.
const (
	BoardTypeKanban = "kanban"
	BoardTypeScrum  = "scrum"
)

// Project belongs to exactly one organization and workspace, and
// optionally to a team. IsPublic exposes the project read-only to
// organization members; it never grants write access.
type Project struct {
	ID                snowflake.ID                       `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID                       `gorm:"column:org_id;not null;index" json:"org_id"`
	WorkspaceID       snowflake.ID                       `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	TeamID            *snowflake.ID                      `gorm:"column:team_id;index" json:"team_id"`
	SharedWithTeamIDs datatypes.JSONSlice[snowflake.ID]  `gorm:"column:shared_with_team_ids" json:"shared_with_team_ids"`
	Name              string                             `gorm:"type:text;not null" json:"name"`
	Description       string                             `gorm:"type:text" json:"description"`
	Key               string                             `gorm:"type:text;not null;uniqueIndex:ux_projects_key" json:"key"`
	BoardType         string                             `gorm:"column:board_type;type:text;not null" json:"board_type"`
	WorkflowStates    datatypes.JSONSlice[WorkflowState] `gorm:"column:workflow_states" json:"workflow_states"`
	IsPublic          bool                               `gorm:"column:is_public;not null" json:"is_public"`
	OwnerID           snowflake.ID                       `gorm:"column:owner_id;not null;index" json:"owner_id"`
	CreatedBy         snowflake.ID                       `gorm:"column:created_by;not null" json:"created_by"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// DefaultWorkflowStates is applied when a project is created without an
// explicit board layout.
func DefaultWorkflowStates() []WorkflowState {
	return []WorkflowState{
		{ID: "todo", Name: "To Do", Category: CategoryTodo, Order: 0},
		{ID: "inprogress", Name: "In Progress", Category: CategoryInProgress, Order: 1},
		{ID: "done", Name: "Done", Category: CategoryDone, Order: 2},
	}
}

// ProjectMember joins a user to a project as admin, editor or viewer.
// The project owner always holds an admin member record that cannot be
// removed or re-roled.
type ProjectMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID `gorm:"column:project_id;not null;index;uniqueIndex:ux_project_user,priority:1" json:"project_id"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index;uniqueIndex:ux_project_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	AddedBy   snowflake.ID `gorm:"column:added_by" json:"added_by"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ProjectMember) TableName() string { return "project_members" }
