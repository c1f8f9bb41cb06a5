// Package domain contains persistence models for the issue service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/softdelete"
	"gorm.io/datatypes"
)

// Issue types.
const (
	TypeTask  = "task"
	TypeBug   = "bug"
	TypeStory = "story"
	TypeEpic  = "epic"
)

// Issue priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Issue belongs to exactly one project. Organization, workspace and
// team IDs are denormalized from the owning project on every create and
// move; they are never taken from caller input.
type Issue struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID   snowflake.ID  `gorm:"column:project_id;not null;index" json:"project_id"`
	OrgID       snowflake.ID  `gorm:"column:org_id;not null;index" json:"org_id"`
	WorkspaceID snowflake.ID  `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	TeamID      *snowflake.ID `gorm:"column:team_id;index" json:"team_id"`

	Key         string `gorm:"type:text;not null;uniqueIndex:ux_issues_key" json:"key"`
	Title       string `gorm:"type:text;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"type:text;not null" json:"type"`
	Status      string `gorm:"type:text;not null" json:"status"`
	Priority    string `gorm:"type:text;not null" json:"priority"`

	AssigneeID *snowflake.ID `gorm:"column:assignee_id;index" json:"assignee_id"`
	ReporterID snowflake.ID  `gorm:"column:reporter_id;not null" json:"reporter_id"`
	SprintID   *snowflake.ID `gorm:"column:sprint_id;index" json:"sprint_id"`

	EstimatedHours *float64                    `gorm:"column:estimated_hours" json:"estimated_hours"`
	StoryPoints    *float64                    `gorm:"column:story_points" json:"story_points"`
	DueDate        *time.Time                  `gorm:"column:due_date" json:"due_date"`
	Labels         datatypes.JSONSlice[string] `gorm:"column:labels" json:"labels"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Issue) TableName() string { return "issues" }

// Points returns the weight of an issue for burndown aggregation:
// story points when present, otherwise estimated hours, otherwise zero.
func (i *Issue) Points() float64 {
	if i.StoryPoints != nil {
		return *i.StoryPoints
	}
	if i.EstimatedHours != nil {
		return *i.EstimatedHours
	}
	return 0
}
