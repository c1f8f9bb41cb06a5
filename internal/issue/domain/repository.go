package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, issue *Issue) error
	Get(ctx context.Context, id snowflake.ID) (*Issue, error)
	GetIncludingDeleted(ctx context.Context, id snowflake.ID) (*Issue, error)
	GetMany(ctx context.Context, ids []snowflake.ID) ([]Issue, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	LatestKeyNumber(ctx context.Context, projectID snowflake.ID, keyPrefix string) (int, error)
	ListByProject(ctx context.Context, projectID snowflake.ID, includeDeleted bool) ([]Issue, error)
	ListBySprint(ctx context.Context, sprintID snowflake.ID) ([]Issue, error)
}

type Service interface {
	Create(ctx context.Context, userID, projectID snowflake.ID, req CreateRequest) (*Issue, error)
	Get(ctx context.Context, userID, issueID snowflake.ID) (*Issue, error)
	ListByProject(ctx context.Context, userID, projectID snowflake.ID, opts ListOptions) ([]Issue, error)
	Update(ctx context.Context, userID, issueID snowflake.ID, req UpdateRequest) (*Issue, error)
	Move(ctx context.Context, userID, issueID, targetProjectID snowflake.ID) (*Issue, error)
	SoftDelete(ctx context.Context, userID, issueID snowflake.ID) error
	Restore(ctx context.Context, userID, issueID snowflake.ID) error

	BulkUpdateStatus(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID, status string) (int, error)
	BulkAssign(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID, assigneeID snowflake.ID) (int, error)
	BulkAddLabels(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID, labels []string) (int, error)
	BulkDelete(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID) (int, error)
}

type CreateRequest struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Type           string        `json:"type"`
	Status         string        `json:"status"`
	Priority       string        `json:"priority"`
	AssigneeID     *snowflake.ID `json:"assignee_id,omitempty"`
	SprintID       *snowflake.ID `json:"sprint_id,omitempty"`
	EstimatedHours *float64      `json:"estimated_hours,omitempty"`
	StoryPoints    *float64      `json:"story_points,omitempty"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	Labels         []string      `json:"labels,omitempty"`
}

type UpdateRequest struct {
	Title          *string       `json:"title,omitempty"`
	Description    *string       `json:"description,omitempty"`
	Type           *string       `json:"type,omitempty"`
	Status         *string       `json:"status,omitempty"`
	Priority       *string       `json:"priority,omitempty"`
	AssigneeID     *snowflake.ID `json:"assignee_id,omitempty"`
	ClearAssignee  bool          `json:"clear_assignee,omitempty"`
	SprintID       *snowflake.ID `json:"sprint_id,omitempty"`
	ClearSprint    bool          `json:"clear_sprint,omitempty"`
	EstimatedHours *float64      `json:"estimated_hours,omitempty"`
	StoryPoints    *float64      `json:"story_points,omitempty"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	Labels         []string      `json:"labels,omitempty"`
}

type ListOptions struct {
	IncludeDeleted bool
}
