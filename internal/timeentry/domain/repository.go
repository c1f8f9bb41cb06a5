package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, entry *TimeEntry) error
	Get(ctx context.Context, id snowflake.ID) (*TimeEntry, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	ListByIssue(ctx context.Context, issueID snowflake.ID) ([]TimeEntry, error)
	ListByUser(ctx context.Context, userID snowflake.ID, from, to time.Time) ([]TimeEntry, error)
}

type Service interface {
	Create(ctx context.Context, userID, issueID snowflake.ID, req CreateRequest) (*TimeEntry, error)
	ListByIssue(ctx context.Context, userID, issueID snowflake.ID) ([]TimeEntry, error)
	SoftDelete(ctx context.Context, userID, entryID snowflake.ID) error
}

type CreateRequest struct {
	Description string    `json:"description"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}
