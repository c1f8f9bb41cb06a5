package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, sprint *Sprint) error
	Get(ctx context.Context, id snowflake.ID) (*Sprint, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	ListByProject(ctx context.Context, projectID snowflake.ID) ([]Sprint, error)
	FindActive(ctx context.Context, projectID snowflake.ID) ([]Sprint, error)
}

type Service interface {
	Create(ctx context.Context, userID, projectID snowflake.ID, req CreateRequest) (*Sprint, error)
	Get(ctx context.Context, userID, sprintID snowflake.ID) (*Sprint, error)
	ListByProject(ctx context.Context, userID, projectID snowflake.ID) ([]Sprint, error)
	Update(ctx context.Context, userID, sprintID snowflake.ID, req UpdateRequest) (*Sprint, error)
	Start(ctx context.Context, userID, sprintID snowflake.ID) (*Sprint, error)
	Complete(ctx context.Context, userID, sprintID snowflake.ID) (*Sprint, error)
	Burndown(ctx context.Context, userID, sprintID snowflake.ID) (*Burndown, error)
}

type CreateRequest struct {
	Name      string     `json:"name"`
	Goal      string     `json:"goal"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type UpdateRequest struct {
	Name      *string    `json:"name,omitempty"`
	Goal      *string    `json:"goal,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}
