package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id snowflake.ID) (*Document, error)
	GetIncludingDeleted(ctx context.Context, id snowflake.ID) (*Document, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	ListVisible(ctx context.Context, orgID, viewerID snowflake.ID) ([]Document, error)
}

type Service interface {
	Create(ctx context.Context, userID, orgID snowflake.ID, req CreateRequest) (*Document, error)
	Get(ctx context.Context, userID, documentID snowflake.ID) (*Document, error)
	ListByOrg(ctx context.Context, userID, orgID snowflake.ID) ([]Document, error)
	Update(ctx context.Context, userID, documentID snowflake.ID, req UpdateRequest) (*Document, error)
	TogglePublic(ctx context.Context, userID, documentID snowflake.ID) (*Document, error)
	SoftDelete(ctx context.Context, userID, documentID snowflake.ID) error
	Restore(ctx context.Context, userID, documentID snowflake.ID) error
}

type CreateRequest struct {
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	IsPublic    bool          `json:"is_public"`
	WorkspaceID *snowflake.ID `json:"workspace_id,omitempty"`
	ProjectID   *snowflake.ID `json:"project_id,omitempty"`
}

type UpdateRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}
