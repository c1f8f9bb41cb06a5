package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, key *APIKey) error
	GetByKeyID(ctx context.Context, keyID string) (*APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*APIKey, error)
	ListByUser(ctx context.Context, orgID, userID snowflake.ID) ([]APIKey, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type Service interface {
	// Create mints a key and returns it together with the raw secret,
	// which is never retrievable again.
	Create(ctx context.Context, userID, orgID snowflake.ID, req CreateRequest) (*APIKey, string, error)
	List(ctx context.Context, userID, orgID snowflake.ID) ([]APIKey, error)
	// Rotate mints a replacement and leaves the old key usable for a
	// short grace window so deployed clients can switch over.
	Rotate(ctx context.Context, userID snowflake.ID, keyID string) (*APIKey, string, error)
	Revoke(ctx context.Context, userID snowflake.ID, keyID string) error
	// Authenticate resolves a raw key to its record, or reports the
	// caller unauthenticated.
	Authenticate(ctx context.Context, rawKey string) (*APIKey, error)
}

type CreateRequest struct {
	Name      string        `json:"name"`
	Scopes    []string      `json:"scopes,omitempty"`
	ProjectID *snowflake.ID `json:"project_id,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}
