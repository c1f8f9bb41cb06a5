package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Scopes a key can carry. Read covers GET-style access, write covers
// everything else. The HTTP layer enforces them per request method.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
)

// APIKey is a long-lived credential owned by one user inside one
// organization. The raw secret is shown exactly once at creation;
// only its sha256 hash and a short display prefix are stored. A key
// may optionally be pinned to a single project, in which case it
// grants nothing outside that project.
type APIKey struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID  `gorm:"index:idx_api_keys_org_user" json:"org_id"`
	UserID    snowflake.ID  `gorm:"index:idx_api_keys_org_user" json:"user_id"`
	ProjectID *snowflake.ID `json:"project_id,omitempty"`

	KeyID   string `gorm:"uniqueIndex;size:64" json:"key_id"`
	Name    string `gorm:"size:255" json:"name"`
	Prefix  string `gorm:"size:16" json:"prefix"`
	KeyHash string `gorm:"uniqueIndex;size:64" json:"-"`

	Scopes   datatypes.JSONSlice[string] `json:"scopes"`
	IsActive bool                        `json:"is_active"`

	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	RotatedFromKeyID *string    `gorm:"size:64" json:"rotated_from_key_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (APIKey) TableName() string { return "api_keys" }

// Expired reports whether the key's expiry, if any, has passed.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Usable reports whether the key can authenticate requests right now.
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && !k.Expired(now)
}

// HasScope reports whether the key carries the named scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
