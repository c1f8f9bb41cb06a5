// Package domain contains persistence models for the document service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/softdelete"
)

// Document is scoped to an organization and optionally attached to a
// workspace or project inside that same organization. Documents are
// private to their creator unless IsPublic shares them with the rest
// of the organization; mutations stay creator-only either way.
type Document struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID  `gorm:"column:org_id;not null;index" json:"org_id"`
	WorkspaceID *snowflake.ID `gorm:"column:workspace_id;index" json:"workspace_id"`
	ProjectID   *snowflake.ID `gorm:"column:project_id;index" json:"project_id"`
	Title       string        `gorm:"type:text;not null" json:"title"`
	Content     string        `gorm:"type:text" json:"content"`
	IsPublic    bool          `gorm:"column:is_public;not null" json:"is_public"`
	CreatedBy   snowflake.ID  `gorm:"column:created_by;not null" json:"created_by"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }
