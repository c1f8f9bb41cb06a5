// Package domain contains persistence models for the workspace service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/softdelete"
)

// Workspace belongs to exactly one organization. Slug is unique within
// the organization, not globally.
type Workspace struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"column:org_id;not null;index;uniqueIndex:ux_workspace_org_slug,priority:1" json:"org_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex:ux_workspace_org_slug,priority:2" json:"slug"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedBy   snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Workspace) TableName() string { return "workspaces" }

// WorkspaceMember joins a user to a workspace. The user must already be
// a member of the owning organization. Records are soft-deletable.
type WorkspaceMember struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkspaceID snowflake.ID `gorm:"column:workspace_id;not null;index;uniqueIndex:ux_workspace_user,priority:1" json:"workspace_id"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;index;uniqueIndex:ux_workspace_user,priority:2" json:"user_id"`
	Role        string       `gorm:"type:text;not null" json:"role"`
	AddedBy     snowflake.ID `gorm:"column:added_by" json:"added_by"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (WorkspaceMember) TableName() string { return "workspace_members" }
