// Package domain contains persistence models for the team service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Team groups users inside a workspace. Projects may be owned by or
// shared with teams.
type Team struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	WorkspaceID snowflake.ID `gorm:"column:workspace_id;not null;index" json:"workspace_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedBy   snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

// TeamMember joins a user to a team with a role of lead or member.
type TeamMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID    snowflake.ID `gorm:"column:team_id;not null;index;uniqueIndex:ux_team_user,priority:1" json:"team_id"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index;uniqueIndex:ux_team_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	AddedBy   snowflake.ID `gorm:"column:added_by" json:"added_by"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (TeamMember) TableName() string { return "team_members" }
