// Package domain contains persistence models for the time-entry service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/softdelete"
)

// TimeEntry records time a user spent on an issue.
type TimeEntry struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	IssueID     snowflake.ID `gorm:"column:issue_id;not null;index" json:"issue_id"`
	ProjectID   snowflake.ID `gorm:"column:project_id;not null;index" json:"project_id"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	Description string       `gorm:"type:text" json:"description"`
	StartedAt   time.Time    `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt     time.Time    `gorm:"column:ended_at;not null" json:"ended_at"`

	softdelete.Deletable `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TimeEntry) TableName() string { return "time_entries" }

// Duration returns the entry length.
func (e *TimeEntry) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}
