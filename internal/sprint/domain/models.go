// Package domain contains persistence models for the sprint service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Sprint statuses.
const (
	StatusFuture    = "future"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Sprint is a time-boxed iteration inside a project. At most one sprint
// per project is active at a time.
type Sprint struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ProjectID snowflake.ID `gorm:"column:project_id;not null;index" json:"project_id"`
	OrgID     snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Goal      string       `gorm:"type:text" json:"goal"`
	Status    string       `gorm:"type:text;not null" json:"status"`
	StartDate *time.Time   `gorm:"column:start_date" json:"start_date"`
	EndDate   *time.Time   `gorm:"column:end_date" json:"end_date"`
	CreatedBy snowflake.ID `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Sprint) TableName() string { return "sprints" }

// Burndown is the aggregate returned for sprint progress charts.
type Burndown struct {
	SprintID        string    `json:"sprint_id"`
	TotalPoints     float64   `json:"total_points"`
	CompletedPoints float64   `json:"completed_points"`
	RemainingPoints float64   `json:"remaining_points"`
	PercentComplete float64   `json:"percent_complete"`
	TotalDays       int       `json:"total_days"`
	IdealBurndown   []float64 `json:"ideal_burndown"`
}
