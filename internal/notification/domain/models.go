// Package domain contains persistence models for notifications and the
// outbox that feeds them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event types written to the outbox.
const (
	EventIssueAssigned   = "issue.assigned"
	EventMemberAdded     = "organization.member_added"
	EventMemberRemoved   = "organization.member_removed"
	EventInviteCreated   = "organization.invite_created"
	EventInviteAccepted  = "organization.invite_accepted"
	EventProjectDeleted  = "project.deleted"
	EventProjectRestored = "project.restored"
)

// OutboxEvent is written in the same transaction as the mutation that
// caused it. The dispatcher drains unpublished rows asynchronously, so
// notification delivery can never roll back a mutation.
type OutboxEvent struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID   `gorm:"column:org_id;not null;index" json:"org_id"`
	EventType   string         `gorm:"column:event_type;type:text;not null" json:"event_type"`
	ActorID     snowflake.ID   `gorm:"column:actor_id;not null" json:"actor_id"`
	RecipientID *snowflake.ID  `gorm:"column:recipient_id;index" json:"recipient_id"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`
	Published   bool           `gorm:"column:published;not null;index" json:"published"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OutboxEvent) TableName() string { return "outbox_events" }

// Notification is what a user sees in their inbox.
type Notification struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID   `gorm:"column:user_id;not null;index" json:"user_id"`
	OrgID      snowflake.ID   `gorm:"column:org_id;not null;index" json:"org_id"`
	Type       string         `gorm:"type:text;not null" json:"type"`
	ActorID    snowflake.ID   `gorm:"column:actor_id" json:"actor_id"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload"`
	ReadAt     *time.Time     `gorm:"column:read_at" json:"read_at"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
