// Package softdelete implements the shared soft-delete lifecycle: every
// deletable entity embeds Deletable, mutations apply Fields/RestorePatch,
// and queries use the NotDeleted/OnlyDeleted scopes. Restore clears all
// three marker columns so a restored record is indistinguishable from one
// that was never deleted.
package softdelete

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DefaultRetention is how long a soft-deleted record is kept before it
// becomes eligible for permanent deletion.
const DefaultRetention = 30 * 24 * time.Hour

// Deletable is embedded into every soft-deletable model.
type Deletable struct {
	IsDeleted bool          `gorm:"column:is_deleted;not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time    `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	DeletedBy *snowflake.ID `gorm:"column:deleted_by" json:"deleted_by,omitempty"`
}

// Fields returns the marker values applied when soft-deleting.
func Fields(deletedBy snowflake.ID, now time.Time) Deletable {
	return Deletable{
		IsDeleted: true,
		DeletedAt: &now,
		DeletedBy: &deletedBy,
	}
}

// Patch returns a column map for gorm Updates when soft-deleting.
func Patch(deletedBy snowflake.ID, now time.Time) map[string]any {
	return map[string]any{
		"is_deleted": true,
		"deleted_at": now,
		"deleted_by": deletedBy,
	}
}

// RestorePatch clears every marker column. Restoring does not record who
// restored or when, so downstream consumers cannot tell a restored record
// from a never-deleted one.
func RestorePatch() map[string]any {
	return map[string]any{
		"is_deleted": false,
		"deleted_at": nil,
		"deleted_by": nil,
	}
}

// IsSoftDeleted is strict: only IsDeleted == true counts as deleted.
func (d Deletable) IsSoftDeleted() bool {
	return d.IsDeleted
}

// TimeSinceDeletion returns the elapsed time since deletion, or false if
// the record is not deleted or has no deletion timestamp.
func (d Deletable) TimeSinceDeletion(now time.Time) (time.Duration, bool) {
	if !d.IsDeleted || d.DeletedAt == nil {
		return 0, false
	}
	return now.Sub(*d.DeletedAt), true
}

// EligibleForPermanentDeletion reports whether the record has been
// deleted for strictly longer than threshold. A record exactly at the
// threshold is not yet eligible.
func (d Deletable) EligibleForPermanentDeletion(now time.Time, threshold time.Duration) bool {
	elapsed, ok := d.TimeSinceDeletion(now)
	if !ok {
		return false
	}
	return elapsed > threshold
}

// NotDeleted scopes a query to active records. This is the default for
// every list and point read unless the caller asks for deleted records.
func NotDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// OnlyDeleted scopes a query to the trash view.
func OnlyDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", true)
}
