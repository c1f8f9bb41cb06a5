package softdelete

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsAndRestoreRoundTrip(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	userID := node.Generate()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	d := Fields(userID, now)
	assert.True(t, d.IsSoftDeleted())
	require.NotNil(t, d.DeletedAt)
	assert.Equal(t, now, *d.DeletedAt)
	require.NotNil(t, d.DeletedBy)
	assert.Equal(t, userID, *d.DeletedBy)

	patch := RestorePatch()
	assert.Equal(t, false, patch["is_deleted"])
	assert.Nil(t, patch["deleted_at"])
	assert.Nil(t, patch["deleted_by"])

	// A restored record carries the zero value of Deletable, same as a
	// record that was never deleted.
	restored := Deletable{}
	assert.False(t, restored.IsSoftDeleted())
	_, ok := restored.TimeSinceDeletion(now)
	assert.False(t, ok)
}

func TestIsSoftDeletedStrict(t *testing.T) {
	now := time.Now().UTC()

	assert.False(t, Deletable{}.IsSoftDeleted())
	assert.False(t, Deletable{IsDeleted: false, DeletedAt: &now}.IsSoftDeleted())
	assert.True(t, Deletable{IsDeleted: true}.IsSoftDeleted())
}

func TestTimeSinceDeletion(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	deletedAt := now.Add(-2 * time.Hour)

	elapsed, ok := Deletable{IsDeleted: true, DeletedAt: &deletedAt}.TimeSinceDeletion(now)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Hour, elapsed)

	// Deleted flag without a timestamp yields no duration.
	_, ok = Deletable{IsDeleted: true}.TimeSinceDeletion(now)
	assert.False(t, ok)

	// Timestamp without the flag is not deleted.
	_, ok = Deletable{DeletedAt: &deletedAt}.TimeSinceDeletion(now)
	assert.False(t, ok)
}

func TestEligibleForPermanentDeletionBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	threshold := DefaultRetention

	atThreshold := now.Add(-threshold)
	d := Deletable{IsDeleted: true, DeletedAt: &atThreshold}
	assert.False(t, d.EligibleForPermanentDeletion(now, threshold), "exactly at the threshold is not yet eligible")

	justPast := now.Add(-threshold - time.Millisecond)
	d = Deletable{IsDeleted: true, DeletedAt: &justPast}
	assert.True(t, d.EligibleForPermanentDeletion(now, threshold))

	assert.False(t, Deletable{}.EligibleForPermanentDeletion(now, threshold))
}
