package cleanup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/config"
	customfielddomain "github.com/loopwork/loopwork/internal/customfield/domain"
	documentdomain "github.com/loopwork/loopwork/internal/document/domain"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/softdelete"
	timeentrydomain "github.com/loopwork/loopwork/internal/timeentry/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSweeper(t *testing.T) (*Sweeper, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&workspacedomain.WorkspaceMember{},
		&projectdomain.Project{},
		&projectdomain.ProjectMember{},
		&issuedomain.Issue{},
		&documentdomain.Document{},
		&timeentrydomain.TimeEntry{},
		&customfielddomain.CustomField{},
		&customfielddomain.CustomFieldValue{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder, err := config.NewRetentionConfigHolder()
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	sweeper := NewSweeper(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Config: holder,
		Clock:  clk,
	})
	return sweeper, db, node, clk
}

func deletedIssue(node *snowflake.Node, key string, deletedAt time.Time) *issuedomain.Issue {
	by := node.Generate()
	return &issuedomain.Issue{
		ID: node.Generate(), ProjectID: node.Generate(), OrgID: node.Generate(),
		WorkspaceID: node.Generate(), Key: key,
		Title: "gone", Type: issuedomain.TypeTask, Status: "todo",
		Priority: issuedomain.PriorityMedium, ReporterID: by,
		Deletable: softdelete.Fields(by, deletedAt),
	}
}

func TestSweepPurgesOnlyBeyondRetention(t *testing.T) {
	sweeper, db, node, clk := newSweeper(t)
	ctx := context.Background()
	now := clk.Now()
	threshold := config.DefaultRetentionConfig().Threshold()

	// Exactly at the boundary: retention has not strictly elapsed.
	atBoundary := deletedIssue(node, "X-1", now.Add(-threshold))
	// One millisecond past the boundary: eligible.
	pastBoundary := deletedIssue(node, "X-2", now.Add(-threshold-time.Millisecond))
	// Recently deleted and never deleted: untouched.
	recent := deletedIssue(node, "X-3", now.Add(-time.Hour))
	live := deletedIssue(node, "X-4", now)
	live.Deletable = softdelete.Deletable{}

	for _, issue := range []*issuedomain.Issue{atBoundary, pastBoundary, recent, live} {
		require.NoError(t, db.Create(issue).Error)
	}

	purged, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, purged)

	var remaining []issuedomain.Issue
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 3)
	for _, issue := range remaining {
		require.NotEqual(t, pastBoundary.ID, issue.ID)
	}
}

func TestSweepCoversAllDeletableTables(t *testing.T) {
	sweeper, db, node, clk := newSweeper(t)
	ctx := context.Background()
	expired := clk.Now().Add(-config.DefaultRetentionConfig().Threshold() - time.Hour)
	by := node.Generate()

	require.NoError(t, db.Create(&projectdomain.Project{
		ID: node.Generate(), OrgID: node.Generate(), WorkspaceID: node.Generate(),
		Name: "Old", Key: "OLD", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: by, CreatedBy: by,
		Deletable: softdelete.Fields(by, expired),
	}).Error)
	require.NoError(t, db.Create(&projectdomain.ProjectMember{
		ID: node.Generate(), ProjectID: node.Generate(), UserID: by, AddedBy: by,
		Role:      "viewer",
		Deletable: softdelete.Fields(by, expired),
	}).Error)
	require.NoError(t, db.Create(&workspacedomain.WorkspaceMember{
		ID: node.Generate(), WorkspaceID: node.Generate(), UserID: by, AddedBy: by,
		Role:      "member",
		Deletable: softdelete.Fields(by, expired),
	}).Error)
	require.NoError(t, db.Create(&documentdomain.Document{
		ID: node.Generate(), OrgID: node.Generate(), Title: "Old doc", CreatedBy: by,
		Deletable: softdelete.Fields(by, expired),
	}).Error)
	require.NoError(t, db.Create(&timeentrydomain.TimeEntry{
		ID: node.Generate(), IssueID: node.Generate(), ProjectID: node.Generate(),
		UserID: by, StartedAt: expired, EndedAt: expired.Add(time.Hour),
		Deletable: softdelete.Fields(by, expired),
	}).Error)
	require.NoError(t, db.Create(&customfielddomain.CustomField{
		ID: node.Generate(), OrgID: node.Generate(), ProjectID: node.Generate(),
		Name: "Old field", Type: customfielddomain.TypeText, CreatedBy: by,
		Deletable: softdelete.Fields(by, expired),
	}).Error)
	require.NoError(t, db.Create(&customfielddomain.CustomFieldValue{
		ID: node.Generate(), FieldID: node.Generate(), IssueID: node.Generate(),
		ProjectID: node.Generate(), Value: "stale",
		Deletable: softdelete.Fields(by, expired),
	}).Error)

	purged, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, purged)

	for _, model := range []any{
		&projectdomain.Project{}, &projectdomain.ProjectMember{},
		&workspacedomain.WorkspaceMember{}, &documentdomain.Document{},
		&timeentrydomain.TimeEntry{},
		&customfielddomain.CustomField{}, &customfielddomain.CustomFieldValue{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Zero(t, count, "expected %T purged", model)
	}
}
