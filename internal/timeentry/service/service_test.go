package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	issuerepo "github.com/loopwork/loopwork/internal/issue/repository"
	"github.com/loopwork/loopwork/internal/membership"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	projectrepo "github.com/loopwork/loopwork/internal/project/repository"
	"github.com/loopwork/loopwork/internal/role"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	"github.com/loopwork/loopwork/internal/timeentry/domain"
	"github.com/loopwork/loopwork/internal/timeentry/repository"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	svc   domain.Service
	owner snowflake.ID
	issue *issuedomain.Issue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&workspacedomain.Workspace{},
		&workspacedomain.WorkspaceMember{},
		&teamdomain.Team{},
		&teamdomain.TeamMember{},
		&projectdomain.Project{},
		&projectdomain.ProjectMember{},
		&issuedomain.Issue{},
		&domain.TimeEntry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	enforcer, err := authz.NewEnforcer(db)
	require.NoError(t, err)

	gate := authz.NewGate(authz.Params{
		Log:      zap.NewNop(),
		Enforcer: enforcer,
		Resolver: membership.NewResolver(db),
	})

	f := &fixture{db: db, node: node, owner: node.Generate()}
	f.svc = NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Repo:        repository.NewRepository(db),
		IssueRepo:   issuerepo.NewRepository(db),
		ProjectRepo: projectrepo.NewRepository(db),
		Gate:        gate,
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	})

	orgID := node.Generate()
	workspaceID := node.Generate()
	projectID := node.Generate()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: orgID, Name: "Acme", Slug: "acme", CreatedBy: f.owner,
	}).Error)
	require.NoError(t, db.Create(&orgdomain.OrganizationMember{
		ID: node.Generate(), OrgID: orgID, UserID: f.owner, Role: string(role.OrgOwner),
	}).Error)
	require.NoError(t, db.Create(&workspacedomain.Workspace{
		ID: workspaceID, OrgID: orgID, Name: "Design", Slug: "design", CreatedBy: f.owner,
	}).Error)
	require.NoError(t, db.Create(&projectdomain.Project{
		ID: projectID, OrgID: orgID, WorkspaceID: workspaceID,
		Name: "Site", Key: "SITE", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: f.owner, CreatedBy: f.owner,
	}).Error)
	require.NoError(t, db.Create(&projectdomain.ProjectMember{
		ID: node.Generate(), ProjectID: projectID, UserID: f.owner,
		Role: string(role.ProjectAdmin), AddedBy: f.owner,
	}).Error)

	f.issue = &issuedomain.Issue{
		ID: node.Generate(), ProjectID: projectID, OrgID: orgID, WorkspaceID: workspaceID,
		Key: "SITE-1", Title: "work", Type: issuedomain.TypeTask,
		Status: "todo", Priority: issuedomain.PriorityMedium, ReporterID: f.owner,
	}
	require.NoError(t, db.Create(f.issue).Error)
	return f
}

func TestCreateTimeEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	entry, err := f.svc.Create(ctx, f.owner, f.issue.ID, domain.CreateRequest{
		Description: "implementing",
		StartedAt:   start,
		EndedAt:     start.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, entry.Duration())
	require.Equal(t, f.owner, entry.UserID)
}

func TestCreateTimeEntryRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	_, err := f.svc.Create(ctx, f.owner, f.issue.ID, domain.CreateRequest{
		StartedAt: start,
		EndedAt:   start.Add(-time.Minute),
	})
	require.EqualError(t, err, "End time must be after start time")

	// Zero-length entries are rejected too.
	_, err = f.svc.Create(ctx, f.owner, f.issue.ID, domain.CreateRequest{
		StartedAt: start,
		EndedAt:   start,
	})
	require.EqualError(t, err, "End time must be after start time")
}

func TestSoftDeleteOwnEntriesOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.node.Generate()

	var org orgdomain.OrganizationMember
	require.NoError(t, f.db.First(&org).Error)
	require.NoError(t, f.db.Create(&orgdomain.OrganizationMember{
		ID: f.node.Generate(), OrgID: org.OrgID, UserID: other, Role: string(role.OrgMember),
	}).Error)
	require.NoError(t, f.db.Create(&projectdomain.ProjectMember{
		ID: f.node.Generate(), ProjectID: f.issue.ProjectID, UserID: other,
		Role: string(role.ProjectEditor), AddedBy: f.owner,
	}).Error)

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	entry, err := f.svc.Create(ctx, f.owner, f.issue.ID, domain.CreateRequest{
		StartedAt: start, EndedAt: start.Add(time.Hour),
	})
	require.NoError(t, err)

	// An editor cannot delete someone else's entry.
	err = f.svc.SoftDelete(ctx, other, entry.ID)
	require.True(t, apperror.IsForbidden(err))

	// The author can.
	require.NoError(t, f.svc.SoftDelete(ctx, f.owner, entry.ID))
	entries, err := f.svc.ListByIssue(ctx, f.owner, f.issue.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}
