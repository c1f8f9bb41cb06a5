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
	"github.com/loopwork/loopwork/internal/sprint/domain"
	"github.com/loopwork/loopwork/internal/sprint/repository"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	orgID   snowflake.ID
	owner   snowflake.ID
	project *projectdomain.Project
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
		&domain.Sprint{},
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

	f := &fixture{db: db, node: node, orgID: node.Generate(), owner: node.Generate()}
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

	workspaceID := node.Generate()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: f.orgID, Name: "Acme", Slug: "acme", CreatedBy: f.owner,
	}).Error)
	require.NoError(t, db.Create(&orgdomain.OrganizationMember{
		ID: node.Generate(), OrgID: f.orgID, UserID: f.owner, Role: string(role.OrgOwner),
	}).Error)
	require.NoError(t, db.Create(&workspacedomain.Workspace{
		ID: workspaceID, OrgID: f.orgID, Name: "Design", Slug: "design", CreatedBy: f.owner,
	}).Error)

	f.project = &projectdomain.Project{
		ID:             node.Generate(),
		OrgID:          f.orgID,
		WorkspaceID:    workspaceID,
		Name:           "Site",
		Key:            "SITE",
		BoardType:      projectdomain.BoardTypeScrum,
		WorkflowStates: datatypes.NewJSONSlice(projectdomain.DefaultWorkflowStates()),
		OwnerID:        f.owner,
		CreatedBy:      f.owner,
	}
	require.NoError(t, db.Create(f.project).Error)
	require.NoError(t, db.Create(&projectdomain.ProjectMember{
		ID: node.Generate(), ProjectID: f.project.ID, UserID: f.owner,
		Role: string(role.ProjectAdmin), AddedBy: f.owner,
	}).Error)
	return f
}

func (f *fixture) createIssue(t *testing.T, sprintID *snowflake.ID, estimatedHours, storyPoints *float64, status string) *issuedomain.Issue {
	t.Helper()
	issue := &issuedomain.Issue{
		ID:             f.node.Generate(),
		ProjectID:      f.project.ID,
		OrgID:          f.orgID,
		WorkspaceID:    f.project.WorkspaceID,
		Key:            fmt.Sprintf("SITE-%d", f.node.Generate()),
		Title:          "work",
		Type:           issuedomain.TypeTask,
		Status:         status,
		Priority:       issuedomain.PriorityMedium,
		ReporterID:     f.owner,
		SprintID:       sprintID,
		EstimatedHours: estimatedHours,
		StoryPoints:    storyPoints,
	}
	require.NoError(t, f.db.Create(issue).Error)
	return issue
}

func TestCreateSprintStartsFuture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sprint, err := f.svc.Create(ctx, f.owner, f.project.ID, domain.CreateRequest{Name: "Sprint 1"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusFuture, sprint.Status)
}

func TestCreateSprintRejectsInvertedDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	_, err := f.svc.Create(ctx, f.owner, f.project.ID, domain.CreateRequest{
		Name: "Sprint 1", StartDate: &start, EndDate: &end,
	})
	require.EqualError(t, err, "End date must be after start date")
}

func TestStartAutoCompletesActiveSprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s1, err := f.svc.Create(ctx, f.owner, f.project.ID, domain.CreateRequest{Name: "Sprint 1"})
	require.NoError(t, err)
	s2, err := f.svc.Create(ctx, f.owner, f.project.ID, domain.CreateRequest{Name: "Sprint 2"})
	require.NoError(t, err)

	s1, err = f.svc.Start(ctx, f.owner, s1.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, s1.Status)

	s2, err = f.svc.Start(ctx, f.owner, s2.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, s2.Status)

	s1, err = f.svc.Get(ctx, f.owner, s1.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, s1.Status)

	// Never two simultaneously active.
	var active int64
	require.NoError(t, f.db.Model(&domain.Sprint{}).
		Where("project_id = ? AND status = ?", f.project.ID, domain.StatusActive).
		Count(&active).Error)
	require.EqualValues(t, 1, active)

	// A completed sprint cannot be restarted.
	_, err = f.svc.Start(ctx, f.owner, s1.ID)
	require.True(t, apperror.IsConflict(err))
}

func TestBurndownWithoutDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sprint, err := f.svc.Create(ctx, f.owner, f.project.ID, domain.CreateRequest{Name: "Sprint 1"})
	require.NoError(t, err)

	five, eight := 5.0, 8.0
	f.createIssue(t, &sprint.ID, &five, nil, "todo")
	f.createIssue(t, &sprint.ID, &eight, nil, "todo")

	burndown, err := f.svc.Burndown(ctx, f.owner, sprint.ID)
	require.NoError(t, err)
	require.Equal(t, 13.0, burndown.TotalPoints)
	require.Equal(t, 0, burndown.TotalDays)
	require.Empty(t, burndown.IdealBurndown)
}

func TestBurndownPrefersStoryPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * 24 * time.Hour)
	sprint, err := f.svc.Create(ctx, f.owner, f.project.ID, domain.CreateRequest{
		Name: "Sprint 1", StartDate: &start, EndDate: &end,
	})
	require.NoError(t, err)

	hours, points := 40.0, 3.0
	f.createIssue(t, &sprint.ID, &hours, &points, "done")
	f.createIssue(t, &sprint.ID, nil, &points, "todo")

	burndown, err := f.svc.Burndown(ctx, f.owner, sprint.ID)
	require.NoError(t, err)
	require.Equal(t, 6.0, burndown.TotalPoints)
	require.Equal(t, 3.0, burndown.CompletedPoints)
	require.Equal(t, 3.0, burndown.RemainingPoints)
	require.Equal(t, 50.0, burndown.PercentComplete)
	require.Equal(t, 10, burndown.TotalDays)
	require.Len(t, burndown.IdealBurndown, 11)
	require.Equal(t, 6.0, burndown.IdealBurndown[0])
	require.Equal(t, 0.0, burndown.IdealBurndown[10])
}
