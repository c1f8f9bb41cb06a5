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
	"github.com/loopwork/loopwork/internal/customfield/domain"
	"github.com/loopwork/loopwork/internal/customfield/repository"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	issuerepo "github.com/loopwork/loopwork/internal/issue/repository"
	"github.com/loopwork/loopwork/internal/membership"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	projectrepo "github.com/loopwork/loopwork/internal/project/repository"
	"github.com/loopwork/loopwork/internal/role"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	owner   snowflake.ID
	project *projectdomain.Project
	issue   *issuedomain.Issue
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
		&domain.CustomField{},
		&domain.CustomFieldValue{},
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
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: orgID, Name: "Acme", Slug: "acme", CreatedBy: f.owner,
	}).Error)
	require.NoError(t, db.Create(&orgdomain.OrganizationMember{
		ID: node.Generate(), OrgID: orgID, UserID: f.owner, Role: string(role.OrgOwner),
	}).Error)
	require.NoError(t, db.Create(&workspacedomain.Workspace{
		ID: workspaceID, OrgID: orgID, Name: "Design", Slug: "design", CreatedBy: f.owner,
	}).Error)

	f.project = &projectdomain.Project{
		ID: node.Generate(), OrgID: orgID, WorkspaceID: workspaceID,
		Name: "Site", Key: "SITE", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: f.owner, CreatedBy: f.owner,
	}
	require.NoError(t, db.Create(f.project).Error)
	require.NoError(t, db.Create(&projectdomain.ProjectMember{
		ID: node.Generate(), ProjectID: f.project.ID, UserID: f.owner,
		Role: string(role.ProjectAdmin), AddedBy: f.owner,
	}).Error)

	f.issue = &issuedomain.Issue{
		ID: node.Generate(), ProjectID: f.project.ID, OrgID: orgID, WorkspaceID: workspaceID,
		Key: "SITE-1", Title: "work", Type: issuedomain.TypeTask,
		Status: "todo", Priority: issuedomain.PriorityMedium, ReporterID: f.owner,
	}
	require.NoError(t, db.Create(f.issue).Error)
	return f
}

func TestCreateFieldAndSetValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	field, err := f.svc.CreateField(ctx, f.owner, f.project.ID, domain.CreateFieldRequest{
		Name: "Story size", Type: domain.TypeNumber,
	})
	require.NoError(t, err)
	require.Equal(t, f.project.OrgID, field.OrgID)

	v, err := f.svc.SetValue(ctx, f.owner, f.issue.ID, field.ID, "3.5")
	require.NoError(t, err)
	require.Equal(t, "3.5", v.Value)

	// A second write updates the same row.
	v2, err := f.svc.SetValue(ctx, f.owner, f.issue.ID, field.ID, "5")
	require.NoError(t, err)
	require.Equal(t, v.ID, v2.ID)

	values, err := f.svc.ListValues(ctx, f.owner, f.issue.ID)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, "5", values[0].Value)
}

func TestValueValidationPerType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		req     domain.CreateFieldRequest
		good    string
		bad     string
		message string
	}{
		{domain.CreateFieldRequest{Name: "Effort", Type: domain.TypeNumber}, "8", "eight", "Value must be a number"},
		{domain.CreateFieldRequest{Name: "Due", Type: domain.TypeDate}, "2024-06-15", "June 15", "Value must be a date in YYYY-MM-DD format"},
		{domain.CreateFieldRequest{Name: "Env", Type: domain.TypeSelect, Options: []string{"dev", "prod"}}, "prod", "staging", "Value must be one of the field's options"},
		{domain.CreateFieldRequest{Name: "Flaky", Type: domain.TypeCheckbox}, "true", "yes", "Value must be true or false"},
		{domain.CreateFieldRequest{Name: "Spec", Type: domain.TypeURL}, "https://example.com/doc", "not a url", "Value must be a valid URL"},
		{domain.CreateFieldRequest{Name: "Tags", Type: domain.TypeMultiselect, Options: []string{"a", "b", "c"}}, "a, c", "a, d", "Value must be one of the field's options"},
	}
	for _, tc := range cases {
		field, err := f.svc.CreateField(ctx, f.owner, f.project.ID, tc.req)
		require.NoError(t, err)

		_, err = f.svc.SetValue(ctx, f.owner, f.issue.ID, field.ID, tc.good)
		require.NoError(t, err, "field %s", tc.req.Name)

		_, err = f.svc.SetValue(ctx, f.owner, f.issue.ID, field.ID, tc.bad)
		require.EqualError(t, err, tc.message)
	}
}

func TestRequiredFieldRejectsEmptyValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	field, err := f.svc.CreateField(ctx, f.owner, f.project.ID, domain.CreateFieldRequest{
		Name: "Severity", Type: domain.TypeText, Required: true,
	})
	require.NoError(t, err)

	_, err = f.svc.SetValue(ctx, f.owner, f.issue.ID, field.ID, "  ")
	require.EqualError(t, err, "Value is required")
}

func TestSelectFieldRequiresOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateField(ctx, f.owner, f.project.ID, domain.CreateFieldRequest{
		Name: "Env", Type: domain.TypeSelect,
	})
	require.EqualError(t, err, "Select fields require at least one option")
}

func TestSetValueRejectsForeignProjectField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &projectdomain.Project{
		ID: f.node.Generate(), OrgID: f.project.OrgID, WorkspaceID: f.project.WorkspaceID,
		Name: "Ops", Key: "OPS", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: f.owner, CreatedBy: f.owner,
	}
	require.NoError(t, f.db.Create(other).Error)
	require.NoError(t, f.db.Create(&projectdomain.ProjectMember{
		ID: f.node.Generate(), ProjectID: other.ID, UserID: f.owner,
		Role: string(role.ProjectAdmin), AddedBy: f.owner,
	}).Error)

	field, err := f.svc.CreateField(ctx, f.owner, other.ID, domain.CreateFieldRequest{
		Name: "Env", Type: domain.TypeText,
	})
	require.NoError(t, err)

	_, err = f.svc.SetValue(ctx, f.owner, f.issue.ID, field.ID, "prod")
	require.EqualError(t, err, "Field does not belong to the issue's project")
}

func TestFieldManagementNeedsProjectAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	editor := f.node.Generate()

	require.NoError(t, f.db.Create(&orgdomain.OrganizationMember{
		ID: f.node.Generate(), OrgID: f.project.OrgID, UserID: editor, Role: string(role.OrgMember),
	}).Error)
	require.NoError(t, f.db.Create(&projectdomain.ProjectMember{
		ID: f.node.Generate(), ProjectID: f.project.ID, UserID: editor,
		Role: string(role.ProjectEditor), AddedBy: f.owner,
	}).Error)

	_, err := f.svc.CreateField(ctx, editor, f.project.ID, domain.CreateFieldRequest{
		Name: "Env", Type: domain.TypeText,
	})
	require.True(t, apperror.IsForbidden(err))

	field, err := f.svc.CreateField(ctx, f.owner, f.project.ID, domain.CreateFieldRequest{
		Name: "Env", Type: domain.TypeText,
	})
	require.NoError(t, err)

	// Editors set values but cannot delete the definition.
	_, err = f.svc.SetValue(ctx, editor, f.issue.ID, field.ID, "prod")
	require.NoError(t, err)
	err = f.svc.SoftDeleteField(ctx, editor, field.ID)
	require.True(t, apperror.IsForbidden(err))

	require.NoError(t, f.svc.SoftDeleteField(ctx, f.owner, field.ID))
	fields, err := f.svc.ListFields(ctx, f.owner, f.project.ID)
	require.NoError(t, err)
	require.Empty(t, fields)
}
