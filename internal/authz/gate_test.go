package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/membership"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type gateFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	gate *Gate
}

func newGateFixture(t *testing.T) *gateFixture {
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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	gate := NewGate(Params{
		Log:      zap.NewNop(),
		Enforcer: enforcer,
		Resolver: membership.NewResolver(db),
	})
	return &gateFixture{db: db, node: node, gate: gate}
}

func (f *gateFixture) addOrgMember(t *testing.T, orgID, userID snowflake.ID, r role.Role) {
	t.Helper()
	require.NoError(t, f.db.Create(&orgdomain.OrganizationMember{
		ID: f.node.Generate(), OrgID: orgID, UserID: userID, Role: string(r),
	}).Error)
}

func TestAuthorizeCapabilityMatrix(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	owner := f.node.Generate()
	admin := f.node.Generate()
	member := f.node.Generate()
	f.addOrgMember(t, orgID, owner, role.OrgOwner)
	f.addOrgMember(t, orgID, admin, role.OrgAdmin)
	f.addOrgMember(t, orgID, member, role.OrgMember)

	require.NoError(t, f.gate.Authorize(ctx, admin, orgID, ObjectWorkspace, ActionWorkspaceCreate))
	require.NoError(t, f.gate.Authorize(ctx, owner, orgID, ObjectOrganization, ActionOrganizationDelete))
	require.NoError(t, f.gate.Authorize(ctx, member, orgID, ObjectOrganization, ActionOrganizationView))

	err := f.gate.Authorize(ctx, member, orgID, ObjectWorkspace, ActionWorkspaceCreate)
	require.True(t, apperror.IsForbidden(err))

	err = f.gate.Authorize(ctx, admin, orgID, ObjectOrganization, ActionOrganizationDelete)
	require.True(t, apperror.IsForbidden(err))

	err = f.gate.Authorize(ctx, 0, orgID, ObjectOrganization, ActionOrganizationView)
	require.True(t, apperror.IsUnauthenticated(err))

	// No cross-tenant bleed: the same user has no standing in another org.
	otherOrg := f.node.Generate()
	err = f.gate.Authorize(ctx, admin, otherOrg, ObjectOrganization, ActionOrganizationView)
	require.True(t, apperror.IsForbidden(err))
}

func TestPublicProjectReadWriteAsymmetry(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	owner := f.node.Generate()
	orgMember := f.node.Generate()
	f.addOrgMember(t, orgID, owner, role.OrgMember)
	f.addOrgMember(t, orgID, orgMember, role.OrgMember)

	project := &projectdomain.Project{
		ID: f.node.Generate(), OrgID: orgID, WorkspaceID: f.node.Generate(),
		Name: "Board", Key: "BRD", BoardType: projectdomain.BoardTypeKanban,
		IsPublic: true, OwnerID: owner, CreatedBy: owner,
	}
	require.NoError(t, f.db.Create(project).Error)

	// Visibility grants read to an org member with no project role...
	require.NoError(t, f.gate.RequireReadProject(ctx, orgMember, project))

	// ...but never write.
	_, err := f.gate.RequireProjectRole(ctx, orgMember, project, role.ProjectEditor)
	require.True(t, apperror.IsForbidden(err))

	_, err = f.gate.RequireProjectRole(ctx, orgMember, project, role.ProjectViewer)
	require.True(t, apperror.IsForbidden(err))
}

func TestRequireProjectDeletionOwnershipOverride(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	creator := f.node.Generate()
	orgAdmin := f.node.Generate()
	projectAdmin := f.node.Generate()
	f.addOrgMember(t, orgID, creator, role.OrgMember)
	f.addOrgMember(t, orgID, orgAdmin, role.OrgAdmin)
	f.addOrgMember(t, orgID, projectAdmin, role.OrgMember)

	project := &projectdomain.Project{
		ID: f.node.Generate(), OrgID: orgID, WorkspaceID: f.node.Generate(),
		Name: "Apollo", Key: "APL", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: creator, CreatedBy: creator,
	}
	require.NoError(t, f.db.Create(project).Error)
	require.NoError(t, f.db.Create(&projectdomain.ProjectMember{
		ID: f.node.Generate(), ProjectID: project.ID, UserID: projectAdmin, Role: string(role.ProjectAdmin),
	}).Error)

	// Creator and org admin are each sufficient on their own.
	require.NoError(t, f.gate.RequireProjectDeletion(ctx, creator, project))
	require.NoError(t, f.gate.RequireProjectDeletion(ctx, orgAdmin, project))

	// A project admin who is neither creator nor org admin is not.
	err := f.gate.RequireProjectDeletion(ctx, projectAdmin, project)
	require.True(t, apperror.IsForbidden(err))
}

func TestRequireWorkspaceDeletion(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	creator := f.node.Generate()
	orgOwner := f.node.Generate()
	plain := f.node.Generate()
	f.addOrgMember(t, orgID, creator, role.OrgMember)
	f.addOrgMember(t, orgID, orgOwner, role.OrgOwner)
	f.addOrgMember(t, orgID, plain, role.OrgMember)

	ws := &workspacedomain.Workspace{
		ID: f.node.Generate(), OrgID: orgID, Name: "Eng", Slug: "eng", CreatedBy: creator,
	}
	require.NoError(t, f.db.Create(ws).Error)

	require.NoError(t, f.gate.RequireWorkspaceDeletion(ctx, creator, ws))
	require.NoError(t, f.gate.RequireWorkspaceDeletion(ctx, orgOwner, ws))

	err := f.gate.RequireWorkspaceDeletion(ctx, plain, ws)
	require.True(t, apperror.IsForbidden(err))

	err = f.gate.RequireWorkspaceDeletion(ctx, 0, ws)
	require.True(t, apperror.IsUnauthenticated(err))
}
