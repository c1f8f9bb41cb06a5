package membership

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/softdelete"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	resolver *Resolver
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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &fixture{db: db, node: node, resolver: NewResolver(db)}
}

func (f *fixture) addOrgMember(t *testing.T, orgID, userID snowflake.ID, r role.Role) {
	t.Helper()
	require.NoError(t, f.db.Create(&orgdomain.OrganizationMember{
		ID:     f.node.Generate(),
		OrgID:  orgID,
		UserID: userID,
		Role:   string(r),
	}).Error)
}

func TestOrganizationRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	member := f.node.Generate()
	stranger := f.node.Generate()
	f.addOrgMember(t, orgID, member, role.OrgAdmin)

	got, ok, err := f.resolver.OrganizationRole(ctx, orgID, member)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, role.OrgAdmin, got)

	_, ok, err = f.resolver.OrganizationRole(ctx, orgID, stranger)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = f.resolver.OrganizationRole(ctx, orgID, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWorkspaceRoleFallbackOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	wsID := f.node.Generate()
	require.NoError(t, f.db.Create(&workspacedomain.Workspace{
		ID: wsID, OrgID: orgID, Name: "Eng", Slug: "eng", CreatedBy: f.node.Generate(),
	}).Error)

	// Org admin without a member record falls back to workspace admin.
	orgAdmin := f.node.Generate()
	f.addOrgMember(t, orgID, orgAdmin, role.OrgAdmin)

	got, ok, err := f.resolver.WorkspaceRole(ctx, wsID, orgAdmin)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, role.WorkspaceAdmin, got)

	// A direct member record wins over the fallback, even when weaker.
	require.NoError(t, f.db.Create(&workspacedomain.WorkspaceMember{
		ID: f.node.Generate(), WorkspaceID: wsID, UserID: orgAdmin, Role: string(role.WorkspaceMember),
	}).Error)

	got, ok, err = f.resolver.WorkspaceRole(ctx, wsID, orgAdmin)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, role.WorkspaceMember, got)

	// Plain org members get nothing.
	orgMember := f.node.Generate()
	f.addOrgMember(t, orgID, orgMember, role.OrgMember)
	_, ok, err = f.resolver.WorkspaceRole(ctx, wsID, orgMember)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWorkspaceRoleIgnoresSoftDeletedMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	wsID := f.node.Generate()
	userID := f.node.Generate()
	require.NoError(t, f.db.Create(&workspacedomain.Workspace{
		ID: wsID, OrgID: orgID, Name: "Eng", Slug: "eng", CreatedBy: userID,
	}).Error)

	now := time.Now().UTC()
	member := workspacedomain.WorkspaceMember{
		ID: f.node.Generate(), WorkspaceID: wsID, UserID: userID, Role: string(role.WorkspaceAdmin),
	}
	member.Deletable = softdelete.Fields(userID, now)
	require.NoError(t, f.db.Create(&member).Error)

	_, ok, err := f.resolver.WorkspaceRole(ctx, wsID, userID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProjectRoleStrategies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	wsID := f.node.Generate()
	teamID := f.node.Generate()
	sharedTeamID := f.node.Generate()
	owner := f.node.Generate()

	project := &projectdomain.Project{
		ID:                f.node.Generate(),
		OrgID:             orgID,
		WorkspaceID:       wsID,
		TeamID:            &teamID,
		SharedWithTeamIDs: []snowflake.ID{sharedTeamID},
		Name:              "Apollo",
		Key:               "APOLLO",
		BoardType:         projectdomain.BoardTypeKanban,
		OwnerID:           owner,
		CreatedBy:         owner,
	}
	require.NoError(t, f.db.Create(project).Error)

	t.Run("owner is admin", func(t *testing.T) {
		got, ok, err := f.resolver.ProjectRole(ctx, project, owner)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, role.ProjectAdmin, got)
	})

	t.Run("direct member record", func(t *testing.T) {
		viewer := f.node.Generate()
		require.NoError(t, f.db.Create(&projectdomain.ProjectMember{
			ID: f.node.Generate(), ProjectID: project.ID, UserID: viewer, Role: string(role.ProjectViewer),
		}).Error)

		got, ok, err := f.resolver.ProjectRole(ctx, project, viewer)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, role.ProjectViewer, got)
	})

	t.Run("owning team lead is admin", func(t *testing.T) {
		lead := f.node.Generate()
		require.NoError(t, f.db.Create(&teamdomain.TeamMember{
			ID: f.node.Generate(), TeamID: teamID, UserID: lead, Role: string(role.TeamLead),
		}).Error)

		got, ok, err := f.resolver.ProjectRole(ctx, project, lead)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, role.ProjectAdmin, got)
	})

	t.Run("owning team member is editor", func(t *testing.T) {
		teammate := f.node.Generate()
		require.NoError(t, f.db.Create(&teamdomain.TeamMember{
			ID: f.node.Generate(), TeamID: teamID, UserID: teammate, Role: string(role.TeamMember),
		}).Error)

		got, ok, err := f.resolver.ProjectRole(ctx, project, teammate)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, role.ProjectEditor, got)
	})

	t.Run("shared team member is viewer", func(t *testing.T) {
		guest := f.node.Generate()
		require.NoError(t, f.db.Create(&teamdomain.TeamMember{
			ID: f.node.Generate(), TeamID: sharedTeamID, UserID: guest, Role: string(role.TeamMember),
		}).Error)

		got, ok, err := f.resolver.ProjectRole(ctx, project, guest)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, role.ProjectViewer, got)
	})

	t.Run("org admin gets no project role", func(t *testing.T) {
		orgAdmin := f.node.Generate()
		f.addOrgMember(t, orgID, orgAdmin, role.OrgAdmin)

		_, ok, err := f.resolver.ProjectRole(ctx, project, orgAdmin)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestProjectReadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orgID := f.node.Generate()
	owner := f.node.Generate()

	private := &projectdomain.Project{
		ID: f.node.Generate(), OrgID: orgID, WorkspaceID: f.node.Generate(),
		Name: "Private", Key: "PRV", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: owner, CreatedBy: owner,
	}
	public := &projectdomain.Project{
		ID: f.node.Generate(), OrgID: orgID, WorkspaceID: private.WorkspaceID,
		Name: "Public", Key: "PUB", BoardType: projectdomain.BoardTypeKanban,
		IsPublic: true, OwnerID: owner, CreatedBy: owner,
	}
	require.NoError(t, f.db.Create(private).Error)
	require.NoError(t, f.db.Create(public).Error)

	orgMember := f.node.Generate()
	f.addOrgMember(t, orgID, orgMember, role.OrgMember)

	readable, err := f.resolver.ProjectReadable(ctx, private, orgMember)
	require.NoError(t, err)
	require.False(t, readable)

	readable, err = f.resolver.ProjectReadable(ctx, public, orgMember)
	require.NoError(t, err)
	require.True(t, readable)

	// Visibility does not leak outside the organization.
	outsider := f.node.Generate()
	readable, err = f.resolver.ProjectReadable(ctx, public, outsider)
	require.NoError(t, err)
	require.False(t, readable)
}
