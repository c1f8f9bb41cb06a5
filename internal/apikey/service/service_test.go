package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loopwork/loopwork/internal/apikey/domain"
	"github.com/loopwork/loopwork/internal/apikey/repository"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	"github.com/loopwork/loopwork/internal/membership"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	sprintdomain "github.com/loopwork/loopwork/internal/sprint/domain"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	"github.com/loopwork/loopwork/internal/tenancy"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clk    *clock.FakeClock
	svc    domain.Service
	orgID  snowflake.ID
	owner  snowflake.ID
	member snowflake.ID
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
		&sprintdomain.Sprint{},
		&domain.APIKey{},
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

	f := &fixture{
		db:     db,
		node:   node,
		clk:    clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		orgID:  node.Generate(),
		owner:  node.Generate(),
		member: node.Generate(),
	}
	f.svc = NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repository.NewRepository(db),
		Gate:      gate,
		Validator: tenancy.NewValidator(db),
		GenID:     node,
		Clock:     f.clk,
	})

	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: f.orgID, Name: "Acme", Slug: "acme", CreatedBy: f.owner,
	}).Error)
	require.NoError(t, db.Create(&orgdomain.OrganizationMember{
		ID: node.Generate(), OrgID: f.orgID, UserID: f.owner, Role: string(role.OrgOwner),
	}).Error)
	require.NoError(t, db.Create(&orgdomain.OrganizationMember{
		ID: node.Generate(), OrgID: f.orgID, UserID: f.member, Role: string(role.OrgMember),
	}).Error)
	return f
}

func TestCreateAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, raw, err := f.svc.Create(ctx, f.member, f.orgID, domain.CreateRequest{Name: "ci deploys"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, "lw_key_"))
	require.Equal(t, raw[:12], key.Prefix)
	require.True(t, strings.HasPrefix(key.KeyID, "key_"))
	require.Equal(t, []string{"read"}, []string(key.Scopes))
	require.True(t, key.IsActive)

	got, err := f.svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, key.ID, got.ID)
	require.NotNil(t, got.LastUsedAt)

	// The raw secret is never stored.
	var count int64
	require.NoError(t, f.db.Model(&domain.APIKey{}).Where("key_hash = ?", raw).Count(&count).Error)
	require.Zero(t, count)

	_, err = f.svc.Authenticate(ctx, "lw_key_"+strings.Repeat("0", 64))
	require.True(t, apperror.IsUnauthenticated(err))
}

func TestCreateRejectsOutsider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outsider := f.node.Generate()
	_, _, err := f.svc.Create(ctx, outsider, f.orgID, domain.CreateRequest{Name: "nope"})
	require.True(t, apperror.IsForbidden(err))

	_, _, err = f.svc.Create(ctx, 0, f.orgID, domain.CreateRequest{Name: "nope"})
	require.True(t, apperror.IsUnauthenticated(err))
}

func TestCreateProjectScopedKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	workspaceID := f.node.Generate()
	projectID := f.node.Generate()
	require.NoError(t, f.db.Create(&workspacedomain.Workspace{
		ID: workspaceID, OrgID: f.orgID, Name: "Design", Slug: "design", CreatedBy: f.owner,
	}).Error)
	require.NoError(t, f.db.Create(&projectdomain.Project{
		ID: projectID, OrgID: f.orgID, WorkspaceID: workspaceID,
		Name: "Site", Key: "SITE", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: f.owner, CreatedBy: f.owner,
	}).Error)
	require.NoError(t, f.db.Create(&projectdomain.ProjectMember{
		ID: f.node.Generate(), ProjectID: projectID, UserID: f.owner,
		Role: string(role.ProjectAdmin), AddedBy: f.owner,
	}).Error)

	key, _, err := f.svc.Create(ctx, f.owner, f.orgID, domain.CreateRequest{
		Name: "site automation", ProjectID: &projectID, Scopes: []string{"read", "write"},
	})
	require.NoError(t, err)
	require.NotNil(t, key.ProjectID)
	require.Equal(t, projectID, *key.ProjectID)
	require.True(t, key.HasScope("write"))
	require.False(t, key.HasScope("admin"))

	// A project from another organization cannot be referenced.
	otherOrg := f.node.Generate()
	otherWorkspace := f.node.Generate()
	foreignProject := f.node.Generate()
	require.NoError(t, f.db.Create(&orgdomain.Organization{
		ID: otherOrg, Name: "Globex", Slug: "globex", CreatedBy: f.node.Generate(),
	}).Error)
	require.NoError(t, f.db.Create(&workspacedomain.Workspace{
		ID: otherWorkspace, OrgID: otherOrg, Name: "Ops", Slug: "ops", CreatedBy: f.owner,
	}).Error)
	require.NoError(t, f.db.Create(&projectdomain.Project{
		ID: foreignProject, OrgID: otherOrg, WorkspaceID: otherWorkspace,
		Name: "Other", Key: "OTH", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: f.owner, CreatedBy: f.owner,
	}).Error)

	_, _, err = f.svc.Create(ctx, f.owner, f.orgID, domain.CreateRequest{
		Name: "laundered", ProjectID: &foreignProject,
	})
	require.EqualError(t, err, "Project does not belong to the specified organization")
}

func TestRotateKeepsOldKeyForGracePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, oldRaw, err := f.svc.Create(ctx, f.member, f.orgID, domain.CreateRequest{Name: "worker"})
	require.NoError(t, err)

	replacement, newRaw, err := f.svc.Rotate(ctx, f.member, old.KeyID)
	require.NoError(t, err)
	require.NotEqual(t, old.KeyID, replacement.KeyID)
	require.NotNil(t, replacement.RotatedFromKeyID)
	require.Equal(t, old.KeyID, *replacement.RotatedFromKeyID)

	// Both keys authenticate inside the grace window.
	_, err = f.svc.Authenticate(ctx, oldRaw)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, newRaw)
	require.NoError(t, err)

	// After the grace window only the replacement works.
	f.clk.Advance(24*time.Hour + time.Minute)
	_, err = f.svc.Authenticate(ctx, oldRaw)
	require.True(t, apperror.IsUnauthenticated(err))
	_, err = f.svc.Authenticate(ctx, newRaw)
	require.NoError(t, err)

	// Only the key's owner may rotate it.
	_, _, err = f.svc.Rotate(ctx, f.owner, replacement.KeyID)
	require.True(t, apperror.IsForbidden(err))
}

func TestRevokeOwnerOrOrgAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, raw, err := f.svc.Create(ctx, f.member, f.orgID, domain.CreateRequest{Name: "laptop"})
	require.NoError(t, err)

	// Another plain member cannot revoke someone else's key.
	other := f.node.Generate()
	require.NoError(t, f.db.Create(&orgdomain.OrganizationMember{
		ID: f.node.Generate(), OrgID: f.orgID, UserID: other, Role: string(role.OrgMember),
	}).Error)
	err = f.svc.Revoke(ctx, other, key.KeyID)
	require.True(t, apperror.IsForbidden(err))

	// The org owner can.
	require.NoError(t, f.svc.Revoke(ctx, f.owner, key.KeyID))
	_, err = f.svc.Authenticate(ctx, raw)
	require.True(t, apperror.IsUnauthenticated(err))

	err = f.svc.Revoke(ctx, f.owner, key.KeyID)
	require.True(t, apperror.IsConflict(err))

	// A revoked key cannot be rotated either.
	_, _, err = f.svc.Rotate(ctx, f.member, key.KeyID)
	require.True(t, apperror.IsConflict(err))
}

func TestListReturnsOnlyOwnKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, f.member, f.orgID, domain.CreateRequest{Name: "mine"})
	require.NoError(t, err)
	_, _, err = f.svc.Create(ctx, f.owner, f.orgID, domain.CreateRequest{Name: "theirs"})
	require.NoError(t, err)

	keys, err := f.svc.List(ctx, f.member, f.orgID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, "mine", keys[0].Name)
}
