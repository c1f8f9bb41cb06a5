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
	"github.com/loopwork/loopwork/internal/document/domain"
	"github.com/loopwork/loopwork/internal/document/repository"
	"github.com/loopwork/loopwork/internal/membership"
	orgdomain "github.com/loopwork/loopwork/internal/organization/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/tenancy"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service

	orgA, orgB snowflake.ID
	workspaceB snowflake.ID
	projectB   snowflake.ID
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
		&projectdomain.Project{},
		&projectdomain.ProjectMember{},
		&domain.Document{},
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

	f := &fixture{db: db, node: node, orgA: node.Generate(), orgB: node.Generate()}
	f.svc = NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repository.NewRepository(db),
		Gate:      gate,
		Validator: tenancy.NewValidator(db),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	})

	creator := node.Generate()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: f.orgA, Name: "Org A", Slug: "org-a", CreatedBy: creator,
	}).Error)
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: f.orgB, Name: "Org B", Slug: "org-b", CreatedBy: creator,
	}).Error)

	f.workspaceB = node.Generate()
	require.NoError(t, db.Create(&workspacedomain.Workspace{
		ID: f.workspaceB, OrgID: f.orgB, Name: "Theirs", Slug: "theirs", CreatedBy: creator,
	}).Error)

	f.projectB = node.Generate()
	require.NoError(t, db.Create(&projectdomain.Project{
		ID: f.projectB, OrgID: f.orgB, WorkspaceID: f.workspaceB,
		Name: "Secret", Key: "SEC", BoardType: projectdomain.BoardTypeKanban,
		OwnerID: creator, CreatedBy: creator,
	}).Error)
	return f
}

func (f *fixture) addMember(t *testing.T, orgID, userID snowflake.ID, r role.Role) {
	t.Helper()
	require.NoError(t, f.db.Create(&orgdomain.OrganizationMember{
		ID: f.node.Generate(), OrgID: orgID, UserID: userID, Role: string(r),
	}).Error)
}

// Members of org A, at every role, must never attach org B's project or
// workspace to an org-A document.
func TestCrossOrgInjectionRejectedForAllRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, r := range []role.Role{role.OrgOwner, role.OrgAdmin, role.OrgMember} {
		user := f.node.Generate()
		f.addMember(t, f.orgA, user, r)

		_, err := f.svc.Create(ctx, user, f.orgA, domain.CreateRequest{
			Title: "notes", ProjectID: &f.projectB,
		})
		require.EqualError(t, err, "Project does not belong to the specified organization", "role %s", r)

		_, err = f.svc.Create(ctx, user, f.orgA, domain.CreateRequest{
			Title: "notes", WorkspaceID: &f.workspaceB,
		})
		require.EqualError(t, err, "Workspace does not belong to the specified organization", "role %s", r)
	}

	// Nothing was written.
	var count int64
	require.NoError(t, f.db.Model(&domain.Document{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateAndListScopedToOrg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	memberA := f.node.Generate()
	memberB := f.node.Generate()
	f.addMember(t, f.orgA, memberA, role.OrgMember)
	f.addMember(t, f.orgB, memberB, role.OrgMember)

	_, err := f.svc.Create(ctx, memberA, f.orgA, domain.CreateRequest{Title: "a-doc"})
	require.NoError(t, err)
	docB, err := f.svc.Create(ctx, memberB, f.orgB, domain.CreateRequest{
		Title: "b-doc", ProjectID: &f.projectB,
	})
	require.NoError(t, err)

	docs, err := f.svc.ListByOrg(ctx, memberA, f.orgA)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "a-doc", docs[0].Title)

	// Cross-org point reads and lists are denied outright.
	_, err = f.svc.Get(ctx, memberA, docB.ID)
	require.True(t, apperror.IsForbidden(err))
	_, err = f.svc.ListByOrg(ctx, memberA, f.orgB)
	require.True(t, apperror.IsForbidden(err))
}

// Documents are private to their creator; sharing them never grants
// other members write access.
func TestDocumentMutationsAreCreatorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.node.Generate()
	other := f.node.Generate()
	f.addMember(t, f.orgA, creator, role.OrgMember)
	f.addMember(t, f.orgA, other, role.OrgAdmin)

	doc, err := f.svc.Create(ctx, creator, f.orgA, domain.CreateRequest{Title: "notes"})
	require.NoError(t, err)

	title := "hijacked"
	_, err = f.svc.Update(ctx, other, doc.ID, domain.UpdateRequest{Title: &title})
	require.EqualError(t, err, "Not authorized to edit this document")

	_, err = f.svc.TogglePublic(ctx, other, doc.ID)
	require.EqualError(t, err, "Not authorized to edit this document")

	err = f.svc.SoftDelete(ctx, other, doc.ID)
	require.EqualError(t, err, "Not authorized to delete this document")

	// The creator retains full control.
	require.NoError(t, f.svc.SoftDelete(ctx, creator, doc.ID))
	err = f.svc.Restore(ctx, other, doc.ID)
	require.EqualError(t, err, "Not authorized to restore this document")
	require.NoError(t, f.svc.Restore(ctx, creator, doc.ID))

	got, err := f.svc.Get(ctx, creator, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "notes", got.Title)
}

func TestPrivateDocumentsHiddenUntilShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.node.Generate()
	peer := f.node.Generate()
	outsider := f.node.Generate()
	f.addMember(t, f.orgA, creator, role.OrgMember)
	f.addMember(t, f.orgA, peer, role.OrgMember)
	f.addMember(t, f.orgB, outsider, role.OrgOwner)

	doc, err := f.svc.Create(ctx, creator, f.orgA, domain.CreateRequest{Title: "draft"})
	require.NoError(t, err)

	// Private: even a fellow org member is turned away.
	_, err = f.svc.Get(ctx, peer, doc.ID)
	require.EqualError(t, err, "Not authorized to access this document")
	docs, err := f.svc.ListByOrg(ctx, peer, f.orgA)
	require.NoError(t, err)
	require.Empty(t, docs)

	shared, err := f.svc.TogglePublic(ctx, creator, doc.ID)
	require.NoError(t, err)
	require.True(t, shared.IsPublic)

	// Shared: visible to org members, still hidden from other orgs.
	got, err := f.svc.Get(ctx, peer, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "draft", got.Title)
	docs, err = f.svc.ListByOrg(ctx, peer, f.orgA)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	_, err = f.svc.Get(ctx, outsider, doc.ID)
	require.True(t, apperror.IsForbidden(err))
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.node.Generate()
	f.addMember(t, f.orgA, member, role.OrgMember)

	doc, err := f.svc.Create(ctx, member, f.orgA, domain.CreateRequest{Title: "notes"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SoftDelete(ctx, member, doc.ID))
	_, err = f.svc.Get(ctx, member, doc.ID)
	require.True(t, apperror.IsNotFound(err))

	require.NoError(t, f.svc.Restore(ctx, member, doc.ID))
	restored, err := f.svc.Get(ctx, member, doc.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)
	require.Nil(t, restored.DeletedAt)
	require.Nil(t, restored.DeletedBy)
}
