package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loopwork/loopwork/internal/apperror"
	authdomain "github.com/loopwork/loopwork/internal/auth/domain"
	authrepo "github.com/loopwork/loopwork/internal/auth/repository"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/membership"
	notifdomain "github.com/loopwork/loopwork/internal/notification/domain"
	"github.com/loopwork/loopwork/internal/notification/outbox"
	"github.com/loopwork/loopwork/internal/organization/domain"
	"github.com/loopwork/loopwork/internal/organization/repository"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&authdomain.User{},
		&domain.Organization{},
		&domain.OrganizationMember{},
		&domain.OrganizationInvite{},
		&notifdomain.OutboxEvent{},
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

	users, _ := authrepo.New(db)

	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Repo:      repository.NewRepository(db),
		Users:     users,
		Gate:      gate,
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		Publisher: outbox.NewPublisher(node),
	})
	return &fixture{db: db, node: node, svc: svc}
}

func TestCreateOrganizationSlugDeduplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.node.Generate()

	first, err := f.svc.Create(ctx, userID, domain.CreateRequest{Name: "Acme Corp"})
	require.NoError(t, err)
	require.Equal(t, "acme-corp", first.Slug)

	second, err := f.svc.Create(ctx, userID, domain.CreateRequest{Name: "Acme Corp"})
	require.NoError(t, err)
	require.Equal(t, "acme-corp-1", second.Slug)

	third, err := f.svc.Create(ctx, userID, domain.CreateRequest{Name: "Acme Corp"})
	require.NoError(t, err)
	require.Equal(t, "acme-corp-2", third.Slug)
}

func TestCreateOrganizationReservedSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.node.Generate(), domain.CreateRequest{Name: "Admin"})
	require.True(t, apperror.IsValidation(err))
}

func TestCreateOrganizationInsertsOwnerAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.node.Generate()

	org, err := f.svc.Create(ctx, userID, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	members, err := f.svc.ListMembers(ctx, userID, org.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, userID, members[0].UserID)
	require.Equal(t, string(role.OrgOwner), members[0].Role)
}

func TestMemberManagementOwnerInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	admin := f.node.Generate()
	member := f.node.Generate()

	org, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, f.svc.AddMember(ctx, owner, org.ID, admin, string(role.OrgAdmin)))
	require.NoError(t, f.svc.AddMember(ctx, owner, org.ID, member, string(role.OrgMember)))

	// Duplicate add conflicts.
	err = f.svc.AddMember(ctx, owner, org.ID, member, string(role.OrgMember))
	require.True(t, apperror.IsConflict(err))

	// Nobody can remove the owner, not even an admin or the owner.
	err = f.svc.RemoveMember(ctx, admin, org.ID, owner)
	require.EqualError(t, err, "Cannot remove organization owner")
	err = f.svc.RemoveMember(ctx, owner, org.ID, owner)
	require.EqualError(t, err, "Cannot remove organization owner")

	// The owner's role can never be changed.
	err = f.svc.UpdateMemberRole(ctx, owner, org.ID, owner, string(role.OrgMember))
	require.EqualError(t, err, "Cannot change owner role")

	// Role changes are owner-only.
	err = f.svc.UpdateMemberRole(ctx, admin, org.ID, member, string(role.OrgAdmin))
	require.True(t, apperror.IsForbidden(err))
	require.NoError(t, f.svc.UpdateMemberRole(ctx, owner, org.ID, member, string(role.OrgAdmin)))

	// Members cannot manage members.
	err = f.svc.RemoveMember(ctx, member, org.ID, admin)
	require.True(t, apperror.IsForbidden(err))

	// Admins can remove non-owners.
	require.NoError(t, f.svc.RemoveMember(ctx, owner, org.ID, admin))
}

func TestInviteFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()
	invitee := f.node.Generate()

	org, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, f.svc.InviteMembers(ctx, owner, org.ID, []domain.InviteRequest{
		{Email: "dev@example.com", Role: string(role.OrgMember)},
	}))

	// A second pending invite for the same address conflicts.
	err = f.svc.InviteMembers(ctx, owner, org.ID, []domain.InviteRequest{
		{Email: "dev@example.com", Role: string(role.OrgMember)},
	})
	require.EqualError(t, err, "An invitation has already been sent to this email")
	require.True(t, apperror.IsConflict(err))

	var invite domain.OrganizationInvite
	require.NoError(t, f.db.Where("org_id = ?", org.ID).First(&invite).Error)

	// Wrong email cannot accept.
	err = f.svc.AcceptInvite(ctx, invitee, invite.ID, "other@example.com")
	require.True(t, apperror.IsForbidden(err))

	require.NoError(t, f.svc.AcceptInvite(ctx, invitee, invite.ID, "dev@example.com"))

	members, err := f.svc.ListMembers(ctx, owner, org.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	// Accepted invites cannot be re-used.
	err = f.svc.AcceptInvite(ctx, f.node.Generate(), invite.ID, "dev@example.com")
	require.True(t, apperror.IsConflict(err))
}

// Addresses that already have an account are rejected up front; those
// users are added through member management instead.
func TestInviteRejectsExistingUserEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()

	org, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	email := "existing@example.com"
	require.NoError(t, f.db.Create(&authdomain.User{
		ID: f.node.Generate(), Name: "Existing", Email: &email,
	}).Error)

	err = f.svc.InviteMembers(ctx, owner, org.ID, []domain.InviteRequest{
		{Email: "existing@example.com", Role: string(role.OrgMember)},
	})
	require.EqualError(t, err, "A user with this email already exists")
	require.True(t, apperror.IsConflict(err))

	// No invite row was written.
	var count int64
	require.NoError(t, f.db.Model(&domain.OrganizationInvite{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateRegeneratesSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.node.Generate()

	org, err := f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, owner, domain.CreateRequest{Name: "Globex"})
	require.NoError(t, err)

	newName := "Globex"
	updated, err := f.svc.Update(ctx, owner, org.ID, domain.UpdateRequest{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, "Globex", updated.Name)
	require.Equal(t, "globex-1", updated.Slug)
}
