package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	authdomain "github.com/loopwork/loopwork/internal/auth/domain"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	notifdomain "github.com/loopwork/loopwork/internal/notification/domain"
	"github.com/loopwork/loopwork/internal/notification/outbox"
	"github.com/loopwork/loopwork/internal/organization/domain"
	"github.com/loopwork/loopwork/internal/role"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Users     authdomain.Repository
	Gate      *authz.Gate
	GenID     *snowflake.Node
	Clock     clock.Clock
	Publisher outbox.Publisher
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	users     authdomain.Repository
	gate      *authz.Gate
	genID     *snowflake.Node
	clock     clock.Clock
	publisher outbox.Publisher
}

func NewService(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("organization.service"),
		repo:      p.Repo,
		users:     p.Users,
		gate:      p.Gate,
		genID:     p.GenID,
		clock:     p.Clock,
		publisher: p.Publisher,
	}
}

// Create inserts the organization and its owner member record in one
// transaction; an organization can never exist without an owner.
func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateRequest) (*domain.Organization, error) {
	if userID == 0 {
		return nil, apperror.Unauthenticated()
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "Organization name is required")
	}

	now := s.clock.Now()
	org := &domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		slugValue, err := s.uniqueSlug(ctx, repo, name, 0)
		if err != nil {
			return err
		}
		org.Slug = slugValue

		if err := repo.Create(ctx, org); err != nil {
			return err
		}
		return repo.AddMember(ctx, &domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    userID,
			Role:      string(role.OrgOwner),
			AddedBy:   userID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

func (s *service) Get(ctx context.Context, userID, orgID snowflake.ID) (*domain.Organization, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectOrganization, authz.ActionOrganizationView); err != nil {
		return nil, err
	}
	org, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, apperror.NotFound("organization", orgID.String())
	}
	return org, nil
}

func (s *service) GetBySlug(ctx context.Context, userID snowflake.ID, slugValue string) (*domain.Organization, error) {
	org, err := s.repo.GetBySlug(ctx, strings.TrimSpace(slugValue))
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, apperror.NotFound("organization", slugValue)
	}
	if err := s.gate.Authorize(ctx, userID, org.ID, authz.ObjectOrganization, authz.ActionOrganizationView); err != nil {
		return nil, err
	}
	return org, nil
}

// Update renames the organization; the slug is regenerated from the new
// name and de-duplicated against every other organization.
func (s *service) Update(ctx context.Context, userID, orgID snowflake.ID, req domain.UpdateRequest) (*domain.Organization, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectOrganization, authz.ActionOrganizationUpdate); err != nil {
		return nil, err
	}

	org, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, apperror.NotFound("organization", orgID.String())
	}

	if req.Name == nil {
		return org, nil
	}
	name := strings.TrimSpace(*req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "Organization name is required")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		slugValue, err := s.uniqueSlug(ctx, repo, name, orgID)
		if err != nil {
			return err
		}
		return repo.UpdateFields(ctx, orgID, map[string]any{
			"name":       name,
			"slug":       slugValue,
			"updated_at": s.clock.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, orgID)
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.ListItem, error) {
	if userID == 0 {
		return nil, apperror.Unauthenticated()
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListMembers(ctx context.Context, userID, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectOrganization, authz.ActionOrganizationView); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, orgID)
}

// AddMember adds an existing user directly. Owners cannot be minted
// this way; ownership is only created with the organization itself.
func (s *service) AddMember(ctx context.Context, userID, orgID, targetUserID snowflake.ID, memberRole string) error {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectOrganization, authz.ActionMemberManage); err != nil {
		return err
	}
	if memberRole != string(role.OrgAdmin) && memberRole != string(role.OrgMember) {
		return apperror.Validation("role", "Role must be admin or member")
	}

	existing, err := s.repo.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperror.Conflict("User is already a member of this organization")
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AddMember(ctx, &domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			UserID:    targetUserID,
			Role:      memberRole,
			AddedBy:   userID,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, tx, outbox.Event{
			OrgID:       orgID,
			Type:        notifdomain.EventMemberAdded,
			ActorID:     userID,
			RecipientID: &targetUserID,
			Payload:     map[string]any{"role": memberRole},
		})
	})
}

// UpdateMemberRole is owner-only. The owner's own record can never be
// re-roled.
func (s *service) UpdateMemberRole(ctx context.Context, userID, orgID, targetUserID snowflake.ID, memberRole string) error {
	if _, err := s.gate.RequireOrganizationRole(ctx, userID, orgID, role.OrgOwner); err != nil {
		return err
	}
	if !role.Valid(role.ScopeOrganization, role.Role(memberRole)) {
		return apperror.Validation("role", "Unknown role")
	}

	member, err := s.repo.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperror.NotFound("member", targetUserID.String())
	}
	if member.Role == string(role.OrgOwner) {
		return apperror.ForbiddenMessage("Cannot change owner role")
	}
	if memberRole == string(role.OrgOwner) {
		return apperror.Validation("role", "Role must be admin or member")
	}
	return s.repo.UpdateMemberRole(ctx, orgID, targetUserID, memberRole)
}

// RemoveMember requires admin standing. The owner can never be removed,
// by anyone, including themselves.
func (s *service) RemoveMember(ctx context.Context, userID, orgID, targetUserID snowflake.ID) error {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectOrganization, authz.ActionMemberManage); err != nil {
		return err
	}

	member, err := s.repo.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperror.NotFound("member", targetUserID.String())
	}
	if member.Role == string(role.OrgOwner) {
		return apperror.ForbiddenMessage("Cannot remove organization owner")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.RemoveMember(ctx, orgID, targetUserID); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, tx, outbox.Event{
			OrgID:       orgID,
			Type:        notifdomain.EventMemberRemoved,
			ActorID:     userID,
			RecipientID: &targetUserID,
		})
	})
}

func (s *service) InviteMembers(ctx context.Context, userID, orgID snowflake.ID, invites []domain.InviteRequest) error {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectOrganization, authz.ActionOrganizationInvite); err != nil {
		return err
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, invite := range invites {
			email, err := normalizeEmail(invite.Email)
			if err != nil {
				return apperror.Validation("email", "Invalid email address")
			}
			if invite.Role != string(role.OrgAdmin) && invite.Role != string(role.OrgMember) {
				return apperror.Validation("role", "Role must be admin or member")
			}
			// Existing accounts join through member management, not invites.
			existing, err := s.users.FindByEmail(ctx, email)
			if err != nil && !errors.Is(err, authdomain.ErrUserNotFound) {
				return err
			}
			if existing != nil {
				return apperror.Conflict("A user with this email already exists")
			}
			pending, err := repo.FindPendingInvite(ctx, orgID, email)
			if err != nil {
				return err
			}
			if pending != nil {
				return apperror.Conflict("An invitation has already been sent to this email")
			}
			if err := repo.CreateInvite(ctx, &domain.OrganizationInvite{
				ID:        s.genID.Generate(),
				OrgID:     orgID,
				Email:     email,
				Role:      invite.Role,
				Status:    domain.InviteStatusPending,
				InvitedBy: userID,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
			if err := s.publisher.Publish(ctx, tx, outbox.Event{
				OrgID:   orgID,
				Type:    notifdomain.EventInviteCreated,
				ActorID: userID,
				Payload: map[string]any{"email": email, "role": invite.Role},
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// AcceptInvite turns a pending invite into a member record. The
// accepting user's email must match the invite.
func (s *service) AcceptInvite(ctx context.Context, userID snowflake.ID, inviteID snowflake.ID, email string) error {
	if userID == 0 {
		return apperror.Unauthenticated()
	}

	invite, err := s.repo.GetInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite == nil {
		return apperror.NotFound("invite", inviteID.String())
	}
	if invite.Status != domain.InviteStatusPending {
		return apperror.Conflict("Invite is no longer pending")
	}
	normalized, err := normalizeEmail(email)
	if err != nil || invite.Email != normalized {
		return apperror.ForbiddenMessage("This invite was issued to a different email address")
	}

	existing, err := s.repo.GetMember(ctx, invite.OrgID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperror.Conflict("User is already a member of this organization")
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AddMember(ctx, &domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     invite.OrgID,
			UserID:    userID,
			Role:      invite.Role,
			AddedBy:   invite.InvitedBy,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := repo.UpdateInviteStatus(ctx, invite.ID, domain.InviteStatusAccepted, now); err != nil {
			return err
		}
		inviter := invite.InvitedBy
		return s.publisher.Publish(ctx, tx, outbox.Event{
			OrgID:       invite.OrgID,
			Type:        notifdomain.EventInviteAccepted,
			ActorID:     userID,
			RecipientID: &inviter,
		})
	})
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
