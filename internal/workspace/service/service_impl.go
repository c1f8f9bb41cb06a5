package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/membership"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/softdelete"
	"github.com/loopwork/loopwork/internal/workspace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Gate     *authz.Gate
	Resolver *membership.Resolver
	GenID    *snowflake.Node
	Clock    clock.Clock
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	gate     *authz.Gate
	resolver *membership.Resolver
	genID    *snowflake.Node
	clock    clock.Clock
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("workspace.service"),
		repo:     p.Repo,
		gate:     p.Gate,
		resolver: p.Resolver,
		genID:    p.GenID,
		clock:    p.Clock,
	}
}

// Create requires organization admin-or-owner. The slug is unique within
// the organization only; an explicit slug that collides is a conflict,
// a generated one is de-duplicated with an incrementing suffix.
func (s *service) Create(ctx context.Context, userID, orgID snowflake.ID, req domain.CreateRequest) (*domain.Workspace, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectWorkspace, authz.ActionWorkspaceCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "Workspace name is required")
	}

	now := s.clock.Now()
	ws := &domain.Workspace{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		slugValue, err := s.workspaceSlug(ctx, repo, orgID, name, req.Slug, 0)
		if err != nil {
			return err
		}
		ws.Slug = slugValue

		if err := repo.Create(ctx, ws); err != nil {
			return err
		}
		return repo.AddMember(ctx, &domain.WorkspaceMember{
			ID:          s.genID.Generate(),
			WorkspaceID: ws.ID,
			UserID:      userID,
			Role:        string(role.WorkspaceAdmin),
			AddedBy:     userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *service) Get(ctx context.Context, userID, workspaceID snowflake.ID) (*domain.Workspace, error) {
	if _, err := s.gate.RequireWorkspaceRole(ctx, userID, workspaceID, role.WorkspaceMember); err != nil {
		return nil, err
	}
	ws, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, apperror.NotFound("workspace", workspaceID.String())
	}
	return ws, nil
}

func (s *service) ListByOrg(ctx context.Context, userID, orgID snowflake.ID) ([]domain.Workspace, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectWorkspace, authz.ActionWorkspaceView); err != nil {
		return nil, err
	}
	return s.repo.ListByOrg(ctx, orgID)
}

func (s *service) Update(ctx context.Context, userID, workspaceID snowflake.ID, req domain.UpdateRequest) (*domain.Workspace, error) {
	if _, err := s.gate.RequireWorkspaceRole(ctx, userID, workspaceID, role.WorkspaceAdmin); err != nil {
		return nil, err
	}
	ws, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, apperror.NotFound("workspace", workspaceID.String())
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name", "Workspace name is required")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}

	if req.Name != nil {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			slugValue, err := s.workspaceSlug(ctx, repo, ws.OrgID, fields["name"].(string), nil, workspaceID)
			if err != nil {
				return err
			}
			fields["slug"] = slugValue
			return repo.UpdateFields(ctx, workspaceID, fields)
		})
	} else {
		err = s.repo.UpdateFields(ctx, workspaceID, fields)
	}
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, workspaceID)
}

// Delete hard-deletes the workspace. It is a referential-integrity
// guard, not a cascade: the workspace must be emptied of teams and
// projects first.
func (s *service) Delete(ctx context.Context, userID, workspaceID snowflake.ID) error {
	ws, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws == nil {
		return apperror.NotFound("workspace", workspaceID.String())
	}
	if err := s.gate.RequireWorkspaceDeletion(ctx, userID, ws); err != nil {
		return err
	}

	teams, err := s.repo.CountTeams(ctx, workspaceID)
	if err != nil {
		return err
	}
	if teams > 0 {
		return apperror.Conflict("Cannot delete workspace with teams. Please delete or move teams first.")
	}
	projects, err := s.repo.CountProjects(ctx, workspaceID)
	if err != nil {
		return err
	}
	if projects > 0 {
		return apperror.Conflict("Cannot delete workspace with projects. Please delete or move projects first.")
	}

	return s.repo.Delete(ctx, workspaceID)
}

// AddMember requires workspace admin standing; the target user must
// already belong to the owning organization. A previously removed
// member record is revived in place.
func (s *service) AddMember(ctx context.Context, userID, workspaceID, targetUserID snowflake.ID, memberRole string) error {
	if _, err := s.gate.RequireWorkspaceRole(ctx, userID, workspaceID, role.WorkspaceAdmin); err != nil {
		return err
	}
	if !role.Valid(role.ScopeWorkspace, role.Role(memberRole)) {
		return apperror.Validation("role", "Role must be admin or member")
	}

	ws, err := s.repo.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws == nil {
		return apperror.NotFound("workspace", workspaceID.String())
	}

	_, isOrgMember, err := s.resolver.OrganizationRole(ctx, ws.OrgID, targetUserID)
	if err != nil {
		return err
	}
	if !isOrgMember {
		return apperror.Validation("user_id", "User must be a member of the organization before joining a workspace")
	}

	existing, err := s.repo.GetMemberIncludingDeleted(ctx, workspaceID, targetUserID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if existing != nil {
		if !existing.IsSoftDeleted() {
			return apperror.Conflict("Already a member")
		}
		fields := softdelete.RestorePatch()
		fields["role"] = memberRole
		fields["added_by"] = userID
		fields["updated_at"] = now
		return s.repo.UpdateMemberFields(ctx, existing.ID, fields)
	}

	return s.repo.AddMember(ctx, &domain.WorkspaceMember{
		ID:          s.genID.Generate(),
		WorkspaceID: workspaceID,
		UserID:      targetUserID,
		Role:        memberRole,
		AddedBy:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// RemoveMember soft-deletes the membership record.
func (s *service) RemoveMember(ctx context.Context, userID, workspaceID, targetUserID snowflake.ID) error {
	if _, err := s.gate.RequireWorkspaceRole(ctx, userID, workspaceID, role.WorkspaceAdmin); err != nil {
		return err
	}
	member, err := s.repo.GetMember(ctx, workspaceID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperror.NotFound("member", targetUserID.String())
	}
	fields := softdelete.Patch(userID, s.clock.Now())
	return s.repo.UpdateMemberFields(ctx, member.ID, fields)
}

func (s *service) ListMembers(ctx context.Context, userID, workspaceID snowflake.ID) ([]domain.WorkspaceMember, error) {
	if _, err := s.gate.RequireWorkspaceRole(ctx, userID, workspaceID, role.WorkspaceMember); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, workspaceID)
}

// workspaceSlug resolves the final slug inside the creation/rename
// transaction. Explicit slugs conflict instead of auto-incrementing.
func (s *service) workspaceSlug(ctx context.Context, repo domain.Repository, orgID snowflake.ID, name string, explicit *string, excludeID snowflake.ID) (string, error) {
	if explicit != nil {
		candidate := slug.Make(strings.TrimSpace(*explicit))
		if candidate == "" {
			return "", apperror.Validation("slug", "Slug is invalid")
		}
		exists, err := repo.SlugExists(ctx, orgID, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if exists {
			return "", apperror.Conflict("A workspace with this slug already exists")
		}
		return candidate, nil
	}

	base := slug.Make(name)
	candidate := base
	for counter := 1; ; counter++ {
		exists, err := repo.SlugExists(ctx, orgID, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}
