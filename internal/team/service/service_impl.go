package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/membership"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/team/domain"
	"github.com/loopwork/loopwork/internal/tenancy"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Gate      *authz.Gate
	Resolver  *membership.Resolver
	Validator *tenancy.Validator
	GenID     *snowflake.Node
	Clock     clock.Clock
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	gate      *authz.Gate
	resolver  *membership.Resolver
	validator *tenancy.Validator
	genID     *snowflake.Node
	clock     clock.Clock
}

func NewService(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("team.service"),
		repo:      p.Repo,
		gate:      p.Gate,
		resolver:  p.Resolver,
		validator: p.Validator,
		genID:     p.GenID,
		clock:     p.Clock,
	}
}

// Create requires organization admin-or-owner; the workspace must belong
// to the supplied organization. The creator becomes the team lead.
func (s *service) Create(ctx context.Context, userID, orgID, workspaceID snowflake.ID, req domain.CreateRequest) (*domain.Team, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectTeam, authz.ActionTeamCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "Team name is required")
	}

	now := s.clock.Now()
	team := &domain.Team{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		WorkspaceID: workspaceID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.validator.WithTx(tx).WorkspaceInOrganization(ctx, workspaceID, orgID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, team); err != nil {
			return err
		}
		return repo.AddMember(ctx, &domain.TeamMember{
			ID:        s.genID.Generate(),
			TeamID:    team.ID,
			UserID:    userID,
			Role:      string(role.TeamLead),
			AddedBy:   userID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *service) Get(ctx context.Context, userID, teamID snowflake.ID) (*domain.Team, error) {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperror.NotFound("team", teamID.String())
	}
	if _, err := s.gate.RequireTeamRole(ctx, userID, teamID, team.OrgID, role.TeamMember); err != nil {
		return nil, err
	}
	return team, nil
}

// ListByWorkspace is visible to any workspace member.
func (s *service) ListByWorkspace(ctx context.Context, userID, workspaceID snowflake.ID) ([]domain.Team, error) {
	if _, err := s.gate.RequireWorkspaceRole(ctx, userID, workspaceID, role.WorkspaceMember); err != nil {
		return nil, err
	}
	return s.repo.ListByWorkspace(ctx, workspaceID)
}

func (s *service) Update(ctx context.Context, userID, teamID snowflake.ID, req domain.UpdateRequest) (*domain.Team, error) {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperror.NotFound("team", teamID.String())
	}
	if _, err := s.gate.RequireTeamRole(ctx, userID, teamID, team.OrgID, role.TeamLead); err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name", "Team name is required")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if err := s.repo.UpdateFields(ctx, teamID, fields); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, teamID)
}

// Delete is blocked while the team owns projects; reassign them first.
func (s *service) Delete(ctx context.Context, userID, teamID snowflake.ID) error {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return apperror.NotFound("team", teamID.String())
	}
	if _, err := s.gate.RequireTeamRole(ctx, userID, teamID, team.OrgID, role.TeamLead); err != nil {
		return err
	}

	projects, err := s.repo.CountProjects(ctx, teamID)
	if err != nil {
		return err
	}
	if projects > 0 {
		return apperror.Conflict("Cannot delete team with projects. Please reassign projects first.")
	}
	return s.repo.Delete(ctx, teamID)
}

// AddMember requires team lead standing; the target must already belong
// to the team's organization.
func (s *service) AddMember(ctx context.Context, userID, teamID, targetUserID snowflake.ID, memberRole string) error {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return apperror.NotFound("team", teamID.String())
	}
	if _, err := s.gate.RequireTeamRole(ctx, userID, teamID, team.OrgID, role.TeamLead); err != nil {
		return err
	}
	if !role.Valid(role.ScopeTeam, role.Role(memberRole)) {
		return apperror.Validation("role", "Role must be lead or member")
	}

	_, isOrgMember, err := s.resolver.OrganizationRole(ctx, team.OrgID, targetUserID)
	if err != nil {
		return err
	}
	if !isOrgMember {
		return apperror.Validation("user_id", "User must be a member of the organization before joining a team")
	}

	existing, err := s.repo.GetMember(ctx, teamID, targetUserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperror.Conflict("Already a member")
	}

	return s.repo.AddMember(ctx, &domain.TeamMember{
		ID:        s.genID.Generate(),
		TeamID:    teamID,
		UserID:    targetUserID,
		Role:      memberRole,
		AddedBy:   userID,
		CreatedAt: s.clock.Now(),
	})
}

func (s *service) UpdateMemberRole(ctx context.Context, userID, teamID, targetUserID snowflake.ID, memberRole string) error {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return apperror.NotFound("team", teamID.String())
	}
	if _, err := s.gate.RequireTeamRole(ctx, userID, teamID, team.OrgID, role.TeamLead); err != nil {
		return err
	}
	if !role.Valid(role.ScopeTeam, role.Role(memberRole)) {
		return apperror.Validation("role", "Role must be lead or member")
	}

	member, err := s.repo.GetMember(ctx, teamID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperror.NotFound("member", targetUserID.String())
	}
	return s.repo.UpdateMemberRole(ctx, teamID, targetUserID, memberRole)
}

func (s *service) RemoveMember(ctx context.Context, userID, teamID, targetUserID snowflake.ID) error {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return apperror.NotFound("team", teamID.String())
	}
	if _, err := s.gate.RequireTeamRole(ctx, userID, teamID, team.OrgID, role.TeamLead); err != nil {
		return err
	}

	member, err := s.repo.GetMember(ctx, teamID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperror.NotFound("member", targetUserID.String())
	}
	return s.repo.RemoveMember(ctx, teamID, targetUserID)
}

func (s *service) ListMembers(ctx context.Context, userID, teamID snowflake.ID) ([]domain.TeamMember, error) {
	team, err := s.repo.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperror.NotFound("team", teamID.String())
	}
	if _, err := s.gate.RequireTeamRole(ctx, userID, teamID, team.OrgID, role.TeamMember); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, teamID)
}
