package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	notifdomain "github.com/loopwork/loopwork/internal/notification/domain"
	"github.com/loopwork/loopwork/internal/notification/outbox"
	"github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/softdelete"
	"github.com/loopwork/loopwork/internal/tenancy"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Gate      *authz.Gate
	Validator *tenancy.Validator
	GenID     *snowflake.Node
	Clock     clock.Clock
	Publisher outbox.Publisher
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	gate      *authz.Gate
	validator *tenancy.Validator
	genID     *snowflake.Node
	clock     clock.Clock
	publisher outbox.Publisher
}

func NewService(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("project.service"),
		repo:      p.Repo,
		gate:      p.Gate,
		validator: p.Validator,
		genID:     p.GenID,
		clock:     p.Clock,
		publisher: p.Publisher,
	}
}

// Create requires only organization membership. The key is uppercased and
// globally unique; the creator becomes owner and admin member in the same
// transaction.
func (s *service) Create(ctx context.Context, userID, orgID, workspaceID snowflake.ID, req domain.CreateRequest) (*domain.Project, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectProject, authz.ActionProjectCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "Project name is required")
	}
	key := strings.ToUpper(strings.TrimSpace(req.Key))
	if key == "" {
		return nil, apperror.Validation("key", "Project key is required")
	}

	boardType := req.BoardType
	if boardType == "" {
		boardType = domain.BoardTypeKanban
	}
	if boardType != domain.BoardTypeKanban && boardType != domain.BoardTypeScrum {
		return nil, apperror.Validation("board_type", "Board type must be kanban or scrum")
	}

	states := req.WorkflowStates
	if len(states) == 0 {
		states = domain.DefaultWorkflowStates()
	}
	if err := validateWorkflowStates(states); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	project := &domain.Project{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		WorkspaceID:    workspaceID,
		TeamID:         req.TeamID,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		Key:            key,
		BoardType:      boardType,
		WorkflowStates: datatypes.NewJSONSlice(states),
		IsPublic:       req.IsPublic,
		OwnerID:        userID,
		CreatedBy:      userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		validator := s.validator.WithTx(tx)
		if _, err := validator.WorkspaceInOrganization(ctx, workspaceID, orgID); err != nil {
			return err
		}
		if req.TeamID != nil {
			if _, err := validator.TeamInWorkspace(ctx, *req.TeamID, workspaceID); err != nil {
				return err
			}
		}

		repo := s.repo.WithTx(tx)
		exists, err := repo.KeyExists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return apperror.Conflict("Project key already exists")
		}

		if err := repo.Create(ctx, project); err != nil {
			return err
		}
		return repo.AddMember(ctx, &domain.ProjectMember{
			ID:        s.genID.Generate(),
			ProjectID: project.ID,
			UserID:    userID,
			Role:      string(role.ProjectAdmin),
			AddedBy:   userID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Get is a point read: soft-deleted projects read as not found, and
// unreadable projects error instead of filtering.
func (s *service) Get(ctx context.Context, userID, projectID snowflake.ID) (*domain.Project, error) {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperror.NotFound("project", projectID.String())
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return project, nil
}

// ListByOrg silently filters out projects the caller cannot read.
func (s *service) ListByOrg(ctx context.Context, userID, orgID snowflake.ID) ([]domain.Project, error) {
	projects, err := s.repo.ListByOrg(ctx, orgID, false)
	if err != nil {
		return nil, err
	}
	visible := make([]domain.Project, 0, len(projects))
	for i := range projects {
		readable, err := s.gate.CanReadProject(ctx, userID, &projects[i])
		if err != nil {
			return nil, err
		}
		if readable {
			visible = append(visible, projects[i])
		}
	}
	return visible, nil
}

func (s *service) Update(ctx context.Context, userID, projectID snowflake.ID, req domain.UpdateRequest) (*domain.Project, error) {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperror.NotFound("project", projectID.String())
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name", "Project name is required")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.BoardType != nil {
		if *req.BoardType != domain.BoardTypeKanban && *req.BoardType != domain.BoardTypeScrum {
			return nil, apperror.Validation("board_type", "Board type must be kanban or scrum")
		}
		fields["board_type"] = *req.BoardType
	}
	if len(req.WorkflowStates) > 0 {
		if err := validateWorkflowStates(req.WorkflowStates); err != nil {
			return nil, err
		}
		fields["workflow_states"] = datatypes.NewJSONSlice(req.WorkflowStates)
	}
	if req.IsPublic != nil {
		fields["is_public"] = *req.IsPublic
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		validator := s.validator.WithTx(tx)
		if req.TeamID != nil {
			if _, err := validator.TeamInWorkspace(ctx, *req.TeamID, project.WorkspaceID); err != nil {
				return err
			}
			fields["team_id"] = *req.TeamID
		}
		if req.SharedWithTeamIDs != nil {
			for _, teamID := range req.SharedWithTeamIDs {
				if _, err := validator.TeamInOrganization(ctx, teamID, project.OrgID); err != nil {
					return err
				}
			}
			fields["shared_with_team_ids"] = datatypes.NewJSONSlice(req.SharedWithTeamIDs)
		}
		return s.repo.WithTx(tx).UpdateFields(ctx, projectID, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, projectID)
}

// SoftDelete marks the project deleted. Only the creator/owner or an
// organization admin-or-owner may delete.
func (s *service) SoftDelete(ctx context.Context, userID, projectID snowflake.ID) error {
	project, err := s.repo.GetIncludingDeleted(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperror.NotFound("project", projectID.String())
	}
	if err := s.gate.RequireProjectDeletion(ctx, userID, project); err != nil {
		return err
	}
	if project.IsSoftDeleted() {
		return apperror.Conflict("Project is already deleted")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := softdelete.Patch(userID, s.clock.Now())
		if err := s.repo.WithTx(tx).UpdateFields(ctx, projectID, fields); err != nil {
			return err
		}
		owner := project.OwnerID
		return s.publisher.Publish(ctx, tx, outbox.Event{
			OrgID:       project.OrgID,
			Type:        notifdomain.EventProjectDeleted,
			ActorID:     userID,
			RecipientID: &owner,
			Payload:     map[string]any{"project_id": project.ID.String(), "key": project.Key},
		})
	})
}

// Restore clears the deletion markers; a restored project is
// indistinguishable from one that was never deleted.
func (s *service) Restore(ctx context.Context, userID, projectID snowflake.ID) error {
	project, err := s.repo.GetIncludingDeleted(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperror.NotFound("project", projectID.String())
	}
	if err := s.gate.RequireProjectDeletion(ctx, userID, project); err != nil {
		return err
	}
	if !project.IsSoftDeleted() {
		return apperror.Conflict("Project is not deleted")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := softdelete.RestorePatch()
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.WithTx(tx).UpdateFields(ctx, projectID, fields); err != nil {
			return err
		}
		owner := project.OwnerID
		return s.publisher.Publish(ctx, tx, outbox.Event{
			OrgID:       project.OrgID,
			Type:        notifdomain.EventProjectRestored,
			ActorID:     userID,
			RecipientID: &owner,
			Payload:     map[string]any{"project_id": project.ID.String(), "key": project.Key},
		})
	})
}

// AddMember requires project admin standing. A previously removed member
// record is revived in place.
func (s *service) AddMember(ctx context.Context, userID, projectID, targetUserID snowflake.ID, memberRole string) error {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperror.NotFound("project", projectID.String())
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
		return err
	}
	if !role.Valid(role.ScopeProject, role.Role(memberRole)) {
		return apperror.Validation("role", "Role must be admin, editor or viewer")
	}

	existing, err := s.repo.GetMemberIncludingDeleted(ctx, projectID, targetUserID)
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

	return s.repo.AddMember(ctx, &domain.ProjectMember{
		ID:        s.genID.Generate(),
		ProjectID: projectID,
		UserID:    targetUserID,
		Role:      memberRole,
		AddedBy:   userID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// UpdateMemberRole can never touch the project owner's record.
func (s *service) UpdateMemberRole(ctx context.Context, userID, projectID, targetUserID snowflake.ID, memberRole string) error {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperror.NotFound("project", projectID.String())
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
		return err
	}
	if !role.Valid(role.ScopeProject, role.Role(memberRole)) {
		return apperror.Validation("role", "Role must be admin, editor or viewer")
	}
	if targetUserID == project.OwnerID || targetUserID == project.CreatedBy {
		return apperror.ForbiddenMessage("Cannot change project owner's role")
	}

	member, err := s.repo.GetMember(ctx, projectID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperror.NotFound("member", targetUserID.String())
	}
	fields := map[string]any{"role": memberRole, "updated_at": s.clock.Now()}
	return s.repo.UpdateMemberFields(ctx, member.ID, fields)
}

// RemoveMember soft-deletes the membership record. The owner can never be
// removed, by anyone.
func (s *service) RemoveMember(ctx context.Context, userID, projectID, targetUserID snowflake.ID) error {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperror.NotFound("project", projectID.String())
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
		return err
	}
	if targetUserID == project.OwnerID || targetUserID == project.CreatedBy {
		return apperror.ForbiddenMessage("Cannot remove project owner")
	}

	member, err := s.repo.GetMember(ctx, projectID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperror.NotFound("member", targetUserID.String())
	}
	return s.repo.UpdateMemberFields(ctx, member.ID, softdelete.Patch(userID, s.clock.Now()))
}

// ListMembers is membership-gated even on public projects; isPublic is a
// visibility flag, not an access grant.
func (s *service) ListMembers(ctx context.Context, userID, projectID snowflake.ID) ([]domain.ProjectMember, error) {
	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperror.NotFound("project", projectID.String())
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectViewer); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}

// validateWorkflowStates requires at least one state per category so
// every issue status has a column to land in.
func validateWorkflowStates(states []domain.WorkflowState) error {
	seen := map[string]bool{}
	for _, state := range states {
		switch state.Category {
		case domain.CategoryTodo, domain.CategoryInProgress, domain.CategoryDone:
			seen[state.Category] = true
		default:
			return apperror.Validation("workflow_states", "Unknown workflow state category")
		}
		if strings.TrimSpace(state.ID) == "" || strings.TrimSpace(state.Name) == "" {
			return apperror.Validation("workflow_states", "Workflow states need an id and a name")
		}
	}
	for _, category := range []string{domain.CategoryTodo, domain.CategoryInProgress, domain.CategoryDone} {
		if !seen[category] {
			return apperror.Validation("workflow_states", "Workflow states must cover todo, inprogress and done")
		}
	}
	return nil
}
