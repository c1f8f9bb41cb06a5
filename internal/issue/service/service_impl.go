package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/issue/domain"
	notifdomain "github.com/loopwork/loopwork/internal/notification/domain"
	"github.com/loopwork/loopwork/internal/notification/outbox"
	"github.com/loopwork/loopwork/internal/observability/metrics"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/softdelete"
	"github.com/loopwork/loopwork/internal/tenancy"
	"github.com/loopwork/loopwork/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	ProjectRepo projectdomain.Repository
	Gate        *authz.Gate
	Validator   *tenancy.Validator
	GenID       *snowflake.Node
	Clock       clock.Clock
	Publisher   outbox.Publisher
	Metrics     *metrics.Metrics `optional:"true"`
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	projectRepo projectdomain.Repository
	gate        *authz.Gate
	validator   *tenancy.Validator
	genID       *snowflake.Node
	clock       clock.Clock
	publisher   outbox.Publisher
	metrics     *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("issue.service"),
		repo:        p.Repo,
		projectRepo: p.ProjectRepo,
		gate:        p.Gate,
		validator:   p.Validator,
		genID:       p.GenID,
		clock:       p.Clock,
		publisher:   p.Publisher,
		metrics:     p.Metrics,
	}
}

// Create requires project editor standing. The issue key is minted as
// <PROJECTKEY>-N inside the transaction, and org/workspace/team are
// denormalized from the owning project, never from caller input.
func (s *service) Create(ctx context.Context, userID, projectID snowflake.ID, req domain.CreateRequest) (*domain.Issue, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation("title", "Issue title is required")
	}
	issueType := req.Type
	if issueType == "" {
		issueType = domain.TypeTask
	}
	if !validIssueType(issueType) {
		return nil, apperror.Validation("type", "Unknown issue type")
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, apperror.Validation("priority", "Unknown priority")
	}
	status, err := resolveStatus(project, req.Status)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	issue := &domain.Issue{
		ID:             s.genID.Generate(),
		ProjectID:      project.ID,
		OrgID:          project.OrgID,
		WorkspaceID:    project.WorkspaceID,
		TeamID:         project.TeamID,
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		Type:           issueType,
		Status:         status,
		Priority:       priority,
		AssigneeID:     req.AssigneeID,
		ReporterID:     userID,
		EstimatedHours: req.EstimatedHours,
		StoryPoints:    req.StoryPoints,
		DueDate:        req.DueDate,
		Labels:         datatypes.NewJSONSlice(req.Labels),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if req.SprintID != nil {
			if _, err := s.validator.WithTx(tx).SprintInProject(ctx, *req.SprintID, project.ID); err != nil {
				return err
			}
			issue.SprintID = req.SprintID
		}

		latest, err := repo.LatestKeyNumber(ctx, project.ID, project.Key)
		if err != nil {
			return err
		}
		issue.Key = fmt.Sprintf("%s-%d", project.Key, latest+1)

		if err := repo.Create(ctx, issue); err != nil {
			return err
		}
		if issue.AssigneeID != nil && *issue.AssigneeID != userID {
			return s.publishAssigned(ctx, tx, issue, userID)
		}
		return nil
	})
	if err != nil {
		// Two concurrent creates can mint the same key number; the
		// unique index rejects the loser.
		if db.IsDuplicateKeyErr(err) {
			return nil, apperror.Conflict("Issue key was already taken, please retry")
		}
		return nil, err
	}
	return issue, nil
}

func (s *service) Get(ctx context.Context, userID, issueID snowflake.ID) (*domain.Issue, error) {
	issue, err := s.repo.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, apperror.NotFound("issue", issueID.String())
	}
	project, err := s.loadProject(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *service) ListByProject(ctx context.Context, userID, projectID snowflake.ID, opts domain.ListOptions) ([]domain.Issue, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID, opts.IncludeDeleted)
}

func (s *service) Update(ctx context.Context, userID, issueID snowflake.ID, req domain.UpdateRequest) (*domain.Issue, error) {
	issue, err := s.repo.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, apperror.NotFound("issue", issueID.String())
	}
	project, err := s.loadProject(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperror.Validation("title", "Issue title is required")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Type != nil {
		if !validIssueType(*req.Type) {
			return nil, apperror.Validation("type", "Unknown issue type")
		}
		fields["type"] = *req.Type
	}
	if req.Status != nil {
		status, err := resolveStatus(project, *req.Status)
		if err != nil {
			return nil, err
		}
		fields["status"] = status
	}
	if req.Priority != nil {
		if !validPriority(*req.Priority) {
			return nil, apperror.Validation("priority", "Unknown priority")
		}
		fields["priority"] = *req.Priority
	}
	if req.EstimatedHours != nil {
		fields["estimated_hours"] = *req.EstimatedHours
	}
	if req.StoryPoints != nil {
		fields["story_points"] = *req.StoryPoints
	}
	if req.DueDate != nil {
		fields["due_date"] = *req.DueDate
	}
	if req.Labels != nil {
		fields["labels"] = datatypes.NewJSONSlice(req.Labels)
	}
	if req.ClearAssignee {
		fields["assignee_id"] = nil
	} else if req.AssigneeID != nil {
		fields["assignee_id"] = *req.AssigneeID
	}

	assigneeChanged := req.AssigneeID != nil && !req.ClearAssignee &&
		(issue.AssigneeID == nil || *issue.AssigneeID != *req.AssigneeID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ClearSprint {
			fields["sprint_id"] = nil
		} else if req.SprintID != nil {
			if _, err := s.validator.WithTx(tx).SprintInProject(ctx, *req.SprintID, issue.ProjectID); err != nil {
				return err
			}
			fields["sprint_id"] = *req.SprintID
		}
		if err := s.repo.WithTx(tx).UpdateFields(ctx, issueID, fields); err != nil {
			return err
		}
		if assigneeChanged && *req.AssigneeID != userID {
			updated := *issue
			updated.AssigneeID = req.AssigneeID
			return s.publishAssigned(ctx, tx, &updated, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, issueID)
}

// Move re-homes an issue into another project in the same organization.
// The denormalized IDs and the key are re-derived from the target; a
// cross-organization move is a tenancy violation, not a permission one.
func (s *service) Move(ctx context.Context, userID, issueID, targetProjectID snowflake.ID) (*domain.Issue, error) {
	issue, err := s.repo.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, apperror.NotFound("issue", issueID.String())
	}
	source, err := s.loadProject(ctx, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, source, role.ProjectEditor); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.validator.WithTx(tx).ProjectInOrganization(ctx, targetProjectID, issue.OrgID)
		if err != nil {
			return err
		}
		if target.IsSoftDeleted() {
			return apperror.NotFound("project", targetProjectID.String())
		}
		if _, err := s.gate.RequireProjectRole(ctx, userID, target, role.ProjectEditor); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		latest, err := repo.LatestKeyNumber(ctx, target.ID, target.Key)
		if err != nil {
			return err
		}
		status, err := resolveStatus(target, "")
		if err != nil {
			return err
		}

		return repo.UpdateFields(ctx, issueID, map[string]any{
			"project_id":   target.ID,
			"org_id":       target.OrgID,
			"workspace_id": target.WorkspaceID,
			"team_id":      target.TeamID,
			"key":          fmt.Sprintf("%s-%d", target.Key, latest+1),
			"status":       status,
			"sprint_id":    nil,
			"updated_at":   s.clock.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, issueID)
}

func (s *service) SoftDelete(ctx context.Context, userID, issueID snowflake.ID) error {
	issue, err := s.repo.Get(ctx, issueID)
	if err != nil {
		return err
	}
	if issue == nil {
		return apperror.NotFound("issue", issueID.String())
	}
	project, err := s.loadProject(ctx, issue.ProjectID)
	if err != nil {
		return err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, issueID, softdelete.Patch(userID, s.clock.Now()))
}

func (s *service) Restore(ctx context.Context, userID, issueID snowflake.ID) error {
	issue, err := s.repo.GetIncludingDeleted(ctx, issueID)
	if err != nil {
		return err
	}
	if issue == nil {
		return apperror.NotFound("issue", issueID.String())
	}
	if !issue.IsSoftDeleted() {
		return apperror.Conflict("Issue is not deleted")
	}
	project, err := s.loadProject(ctx, issue.ProjectID)
	if err != nil {
		return err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return err
	}
	fields := softdelete.RestorePatch()
	fields["updated_at"] = s.clock.Now()
	return s.repo.UpdateFields(ctx, issueID, fields)
}

// BulkUpdateStatus applies the status change to every issue the caller
// may edit, silently skipping the rest, and reports how many changed.
func (s *service) BulkUpdateStatus(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID, status string) (int, error) {
	return s.bulkMutate(ctx, userID, issueIDs, "bulk_update_status", func(issue *domain.Issue, project *projectdomain.Project) (map[string]any, error) {
		resolved, err := resolveStatus(project, status)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": resolved}, nil
	})
}

func (s *service) BulkAssign(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID, assigneeID snowflake.ID) (int, error) {
	return s.bulkMutate(ctx, userID, issueIDs, "bulk_assign", func(issue *domain.Issue, project *projectdomain.Project) (map[string]any, error) {
		return map[string]any{"assignee_id": assigneeID}, nil
	})
}

func (s *service) BulkAddLabels(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID, labels []string) (int, error) {
	return s.bulkMutate(ctx, userID, issueIDs, "bulk_add_labels", func(issue *domain.Issue, project *projectdomain.Project) (map[string]any, error) {
		merged := append([]string{}, issue.Labels...)
		for _, label := range labels {
			if !containsLabel(merged, label) {
				merged = append(merged, label)
			}
		}
		return map[string]any{"labels": datatypes.NewJSONSlice(merged)}, nil
	})
}

func (s *service) BulkDelete(ctx context.Context, userID snowflake.ID, issueIDs []snowflake.ID) (int, error) {
	now := s.clock.Now()
	return s.bulkMutate(ctx, userID, issueIDs, "bulk_delete", func(issue *domain.Issue, project *projectdomain.Project) (map[string]any, error) {
		return softdelete.Patch(userID, now), nil
	})
}

// bulkMutate runs the shared per-item template: load, authorize, mutate.
// Unauthorized or missing items are skipped and counted, never fatal.
func (s *service) bulkMutate(
	ctx context.Context,
	userID snowflake.ID,
	issueIDs []snowflake.ID,
	operation string,
	patch func(issue *domain.Issue, project *projectdomain.Project) (map[string]any, error),
) (int, error) {
	issues, err := s.repo.GetMany(ctx, issueIDs)
	if err != nil {
		return 0, err
	}

	projects := map[snowflake.ID]*projectdomain.Project{}
	mutated := 0
	skipped := len(issueIDs) - len(issues)

	for i := range issues {
		issue := &issues[i]

		project, ok := projects[issue.ProjectID]
		if !ok {
			project, err = s.projectRepo.Get(ctx, issue.ProjectID)
			if err != nil {
				return mutated, err
			}
			projects[issue.ProjectID] = project
		}
		if project == nil {
			skipped++
			continue
		}

		if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
			if apperror.IsForbidden(err) || apperror.IsUnauthenticated(err) {
				skipped++
				continue
			}
			return mutated, err
		}

		fields, err := patch(issue, project)
		if err != nil {
			if apperror.IsValidation(err) {
				skipped++
				continue
			}
			return mutated, err
		}
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.UpdateFields(ctx, issue.ID, fields); err != nil {
			return mutated, err
		}
		mutated++
	}

	if skipped > 0 {
		s.metrics.RecordBulkSkipped(ctx, operation, skipped)
	}
	return mutated, nil
}

func (s *service) loadProject(ctx context.Context, projectID snowflake.ID) (*projectdomain.Project, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperror.NotFound("project", projectID.String())
	}
	return project, nil
}

func (s *service) publishAssigned(ctx context.Context, tx *gorm.DB, issue *domain.Issue, actorID snowflake.ID) error {
	return s.publisher.Publish(ctx, tx, outbox.Event{
		OrgID:       issue.OrgID,
		Type:        notifdomain.EventIssueAssigned,
		ActorID:     actorID,
		RecipientID: issue.AssigneeID,
		Payload:     map[string]any{"issue_id": issue.ID.String(), "key": issue.Key},
	})
}

// resolveStatus validates a status against the project's workflow states,
// defaulting to the first todo state when empty.
func resolveStatus(project *projectdomain.Project, status string) (string, error) {
	if status == "" {
		for _, state := range project.WorkflowStates {
			if state.Category == projectdomain.CategoryTodo {
				return state.ID, nil
			}
		}
		return "", apperror.Validation("status", "Project has no todo workflow state")
	}
	for _, state := range project.WorkflowStates {
		if state.ID == status {
			return status, nil
		}
	}
	return "", apperror.Validation("status", "Status does not reference a workflow state of the project")
}

func validIssueType(t string) bool {
	switch t {
	case domain.TypeTask, domain.TypeBug, domain.TypeStory, domain.TypeEpic:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent:
		return true
	}
	return false
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
