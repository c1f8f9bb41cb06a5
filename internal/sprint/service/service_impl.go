package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/sprint/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	IssueRepo   issuedomain.Repository
	ProjectRepo projectdomain.Repository
	Gate        *authz.Gate
	GenID       *snowflake.Node
	Clock       clock.Clock
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	issueRepo   issuedomain.Repository
	projectRepo projectdomain.Repository
	gate        *authz.Gate
	genID       *snowflake.Node
	clock       clock.Clock
}

func NewService(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("sprint.service"),
		repo:        p.Repo,
		issueRepo:   p.IssueRepo,
		projectRepo: p.ProjectRepo,
		gate:        p.Gate,
		genID:       p.GenID,
		clock:       p.Clock,
	}
}

// Create requires project editor standing. New sprints always start in
// the future state; dates are optional but must form a valid range.
func (s *service) Create(ctx context.Context, userID, projectID snowflake.ID, req domain.CreateRequest) (*domain.Sprint, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "Sprint name is required")
	}
	if req.StartDate != nil && req.EndDate != nil && !req.EndDate.After(*req.StartDate) {
		return nil, apperror.Validation("end_date", "End date must be after start date")
	}

	now := s.clock.Now()
	sprint := &domain.Sprint{
		ID:        s.genID.Generate(),
		ProjectID: project.ID,
		OrgID:     project.OrgID,
		Name:      name,
		Goal:      strings.TrimSpace(req.Goal),
		Status:    domain.StatusFuture,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sprint); err != nil {
		return nil, err
	}
	return sprint, nil
}

func (s *service) Get(ctx context.Context, userID, sprintID snowflake.ID) (*domain.Sprint, error) {
	sprint, project, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return sprint, nil
}

func (s *service) ListByProject(ctx context.Context, userID, projectID snowflake.ID) ([]domain.Sprint, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

func (s *service) Update(ctx context.Context, userID, sprintID snowflake.ID, req domain.UpdateRequest) (*domain.Sprint, error) {
	sprint, project, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}

	start := sprint.StartDate
	end := sprint.EndDate
	if req.StartDate != nil {
		start = req.StartDate
	}
	if req.EndDate != nil {
		end = req.EndDate
	}
	if start != nil && end != nil && !end.After(*start) {
		return nil, apperror.Validation("end_date", "End date must be after start date")
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name", "Sprint name is required")
		}
		fields["name"] = name
	}
	if req.Goal != nil {
		fields["goal"] = strings.TrimSpace(*req.Goal)
	}
	if req.StartDate != nil {
		fields["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		fields["end_date"] = *req.EndDate
	}
	if err := s.repo.UpdateFields(ctx, sprintID, fields); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, sprintID)
}

// Start activates the sprint, auto-completing any sprint currently
// active in the same project; at most one sprint is ever active.
func (s *service) Start(ctx context.Context, userID, sprintID snowflake.ID) (*domain.Sprint, error) {
	sprint, project, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}
	if sprint.Status == domain.StatusActive {
		return nil, apperror.Conflict("Sprint is already active")
	}
	if sprint.Status == domain.StatusCompleted {
		return nil, apperror.Conflict("Sprint is already completed")
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		active, err := repo.FindActive(ctx, sprint.ProjectID)
		if err != nil {
			return err
		}
		for _, current := range active {
			err := repo.UpdateFields(ctx, current.ID, map[string]any{
				"status":     domain.StatusCompleted,
				"updated_at": now,
			})
			if err != nil {
				return err
			}
		}

		fields := map[string]any{
			"status":     domain.StatusActive,
			"updated_at": now,
		}
		if sprint.StartDate == nil {
			fields["start_date"] = now
		}
		return repo.UpdateFields(ctx, sprintID, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, sprintID)
}

func (s *service) Complete(ctx context.Context, userID, sprintID snowflake.ID) (*domain.Sprint, error) {
	sprint, project, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}
	if sprint.Status != domain.StatusActive {
		return nil, apperror.Conflict("Only an active sprint can be completed")
	}

	err = s.repo.UpdateFields(ctx, sprintID, map[string]any{
		"status":     domain.StatusCompleted,
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, sprintID)
}

// Burndown aggregates sprint progress. A sprint without both dates has
// no burndown curve: totalDays 0 and an empty ideal line, not an error.
func (s *service) Burndown(ctx context.Context, userID, sprintID snowflake.ID) (*domain.Burndown, error) {
	sprint, project, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}

	issues, err := s.issueRepo.ListBySprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	doneStates := map[string]bool{}
	for _, state := range project.WorkflowStates {
		if state.Category == projectdomain.CategoryDone {
			doneStates[state.ID] = true
		}
	}

	burndown := &domain.Burndown{
		SprintID:      sprint.ID.String(),
		IdealBurndown: []float64{},
	}
	for i := range issues {
		points := issues[i].Points()
		burndown.TotalPoints += points
		if doneStates[issues[i].Status] {
			burndown.CompletedPoints += points
		}
	}
	burndown.RemainingPoints = burndown.TotalPoints - burndown.CompletedPoints
	if burndown.TotalPoints > 0 {
		burndown.PercentComplete = burndown.CompletedPoints / burndown.TotalPoints * 100
	}

	if sprint.StartDate == nil || sprint.EndDate == nil {
		return burndown, nil
	}

	days := int(sprint.EndDate.Sub(*sprint.StartDate).Hours() / 24)
	if days <= 0 {
		return burndown, nil
	}
	burndown.TotalDays = days
	ideal := make([]float64, days+1)
	for i := 0; i <= days; i++ {
		ideal[i] = burndown.TotalPoints * float64(days-i) / float64(days)
	}
	burndown.IdealBurndown = ideal
	return burndown, nil
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

func (s *service) loadSprint(ctx context.Context, sprintID snowflake.ID) (*domain.Sprint, *projectdomain.Project, error) {
	sprint, err := s.repo.Get(ctx, sprintID)
	if err != nil {
		return nil, nil, err
	}
	if sprint == nil {
		return nil, nil, apperror.NotFound("sprint", sprintID.String())
	}
	project, err := s.loadProject(ctx, sprint.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return sprint, project, nil
}
