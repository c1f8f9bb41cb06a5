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
	"github.com/loopwork/loopwork/internal/softdelete"
	"github.com/loopwork/loopwork/internal/timeentry/domain"
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
		log:         p.Log.Named("timeentry.service"),
		repo:        p.Repo,
		issueRepo:   p.IssueRepo,
		projectRepo: p.ProjectRepo,
		gate:        p.Gate,
		genID:       p.GenID,
		clock:       p.Clock,
	}
}

// Create logs time against an issue for the calling user. Logging
// requires editor standing on the owning project.
func (s *service) Create(ctx context.Context, userID, issueID snowflake.ID, req domain.CreateRequest) (*domain.TimeEntry, error) {
	issue, project, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}
	if req.StartedAt.IsZero() || req.EndedAt.IsZero() {
		return nil, apperror.Validation("started_at", "Start and end times are required")
	}
	if !req.EndedAt.After(req.StartedAt) {
		return nil, apperror.Validation("ended_at", "End time must be after start time")
	}

	now := s.clock.Now()
	entry := &domain.TimeEntry{
		ID:          s.genID.Generate(),
		IssueID:     issue.ID,
		ProjectID:   issue.ProjectID,
		UserID:      userID,
		Description: strings.TrimSpace(req.Description),
		StartedAt:   req.StartedAt,
		EndedAt:     req.EndedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListByIssue(ctx context.Context, userID, issueID snowflake.ID) ([]domain.TimeEntry, error) {
	_, project, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return s.repo.ListByIssue(ctx, issueID)
}

// SoftDelete removes an entry. Only its author or a project admin may.
func (s *service) SoftDelete(ctx context.Context, userID, entryID snowflake.ID) error {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return apperror.NotFound("time entry", entryID.String())
	}
	if entry.UserID != userID {
		project, err := s.projectRepo.Get(ctx, entry.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return apperror.NotFound("project", entry.ProjectID.String())
		}
		if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
			return err
		}
	}
	return s.repo.UpdateFields(ctx, entryID, softdelete.Patch(userID, s.clock.Now()))
}

func (s *service) loadIssue(ctx context.Context, issueID snowflake.ID) (*issuedomain.Issue, *projectdomain.Project, error) {
	issue, err := s.issueRepo.Get(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	if issue == nil {
		return nil, nil, apperror.NotFound("issue", issueID.String())
	}
	project, err := s.projectRepo.Get(ctx, issue.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if project == nil {
		return nil, nil, apperror.NotFound("project", issue.ProjectID.String())
	}
	return issue, project, nil
}
