package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/document/domain"
	"github.com/loopwork/loopwork/internal/softdelete"
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
	Validator *tenancy.Validator
	GenID     *snowflake.Node
	Clock     clock.Clock
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	gate      *authz.Gate
	validator *tenancy.Validator
	genID     *snowflake.Node
	clock     clock.Clock
}

func NewService(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("document.service"),
		repo:      p.Repo,
		gate:      p.Gate,
		validator: p.Validator,
		genID:     p.GenID,
		clock:     p.Clock,
	}
}

// Create requires membership in the supplied organization. A referenced
// project or workspace must belong to that same organization; the check
// fires regardless of the caller's roles, so a member of org A can never
// launder a reference to org B's entities into an org-A document.
func (s *service) Create(ctx context.Context, userID, orgID snowflake.ID, req domain.CreateRequest) (*domain.Document, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectDocument, authz.ActionDocumentCreate); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation("title", "Document title is required")
	}

	now := s.clock.Now()
	doc := &domain.Document{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		WorkspaceID: req.WorkspaceID,
		ProjectID:   req.ProjectID,
		Title:       title,
		Content:     req.Content,
		IsPublic:    req.IsPublic,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		validator := s.validator.WithTx(tx)
		if req.WorkspaceID != nil {
			if _, err := validator.WorkspaceInOrganization(ctx, *req.WorkspaceID, orgID); err != nil {
				return err
			}
		}
		if req.ProjectID != nil {
			if _, err := validator.ProjectInOrganization(ctx, *req.ProjectID, orgID); err != nil {
				return err
			}
		}
		return s.repo.WithTx(tx).Create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns a document to its creator unconditionally. Anyone else
// needs the document shared and membership in its organization.
func (s *service) Get(ctx context.Context, userID, documentID snowflake.ID) (*domain.Document, error) {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NotFound("document", documentID.String())
	}
	if doc.CreatedBy != userID {
		if !doc.IsPublic {
			return nil, apperror.ForbiddenMessage("Not authorized to access this document")
		}
		if err := s.gate.Authorize(ctx, userID, doc.OrgID, authz.ObjectDocument, authz.ActionDocumentView); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ListByOrg returns the caller's own documents plus the organization's
// shared ones. Other members' private documents never appear, and the
// membership check keeps the list from leaking across organizations.
func (s *service) ListByOrg(ctx context.Context, userID, orgID snowflake.ID) ([]domain.Document, error) {
	if err := s.gate.Authorize(ctx, userID, orgID, authz.ObjectDocument, authz.ActionDocumentView); err != nil {
		return nil, err
	}
	return s.repo.ListVisible(ctx, orgID, userID)
}

// Update is creator-only; sharing a document never lets other members
// write to it.
func (s *service) Update(ctx context.Context, userID, documentID snowflake.ID, req domain.UpdateRequest) (*domain.Document, error) {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NotFound("document", documentID.String())
	}
	if doc.CreatedBy != userID {
		return nil, apperror.ForbiddenMessage("Not authorized to edit this document")
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperror.Validation("title", "Document title is required")
		}
		fields["title"] = title
	}
	if req.Content != nil {
		fields["content"] = *req.Content
	}
	if err := s.repo.UpdateFields(ctx, documentID, fields); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, documentID)
}

// TogglePublic flips the sharing flag. Creator-only, like every other
// document mutation.
func (s *service) TogglePublic(ctx context.Context, userID, documentID snowflake.ID) (*domain.Document, error) {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NotFound("document", documentID.String())
	}
	if doc.CreatedBy != userID {
		return nil, apperror.ForbiddenMessage("Not authorized to edit this document")
	}
	if err := s.repo.UpdateFields(ctx, documentID, map[string]any{
		"is_public":  !doc.IsPublic,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, documentID)
}

func (s *service) SoftDelete(ctx context.Context, userID, documentID snowflake.ID) error {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperror.NotFound("document", documentID.String())
	}
	if doc.CreatedBy != userID {
		return apperror.ForbiddenMessage("Not authorized to delete this document")
	}
	return s.repo.UpdateFields(ctx, documentID, softdelete.Patch(userID, s.clock.Now()))
}

func (s *service) Restore(ctx context.Context, userID, documentID snowflake.ID) error {
	doc, err := s.repo.GetIncludingDeleted(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperror.NotFound("document", documentID.String())
	}
	if !doc.IsSoftDeleted() {
		return apperror.Conflict("Document is not deleted")
	}
	if doc.CreatedBy != userID {
		return apperror.ForbiddenMessage("Not authorized to restore this document")
	}
	fields := softdelete.RestorePatch()
	fields["updated_at"] = s.clock.Now()
	return s.repo.UpdateFields(ctx, documentID, fields)
}
