package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/authz"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/customfield/domain"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/role"
	"github.com/loopwork/loopwork/internal/softdelete"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

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
		log:         p.Log.Named("customfield.service"),
		repo:        p.Repo,
		issueRepo:   p.IssueRepo,
		projectRepo: p.ProjectRepo,
		gate:        p.Gate,
		genID:       p.GenID,
		clock:       p.Clock,
	}
}

// CreateField defines a new field on a project. Requires project admin.
func (s *service) CreateField(ctx context.Context, userID, projectID snowflake.ID, req domain.CreateFieldRequest) (*domain.CustomField, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "Field name is required")
	}
	if !validFieldType(req.Type) {
		return nil, apperror.Validation("type", "Unknown field type")
	}
	if req.Type.Selectable() && len(req.Options) == 0 {
		return nil, apperror.Validation("options", "Select fields require at least one option")
	}

	now := s.clock.Now()
	field := &domain.CustomField{
		ID:        s.genID.Generate(),
		OrgID:     project.OrgID,
		ProjectID: project.ID,
		Name:      name,
		Type:      req.Type,
		Options:   datatypes.NewJSONSlice(req.Options),
		Required:  req.Required,
		Position:  req.Position,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateField(ctx, field); err != nil {
		return nil, err
	}
	return field, nil
}

func (s *service) ListFields(ctx context.Context, userID, projectID snowflake.ID) ([]domain.CustomField, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return s.repo.ListFieldsByProject(ctx, projectID)
}

// UpdateField renames or reconfigures a field. The type is immutable:
// stored values are only validated on write, so a type change would
// silently invalidate them.
func (s *service) UpdateField(ctx context.Context, userID, fieldID snowflake.ID, req domain.UpdateFieldRequest) (*domain.CustomField, error) {
	field, project, err := s.loadField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name", "Field name is required")
		}
		updates["name"] = name
	}
	if req.Options != nil {
		if field.Type.Selectable() && len(req.Options) == 0 {
			return nil, apperror.Validation("options", "Select fields require at least one option")
		}
		updates["options"] = datatypes.NewJSONSlice(req.Options)
	}
	if req.Required != nil {
		updates["required"] = *req.Required
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if err := s.repo.UpdateFieldFields(ctx, fieldID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetField(ctx, fieldID)
}

// SoftDeleteField hides a field and its values from default queries.
func (s *service) SoftDeleteField(ctx context.Context, userID, fieldID snowflake.ID) error {
	_, project, err := s.loadField(ctx, fieldID)
	if err != nil {
		return err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectAdmin); err != nil {
		return err
	}
	return s.repo.UpdateFieldFields(ctx, fieldID, softdelete.Patch(userID, s.clock.Now()))
}

// SetValue writes an issue's value for a field. Requires project
// editor. The field must belong to the issue's own project, and the
// value must parse under the field's type.
func (s *service) SetValue(ctx context.Context, userID, issueID, fieldID snowflake.ID, value string) (*domain.CustomFieldValue, error) {
	issue, project, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.RequireProjectRole(ctx, userID, project, role.ProjectEditor); err != nil {
		return nil, err
	}

	field, err := s.repo.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, apperror.NotFound("custom field", fieldID.String())
	}
	if field.ProjectID != issue.ProjectID {
		return nil, apperror.Validation("fieldId", "Field does not belong to the issue's project")
	}

	value = strings.TrimSpace(value)
	if err := validateValue(field, value); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	existing, err := s.repo.GetValue(ctx, fieldID, issueID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.repo.UpdateValueFields(ctx, existing.ID, map[string]any{
			"value":      value,
			"updated_at": now,
		}); err != nil {
			return nil, err
		}
		existing.Value = value
		existing.UpdatedAt = now
		return existing, nil
	}

	v := &domain.CustomFieldValue{
		ID:        s.genID.Generate(),
		FieldID:   field.ID,
		IssueID:   issue.ID,
		ProjectID: issue.ProjectID,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateValue(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) ListValues(ctx context.Context, userID, issueID snowflake.ID) ([]domain.CustomFieldValue, error) {
	_, project, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireReadProject(ctx, userID, project); err != nil {
		return nil, err
	}
	return s.repo.ListValuesByIssue(ctx, issueID)
}

func validFieldType(t domain.FieldType) bool {
	switch t {
	case domain.TypeText, domain.TypeNumber, domain.TypeDate, domain.TypeSelect,
		domain.TypeMultiselect, domain.TypeCheckbox, domain.TypeURL:
		return true
	}
	return false
}

func validateValue(field *domain.CustomField, value string) error {
	if value == "" {
		if field.Required {
			return apperror.Validation("value", "Value is required")
		}
		return nil
	}
	switch field.Type {
	case domain.TypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return apperror.Validation("value", "Value must be a number")
		}
	case domain.TypeDate:
		if _, err := time.Parse(dateLayout, value); err != nil {
			return apperror.Validation("value", "Value must be a date in YYYY-MM-DD format")
		}
	case domain.TypeSelect:
		if !field.HasOption(value) {
			return apperror.Validation("value", "Value must be one of the field's options")
		}
	case domain.TypeMultiselect:
		for _, v := range strings.Split(value, ",") {
			if !field.HasOption(strings.TrimSpace(v)) {
				return apperror.Validation("value", "Value must be one of the field's options")
			}
		}
	case domain.TypeCheckbox:
		if value != "true" && value != "false" {
			return apperror.Validation("value", "Value must be true or false")
		}
	case domain.TypeURL:
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return apperror.Validation("value", "Value must be a valid URL")
		}
	}
	return nil
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

func (s *service) loadField(ctx context.Context, fieldID snowflake.ID) (*domain.CustomField, *projectdomain.Project, error) {
	field, err := s.repo.GetField(ctx, fieldID)
	if err != nil {
		return nil, nil, err
	}
	if field == nil {
		return nil, nil, apperror.NotFound("custom field", fieldID.String())
	}
	project, err := s.loadProject(ctx, field.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return field, project, nil
}

func (s *service) loadIssue(ctx context.Context, issueID snowflake.ID) (*issuedomain.Issue, *projectdomain.Project, error) {
	issue, err := s.issueRepo.Get(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	if issue == nil {
		return nil, nil, apperror.NotFound("issue", issueID.String())
	}
	project, err := s.loadProject(ctx, issue.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return issue, project, nil
}
