package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/softdelete"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Get returns active projects only; soft-deleted projects read as absent.
func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("id = ?", id).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) GetIncludingDeleted(ctx context.Context, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// KeyExists checks across all projects, deleted included; a soft-deleted
// project still reserves its key.
func (r *repository) KeyExists(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID, includeDeleted bool) ([]domain.Project, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if !includeDeleted {
		q = q.Scopes(softdelete.NotDeleted)
	}
	var projects []domain.Project
	if err := q.Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) ListByWorkspace(ctx context.Context, workspaceID snowflake.ID) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) AddMember(ctx context.Context, member *domain.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) GetMember(ctx context.Context, projectID, userID snowflake.ID) (*domain.ProjectMember, error) {
	var member domain.ProjectMember
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) GetMemberIncludingDeleted(ctx context.Context, projectID, userID snowflake.ID) (*domain.ProjectMember, error) {
	var member domain.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) UpdateMemberFields(ctx context.Context, memberID snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.ProjectMember{}).
		Where("id = ?", memberID).
		Updates(fields).Error
}

func (r *repository) ListMembers(ctx context.Context, projectID snowflake.ID) ([]domain.ProjectMember, error) {
	var members []domain.ProjectMember
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
