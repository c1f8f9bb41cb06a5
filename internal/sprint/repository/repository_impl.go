package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/sprint/domain"
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

func (r *repository) Create(ctx context.Context, sprint *domain.Sprint) error {
	return r.db.WithContext(ctx).Create(sprint).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Sprint, error) {
	var sprint domain.Sprint
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Sprint{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ListByProject(ctx context.Context, projectID snowflake.ID) ([]domain.Sprint, error) {
	var sprints []domain.Sprint
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&sprints).Error
	if err != nil {
		return nil, err
	}
	return sprints, nil
}

func (r *repository) FindActive(ctx context.Context, projectID snowflake.ID) ([]domain.Sprint, error) {
	var sprints []domain.Sprint
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, domain.StatusActive).
		Find(&sprints).Error
	if err != nil {
		return nil, err
	}
	return sprints, nil
}
