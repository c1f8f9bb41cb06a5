package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/customfield/domain"
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

func (r *repository) CreateField(ctx context.Context, field *domain.CustomField) error {
	return r.db.WithContext(ctx).Create(field).Error
}

func (r *repository) GetField(ctx context.Context, id snowflake.ID) (*domain.CustomField, error) {
	var field domain.CustomField
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("id = ?", id).
		First(&field).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *repository) ListFieldsByProject(ctx context.Context, projectID snowflake.ID) ([]domain.CustomField, error) {
	var fields []domain.CustomField
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("project_id = ?", projectID).
		Order("position ASC, created_at ASC").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repository) UpdateFieldFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.CustomField{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) CreateValue(ctx context.Context, value *domain.CustomFieldValue) error {
	return r.db.WithContext(ctx).Create(value).Error
}

func (r *repository) GetValue(ctx context.Context, fieldID, issueID snowflake.ID) (*domain.CustomFieldValue, error) {
	var value domain.CustomFieldValue
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("field_id = ? AND issue_id = ?", fieldID, issueID).
		First(&value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (r *repository) UpdateValueFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.CustomFieldValue{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ListValuesByIssue(ctx context.Context, issueID snowflake.ID) ([]domain.CustomFieldValue, error) {
	var values []domain.CustomFieldValue
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("issue_id = ?", issueID).
		Find(&values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}
