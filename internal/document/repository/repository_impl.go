package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/document/domain"
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

func (r *repository) Create(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) GetIncludingDeleted(ctx context.Context, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ListVisible(ctx context.Context, orgID, viewerID snowflake.ID) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("org_id = ? AND (created_by = ? OR is_public = ?)", orgID, viewerID, true).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}
