package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/softdelete"
	"github.com/loopwork/loopwork/internal/timeentry/domain"
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

func (r *repository) Create(ctx context.Context, entry *domain.TimeEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("id = ?", id).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.TimeEntry{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ListByIssue(ctx context.Context, issueID snowflake.ID) ([]domain.TimeEntry, error) {
	var entries []domain.TimeEntry
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("issue_id = ?", issueID).
		Order("started_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByUser(ctx context.Context, userID snowflake.ID, from, to time.Time) ([]domain.TimeEntry, error) {
	var entries []domain.TimeEntry
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("user_id = ? AND started_at >= ? AND started_at < ?", userID, from, to).
		Order("started_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
