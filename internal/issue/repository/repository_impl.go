package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/issue/domain"
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

func (r *repository) Create(ctx context.Context, issue *domain.Issue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Issue, error) {
	var issue domain.Issue
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("id = ?", id).
		First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *repository) GetIncludingDeleted(ctx context.Context, id snowflake.ID) (*domain.Issue, error) {
	var issue domain.Issue
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *repository) GetMany(ctx context.Context, ids []snowflake.ID) ([]domain.Issue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var issues []domain.Issue
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("id IN ?", ids).
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Issue{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// LatestKeyNumber returns the highest issue number already minted for the
// project key, deleted issues included so numbers are never reused.
func (r *repository) LatestKeyNumber(ctx context.Context, projectID snowflake.ID, keyPrefix string) (int, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&domain.Issue{}).
		Where("project_id = ?", projectID).
		Pluck("key", &keys).Error
	if err != nil {
		return 0, err
	}

	prefix := fmt.Sprintf("%s-", keyPrefix)
	highest := 0
	for _, key := range keys {
		numeric, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(numeric)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (r *repository) ListByProject(ctx context.Context, projectID snowflake.ID, includeDeleted bool) ([]domain.Issue, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if !includeDeleted {
		q = q.Scopes(softdelete.NotDeleted)
	}
	var issues []domain.Issue
	if err := q.Order("created_at ASC").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *repository) ListBySprint(ctx context.Context, sprintID snowflake.ID) ([]domain.Issue, error) {
	var issues []domain.Issue
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("sprint_id = ?", sprintID).
		Order("created_at ASC").
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}
