package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/softdelete"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
	"github.com/loopwork/loopwork/internal/workspace/domain"
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

func (r *repository) Create(ctx context.Context, ws *domain.Workspace) error {
	return r.db.WithContext(ctx).Create(ws).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *repository) GetBySlug(ctx context.Context, orgID snowflake.ID, slug string) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND slug = ?", orgID, slug).
		First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Workspace{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Workspace{}).Error
}

func (r *repository) SlugExists(ctx context.Context, orgID snowflake.ID, slug string, excludeID snowflake.ID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.Workspace{}).
		Where("org_id = ? AND slug = ?", orgID, slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Workspace, error) {
	var workspaces []domain.Workspace
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&workspaces).Error
	if err != nil {
		return nil, err
	}
	return workspaces, nil
}

func (r *repository) CountTeams(ctx context.Context, workspaceID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&teamdomain.Team{}).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error
	return count, err
}

// CountProjects counts active projects only; soft-deleted projects do not
// block workspace deletion.
func (r *repository) CountProjects(ctx context.Context, workspaceID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&projectdomain.Project{}).
		Scopes(softdelete.NotDeleted).
		Where("workspace_id = ?", workspaceID).
		Count(&count).Error
	return count, err
}

func (r *repository) AddMember(ctx context.Context, member *domain.WorkspaceMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) GetMember(ctx context.Context, workspaceID, userID snowflake.ID) (*domain.WorkspaceMember, error) {
	var member domain.WorkspaceMember
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) GetMemberIncludingDeleted(ctx context.Context, workspaceID, userID snowflake.ID) (*domain.WorkspaceMember, error) {
	var member domain.WorkspaceMember
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
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
	return r.db.WithContext(ctx).Model(&domain.WorkspaceMember{}).
		Where("id = ?", memberID).
		Updates(fields).Error
}

func (r *repository) ListMembers(ctx context.Context, workspaceID snowflake.ID) ([]domain.WorkspaceMember, error) {
	var members []domain.WorkspaceMember
	err := r.db.WithContext(ctx).
		Scopes(softdelete.NotDeleted).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
