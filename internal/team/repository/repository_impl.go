package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	"github.com/loopwork/loopwork/internal/softdelete"
	"github.com/loopwork/loopwork/internal/team/domain"
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

func (r *repository) Create(ctx context.Context, team *domain.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Team{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&domain.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Team{}).Error
	})
}

func (r *repository) ListByWorkspace(ctx context.Context, workspaceID snowflake.ID) ([]domain.Team, error) {
	var teams []domain.Team
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// CountProjects counts active projects owned by the team. Projects merely
// shared with the team do not block deletion.
func (r *repository) CountProjects(ctx context.Context, teamID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&projectdomain.Project{}).
		Scopes(softdelete.NotDeleted).
		Where("team_id = ?", teamID).
		Count(&count).Error
	return count, err
}

func (r *repository) AddMember(ctx context.Context, member *domain.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) GetMember(ctx context.Context, teamID, userID snowflake.ID) (*domain.TeamMember, error) {
	var member domain.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) UpdateMemberRole(ctx context.Context, teamID, userID snowflake.ID, role string) error {
	return r.db.WithContext(ctx).Model(&domain.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role).Error
}

func (r *repository) RemoveMember(ctx context.Context, teamID, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&domain.TeamMember{}).Error
}

func (r *repository) ListMembers(ctx context.Context, teamID snowflake.ID) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
