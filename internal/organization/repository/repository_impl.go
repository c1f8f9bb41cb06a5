package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/organization/domain"
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

func (r *repository) Create(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) Get(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Organization{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) SlugExists(ctx context.Context, slug string, excludeID snowflake.ID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.Organization{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.ListItem, error) {
	var items []domain.ListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, o.slug, m.role, o.created_at
		 FROM organizations o
		 JOIN organization_members m ON m.org_id = o.id
		 WHERE m.user_id = ?
		 ORDER BY o.created_at ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) AddMember(ctx context.Context, member *domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) GetMember(ctx context.Context, orgID, userID snowflake.ID) (*domain.OrganizationMember, error) {
	var member domain.OrganizationMember
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error {
	return r.db.WithContext(ctx).Model(&domain.OrganizationMember{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Update("role", role).Error
}

func (r *repository) RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Delete(&domain.OrganizationMember{}).Error
}

func (r *repository) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	var members []domain.OrganizationMember
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) CreateInvite(ctx context.Context, invite *domain.OrganizationInvite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *repository) GetInvite(ctx context.Context, id snowflake.ID) (*domain.OrganizationInvite, error) {
	var invite domain.OrganizationInvite
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) FindPendingInvite(ctx context.Context, orgID snowflake.ID, email string) (*domain.OrganizationInvite, error) {
	var invite domain.OrganizationInvite
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND email = ? AND status = ?", orgID, strings.ToLower(email), domain.InviteStatusPending).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) UpdateInviteStatus(ctx context.Context, id snowflake.ID, status string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.OrganizationInvite{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": now}).Error
}
