package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/notification/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func New(db *gorm.DB, log *zap.Logger, clk clock.Clock) *Service {
	return &Service{
		db:    db,
		log:   log.Named("notification.service"),
		clock: clk,
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID snowflake.ID, unreadOnly bool) ([]domain.Notification, error) {
	if userID == 0 {
		return nil, apperror.Unauthenticated()
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var items []domain.Notification
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkRead marks one notification as read. Users can only touch their
// own inbox.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID snowflake.ID) error {
	if userID == 0 {
		return apperror.Unauthenticated()
	}
	var n domain.Notification
	err := s.db.WithContext(ctx).Where("id = ?", notificationID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("notification", notificationID.String())
	}
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperror.Forbidden("")
	}
	if n.ReadAt != nil {
		return nil
	}
	now := s.clock.Now()
	return s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ?", notificationID).
		Update("read_at", now).Error
}

// MarkAllRead marks the whole inbox read.
func (s *Service) MarkAllRead(ctx context.Context, userID snowflake.ID) error {
	if userID == 0 {
		return apperror.Unauthenticated()
	}
	now := s.clock.Now()
	return s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now).Error
}
