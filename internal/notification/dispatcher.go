package notification

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loopwork/loopwork/internal/notification/domain"
	"github.com/loopwork/loopwork/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dispatchInterval  = 5 * time.Second
	dispatchBatchSize = 100
)

// Dispatcher drains the outbox: each unpublished event becomes an inbox
// notification for its recipient (events without a recipient are only
// marked published). Errors are logged and retried on the next tick;
// the mutation that produced the event is never affected.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *metrics.Metrics
}

type DispatcherParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	return &Dispatcher{
		db:      p.DB,
		log:     p.Log.Named("notification.dispatcher"),
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

// RunOnce drains one batch and reports how many events it published.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	var events []domain.OutboxEvent
	err := d.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at ASC").
		Limit(dispatchBatchSize).
		Find(&events).Error
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range events {
		evt := &events[i]
		if err := d.dispatch(ctx, evt); err != nil {
			d.log.Warn("failed to dispatch outbox event",
				zap.String("event_id", evt.ID.String()),
				zap.String("event_type", evt.EventType),
				zap.Error(err),
			)
			continue
		}
		published++
		d.metrics.RecordOutboxPublished(ctx, evt.EventType)
	}
	return published, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, evt *domain.OutboxEvent) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if evt.RecipientID != nil {
			notification := &domain.Notification{
				ID:      d.genID.Generate(),
				UserID:  *evt.RecipientID,
				OrgID:   evt.OrgID,
				Type:    evt.EventType,
				ActorID: evt.ActorID,
				Payload: evt.Payload,
			}
			if err := tx.Create(notification).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.OutboxEvent{}).
			Where("id = ?", evt.ID).
			Update("published", true).Error
	})
}

// RunForever ticks until the context is cancelled.
func (d *Dispatcher) RunForever(ctx context.Context) {
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil {
				d.log.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}
