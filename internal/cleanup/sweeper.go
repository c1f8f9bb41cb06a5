// Package cleanup hard-deletes soft-deleted records once their retention
// window has fully elapsed. The sweep runs on a ticker and is the only
// code path that permanently destroys data.
package cleanup

import (
	"context"
	"time"

	"github.com/loopwork/loopwork/internal/clock"
	"github.com/loopwork/loopwork/internal/config"
	customfielddomain "github.com/loopwork/loopwork/internal/customfield/domain"
	documentdomain "github.com/loopwork/loopwork/internal/document/domain"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
	"github.com/loopwork/loopwork/internal/observability/metrics"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
	timeentrydomain "github.com/loopwork/loopwork/internal/timeentry/domain"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// target is one soft-deletable table the sweeper covers. Children come
// before their parents so a purged project never strands rows that
// reference it.
type target struct {
	entityType string
	model      any
}

var targets = []target{
	{"time_entry", &timeentrydomain.TimeEntry{}},
	{"custom_field_value", &customfielddomain.CustomFieldValue{}},
	{"custom_field", &customfielddomain.CustomField{}},
	{"issue", &issuedomain.Issue{}},
	{"document", &documentdomain.Document{}},
	{"project_member", &projectdomain.ProjectMember{}},
	{"workspace_member", &workspacedomain.WorkspaceMember{}},
	{"project", &projectdomain.Project{}},
}

type Sweeper struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     *config.RetentionConfigHolder
	clock   clock.Clock
	metrics *metrics.Metrics
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  *config.RetentionConfigHolder
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

func NewSweeper(p Params) *Sweeper {
	return &Sweeper{
		db:      p.DB,
		log:     p.Log.Named("cleanup.sweeper"),
		cfg:     p.Config,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// RunOnce purges every eligible record across all targets and returns
// the total number of rows removed. A record is eligible only when it
// has been deleted for strictly longer than the retention window; one
// deleted exactly at the boundary survives until the next sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cfg := s.cfg.Get()
	cutoff := s.clock.Now().Add(-cfg.Threshold())

	total := 0
	for _, tgt := range targets {
		purged, err := s.purge(ctx, tgt, cutoff, cfg.PurgeBatchLimit)
		if err != nil {
			return total, err
		}
		if purged > 0 {
			s.log.Info("purged expired records",
				zap.String("entity_type", tgt.entityType),
				zap.Int("count", purged))
			s.metrics.RecordPurged(ctx, tgt.entityType, purged)
			total += purged
		}
	}
	return total, nil
}

func (s *Sweeper) purge(ctx context.Context, tgt target, cutoff time.Time, batchLimit int) (int, error) {
	purged := 0
	for {
		var ids []int64
		err := s.db.WithContext(ctx).Model(tgt.model).
			Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
			Limit(batchLimit).
			Pluck("id", &ids).Error
		if err != nil {
			return purged, err
		}
		if len(ids) == 0 {
			return purged, nil
		}
		res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(tgt.model)
		if res.Error != nil {
			return purged, res.Error
		}
		purged += int(res.RowsAffected)
		if len(ids) < batchLimit {
			return purged, nil
		}
	}
}

// RunForever sweeps on the configured interval until the context is
// cancelled. Interval changes are picked up on the next tick.
func (s *Sweeper) RunForever(ctx context.Context) {
	for {
		interval := s.cfg.Get().SweepInterval
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Warn("retention sweep failed", zap.Error(err))
			}
		}
	}
}
