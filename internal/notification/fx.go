package notification

import (
	"context"

	"github.com/loopwork/loopwork/internal/notification/outbox"
	"github.com/loopwork/loopwork/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(outbox.NewPublisher),
	fx.Provide(service.New),
	fx.Provide(NewDispatcher),
	fx.Invoke(runDispatcher),
)

func runDispatcher(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go d.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
