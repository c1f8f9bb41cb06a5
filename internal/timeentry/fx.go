package timeentry

import (
	"github.com/loopwork/loopwork/internal/timeentry/repository"
	"github.com/loopwork/loopwork/internal/timeentry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timeentry.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
