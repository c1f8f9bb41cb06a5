package sprint

import (
	"github.com/loopwork/loopwork/internal/sprint/repository"
	"github.com/loopwork/loopwork/internal/sprint/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sprint.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
