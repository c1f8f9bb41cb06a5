package team

import (
	"github.com/loopwork/loopwork/internal/team/repository"
	"github.com/loopwork/loopwork/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
