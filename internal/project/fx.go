package project

import (
	"github.com/loopwork/loopwork/internal/project/repository"
	"github.com/loopwork/loopwork/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
