package workspace

import (
	"github.com/loopwork/loopwork/internal/workspace/repository"
	"github.com/loopwork/loopwork/internal/workspace/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workspace.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
