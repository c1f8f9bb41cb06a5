package customfield

import (
	"github.com/loopwork/loopwork/internal/customfield/repository"
	"github.com/loopwork/loopwork/internal/customfield/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customfield.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
