package apikey

import (
	"github.com/loopwork/loopwork/internal/apikey/repository"
	"github.com/loopwork/loopwork/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
