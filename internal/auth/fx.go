package auth

import (
	"github.com/loopwork/loopwork/internal/auth/repository"
	"github.com/loopwork/loopwork/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
