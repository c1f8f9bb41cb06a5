package organization

import (
	"github.com/loopwork/loopwork/internal/organization/repository"
	"github.com/loopwork/loopwork/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
