package issue

import (
	"github.com/loopwork/loopwork/internal/issue/repository"
	"github.com/loopwork/loopwork/internal/issue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("issue.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
