package document

import (
	"github.com/loopwork/loopwork/internal/document/repository"
	"github.com/loopwork/loopwork/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
