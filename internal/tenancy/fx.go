package tenancy

import "go.uber.org/fx"

var Module = fx.Module("tenancy",
	fx.Provide(NewValidator),
)
