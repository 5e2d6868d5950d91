package membership

import (
	"memberd/internal/membership/repository"
	"memberd/internal/membership/service"

	"go.uber.org/fx"
)

var Module = fx.Module("membership.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
