package level

import (
	"memberd/internal/level/repository"
	"memberd/internal/level/service"

	"go.uber.org/fx"
)

var Module = fx.Module("level.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
