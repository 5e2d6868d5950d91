package restriction

import (
	"memberd/internal/restriction/repository"
	"memberd/internal/restriction/service"

	"go.uber.org/fx"
)

var Module = fx.Module("restriction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
