package discount

import (
	"memberd/internal/discount/repository"
	"memberd/internal/discount/service"

	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
