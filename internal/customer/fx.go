package customer

import (
	"memberd/internal/customer/repository"
	"memberd/internal/customer/service"

	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
