package payment

import (
	"memberd/internal/payment/repository"
	"memberd/internal/payment/service"

	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
