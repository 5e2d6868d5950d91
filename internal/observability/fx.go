package observability

import (
	"go.uber.org/fx"
	"memberd/internal/observability/metrics"
)

var Module = fx.Module("observability",
	fx.Provide(
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(ensureSchedulerMetrics),
)

func ensureSchedulerMetrics() {
	metrics.Scheduler()
}
