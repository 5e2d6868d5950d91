package scheduler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewScheduler(lc fx.Lifecycle, log *zap.Logger, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			go sched.RunForever(ctx)
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
			log.Info("scheduler started")
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)
