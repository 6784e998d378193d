package reminders

import (
	"context"

	"nexo_bot/internal/config"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/telegram"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newSweeper(cfg config.Config, s *shop.Shop, client *telegram.Client, logger *zap.Logger) *Sweeper {
	return NewSweeper(s, client, cfg.OwnerIDs(), cfg.ReminderDaysAhead, logger)
}

func Module() fx.Option {
	return fx.Module(
		"reminders",
		fx.Provide(newSweeper, NewScheduler),
		fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					s.Start()
					return nil
				},
				OnStop: func(context.Context) error {
					s.Stop()
					return nil
				},
			})
		}),
	)
}
