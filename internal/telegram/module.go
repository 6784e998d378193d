package telegram

import (
	"context"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"telegram",
		fx.Provide(NewClient, NewBot),
		fx.Invoke(func(lc fx.Lifecycle, b *Bot) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return b.Wait(ctx)
				},
			})
		}),
	)
}
