package agent

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module(
		"agent",
		fx.Provide(
			NewDispatcher,
			NewConfirmations,
			fx.Annotate(NewRegexPolicy, fx.As(new(Policy))),
			NewOrchestrator,
		),
	)
}
