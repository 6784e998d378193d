package cli

import (
	"os"

	"nexo_bot/internal/agent"
	"nexo_bot/internal/state"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newTerminalConsole(orch *agent.Orchestrator, convs *state.Store, opts Options, logger *zap.Logger) *Console {
	return NewConsole(orch, convs, opts, logger).WithIO(os.Stdin, os.Stdout)
}

func Module() fx.Option {
	return fx.Module(
		"cli",
		fx.Provide(newTerminalConsole),
	)
}
