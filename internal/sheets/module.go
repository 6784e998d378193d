package sheets

import (
	"nexo_bot/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"sheets",
		fx.Provide(
			fx.Annotate(NewTokenSource, fx.As(new(TokenProvider))),
			NewStore,
		),
	)
}

// NewStore picks the backend named by SHEETS_BACKEND.
func NewStore(cfg config.Config, tokens TokenProvider, logger *zap.Logger) Store {
	if cfg.SheetsBackend == config.BackendMemory {
		logger.Named("sheets").Warn("using in-memory sheets backend; data is lost on restart")
		return NewMemoryStore()
	}
	return NewClient(cfg, tokens, logger)
}
