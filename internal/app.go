package internal

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"nexo_bot/internal/agent"
	"nexo_bot/internal/cli"
	"nexo_bot/internal/config"
	"nexo_bot/internal/llm"
	"nexo_bot/internal/logging"
	"nexo_bot/internal/reminders"
	"nexo_bot/internal/server"
	"nexo_bot/internal/sheets"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/state"
	"nexo_bot/internal/telegram"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run() error {
	opts, err := cli.ParseOptions(filepath.Base(os.Args[0]), os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	core := fx.Options(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		fx.Supply(opts),
		fx.Decorate(opts.Apply),
		logging.Module(),
		sheets.Module(),
		shop.Module(),
		llm.Module(),
		state.Module(),
		agent.Module(),
	)

	if opts.Interactive() {
		return runConsole(core)
	}
	return serve(core)
}

func runConsole(core fx.Option) error {
	var console *cli.Console
	app := fx.New(
		core,
		fx.Invoke(func(cfg config.Config) error { return cfg.ValidateStore() }),
		cli.Module(),
		fx.Populate(&console),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(context.Background())
	}()

	return console.Execute(ctx)
}

func serve(core fx.Option) error {
	app := fx.New(
		core,
		fx.Invoke(func(cfg config.Config) error { return cfg.Validate() }),
		telegram.Module(),
		server.Module(),
		reminders.Module(),
	)

	if err := app.Start(context.Background()); err != nil {
		return err
	}
	<-app.Done()

	ctx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(ctx)
}
