package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"nexo_bot/internal/config"
)

const defaultConsoleUser int64 = 1

type Options struct {
	Console       bool
	Query         string
	JSON          bool
	UserID        int64
	Debug         bool
	LogFile       string
	LLMModel      string
	SheetsBackend string
}

// Interactive reports whether the process talks to a terminal instead of
// serving the Telegram webhook.
func (o Options) Interactive() bool {
	return o.Console || o.Query != ""
}

// ParseOptions reads command line flags. flag.ErrHelp is returned as is
// after usage has been printed.
func ParseOptions(name string, args []string, stderr io.Writer) (Options, error) {
	var opts Options

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [message]\n\nWithout flags the bot serves the Telegram webhook.\n\n", fs.Name())
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.Console, "console", false, "Chat with the assistant from the terminal")
	fs.BoolVar(&opts.JSON, "json", false, "Print console replies as JSON")
	fs.Int64Var(&opts.UserID, "user", defaultConsoleUser, "User id for console conversations")
	fs.BoolVar(&opts.Debug, "debug", false, "Enable debug logging (DEBUG)")
	fs.StringVar(&opts.LogFile, "log-file", "", "Log file path (LOG_FILE)")
	fs.StringVar(&opts.LLMModel, "llm-model", "", "LLM model (LLM_MODEL)")
	fs.StringVar(&opts.SheetsBackend, "sheets", "", "Sheets backend: google or memory (SHEETS_BACKEND)")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return Options{}, fmt.Errorf("only one message argument is supported")
	}
	if len(rest) == 1 {
		opts.Query = strings.TrimSpace(rest[0])
	}
	return opts, nil
}

// Apply overrides configuration with the flags that were set.
func (o Options) Apply(cfg config.Config) config.Config {
	if o.Debug {
		cfg.Debug = true
	}
	if o.LogFile != "" {
		cfg.LogFile = o.LogFile
	}
	if o.LLMModel != "" {
		cfg.LLMModel = o.LLMModel
	}
	if o.SheetsBackend != "" {
		cfg.SheetsBackend = o.SheetsBackend
	}
	return cfg
}
