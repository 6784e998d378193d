package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"nexo_bot/internal/agent"
	"nexo_bot/internal/state"

	"go.uber.org/zap"
)

// choice is one numbered answer offered after a confirmation or selection.
type choice struct {
	label string
	run   func(ctx context.Context) (agent.Result, error)
}

// Console drives the orchestrator from a terminal, standing in for the
// Telegram keyboards with numbered choices.
type Console struct {
	orch    *agent.Orchestrator
	convs   *state.Store
	opts    Options
	logger  *zap.Logger
	in      io.Reader
	out     io.Writer
	choices []choice
}

func NewConsole(orch *agent.Orchestrator, convs *state.Store, opts Options, logger *zap.Logger) *Console {
	return &Console{
		orch:   orch,
		convs:  convs,
		opts:   opts,
		logger: logger.Named("cli"),
	}
}

// WithIO replaces the terminal streams.
func (c *Console) WithIO(in io.Reader, out io.Writer) *Console {
	c.in, c.out = in, out
	return c
}

func (c *Console) Execute(ctx context.Context) error {
	if c.opts.Query != "" {
		return c.handle(ctx, c.opts.Query)
	}
	return c.repl(ctx)
}

func (c *Console) repl(ctx context.Context) error {
	reader := bufio.NewScanner(c.in)
	fmt.Fprintln(c.out, "Nexo (escribí 'salir' para terminar, /historial, /cancelar)")

	for {
		fmt.Fprint(c.out, "> ")
		if !reader.Scan() {
			return reader.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(reader.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "salir", "exit", "quit":
			return nil
		case "/historial", "/history":
			c.printHistory(ctx)
			continue
		case "/cancelar", "/clear":
			c.choices = nil
			if err := c.orch.Reset(ctx, c.opts.UserID); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Historial y pendientes borrados.")
			continue
		}

		if err := c.handle(ctx, line); err != nil {
			return err
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) error {
	c.logger.Info("console message", zap.Int64("user_id", c.opts.UserID), zap.Int("len", len(line)))

	var (
		res agent.Result
		err error
	)
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(c.choices) {
		picked := c.choices[n-1]
		c.choices = nil
		res, err = picked.run(ctx)
	} else {
		c.choices = nil
		res, err = c.orch.HandleMessage(ctx, c.opts.UserID, line)
	}
	if err != nil {
		return err
	}
	return c.write(line, res)
}

type jsonReply struct {
	Message string   `json:"message"`
	Kind    string   `json:"kind"`
	Reply   string   `json:"reply"`
	Choices []string `json:"choices,omitempty"`
}

func (c *Console) write(line string, res agent.Result) error {
	kind := "reply"
	switch r := res.(type) {
	case agent.NeedsConfirmation:
		kind = "confirmation:" + string(r.Kind)
		c.choices = c.confirmationChoices(r.Kind)
	case agent.NeedsSelection:
		kind = "selection:" + string(r.Type)
		c.choices = c.selectionChoices(r)
	}

	labels := make([]string, len(c.choices))
	for i, ch := range c.choices {
		labels[i] = ch.label
	}

	if c.opts.JSON {
		return json.NewEncoder(c.out).Encode(jsonReply{
			Message: line,
			Kind:    kind,
			Reply:   res.Message(),
			Choices: labels,
		})
	}

	fmt.Fprintln(c.out, res.Message())
	for i, label := range labels {
		fmt.Fprintf(c.out, "  [%d] %s\n", i+1, label)
	}
	return nil
}

func (c *Console) confirmationChoices(kind agent.ConfirmationKind) []choice {
	user := c.opts.UserID
	payment := func(label, value string) choice {
		return choice{label: label, run: func(ctx context.Context) (agent.Result, error) {
			return c.orch.ChoosePayment(ctx, user, value)
		}}
	}
	deadline := func(label, value string) choice {
		return choice{label: label, run: func(ctx context.Context) (agent.Result, error) {
			return c.orch.ChooseDeadline(ctx, user, value)
		}}
	}
	cancel := choice{label: "Cancelar", run: func(context.Context) (agent.Result, error) {
		c.orch.CancelConfirmation(user)
		return agent.Reply{Text: "Cancelado."}, nil
	}}

	switch kind {
	case agent.ConfirmPayment:
		return []choice{
			payment("Pagó", agent.ChoicePaid),
			payment("Cuenta corriente", agent.ChoiceCredit),
			payment("Pago parcial", agent.ChoicePartial),
			cancel,
		}
	case agent.ConfirmDeadline:
		return []choice{
			deadline("7 días", "7"),
			deadline("15 días", "15"),
			deadline("30 días", "30"),
			deadline("60 días", "60"),
			deadline("Otra fecha", agent.DeadlineCustom),
			deadline("Sin fecha", agent.DeadlineNone),
		}
	default:
		return nil
	}
}

func (c *Console) selectionChoices(sel agent.NeedsSelection) []choice {
	user := c.opts.UserID
	out := make([]choice, 0, len(sel.Candidates)+1)
	for _, cand := range sel.Candidates {
		id := cand.ID
		out = append(out, choice{label: cand.Label, run: func(ctx context.Context) (agent.Result, error) {
			return c.orch.Select(ctx, user, id)
		}})
	}
	return append(out, choice{label: "Cancelar", run: func(context.Context) (agent.Result, error) {
		c.orch.CancelSelection(user)
		return agent.Reply{Text: "Cancelado."}, nil
	}})
}

func (c *Console) printHistory(ctx context.Context) {
	messages, err := c.convs.History(ctx, c.opts.UserID)
	if err != nil {
		fmt.Fprintf(c.out, "Historial no disponible: %v\n", err)
		return
	}
	if len(messages) == 0 {
		fmt.Fprintln(c.out, "Historial vacío.")
		return
	}
	fmt.Fprintf(c.out, "Historial (%d mensajes):\n", len(messages))
	for i, m := range messages {
		fmt.Fprintf(c.out, "%d) %s: %s\n", i+1, m.Role, preview(m.Content))
	}
}

func preview(text string) string {
	const maxLen = 120
	text = strings.TrimSpace(text)
	if text == "" {
		return "(vacío)"
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
