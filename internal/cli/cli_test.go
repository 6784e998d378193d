package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"nexo_bot/internal/agent"
	"nexo_bot/internal/config"
	"nexo_bot/internal/llm"
	"nexo_bot/internal/sheets"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/state"

	openrouter "github.com/revrost/go-openrouter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

type cannedModel struct {
	responses []openrouter.ChatCompletionResponse
	n         int
}

func (m *cannedModel) ChatWithMessages(context.Context, []openrouter.ChatCompletionMessage, []openrouter.Tool) (openrouter.ChatCompletionResponse, error) {
	if m.n >= len(m.responses) {
		return openrouter.ChatCompletionResponse{}, llm.ErrEmptyResponse
	}
	m.n++
	return m.responses[m.n-1], nil
}

func toolResponse(t *testing.T, name, args string) openrouter.ChatCompletionResponse {
	t.Helper()
	encoded, err := json.Marshal(args)
	require.NoError(t, err)
	var resp openrouter.ChatCompletionResponse
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(
		`{"id":"r","choices":[{"index":0,"message":{"role":"assistant","content":"","tool_calls":[{"id":"c1","type":"function","function":{"name":%q,"arguments":%s}}]}}]}`,
		name, encoded,
	)), &resp))
	return resp
}

func newTestConsole(t *testing.T, model llm.ChatModel, opts Options, input string) (*Console, *shop.Shop, *bytes.Buffer) {
	t.Helper()
	logger := zap.NewNop()
	s := shop.New(sheets.NewMemoryStore(), 0, func() time.Time { return testNow }, logger)
	convs := state.NewStore(state.NewMemoryBackend(), state.StoreOptions{Now: func() time.Time { return testNow }}, logger)
	pending := state.NewPendingStore(0, func() time.Time { return testNow })
	dispatcher := agent.NewDispatcher(s, logger)
	orch := agent.NewOrchestrator(model, dispatcher, agent.NewConfirmations(s, pending, logger), agent.NewRegexPolicy(), convs, pending, s, logger)

	out := &bytes.Buffer{}
	return NewConsole(orch, convs, opts, logger).WithIO(strings.NewReader(input), out), s, out
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions("nexo-bot", []string{"-console", "-user", "42", "-sheets", "memory"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, opts.Console)
	assert.True(t, opts.Interactive())
	assert.Equal(t, int64(42), opts.UserID)

	cfg := opts.Apply(config.Config{SheetsBackend: config.BackendGoogle, LLMModel: "m"})
	assert.Equal(t, config.BackendMemory, cfg.SheetsBackend)
	assert.Equal(t, "m", cfg.LLMModel)

	opts, err = ParseOptions("nexo-bot", []string{"stock de remeras"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "stock de remeras", opts.Query)

	opts, err = ParseOptions("nexo-bot", nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, opts.Interactive())

	_, err = ParseOptions("nexo-bot", []string{"a", "b"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestConsoleSaleWithNumberedChoices(t *testing.T) {
	ctx := context.Background()
	model := &cannedModel{responses: []openrouter.ChatCompletionResponse{
		toolResponse(t, llm.ToolSaleRegister, `{"cliente": "Juan", "items": [{"producto": "remera", "cantidad": 1, "color": "negro", "talle": "M"}]}`),
	}}
	input := "Vendí a Juan una remera negra M\n2\n4\nsalir\n"
	console, s, out := newTestConsole(t, model, Options{Console: true, UserID: 1}, input)

	_, _, err := s.Products.Create(ctx, shop.NewProduct{Name: "Remera", Category: "Remeras", Color: "Negro", Size: "M", Price: decimal.NewFromInt(8000), InitialStock: 3})
	require.NoError(t, err)
	_, _, err = s.Clients.Add(ctx, shop.NewClient{Name: "Juan Pérez", Phone: "1155551234"})
	require.NoError(t, err)

	require.NoError(t, console.Execute(ctx))
	text := out.String()
	assert.Contains(t, text, "[2] Cuenta corriente")
	assert.Contains(t, text, "[4] 60 días")
	assert.Contains(t, text, "✓ Vencimiento: 60 días")

	orders, err := s.Orders.Today(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "2026-12-17", orders[0].DueDate)
}

func TestConsoleOneShotJSON(t *testing.T) {
	model := &cannedModel{responses: []openrouter.ChatCompletionResponse{
		toolResponse(t, llm.ToolStockLow, `{}`),
	}}
	console, _, out := newTestConsole(t, model, Options{Query: "qué tiene stock bajo", JSON: true, UserID: 1}, "")

	require.NoError(t, console.Execute(context.Background()))
	var got jsonReply
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "reply", got.Kind)
	assert.Contains(t, got.Reply, "stock suficiente")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "(vacío)", preview("  "))
	assert.Equal(t, strings.Repeat("ñ", 120)+"...", preview(strings.Repeat("ñ", 130)))
}
