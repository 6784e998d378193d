package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nexo_bot/internal/config"
	"nexo_bot/internal/shop"

	openrouter "github.com/revrost/go-openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTimeoutFor(t *testing.T) {
	slow, fast := 30*time.Second, 10*time.Second
	assert.Equal(t, fast, TimeoutFor("meta-llama/llama-3.1-8b-instruct", slow, fast))
	assert.Equal(t, fast, TimeoutFor("openai/gpt-4o-mini", slow, fast))
	assert.Equal(t, fast, TimeoutFor("google/gemini-2.0-Flash", slow, fast))
	assert.Equal(t, slow, TimeoutFor("anthropic/claude-sonnet-4", slow, fast))
}

func TestExtractToolCall(t *testing.T) {
	text := `Voy a consultar el stock. {"name": "stock_check", "parameters": {"producto": "remera {negra}"}} listo`
	call, ok := ExtractToolCall(text)
	require.True(t, ok)
	assert.Equal(t, ToolStockCheck, call.Function.Name)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(call.Function.Arguments), &args))
	assert.Equal(t, "remera {negra}", args["producto"])

	nested := `{"tool": {"name": "sales_today", "parameters": {}}}`
	call, ok = ExtractToolCall(nested)
	require.True(t, ok)
	assert.Equal(t, ToolSalesToday, call.Function.Name)
	assert.Equal(t, "{}", call.Function.Arguments)

	_, ok = ExtractToolCall("✓ Registré la venta de 2 remeras")
	assert.False(t, ok)
	_, ok = ExtractToolCall(`{"name": "stock_check"}`)
	assert.False(t, ok)
	_, ok = ExtractToolCall(`{"name": "stock_check", "parameters": {`)
	assert.False(t, ok)
}

func TestToolSchemasAreUnique(t *testing.T) {
	names := ToolNames()
	assert.Len(t, names, 17)
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], n)
		seen[n] = true
	}
	assert.True(t, seen[ToolSaleRegister])
	assert.True(t, seen[ToolWhatsAppLink])
}

func TestBuildSystemPrompt(t *testing.T) {
	assert.Equal(t, SystemPrompt, BuildSystemPrompt(nil))
	assert.Equal(t, SystemPrompt, BuildSystemPrompt([]shop.Preference{{Type: shop.PreferenceAbbreviation, Term: "rem", Mapping: "remera"}}))

	prompt := BuildSystemPrompt([]shop.Preference{
		{Type: shop.PreferenceClientAlias, Term: "la flaca", Mapping: "Ana López", Approved: true},
		{Type: shop.PreferenceProductAlias, Term: "musculosa", Mapping: "Remera sin mangas", Extra: "verano", Approved: true},
	})
	require.True(t, strings.HasPrefix(prompt, SystemPrompt))
	assert.Contains(t, prompt, "🧠 PREFERENCIAS APRENDIDAS")
	assert.Contains(t, prompt, "PRODUCTOS PERSONALIZADOS:\n- \"musculosa\" → Remera sin mangas (verano)")
	assert.Contains(t, prompt, "CLIENTES PERSONALIZADOS:\n- \"la flaca\" → Ana López")
	assert.Less(t, strings.Index(prompt, "PRODUCTOS"), strings.Index(prompt, "CLIENTES PERSONALIZADOS"))
}

func TestClientNotConfigured(t *testing.T) {
	c, err := NewClient(config.Config{LLMModel: "x"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	_, err = c.ChatWithMessages(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "big-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"big-model","choices":[{"index":0,"message":{"role":"assistant","content":"hola"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	c, err := NewClient(config.Config{
		LLMModel:       "big-model",
		LLMAPIKey:      "key",
		LLMBaseURL:     server.URL,
		LLMTimeout:     5 * time.Second,
		LLMFastTimeout: time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	resp, err := c.ChatWithMessages(context.Background(), []openrouter.ChatCompletionMessage{openrouter.UserMessage("hola")}, ToolSchemas())
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hola", resp.Choices[0].Message.Content.Text)
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c, err := NewClient(config.Config{
		LLMModel:       "tiny-8b",
		LLMAPIKey:      "key",
		LLMBaseURL:     server.URL,
		LLMTimeout:     5 * time.Second,
		LLMFastTimeout: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.ChatWithMessages(context.Background(), []openrouter.ChatCompletionMessage{openrouter.UserMessage("hola")}, nil)
	require.ErrorIs(t, err, ErrTimeout)
}
