package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
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

const (
	ownerID    int64 = 100
	strangerID int64 = 200
)

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

type apiCall struct {
	Method string
	Body   map[string]any
}

// recordingAPI is a fake Bot API that stores every call it receives.
type recordingAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (a *recordingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	raw, _ := io.ReadAll(r.Body)
	body := map[string]any{}
	_ = json.Unmarshal(raw, &body)

	a.mu.Lock()
	a.calls = append(a.calls, apiCall{Method: method, Body: body})
	n := len(a.calls)
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage", "editMessageText":
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"chat":{"id":1},"date":0}}`, n)
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (a *recordingAPI) byMethod(method string) []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []apiCall
	for _, c := range a.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (a *recordingAPI) lastText(t *testing.T, method string) string {
	t.Helper()
	calls := a.byMethod(method)
	require.NotEmpty(t, calls, "no %s calls", method)
	text, _ := calls[len(calls)-1].Body["text"].(string)
	return text
}

func (a *recordingAPI) lastMarkup(t *testing.T, method string) string {
	t.Helper()
	calls := a.byMethod(method)
	require.NotEmpty(t, calls, "no %s calls", method)
	raw, err := json.Marshal(calls[len(calls)-1].Body["reply_markup"])
	require.NoError(t, err)
	return string(raw)
}

type stubModel struct {
	responses []openrouter.ChatCompletionResponse
	n         int
}

func (m *stubModel) ChatWithMessages(context.Context, []openrouter.ChatCompletionMessage, []openrouter.Tool) (openrouter.ChatCompletionResponse, error) {
	if m.n >= len(m.responses) {
		return openrouter.ChatCompletionResponse{}, llm.ErrEmptyResponse
	}
	resp := m.responses[m.n]
	m.n++
	return resp, nil
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

type botFixture struct {
	bot   *Bot
	api   *recordingAPI
	shop  *shop.Shop
	store *sheets.MemoryStore
	model *stubModel
}

func newBotFixture(t *testing.T) botFixture {
	t.Helper()
	api := &recordingAPI{}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	store := sheets.NewMemoryStore()
	s := shop.New(store, 0, func() time.Time { return testNow }, logger)
	convs := state.NewStore(state.NewMemoryBackend(), state.StoreOptions{Now: func() time.Time { return testNow }}, logger)
	pending := state.NewPendingStore(state.DefaultPendingTTL, func() time.Time { return testNow })
	model := &stubModel{}
	dispatcher := agent.NewDispatcher(s, logger)
	orch := agent.NewOrchestrator(model, dispatcher, agent.NewConfirmations(s, pending, logger), agent.NewRegexPolicy(), convs, pending, s, logger)

	cfg := config.Config{OwnerTelegramID: fmt.Sprintf("%d", ownerID)}
	client := newClient(server.URL, "TEST", 5*time.Second, logger)
	return botFixture{
		bot:   NewBot(cfg, client, orch, dispatcher, s, convs, logger),
		api:   api,
		shop:  s,
		store: store,
		model: model,
	}
}

func textUpdate(from int64, text string) Update {
	return Update{UpdateID: 1, Message: &Message{
		MessageID: 10,
		From:      &User{ID: from, FirstName: "Sofi"},
		Chat:      Chat{ID: from},
		Text:      text,
	}}
}

func callbackUpdate(from int64, data string) Update {
	return Update{UpdateID: 2, CallbackQuery: &CallbackQuery{
		ID:      "cb1",
		From:    User{ID: from},
		Message: &Message{MessageID: 55, Chat: Chat{ID: from}},
		Data:    data,
	}}
}

func mustProduct(t *testing.T, s *shop.Shop, name, color, size string, stock int) shop.Product {
	t.Helper()
	p, _, err := s.Products.Create(context.Background(), shop.NewProduct{
		Name: name, Category: "Remeras", Color: color, Size: size,
		Price: decimal.NewFromInt(8000), InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestUnauthorizedSenderIsRejected(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(context.Background(), textUpdate(strangerID, "vendí una remera"))

	assert.Contains(t, f.api.lastText(t, "sendMessage"), "No estás autorizado")
	assert.Equal(t, 0, f.model.n)
}

func TestWhoamiIsOpenToEveryone(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(context.Background(), textUpdate(strangerID, "/whoami"))
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "200")
}

func TestStockCommand(t *testing.T) {
	f := newBotFixture(t)
	mustProduct(t, f.shop, "Remera", "Negro", "M", 7)

	f.bot.HandleUpdate(context.Background(), textUpdate(ownerID, "/stock@nexo_bot remera"))
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "Remera")
	assert.Equal(t, 0, f.model.n)
	assert.Contains(t, f.api.lastMarkup(t, "sendMessage"), PrefixBackToMenu)
}

func TestBackToMenuShowsCommands(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(context.Background(), textUpdate(ownerID, "/deudas"))
	assert.Contains(t, f.api.lastMarkup(t, "sendMessage"), PrefixBackToMenu)

	f.bot.HandleUpdate(context.Background(), callbackUpdate(ownerID, PrefixBackToMenu))
	text := f.api.lastText(t, "editMessageText")
	assert.Contains(t, text, "Menú principal")
	assert.Contains(t, text, "/deudas")
}

func TestHoyListsLowStock(t *testing.T) {
	f := newBotFixture(t)
	mustProduct(t, f.shop, "Remera", "Negro", "M", 1)

	f.bot.HandleUpdate(context.Background(), textUpdate(ownerID, "/hoy"))
	text := f.api.lastText(t, "sendMessage")
	assert.Contains(t, text, "stock bajo")
	assert.Contains(t, text, "Remera Negro M: 1")
}

func TestVoiceIsNotSupported(t *testing.T) {
	f := newBotFixture(t)
	u := textUpdate(ownerID, "")
	u.Message.Voice = &Voice{FileID: "v1", Duration: 3}
	f.bot.HandleUpdate(context.Background(), u)
	assert.Equal(t, msgVoice, f.api.lastText(t, "sendMessage"))
}

func TestContactCreatesClient(t *testing.T) {
	f := newBotFixture(t)
	u := textUpdate(ownerID, "")
	u.Message.Contact = &Contact{FirstName: "María", LastName: "López", PhoneNumber: "+5491155550000"}

	f.bot.HandleUpdate(context.Background(), u)
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "Cliente registrado: María López")
	assert.Equal(t, 1, f.store.Len(sheets.SheetClients))

	f.bot.HandleUpdate(context.Background(), u)
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "Cliente ya existe")
	assert.Equal(t, 1, f.store.Len(sheets.SheetClients))
}

func TestPhotoThenProductName(t *testing.T) {
	ctx := context.Background()
	f := newBotFixture(t)
	p := mustProduct(t, f.shop, "Campera", "Negro", "L", 2)

	u := textUpdate(ownerID, "")
	u.Message.Photo = []PhotoSize{{FileID: "small", Width: 90, Height: 90}, {FileID: "big", Width: 800, Height: 800}}
	f.bot.HandleUpdate(ctx, u)
	assert.Equal(t, msgPhotoReceived, f.api.lastText(t, "sendMessage"))

	f.bot.HandleUpdate(ctx, textUpdate(ownerID, "campera negra L"))
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "Foto asociada")
	assert.Equal(t, 0, f.model.n)

	got, err := f.shop.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "big", got.PhotoURL)
}

func TestPhotoKeptWhenProductNotFound(t *testing.T) {
	ctx := context.Background()
	f := newBotFixture(t)
	p := mustProduct(t, f.shop, "Campera", "Negro", "L", 2)

	u := textUpdate(ownerID, "")
	u.Message.Photo = []PhotoSize{{FileID: "big", Width: 800, Height: 800}}
	f.bot.HandleUpdate(ctx, u)

	f.bot.HandleUpdate(ctx, textUpdate(ownerID, "bufanda"))
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "la foto sigue guardada")

	f.bot.HandleUpdate(ctx, textUpdate(ownerID, "campera negra L"))
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "Foto asociada")
	assert.Equal(t, 0, f.model.n)

	got, err := f.shop.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "big", got.PhotoURL)

	f.bot.HandleUpdate(ctx, textUpdate(ownerID, "hola"))
	assert.Equal(t, agent.MsgProcessingError, f.api.lastText(t, "sendMessage"), "photo must be consumed once attached")
}

func TestCaptionedPhotoWaitsWhenProductNotFound(t *testing.T) {
	ctx := context.Background()
	f := newBotFixture(t)
	p := mustProduct(t, f.shop, "Campera", "Negro", "L", 2)

	u := textUpdate(ownerID, "")
	u.Message.Caption = "bufanda"
	u.Message.Photo = []PhotoSize{{FileID: "cap", Width: 800, Height: 800}}
	f.bot.HandleUpdate(ctx, u)
	assert.Contains(t, f.api.lastText(t, "sendMessage"), "la foto sigue guardada")

	f.bot.HandleUpdate(ctx, textUpdate(ownerID, "campera"))
	got, err := f.shop.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cap", got.PhotoURL)
}

func TestSaleConfirmationThroughKeyboard(t *testing.T) {
	ctx := context.Background()
	f := newBotFixture(t)
	mustProduct(t, f.shop, "Remera", "Negro", "M", 5)
	_, _, err := f.shop.Clients.Add(ctx, shop.NewClient{Name: "Juan Pérez", Phone: "1155551234"})
	require.NoError(t, err)
	f.model.responses = []openrouter.ChatCompletionResponse{
		toolResponse(t, llm.ToolSaleRegister, `{"cliente": "Juan", "items": [{"producto": "remera", "cantidad": 2, "color": "negro", "talle": "M"}]}`),
	}

	f.bot.HandleUpdate(ctx, textUpdate(ownerID, "Vendí a Juan 2 remeras negras M"))
	sent := f.api.byMethod("sendMessage")
	require.NotEmpty(t, sent)
	markup, err := json.Marshal(sent[len(sent)-1].Body["reply_markup"])
	require.NoError(t, err)
	assert.Contains(t, string(markup), "payment_status:paid")
	assert.Contains(t, string(markup), "payment_status:credit")

	f.bot.HandleUpdate(ctx, callbackUpdate(ownerID, "payment_status:credit"))
	edited := f.api.byMethod("editMessageText")
	require.Len(t, edited, 1)
	markup, err = json.Marshal(edited[0].Body["reply_markup"])
	require.NoError(t, err)
	assert.Contains(t, string(markup), "deadline:30")

	f.bot.HandleUpdate(ctx, callbackUpdate(ownerID, "deadline:30"))
	assert.Contains(t, f.api.lastText(t, "editMessageText"), "30 días")
	assert.NotEmpty(t, f.api.byMethod("answerCallbackQuery"))

	orders, err := f.shop.Orders.Today(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.False(t, orders[0].Paid)
	assert.Equal(t, "2026-11-17", orders[0].DueDate)
}

func TestMalformedCallback(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(context.Background(), callbackUpdate(ownerID, "weird"))
	assert.Equal(t, msgBadCallback, f.api.lastText(t, "sendMessage"))
}

func TestCancelCommandResets(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(context.Background(), textUpdate(ownerID, "/cancelar"))
	assert.Equal(t, msgReset, f.api.lastText(t, "sendMessage"))
}

func TestUpstreamFailureGetsGenericReply(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(context.Background(), textUpdate(ownerID, "hola"))
	assert.Equal(t, agent.MsgProcessingError, f.api.lastText(t, "sendMessage"))
}
