package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"nexo_bot/internal/agent"
	"nexo_bot/internal/config"
	"nexo_bot/internal/llm"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/state"

	"go.uber.org/zap"
)

const (
	updateTimeout = 2 * time.Minute
	hoyLowStock   = 5

	msgPhotoReceived  = "📷 Foto recibida. ¿De qué producto es? Escribime el nombre (tenés 5 minutos)."
	msgVoice          = "🎤 Todavía no entiendo mensajes de voz. Escribime el pedido, por favor."
	msgUnknownCommand = "No conozco ese comando. Usá /help para ver lo que puedo hacer."
	msgCancelled      = "❌ Cancelado."
	msgReset          = "🔄 Listo, empezamos de nuevo. Borré el historial y las acciones pendientes."
	msgBadCallback    = "Acción no reconocida"
)

const menuText = `🏠 Menú principal

/stock - Resumen de stock
/deudas - Lista de deudores
/hoy - Resumen del día
/help - Ayuda completa`

const helpText = `🤖 Nexo, asistente de la tienda

Escribime como le hablarías a un empleado:
• "Vendí 2 remeras negras M a Juan, pagó en efectivo"
• "Entraron 10 jeans azules 42"
• "¿Cuánto debe María?"
• "Juan pagó 5000"
• "Crear buzo gris talles S, M, L a 25000, 3 de cada uno"

Comandos:
/stock [producto] - stock actual
/deudas - clientes con deuda
/hoy - ventas de hoy y stock bajo
/cancelar - borrar historial y pendientes
/whoami - tu ID de Telegram
/help - esta ayuda

📷 Mandá una foto y después el nombre del producto para asociarla.
👤 Compartí un contacto para darlo de alta como cliente.`

// Bot turns Telegram updates into orchestrator calls and renders results.
type Bot struct {
	client     *Client
	orch       *agent.Orchestrator
	dispatcher *agent.Dispatcher
	shop       *shop.Shop
	convs      *state.Store
	auth       *Authorizer
	limiter    *RateLimiter
	logger     *zap.Logger

	handle HandlerFunc
	wg     sync.WaitGroup
}

func NewBot(
	cfg config.Config,
	client *Client,
	orch *agent.Orchestrator,
	dispatcher *agent.Dispatcher,
	s *shop.Shop,
	convs *state.Store,
	logger *zap.Logger,
) *Bot {
	b := &Bot{
		client:     client,
		orch:       orch,
		dispatcher: dispatcher,
		shop:       s,
		convs:      convs,
		auth:       NewAuthorizer(cfg.OwnerIDs()),
		limiter:    NewRateLimiter(DefaultRateLimit, DefaultRateWindow),
		logger:     logger.Named("bot"),
	}
	b.handle = chain(b.route, b.recoverer, b.logUpdate, b.authorize, b.rateLimit)
	if len(b.auth.Owners()) == 0 {
		b.logger.Warn("no owner ids configured, every sender will be rejected")
	}
	return b
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) {
	_ = b.handle(ctx, &u)
}

// Enqueue processes an update in the background so the webhook can answer
// Telegram right away. The update outlives the request context.
func (b *Bot) Enqueue(ctx context.Context, u Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
		defer cancel()
		b.HandleUpdate(ctx, u)
	}()
}

// Wait blocks until background updates finish or ctx is done.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) Client() *Client {
	return b.client
}

func (b *Bot) Owners() []int64 {
	return b.auth.Owners()
}

func (b *Bot) route(ctx context.Context, u *Update) error {
	switch {
	case u.CallbackQuery != nil:
		return b.handleCallback(ctx, u.CallbackQuery)
	case u.Message == nil || u.Message.From == nil:
		return nil
	case len(u.Message.Photo) > 0:
		return b.handlePhoto(ctx, u.Message)
	case u.Message.Contact != nil:
		return b.handleContact(ctx, u.Message)
	case u.Message.Voice != nil:
		return b.send(ctx, u.Message.Chat.ID, msgVoice)
	}
	text := strings.TrimSpace(u.Message.Text)
	if text == "" {
		return nil
	}
	if cmd, arg := parseCommand(text); cmd != "" {
		return b.handleCommand(ctx, u.Message, cmd, arg)
	}
	return b.handleText(ctx, u.Message, text)
}

// parseCommand splits "/stock@nexo_bot remera" into "stock" and "remera".
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, arg, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(arg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *Message, cmd, arg string) error {
	chatID, userID := msg.Chat.ID, msg.From.ID
	switch cmd {
	case "start":
		name := strings.TrimSpace(msg.From.FirstName)
		if name == "" {
			name = "!"
		} else {
			name = " " + name + "!"
		}
		return b.send(ctx, chatID, fmt.Sprintf("👋 ¡Hola%s Soy Nexo, tu asistente de la tienda.\n\n%s", name, helpText))
	case "help", "ayuda":
		return b.send(ctx, chatID, helpText)
	case "whoami":
		text := fmt.Sprintf("🆔 Tu ID de Telegram: %d", userID)
		if msg.From.Username != "" {
			text += "\nUsuario: @" + msg.From.Username
		}
		return b.send(ctx, chatID, text)
	case "stock":
		return b.runTool(ctx, chatID, llm.ToolStockCheck, map[string]any{"producto": arg}, msg.Text)
	case "deudas":
		return b.runTool(ctx, chatID, llm.ToolDebtList, map[string]any{}, msg.Text)
	case "hoy":
		return b.today(ctx, chatID, msg.Text)
	case "cancelar", "cancel", "reset":
		if err := b.orch.Reset(ctx, userID); err != nil {
			return err
		}
		return b.send(ctx, chatID, msgReset)
	default:
		return b.send(ctx, chatID, msgUnknownCommand)
	}
}

func (b *Bot) runTool(ctx context.Context, chatID int64, tool string, args map[string]any, text string) error {
	res, _, err := b.dispatcher.Dispatch(ctx, tool, args, text)
	if err != nil {
		return err
	}
	if _, ok := res.(agent.Reply); ok {
		return b.sendWithMenu(ctx, chatID, res.Message())
	}
	return b.respond(ctx, chatID, 0, res)
}

// today shows today's sales followed by the first low-stock products.
func (b *Bot) today(ctx context.Context, chatID int64, text string) error {
	res, _, err := b.dispatcher.Dispatch(ctx, llm.ToolSalesToday, map[string]any{}, text)
	if err != nil {
		return err
	}
	out := res.Message()
	low, err := b.shop.Products.LowStock(ctx)
	if err != nil {
		return err
	}
	if len(low) > 0 {
		out += "\n\n" + agent.FormatLowStock(low, hoyLowStock)
	}
	return b.sendWithMenu(ctx, chatID, out)
}

func (b *Bot) handleText(ctx context.Context, msg *Message, text string) error {
	chatID, userID := msg.Chat.ID, msg.From.ID
	b.typing(ctx, chatID)

	fileID, ok, err := b.convs.PendingPhoto(ctx, userID)
	if err != nil {
		b.logger.Warn("reading pending photo", zap.Int64("user_id", userID), zap.Error(err))
	}
	if ok {
		res, err := b.attachPhoto(ctx, userID, text, fileID)
		if err != nil {
			return err
		}
		return b.respond(ctx, chatID, 0, res)
	}

	res, err := b.orch.HandleMessage(ctx, userID, text)
	if err != nil {
		return err
	}
	return b.respond(ctx, chatID, 0, res)
}

// attachPhoto links fileID to the product named by query. The photo stays
// pending while no product matches, so the next text can name it again.
func (b *Bot) attachPhoto(ctx context.Context, userID int64, query, fileID string) (agent.Result, error) {
	res, err := b.orch.AttachPhoto(ctx, userID, query, fileID)
	if err != nil {
		return nil, err
	}
	if r, ok := res.(agent.Reply); ok && r.NotFound {
		err = b.convs.SetPendingPhoto(ctx, userID, fileID)
	} else {
		err = b.convs.ClearPendingPhoto(ctx, userID)
	}
	if err != nil {
		b.logger.Warn("updating pending photo", zap.Int64("user_id", userID), zap.Error(err))
	}
	return res, nil
}

// handlePhoto links a captioned photo right away; otherwise it waits for the
// product name in the next text message.
func (b *Bot) handlePhoto(ctx context.Context, msg *Message) error {
	chatID, userID := msg.Chat.ID, msg.From.ID
	fileID := msg.LargestPhoto()
	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		res, err := b.attachPhoto(ctx, userID, caption, fileID)
		if err != nil {
			return err
		}
		return b.respond(ctx, chatID, 0, res)
	}
	if err := b.convs.SetPendingPhoto(ctx, userID, fileID); err != nil {
		return err
	}
	return b.send(ctx, chatID, msgPhotoReceived)
}

func (b *Bot) handleContact(ctx context.Context, msg *Message) error {
	c := msg.Contact
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	args := map[string]any{"nombre": name, "telefono": c.PhoneNumber}
	return b.runTool(ctx, msg.Chat.ID, llm.ToolClientAdd, args, "contacto compartido: "+name)
}

func (b *Bot) handleCallback(ctx context.Context, q *CallbackQuery) error {
	if err := b.client.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
		b.logger.Warn("answering callback", zap.Error(err))
	}
	if q.Message == nil {
		return nil
	}
	chatID, messageID, userID := q.Message.Chat.ID, q.Message.MessageID, q.From.ID

	cb, err := ParseCallback(q.Data)
	if err != nil {
		b.logger.Warn("bad callback", zap.String("data", q.Data), zap.Error(err))
		return b.send(ctx, chatID, msgBadCallback)
	}

	var res agent.Result
	switch cb.Prefix {
	case PrefixNoop:
		return nil
	case PrefixBackToMenu:
		return b.client.EditMessageText(ctx, chatID, messageID, menuText, nil)
	case PrefixPaymentStatus:
		res, err = b.orch.ChoosePayment(ctx, userID, cb.Action)
	case PrefixDeadline:
		res, err = b.orch.ChooseDeadline(ctx, userID, cb.Action)
	case PrefixSelectProduct, PrefixSelectClient:
		res, err = b.orch.Select(ctx, userID, cb.Action)
	case PrefixCancel:
		if cb.Action == cancelSelection {
			b.orch.CancelSelection(userID)
		} else {
			b.orch.CancelConfirmation(userID)
		}
		res = agent.Reply{Text: msgCancelled}
	}
	if err != nil {
		return err
	}
	return b.respond(ctx, chatID, messageID, res)
}

// respond renders a result, replacing the keyboard message when editID is set.
func (b *Bot) respond(ctx context.Context, chatID, editID int64, res agent.Result) error {
	if res == nil {
		return nil
	}
	text, markup := present(res)
	if editID != 0 {
		err := b.client.EditMessageText(ctx, chatID, editID, text, markup)
		if err == nil {
			return nil
		}
		b.logger.Warn("editing message, sending instead", zap.Error(err))
	}
	_, err := b.client.SendMessage(ctx, chatID, text, markup)
	return err
}

func present(res agent.Result) (string, *InlineKeyboardMarkup) {
	switch r := res.(type) {
	case agent.NeedsConfirmation:
		return r.Prompt, keyboardFor(r.Kind)
	case agent.NeedsSelection:
		return r.Prompt, SelectionKeyboard(r.Type, r.Candidates)
	default:
		return res.Message(), nil
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	_, err := b.client.SendMessage(ctx, chatID, text, nil)
	return err
}

// sendWithMenu sends a command report with a button back to the menu.
func (b *Bot) sendWithMenu(ctx context.Context, chatID int64, text string) error {
	_, err := b.client.SendMessage(ctx, chatID, text, MenuKeyboard())
	return err
}

func (b *Bot) typing(ctx context.Context, chatID int64) {
	if err := b.client.SendChatAction(ctx, chatID, "typing"); err != nil {
		b.logger.Debug("sending chat action", zap.Error(err))
	}
}
