package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"nexo_bot/internal/llm"
	"nexo_bot/internal/logging"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/state"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

const (
	MsgProcessingError = "❌ Hubo un problema procesando tu mensaje. Intentá de nuevo."
	MsgTimeout         = "⏱️ Perdón, tardé demasiado en responder. Intentá de nuevo en un momento."
	MsgNotConfigured   = "⚠️ El asistente no está configurado todavía. Podés usar /stock, /deudas y /hoy."
	MsgBeSpecific      = "⚠️ No pude completar esa acción. Por favor, sé más específico (ej: \"Vendí 2 remeras negras M a Juan, pagó en efectivo\")."
	MsgNotUnderstood   = "No entendí. ¿Podés repetir?"

	msgSelectionExpired = "⏱️ Esta selección ya expiró. Repetí el pedido."
	msgInvalidOption    = "❌ Opción inválida."
)

// Orchestrator runs one conversational turn: compose the prompt, ask the
// model, dispatch at most one tool and return its output verbatim.
type Orchestrator struct {
	model      llm.ChatModel
	dispatcher *Dispatcher
	confirm    *Confirmations
	policy     Policy
	convs      *state.Store
	pending    *state.PendingStore
	shop       *shop.Shop
	logger     *zap.Logger

	mu       sync.Mutex
	failures map[int64]failedAttempt
}

type failedAttempt struct {
	tool  string
	count int
}

func NewOrchestrator(
	model llm.ChatModel,
	dispatcher *Dispatcher,
	confirm *Confirmations,
	policy Policy,
	convs *state.Store,
	pending *state.PendingStore,
	s *shop.Shop,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		model:      model,
		dispatcher: dispatcher,
		confirm:    confirm,
		policy:     policy,
		convs:      convs,
		pending:    pending,
		shop:       s,
		logger:     logger.Named("orchestrator"),
		failures:   make(map[int64]failedAttempt),
	}
}

// HandleMessage answers one free-text message. Errors are only returned for
// failures the user cannot recover from by retrying the message.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID int64, text string) (Result, error) {
	log := o.logger.With(zap.Int64("user_id", userID))

	res, handled, err := o.confirm.AnswerText(ctx, userID, text)
	if err != nil {
		return o.failure(log, err), nil
	}
	if handled {
		return res, nil
	}

	call, reply, err := o.decide(ctx, log, userID, text)
	if err != nil {
		return o.failure(log, err), nil
	}
	if call == nil {
		if reply == "" {
			reply = MsgNotUnderstood
		}
		o.remember(ctx, log, userID, text, reply)
		return Reply{Text: reply}, nil
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			log.Warn("invalid tool arguments", zap.String("tool", call.Function.Name), zap.Error(err))
			return Reply{Text: "❌ Error: " + friendlyError(fmt.Errorf("%w: %v", errInvalidArgs, err))}, nil
		}
	}

	result, record, err := o.dispatcher.Dispatch(ctx, call.Function.Name, args, text)
	if err != nil {
		return o.failure(log, err), nil
	}
	return o.deliver(ctx, log, userID, text, result, record, true), nil
}

// decide asks the model for a tool call. When the model answers in prose
// that claims an action the message called for, it is asked once more with
// a directive forcing tool use.
func (o *Orchestrator) decide(ctx context.Context, log *zap.Logger, userID int64, text string) (*llm.ToolCall, string, error) {
	messages := o.compose(ctx, log, userID, text)

	msg, err := o.chat(ctx, log, messages)
	if err != nil {
		return nil, "", err
	}
	if call, ok := toolCallFrom(msg); ok {
		return &call, "", nil
	}
	reply := strings.TrimSpace(msg.Content.Text)
	if !o.policy.ExpectsTool(text) || !o.policy.ClaimsAction(reply) {
		return nil, reply, nil
	}

	log.Warn("reply claims an action without a tool call, retrying",
		zap.String("reply", logging.Preview(reply, 120)),
	)
	messages = append(messages,
		openrouter.ChatCompletionMessage{
			Role:    openrouter.ChatMessageRoleAssistant,
			Content: openrouter.Content{Text: reply},
		},
		openrouter.SystemMessage(llm.ForceToolDirective),
	)
	msg, err = o.chat(ctx, log, messages)
	if err != nil {
		return nil, "", err
	}
	if call, ok := toolCallFrom(msg); ok {
		return &call, "", nil
	}
	log.Warn("retry produced no tool call")
	return nil, MsgBeSpecific, nil
}

func (o *Orchestrator) chat(ctx context.Context, log *zap.Logger, messages []openrouter.ChatCompletionMessage) (openrouter.ChatCompletionMessage, error) {
	resp, err := o.model.ChatWithMessages(ctx, messages, llm.ToolSchemas())
	if err != nil {
		return openrouter.ChatCompletionMessage{}, err
	}
	logLLMUsage(log, resp)
	if len(resp.Choices) == 0 {
		return openrouter.ChatCompletionMessage{}, llm.ErrEmptyResponse
	}
	msg := resp.Choices[0].Message
	log.Debug("llm response",
		zap.String("content", logging.Preview(msg.Content.Text, 200)),
		zap.Int("tool_calls", len(msg.ToolCalls)),
	)
	return msg, nil
}

// toolCallFrom takes the first structured call, or one the model wrote out
// as JSON in its text.
func toolCallFrom(msg openrouter.ChatCompletionMessage) (llm.ToolCall, bool) {
	if len(msg.ToolCalls) > 0 {
		return msg.ToolCalls[0], true
	}
	return llm.ExtractToolCall(msg.Content.Text)
}

func (o *Orchestrator) compose(ctx context.Context, log *zap.Logger, userID int64, text string) []openrouter.ChatCompletionMessage {
	system := llm.SystemPrompt
	if prefs, err := o.shop.Learning.ApprovedPreferences(ctx); err != nil {
		log.Warn("loading preferences", zap.Error(err))
	} else {
		system = llm.BuildSystemPrompt(prefs)
	}

	history, err := o.convs.History(ctx, userID)
	if err != nil {
		log.Warn("loading history", zap.Error(err))
	}

	messages := make([]openrouter.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openrouter.SystemMessage(system))
	for _, m := range history {
		switch m.Role {
		case state.RoleUser:
			messages = append(messages, openrouter.UserMessage(m.Content))
		case state.RoleAssistant:
			messages = append(messages, openrouter.ChatCompletionMessage{
				Role:    openrouter.ChatMessageRoleAssistant,
				Content: openrouter.Content{Text: m.Content},
			})
		}
	}
	return append(messages, openrouter.UserMessage(text))
}

// deliver records the outcome of a dispatched tool. Confirmation and
// selection turns are kept out of the history.
func (o *Orchestrator) deliver(ctx context.Context, log *zap.Logger, userID int64, userText string, result Result, record toolCallRecord, remember bool) Result {
	switch r := result.(type) {
	case Reply:
		if remember {
			o.remember(ctx, log, userID, userText, r.Text)
		}
		o.learn(ctx, log, userID, userText, r.Text, record)
	case NeedsConfirmation:
		o.confirm.Begin(userID, r, userText)
	case NeedsSelection:
		o.pending.SaveSelection(userID, state.Selection{
			Kind:            r.Type,
			Action:          r.Action,
			Args:            r.Args,
			Slot:            r.Slot,
			OriginalMessage: userText,
			Candidates:      r.Candidates,
		})
	}
	return result
}

func (o *Orchestrator) remember(ctx context.Context, log *zap.Logger, userID int64, userText, reply string) {
	if err := o.convs.AppendExchange(ctx, userID, userText, reply); err != nil {
		log.Warn("saving history", zap.Error(err))
	}
}

// learn records observations about failed or corrected exchanges. It never
// affects the reply.
func (o *Orchestrator) learn(ctx context.Context, log *zap.Logger, userID int64, userText, reply string, record toolCallRecord) {
	failed := strings.Contains(reply, "❌")

	o.mu.Lock()
	prev := o.failures[userID]
	attempts := 0
	if failed {
		attempts = 1
		if prev.tool == record.Name {
			attempts = prev.count + 1
		}
		o.failures[userID] = failedAttempt{tool: record.Name, count: attempts}
	} else {
		delete(o.failures, userID)
	}
	o.mu.Unlock()

	finding, ok := shop.AnalyzeMessage(userText, reply, attempts)
	if !ok {
		return
	}
	detail := fmt.Sprintf("%s: %s", record.Name, logging.Preview(reply, 200))
	if _, err := o.shop.Learning.AddObservation(ctx, finding.Type, detail, finding.Suggestion, userText); err != nil {
		log.Warn("recording observation", zap.Error(err))
	}
}

// Select replays a paused tool call with the entity the user picked.
func (o *Orchestrator) Select(ctx context.Context, userID int64, candidateID string) (Result, error) {
	log := o.logger.With(zap.Int64("user_id", userID))
	sel, ok := o.pending.TakeSelection(userID)
	if !ok {
		return Reply{Text: msgSelectionExpired}, nil
	}
	if !sel.Has(candidateID) {
		return Reply{Text: msgInvalidOption}, nil
	}

	args := cloneArgs(sel.Args)
	if err := setSlot(args, sel.Slot, IDRef(candidateID)); err != nil {
		return o.failure(log, err), nil
	}
	result, record, err := o.dispatcher.Dispatch(ctx, sel.Action, args, sel.OriginalMessage)
	if err != nil {
		return o.failure(log, err), nil
	}
	return o.deliver(ctx, log, userID, sel.OriginalMessage, result, record, sel.Action != ActionAttachPhoto), nil
}

// PendingSelection exposes the paused selection so the transport can label
// the chosen candidate.
func (o *Orchestrator) PendingSelection(userID int64) (state.Selection, bool) {
	return o.pending.PeekSelection(userID)
}

func (o *Orchestrator) CancelSelection(userID int64) {
	o.pending.ClearSelection(userID)
}

// CancelConfirmation drops a pending payment or deadline dialogue. The sale
// already recorded stays as it is.
func (o *Orchestrator) CancelConfirmation(userID int64) {
	o.confirm.Cancel(userID)
}

// AttachPhoto links a photo file id to the product named by query.
func (o *Orchestrator) AttachPhoto(ctx context.Context, userID int64, query, fileID string) (Result, error) {
	log := o.logger.With(zap.Int64("user_id", userID))
	args := map[string]any{"producto": query, "foto": fileID}
	result, record, err := o.dispatcher.Dispatch(ctx, ActionAttachPhoto, args, query)
	if err != nil {
		return o.failure(log, err), nil
	}
	return o.deliver(ctx, log, userID, query, result, record, false), nil
}

func (o *Orchestrator) ChoosePayment(ctx context.Context, userID int64, choice string) (Result, error) {
	res, err := o.confirm.ChoosePayment(ctx, userID, choice)
	if err != nil {
		return o.failure(o.logger.With(zap.Int64("user_id", userID)), err), nil
	}
	return res, nil
}

func (o *Orchestrator) ChooseDeadline(ctx context.Context, userID int64, choice string) (Result, error) {
	res, err := o.confirm.ChooseDeadline(ctx, userID, choice)
	if err != nil {
		return o.failure(o.logger.With(zap.Int64("user_id", userID)), err), nil
	}
	return res, nil
}

// Reset clears history, the pending photo and every pending dialogue.
func (o *Orchestrator) Reset(ctx context.Context, userID int64) error {
	o.pending.Clear(userID)
	o.mu.Lock()
	delete(o.failures, userID)
	o.mu.Unlock()
	return o.convs.Reset(ctx, userID)
}

// failure turns an error into the reply the user sees. Details stay in the log.
func (o *Orchestrator) failure(log *zap.Logger, err error) Result {
	switch {
	case isDomainError(err):
		return Reply{Text: "❌ Error: " + friendlyError(err)}
	case errors.Is(err, llm.ErrTimeout):
		log.Warn("llm timeout", zap.Error(err))
		return Reply{Text: MsgTimeout}
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("llm not configured")
		return Reply{Text: MsgNotConfigured}
	default:
		log.Error("turn failed", zap.Error(err))
		return Reply{Text: MsgProcessingError}
	}
}

func logLLMUsage(logger *zap.Logger, resp openrouter.ChatCompletionResponse) {
	if resp.Usage == nil {
		return
	}
	logger.Info("llm usage",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Float64("cost", resp.Usage.Cost),
	)
}
