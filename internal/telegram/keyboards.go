package telegram

import (
	"errors"
	"strings"

	"nexo_bot/internal/agent"
	"nexo_bot/internal/state"
)

// Callback payloads are "prefix:action[:extra]".
const (
	PrefixPaymentStatus = "payment_status"
	PrefixDeadline      = "deadline"
	PrefixSelectProduct = "select_product"
	PrefixSelectClient  = "select_client"
	PrefixCancel        = "cancel"
	PrefixNoop          = "noop"
	PrefixBackToMenu    = "back_to_menu"

	cancelSelection = "selection"
	cancelAction    = "action"
)

var ErrMalformedCallback = errors.New("malformed callback data")

type Callback struct {
	Prefix string
	Action string
	Extra  string
}

func ParseCallback(data string) (Callback, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Callback{}, ErrMalformedCallback
	}
	parts := strings.SplitN(data, ":", 3)
	cb := Callback{Prefix: parts[0]}
	if len(parts) > 1 {
		cb.Action = parts[1]
	}
	if len(parts) > 2 {
		cb.Extra = parts[2]
	}
	switch cb.Prefix {
	case PrefixNoop, PrefixBackToMenu:
		return cb, nil
	case PrefixPaymentStatus, PrefixDeadline, PrefixSelectProduct, PrefixSelectClient, PrefixCancel:
		if cb.Action == "" {
			return Callback{}, ErrMalformedCallback
		}
		return cb, nil
	default:
		return Callback{}, ErrMalformedCallback
	}
}

func callbackData(parts ...string) string {
	return strings.Join(parts, ":")
}

func button(text string, data ...string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, CallbackData: callbackData(data...)}
}

func PaymentKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{
			button("✅ Pagó", PrefixPaymentStatus, agent.ChoicePaid),
			button("📒 Cuenta corriente", PrefixPaymentStatus, agent.ChoiceCredit),
		},
		{button("💵 Pago parcial", PrefixPaymentStatus, agent.ChoicePartial)},
		{button("❌ Cancelar", PrefixCancel, cancelAction)},
	}}
}

func DeadlineKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{
			button("7 días", PrefixDeadline, "7"),
			button("15 días", PrefixDeadline, "15"),
		},
		{
			button("30 días", PrefixDeadline, "30"),
			button("60 días", PrefixDeadline, "60"),
		},
		{
			button("📅 Otra fecha", PrefixDeadline, agent.DeadlineCustom),
			button("Sin fecha", PrefixDeadline, agent.DeadlineNone),
		},
	}}
}

// SelectionKeyboard offers one button per candidate plus a cancel button.
func SelectionKeyboard(kind state.SelectionKind, candidates []state.Candidate) *InlineKeyboardMarkup {
	prefix := PrefixSelectProduct
	if kind == state.SelectClient {
		prefix = PrefixSelectClient
	}
	rows := make([][]InlineKeyboardButton, 0, len(candidates)+1)
	for _, c := range candidates {
		rows = append(rows, []InlineKeyboardButton{button(c.Label, prefix, c.ID)})
	}
	rows = append(rows, []InlineKeyboardButton{button("❌ Cancelar", PrefixCancel, cancelSelection)})
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

// MenuKeyboard closes command reports with a way back to the command list.
func MenuKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{button("🏠 Volver al menú", PrefixBackToMenu)},
	}}
}

// keyboardFor picks the keyboard that answers a confirmation prompt.
// Prompts that expect typed text get none.
func keyboardFor(kind agent.ConfirmationKind) *InlineKeyboardMarkup {
	switch kind {
	case agent.ConfirmPayment:
		return PaymentKeyboard()
	case agent.ConfirmDeadline:
		return DeadlineKeyboard()
	default:
		return nil
	}
}
