package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"nexo_bot/internal/shop"
	"nexo_bot/internal/state"

	"go.uber.org/zap"
)

// Payment status choices offered after a sale.
const (
	ChoicePaid    = "paid"
	ChoiceCredit  = "credit"
	ChoicePartial = "partial"
)

// Deadline choices other than a number of days.
const (
	DeadlineCustom = "custom"
	DeadlineNone   = "none"
)

const (
	msgConfirmationExpired = "⏱️ Esta confirmación ya expiró o fue respondida."
	msgCustomDeadline      = "Indicame la fecha de vencimiento (ej: \"en 10 días\", \"el 25\", \"DD/MM/YYYY\")"
	msgBadAmount           = "❌ No entendí el monto. Escribí solo el número (ej: 5000)."
	msgBadDate             = "❌ No entendí la fecha. Probá con \"en 10 días\", \"el 25\" o \"DD/MM/YYYY\"."
)

var amountToken = regexp.MustCompile(`[\d][\d.,]*`)

// Confirmations drives the per-user dialogue that completes a recorded sale:
// payment_confirmation, then either partial_payment_amount followed by
// partial_payment_deadline, or deadline_selection; both deadline steps may
// go through custom_deadline_input.
type Confirmations struct {
	shop    *shop.Shop
	pending *state.PendingStore
	logger  *zap.Logger
}

func NewConfirmations(s *shop.Shop, pending *state.PendingStore, logger *zap.Logger) *Confirmations {
	return &Confirmations{shop: s, pending: pending, logger: logger.Named("confirm")}
}

// Begin stores the pending action for a confirmation the dispatcher asked for.
func (c *Confirmations) Begin(userID int64, need NeedsConfirmation, originalMessage string) {
	st := state.StatePaymentConfirmation
	if need.Kind == ConfirmDeadline {
		st = state.StateDeadlineSelection
	}
	c.pending.SaveAction(userID, state.Action{
		State:           st,
		OrderID:         need.OrderID,
		ClientID:        need.ClientID,
		OriginalMessage: originalMessage,
	})
	c.logger.Debug("confirmation started", zap.Int64("user_id", userID), zap.String("state", string(st)), zap.String("order", need.OrderID))
}

func (c *Confirmations) Cancel(userID int64) {
	c.pending.ClearAction(userID)
}

func (c *Confirmations) ChoosePayment(ctx context.Context, userID int64, choice string) (Result, error) {
	action, ok := c.pending.PeekAction(userID)
	if !ok || action.State != state.StatePaymentConfirmation {
		return Reply{Text: msgConfirmationExpired}, nil
	}

	switch choice {
	case ChoicePaid:
		if err := c.shop.Orders.SetPaid(ctx, action.OrderID, true); err != nil {
			return nil, err
		}
		c.pending.ClearAction(userID)
		return Reply{Text: "✓ Venta registrada como pagada."}, nil
	case ChoiceCredit:
		action.State = state.StateDeadlineSelection
		c.pending.SaveAction(userID, action)
		return NeedsConfirmation{
			Kind:     ConfirmDeadline,
			Prompt:   "📒 Queda a cuenta corriente.\n\n¿Cuándo vence?",
			OrderID:  action.OrderID,
			ClientID: action.ClientID,
		}, nil
	case ChoicePartial:
		action.State = state.StatePartialPaymentAmount
		c.pending.SaveAction(userID, action)
		return NeedsConfirmation{
			Kind:     ConfirmPartialAmount,
			Prompt:   "💵 ¿Cuánto pagó? (ej: 5000)",
			OrderID:  action.OrderID,
			ClientID: action.ClientID,
		}, nil
	default:
		return Reply{Text: "Acción no reconocida"}, nil
	}
}

func (c *Confirmations) ChooseDeadline(ctx context.Context, userID int64, choice string) (Result, error) {
	action, ok := c.pending.PeekAction(userID)
	if !ok || (action.State != state.StateDeadlineSelection && action.State != state.StatePartialPaymentDeadline) {
		return Reply{Text: msgConfirmationExpired}, nil
	}

	switch choice {
	case DeadlineNone:
		c.pending.ClearAction(userID)
		return Reply{Text: withPartial(action, "Vencimiento: Sin fecha límite\n\n✓ Queda en cuenta corriente.")}, nil
	case DeadlineCustom:
		action.State = state.StateCustomDeadlineInput
		c.pending.SaveAction(userID, action)
		return NeedsConfirmation{
			Kind:     ConfirmCustomDeadline,
			Prompt:   msgCustomDeadline,
			OrderID:  action.OrderID,
			ClientID: action.ClientID,
		}, nil
	}

	days, err := strconv.Atoi(choice)
	if err != nil || days <= 0 {
		return Reply{Text: "Acción no reconocida"}, nil
	}
	due, _ := shop.ParseNaturalDate(fmt.Sprintf("en %d días", days), c.shop.Clock())
	if err := c.shop.Orders.SetDueDate(ctx, action.OrderID, due); err != nil {
		return nil, err
	}
	c.pending.ClearAction(userID)
	return Reply{Text: withPartial(action, fmt.Sprintf("✓ Vencimiento: %d días (%s)", days, due))}, nil
}

// AnswerText consumes a free-text reply when the pending action is waiting
// for one. handled is false when the text belongs to the orchestrator.
func (c *Confirmations) AnswerText(ctx context.Context, userID int64, text string) (Result, bool, error) {
	action, ok := c.pending.PeekAction(userID)
	if !ok || !action.AwaitsText() {
		return nil, false, nil
	}

	switch action.State {
	case state.StatePartialPaymentAmount:
		res, err := c.partialAmount(ctx, userID, action, text)
		return res, true, err
	case state.StateCustomDeadlineInput:
		due, ok := shop.ParseNaturalDate(text, c.shop.Clock())
		if !ok {
			return Reply{Text: msgBadDate}, true, nil
		}
		if err := c.shop.Orders.SetDueDate(ctx, action.OrderID, due); err != nil {
			return nil, true, err
		}
		c.pending.ClearAction(userID)
		return Reply{Text: withPartial(action, fmt.Sprintf("✓ Vencimiento: %s", due))}, true, nil
	}
	return nil, false, nil
}

func (c *Confirmations) partialAmount(ctx context.Context, userID int64, action state.Action, text string) (Result, error) {
	token := amountToken.FindString(text)
	amount, err := shop.ParseMoney(token)
	if token == "" || err != nil || !amount.IsPositive() {
		return Reply{Text: msgBadAmount}, nil
	}

	order, err := c.shop.Orders.FindByID(ctx, action.OrderID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThanOrEqual(order.Total) {
		if err := c.shop.Orders.SetPaid(ctx, order.ID, true); err != nil {
			return nil, err
		}
		c.pending.ClearAction(userID)
		return Reply{Text: fmt.Sprintf("✓ Pagó el total (%s). Venta registrada como pagada.", shop.FormatPrice(order.Total))}, nil
	}

	if _, _, err := c.shop.Payments.Register(ctx, shop.NewPayment{
		ClientID: action.ClientID,
		Amount:   amount,
		OrderID:  order.ID,
		Notes:    "Pago parcial",
	}); err != nil {
		return nil, err
	}
	action.State = state.StatePartialPaymentDeadline
	action.PartialAmount = amount
	c.pending.SaveAction(userID, action)
	return NeedsConfirmation{
		Kind:     ConfirmDeadline,
		Prompt:   fmt.Sprintf("✓ Anotado: %s\n\n¿Cuándo vence el resto?", shop.FormatPrice(amount)),
		OrderID:  action.OrderID,
		ClientID: action.ClientID,
	}, nil
}

// withPartial notes the amount already paid when the deadline closes a
// partial payment.
func withPartial(action state.Action, text string) string {
	if !action.PartialAmount.IsPositive() {
		return text
	}
	return text + fmt.Sprintf("\n💵 Pago a cuenta: %s", shop.FormatPrice(action.PartialAmount))
}
