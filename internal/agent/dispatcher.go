package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexo_bot/internal/llm"
	"nexo_bot/internal/shop"

	"go.uber.org/zap"
)

// ActionAttachPhoto is an internal action that is never offered to the model.
const ActionAttachPhoto = "photo_attach"

var errUnknownTool = errors.New("tool no implementada")

type toolCallRecord struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	MS   int64          `json:"ms"`
	OK   bool           `json:"ok"`
	Err  string         `json:"err,omitempty"`
}

// Dispatcher executes tool calls against the shop and renders their output.
// The model never re-phrases what a tool returns.
type Dispatcher struct {
	shop   *shop.Shop
	logger *zap.Logger
}

func NewDispatcher(s *shop.Shop, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{shop: s, logger: logger.Named("dispatcher")}
}

// Dispatch runs one tool. userMessage is the raw text the user typed; it is
// the only trusted source for the paid status of a sale. Domain failures come
// back as a Reply prefixed with ❌; only upstream failures return an error.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, userMessage string) (Result, toolCallRecord, error) {
	if args == nil {
		args = map[string]any{}
	}
	result, record, err := trackCall(d.logger, name, args, func() (Result, error) {
		return d.run(ctx, name, args, userMessage)
	})
	if err != nil {
		if isDomainError(err) {
			return Reply{Text: "❌ Error: " + friendlyError(err)}, record, nil
		}
		return nil, record, err
	}
	return result, record, nil
}

func (d *Dispatcher) run(ctx context.Context, name string, args map[string]any, userMessage string) (Result, error) {
	switch name {
	case llm.ToolStockCheck:
		return d.stockCheck(ctx, args)
	case llm.ToolStockAdd:
		return d.stockAdd(ctx, args)
	case llm.ToolStockLow:
		return d.stockLow(ctx)
	case llm.ToolProductCreate:
		return d.productCreate(ctx, args)
	case llm.ToolProductSearch:
		return d.productSearch(ctx, args)
	case llm.ToolClientList:
		return d.clientList(ctx)
	case llm.ToolClientSearch:
		return d.clientSearch(ctx, args)
	case llm.ToolClientAdd:
		return d.clientAdd(ctx, args)
	case llm.ToolDebtList:
		return d.debtList(ctx, args)
	case llm.ToolDebtCheck:
		return d.debtCheck(ctx, args)
	case llm.ToolPaymentRegister:
		return d.paymentRegister(ctx, args)
	case llm.ToolSaleRegister:
		return d.saleRegister(ctx, args, userMessage)
	case llm.ToolSalesToday:
		return d.salesToday(ctx)
	case llm.ToolSalesStats:
		return d.salesStats(ctx, args)
	case llm.ToolLearnPreference:
		return d.learnPreference(ctx, args)
	case llm.ToolLearningStats:
		return d.learningStats(ctx)
	case llm.ToolWhatsAppLink:
		return d.whatsappReminder(ctx, args)
	case ActionAttachPhoto:
		return d.attachPhoto(ctx, args)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

func trackCall[T any](logger *zap.Logger, name string, args map[string]any, fn func() (T, error)) (T, toolCallRecord, error) {
	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)
	record := toolCallRecord{
		Name: name,
		Args: args,
		MS:   elapsed.Milliseconds(),
		OK:   err == nil,
	}
	if err != nil {
		record.Err = err.Error()
	}
	logger.Info("tool call",
		zap.String("name", name),
		zap.Any("args", args),
		zap.Int64("ms", record.MS),
		zap.Bool("ok", record.OK),
		zap.String("err", record.Err),
	)
	return result, record, err
}

var domainErrors = []error{
	shop.ErrProductNotFound,
	shop.ErrClientNotFound,
	shop.ErrOrderNotFound,
	shop.ErrDuplicateProduct,
	shop.ErrDuplicateClient,
	shop.ErrInsufficientStock,
	shop.ErrInvalidAmount,
	shop.ErrInvalidDate,
	shop.ErrEmptySale,
	shop.ErrMissingName,
	errInvalidArgs,
	errUnknownTool,
}

func isDomainError(err error) bool {
	var verr *shop.ValidationError
	if errors.As(err, &verr) {
		return true
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func friendlyError(err error) string {
	var verr *shop.ValidationError
	switch {
	case errors.As(err, &verr) && len(verr.Result.Errors) > 0:
		return strings.Join(verr.Result.Errors, "\n")
	case err == nil:
		return ""
	default:
		r := []rune(err.Error())
		if len(r) == 0 {
			return ""
		}
		return strings.ToUpper(string(r[:1])) + string(r[1:])
	}
}

// withWarnings appends advisory validation warnings to a reply.
func withWarnings(text string, v shop.ValidationResult) string {
	if len(v.Warnings) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n⚠️ Advertencias:")
	for _, w := range v.Warnings {
		b.WriteString("\n• " + w)
	}
	return b.String()
}
