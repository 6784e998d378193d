package agent

import (
	"context"
	"fmt"
	"strings"

	"nexo_bot/internal/llm"
	"nexo_bot/internal/shop"

	"go.uber.org/zap"
)

type saleItemArgs struct {
	Producto string `arg:"producto" validate:"required"`
	Cantidad int    `arg:"cantidad" validate:"gt=0"`
	Color    string `arg:"color"`
	Talle    string `arg:"talle"`
}

type saleArgs struct {
	Cliente     string         `arg:"cliente" validate:"required"`
	Items       []saleItemArgs `arg:"items" validate:"required,min=1,dive"`
	Vencimiento string         `arg:"vencimiento"`
}

func parseSaleArgs(args map[string]any) (saleArgs, []any, error) {
	var in saleArgs
	in.Cliente, _ = getStringArg(args, "cliente")
	in.Vencimiento, _ = getStringArg(args, "vencimiento")
	items, err := getListArg(args, "items")
	if err != nil {
		return in, nil, err
	}
	raw := make([]any, 0, len(items))
	for _, item := range items {
		var line saleItemArgs
		line.Producto, _ = getStringArg(item, "producto")
		line.Cantidad = getIntArg(item, "cantidad", 1)
		line.Color, _ = getStringArg(item, "color")
		line.Talle, _ = getStringArg(item, "talle")
		in.Items = append(in.Items, line)
		raw = append(raw, item)
	}
	return in, raw, validateArgs(in)
}

func (d *Dispatcher) saleRegister(ctx context.Context, args map[string]any, userMessage string) (Result, error) {
	in, rawItems, err := parseSaleArgs(args)
	if err != nil {
		return nil, err
	}
	replay := cloneArgs(args)
	replay["items"] = cloneValue(rawItems)

	client, clients, err := d.findClient(ctx, in.Cliente)
	if err != nil {
		return nil, err
	}
	if len(clients) > 0 {
		return clientSelection(clients, llm.ToolSaleRegister, replay, "cliente", in.Cliente), nil
	}
	if client.ID == "" {
		return Reply{Text: clientNotFound(in.Cliente) + "\n\n💡 Registralo primero (nombre y teléfono) o compartí su contacto."}, nil
	}

	lines := make([]shop.SaleLine, 0, len(in.Items))
	for i, item := range in.Items {
		p, candidates, err := d.findProduct(ctx, item.Producto, item.Color, item.Talle)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return productSelection(candidates, llm.ToolSaleRegister, replay, fmt.Sprintf("items.%d.producto", i), item.Producto), nil
		}
		if p.ID == "" {
			return Reply{Text: productNotFound(item.Producto, item.Color, item.Talle)}, nil
		}
		lines = append(lines, shop.SaleLine{ProductID: p.ID, Quantity: item.Cantidad})
	}

	status := PaidStatusFromMessage(userMessage)
	if claimed, ok := getBoolArg(args, "pagado"); ok {
		if status == PaidUnknown || claimed != (status == PaidYes) {
			d.logger.Info("ignoring model paid flag",
				zap.Bool("claimed", claimed),
				zap.Stringer("message_status", status),
			)
		}
	}

	now := d.shop.Clock()
	dueDate := ""
	if in.Vencimiento != "" && status != PaidYes {
		parsed, ok := shop.ParseNaturalDate(in.Vencimiento, now)
		if !ok {
			return nil, fmt.Errorf("%w: %s", shop.ErrInvalidDate, in.Vencimiento)
		}
		dueDate = parsed
	}

	order, validation, err := d.shop.Orders.RegisterSale(ctx, shop.NewSale{
		ClientID: client.ID,
		Lines:    lines,
		Paid:     status == PaidYes,
		DueDate:  dueDate,
	})
	if err != nil {
		return nil, err
	}
	products, err := d.shop.Products.All(ctx)
	if err != nil {
		return nil, err
	}
	summary := withWarnings(shop.FormatOrder(order, products), validation)

	switch {
	case status == PaidYes:
		return Reply{Text: summary + "\n\n✓ Venta registrada (pagada)\nStock actualizado."}, nil
	case status == PaidNo && dueDate != "":
		return Reply{Text: fmt.Sprintf("%s\n\n✓ Agregado a cuenta corriente (vence %s)\nStock actualizado.", summary, dueDate)}, nil
	case status == PaidNo:
		return NeedsConfirmation{
			Kind:     ConfirmDeadline,
			Prompt:   summary + "\n\n✓ Agregado a cuenta corriente. Stock actualizado.\n\n¿Cuándo vence?",
			OrderID:  order.ID,
			ClientID: client.ID,
		}, nil
	default:
		return NeedsConfirmation{
			Kind:     ConfirmPayment,
			Prompt:   summary + "\n\nStock actualizado.\n\n¿El cliente pagó o va a cuenta corriente?",
			OrderID:  order.ID,
			ClientID: client.ID,
		}, nil
	}
}

func (d *Dispatcher) salesToday(ctx context.Context) (Result, error) {
	orders, err := d.shop.Orders.Today(ctx)
	if err != nil {
		return nil, err
	}
	return Reply{Text: shop.FormatDailySales(orders, d.shop.Clock())}, nil
}

func (d *Dispatcher) salesStats(ctx context.Context, args map[string]any) (Result, error) {
	now := d.shop.Clock()
	bound := func(key string) (string, error) {
		raw, _ := getStringArg(args, key)
		if raw == "" {
			return "", nil
		}
		if parsed, ok := shop.ParseNaturalDate(raw, now); ok {
			return parsed, nil
		}
		return "", fmt.Errorf("%w: %s", shop.ErrInvalidDate, raw)
	}
	from, err := bound("desde")
	if err != nil {
		return nil, err
	}
	to, err := bound("hasta")
	if err != nil {
		return nil, err
	}
	stats, err := d.shop.Orders.Stats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return Reply{Text: shop.FormatSalesStats(stats)}, nil
}

type learnArgs struct {
	Tipo     string `arg:"tipo" validate:"required"`
	Termino  string `arg:"terminoUsuario" validate:"required"`
	Mapeo    string `arg:"mapeo" validate:"required"`
	Contexto string `arg:"contextoAdicional"`
}

func (d *Dispatcher) learnPreference(ctx context.Context, args map[string]any) (Result, error) {
	var in learnArgs
	in.Tipo, _ = getStringArg(args, "tipo")
	in.Termino, _ = getStringArg(args, "terminoUsuario")
	in.Mapeo, _ = getStringArg(args, "mapeo")
	in.Contexto, _ = getStringArg(args, "contextoAdicional")
	if err := validateArgs(in); err != nil {
		return nil, err
	}
	kind, ok := shop.ParsePreferenceType(in.Tipo)
	if !ok {
		return nil, fmt.Errorf("%w: tipo %q", errInvalidArgs, in.Tipo)
	}

	pref, err := d.shop.Learning.UpsertPreference(ctx, kind, in.Termino, in.Mapeo, true, in.Contexto)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("🧠 Aprendido: cuando digas \"%s\" entiendo \"%s\".", pref.Term, pref.Mapping)
	if pref.Frequency > 1 {
		text += fmt.Sprintf("\n(Ya lo usaste %d veces)", pref.Frequency)
	}
	return Reply{Text: text}, nil
}

func (d *Dispatcher) learningStats(ctx context.Context) (Result, error) {
	stats, err := d.shop.Learning.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return Reply{Text: strings.TrimSpace(shop.FormatLearningStats(stats))}, nil
}
