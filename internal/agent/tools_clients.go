package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"nexo_bot/internal/llm"
	"nexo_bot/internal/shop"

	"github.com/shopspring/decimal"
)

func (d *Dispatcher) clientList(ctx context.Context) (Result, error) {
	clients, err := d.shop.Clients.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return Reply{Text: "No hay clientes cargados."}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Clientes (%d):\n", len(clients))
	for _, c := range clients {
		if c.Phone != "" {
			fmt.Fprintf(&b, "\n- %s (%s)", c.Name, c.Phone)
		} else {
			fmt.Fprintf(&b, "\n- %s", c.Name)
		}
	}
	return Reply{Text: b.String()}, nil
}

// bestClient resolves a client for read-only tools: ambiguity picks the
// best ranked match instead of asking.
func (d *Dispatcher) bestClient(ctx context.Context, ref string) (shop.Client, []shop.Client, error) {
	c, candidates, err := d.findClient(ctx, ref)
	if err != nil || len(candidates) == 0 {
		return c, nil, err
	}
	return candidates[0], candidates[1:], nil
}

func (d *Dispatcher) clientSearch(ctx context.Context, args map[string]any) (Result, error) {
	name, _ := getStringArg(args, "nombre")
	if name == "" {
		return nil, fmt.Errorf("%w: falta nombre", errInvalidArgs)
	}
	c, others, err := d.bestClient(ctx, name)
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return Reply{Text: fmt.Sprintf("No se encontró ningún cliente que se llame \"%s\".", name)}, nil
	}

	debt, err := d.shop.Payments.Debt(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	orders, err := d.shop.Orders.ByClient(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	var last *shop.Order
	for i := range orders {
		if last == nil || orders[i].Date > last.Date {
			last = &orders[i]
		}
	}

	text := shop.FormatClientInfo(c, &debt, last, d.shop.Clock())
	if len(others) > 0 {
		names := make([]string, 0, len(others))
		for _, o := range others {
			names = append(names, o.Name)
		}
		text += "\n\nTambién coinciden: " + strings.Join(names, ", ")
	}
	return Reply{Text: text}, nil
}

type clientAddArgs struct {
	Nombre    string `arg:"nombre" validate:"required"`
	Telefono  string `arg:"telefono"`
	Direccion string `arg:"direccion"`
	Notas     string `arg:"notas"`
}

func (d *Dispatcher) clientAdd(ctx context.Context, args map[string]any) (Result, error) {
	var in clientAddArgs
	in.Nombre, _ = getStringArg(args, "nombre")
	in.Telefono, _ = getStringArg(args, "telefono")
	in.Direccion, _ = getStringArg(args, "direccion")
	in.Notas, _ = getStringArg(args, "notas")
	if err := validateArgs(in); err != nil {
		return nil, err
	}

	c, validation, err := d.shop.Clients.Add(ctx, shop.NewClient{
		Name:    in.Nombre,
		Phone:   in.Telefono,
		Address: in.Direccion,
		Notes:   in.Notas,
	})
	if errors.Is(err, shop.ErrDuplicateClient) {
		return Reply{Text: fmt.Sprintf("⚠️ Cliente ya existe: %s", c.Name)}, nil
	}
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✓ Cliente registrado: %s", c.Name)
	if c.Phone != "" {
		fmt.Fprintf(&b, "\nTel: %s", c.Phone)
	}
	if c.Address != "" {
		fmt.Fprintf(&b, "\nDirección: %s", c.Address)
	}
	return Reply{Text: withWarnings(b.String(), validation)}, nil
}

func (d *Dispatcher) debtList(ctx context.Context, args map[string]any) (Result, error) {
	overdueOnly, _ := getBoolArg(args, "solo_vencidas")
	debts, err := d.shop.Payments.AllDebts(ctx)
	if err != nil {
		return nil, err
	}
	now := d.shop.Clock()
	if overdueOnly {
		debts = shop.OverdueOnly(debts, now)
		if len(debts) == 0 {
			return Reply{Text: "✓ No hay deudas vencidas"}, nil
		}
	}
	return Reply{Text: shop.FormatDebtList(debts, now)}, nil
}

func (d *Dispatcher) debtCheck(ctx context.Context, args map[string]any) (Result, error) {
	ref, _ := getStringArg(args, "cliente")
	if ref == "" {
		return nil, fmt.Errorf("%w: falta cliente", errInvalidArgs)
	}
	c, _, err := d.bestClient(ctx, ref)
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return Reply{Text: clientNotFound(ref)}, nil
	}
	detail, err := d.shop.Payments.DebtDetail(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return Reply{Text: shop.FormatDebtDetail(c, detail)}, nil
}

type paymentArgs struct {
	Cliente  string          `arg:"cliente" validate:"required"`
	Monto    decimal.Decimal `arg:"monto" validate:"required,gt=0"`
	Metodo   string          `arg:"metodo"`
	PedidoID string          `arg:"pedido_id"`
}

func (d *Dispatcher) paymentRegister(ctx context.Context, args map[string]any) (Result, error) {
	var in paymentArgs
	in.Cliente, _ = getStringArg(args, "cliente")
	in.Monto, _ = getDecimalArg(args, "monto")
	in.Metodo, _ = getStringArg(args, "metodo")
	in.PedidoID, _ = getStringArg(args, "pedido_id")
	if err := validateArgs(in); err != nil {
		return nil, err
	}

	c, candidates, err := d.findClient(ctx, in.Cliente)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return clientSelection(candidates, llm.ToolPaymentRegister, cloneArgs(args), "cliente", in.Cliente), nil
	}
	if c.ID == "" {
		return Reply{Text: clientNotFound(in.Cliente)}, nil
	}

	p, validation, err := d.shop.Payments.Register(ctx, shop.NewPayment{
		ClientID: c.ID,
		Amount:   in.Monto,
		Method:   in.Metodo,
		OrderID:  in.PedidoID,
	})
	if err != nil {
		return nil, err
	}
	remaining, err := d.shop.Payments.Debt(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("✓ Pago registrado: %s de %s\nDeuda restante: %s",
		shop.FormatPrice(p.Amount), p.ClientName, shop.FormatPrice(remaining))
	return Reply{Text: withWarnings(text, validation)}, nil
}

var phoneDigits = regexp.MustCompile(`\D`)

// WhatsAppLink builds a wa.me link. Local Argentine numbers get the 549
// mobile prefix.
func WhatsAppLink(phone, message string) (string, bool) {
	digits := phoneDigits.ReplaceAllString(phone, "")
	digits = strings.TrimPrefix(digits, "00")
	if len(digits) < 8 {
		return "", false
	}
	if len(digits) == 10 {
		digits = "549" + digits
	}
	link := "https://wa.me/" + digits
	if strings.TrimSpace(message) != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link, true
}

func (d *Dispatcher) whatsappReminder(ctx context.Context, args map[string]any) (Result, error) {
	ref, _ := getStringArg(args, "cliente")
	message, _ := getStringArg(args, "mensaje")
	if ref == "" {
		return nil, fmt.Errorf("%w: falta cliente", errInvalidArgs)
	}
	c, _, err := d.bestClient(ctx, ref)
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return Reply{Text: clientNotFound(ref)}, nil
	}

	if message == "" {
		debt, err := d.shop.Payments.Debt(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		message = fmt.Sprintf("Hola %s! Te recuerdo que tenés un saldo pendiente de %s. ¡Gracias!", firstName(c.Name), shop.FormatPrice(debt))
	}
	link, ok := WhatsAppLink(c.Phone, message)
	if !ok {
		return Reply{Text: fmt.Sprintf("❌ %s no tiene un teléfono válido cargado.", c.Name)}, nil
	}
	return Reply{Text: fmt.Sprintf("📱 Recordatorio para %s:\n\n%s\n\n%s", c.Name, message, link)}, nil
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
