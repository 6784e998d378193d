package shop

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var arPrinter = message.NewPrinter(language.MustParse("es-AR"))

// FormatPrice renders an amount in pesos with Argentine grouping: $15.000.
func FormatPrice(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	return sign + "$" + arPrinter.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2)))
}

func FormatStockSummary(products []Product) string {
	var low, ok []Product
	for _, p := range products {
		if p.IsLowStock() {
			low = append(low, p)
		} else {
			ok = append(ok, p)
		}
	}

	var b strings.Builder
	b.WriteString("📦 Resumen de stock:\n\n")
	if len(low) > 0 {
		b.WriteString("⚠️ Stock bajo:\n")
		for _, p := range low {
			fmt.Fprintf(&b, "- %s (%s): %d (mínimo: %d)\n", p.Label(), p.SKU, p.Stock, p.MinStock)
		}
		b.WriteString("\n")
	}
	if len(ok) > 0 {
		b.WriteString("✓ Stock OK:\n")
		for i, p := range ok {
			if i == 10 {
				fmt.Fprintf(&b, "... (%d productos más)\n", len(ok)-10)
				break
			}
			fmt.Fprintf(&b, "- %s (%s): %d\n", p.Label(), p.SKU, p.Stock)
		}
	}
	if len(products) == 0 {
		b.WriteString("No hay productos cargados.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatProductInfo(products []Product) string {
	if len(products) == 0 {
		return "No se encontraron productos."
	}
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "%s\n", p.Label())
		fmt.Fprintf(&b, "SKU: %s\n", p.SKU)
		fmt.Fprintf(&b, "Stock: %d unidades\n", p.Stock)
		fmt.Fprintf(&b, "Precio: %s\n", FormatPrice(p.Price))
		if p.Description != "" {
			fmt.Fprintf(&b, "Descripción: %s\n", p.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func FormatClientInfo(c Client, debt *decimal.Decimal, lastOrder *Order, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏪 %s\n", c.Name)
	fmt.Fprintf(&b, "Tel: %s\n", orDash(c.Phone))
	if c.Address != "" {
		fmt.Fprintf(&b, "Dirección: %s\n", c.Address)
	}
	b.WriteString("\n")
	if lastOrder != nil {
		if d, err := time.ParseInLocation(DateLayout, lastOrder.Date, now.Location()); err == nil {
			days := int(now.Sub(d).Hours() / 24)
			fmt.Fprintf(&b, "Última compra: hace %d días (%s)\n", days, FormatPrice(lastOrder.Total))
		}
	}
	if debt != nil {
		fmt.Fprintf(&b, "Deuda actual: %s\n", FormatPrice(*debt))
	}
	if c.Notes != "" {
		fmt.Fprintf(&b, "\nNotas: %s", c.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatDebtList(debts []ClientDebt, now time.Time) string {
	if len(debts) == 0 {
		return "✓ No hay deudas pendientes"
	}

	total := decimal.Zero
	var overdue, upcoming, noDate []ClientDebt
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, d := range debts {
		total = total.Add(d.Amount)
		switch due, ok := d.due(now.Location()); {
		case !ok:
			noDate = append(noDate, d)
		case due.Before(today):
			overdue = append(overdue, d)
		default:
			upcoming = append(upcoming, d)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💰 Deudas pendientes: %s\n\n", FormatPrice(total))
	if len(overdue) > 0 {
		b.WriteString("🔴 Vencidas:\n")
		for _, d := range overdue {
			due, _ := d.due(now.Location())
			fmt.Fprintf(&b, "- %s: %s (vencido hace %d días)\n", d.Client.Name, FormatPrice(d.Amount), daysBetween(due, today))
		}
		b.WriteString("\n")
	}
	if len(upcoming) > 0 {
		b.WriteString("🟡 Por vencer:\n")
		for _, d := range upcoming {
			due, _ := d.due(now.Location())
			fmt.Fprintf(&b, "- %s: %s (%s)\n", d.Client.Name, FormatPrice(d.Amount), dueText(daysBetween(today, due)))
		}
		b.WriteString("\n")
	}
	if len(noDate) > 0 {
		b.WriteString("🟢 Al día:\n")
		for _, d := range noDate {
			fmt.Fprintf(&b, "- %s: %s\n", d.Client.Name, FormatPrice(d.Amount))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatDebtDetail(c Client, detail DebtDetail) string {
	if len(detail.Unpaid) == 0 || !detail.Total.IsPositive() {
		return fmt.Sprintf("✓ %s no tiene deuda pendiente", c.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Deuda de %s: %s\n\n", c.Name, FormatPrice(detail.Total))
	for _, o := range detail.Unpaid {
		fmt.Fprintf(&b, "- Pedido %s (%s): %s", o.OrderID, o.Date, FormatPrice(o.Amount))
		if o.PartialPaid.IsPositive() {
			fmt.Fprintf(&b, ", pagó %s", FormatPrice(o.PartialPaid))
		}
		if o.DueDate != "" {
			fmt.Fprintf(&b, ", vence %s", o.DueDate)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatOrder(o Order, products []Product) string {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Pedido para %s:\n\n", o.ClientName)
	for _, item := range o.Items {
		name := item.ProductID
		line := decimal.Zero
		if p, ok := byID[item.ProductID]; ok {
			name = p.Name
			line = p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		label := strings.Join(strings.Fields(fmt.Sprintf("%d %s %s %s", item.Quantity, name, item.Color, item.Size)), " ")
		fmt.Fprintf(&b, "- %s: %s\n", label, FormatPrice(line))
	}
	fmt.Fprintf(&b, "\nTotal: %s", FormatPrice(o.Total))
	return b.String()
}

func FormatDailySales(orders []Order, now time.Time) string {
	if len(orders) == 0 {
		return "No hay ventas registradas hoy."
	}
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Ventas de hoy (%s):\n\n", now.Format("02/01/2006"))
	fmt.Fprintf(&b, "%d pedidos - Total: %s\n\n", len(orders), FormatPrice(total))
	for i, o := range orders {
		status := "cuenta corriente"
		if o.Paid {
			status = "pagado"
		}
		fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, o.ClientName, FormatPrice(o.Total), status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatSalesStats(s SalesStats) string {
	var b strings.Builder
	b.WriteString("📈 Estadísticas de ventas")
	switch {
	case s.From != "" && s.To != "":
		fmt.Fprintf(&b, " (%s a %s)", s.From, s.To)
	case s.From != "":
		fmt.Fprintf(&b, " (desde %s)", s.From)
	case s.To != "":
		fmt.Fprintf(&b, " (hasta %s)", s.To)
	}
	b.WriteString(":\n\n")
	fmt.Fprintf(&b, "Ventas: %d\n", s.Count)
	fmt.Fprintf(&b, "Total: %s\n", FormatPrice(s.Total))
	fmt.Fprintf(&b, "Promedio por venta: %s", FormatPrice(s.Average))
	return b.String()
}

func dueText(days int) string {
	switch days {
	case 0:
		return "vence hoy"
	case 1:
		return "vence mañana"
	default:
		return fmt.Sprintf("vence en %d días", days)
	}
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
