package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nexo_bot/internal/sheets"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderRepo struct {
	store    sheets.Store
	products *ProductRepo
	clients  *ClientRepo
	clock    Clock
	logger   *zap.Logger
}

func NewOrderRepo(store sheets.Store, products *ProductRepo, clients *ClientRepo, clock Clock, logger *zap.Logger) *OrderRepo {
	return &OrderRepo{
		store:    store,
		products: products,
		clients:  clients,
		clock:    clock,
		logger:   logger.Named("orders"),
	}
}

func (r *OrderRepo) All(ctx context.Context) ([]Order, error) {
	rows, err := r.store.GetRows(ctx, sheets.SheetOrders)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}
	records := sheets.RowsToObjects(rows)
	orders := make([]Order, 0, len(records))
	for _, rec := range records {
		if rec.Get("ID") == "" {
			continue
		}
		var items []OrderItem
		if raw := rec.Get("Items (JSON)"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				r.logger.Warn("unreadable order items", zap.String("order", rec.Get("ID")), zap.Error(err))
			}
		}
		status := rec.Get("Estado")
		if status == "" {
			status = OrderStatusDelivered
		}
		orders = append(orders, Order{
			ID:         rec.Get("ID"),
			Date:       NormalizeDate(rec.Get("Fecha")),
			ClientID:   rec.Get("Cliente ID"),
			ClientName: rec.Get("Cliente Nombre"),
			Items:      items,
			Total:      parseMoneyOrZero(rec.Get("Total")),
			Status:     status,
			Paid:       isYes(rec.Get("Pagado")),
			DueDate:    NormalizeDate(emptyIfDash(rec.Get("Vencimiento"))),
		})
	}
	return orders, nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id string) (Order, error) {
	all, err := r.All(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range all {
		if strings.EqualFold(o.ID, strings.TrimSpace(id)) {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

func (r *OrderRepo) ByClient(ctx context.Context, clientID string) ([]Order, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []Order
	for _, o := range all {
		if o.ClientID == clientID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *OrderRepo) Today(ctx context.Context) ([]Order, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	today := r.clock.Today()
	var out []Order
	for _, o := range all {
		if o.Date == today {
			out = append(out, o)
		}
	}
	return out, nil
}

type SaleLine struct {
	ProductID string
	Quantity  int
}

type NewSale struct {
	ClientID string
	Lines    []SaleLine
	Paid     bool
	DueDate  string
}

// RegisterSale validates every line before touching stock, so a sale with
// one short line leaves all stock untouched. The total is computed from the
// current prices and persisted.
func (r *OrderRepo) RegisterSale(ctx context.Context, in NewSale) (Order, ValidationResult, error) {
	var validation ValidationResult
	if len(in.Lines) == 0 {
		validation.Errors = append(validation.Errors, ErrEmptySale.Error())
		return Order{}, validation, &ValidationError{Kind: ErrEmptySale, Result: validation}
	}

	client, err := r.clients.FindByID(ctx, in.ClientID)
	if err != nil {
		return Order{}, validation, err
	}

	requested := make(map[string]int)
	var order []string
	for _, line := range in.Lines {
		if _, seen := requested[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		requested[line.ProductID] += line.Quantity
	}

	total := decimal.Zero
	var items []OrderItem
	insufficient := false
	for i, id := range order {
		p, err := r.products.FindByID(ctx, id)
		if err != nil {
			return Order{}, validation, err
		}
		qty := requested[id]
		lineCheck := ValidateStockQuantity(qty, ContextSale)
		if qty == 0 {
			lineCheck.Errors = append(lineCheck.Errors, "Cantidad debe ser mayor a cero")
		}
		stockCheck := ValidateStockAvailability(p, qty)
		if !stockCheck.Valid() {
			insufficient = true
		}
		lineCheck.Merge(stockCheck)
		for _, e := range lineCheck.Errors {
			validation.Errors = append(validation.Errors, fmt.Sprintf("Item %d: %s", i+1, e))
		}
		for _, w := range lineCheck.Warnings {
			validation.Warnings = append(validation.Warnings, fmt.Sprintf("Item %d: %s", i+1, w))
		}

		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
		items = append(items, OrderItem{ProductID: p.ID, Quantity: qty, Color: p.Color, Size: p.Size})
	}
	validation.Merge(ValidateMoneyAmount(total, ContextSale))
	if in.DueDate != "" {
		validation.Merge(ValidateDeadline(in.DueDate, r.clock()))
	}

	if !validation.Valid() {
		kind := ErrInvalidAmount
		if insufficient {
			kind = ErrInsufficientStock
		}
		return Order{}, validation, &ValidationError{Kind: kind, Result: validation}
	}

	o := Order{
		ID:         NewID(prefixOrder),
		Date:       r.clock.Today(),
		ClientID:   client.ID,
		ClientName: client.Name,
		Items:      items,
		Total:      total,
		Status:     OrderStatusDelivered,
		Paid:       in.Paid,
		DueDate:    in.DueDate,
	}

	for _, item := range items {
		if _, err := r.products.ReduceStock(ctx, item.ProductID, item.Quantity, o.ID); err != nil {
			return Order{}, validation, err
		}
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return Order{}, validation, fmt.Errorf("encoding order items: %w", err)
	}
	row := []string{
		o.ID, o.Date, o.ClientID, o.ClientName, string(encoded), o.Total.String(),
		o.Status, yesNo(o.Paid), dashIfEmpty(o.DueDate),
	}
	if err := r.store.AppendRow(ctx, sheets.SheetOrders, row); err != nil {
		return Order{}, validation, fmt.Errorf("appending order: %w", err)
	}
	r.logger.Info("sale registered",
		zap.String("order", o.ID),
		zap.String("client", o.ClientID),
		zap.String("total", o.Total.String()),
		zap.Bool("paid", o.Paid),
	)
	return o, validation, nil
}

// SetPaid flips the payment flag of an order.
func (r *OrderRepo) SetPaid(ctx context.Context, orderID string, paid bool) error {
	return updateColumn(ctx, r.store, sheets.SheetOrders, orderID, "Pagado", yesNo(paid), ErrOrderNotFound)
}

// SetDueDate assigns a YYYY-MM-DD due date; an empty date clears it.
func (r *OrderRepo) SetDueDate(ctx context.Context, orderID, dueDate string) error {
	if dueDate != "" && !isoDate.MatchString(dueDate) {
		return fmt.Errorf("%w: %s", ErrInvalidDate, dueDate)
	}
	return updateColumn(ctx, r.store, sheets.SheetOrders, orderID, "Vencimiento", dashIfEmpty(dueDate), ErrOrderNotFound)
}

type SalesStats struct {
	From    string
	To      string
	Count   int
	Total   decimal.Decimal
	Average decimal.Decimal
}

// Stats aggregates orders with from <= date <= to; empty bounds are open.
func (r *OrderRepo) Stats(ctx context.Context, from, to string) (SalesStats, error) {
	all, err := r.All(ctx)
	if err != nil {
		return SalesStats{}, err
	}
	stats := SalesStats{From: from, To: to, Total: decimal.Zero, Average: decimal.Zero}
	for _, o := range all {
		if from != "" && o.Date < from {
			continue
		}
		if to != "" && o.Date > to {
			continue
		}
		stats.Count++
		stats.Total = stats.Total.Add(o.Total)
	}
	if stats.Count > 0 {
		stats.Average = stats.Total.Div(decimal.NewFromInt(int64(stats.Count))).Round(2)
	}
	return stats, nil
}

func yesNo(b bool) string {
	if b {
		return "si"
	}
	return "no"
}

func isYes(s string) bool {
	switch sheets.Normalize(s) {
	case "si", "yes", "true":
		return true
	default:
		return false
	}
}
