package shop

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"nexo_bot/internal/sheets"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentRepo struct {
	store   sheets.Store
	orders  *OrderRepo
	clients *ClientRepo
	clock   Clock
	logger  *zap.Logger
}

func NewPaymentRepo(store sheets.Store, orders *OrderRepo, clients *ClientRepo, clock Clock, logger *zap.Logger) *PaymentRepo {
	return &PaymentRepo{store: store, orders: orders, clients: clients, clock: clock, logger: logger.Named("payments")}
}

func (r *PaymentRepo) All(ctx context.Context) ([]Payment, error) {
	rows, err := r.store.GetRows(ctx, sheets.SheetPayments)
	if err != nil {
		return nil, fmt.Errorf("loading payments: %w", err)
	}
	records := sheets.RowsToObjects(rows)
	payments := make([]Payment, 0, len(records))
	for _, rec := range records {
		if rec.Get("ID") == "" {
			continue
		}
		method := rec.Get("Método")
		if method == "" {
			method = DefaultPaymentMethod
		}
		payments = append(payments, Payment{
			ID:         rec.Get("ID"),
			Date:       NormalizeDate(rec.Get("Fecha")),
			ClientID:   rec.Get("Cliente ID"),
			ClientName: rec.Get("Cliente Nombre"),
			Amount:     parseMoneyOrZero(rec.Get("Monto")),
			Method:     method,
			OrderID:    emptyIfDash(rec.Get("Pedido ID")),
			Notes:      emptyIfDash(rec.Get("Notas")),
		})
	}
	return payments, nil
}

func (r *PaymentRepo) ByClient(ctx context.Context, clientID string) ([]Payment, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []Payment
	for _, p := range all {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Debt is max(0, unpaid order totals - payments).
func (r *PaymentRepo) Debt(ctx context.Context, clientID string) (decimal.Decimal, error) {
	orders, err := r.orders.ByClient(ctx, clientID)
	if err != nil {
		return decimal.Zero, err
	}
	payments, err := r.ByClient(ctx, clientID)
	if err != nil {
		return decimal.Zero, err
	}
	return computeDebt(orders, payments), nil
}

func computeDebt(orders []Order, payments []Payment) decimal.Decimal {
	owed := decimal.Zero
	for _, o := range orders {
		if !o.Paid {
			owed = owed.Add(o.Total)
		}
	}
	for _, p := range payments {
		owed = owed.Sub(p.Amount)
	}
	return decimal.Max(decimal.Zero, owed)
}

type UnpaidOrder struct {
	OrderID     string
	Date        string
	Amount      decimal.Decimal
	PartialPaid decimal.Decimal
	DueDate     string
}

type DebtDetail struct {
	Total  decimal.Decimal
	Unpaid []UnpaidOrder
}

func (r *PaymentRepo) DebtDetail(ctx context.Context, clientID string) (DebtDetail, error) {
	orders, err := r.orders.ByClient(ctx, clientID)
	if err != nil {
		return DebtDetail{}, err
	}
	payments, err := r.ByClient(ctx, clientID)
	if err != nil {
		return DebtDetail{}, err
	}

	detail := DebtDetail{Total: computeDebt(orders, payments)}
	for _, o := range orders {
		if o.Paid {
			continue
		}
		partial := decimal.Zero
		for _, p := range payments {
			if p.OrderID == o.ID {
				partial = partial.Add(p.Amount)
			}
		}
		detail.Unpaid = append(detail.Unpaid, UnpaidOrder{
			OrderID:     o.ID,
			Date:        o.Date,
			Amount:      o.Total,
			PartialPaid: partial,
			DueDate:     o.DueDate,
		})
	}
	return detail, nil
}

type ClientDebt struct {
	Client Client
	Amount decimal.Decimal
	// DueDate is the earliest due date among the client's unpaid orders.
	DueDate string
}

func (d ClientDebt) due(loc *time.Location) (time.Time, bool) {
	if d.DueDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, d.DueDate, loc)
	return t, err == nil
}

// AllDebts lists every client with a positive debt.
func (r *PaymentRepo) AllDebts(ctx context.Context) ([]ClientDebt, error) {
	clients, err := r.clients.All(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := r.orders.All(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	ordersBy := make(map[string][]Order)
	for _, o := range orders {
		ordersBy[o.ClientID] = append(ordersBy[o.ClientID], o)
	}
	paymentsBy := make(map[string][]Payment)
	for _, p := range payments {
		paymentsBy[p.ClientID] = append(paymentsBy[p.ClientID], p)
	}

	var debts []ClientDebt
	for _, c := range clients {
		amount := computeDebt(ordersBy[c.ID], paymentsBy[c.ID])
		if !amount.IsPositive() {
			continue
		}
		due := ""
		for _, o := range ordersBy[c.ID] {
			if !o.Paid && o.DueDate != "" && (due == "" || o.DueDate < due) {
				due = o.DueDate
			}
		}
		debts = append(debts, ClientDebt{Client: c, Amount: amount, DueDate: due})
	}
	sort.SliceStable(debts, func(i, j int) bool {
		return debts[i].Amount.GreaterThan(debts[j].Amount)
	})
	return debts, nil
}

// OverdueOnly keeps debts whose due date is before today.
func OverdueOnly(debts []ClientDebt, now time.Time) []ClientDebt {
	today := now.Format(DateLayout)
	var out []ClientDebt
	for _, d := range debts {
		if d.DueDate != "" && d.DueDate < today {
			out = append(out, d)
		}
	}
	return out
}

type NewPayment struct {
	ClientID string
	Amount   decimal.Decimal
	Method   string
	OrderID  string
	Notes    string
}

// Register appends a payment. Paying more than the outstanding debt is
// allowed and only produces a warning.
func (r *PaymentRepo) Register(ctx context.Context, in NewPayment) (Payment, ValidationResult, error) {
	client, err := r.clients.FindByID(ctx, in.ClientID)
	if err != nil {
		return Payment{}, ValidationResult{}, err
	}

	validation := ValidateMoneyAmount(in.Amount, ContextPayment)
	if in.Amount.IsZero() {
		validation.Errors = append(validation.Errors, "El monto del pago debe ser mayor a cero")
	}
	if !validation.Valid() {
		return Payment{}, validation, &ValidationError{Kind: ErrInvalidAmount, Result: validation}
	}

	debt, err := r.Debt(ctx, client.ID)
	if err != nil {
		return Payment{}, validation, err
	}
	validation = ValidatePayment(in.Amount, debt)
	if len(validation.Warnings) > 0 {
		r.logger.Warn("payment warnings", zap.String("client", client.ID), zap.Strings("warnings", validation.Warnings))
	}

	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = DefaultPaymentMethod
	}
	p := Payment{
		ID:         NewID(prefixPayment),
		Date:       r.clock.Today(),
		ClientID:   client.ID,
		ClientName: client.Name,
		Amount:     in.Amount,
		Method:     method,
		OrderID:    strings.TrimSpace(in.OrderID),
		Notes:      strings.TrimSpace(in.Notes),
	}
	row := []string{
		p.ID, p.Date, p.ClientID, p.ClientName, p.Amount.String(), p.Method,
		dashIfEmpty(p.OrderID), dashIfEmpty(p.Notes),
	}
	if err := r.store.AppendRow(ctx, sheets.SheetPayments, row); err != nil {
		return Payment{}, validation, fmt.Errorf("appending payment: %w", err)
	}
	return p, validation, nil
}
