package shop

import (
	"context"
	"testing"

	"nexo_bot/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrders(t *testing.T, store *sheets.MemoryStore, rows ...[]string) {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, store.AppendRow(context.Background(), sheets.SheetOrders, r))
	}
}

func TestClientDebtFormula(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	ana := mustClient(t, s, "Ana", "")
	seedOrders(t, store,
		[]string{"V1", "2026-10-01", ana.ID, "Ana", "[]", "10000", "entregado", "no", "-"},
		[]string{"V2", "2026-10-02", ana.ID, "Ana", "[]", "5000", "entregado", "si", "-"},
		[]string{"V3", "2026-10-03", ana.ID, "Ana", "[]", "2500", "entregado", "no", "2026-10-20"},
	)

	debt, err := s.Payments.Debt(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, debt.Equal(dec(12500)), debt.String())

	_, validation, err := s.Payments.Register(ctx, NewPayment{ClientID: ana.ID, Amount: dec(2500), OrderID: "V1"})
	require.NoError(t, err)
	assert.Empty(t, validation.Warnings)

	debt, err = s.Payments.Debt(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, debt.Equal(dec(10000)))

	detail, err := s.Payments.DebtDetail(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, detail.Total.Equal(dec(10000)))
	require.Len(t, detail.Unpaid, 2)
	assert.True(t, detail.Unpaid[0].PartialPaid.Equal(dec(2500)))
	assert.Equal(t, "2026-10-20", detail.Unpaid[1].DueDate)
}

func TestOverpaymentWarnsAndFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	ana := mustClient(t, s, "Ana", "")
	seedOrders(t, store, []string{"V1", "2026-10-01", ana.ID, "Ana", "[]", "1000", "entregado", "no", "-"})

	payment, validation, err := s.Payments.Register(ctx, NewPayment{ClientID: ana.ID, Amount: dec(5000)})
	require.NoError(t, err)
	assert.True(t, validation.Valid())
	require.NotEmpty(t, validation.Warnings)
	assert.Contains(t, validation.Warnings[0], "mayor a la deuda")
	assert.Equal(t, DefaultPaymentMethod, payment.Method)

	debt, err := s.Payments.Debt(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())

	rows, err := store.GetRows(ctx, sheets.SheetPayments)
	require.NoError(t, err)
	rec := sheets.RowsToObjects(rows)[0]
	assert.Equal(t, "-", rec.Get("Pedido ID"))
	assert.Equal(t, "-", rec.Get("Notas"))
}

func TestRegisterPaymentRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	ana := mustClient(t, s, "Ana", "")

	_, _, err := s.Payments.Register(ctx, NewPayment{ClientID: ana.ID, Amount: dec(-10)})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = s.Payments.Register(ctx, NewPayment{ClientID: ana.ID, Amount: dec(0)})
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, 0, store.Len(sheets.SheetPayments))
}

func TestAllDebtsGroupsByDueDate(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	ana := mustClient(t, s, "Ana", "")
	juan := mustClient(t, s, "Juan", "")
	luis := mustClient(t, s, "Luis", "")
	mustClient(t, s, "Sin Deuda", "")
	seedOrders(t, store,
		[]string{"V1", "2026-10-01", ana.ID, "Ana", "[]", "10000", "entregado", "no", "2026-10-10"},
		[]string{"V2", "2026-10-01", ana.ID, "Ana", "[]", "15000", "entregado", "no", "2026-10-25"},
		[]string{"V3", "2026-10-01", juan.ID, "Juan", "[]", "50000", "entregado", "no", "2026-10-19"},
		[]string{"V4", "2026-10-01", luis.ID, "Luis", "[]", "500", "entregado", "no", "-"},
	)

	debts, err := s.Payments.AllDebts(ctx)
	require.NoError(t, err)
	require.Len(t, debts, 3)
	assert.Equal(t, "Juan", debts[0].Client.Name)
	assert.Equal(t, "2026-10-10", debts[1].DueDate)

	overdue := OverdueOnly(debts, testNow)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Ana", overdue[0].Client.Name)

	text := FormatDebtList(debts, testNow)
	assert.Contains(t, text, "🔴 Vencidas:\n- Ana: $25.000 (vencido hace 8 días)")
	assert.Contains(t, text, "🟡 Por vencer:\n- Juan: $50.000 (vence mañana)")
	assert.Contains(t, text, "🟢 Al día:\n- Luis: $500")
}
