package shop

import (
	"context"
	"encoding/json"
	"testing"

	"nexo_bot/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSaleComputesAndPersistsTotal(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	remera := mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 10)
	jean := mustProduct(t, s, "Jean", "Pantalones", "Azul", "42", 40000, 3)
	juan := mustClient(t, s, "Juan Pérez", "1155667788")

	order, _, err := s.Orders.RegisterSale(ctx, NewSale{
		ClientID: juan.ID,
		Lines:    []SaleLine{{ProductID: remera.ID, Quantity: 2}, {ProductID: jean.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(dec(70000)))
	assert.False(t, order.Paid)
	assert.Equal(t, "2026-10-18", order.Date)

	rows, err := store.GetRows(ctx, sheets.SheetOrders)
	require.NoError(t, err)
	records := sheets.RowsToObjects(rows)
	require.Len(t, records, 1)
	assert.Equal(t, "70000", records[0].Get("Total"))
	assert.Equal(t, "no", records[0].Get("Pagado"))
	assert.Equal(t, "-", records[0].Get("Vencimiento"))
	assert.Equal(t, "Juan Pérez", records[0].Get("Cliente Nombre"))

	var items []OrderItem
	require.NoError(t, json.Unmarshal([]byte(records[0].Get("Items (JSON)")), &items))
	assert.Equal(t, []OrderItem{
		{ProductID: remera.ID, Quantity: 2, Color: "Negro", Size: "M"},
		{ProductID: jean.ID, Quantity: 1, Color: "Azul", Size: "42"},
	}, items)

	// A later price change does not alter the stored total.
	require.NoError(t, updateColumn(ctx, store, sheets.SheetProducts, remera.ID, "Precio", "99999", ErrProductNotFound))
	reloaded, err := s.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Total.Equal(dec(70000)))

	p, err := s.Products.FindByID(ctx, remera.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)
}

func TestRegisterSaleInsufficientStockIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	remera := mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 10)
	jean := mustProduct(t, s, "Jean", "Pantalones", "Azul", "42", 40000, 1)
	juan := mustClient(t, s, "Juan", "")

	_, validation, err := s.Orders.RegisterSale(ctx, NewSale{
		ClientID: juan.ID,
		Lines:    []SaleLine{{ProductID: remera.ID, Quantity: 2}, {ProductID: jean.ID, Quantity: 3}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.False(t, validation.Valid())
	assert.Contains(t, validation.Errors[0], "Item 2")

	p, err := s.Products.FindByID(ctx, remera.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, 0, store.Len(sheets.SheetOrders))
	assert.Equal(t, 0, store.Len(sheets.SheetMovements))
}

func TestRegisterSaleMergesRepeatedLines(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	remera := mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 3)
	juan := mustClient(t, s, "Juan", "")

	_, _, err := s.Orders.RegisterSale(ctx, NewSale{
		ClientID: juan.ID,
		Lines:    []SaleLine{{ProductID: remera.ID, Quantity: 2}, {ProductID: remera.ID, Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestRegisterSaleUnknownClient(t *testing.T) {
	s, _ := newTestShop(t)
	remera := mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 3)
	_, _, err := s.Orders.RegisterSale(context.Background(), NewSale{
		ClientID: "C-NOPE",
		Lines:    []SaleLine{{ProductID: remera.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestOrderMutations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	remera := mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 3)
	juan := mustClient(t, s, "Juan", "")
	order, _, err := s.Orders.RegisterSale(ctx, NewSale{ClientID: juan.ID, Lines: []SaleLine{{ProductID: remera.ID, Quantity: 1}}})
	require.NoError(t, err)

	require.NoError(t, s.Orders.SetPaid(ctx, order.ID, true))
	require.NoError(t, s.Orders.SetDueDate(ctx, order.ID, "2026-11-01"))
	require.ErrorIs(t, s.Orders.SetDueDate(ctx, order.ID, "mañana"), ErrInvalidDate)
	require.ErrorIs(t, s.Orders.SetPaid(ctx, "V-NOPE", true), ErrOrderNotFound)

	got, err := s.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, "2026-11-01", got.DueDate)
	assert.True(t, got.Total.Equal(dec(15000)))
}

func TestSalesStats(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	rows := [][]string{
		{"V1", "2026-10-01", "C1", "Ana", "[]", "1000", "entregado", "si", "-"},
		{"V2", "15/10/2026", "C1", "Ana", "[]", "3000", "entregado", "no", "-"},
		{"V3", "2026-10-18", "C2", "Juan", "[]", "2000", "entregado", "no", "-"},
	}
	for _, r := range rows {
		require.NoError(t, store.AppendRow(ctx, sheets.SheetOrders, r))
	}

	all, err := s.Orders.Stats(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Count)
	assert.True(t, all.Total.Equal(dec(6000)))
	assert.True(t, all.Average.Equal(dec(2000)))

	ranged, err := s.Orders.Stats(ctx, "2026-10-10", "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, 1, ranged.Count)
	assert.True(t, ranged.Total.Equal(dec(3000)))

	today, err := s.Orders.Today(ctx)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "V3", today[0].ID)
}
