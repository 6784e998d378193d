package shop

import (
	"context"
	"testing"
	"time"

	"nexo_bot/internal/sheets"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func fixedClock() Clock {
	return func() time.Time { return testNow }
}

func newTestShop(t *testing.T) (*Shop, *sheets.MemoryStore) {
	t.Helper()
	store := sheets.NewMemoryStore()
	return New(store, 0, fixedClock(), zap.NewNop()), store
}

func mustProduct(t *testing.T, s *Shop, name, category, color, size string, price int64, stock int) Product {
	t.Helper()
	p, _, err := s.Products.Create(context.Background(), NewProduct{
		Name:         name,
		Category:     category,
		Color:        color,
		Size:         size,
		Price:        decimal.NewFromInt(price),
		InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func mustClient(t *testing.T, s *Shop, name, phone string) Client {
	t.Helper()
	c, _, err := s.Clients.Add(context.Background(), NewClient{Name: name, Phone: phone})
	require.NoError(t, err)
	return c
}

func dec(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
