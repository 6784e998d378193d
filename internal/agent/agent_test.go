package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"nexo_bot/internal/sheets"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/state"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func newTestShop(t *testing.T) (*shop.Shop, *sheets.MemoryStore) {
	t.Helper()
	store := sheets.NewMemoryStore()
	return shop.New(store, 0, func() time.Time { return testNow }, zap.NewNop()), store
}

func mustProduct(t *testing.T, s *shop.Shop, name, color, size string, price int64, stock int) shop.Product {
	t.Helper()
	p, _, err := s.Products.Create(context.Background(), shop.NewProduct{
		Name:         name,
		Category:     "Remeras",
		Color:        color,
		Size:         size,
		Price:        decimal.NewFromInt(price),
		InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func mustClient(t *testing.T, s *shop.Shop, name, phone string) shop.Client {
	t.Helper()
	c, _, err := s.Clients.Add(context.Background(), shop.NewClient{Name: name, Phone: phone})
	require.NoError(t, err)
	return c
}

func jsonArgs(t *testing.T, raw string) map[string]any {
	t.Helper()
	args := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(raw), &args))
	return args
}

func replyText(t *testing.T, res Result) string {
	t.Helper()
	r, ok := res.(Reply)
	require.True(t, ok, "expected Reply, got %T", res)
	return r.Text
}

func newTestPending() *state.PendingStore {
	return state.NewPendingStore(state.DefaultPendingTTL, func() time.Time { return testNow })
}
