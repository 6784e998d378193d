package shop

import (
	"time"

	"nexo_bot/internal/config"
	"nexo_bot/internal/sheets"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Shop groups the repositories over one spreadsheet.
type Shop struct {
	Products  *ProductRepo
	Clients   *ClientRepo
	Orders    *OrderRepo
	Payments  *PaymentRepo
	Movements *MovementLog
	Learning  *LearningRepo
	Clock     Clock
}

// New wires the repositories. Product and client lists are cached
// process-wide for cacheTTL; every mutation invalidates its cache.
func New(store sheets.Store, cacheTTL time.Duration, clock Clock, logger *zap.Logger) *Shop {
	logger = logger.Named("shop")
	movements := NewMovementLog(store, clock)
	products := NewProductRepo(store, NewTTLCache[[]Product](cacheTTL), movements, clock, logger)
	clients := NewClientRepo(store, NewTTLCache[[]Client](cacheTTL), clock, logger)
	orders := NewOrderRepo(store, products, clients, clock, logger)
	return &Shop{
		Products:  products,
		Clients:   clients,
		Orders:    orders,
		Payments:  NewPaymentRepo(store, orders, clients, clock, logger),
		Movements: movements,
		Learning:  NewLearningRepo(store, clock, logger),
		Clock:     clock,
	}
}

func NewFromConfig(cfg config.Config, store sheets.Store, logger *zap.Logger) *Shop {
	loc := cfg.Location()
	return New(store, cfg.CacheTTL, func() time.Time { return time.Now().In(loc) }, logger)
}

func Module() fx.Option {
	return fx.Module(
		"shop",
		fx.Provide(NewFromConfig),
	)
}
