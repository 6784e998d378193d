package shop

import (
	"context"
	"fmt"
	"strconv"

	"nexo_bot/internal/sheets"
)

// MovementLog appends to the stock audit sheet. It is never read back by the bot.
type MovementLog struct {
	store sheets.Store
	clock Clock
}

func NewMovementLog(store sheets.Store, clock Clock) *MovementLog {
	return &MovementLog{store: store, clock: clock}
}

func (m *MovementLog) Record(ctx context.Context, p Product, quantity int, kind MovementKind, reference, notes string) error {
	signed := "-" + strconv.Itoa(quantity)
	if kind == MovementEntry {
		signed = "+" + strconv.Itoa(quantity)
	}
	row := []string{
		NewID(prefixMovement),
		m.clock.Today(),
		p.ID,
		p.Label(),
		signed,
		string(kind),
		dashIfEmpty(reference),
		dashIfEmpty(notes),
	}
	if err := m.store.AppendRow(ctx, sheets.SheetMovements, row); err != nil {
		return fmt.Errorf("recording stock movement: %w", err)
	}
	return nil
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func emptyIfDash(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
