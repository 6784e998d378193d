package shop

import (
	"context"
	"fmt"
	"slices"

	"nexo_bot/internal/sheets"
)

func columnIndex(sheet, column string) int {
	return slices.Index(sheets.Headers[sheet], column)
}

// updateColumn locates a row by a linear scan on the ID column, changes one
// cell and writes the whole row back. There is no optimistic concurrency
// check: unrelated edits made to the row since it was read are overwritten.
func updateColumn(ctx context.Context, store sheets.Store, sheet, id, column, value string, notFound error) error {
	idx := columnIndex(sheet, column)
	if idx < 0 {
		return fmt.Errorf("unknown column %q in %s", column, sheet)
	}
	rows, err := store.GetRows(ctx, sheet)
	if err != nil {
		return fmt.Errorf("loading %s: %w", sheet, err)
	}
	rec, ok := sheets.FindByID(sheets.RowsToObjects(rows), id)
	if !ok {
		return fmt.Errorf("%w: %s", notFound, id)
	}

	row := append([]string(nil), rows[rec.Row-1]...)
	for len(row) < len(sheets.Headers[sheet]) {
		row = append(row, "")
	}
	row[idx] = value
	if err := store.UpdateRow(ctx, sheet, rec.Row, row); err != nil {
		return fmt.Errorf("updating %s row %d: %w", sheet, rec.Row, err)
	}
	return nil
}
