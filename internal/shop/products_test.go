package shop

import (
	"context"
	"errors"
	"sync"
	"testing"

	"nexo_bot/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStockNeverNegative(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	p := mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 3)

	got, err := s.Products.ReduceStock(ctx, p.ID, 2, "V1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	got, err = s.Products.ReduceStock(ctx, p.ID, 5, "V2")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	got, err = s.Products.AddStock(ctx, p.ID, 4, "")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)

	_, err = s.Products.AddStock(ctx, p.ID, -1, "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	reloaded, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Stock)
}

func TestStockMovementsAreRecorded(t *testing.T) {
	ctx := context.Background()
	s, store := newTestShop(t)
	p := mustProduct(t, s, "Buzo", "Buzos", "Gris", "L", 30000, 2)

	_, err := s.Products.AddStock(ctx, p.ID, 5, "")
	require.NoError(t, err)
	_, err = s.Products.ReduceStock(ctx, p.ID, 3, "V9")
	require.NoError(t, err)

	rows, err := store.GetRows(ctx, sheets.SheetMovements)
	require.NoError(t, err)
	records := sheets.RowsToObjects(rows)
	require.Len(t, records, 2)
	assert.Equal(t, "+5", records[0].Get("Cantidad"))
	assert.Equal(t, "entrada", records[0].Get("Tipo"))
	assert.Equal(t, "Entrada manual", records[0].Get("Notas"))
	assert.Equal(t, "-3", records[1].Get("Cantidad"))
	assert.Equal(t, "venta", records[1].Get("Tipo"))
	assert.Equal(t, "V9", records[1].Get("Referencia"))
	assert.Equal(t, "Buzo Gris L", records[1].Get("Producto Nombre"))
}

func TestCreateDuplicateProduct(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	mustProduct(t, s, "Remera Básica", "Remeras", "Negro", "M", 15000, 0)

	_, _, err := s.Products.Create(ctx, NewProduct{
		Name: "remera básica", Category: "REMERAS", Color: "negro", Size: "m", Price: dec(15000),
	})
	require.ErrorIs(t, err, ErrDuplicateProduct)

	for _, variant := range []NewProduct{
		{Name: "Remera Lisa", Category: "Remeras", Color: "Negro", Size: "M", Price: dec(15000)},
		{Name: "Remera Básica", Category: "Tops", Color: "Negro", Size: "M", Price: dec(15000)},
		{Name: "Remera Básica", Category: "Remeras", Color: "Blanco", Size: "M", Price: dec(15000)},
		{Name: "Remera Básica", Category: "Remeras", Color: "Negro", Size: "L", Price: dec(15000)},
	} {
		_, _, err := s.Products.Create(ctx, variant)
		require.NoError(t, err, variant)
	}
}

func TestCreateRejectsInvalidPrice(t *testing.T) {
	s, store := newTestShop(t)
	_, validation, err := s.Products.Create(context.Background(), NewProduct{
		Name: "Gorra", Category: "Accesorios", Color: "Azul", Size: "U", Price: dec(0),
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.False(t, validation.Valid())
	assert.Equal(t, 0, store.Len(sheets.SheetProducts))
}

func TestSKUGeneration(t *testing.T) {
	assert.Equal(t, "REM-NEG-M", GenerateSKU("Remeras", "Negro", "m"))
	assert.Equal(t, "PAN-AZU-42", GenerateSKU("Pantalón", "Azul", "42"))
	assert.Equal(t, GenerateSKU("Buzos", "Gris", "XL"), GenerateSKU("Buzos", "Gris", "XL"))

	ctx := context.Background()
	s, _ := newTestShop(t)
	first := mustProduct(t, s, "Remera Básica", "Remeras", "Negro", "M", 15000, 0)
	second := mustProduct(t, s, "Remera Estampada", "Remeras", "Negra", "M", 18000, 0)

	assert.Equal(t, "REM-NEG-M", first.SKU)
	assert.NotEqual(t, first.SKU, second.SKU)
	assert.Contains(t, second.SKU, "REM-NEG-M-")

	all, err := s.Products.All(ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, p := range all {
		assert.False(t, seen[p.SKU], "duplicate sku %s", p.SKU)
		seen[p.SKU] = true
	}
}

func TestSearchProducts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	negroM := mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 10)
	mustProduct(t, s, "Remera", "Remeras", "Blanco", "M", 15000, 10)
	mustProduct(t, s, "Remera", "Remeras", "Negro", "L", 15000, 10)
	mustProduct(t, s, "Pantalón Jean", "Pantalones", "Azul", "42", 40000, 5)

	got, err := s.Products.Search(ctx, Query{Text: "remeras negras M"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, negroM.ID, got[0].ID)

	got, err = s.Products.Search(ctx, Query{Text: "remera", Color: "negra"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Products.Search(ctx, Query{Text: "pantalones"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Pantalón Jean", got[0].Name)

	got, err = s.Products.Search(ctx, Query{Text: "campera"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchRanksExactNameFirst(t *testing.T) {
	all := []Product{
		{ID: "1", Name: "Remera estampada", Color: "Negro"},
		{ID: "2", Name: "Remera", Color: "Blanco"},
		{ID: "3", Name: "Remera", Color: "Negro"},
	}
	got := SearchProducts(all, Query{Text: "remera"})
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
	assert.Equal(t, "1", got[2].ID)
}

func TestSplitProductQuery(t *testing.T) {
	name, color, size := SplitProductQuery("remeras negras M")
	assert.Equal(t, "remeras", name)
	assert.Equal(t, "negras", color)
	assert.Equal(t, "M", size)

	name, color, size = SplitProductQuery("pantalón azul talle 42")
	assert.Equal(t, "pantalón", name)
	assert.Equal(t, "azul", color)
	assert.Equal(t, "42", size)

	name, _, size = SplitProductQuery("M")
	assert.Equal(t, "M", name)
	assert.Empty(t, size)
}

func TestSameColor(t *testing.T) {
	assert.True(t, SameColor("negras", "Negro"))
	assert.True(t, SameColor("Azules", "azul"))
	assert.True(t, SameColor("bordó", "Bordo"))
	assert.False(t, SameColor("negro", "blanco"))
}

// barrierStore holds the first two product reads until both have arrived, so
// two writers start from the same snapshot.
type barrierStore struct {
	sheets.Store
	mu      sync.Mutex
	reads   int
	arrived sync.WaitGroup
}

func (b *barrierStore) GetRows(ctx context.Context, sheet string) ([][]string, error) {
	if sheet == sheets.SheetProducts {
		b.mu.Lock()
		b.reads++
		n := b.reads
		b.mu.Unlock()
		if n <= 2 {
			b.arrived.Done()
			b.arrived.Wait()
		}
	}
	return b.Store.GetRows(ctx, sheet)
}

// Concurrent stock entries for one product are last-writer-wins: both start
// from the same stock and one delta is lost. Both movements are still logged.
func TestConcurrentAddStockLastWriterWins(t *testing.T) {
	ctx := context.Background()
	seed, store := newTestShop(t)
	p := mustProduct(t, seed, "Remera", "Remeras", "Negro", "M", 15000, 10)

	barrier := &barrierStore{Store: store}
	barrier.arrived.Add(2)
	racing := New(barrier, 0, fixedClock(), zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := racing.Products.AddStock(ctx, p.ID, 5, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	final, err := seed.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, final.Stock)
	assert.Equal(t, 2, store.Len(sheets.SheetMovements))
}

func TestUpdatePhoto(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	p := mustProduct(t, s, "Campera", "Camperas", "Negro", "L", 90000, 1)

	require.NoError(t, s.Products.UpdatePhoto(ctx, p.ID, "file-123"))
	got, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "file-123", got.PhotoURL)

	err = s.Products.UpdatePhoto(ctx, "P-NOPE", "x")
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestLowStock(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestShop(t)
	mustProduct(t, s, "Remera", "Remeras", "Negro", "M", 15000, 5)
	mustProduct(t, s, "Buzo", "Buzos", "Gris", "L", 30000, 6)

	low, err := s.Products.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Remera", low[0].Name)
}
