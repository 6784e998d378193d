package shop

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"nexo_bot/internal/sheets"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultMinStock = 5

type ProductRepo struct {
	store     sheets.Store
	cache     *TTLCache[[]Product]
	movements *MovementLog
	clock     Clock
	logger    *zap.Logger
}

func NewProductRepo(store sheets.Store, cache *TTLCache[[]Product], movements *MovementLog, clock Clock, logger *zap.Logger) *ProductRepo {
	return &ProductRepo{
		store:     store,
		cache:     cache,
		movements: movements,
		clock:     clock,
		logger:    logger.Named("products"),
	}
}

func (r *ProductRepo) All(ctx context.Context) ([]Product, error) {
	if cached, ok := r.cache.Get(); ok {
		return cached, nil
	}
	rows, err := r.store.GetRows(ctx, sheets.SheetProducts)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	records := sheets.RowsToObjects(rows)
	products := make([]Product, 0, len(records))
	for _, rec := range records {
		if rec.Get("ID") == "" {
			continue
		}
		products = append(products, productFromRecord(rec))
	}
	r.cache.Set(products)
	return products, nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id string) (Product, error) {
	all, err := r.All(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range all {
		if strings.EqualFold(p.ID, strings.TrimSpace(id)) {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

// Query narrows a product search. Color and Size are hard filters; when empty
// they are extracted from Text.
type Query struct {
	Text  string
	Color string
	Size  string
}

// Search resolves a free-text product reference. Results are ranked with
// exact name matches first, then color matches.
func (r *ProductRepo) Search(ctx context.Context, q Query) ([]Product, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	return SearchProducts(all, q), nil
}

func SearchProducts(all []Product, q Query) []Product {
	name, color, size := SplitProductQuery(q.Text)
	if strings.TrimSpace(q.Color) != "" {
		color = q.Color
	}
	if strings.TrimSpace(q.Size) != "" {
		size = q.Size
	}

	var out []Product
	for _, p := range all {
		if color != "" && !SameColor(color, p.Color) {
			continue
		}
		if size != "" && !strings.EqualFold(strings.TrimSpace(size), strings.TrimSpace(p.Size)) {
			continue
		}
		if name != "" && !matchesProductName(name, p) {
			continue
		}
		out = append(out, p)
	}

	normName := sheets.Singular(sheets.Normalize(name))
	sort.SliceStable(out, func(i, j int) bool {
		return productScore(out[i], normName, color) > productScore(out[j], normName, color)
	})
	return out
}

func matchesProductName(name string, p Product) bool {
	if strings.EqualFold(name, p.SKU) {
		return true
	}
	return sheets.FuzzyMatch(name, p.Name) || sheets.FuzzyMatch(name, p.Category)
}

func productScore(p Product, normName, color string) int {
	score := 0
	if normName != "" && sheets.Singular(sheets.Normalize(p.Name)) == normName {
		score += 2
	}
	if color != "" && SameColor(color, p.Color) {
		score++
	}
	return score
}

// IsExactMatch reports whether p matches every attribute the query names.
func IsExactMatch(p Product, q Query) bool {
	name, color, size := SplitProductQuery(q.Text)
	if q.Color != "" {
		color = q.Color
	}
	if q.Size != "" {
		size = q.Size
	}
	if name == "" || sheets.Singular(sheets.Normalize(name)) != sheets.Singular(sheets.Normalize(p.Name)) {
		return false
	}
	if color != "" && !SameColor(color, p.Color) {
		return false
	}
	if size != "" && !strings.EqualFold(size, p.Size) {
		return false
	}
	return color != "" && size != ""
}

type NewProduct struct {
	Name         string
	Category     string
	Color        string
	Size         string
	Price        decimal.Decimal
	Description  string
	Season       string
	Supplier     string
	InitialStock int
	MinStock     *int
}

// Create appends a product row. It fails with ErrDuplicateProduct when a
// product with the same name, category, color and size exists.
func (r *ProductRepo) Create(ctx context.Context, in NewProduct) (Product, ValidationResult, error) {
	validation := ValidateProductPrice(in.Price)
	validation.Merge(ValidateStockQuantity(in.InitialStock, ContextNone))
	if in.InitialStock == 0 {
		// Creating without stock is normal.
		validation.Warnings = removeString(validation.Warnings, "Cantidad de stock es cero")
	}
	if !validation.Valid() {
		return Product{}, validation, &ValidationError{Kind: ErrInvalidAmount, Result: validation}
	}

	all, err := r.All(ctx)
	if err != nil {
		return Product{}, validation, err
	}
	for _, p := range all {
		if strings.EqualFold(p.Name, in.Name) && strings.EqualFold(p.Category, in.Category) &&
			strings.EqualFold(p.Color, in.Color) && strings.EqualFold(p.Size, in.Size) {
			return Product{}, validation, fmt.Errorf("%w: %s (SKU: %s)", ErrDuplicateProduct, p.Label(), p.SKU)
		}
	}

	minStock := defaultMinStock
	if in.MinStock != nil {
		minStock = *in.MinStock
	}
	id := NewID(prefixProduct)
	p := Product{
		ID:          id,
		SKU:         UniqueSKU(GenerateSKU(in.Category, in.Color, in.Size), id, all),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Color:       strings.TrimSpace(in.Color),
		Size:        strings.TrimSpace(in.Size),
		Description: in.Description,
		Season:      in.Season,
		Supplier:    in.Supplier,
		Stock:       in.InitialStock,
		MinStock:    minStock,
		Price:       in.Price,
	}
	validation.Merge(ValidateSKU(p.SKU))

	if err := r.store.AppendRow(ctx, sheets.SheetProducts, productRow(p)); err != nil {
		return Product{}, validation, fmt.Errorf("appending product: %w", err)
	}
	r.cache.Invalidate()
	r.logger.Info("product created", zap.String("id", p.ID), zap.String("sku", p.SKU))
	return p, validation, nil
}

// AddStock increases stock and records an entry movement. The new value is
// computed from the product as read, so concurrent writers race and the last
// write wins.
func (r *ProductRepo) AddStock(ctx context.Context, productID string, quantity int, notes string) (Product, error) {
	if quantity <= 0 {
		return Product{}, &ValidationError{Kind: ErrInvalidAmount, Result: ValidateStockQuantity(quantity, ContextNone)}
	}
	p, err := r.FindByID(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	p.Stock += quantity
	if err := r.writeColumn(ctx, p.ID, "Stock", strconv.Itoa(p.Stock)); err != nil {
		return Product{}, err
	}
	if notes == "" {
		notes = "Entrada manual"
	}
	if err := r.movements.Record(ctx, p, quantity, MovementEntry, "", notes); err != nil {
		return Product{}, err
	}
	return p, nil
}

// ReduceStock decrements stock for a sale, clamping at zero.
func (r *ProductRepo) ReduceStock(ctx context.Context, productID string, quantity int, reference string) (Product, error) {
	p, err := r.FindByID(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	p.Stock = max(0, p.Stock-quantity)
	if err := r.writeColumn(ctx, p.ID, "Stock", strconv.Itoa(p.Stock)); err != nil {
		return Product{}, err
	}
	if err := r.movements.Record(ctx, p, quantity, MovementSale, reference, ""); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *ProductRepo) LowStock(ctx context.Context) ([]Product, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var low []Product
	for _, p := range all {
		if p.IsLowStock() {
			low = append(low, p)
		}
	}
	return low, nil
}

func (r *ProductRepo) UpdatePhoto(ctx context.Context, productID, photoURL string) error {
	return r.writeColumn(ctx, productID, "Foto URL", photoURL)
}

func (r *ProductRepo) Invalidate() {
	r.cache.Invalidate()
}

// writeColumn re-reads the sheet, locates the row by ID and writes the whole
// row back with one column changed.
func (r *ProductRepo) writeColumn(ctx context.Context, productID, column, value string) error {
	err := updateColumn(ctx, r.store, sheets.SheetProducts, productID, column, value, ErrProductNotFound)
	r.cache.Invalidate()
	return err
}

// GenerateSKU builds CAT-COL-SIZE from the first three letters of category
// and color.
func GenerateSKU(category, color, size string) string {
	return prefix3(category) + "-" + prefix3(color) + "-" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(size), " ", ""))
}

// UniqueSKU suffixes sku with a fragment of id when another product uses it.
func UniqueSKU(sku, id string, existing []Product) string {
	taken := func(candidate string) bool {
		for _, p := range existing {
			if strings.EqualFold(p.SKU, candidate) {
				return true
			}
		}
		return false
	}
	if !taken(sku) {
		return sku
	}
	frag := strings.TrimPrefix(id, prefixProduct)
	for n := 4; n <= len(frag); n++ {
		candidate := sku + "-" + frag[:n]
		if !taken(candidate) {
			return candidate
		}
	}
	return sku + "-" + frag
}

func prefix3(s string) string {
	s = strings.ToUpper(strings.ReplaceAll(sheets.Normalize(s), " ", ""))
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

func productFromRecord(rec sheets.Record) Product {
	return Product{
		ID:          rec.Get("ID"),
		SKU:         rec.Get("SKU"),
		Name:        rec.Get("Nombre"),
		Category:    rec.Get("Categoria"),
		Color:       rec.Get("Color"),
		Size:        rec.Get("Talle"),
		Description: rec.Get("Descripcion"),
		Season:      rec.Get("Temporada"),
		Supplier:    rec.Get("Proveedor"),
		PhotoURL:    rec.Get("Foto URL"),
		Stock:       parseIntOrZero(rec.Get("Stock")),
		MinStock:    parseIntOrZero(rec.Get("Stock Mínimo")),
		Price:       parseMoneyOrZero(rec.Get("Precio")),
	}
}

func productRow(p Product) []string {
	return []string{
		p.ID, p.SKU, p.Name, p.Category, p.Color, p.Size, p.Description, p.Season, p.Supplier,
		p.PhotoURL, strconv.Itoa(p.Stock), strconv.Itoa(p.MinStock), p.Price.String(),
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
