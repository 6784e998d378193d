package agent

import (
	"context"
	"fmt"
	"strings"

	"nexo_bot/internal/llm"
	"nexo_bot/internal/sheets"
	"nexo_bot/internal/shop"

	"github.com/shopspring/decimal"
)

func (d *Dispatcher) stockCheck(ctx context.Context, args map[string]any) (Result, error) {
	ref, _ := getStringArg(args, "producto")
	if ref == "" {
		all, err := d.shop.Products.All(ctx)
		if err != nil {
			return nil, err
		}
		return Reply{Text: shop.FormatStockSummary(all)}, nil
	}

	if id, ok := parseIDRef(ref); ok {
		p, err := d.shop.Products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return Reply{Text: shop.FormatProductInfo([]shop.Product{p})}, nil
	}
	matches, err := d.shop.Products.Search(ctx, shop.Query{Text: ref})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return Reply{Text: fmt.Sprintf("No se encontró ningún producto que coincida con \"%s\".", ref)}, nil
	}
	return Reply{Text: shop.FormatProductInfo(matches)}, nil
}

type stockAddArgs struct {
	Producto string `arg:"producto" validate:"required"`
	Cantidad int    `arg:"cantidad" validate:"gt=0"`
	Color    string `arg:"color"`
	Talle    string `arg:"talle"`
	Notas    string `arg:"notas"`
}

func (d *Dispatcher) stockAdd(ctx context.Context, args map[string]any) (Result, error) {
	in := stockAddArgs{Cantidad: getIntArg(args, "cantidad", 0)}
	in.Producto, _ = getStringArg(args, "producto")
	in.Color, _ = getStringArg(args, "color")
	in.Talle, _ = getStringArg(args, "talle")
	in.Notas, _ = getStringArg(args, "notas")
	if err := validateArgs(in); err != nil {
		return nil, err
	}

	p, candidates, err := d.findProduct(ctx, in.Producto, in.Color, in.Talle)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return productSelection(candidates, llm.ToolStockAdd, cloneArgs(args), "producto", in.Producto), nil
	}
	if p.ID == "" {
		return Reply{Text: stockAddNotFound(in)}, nil
	}

	updated, err := d.shop.Products.AddStock(ctx, p.ID, in.Cantidad, in.Notas)
	if err != nil {
		return nil, err
	}
	return Reply{Text: fmt.Sprintf("✓ Registrado. Stock de %s actualizado: %d (+%d)", updated.Label(), updated.Stock, in.Cantidad)}, nil
}

// stockAddNotFound suggests creating the product with what is already known.
func stockAddNotFound(in stockAddArgs) string {
	name, color, size := shop.SplitProductQuery(in.Producto)
	if in.Color != "" {
		color = in.Color
	}
	if in.Talle != "" {
		size = in.Talle
	}
	if name == "" {
		name = in.Producto
	}

	known := []string{fmt.Sprintf("nombre \"%s\"", name)}
	if color != "" {
		known = append(known, fmt.Sprintf("color \"%s\"", color))
	}
	if size != "" {
		known = append(known, fmt.Sprintf("talle \"%s\"", size))
	}
	known = append(known, fmt.Sprintf("stock inicial %d", in.Cantidad))

	var b strings.Builder
	b.WriteString(productNotFound(in.Producto, in.Color, in.Talle))
	b.WriteString("\n\n💡 Si es un producto nuevo, lo puedo crear (" + llm.ToolProductCreate + ") con ")
	b.WriteString(strings.Join(known, ", "))
	b.WriteString(".\nDecime la categoría y el precio para darlo de alta.")
	return b.String()
}

func (d *Dispatcher) stockLow(ctx context.Context) (Result, error) {
	low, err := d.shop.Products.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	return Reply{Text: FormatLowStock(low, 0)}, nil
}

// FormatLowStock lists products at or below their minimum. limit <= 0 lists all.
func FormatLowStock(products []shop.Product, limit int) string {
	if len(products) == 0 {
		return "✓ Todos los productos tienen stock suficiente."
	}
	var b strings.Builder
	b.WriteString("⚠️ Productos con stock bajo:\n")
	for i, p := range products {
		if limit > 0 && i == limit {
			fmt.Fprintf(&b, "\n... (%d más)", len(products)-limit)
			break
		}
		fmt.Fprintf(&b, "\n- %s: %d (mínimo: %d)", p.Label(), p.Stock, p.MinStock)
	}
	return b.String()
}

type productCreateArgs struct {
	Nombre       string          `arg:"nombre" validate:"required"`
	Categoria    string          `arg:"categoria" validate:"required"`
	Color        string          `arg:"color" validate:"required"`
	Talle        string          `arg:"talle" validate:"required"`
	Precio       decimal.Decimal `arg:"precio" validate:"required,gt=0"`
	Descripcion  string          `arg:"descripcion"`
	Temporada    string          `arg:"temporada"`
	Proveedor    string          `arg:"proveedor"`
	StockInicial int             `arg:"stockInicial" validate:"gte=0"`
	StockMinimo  *int            `arg:"stockMinimo" validate:"omitempty,gte=0"`
}

func (d *Dispatcher) productCreate(ctx context.Context, args map[string]any) (Result, error) {
	in := productCreateArgs{
		StockInicial: getIntArg(args, "stockInicial", 0),
		StockMinimo:  getOptionalIntArg(args, "stockMinimo"),
	}
	in.Nombre, _ = getStringArg(args, "nombre")
	in.Categoria, _ = getStringArg(args, "categoria")
	in.Color, _ = getStringArg(args, "color")
	in.Talle, _ = getStringArg(args, "talle")
	in.Precio, _ = getDecimalArg(args, "precio")
	in.Descripcion, _ = getStringArg(args, "descripcion")
	in.Temporada, _ = getStringArg(args, "temporada")
	in.Proveedor, _ = getStringArg(args, "proveedor")
	if err := validateArgs(in); err != nil {
		return nil, err
	}

	sizes := shop.ParseSizes(in.Talle)
	if len(sizes) <= 1 {
		p, validation, err := d.shop.Products.Create(ctx, in.newProduct(in.Talle, in.StockInicial))
		if err != nil {
			return nil, err
		}
		return Reply{Text: withWarnings(formatCreatedProduct(p), validation)}, nil
	}
	return d.createSizes(ctx, in, sizes)
}

func (in productCreateArgs) newProduct(size string, stock int) shop.NewProduct {
	return shop.NewProduct{
		Name:         in.Nombre,
		Category:     in.Categoria,
		Color:        in.Color,
		Size:         size,
		Price:        in.Precio,
		Description:  in.Descripcion,
		Season:       in.Temporada,
		Supplier:     in.Proveedor,
		InitialStock: stock,
		MinStock:     in.StockMinimo,
	}
}

// createSizes creates one row per size and splits the initial stock evenly,
// the remainder going to the first sizes. A failing size does not stop the
// others.
func (d *Dispatcher) createSizes(ctx context.Context, in productCreateArgs, sizes []string) (Result, error) {
	stocks := shop.DistributeQuantity(in.StockInicial, len(sizes))
	var created []shop.Product
	var failures []string
	var warnings shop.ValidationResult
	for i, size := range sizes {
		p, validation, err := d.shop.Products.Create(ctx, in.newProduct(size, stocks[i]))
		if err != nil {
			if !isDomainError(err) {
				return nil, err
			}
			failures = append(failures, fmt.Sprintf("talle %s: %s", size, friendlyError(err)))
			continue
		}
		created = append(created, p)
		warnings.Warnings = append(warnings.Warnings, validation.Warnings...)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("%w: %s", shop.ErrDuplicateProduct, strings.Join(failures, "; "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✓ Se crearon %d productos (talles %s):\n", len(created), strings.Join(sizes, ", "))
	for _, p := range created {
		fmt.Fprintf(&b, "\n- %s (%s): stock %d", p.Label(), p.SKU, p.Stock)
	}
	fmt.Fprintf(&b, "\n\nPrecio: %s", shop.FormatPrice(in.Precio))
	for _, f := range failures {
		b.WriteString("\n❌ " + f)
	}
	return Reply{Text: withWarnings(b.String(), dedupeWarnings(warnings))}, nil
}

func dedupeWarnings(v shop.ValidationResult) shop.ValidationResult {
	seen := make(map[string]bool)
	var out shop.ValidationResult
	for _, w := range v.Warnings {
		if !seen[w] {
			seen[w] = true
			out.Warnings = append(out.Warnings, w)
		}
	}
	return out
}

func formatCreatedProduct(p shop.Product) string {
	var b strings.Builder
	b.WriteString("✓ Producto creado exitosamente:\n")
	fmt.Fprintf(&b, "%s\n", p.Label())
	fmt.Fprintf(&b, "SKU: %s\n", p.SKU)
	fmt.Fprintf(&b, "Precio: %s\n", shop.FormatPrice(p.Price))
	fmt.Fprintf(&b, "Stock inicial: %d", p.Stock)
	if p.Description != "" {
		fmt.Fprintf(&b, "\nDescripción: %s", p.Description)
	}
	if p.Season != "" {
		fmt.Fprintf(&b, "\nTemporada: %s", p.Season)
	}
	if p.Supplier != "" {
		fmt.Fprintf(&b, "\nProveedor: %s", p.Supplier)
	}
	return b.String()
}

func (d *Dispatcher) productSearch(ctx context.Context, args map[string]any) (Result, error) {
	term, _ := getStringArg(args, "busqueda")
	if term == "" {
		return nil, fmt.Errorf("%w: falta busqueda", errInvalidArgs)
	}
	matches, err := d.shop.Products.Search(ctx, shop.Query{Text: term})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		all, err := d.shop.Products.All(ctx)
		if err != nil {
			return nil, err
		}
		matches = containsSearch(all, term)
	}
	if len(matches) == 0 {
		return Reply{Text: fmt.Sprintf("No se encontraron productos que coincidan con \"%s\".", term)}, nil
	}
	return Reply{Text: shop.FormatProductInfo(matches)}, nil
}

// containsSearch is the plain substring search over every descriptive field.
func containsSearch(all []shop.Product, term string) []shop.Product {
	needle := sheets.Normalize(term)
	var out []shop.Product
	for _, p := range all {
		for _, field := range []string{p.SKU, p.Name, p.Color, p.Size, p.Category} {
			if field != "" && strings.Contains(sheets.Normalize(field), needle) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

const msgPhotoProductNotFound = "❌ No encontré ese producto. Escribime el nombre más específico, la foto sigue guardada."

func (d *Dispatcher) attachPhoto(ctx context.Context, args map[string]any) (Result, error) {
	ref, _ := getStringArg(args, "producto")
	photo, _ := getStringArg(args, "foto")
	if ref == "" || photo == "" {
		return nil, fmt.Errorf("%w: falta producto o foto", errInvalidArgs)
	}
	p, candidates, err := d.findProduct(ctx, ref, "", "")
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return productSelection(candidates, ActionAttachPhoto, cloneArgs(args), "producto", ref), nil
	}
	if p.ID == "" {
		return Reply{Text: msgPhotoProductNotFound, NotFound: true}, nil
	}
	if err := d.shop.Products.UpdatePhoto(ctx, p.ID, photo); err != nil {
		return nil, err
	}
	return Reply{Text: fmt.Sprintf("✅ Foto asociada a %s", p.Label())}, nil
}
