package shop

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Context for amount and quantity checks.
type Context string

const (
	ContextNone    Context = ""
	ContextSale    Context = "sale"
	ContextPayment Context = "payment"
)

var (
	maxAmount        = decimal.NewFromInt(10_000_000)
	maxSaleAmount    = decimal.NewFromInt(1_000_000)
	maxPaymentAmount = decimal.NewFromInt(5_000_000)
	minPrice         = decimal.NewFromInt(100)
	maxPrice         = decimal.NewFromInt(500_000)

	isoDate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nonDigits = regexp.MustCompile(`[^0-9]`)
)

const (
	maxStockQuantity = 10_000
	maxSaleQuantity  = 500
)

func ValidateStockQuantity(quantity int, ctx Context) ValidationResult {
	var r ValidationResult
	if quantity < 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("Cantidad de stock no puede ser negativa: %d", quantity))
	}
	if quantity == 0 {
		r.Warnings = append(r.Warnings, "Cantidad de stock es cero")
	}
	if quantity > maxStockQuantity {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Cantidad inusualmente alta: %d. Verificar si es correcto.", quantity))
	}
	if ctx == ContextSale && quantity > maxSaleQuantity {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Venta de cantidad muy alta (%d). Verificar si es correcto.", quantity))
	}
	return r
}

func ValidateStockAvailability(p Product, requested int) ValidationResult {
	var r ValidationResult
	if p.Stock < requested {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"Stock insuficiente de %s. Disponible: %d, Solicitado: %d", p.Label(), p.Stock, requested))
	}
	after := p.Stock - requested
	if after >= 0 && after < p.MinStock {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"Venta dejará el stock por debajo del mínimo. Quedarán %d (mínimo: %d)", after, p.MinStock))
	}
	return r
}

func ValidateMoneyAmount(amount decimal.Decimal, ctx Context) ValidationResult {
	var r ValidationResult
	if amount.IsNegative() {
		r.Errors = append(r.Errors, "Monto no puede ser negativo: "+FormatPrice(amount))
	}
	if amount.IsZero() {
		r.Warnings = append(r.Warnings, "Monto es cero")
	}
	if amount.GreaterThan(maxAmount) {
		r.Warnings = append(r.Warnings, "Monto inusualmente alto: "+FormatPrice(amount)+". Verificar si es correcto.")
	}
	if ctx == ContextSale && amount.GreaterThan(maxSaleAmount) {
		r.Warnings = append(r.Warnings, "Venta de monto muy alto ("+FormatPrice(amount)+"). Verificar.")
	}
	if ctx == ContextPayment && amount.GreaterThan(maxPaymentAmount) {
		r.Warnings = append(r.Warnings, "Pago de monto muy alto ("+FormatPrice(amount)+"). Verificar.")
	}
	return r
}

func ValidateProductPrice(price decimal.Decimal) ValidationResult {
	var r ValidationResult
	if !price.IsPositive() {
		r.Errors = append(r.Errors, "Precio debe ser mayor a cero: "+FormatPrice(price))
	}
	if price.LessThan(minPrice) {
		r.Warnings = append(r.Warnings, "Precio inusualmente bajo: "+FormatPrice(price)+". Verificar.")
	}
	if price.GreaterThan(maxPrice) {
		r.Warnings = append(r.Warnings, "Precio inusualmente alto: "+FormatPrice(price)+". Verificar.")
	}
	return r
}

// ValidatePayment never blocks an overpayment; it only warns.
func ValidatePayment(amount, debt decimal.Decimal) ValidationResult {
	r := ValidateMoneyAmount(amount, ContextPayment)
	if amount.GreaterThan(debt) {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"El pago (%s) es mayor a la deuda (%s). ¿El cliente está pagando por adelantado o hay un error?",
			FormatPrice(amount), FormatPrice(debt)))
	}
	if amount.Equal(debt) && debt.IsPositive() {
		r.Warnings = append(r.Warnings, "El pago salda completamente la deuda. Confirmar.")
	}
	return r
}

func ValidateDeadline(deadline string, now time.Time) ValidationResult {
	var r ValidationResult
	if !isoDate.MatchString(deadline) {
		r.Errors = append(r.Errors, fmt.Sprintf("Formato de fecha inválido: %s. Usar YYYY-MM-DD", deadline))
		return r
	}
	due, err := time.ParseInLocation(DateLayout, deadline, now.Location())
	if err != nil {
		r.Errors = append(r.Errors, "Fecha inválida: "+deadline)
		return r
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if due.Before(today) {
		r.Warnings = append(r.Warnings, "Fecha de vencimiento está en el pasado: "+deadline)
	}
	if due.After(now.AddDate(1, 0, 0)) {
		r.Warnings = append(r.Warnings, "Fecha de vencimiento es muy lejana (más de 1 año): "+deadline)
	}
	return r
}

// ValidatePhoneNumber only warns: the phone is optional.
func ValidatePhoneNumber(phone string) ValidationResult {
	var r ValidationResult
	digits := nonDigits.ReplaceAllString(phone, "")
	switch {
	case phone == "":
		r.Warnings = append(r.Warnings, "Número de teléfono vacío")
	case digits == "":
		r.Warnings = append(r.Warnings, "Número de teléfono no contiene dígitos")
	case len(digits) < 10:
		r.Warnings = append(r.Warnings, fmt.Sprintf("Número de teléfono muy corto: %s (mínimo 10 dígitos)", digits))
	case len(digits) > 13:
		r.Warnings = append(r.Warnings, fmt.Sprintf("Número de teléfono muy largo: %s (máximo 13 dígitos con código)", digits))
	}
	return r
}

func ValidateSKU(sku string) ValidationResult {
	var r ValidationResult
	if sku == "" {
		r.Errors = append(r.Errors, "SKU no puede estar vacío")
	}
	if len(sku) < 3 {
		r.Warnings = append(r.Warnings, "SKU muy corto (mínimo recomendado: 3 caracteres)")
	}
	if len(sku) > 50 {
		r.Warnings = append(r.Warnings, "SKU muy largo (máximo recomendado: 50 caracteres)")
	}
	return r
}
