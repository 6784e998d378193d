package shop

import (
	"errors"
	"strings"
)

var (
	ErrProductNotFound     = errors.New("producto no encontrado")
	ErrClientNotFound      = errors.New("cliente no encontrado")
	ErrOrderNotFound       = errors.New("pedido no encontrado")
	ErrDuplicateProduct    = errors.New("ya existe un producto igual")
	ErrDuplicateClient     = errors.New("ya existe un cliente con ese nombre")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrInvalidAmount       = errors.New("monto inválido")
	ErrInvalidDate         = errors.New("fecha inválida")
	ErrEmptySale           = errors.New("la venta debe tener al menos un item")
	ErrMissingName         = errors.New("el nombre es requerido")
	ErrObservationNotFound = errors.New("observación no encontrada")
)

// ValidationResult collects blocking errors and advisory warnings.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

func (r ValidationResult) String() string {
	if r.Valid() && len(r.Warnings) == 0 {
		return "✅ Validación exitosa"
	}

	var b strings.Builder
	if len(r.Errors) > 0 {
		b.WriteString("❌ *Errores:*\n")
		for _, e := range r.Errors {
			b.WriteString("  • " + e + "\n")
		}
	}
	if len(r.Warnings) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("⚠️ *Advertencias:*\n")
		for _, w := range r.Warnings {
			b.WriteString("  • " + w + "\n")
		}
	}
	return b.String()
}

// ValidationError blocks an operation. Kind is one of the sentinel errors so
// callers can match it with errors.Is.
type ValidationError struct {
	Kind   error
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return e.Kind.Error() + ": " + strings.Join(e.Result.Errors, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}
