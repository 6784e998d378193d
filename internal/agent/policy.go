package agent

import (
	"regexp"

	"nexo_bot/internal/sheets"
)

// Policy guards against replies that claim an action the model never
// performed through a tool.
type Policy interface {
	// ExpectsTool reports whether the user message asks for something that
	// only a tool can do.
	ExpectsTool(userMessage string) bool
	// ClaimsAction reports whether a free-text reply pretends the action
	// was carried out.
	ClaimsAction(reply string) bool
}

// RegexPolicy is the keyword heuristic tuned for Rioplatense Spanish.
type RegexPolicy struct {
	intent *regexp.Regexp
	claims *regexp.Regexp
}

// Patterns run on accent-folded, lower-cased text.
var (
	defaultIntent = regexp.MustCompile(`\b(vend[ií]|vendi|vendimos|compro|compraron|llevo|llevaron|entraron|entro|llegaron|llego|ingrese|ingresaron|agrega|agregar|agregue|suma|sumale|crea|crear|carga|cargar|cargue|registra|registrar|anota|anotar|anote|pago|pagaron|abono|cobre|debe|deudas?|stock|cuanto hay|cuantos hay|cliente nuevo|alta)\b`)
	defaultClaims = regexp.MustCompile(`(✓|✅|\blisto\b|\bregistr(e|ado|ada|amos)\b|\banot(e|ado|ada)\b|\bactualic(e|ado)\b|\bagregu?e\b|\bagregado\b|\bse (registro|actualizo|agrego|anoto|creo)\b|\bventa registrada\b|\bstock actualizado\b|\bpago registrado\b|\bcree el producto\b|\bproducto creado\b)`)
)

func NewRegexPolicy() *RegexPolicy {
	return &RegexPolicy{intent: defaultIntent, claims: defaultClaims}
}

func (p *RegexPolicy) ExpectsTool(userMessage string) bool {
	return p.intent.MatchString(sheets.Normalize(userMessage))
}

func (p *RegexPolicy) ClaimsAction(reply string) bool {
	return p.claims.MatchString(sheets.Normalize(reply))
}
