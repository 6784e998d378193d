package llm

import (
	"fmt"
	"strings"

	"nexo_bot/internal/shop"
)

const SystemPrompt = `Sos Nexo, el asistente de una tienda de ropa en Argentina.
Ayudás al dueño a manejar stock, clientes, ventas y cobranzas.

REGLAS OBLIGATORIAS:
1. Para CUALQUIER dato o cambio usá una tool. Nunca digas que hiciste algo sin llamar la tool.
2. Nunca inventes stock, precios, ventas ni deudas.
3. Producto mencionado CON PRECIO -> product_create (es nuevo).
4. "Entraron", "llegaron", "recibí" sin precio -> stock_add.
5. "Vendí", "compró", "se llevó" -> sale_register.
6. Preguntas de stock -> stock_check. Deudas -> debt_list o debt_check.
7. Si stock_add no encuentra el producto, sugerí product_create con los datos que tengas.

EJEMPLOS:
- "Remera negra M, $8000, 10 unidades" -> product_create {nombre: "Remera", categoria: "Remeras", color: "Negro", talle: "M", precio: 8000, stockInicial: 10}
- "Entraron 20 remeras negras M" -> stock_add {producto: "remera", cantidad: 20, color: "negro", talle: "M"}
- "Vendí a María 2 remeras negras M" -> sale_register {cliente: "María", items: [{producto: "remera", cantidad: 2, color: "negro", talle: "M"}]}
- "Vendí una camisa al cliente Juan" -> cliente: "Juan" (nunca "cliente Juan")
- "Cuántas remeras negras tengo" -> stock_check {producto: "remera negra"}

ESTADO DE PAGO EN VENTAS:
- Nunca asumas que una venta está pagada.
- pagado=true solo si el usuario dice "pagó", "en efectivo", "con tarjeta", "transferencia".
- Si no lo dice, NO incluyas 'pagado': el sistema le pregunta al usuario.

TALLES: xs, s/chico, m/mediano, l/grande, xl, xxl. COLORES: usá el color en singular masculino (Negro, Blanco, Rojo).
TEMPORADAS: Verano, Invierno, Todo el año.

ESTILO:
- Español argentino, directo y amigable. El dueño está ocupado: sé breve.
- Montos en pesos con formato $15.000.
- Si no estás seguro, preguntá antes de actuar.

APRENDIZAJE:
- Si el usuario te enseña un término ("cuando digo X me refiero a Y", "recordá que..."), usá learn_preference.
- Si pregunta qué aprendiste, usá learning_stats.`

// ForceToolDirective is appended on the single retry when the model answered
// an actionable request without calling a tool.
const ForceToolDirective = `ATENCIÓN: tu respuesta anterior describió una acción sin llamar ninguna tool, así que NO se guardó nada.
Respondé SOLO con la llamada a la tool correcta para el último mensaje del usuario.`

var preferenceSections = map[shop.PreferenceType]string{
	shop.PreferenceProductAlias: "PRODUCTOS PERSONALIZADOS",
	shop.PreferenceClientAlias:  "CLIENTES PERSONALIZADOS",
	shop.PreferenceAbbreviation: "ABREVIACIONES DEL USUARIO",
	shop.PreferenceSalePattern:  "PATRONES DE VENTA FRECUENTES",
	shop.PreferenceContext:      "CONTEXTO ESPECÍFICO DEL NEGOCIO",
}

// BuildSystemPrompt appends the approved preferences, grouped by type, to
// the static instructions.
func BuildSystemPrompt(prefs []shop.Preference) string {
	if len(prefs) == 0 {
		return SystemPrompt
	}

	byType := make(map[shop.PreferenceType][]shop.Preference)
	for _, p := range prefs {
		if p.Approved {
			byType[p.Type] = append(byType[p.Type], p)
		}
	}
	if len(byType) == 0 {
		return SystemPrompt
	}

	var b strings.Builder
	b.WriteString(SystemPrompt)
	b.WriteString("\n\n🧠 PREFERENCIAS APRENDIDAS (adaptado a este usuario):\n")
	for _, kind := range shop.PreferenceTypes {
		list := byType[kind]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", preferenceSections[kind])
		for _, p := range list {
			b.WriteString(preferenceLine(p))
		}
	}
	b.WriteString("\nEstas preferencias tienen PRIORIDAD sobre las reglas generales.\n")
	return b.String()
}

func preferenceLine(p shop.Preference) string {
	switch p.Type {
	case shop.PreferenceAbbreviation:
		return fmt.Sprintf("- %q significa: %s\n", p.Term, p.Mapping)
	case shop.PreferenceSalePattern:
		return fmt.Sprintf("- %q: %s\n", p.Term, p.Mapping)
	case shop.PreferenceContext:
		return fmt.Sprintf("- %s: %s\n", p.Term, p.Mapping)
	case shop.PreferenceProductAlias:
		if p.Extra != "" {
			return fmt.Sprintf("- %q → %s (%s)\n", p.Term, p.Mapping, p.Extra)
		}
	}
	return fmt.Sprintf("- %q → %s\n", p.Term, p.Mapping)
}
