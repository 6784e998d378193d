package llm

import openrouter "github.com/revrost/go-openrouter"

// Tool names are the wire contract with the model.
const (
	ToolStockCheck      = "stock_check"
	ToolStockAdd        = "stock_add"
	ToolStockLow        = "stock_low"
	ToolProductCreate   = "product_create"
	ToolProductSearch   = "product_search"
	ToolClientList      = "client_list"
	ToolClientSearch    = "client_search"
	ToolClientAdd       = "client_add"
	ToolDebtList        = "debt_list"
	ToolDebtCheck       = "debt_check"
	ToolPaymentRegister = "payment_register"
	ToolSaleRegister    = "sale_register"
	ToolSalesToday      = "sales_today"
	ToolSalesStats      = "sales_stats"
	ToolLearnPreference = "learn_preference"
	ToolLearningStats   = "learning_stats"
	ToolWhatsAppLink    = "whatsapp_reminder"
)

func ToolSchemas() []openrouter.Tool {
	return []openrouter.Tool{
		stockCheckTool(),
		stockAddTool(),
		stockLowTool(),
		productCreateTool(),
		productSearchTool(),
		clientListTool(),
		clientSearchTool(),
		clientAddTool(),
		debtListTool(),
		debtCheckTool(),
		paymentRegisterTool(),
		saleRegisterTool(),
		salesTodayTool(),
		salesStatsTool(),
		learnPreferenceTool(),
		learningStatsTool(),
		whatsappReminderTool(),
	}
}

// ToolNames lists every tool the dispatcher understands.
func ToolNames() []string {
	schemas := ToolSchemas()
	names := make([]string, 0, len(schemas))
	for _, t := range schemas {
		names = append(names, t.Function.Name)
	}
	return names
}

func tool(name, description string, properties map[string]any, required ...string) openrouter.Tool {
	if required == nil {
		required = []string{}
	}
	return openrouter.Tool{
		Type: openrouter.ToolTypeFunction,
		Function: &openrouter.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":                 "object",
				"properties":           properties,
				"required":             required,
				"additionalProperties": false,
			},
		},
	}
}

func prop(kind, description string) map[string]any {
	return map[string]any{"type": kind, "description": description}
}

func stockCheckTool() openrouter.Tool {
	return tool(ToolStockCheck,
		"Consultar el stock actual de uno o varios productos. Usar cuando el usuario pregunta cuánto hay de algo.",
		map[string]any{
			"producto": prop("string", "Nombre del producto con color y talle si los dijo (ej: 'remera negra M'). Vacío para ver todo el stock."),
		},
	)
}

func stockAddTool() openrouter.Tool {
	return tool(ToolStockAdd,
		"SOLO para mercadería que ENTRA al negocio (proveedor, reposición). SUMA unidades a un producto existente. NO usar para ventas.",
		map[string]any{
			"producto": prop("string", "Nombre del producto tal cual lo dijo el usuario. NO inventar SKUs."),
			"cantidad": prop("number", "Cantidad que entró, en unidades."),
			"color":    prop("string", "Color del producto (ej: 'negro')."),
			"talle":    prop("string", "Talle del producto (ej: 'M', '40')."),
			"notas":    prop("string", "Nota opcional del movimiento (ej: proveedor)."),
		},
		"producto", "cantidad",
	)
}

func stockLowTool() openrouter.Tool {
	return tool(ToolStockLow,
		"Listar productos con stock igual o menor al mínimo. Usar para '¿qué me falta reponer?'.",
		map[string]any{},
	)
}

func productCreateTool() openrouter.Tool {
	return tool(ToolProductCreate,
		"Crear un producto NUEVO. Usar cuando el usuario menciona un PRECIO o pide crear un producto. El SKU se genera solo. Si el talle es una lista ('S, M y L') se crea un producto por talle.",
		map[string]any{
			"nombre":       prop("string", "Nombre del producto (ej: 'Remera')."),
			"categoria":    prop("string", "Categoría (ej: 'Remeras', 'Jeans', 'Buzos')."),
			"color":        prop("string", "Color (ej: 'Negro')."),
			"talle":        prop("string", "Talle o lista de talles (ej: 'M' o 'S, M y L')."),
			"precio":       prop("number", "Precio de venta en pesos."),
			"descripcion":  prop("string", "Descripción opcional."),
			"temporada":    prop("string", "Temporada opcional: 'Verano', 'Invierno', 'Todo el año'."),
			"proveedor":    prop("string", "Proveedor opcional."),
			"stockInicial": prop("number", "Stock inicial total (default 0). Con varios talles se reparte."),
			"stockMinimo":  prop("number", "Stock mínimo para alertas (default 5)."),
		},
		"nombre", "categoria", "color", "talle", "precio",
	)
}

func productSearchTool() openrouter.Tool {
	return tool(ToolProductSearch,
		"Buscar productos por SKU, nombre, color, talle o categoría.",
		map[string]any{
			"busqueda": prop("string", "Término de búsqueda."),
		},
		"busqueda",
	)
}

func clientListTool() openrouter.Tool {
	return tool(ToolClientList, "Listar todos los clientes registrados.", map[string]any{})
}

func clientSearchTool() openrouter.Tool {
	return tool(ToolClientSearch,
		"Buscar información de un cliente por nombre: teléfono, última compra y deuda.",
		map[string]any{
			"nombre": prop("string", "Nombre del cliente tal cual lo dijo el usuario."),
		},
		"nombre",
	)
}

func clientAddTool() openrouter.Tool {
	return tool(ToolClientAdd,
		"Registrar un cliente nuevo.",
		map[string]any{
			"nombre":    prop("string", "Nombre del cliente o negocio."),
			"telefono":  prop("string", "Teléfono de contacto."),
			"direccion": prop("string", "Dirección."),
			"notas":     prop("string", "Notas opcionales."),
		},
		"nombre",
	)
}

func debtListTool() openrouter.Tool {
	return tool(ToolDebtList,
		"Ver la lista de clientes que deben plata.",
		map[string]any{
			"solo_vencidas": prop("boolean", "Si es true, solo deudas vencidas."),
		},
	)
}

func debtCheckTool() openrouter.Tool {
	return tool(ToolDebtCheck,
		"Ver la deuda de un cliente específico con el detalle de pedidos impagos.",
		map[string]any{
			"cliente": prop("string", "Nombre del cliente."),
		},
		"cliente",
	)
}

func paymentRegisterTool() openrouter.Tool {
	return tool(ToolPaymentRegister,
		"Registrar un pago (cobro) de un cliente. Usar cuando dice 'me pagó', 'cobré', 'abonó'.",
		map[string]any{
			"cliente":   prop("string", "Nombre del cliente que pagó."),
			"monto":     prop("number", "Monto pagado en pesos."),
			"metodo":    prop("string", "Método de pago (efectivo, transferencia, tarjeta). Default efectivo."),
			"pedido_id": prop("string", "ID del pedido al que se aplica, si se conoce."),
		},
		"cliente", "monto",
	)
}

func saleRegisterTool() openrouter.Tool {
	return tool(ToolSaleRegister,
		"Registrar una VENTA ('vendí', 'compró', 'llevó'). RESTA stock y registra el pedido. Incluir 'pagado' SOLO si el usuario lo dijo explícitamente; si no, omitirlo y el sistema pregunta.",
		map[string]any{
			"cliente": prop("string", "Nombre del cliente tal cual lo dijo el usuario, sin 'al cliente'."),
			"items": map[string]any{
				"type":        "array",
				"description": "Productos vendidos con color y talle si aplica.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"producto": prop("string", "Nombre del producto tal cual lo dijo el usuario."),
						"cantidad": prop("number", "Unidades vendidas."),
						"color":    prop("string", "Color."),
						"talle":    prop("string", "Talle."),
					},
					"required": []string{"producto", "cantidad"},
				},
			},
			"pagado":      prop("boolean", "SOLO si el usuario dijo 'pagó', 'efectivo', 'tarjeta' (true) o 'a cuenta', 'fiado' (false)."),
			"vencimiento": prop("string", "Fecha de vencimiento si la venta es a cuenta (YYYY-MM-DD o 'en 15 días')."),
		},
		"cliente", "items",
	)
}

func salesTodayTool() openrouter.Tool {
	return tool(ToolSalesToday, "Ver las ventas del día.", map[string]any{})
}

func salesStatsTool() openrouter.Tool {
	return tool(ToolSalesStats,
		"Estadísticas de ventas (cantidad, total, promedio) para un rango de fechas.",
		map[string]any{
			"desde": prop("string", "Fecha inicial YYYY-MM-DD (opcional)."),
			"hasta": prop("string", "Fecha final YYYY-MM-DD (opcional)."),
		},
	)
}

func learnPreferenceTool() openrouter.Tool {
	return tool(ToolLearnPreference,
		"Aprender un alias, abreviación o patrón que el usuario enseña ('cuando digo X me refiero a Y', 'recordá que...').",
		map[string]any{
			"tipo": map[string]any{
				"type":        "string",
				"description": "Tipo de preferencia.",
				"enum":        []string{"producto_alias", "cliente_alias", "abreviacion", "patron_venta", "contexto"},
			},
			"terminoUsuario":    prop("string", "El término o frase que usa el usuario."),
			"mapeo":             prop("string", "El significado real del término."),
			"contextoAdicional": prop("string", "Información adicional opcional."),
		},
		"tipo", "terminoUsuario", "mapeo",
	)
}

func learningStatsTool() openrouter.Tool {
	return tool(ToolLearningStats,
		"Ver qué aprendió el asistente: preferencias aprobadas y observaciones pendientes.",
		map[string]any{},
	)
}

func whatsappReminderTool() openrouter.Tool {
	return tool(ToolWhatsAppLink,
		"Generar un link de WhatsApp para mandarle un mensaje a un cliente (recordar deuda, avisar).",
		map[string]any{
			"cliente": prop("string", "Nombre del cliente."),
			"mensaje": prop("string", "Texto del mensaje. Si es un recordatorio de deuda, incluir monto y fecha."),
		},
		"cliente", "mensaje",
	)
}
