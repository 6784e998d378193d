package sheets

// Sheet names of the spreadsheet backing the shop.
const (
	SheetProducts     = "Productos"
	SheetClients      = "Clientes"
	SheetOrders       = "Pedidos"
	SheetPayments     = "Pagos"
	SheetMovements    = "Movimientos Stock"
	SheetObservations = "Observaciones"
	SheetPreferences  = "Preferencias"
)

// Headers lists the required columns of every sheet, in column order.
// ID is always the first column.
var Headers = map[string][]string{
	SheetProducts: {
		"ID", "SKU", "Nombre", "Categoria", "Color", "Talle", "Descripcion",
		"Temporada", "Proveedor", "Foto URL", "Stock", "Stock Mínimo", "Precio",
	},
	SheetClients: {
		"ID", "Nombre", "Teléfono", "Dirección", "Notas", "Fecha Alta",
	},
	SheetOrders: {
		"ID", "Fecha", "Cliente ID", "Cliente Nombre", "Items (JSON)", "Total",
		"Estado", "Pagado", "Vencimiento",
	},
	SheetPayments: {
		"ID", "Fecha", "Cliente ID", "Cliente Nombre", "Monto", "Método", "Pedido ID", "Notas",
	},
	SheetMovements: {
		"ID", "Fecha", "Producto ID", "Producto Nombre", "Cantidad", "Tipo", "Referencia", "Notas",
	},
	SheetObservations: {
		"ID", "Fecha", "Tipo", "Contexto", "Acción Sugerida", "Estado", "Mensaje Usuario",
	},
	SheetPreferences: {
		"ID", "Tipo", "Término Usuario", "Mapeo", "Frecuencia", "Última Vez", "Aprobado",
		"Contexto Adicional",
	},
}
