package shop

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	SKU         string
	Name        string
	Category    string
	Color       string
	Size        string
	Description string
	Season      string
	Supplier    string
	PhotoURL    string
	Stock       int
	MinStock    int
	Price       decimal.Decimal
}

// Label is the short human name used in replies and movement rows.
func (p Product) Label() string {
	return strings.Join(strings.Fields(p.Name+" "+p.Color+" "+p.Size), " ")
}

func (p Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

type Client struct {
	ID        string
	Name      string
	Phone     string
	Address   string
	Notes     string
	CreatedAt string
}

// OrderItem is serialized into the "Items (JSON)" column.
type OrderItem struct {
	ProductID string `json:"producto"`
	Quantity  int    `json:"cantidad"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"talle,omitempty"`
}

const OrderStatusDelivered = "entregado"

type Order struct {
	ID         string
	Date       string
	ClientID   string
	ClientName string
	Items      []OrderItem
	Total      decimal.Decimal
	Status     string
	Paid       bool
	DueDate    string
}

type Payment struct {
	ID         string
	Date       string
	ClientID   string
	ClientName string
	Amount     decimal.Decimal
	Method     string
	OrderID    string
	Notes      string
}

const DefaultPaymentMethod = "efectivo"

type MovementKind string

const (
	MovementEntry MovementKind = "entrada"
	MovementSale  MovementKind = "venta"
)

type StockMovement struct {
	ID          string
	Date        string
	ProductID   string
	ProductName string
	Quantity    int
	Kind        MovementKind
	Reference   string
	Notes       string
}

type ObservationType string

const (
	ObservationNewTerm         ObservationType = "termino_nuevo"
	ObservationRepeatedAttempt ObservationType = "multiple_intento"
	ObservationCorrection      ObservationType = "correccion"
	ObservationFrequentPattern ObservationType = "patron_frecuente"
	ObservationToolError       ObservationType = "error_tool"
	ObservationAmbiguity       ObservationType = "ambiguedad"
)

type ObservationStatus string

const (
	ObservationPending     ObservationStatus = "pendiente"
	ObservationReviewed    ObservationStatus = "revisada"
	ObservationImplemented ObservationStatus = "implementada"
	ObservationDiscarded   ObservationStatus = "descartada"
)

type Observation struct {
	ID              string
	Date            string
	Type            ObservationType
	Context         string
	SuggestedAction string
	Status          ObservationStatus
	UserMessage     string
}

type PreferenceType string

const (
	PreferenceProductAlias PreferenceType = "producto_alias"
	PreferenceClientAlias  PreferenceType = "cliente_alias"
	PreferenceAbbreviation PreferenceType = "abreviacion"
	PreferenceSalePattern  PreferenceType = "patron_venta"
	PreferenceContext      PreferenceType = "contexto"
)

// PreferenceTypes is the display order used when rendering preferences.
var PreferenceTypes = []PreferenceType{
	PreferenceProductAlias,
	PreferenceClientAlias,
	PreferenceAbbreviation,
	PreferenceSalePattern,
	PreferenceContext,
}

func ParsePreferenceType(s string) (PreferenceType, bool) {
	for _, t := range PreferenceTypes {
		if string(t) == strings.TrimSpace(strings.ToLower(s)) {
			return t, true
		}
	}
	return "", false
}

type Preference struct {
	ID        string
	Type      PreferenceType
	Term      string
	Mapping   string
	Frequency int
	LastSeen  string
	Approved  bool
	Extra     string
}
