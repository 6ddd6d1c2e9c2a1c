package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem es la vista mínima de un ítem de inventario que el motor de
// taxonomía necesita: sus referencias por id a cada nivel y su ruta de nombres
// denormalizada (solo para presentación, nunca como clave de join).
type InventoryItem struct {
	ID        string
	Name      string
	UserID    string
	UnitCost  decimal.Decimal
	Path      []string          // nombres por nivel, de trade hacia abajo
	Refs      map[string]string // campo de referencia ("tradeId", "sectionId", ...) -> id de nodo
	CreatedAt time.Time
}

// LinkedTo indica si el ítem referencia al nodo dado en el campo indicado.
func (it InventoryItem) LinkedTo(itemField, nodeID string) bool {
	return it.Refs[itemField] == nodeID
}
