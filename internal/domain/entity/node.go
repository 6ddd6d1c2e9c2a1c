package entity

import "time"

// TaxonomyNode representa un nodo de la taxonomía (trade, section, category, ...).
// El nivel no se persiste: lo implica la colección de la que se leyó el documento.
type TaxonomyNode struct {
	ID        string
	Name      string
	ParentID  string // vacío si es raíz (trade)
	Level     string
	UserID    string
	CreatedAt time.Time
}
