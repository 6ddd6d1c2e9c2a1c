package taxonomy

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
)

// nodeFromDocument proyecta un documento del almacén a un TaxonomyNode.
func nodeFromDocument(level entity.Level, doc repository.Document) entity.TaxonomyNode {
	n := entity.TaxonomyNode{
		ID:        doc.ID,
		Name:      asString(doc.Fields["name"]),
		Level:     level.Name,
		UserID:    asString(doc.Fields["userId"]),
		CreatedAt: asTime(doc.Fields["createdAt"]),
	}
	if level.ParentField != "" {
		n.ParentID = asString(doc.Fields[level.ParentField])
	}
	return n
}

// itemFromDocument proyecta un documento de ítem de inventario, recogiendo las
// referencias por id de todos los niveles del módulo (cadena y ramas).
func itemFromDocument(m *entity.Module, doc repository.Document) entity.InventoryItem {
	it := entity.InventoryItem{
		ID:        doc.ID,
		Name:      asString(doc.Fields["name"]),
		UserID:    asString(doc.Fields["userId"]),
		UnitCost:  asDecimal(doc.Fields["unitCost"]),
		Path:      asStringSlice(doc.Fields["path"]),
		Refs:      make(map[string]string),
		CreatedAt: asTime(doc.Fields["createdAt"]),
	}
	for _, l := range m.Levels {
		if v := asString(doc.Fields[l.ItemField]); v != "" {
			it.Refs[l.ItemField] = v
		}
	}
	for _, b := range m.Branches {
		if v := asString(doc.Fields[b.Level.ItemField]); v != "" {
			it.Refs[b.Level.ItemField] = v
		}
	}
	return it
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			out = append(out, asString(e))
		}
		return out
	}
	return nil
}

// asTime acepta time.Time nativo (store en memoria) o string RFC3339 (jsonb).
func asTime(v any) time.Time {
	switch vv := v.(type) {
	case time.Time:
		return vv
	case string:
		t, err := time.Parse(time.RFC3339Nano, vv)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// asDecimal acepta decimal nativo, string o número JSON. Un valor ausente o
// ilegible cuenta como cero: el costo es informativo, no bloquea el borrado.
func asDecimal(v any) decimal.Decimal {
	switch vv := v.(type) {
	case decimal.Decimal:
		return vv
	case string:
		d, err := decimal.NewFromString(vv)
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(vv)
	case json.Number:
		d, err := decimal.NewFromString(vv.String())
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}
