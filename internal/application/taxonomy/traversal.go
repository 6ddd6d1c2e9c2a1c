package taxonomy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/obracore/catalogo-api/internal/domain"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
)

// subtree es el resultado de enumerar un subárbol: referencias de nodos
// descendientes (sin el origen), referencias de ítems enlazados y sus totales.
// Es la misma enumeración para estadísticas de uso y para borrado en cascada,
// de modo que los conteos previos coinciden exactamente con lo borrado.
type subtree struct {
	nodes     []repository.Ref
	items     []repository.Ref
	itemCount int
	itemValue decimal.Decimal
}

// scopesFor decide qué módulos recorre una operación destructiva: un trade es
// espacio compartido y arrastra las ramas de los tres módulos; cualquier nivel
// inferior pertenece solo a su módulo.
func scopesFor(reg *entity.Registry, m *entity.Module, level string) []*entity.Module {
	if level == entity.TradeLevel.Name {
		return reg.Modules()
	}
	return []*entity.Module{m}
}

// collectSubtree enumera descendientes e ítems enlazados de un nodo en los
// módulos indicados. Lee directo del almacén (sin caché): la enumeración debe
// ser una foto puntual, no una mezcla de entradas cacheadas.
//
// La enumeración no es atómica con el borrado posterior: un descendiente
// creado entre ambas fases puede quedar fuera del lote. Limitación conocida
// del almacén (solo el borrado en lote es atómico).
func collectSubtree(ctx context.Context, store repository.TaxonomyStore, scopes []*entity.Module, level, nodeID, userID string) (*subtree, error) {
	sub := &subtree{itemValue: decimal.Zero}
	for _, m := range scopes {
		desc, ok := m.Descriptor(level)
		if !ok {
			continue
		}
		if err := walkDescendants(ctx, store, m, level, []string{nodeID}, userID, sub); err != nil {
			return nil, err
		}
		// Ítems enlazados al nodo en este módulo. El ítem referencia por id
		// cada nivel de su ruta, así que filtrar por el campo del nivel del
		// origen captura también los ítems de todo el subárbol.
		docs, err := queryWithRetry(ctx, store, m.ItemCollection, userID,
			[]repository.Filter{{Field: desc.ItemField, Value: nodeID}}, "")
		if err != nil {
			return nil, fmt.Errorf("enumerar ítems de %s: %w", m.Name, err)
		}
		for _, d := range docs {
			it := itemFromDocument(m, d)
			sub.items = append(sub.items, repository.Ref{Collection: m.ItemCollection, ID: d.ID})
			sub.itemCount++
			sub.itemValue = sub.itemValue.Add(it.UnitCost)
		}
	}
	return sub, nil
}

// walkDescendants desciende nivel a nivel desde parentIDs recogiendo cada
// documento descendiente en sub.nodes. Frontera plana por nivel en lugar de
// bucles anidados por módulo.
func walkDescendants(ctx context.Context, store repository.TaxonomyStore, m *entity.Module, level string, parentIDs []string, userID string, sub *subtree) error {
	for _, child := range m.ChildrenOf(level) {
		var childIDs []string
		for _, pid := range parentIDs {
			docs, err := queryWithRetry(ctx, store, child.Collection, userID,
				[]repository.Filter{{Field: child.ParentField, Value: pid}}, "")
			if err != nil {
				return fmt.Errorf("enumerar %s: %w", child.Collection, err)
			}
			for _, d := range docs {
				sub.nodes = append(sub.nodes, repository.Ref{Collection: child.Collection, ID: d.ID})
				childIDs = append(childIDs, d.ID)
			}
		}
		if len(childIDs) > 0 {
			if err := walkDescendants(ctx, store, m, child.Name, childIDs, userID, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// findNode localiza un nodo por módulo, nivel e id, verificando el tenant.
func findNode(ctx context.Context, store repository.TaxonomyStore, m *entity.Module, level, nodeID, userID string) (entity.Level, entity.TaxonomyNode, error) {
	desc, ok := m.Descriptor(level)
	if !ok {
		return entity.Level{}, entity.TaxonomyNode{}, domain.ErrUnknownLevel
	}
	doc, err := store.Get(ctx, desc.Collection, nodeID)
	if err != nil {
		return entity.Level{}, entity.TaxonomyNode{}, fmt.Errorf("buscar nodo: %w", err)
	}
	if doc == nil || asString(doc.Fields["userId"]) != userID {
		return entity.Level{}, entity.TaxonomyNode{}, domain.ErrNotFound
	}
	return desc, nodeFromDocument(desc, *doc), nil
}
