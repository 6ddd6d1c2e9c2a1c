package taxonomy

import (
	"context"

	"github.com/obracore/catalogo-api/internal/application/dto"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
	"github.com/obracore/catalogo-api/pkg/logger"
)

// ScanProgress es un evento de avance del escaneo, entregado de forma
// síncrona según progresa.
type ScanProgress struct {
	Phase   string // loading | checking
	Done    int
	Total   int
	Percent int // 0..100
}

// ProgressFunc observador de progreso. Puede ser nil.
type ProgressFunc func(ScanProgress)

// ScannerUseCase localiza hojas de la taxonomía sin ítems de inventario
// enlazados, para que el operador pueda podar ramas sin uso.
//
// Lee directo del almacén, sin caché: el resultado debe ser una foto puntual.
// La comprobación por hoja es un barrido lineal sobre los ítems cargados,
// O(ítems × hojas); con catálogos grandes conviene indexar los ítems por
// referencia de nivel. Pendiente de confirmar si la latencia actual lo exige.
type ScannerUseCase struct {
	store    repository.TaxonomyStore
	registry *entity.Registry
	log      *logger.Logger
}

// NewScannerUseCase construye el escáner.
func NewScannerUseCase(store repository.TaxonomyStore, registry *entity.Registry, log *logger.Logger) *ScannerUseCase {
	return &ScannerUseCase{store: store, registry: registry, log: log}
}

// ScanEmptyLeaves recorre toda la jerarquía del módulo y devuelve, por nivel,
// las hojas sin ítems enlazados, cada una con su ruta de nombres completa.
// Honra la cancelación del contexto entre cargas de nivel y entre nodos.
//
// Para el nivel trade (espacio compartido), tanto la condición de hoja como la
// de vacío consultan los tres módulos: un trade con sections de mano de obra o
// con equipos enlazados nunca se reporta.
func (uc *ScannerUseCase) ScanEmptyLeaves(ctx context.Context, m *entity.Module, userID string, progress ProgressFunc) (*dto.ScanResponse, error) {
	report := func(p ScanProgress) {
		if progress != nil {
			if p.Total > 0 {
				p.Percent = p.Done * 100 / p.Total
			} else {
				p.Percent = 100
			}
			if p.Percent > 100 {
				p.Percent = 100
			}
			progress(p)
		}
	}

	// Niveles del módulo, cadena primero y ramas después: ese es el orden de
	// los buckets del resultado.
	moduleLevels := append([]entity.Level{}, m.Levels...)
	for _, b := range m.Branches {
		moduleLevels = append(moduleLevels, b.Level)
	}

	// Colecciones de nodos a cargar: las del módulo más los hijos de trade de
	// los demás módulos (la condición de hoja de un trade cruza módulos).
	loadLevels := make([]entity.Level, 0, len(moduleLevels)+2)
	seen := make(map[string]bool)
	for _, l := range moduleLevels {
		loadLevels = append(loadLevels, l)
		seen[l.Collection] = true
	}
	for _, other := range uc.registry.Modules() {
		for _, child := range other.ChildrenOf(entity.TradeLevel.Name) {
			if !seen[child.Collection] {
				loadLevels = append(loadLevels, child)
				seen[child.Collection] = true
			}
		}
	}

	itemModules := uc.registry.Modules()
	totalLoads := len(loadLevels) + len(itemModules)
	done := 0

	// Fase 1: carga de todos los niveles y de los ítems, con progreso por lote.
	docsByCollection := make(map[string][]repository.Document, len(loadLevels))
	for _, l := range loadLevels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs, err := queryWithRetry(ctx, uc.store, l.Collection, userID, nil, "name")
		if err != nil {
			return nil, err
		}
		docsByCollection[l.Collection] = docs
		done++
		report(ScanProgress{Phase: "loading", Done: done, Total: totalLoads})
	}
	itemsByModule := make(map[string][]entity.InventoryItem, len(itemModules))
	for _, im := range itemModules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs, err := queryWithRetry(ctx, uc.store, im.ItemCollection, userID, nil, "")
		if err != nil {
			return nil, err
		}
		items := make([]entity.InventoryItem, 0, len(docs))
		for _, d := range docs {
			items = append(items, itemFromDocument(im, d))
		}
		itemsByModule[im.Name] = items
		done++
		report(ScanProgress{Phase: "loading", Done: done, Total: totalLoads})
	}

	// Índices: nodos por nivel, nodo por id y padres con hijos por colección.
	nodesByLevel := make(map[string][]entity.TaxonomyNode, len(moduleLevels))
	nodeIndex := make(map[string]map[string]entity.TaxonomyNode, len(moduleLevels))
	for _, l := range moduleLevels {
		docs := docsByCollection[l.Collection]
		nodes := make([]entity.TaxonomyNode, 0, len(docs))
		idx := make(map[string]entity.TaxonomyNode, len(docs))
		for _, d := range docs {
			n := nodeFromDocument(l, d)
			nodes = append(nodes, n)
			idx[n.ID] = n
		}
		nodesByLevel[l.Name] = nodes
		nodeIndex[l.Name] = idx
	}
	parentsWithChildren := make(map[string]map[string]bool, len(loadLevels))
	for _, l := range loadLevels {
		if l.ParentField == "" {
			continue
		}
		set := make(map[string]bool)
		for _, d := range docsByCollection[l.Collection] {
			if pid := asString(d.Fields[l.ParentField]); pid != "" {
				set[pid] = true
			}
		}
		parentsWithChildren[l.Collection] = set
	}

	totalNodes := 0
	for _, l := range moduleLevels {
		totalNodes += len(nodesByLevel[l.Name])
	}

	// Fase 2: por nodo, condición de hoja y barrido lineal de ítems.
	buckets := make([]dto.EmptyLeafBucketResponse, 0, len(moduleLevels))
	checked := 0
	for _, l := range moduleLevels {
		bucket := dto.EmptyLeafBucketResponse{Level: l.Name, Leaves: []dto.EmptyLeafResponse{}}
		for _, n := range nodesByLevel[l.Name] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			checked++
			if !uc.isLeaf(m, l.Name, n.ID, parentsWithChildren) {
				report(ScanProgress{Phase: "checking", Done: checked, Total: totalNodes})
				continue
			}
			if uc.hasLinkedItems(m, l.Name, n.ID, itemsByModule) {
				report(ScanProgress{Phase: "checking", Done: checked, Total: totalNodes})
				continue
			}
			path, ok := uc.buildPath(m, l, n, nodeIndex)
			if !ok {
				// Cadena de ancestros rota (fila huérfana): fuera del reporte.
				report(ScanProgress{Phase: "checking", Done: checked, Total: totalNodes})
				continue
			}
			bucket.Leaves = append(bucket.Leaves, dto.EmptyLeafResponse{
				ID:    n.ID,
				Name:  n.Name,
				Level: l.Name,
				Path:  path,
			})
			report(ScanProgress{Phase: "checking", Done: checked, Total: totalNodes})
		}
		buckets = append(buckets, bucket)
	}

	uc.log.Info().Str("module", m.Name).Int("nodes", totalNodes).Msg("escaneo de hojas vacías completado")
	return &dto.ScanResponse{Module: m.Name, Buckets: buckets}, nil
}

// isLeaf: ningún nodo del siguiente nivel (en ningún módulo aplicable para
// trade) tiene a id como padre.
func (uc *ScannerUseCase) isLeaf(m *entity.Module, level, id string, parentsWithChildren map[string]map[string]bool) bool {
	for _, sm := range scopesFor(uc.registry, m, level) {
		for _, child := range sm.ChildrenOf(level) {
			if parentsWithChildren[child.Collection][id] {
				return false
			}
		}
	}
	return true
}

// hasLinkedItems: algún ítem cargado referencia al nodo en el campo de su nivel.
func (uc *ScannerUseCase) hasLinkedItems(m *entity.Module, level, id string, itemsByModule map[string][]entity.InventoryItem) bool {
	for _, sm := range scopesFor(uc.registry, m, level) {
		desc, ok := sm.Descriptor(level)
		if !ok {
			continue
		}
		for _, it := range itemsByModule[sm.Name] {
			if it.LinkedTo(desc.ItemField, id) {
				return true
			}
		}
	}
	return false
}

// buildPath reconstruye la ruta de nombres desde el trade hasta el propio
// nodo subiendo por la cadena de padres.
func (uc *ScannerUseCase) buildPath(m *entity.Module, level entity.Level, node entity.TaxonomyNode, nodeIndex map[string]map[string]entity.TaxonomyNode) ([]string, bool) {
	names := []string{node.Name}
	cur, curLevel := node, level
	for curLevel.ParentField != "" {
		parentLevel, ok := m.ParentOf(curLevel.Name)
		if !ok {
			return nil, false
		}
		parent, ok := nodeIndex[parentLevel.Name][cur.ParentID]
		if !ok {
			return nil, false
		}
		names = append([]string{parent.Name}, names...)
		cur, curLevel = parent, parentLevel
	}
	return names, true
}
