package taxonomy

import (
	"context"
	"sort"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
	"github.com/obracore/catalogo-api/pkg/logger"
)

const (
	// sharedTradeModule: los trades son un espacio compartido entre módulos;
	// su clave de caché es única para que una mutación los invalide una vez.
	sharedTradeModule = "shared"

	// maxReadAttempts intentos totales de una lectura al almacén (1 + 2 reintentos).
	maxReadAttempts = 3

	// maxFanOut tope de lecturas concurrentes al expandir un nivel.
	maxFanOut = 8
)

// ReaderUseCase arma el bosque tipado de un módulo leyendo nivel a nivel a
// través de la caché jerárquica (Store → Cache → Reader).
type ReaderUseCase struct {
	store repository.TaxonomyStore
	cache repository.HierarchyCache
	log   *logger.Logger
}

// NewReaderUseCase construye el caso de uso de lectura.
func NewReaderUseCase(store repository.TaxonomyStore, cache repository.HierarchyCache, log *logger.Logger) *ReaderUseCase {
	return &ReaderUseCase{store: store, cache: cache, log: log}
}

// cacheKeyFor calcula la clave estructurada de una lista de hijos.
func cacheKeyFor(module string, level entity.Level, parentID, userID string) repository.CacheKey {
	if level.Name == entity.TradeLevel.Name {
		module = sharedTradeModule
	}
	return repository.CacheKey{Module: module, Level: level.Name, ParentID: parentID, UserID: userID}
}

// queryWithRetry lee del almacén con backoff exponencial acotado. Solo el
// camino de lectura se reintenta; las mutaciones nunca.
func queryWithRetry(ctx context.Context, store repository.TaxonomyStore, collection, userID string, filters []repository.Filter, orderBy string) ([]repository.Document, error) {
	var docs []repository.Document
	op := func() error {
		var err error
		docs, err = store.Query(ctx, collection, userID, filters, orderBy)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxReadAttempts-1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListChildren devuelve los hijos de parentID en el nivel dado, ordenados por
// nombre (ordinal ascendente). Lectura read-through: caché primero, almacén
// después. Un fallo de la caché cuenta como miss, nunca tumba la lectura.
func (uc *ReaderUseCase) ListChildren(ctx context.Context, m *entity.Module, level entity.Level, parentID, userID string) ([]entity.TaxonomyNode, error) {
	key := cacheKeyFor(m.Name, level, parentID, userID)
	if nodes, ok, err := uc.cache.Get(ctx, key); err != nil {
		uc.log.Debug().Err(err).Str("level", level.Name).Msg("caché jerárquica: fallo en Get, se trata como miss")
	} else if ok {
		return nodes, nil
	}

	var filters []repository.Filter
	if level.ParentField != "" {
		filters = append(filters, repository.Filter{Field: level.ParentField, Value: parentID})
	}
	docs, err := queryWithRetry(ctx, uc.store, level.Collection, userID, filters, "name")
	if err != nil {
		return nil, err
	}

	nodes := make([]entity.TaxonomyNode, 0, len(docs))
	for _, d := range docs {
		nodes = append(nodes, nodeFromDocument(level, d))
	}
	// Orden ordinal sensible a mayúsculas, independiente de la collation del almacén.
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })

	if err := uc.cache.Set(ctx, key, nodes); err != nil {
		uc.log.Warn().Err(err).Str("level", level.Name).Msg("caché jerárquica: fallo en Set")
	}
	return nodes, nil
}

// BuildTree arma el bosque completo del módulo. Expande cada profundidad en
// paralelo (fan-out por padre, join por nivel). Los sizes de un trade quedan
// como rama junto a sus sections, no anidados bajo ellas. Las filas huérfanas
// (padre inexistente) simplemente no se alcanzan y quedan fuera del bosque.
func (uc *ReaderUseCase) BuildTree(ctx context.Context, m *entity.Module, userID string) ([]*entity.TreeNode, error) {
	roots, err := uc.ListChildren(ctx, m, m.Root(), "", userID)
	if err != nil {
		return nil, err
	}
	forest := make([]*entity.TreeNode, len(roots))
	for i, n := range roots {
		forest[i] = &entity.TreeNode{Node: n}
	}

	frontier := map[string][]*entity.TreeNode{m.Root().Name: forest}
	for len(frontier) > 0 {
		next := make(map[string][]*entity.TreeNode)
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxFanOut)

		for levelName, parents := range frontier {
			for _, child := range m.ChildrenOf(levelName) {
				child := child
				for _, parent := range parents {
					parent := parent
					g.Go(func() error {
						kids, err := uc.ListChildren(gctx, m, child, parent.Node.ID, userID)
						if err != nil {
							return err
						}
						subs := make([]*entity.TreeNode, len(kids))
						for i, k := range kids {
							subs[i] = &entity.TreeNode{Node: k}
						}
						mu.Lock()
						if m.IsBranch(child.Name) {
							if parent.Branches == nil {
								parent.Branches = make(map[string][]*entity.TreeNode)
							}
							parent.Branches[child.Name] = subs
						} else {
							parent.Children = subs
						}
						if !m.IsLeafLevel(child.Name) {
							next[child.Name] = append(next[child.Name], subs...)
						}
						mu.Unlock()
						return nil
					})
				}
			}
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		frontier = next
	}
	return forest, nil
}
