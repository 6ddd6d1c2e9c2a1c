package taxonomy

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obracore/catalogo-api/internal/application/dto"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
	"github.com/obracore/catalogo-api/internal/infrastructure/memory"
	"github.com/obracore/catalogo-api/pkg/logger"
)

const testUser = "00000000-0000-0000-0000-000000000001"

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

// fakeCache implementa HierarchyCache en memoria con contadores de hits y
// misses, para verificar coherencia de caché sin SQLite de por medio.
type fakeCache struct {
	mu      sync.Mutex
	entries map[repository.CacheKey][]entity.TaxonomyNode
	hits    int
	misses  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[repository.CacheKey][]entity.TaxonomyNode)}
}

func (c *fakeCache) Get(_ context.Context, key repository.CacheKey) ([]entity.TaxonomyNode, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nodes, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return nodes, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key repository.CacheKey, nodes []entity.TaxonomyNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = nodes
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, key repository.CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) InvalidateTenant(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.UserID == userID {
			delete(c.entries, k)
		}
	}
	return nil
}

// countingStore envuelve el almacén contando las llamadas a Query, para
// comprobar que una lectura cacheada no vuelve al almacén.
type countingStore struct {
	repository.TaxonomyStore
	mu         sync.Mutex
	queryCalls int
}

func (s *countingStore) Query(ctx context.Context, collection, userID string, filters []repository.Filter, orderBy string) ([]repository.Document, error) {
	s.mu.Lock()
	s.queryCalls++
	s.mu.Unlock()
	return s.TaxonomyStore.Query(ctx, collection, userID, filters, orderBy)
}

func (s *countingStore) queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryCalls
}

// ──────────────────────────────────────────────────────────────────────────────
// Entorno de prueba
// ──────────────────────────────────────────────────────────────────────────────

// env arma el motor completo sobre el almacén en memoria y la caché fake.
type env struct {
	store    *countingStore
	cache    *fakeCache
	registry *entity.Registry
	reader   *ReaderUseCase
	mutation *MutationUseCase
	usage    *UsageUseCase
	scanner  *ScannerUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.Nop()
	store := &countingStore{TaxonomyStore: memory.NewStore()}
	cache := newFakeCache()
	registry := entity.NewRegistry()
	reader := NewReaderUseCase(store, cache, log)
	return &env{
		store:    store,
		cache:    cache,
		registry: registry,
		reader:   reader,
		mutation: NewMutationUseCase(store, cache, reader, registry, log),
		usage:    NewUsageUseCase(store, registry, log),
		scanner:  NewScannerUseCase(store, registry, log),
	}
}

func (e *env) module(t *testing.T, name string) *entity.Module {
	t.Helper()
	m, ok := e.registry.Module(name)
	require.True(t, ok, "módulo %s debe existir", name)
	return m
}

func mustLevel(t *testing.T, m *entity.Module, name string) entity.Level {
	t.Helper()
	l, ok := m.Descriptor(name)
	require.True(t, ok, "nivel %s debe existir", name)
	return l
}

// mustCreate crea un nodo vía el caso de uso de mutación y devuelve su id.
func (e *env) mustCreate(t *testing.T, module, level, parentID, name string) string {
	t.Helper()
	out, err := e.mutation.Create(context.Background(), e.module(t, module), testUser, dto.CreateNodeRequest{
		Name: name, Level: level, ParentID: parentID,
	})
	require.NoError(t, err, "crear %s %q", level, name)
	return out.ID
}

// addItem inserta un ítem de inventario directo en el almacén, con sus
// referencias por id y su ruta de nombres denormalizada.
func (e *env) addItem(t *testing.T, module, name, unitCost string, refs map[string]string, path []string) string {
	t.Helper()
	m := e.module(t, module)
	fields := repository.Fields{"name": name, "unitCost": unitCost, "path": path}
	for field, id := range refs {
		fields[field] = id
	}
	id, err := e.store.Create(context.Background(), m.ItemCollection, testUser, fields)
	require.NoError(t, err, "crear ítem %q", name)
	return id
}

// seedThreeDeep monta Trade→Section→Category en products con un ítem colgado
// de la categoría. Es el armazón de los escenarios de uso y borrado.
func seedThreeDeep(t *testing.T, e *env) (tradeID, sectionID, categoryID, itemID string) {
	t.Helper()
	tradeID = e.mustCreate(t, "products", "trade", "", "Plomería")
	sectionID = e.mustCreate(t, "products", "section", tradeID, "Tuberías")
	categoryID = e.mustCreate(t, "products", "category", sectionID, "Cobre")
	itemID = e.addItem(t, "products", "Tubo cobre 1/2", "12.50",
		map[string]string{"tradeId": tradeID, "sectionId": sectionID, "categoryId": categoryID},
		[]string{"Plomería", "Tuberías", "Cobre"},
	)
	return tradeID, sectionID, categoryID, itemID
}
