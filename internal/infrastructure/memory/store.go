package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obracore/catalogo-api/internal/domain"
	"github.com/obracore/catalogo-api/internal/domain/repository"
)

var _ repository.TaxonomyStore = (*Store)(nil)

// Store implementa el puerto TaxonomyStore en memoria. Sirve como backend de
// desarrollo (STORE_DRIVER=memory) y como doble de pruebas del motor.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]repository.Fields // colección -> id -> campos
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]repository.Fields)}
}

// Query devuelve los documentos del tenant que cumplen los filtros de
// igualdad, ordenados por orderBy ascendente si no es vacío.
func (s *Store) Query(ctx context.Context, collection, userID string, filters []repository.Filter, orderBy string) ([]repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []repository.Document
	for id, fields := range s.collections[collection] {
		if fields["userId"] != userID {
			continue
		}
		match := true
		for _, f := range filters {
			if fields[f.Field] != f.Value {
				match = false
				break
			}
		}
		if match {
			docs = append(docs, repository.Document{ID: id, Fields: copyFields(fields)})
		}
	}
	if orderBy != "" {
		sort.Slice(docs, func(i, j int) bool {
			a, _ := docs[i].Fields[orderBy].(string)
			b, _ := docs[j].Fields[orderBy].(string)
			return a < b
		})
	}
	return docs, nil
}

// Get devuelve un documento por id, o nil si no existe.
func (s *Store) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return &repository.Document{ID: id, Fields: copyFields(fields)}, nil
}

// Create persiste un documento nuevo, añadiendo userId y createdAt.
func (s *Store) Create(ctx context.Context, collection, userID string, fields repository.Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]repository.Fields)
	}
	id := uuid.New().String()
	stored := copyFields(fields)
	stored["userId"] = userID
	stored["createdAt"] = time.Now().UTC()
	s.collections[collection][id] = stored
	return id, nil
}

// Update aplica campos parciales sobre un documento existente.
func (s *Store) Update(ctx context.Context, collection, id string, fields repository.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.collections[collection][id]
	if !ok {
		return domain.ErrNotFound
	}
	for k, v := range fields {
		stored[k] = v
	}
	return nil
}

// BatchDelete elimina todos los documentos referenciados bajo un único lock:
// el lote es atómico frente a cualquier otra operación del almacén.
func (s *Store) BatchDelete(ctx context.Context, refs []repository.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range refs {
		delete(s.collections[ref.Collection], ref.ID)
	}
	return nil
}

func copyFields(fields repository.Fields) repository.Fields {
	out := make(repository.Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
