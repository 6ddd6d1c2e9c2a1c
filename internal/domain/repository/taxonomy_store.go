package repository

import "context"

// Fields son los campos de un documento del almacén.
type Fields map[string]any

// Document es una fila leída del almacén: id asignado por el store más campos.
type Document struct {
	ID     string
	Fields Fields
}

// Filter es un filtro de igualdad sobre un campo del documento.
type Filter struct {
	Field string
	Value any
}

// Ref referencia un documento concreto para borrado en lote.
type Ref struct {
	Collection string
	ID         string
}

// TaxonomyStore define el puerto hacia el almacén de documentos (DIP).
// Todas las operaciones están acotadas al tenant (userID). El almacén no
// ofrece transacciones multi-documento: solo el borrado en lote es atómico.
type TaxonomyStore interface {
	// Query devuelve los documentos de la colección que cumplen todos los
	// filtros de igualdad, ordenados por orderBy ascendente si no es vacío.
	Query(ctx context.Context, collection, userID string, filters []Filter, orderBy string) ([]Document, error)
	// Get devuelve un documento por id, o nil si no existe.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Create persiste un documento nuevo y devuelve el id asignado.
	// El store añade userId y createdAt.
	Create(ctx context.Context, collection, userID string, fields Fields) (string, error)
	// Update aplica campos parciales sobre un documento existente.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// BatchDelete elimina todos los documentos referenciados en un solo lote
	// todo-o-nada.
	BatchDelete(ctx context.Context, refs []Ref) error
}
