package repository

import (
	"context"

	"github.com/obracore/catalogo-api/internal/domain/entity"
)

// CacheKey identifica una lista de hijos en la caché jerárquica. Clave
// estructurada (módulo, nivel, padre, tenant) en lugar de concatenación de
// strings, para evitar colisiones.
type CacheKey struct {
	Module   string
	Level    string
	ParentID string
	UserID   string
}

// HierarchyCache define el puerto de la caché TTL de lectura (read-through).
// Las entradas caducan pasada la TTL; la invalidación cruzada no es
// automática: quien muta debe invalidar cada clave afectada. Un fallo de la
// caché nunca debe tumbar una lectura: el llamador lo trata como miss.
type HierarchyCache interface {
	// Get devuelve la entrada si existe, no ha caducado y pertenece a la
	// versión vigente del tenant.
	Get(ctx context.Context, key CacheKey) ([]entity.TaxonomyNode, bool, error)
	// Set guarda la lista de hijos bajo la clave.
	Set(ctx context.Context, key CacheKey, nodes []entity.TaxonomyNode) error
	// Invalidate elimina la entrada de la clave exacta.
	Invalidate(ctx context.Context, key CacheKey) error
	// InvalidateTenant incrementa la versión del tenant, dejando obsoletas
	// todas sus entradas de golpe (usado tras un borrado en cascada).
	InvalidateTenant(ctx context.Context, userID string) error
}
