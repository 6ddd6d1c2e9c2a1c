package taxonomy

import (
	"context"

	"github.com/obracore/catalogo-api/internal/application/dto"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
	"github.com/obracore/catalogo-api/pkg/logger"
)

// UsageUseCase calcula el impacto de un borrado antes de confirmarlo:
// descendientes de taxonomía e ítems de inventario enlazados, con su valor.
// Comparte la enumeración con el borrado en cascada, así que los números
// coinciden con lo que un borrado inmediato eliminaría.
type UsageUseCase struct {
	store    repository.TaxonomyStore
	registry *entity.Registry
	log      *logger.Logger
}

// NewUsageUseCase construye el caso de uso de estadísticas de uso.
func NewUsageUseCase(store repository.TaxonomyStore, registry *entity.Registry, log *logger.Logger) *UsageUseCase {
	return &UsageUseCase{store: store, registry: registry, log: log}
}

// GetUsageStats cuenta descendientes e ítems que borrar el nodo arrastraría.
func (uc *UsageUseCase) GetUsageStats(ctx context.Context, m *entity.Module, userID, level, nodeID string) (*dto.UsageStatsResponse, error) {
	desc, node, err := findNode(ctx, uc.store, m, level, nodeID, userID)
	if err != nil {
		return nil, err
	}

	scopes := scopesFor(uc.registry, m, desc.Name)
	sub, err := collectSubtree(ctx, uc.store, scopes, desc.Name, node.ID, userID)
	if err != nil {
		return nil, err
	}

	return &dto.UsageStatsResponse{
		NodeID:              node.ID,
		Level:               desc.Name,
		DescendantNodeCount: len(sub.nodes),
		LinkedItemCount:     sub.itemCount,
		LinkedItemValue:     sub.itemValue,
	}, nil
}
