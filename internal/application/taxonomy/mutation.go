package taxonomy

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/obracore/catalogo-api/internal/application/dto"
	"github.com/obracore/catalogo-api/internal/domain"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
	"github.com/obracore/catalogo-api/pkg/logger"
)

// maxNameLength longitud máxima (en runas) del nombre de un nodo.
const maxNameLength = 30

// MutationUseCase alta, renombrado y borrado en cascada de nodos de la
// taxonomía, con unicidad de nombre entre hermanos e invalidación de caché.
//
// La comprobación de duplicado y la escritura posterior no son atómicas: dos
// altas casi simultáneas con el mismo nombre pueden pasar ambas la validación.
// Riesgo aceptado; el almacén no ofrece lectura-modificación transaccional.
type MutationUseCase struct {
	store    repository.TaxonomyStore
	cache    repository.HierarchyCache
	reader   *ReaderUseCase
	registry *entity.Registry
	log      *logger.Logger
}

// NewMutationUseCase construye el caso de uso de mutación.
func NewMutationUseCase(store repository.TaxonomyStore, cache repository.HierarchyCache, reader *ReaderUseCase, registry *entity.Registry, log *logger.Logger) *MutationUseCase {
	return &MutationUseCase{store: store, cache: cache, reader: reader, registry: registry, log: log}
}

// validateName recorta y valida el nombre. Devuelve el nombre normalizado.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", domain.ErrNameTooLong
	}
	return name, nil
}

// hasDuplicateSibling busca un hermano con el mismo nombre ignorando
// mayúsculas, excluyendo opcionalmente un id (el propio nodo al renombrar).
func hasDuplicateSibling(siblings []entity.TaxonomyNode, name, excludeID string) bool {
	for _, s := range siblings {
		if s.ID != excludeID && strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// Create crea un nodo bajo parentId en el nivel indicado.
func (uc *MutationUseCase) Create(ctx context.Context, m *entity.Module, userID string, in dto.CreateNodeRequest) (*dto.NodeResponse, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, ok := m.Descriptor(in.Level)
	if !ok {
		return nil, domain.ErrUnknownLevel
	}

	parentID := in.ParentID
	if desc.ParentField == "" {
		parentID = ""
	} else {
		if parentID == "" {
			return nil, domain.ErrParentNotFound
		}
		parentLevel, _ := m.ParentOf(desc.Name)
		parentDoc, err := uc.store.Get(ctx, parentLevel.Collection, parentID)
		if err != nil {
			return nil, fmt.Errorf("verificar padre: %w", err)
		}
		if parentDoc == nil || asString(parentDoc.Fields["userId"]) != userID {
			return nil, domain.ErrParentNotFound
		}
	}

	siblings, err := uc.reader.ListChildren(ctx, m, desc, parentID, userID)
	if err != nil {
		return nil, err
	}
	if hasDuplicateSibling(siblings, name, "") {
		return nil, domain.ErrDuplicateName
	}

	fields := repository.Fields{"name": name}
	if desc.ParentField != "" {
		fields[desc.ParentField] = parentID
	}
	id, err := uc.store.Create(ctx, desc.Collection, userID, fields)
	if err != nil {
		return nil, fmt.Errorf("crear nodo: %w", err)
	}

	key := cacheKeyFor(m.Name, desc, parentID, userID)
	if err := uc.cache.Invalidate(ctx, key); err != nil {
		uc.log.Warn().Err(err).Str("level", desc.Name).Msg("invalidar caché tras crear")
	}

	uc.log.Info().Str("module", m.Name).Str("level", desc.Name).Str("id", id).Msg("nodo creado")
	return &dto.NodeResponse{ID: id, Name: name, Level: desc.Name, ParentID: parentID}, nil
}

// Rename renombra un nodo conservando su identidad. Renombrar al valor actual
// es un éxito sin efectos.
func (uc *MutationUseCase) Rename(ctx context.Context, m *entity.Module, userID, nodeID string, in dto.RenameNodeRequest) (*dto.NodeResponse, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, node, err := findNode(ctx, uc.store, m, in.Level, nodeID, userID)
	if err != nil {
		return nil, err
	}
	if node.Name == name {
		return &dto.NodeResponse{ID: node.ID, Name: node.Name, Level: desc.Name, ParentID: node.ParentID}, nil
	}

	siblings, err := uc.reader.ListChildren(ctx, m, desc, node.ParentID, userID)
	if err != nil {
		return nil, err
	}
	if hasDuplicateSibling(siblings, name, node.ID) {
		return nil, domain.ErrDuplicateName
	}

	if err := uc.store.Update(ctx, desc.Collection, node.ID, repository.Fields{"name": name}); err != nil {
		return nil, fmt.Errorf("renombrar nodo: %w", err)
	}

	key := cacheKeyFor(m.Name, desc, node.ParentID, userID)
	if err := uc.cache.Invalidate(ctx, key); err != nil {
		uc.log.Warn().Err(err).Str("level", desc.Name).Msg("invalidar caché tras renombrar")
	}

	uc.log.Info().Str("module", m.Name).Str("level", desc.Name).Str("id", node.ID).Msg("nodo renombrado")
	return &dto.NodeResponse{ID: node.ID, Name: name, Level: desc.Name, ParentID: node.ParentID}, nil
}

// CascadeDelete elimina el nodo, todos sus descendientes y todos los ítems de
// inventario enlazados, en un único lote todo-o-nada. Para un trade la cascada
// cruza los tres módulos del catálogo. Devuelve lo eliminado.
func (uc *MutationUseCase) CascadeDelete(ctx context.Context, m *entity.Module, userID, level, nodeID string) (*dto.UsageStatsResponse, error) {
	desc, node, err := findNode(ctx, uc.store, m, level, nodeID, userID)
	if err != nil {
		return nil, err
	}

	scopes := scopesFor(uc.registry, m, desc.Name)
	sub, err := collectSubtree(ctx, uc.store, scopes, desc.Name, node.ID, userID)
	if err != nil {
		return nil, err
	}

	refs := make([]repository.Ref, 0, len(sub.nodes)+len(sub.items)+1)
	refs = append(refs, sub.nodes...)
	refs = append(refs, sub.items...)
	refs = append(refs, repository.Ref{Collection: desc.Collection, ID: node.ID})

	if err := uc.store.BatchDelete(ctx, refs); err != nil {
		return nil, fmt.Errorf("borrado en lote: %w", err)
	}

	// Un borrado profundo toca las claves de hijos de todo el subárbol;
	// subir la versión del tenant las deja obsoletas de una vez.
	if err := uc.cache.InvalidateTenant(ctx, userID); err != nil {
		uc.log.Warn().Err(err).Msg("invalidar tenant tras borrado en cascada")
	}

	uc.log.Info().
		Str("module", m.Name).
		Str("level", desc.Name).
		Str("id", node.ID).
		Int("descendants", len(sub.nodes)).
		Int("items", sub.itemCount).
		Msg("borrado en cascada completado")

	return &dto.UsageStatsResponse{
		NodeID:              node.ID,
		Level:               desc.Name,
		DescendantNodeCount: len(sub.nodes),
		LinkedItemCount:     sub.itemCount,
		LinkedItemValue:     sub.itemValue,
	}, nil
}
