package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/obracore/catalogo-api/internal/application/dto"
	"github.com/obracore/catalogo-api/internal/application/taxonomy"
	"github.com/obracore/catalogo-api/internal/domain"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/pkg/logger"
)

// TaxonomyHandler maneja las peticiones HTTP del motor de taxonomía.
type TaxonomyHandler struct {
	registry *entity.Registry
	reader   *taxonomy.ReaderUseCase
	mutation *taxonomy.MutationUseCase
	usage    *taxonomy.UsageUseCase
	scanner  *taxonomy.ScannerUseCase
	log      *logger.Logger
}

// NewTaxonomyHandler construye el handler.
func NewTaxonomyHandler(registry *entity.Registry, reader *taxonomy.ReaderUseCase, mutation *taxonomy.MutationUseCase, usage *taxonomy.UsageUseCase, scanner *taxonomy.ScannerUseCase, log *logger.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{registry: registry, reader: reader, mutation: mutation, usage: usage, scanner: scanner, log: log}
}

// moduleFrom resuelve el módulo del path o responde 404.
func (h *TaxonomyHandler) moduleFrom(c *fiber.Ctx) (*entity.Module, error) {
	m, ok := h.registry.Module(c.Params("module"))
	if !ok {
		return nil, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Code: "UNKNOWN_MODULE", Message: domain.ErrUnknownModule.Error(),
		})
	}
	return m, nil
}

// fail mapea errores de dominio a respuestas HTTP. Los fallos del almacén se
// registran y se responden con un mensaje genérico.
func (h *TaxonomyHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrUnknownLevel),
		errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrParentNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "PARENT_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateName):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("fallo del almacén de taxonomía")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code: "INTERNAL", Message: "error interno, inténtelo de nuevo",
		})
	}
}

// Tree devuelve el bosque completo del módulo.
func (h *TaxonomyHandler) Tree(c *fiber.Ctx) error {
	m, err := h.moduleFrom(c)
	if m == nil {
		return err
	}
	forest, err := h.reader.BuildTree(c.UserContext(), m, GetUserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	h.log.Debug().Str("module", m.Name).Int("nodes", entity.CountNodes(forest)).Msg("bosque armado")
	return c.JSON(dto.TreeResponse{Module: m.Name, Roots: toTreeResponse(forest)})
}

// ListLevel devuelve los hijos de parentId en un nivel (lectura read-through).
func (h *TaxonomyHandler) ListLevel(c *fiber.Ctx) error {
	m, err := h.moduleFrom(c)
	if m == nil {
		return err
	}
	level, ok := m.Descriptor(c.Params("level"))
	if !ok {
		return h.fail(c, domain.ErrUnknownLevel)
	}
	nodes, err := h.reader.ListChildren(c.UserContext(), m, level, c.Query("parentId"), GetUserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]dto.NodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, dto.NodeResponse{ID: n.ID, Name: n.Name, Level: n.Level, ParentID: n.ParentID})
	}
	return c.JSON(out)
}

// Create crea un nodo de taxonomía.
func (h *TaxonomyHandler) Create(c *fiber.Ctx) error {
	m, err := h.moduleFrom(c)
	if m == nil {
		return err
	}
	var in dto.CreateNodeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.mutation.Create(c.UserContext(), m, GetUserID(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Rename renombra un nodo.
func (h *TaxonomyHandler) Rename(c *fiber.Ctx) error {
	m, err := h.moduleFrom(c)
	if m == nil {
		return err
	}
	var in dto.RenameNodeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.mutation.Rename(c.UserContext(), m, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Delete elimina un nodo en cascada y devuelve el resumen de lo eliminado.
func (h *TaxonomyHandler) Delete(c *fiber.Ctx) error {
	m, err := h.moduleFrom(c)
	if m == nil {
		return err
	}
	level := c.Query("level")
	if level == "" {
		return h.fail(c, domain.ErrInvalidInput)
	}
	out, err := h.mutation.CascadeDelete(c.UserContext(), m, GetUserID(c), level, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Usage devuelve el impacto de borrar un nodo, para la confirmación previa.
func (h *TaxonomyHandler) Usage(c *fiber.Ctx) error {
	m, err := h.moduleFrom(c)
	if m == nil {
		return err
	}
	level := c.Query("level")
	if level == "" {
		return h.fail(c, domain.ErrInvalidInput)
	}
	out, err := h.usage.GetUsageStats(c.UserContext(), m, GetUserID(c), level, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Scan ejecuta el escaneo de hojas vacías del módulo. El progreso se registra
// en el log; la respuesta es el resultado final por niveles.
func (h *TaxonomyHandler) Scan(c *fiber.Ctx) error {
	m, err := h.moduleFrom(c)
	if m == nil {
		return err
	}
	progress := func(p taxonomy.ScanProgress) {
		if p.Phase == "loading" || p.Done%100 == 0 || p.Done == p.Total {
			h.log.Debug().
				Str("module", m.Name).
				Str("phase", p.Phase).
				Int("percent", p.Percent).
				Msg("progreso de escaneo")
		}
	}
	out, err := h.scanner.ScanEmptyLeaves(c.UserContext(), m, GetUserID(c), progress)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// toTreeResponse proyecta el bosque tipado al DTO anidado.
func toTreeResponse(forest []*entity.TreeNode) []dto.TreeNodeResponse {
	out := make([]dto.TreeNodeResponse, 0, len(forest))
	for _, t := range forest {
		node := dto.TreeNodeResponse{
			ID:       t.Node.ID,
			Name:     t.Node.Name,
			Level:    t.Node.Level,
			Children: toTreeResponse(t.Children),
		}
		if len(t.Branches) > 0 {
			node.Branches = make(map[string][]dto.TreeNodeResponse, len(t.Branches))
			for name, bs := range t.Branches {
				node.Branches[name] = toTreeResponse(bs)
			}
		}
		out = append(out, node)
	}
	return out
}
