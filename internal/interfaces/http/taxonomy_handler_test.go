package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obracore/catalogo-api/internal/application/dto"
	"github.com/obracore/catalogo-api/internal/application/taxonomy"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/infrastructure/memory"
	"github.com/obracore/catalogo-api/internal/infrastructure/sqlitecache"
	apihttp "github.com/obracore/catalogo-api/internal/interfaces/http"
	"github.com/obracore/catalogo-api/pkg/logger"
)

const tenantHeader = "00000000-0000-0000-0000-0000000000aa"

// newApp levanta la aplicación completa sobre el almacén en memoria y la
// caché SQLite en memoria, igual que el modo dev.
func newApp(t *testing.T) *fiber.App {
	t.Helper()

	store := memory.NewStore()
	cache, err := sqlitecache.New("", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	log := logger.Nop()
	registry := entity.NewRegistry()
	reader := taxonomy.NewReaderUseCase(store, cache, log)
	mutation := taxonomy.NewMutationUseCase(store, cache, reader, registry, log)
	usage := taxonomy.NewUsageUseCase(store, registry, log)
	scanner := taxonomy.NewScannerUseCase(store, registry, log)

	app := fiber.New()
	apihttp.Router(app, apihttp.RouterDeps{
		Taxonomy: apihttp.NewTaxonomyHandler(registry, reader, mutation, usage, scanner, log),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, out any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("X-User-ID", tenantHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), "cuerpo: %s", raw)
	}
	return resp
}

func createNode(t *testing.T, app *fiber.App, module, level, parentID, name string) dto.NodeResponse {
	t.Helper()
	var out dto.NodeResponse
	resp := doJSON(t, app, fiber.MethodPost, "/api/taxonomy/"+module+"/nodes",
		dto.CreateNodeRequest{Name: name, Level: level, ParentID: parentID}, &out)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return out
}

func TestAPI_SinTenantResponde401(t *testing.T) {
	app := newApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/api/taxonomy/products/tree", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ModuloDesconocido(t *testing.T) {
	app := newApp(t)

	var out dto.ErrorResponse
	resp := doJSON(t, app, fiber.MethodGet, "/api/taxonomy/materials/tree", nil, &out)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_MODULE", out.Code)
}

func TestAPI_CrearYDuplicado(t *testing.T) {
	app := newApp(t)

	trade := createNode(t, app, "products", "trade", "", "Plomería")
	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, "trade", trade.Level)

	// Mismo nombre con otras mayúsculas: conflicto.
	var dup dto.ErrorResponse
	resp := doJSON(t, app, fiber.MethodPost, "/api/taxonomy/products/nodes",
		dto.CreateNodeRequest{Name: "PLOMERÍA", Level: "trade"}, &dup)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", dup.Code)
}

func TestAPI_ValidacionYPadre(t *testing.T) {
	app := newApp(t)

	var out dto.ErrorResponse
	resp := doJSON(t, app, fiber.MethodPost, "/api/taxonomy/products/nodes",
		dto.CreateNodeRequest{Name: "   ", Level: "trade"}, &out)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", out.Code)

	resp = doJSON(t, app, fiber.MethodPost, "/api/taxonomy/products/nodes",
		dto.CreateNodeRequest{Name: "Tuberías", Level: "section", ParentID: "no-existe"}, &out)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "PARENT_NOT_FOUND", out.Code)

	// Nivel que no existe en el módulo.
	resp = doJSON(t, app, fiber.MethodPost, "/api/taxonomy/labor/nodes",
		dto.CreateNodeRequest{Name: "Fina", Level: "subcategory", ParentID: "x"}, &out)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", out.Code)
}

func TestAPI_ArbolYNiveles(t *testing.T) {
	app := newApp(t)

	trade := createNode(t, app, "products", "trade", "", "Plomería")
	createNode(t, app, "products", "section", trade.ID, "Tuberías")
	createNode(t, app, "products", "section", trade.ID, "Accesorios")
	createNode(t, app, "products", "size", trade.ID, "1/2\"")

	var tree dto.TreeResponse
	resp := doJSON(t, app, fiber.MethodGet, "/api/taxonomy/products/tree", nil, &tree)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, tree.Roots, 1)
	root := tree.Roots[0]
	assert.Equal(t, "Plomería", root.Name)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Accesorios", root.Children[0].Name, "los hermanos llegan ordenados")
	require.Len(t, root.Branches["size"], 1)
	assert.Equal(t, "1/2\"", root.Branches["size"][0].Name)

	var sections []dto.NodeResponse
	resp = doJSON(t, app, fiber.MethodGet, "/api/taxonomy/products/levels/section?parentId="+trade.ID, nil, &sections)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, sections, 2)
	assert.Equal(t, trade.ID, sections[0].ParentID)
}

func TestAPI_RenombrarYBorrar(t *testing.T) {
	app := newApp(t)

	trade := createNode(t, app, "products", "trade", "", "Plomería")
	section := createNode(t, app, "products", "section", trade.ID, "Tuberías")

	var renamed dto.NodeResponse
	resp := doJSON(t, app, fiber.MethodPut, "/api/taxonomy/products/nodes/"+section.ID,
		dto.RenameNodeRequest{Level: "section", Name: "Tuberías PVC"}, &renamed)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Tuberías PVC", renamed.Name)

	var out dto.ErrorResponse
	resp = doJSON(t, app, fiber.MethodPut, "/api/taxonomy/products/nodes/no-existe",
		dto.RenameNodeRequest{Level: "section", Name: "Otra"}, &out)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", out.Code)

	// El nivel es obligatorio en usage y borrado: el id por sí solo no basta
	// para localizar la colección.
	resp = doJSON(t, app, fiber.MethodGet, "/api/taxonomy/products/nodes/"+trade.ID+"/usage", nil, &out)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", out.Code)

	var usage dto.UsageStatsResponse
	resp = doJSON(t, app, fiber.MethodGet, "/api/taxonomy/products/nodes/"+trade.ID+"/usage?level=trade", nil, &usage)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, usage.DescendantNodeCount)

	var deleted dto.UsageStatsResponse
	resp = doJSON(t, app, fiber.MethodDelete, "/api/taxonomy/products/nodes/"+trade.ID+"?level=trade", nil, &deleted)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, usage.DescendantNodeCount, deleted.DescendantNodeCount)

	var tree dto.TreeResponse
	resp = doJSON(t, app, fiber.MethodGet, "/api/taxonomy/products/tree", nil, &tree)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, tree.Roots)
}

func TestAPI_EscaneoDeHojasVacias(t *testing.T) {
	app := newApp(t)

	trade := createNode(t, app, "labor", "trade", "", "Plomería")
	createNode(t, app, "labor", "section", trade.ID, "Instalación")

	var scan dto.ScanResponse
	resp := doJSON(t, app, fiber.MethodGet, "/api/taxonomy/labor/scan/empty-leaves", nil, &scan)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	found := map[string]int{}
	for _, b := range scan.Buckets {
		found[b.Level] = len(b.Leaves)
	}
	assert.Equal(t, 1, found["section"], "la sección sin categorías ni ítems es una hoja vacía")
	assert.Equal(t, 0, found["trade"])
}
