package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Taxonomy *TaxonomyHandler
}

// Router registra las rutas de la API. Todas las rutas de taxonomía exigen
// tenant (cabecera X-User-ID).
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	tax := api.Group("/taxonomy/:module", TenantMiddleware())
	tax.Get("/tree", deps.Taxonomy.Tree)
	tax.Get("/levels/:level", deps.Taxonomy.ListLevel)
	tax.Post("/nodes", deps.Taxonomy.Create)
	tax.Put("/nodes/:id", deps.Taxonomy.Rename)
	tax.Delete("/nodes/:id", deps.Taxonomy.Delete)
	tax.Get("/nodes/:id/usage", deps.Taxonomy.Usage)
	tax.Get("/scan/empty-leaves", deps.Taxonomy.Scan)
}
