package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/obracore/catalogo-api/internal/application/taxonomy"
	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
	"github.com/obracore/catalogo-api/internal/infrastructure/memory"
	"github.com/obracore/catalogo-api/internal/infrastructure/postgres"
	"github.com/obracore/catalogo-api/internal/infrastructure/sqlitecache"
	httpRouter "github.com/obracore/catalogo-api/internal/interfaces/http"
	"github.com/obracore/catalogo-api/pkg/config"
	"github.com/obracore/catalogo-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var store repository.TaxonomyStore
	switch cfg.Store.Driver {
	case "memory":
		// Modo desarrollo sin base de datos.
		store = memory.NewStore()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		docStore := postgres.NewDocumentStore(pool)
		if err := docStore.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("esquema de documentos")
		}
		store = docStore
	}

	cache, err := sqlitecache.New(cfg.Cache.Path, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir caché jerárquica")
	}
	defer cache.Close()

	registry := entity.NewRegistry()
	readerUC := taxonomy.NewReaderUseCase(store, cache, log)
	mutationUC := taxonomy.NewMutationUseCase(store, cache, readerUC, registry, log)
	usageUC := taxonomy.NewUsageUseCase(store, registry, log)
	scannerUC := taxonomy.NewScannerUseCase(store, registry, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	taxonomyHandler := httpRouter.NewTaxonomyHandler(registry, readerUC, mutationUC, usageUC, scannerUC, log)
	httpRouter.Router(app, httpRouter.RouterDeps{Taxonomy: taxonomyHandler})

	log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
	if err := app.Listen(cfg.HTTP.Addr()); err != nil {
		log.Fatal().Err(err).Msg("servidor HTTP")
	}
}
