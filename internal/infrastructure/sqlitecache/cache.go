package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/obracore/catalogo-api/internal/domain/entity"
	"github.com/obracore/catalogo-api/internal/domain/repository"
)

var _ repository.HierarchyCache = (*Cache)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS tenant_versions (
	user_id TEXT PRIMARY KEY,
	version INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS cache_entries (
	module    TEXT NOT NULL,
	level     TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	user_id   TEXT NOT NULL,
	version   INTEGER NOT NULL,
	nodes     TEXT NOT NULL,
	cached_at INTEGER NOT NULL,
	PRIMARY KEY (module, level, parent_id, user_id)
);`

// Cache implementa la caché jerárquica sobre SQLite: durable, sobrevive a
// reinicios del proceso dentro de la ventana TTL. Cada entrada guarda la lista
// de hijos serializada, su marca de tiempo y la versión del tenant con la que
// se escribió; una entrada caducada o de versión anterior cuenta como miss y
// se elimina.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// New abre (o crea) el archivo de caché y asegura el esquema.
// path vacío usa una base en memoria (útil en tests y modo dev).
func New(path string, ttl time.Duration) (*Cache, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("abrir caché sqlite: %w", err)
	}
	// Un solo writer: evita SQLITE_BUSY con el fan-out de lecturas.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("crear esquema de caché: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Close cierra la base de la caché.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get devuelve la entrada si existe, pertenece a la versión vigente del
// tenant y no ha caducado. Una entrada obsoleta se elimina al detectarla.
func (c *Cache) Get(ctx context.Context, key repository.CacheKey) ([]entity.TaxonomyNode, bool, error) {
	current, err := c.tenantVersion(ctx, key.UserID)
	if err != nil {
		return nil, false, err
	}

	var (
		version  int64
		raw      string
		cachedAt int64
	)
	err = c.db.QueryRowContext(ctx,
		`SELECT version, nodes, cached_at FROM cache_entries
		 WHERE module = ? AND level = ? AND parent_id = ? AND user_id = ?`,
		key.Module, key.Level, key.ParentID, key.UserID,
	).Scan(&version, &raw, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leer entrada de caché: %w", err)
	}

	age := time.Since(time.UnixMilli(cachedAt))
	if version != current || age > c.ttl {
		if err := c.Invalidate(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	var nodes []entity.TaxonomyNode
	if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
		return nil, false, fmt.Errorf("deserializar entrada de caché: %w", err)
	}
	return nodes, true, nil
}

// Set guarda la lista de hijos bajo la clave, con la versión vigente del tenant.
func (c *Cache) Set(ctx context.Context, key repository.CacheKey, nodes []entity.TaxonomyNode) error {
	current, err := c.tenantVersion(ctx, key.UserID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("serializar entrada de caché: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (module, level, parent_id, user_id, version, nodes, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.Module, key.Level, key.ParentID, key.UserID, current, string(raw), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("escribir entrada de caché: %w", err)
	}
	return nil
}

// Invalidate elimina la entrada de la clave exacta.
func (c *Cache) Invalidate(ctx context.Context, key repository.CacheKey) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE module = ? AND level = ? AND parent_id = ? AND user_id = ?`,
		key.Module, key.Level, key.ParentID, key.UserID,
	)
	if err != nil {
		return fmt.Errorf("invalidar entrada de caché: %w", err)
	}
	return nil
}

// InvalidateTenant sube la versión del tenant: todas sus entradas escritas con
// la versión anterior quedan obsoletas de golpe.
func (c *Cache) InvalidateTenant(ctx context.Context, userID string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO tenant_versions (user_id, version) VALUES (?, 2)
		 ON CONFLICT(user_id) DO UPDATE SET version = version + 1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("subir versión de tenant: %w", err)
	}
	return nil
}

// tenantVersion devuelve la versión vigente del tenant (1 si nunca se invalidó).
func (c *Cache) tenantVersion(ctx context.Context, userID string) (int64, error) {
	var v int64
	err := c.db.QueryRowContext(ctx,
		`SELECT version FROM tenant_versions WHERE user_id = ?`, userID,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leer versión de tenant: %w", err)
	}
	return v, nil
}
