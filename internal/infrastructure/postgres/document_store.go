package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obracore/catalogo-api/internal/domain"
	"github.com/obracore/catalogo-api/internal/domain/repository"
)

var _ repository.TaxonomyStore = (*DocumentStore)(nil)

// DocumentStore implementa el puerto TaxonomyStore sobre PostgreSQL: una sola
// tabla de documentos con los campos en jsonb, colección y tenant como
// columnas. Replica el contrato del almacén de documentos hospedado: filtros
// de igualdad, lectura ordenada, create/update por documento y borrado en
// lote atómico (única operación transaccional).
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore construye el adaptador de persistencia.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// EnsureSchema crea la tabla de documentos y sus índices si no existen.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS documents (
			id         uuid PRIMARY KEY,
			collection text NOT NULL,
			user_id    text NOT NULL,
			fields     jsonb NOT NULL DEFAULT '{}',
			created_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents (collection, user_id);
		CREATE INDEX IF NOT EXISTS idx_documents_fields ON documents USING gin (fields);`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("crear esquema de documentos: %w", err)
	}
	return nil
}

// Query devuelve los documentos de la colección del tenant que cumplen todos
// los filtros de igualdad, ordenados por el campo indicado si no es vacío.
func (s *DocumentStore) Query(ctx context.Context, collection, userID string, filters []repository.Filter, orderBy string) ([]repository.Document, error) {
	query := `SELECT id, user_id, fields, created_at FROM documents WHERE collection = $1 AND user_id = $2`
	args := []any{collection, userID}
	for _, f := range filters {
		query += fmt.Sprintf(" AND fields->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, f.Field, fmt.Sprint(f.Value))
	}
	if orderBy != "" {
		query += fmt.Sprintf(" ORDER BY fields->>$%d ASC", len(args)+1)
		args = append(args, orderBy)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []repository.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

// Get devuelve un documento por id, o nil si no existe.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, fields, created_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", collection, err)
	}
	return &doc, nil
}

// Create persiste un documento nuevo y devuelve el id asignado.
func (s *DocumentStore) Create(ctx context.Context, collection, userID string, fields repository.Fields) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("serializar campos: %w", err)
	}
	id := uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, collection, user_id, fields, created_at) VALUES ($1, $2, $3, $4, now())`,
		id, collection, userID, raw,
	)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

// Update aplica campos parciales sobre un documento existente.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields repository.Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("serializar campos: %w", err)
	}
	cmd, err := s.pool.Exec(ctx,
		`UPDATE documents SET fields = fields || $3 WHERE collection = $1 AND id = $2`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BatchDelete elimina todos los documentos referenciados en una transacción:
// o se borran todos o no se borra ninguno.
func (s *DocumentStore) BatchDelete(ctx context.Context, refs []repository.Ref) error {
	if len(refs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ref := range refs {
		if _, err := tx.Exec(ctx,
			`DELETE FROM documents WHERE collection = $1 AND id = $2`,
			ref.Collection, ref.ID,
		); err != nil {
			return fmt.Errorf("delete %s/%s: %w", ref.Collection, ref.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// scanDocument lee una fila (id, user_id, fields, created_at) y proyecta los
// campos jsonb más userId y createdAt al documento plano del puerto.
func scanDocument(row pgx.Row) (repository.Document, error) {
	var (
		id        string
		userID    string
		raw       []byte
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &raw, &createdAt); err != nil {
		return repository.Document{}, err
	}
	fields := make(repository.Fields)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return repository.Document{}, fmt.Errorf("deserializar campos: %w", err)
		}
	}
	fields["userId"] = userID
	fields["createdAt"] = createdAt
	return repository.Document{ID: id, Fields: fields}, nil
}
