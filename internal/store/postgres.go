package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Times are written as fixed-width UTC strings so that text and jsonb ordering
// is chronological.
const pgTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var pgMigrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		seq BIGSERIAL,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents (collection, (data->>'user_id'))`,
	`CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data)`,
}

// PostgresStore keeps every collection in one JSONB table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, verifies the connection and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, m := range pgMigrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Collection(name string) Collection {
	return &pgCollection{db: s.db, name: name}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type pgCollection struct {
	db   *sql.DB
	name string
}

func (c *pgCollection) Add(ctx context.Context, doc Document) (string, error) {
	id := uuid.NewString()
	if err := c.Create(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (c *pgCollection) Create(ctx context.Context, id string, doc Document) error {
	data, err := encodePgDocument(doc)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`,
		c.name, id, data,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert into %s: %w", c.name, err)
	}
	return nil
}

func (c *pgCollection) Get(ctx context.Context, id string) (Document, error) {
	var raw []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		c.name, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from %s: %w", c.name, err)
	}
	return decodePgDocument(raw)
}

func (c *pgCollection) Merge(ctx context.Context, id string, fields Document) error {
	data, err := encodePgDocument(fields)
	if err != nil {
		return err
	}
	result, err := c.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`,
		c.name, id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.name, err)
	}
	return requireRow(result)
}

func (c *pgCollection) Delete(ctx context.Context, id string) error {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		c.name, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.name, err)
	}
	return requireRow(result)
}

func (c *pgCollection) Find(ctx context.Context, q Query) ([]Snapshot, error) {
	query, args, err := buildPgFind(c.name, q)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.name, err)
		}
		doc, err := decodePgDocument(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c.name, err)
	}
	return out, nil
}

func buildPgFind(collection string, q Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		k, _ := kindOf(f.Value)
		field := pq.QuoteLiteral(f.Field)
		value := f.Value
		var expr string
		switch k {
		case kindNumber:
			expr = fmt.Sprintf("(data->>%s)::double precision", field)
		case kindBool:
			expr = fmt.Sprintf("(data->>%s)::boolean", field)
		case kindTime:
			expr = fmt.Sprintf("data->>%s", field)
			value = value.(time.Time).UTC().Format(pgTimeLayout)
		default:
			expr = fmt.Sprintf("data->>%s", field)
		}
		args = append(args, value)
		fmt.Fprintf(&sb, " AND %s %s $%d", expr, sqlOp(f.Op), len(args))
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Direction == Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY data->%s %s NULLS LAST, seq", pq.QuoteLiteral(q.OrderBy), dir)
	} else {
		sb.WriteString(" ORDER BY seq")
	}
	return sb.String(), args, nil
}

func sqlOp(op Op) string {
	if op == OpEq {
		return "="
	}
	return string(op)
}

func encodePgDocument(doc Document) (string, error) {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(pgTimeLayout)
		}
		out[k] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	// lib/pq sends []byte as bytea, so the jsonb parameter goes over as text.
	return string(data), nil
}

func decodePgDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
