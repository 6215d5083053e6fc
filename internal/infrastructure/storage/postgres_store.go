package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/ports"
)

// PostgresStore persists one row per completed sentence.
type PostgresStore struct {
	db    *sql.DB
	table string
	psql  sq.StatementBuilderType
}

var _ ports.ResultStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	return &PostgresStore{
		db:    db,
		table: pq.QuoteIdentifier(table),
		psql:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the results table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    sentence TEXT NOT NULL UNIQUE,
    record JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create results table: %w", err)
	}
	return nil
}

// Load returns every stored sentence in insertion order.
func (s *PostgresStore) Load(ctx context.Context) (*domain.ResultSet, error) {
	query, args, err := s.psql.
		Select("sentence", "record").
		From(s.table).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}

	results := domain.NewResultSet()
	for rows.Next() {
		var (
			sentence string
			raw      []byte
		)
		if err := rows.Scan(&sentence, &raw); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var entry domain.ResultEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode result %q: %w", sentence, err)
		}
		results.Set(sentence, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return results, nil
}

// Save upserts the latest entry; earlier entries are already stored.
func (s *PostgresStore) Save(ctx context.Context, _ *domain.ResultSet, latest domain.ResultEntry) error {
	raw, err := json.Marshal(latest)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	query, args, err := s.psql.
		Insert(s.table).
		Columns("sentence", "record").
		Values(latest.ArabicSentence, raw).
		Suffix("ON CONFLICT (sentence) DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}
