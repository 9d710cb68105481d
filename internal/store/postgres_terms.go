package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/speedsearch/internal/search"
)

var termsSchema = []string{
	`CREATE TABLE IF NOT EXISTS terms (
		member      TEXT COLLATE "C" PRIMARY KEY,
		is_complete BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS terms_member_prefix_idx ON terms (member text_pattern_ops)`,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PostgresTermIndex is a PostgreSQL implementation of search.Index.
// Rows store the bare term; completeness lives in is_complete.
type PostgresTermIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresTermIndex creates a new PostgreSQL-backed term index.
func NewPostgresTermIndex(pool *pgxpool.Pool) *PostgresTermIndex {
	return &PostgresTermIndex{pool: pool}
}

// Migrate creates the terms table and its prefix index.
func (p *PostgresTermIndex) Migrate(ctx context.Context) error {
	for _, stmt := range termsSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate terms: %w", err)
		}
	}

	return nil
}

// Load upserts entries. A row never loses completeness once it has it.
func (p *PostgresTermIndex) Load(ctx context.Context, entries []search.Entry) error {
	query := `
		INSERT INTO terms (member, is_complete)
		VALUES ($1, $2)
		ON CONFLICT (member) DO UPDATE SET is_complete = terms.is_complete OR EXCLUDED.is_complete
	`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, e.Term, e.Complete)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("load terms: %w", err)
		}
	}

	return nil
}

func (p *PostgresTermIndex) PrefixSearch(ctx context.Context, query string) ([]string, error) {
	// Rows loaded by older seeders may still carry the marker next to the bare term.
	sql := `
		SELECT DISTINCT rtrim(member, '*') AS term
		FROM terms
		WHERE member LIKE $1 AND is_complete
		ORDER BY term
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, sql, likeEscaper.Replace(query)+"%", search.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("query terms for %q: %w", query, err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan terms for %q: %w", query, err)
	}

	return results, nil
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresTermIndex) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
