package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/speedsearch/internal/analytics"
)

const searchEventsSchema = `
	CREATE TABLE IF NOT EXISTS search_events (
		id          BIGSERIAL PRIMARY KEY,
		request_id  TEXT NOT NULL,
		client      TEXT NOT NULL,
		query       TEXT NOT NULL,
		engine      TEXT NOT NULL,
		results     INTEGER NOT NULL,
		duration_ms DOUBLE PRECISION NOT NULL,
		outcome     TEXT NOT NULL,
		at          TIMESTAMPTZ NOT NULL
	)
`

// Postgres persists search events to the search_events table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new PostgreSQL analytics store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the search_events table.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, searchEventsSchema); err != nil {
		return fmt.Errorf("migrate search_events: %w", err)
	}

	return nil
}

func (p *Postgres) SaveSearchPerformed(ctx context.Context, event *analytics.SearchPerformedEvent) error {
	query := `
		INSERT INTO search_events (request_id, client, query, engine, results, duration_ms, outcome, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.pool.Exec(ctx, query,
		event.RequestID,
		event.Client,
		event.Query,
		event.Engine,
		event.Results,
		event.DurationMs,
		string(event.Outcome),
		event.At,
	)
	if err != nil {
		return fmt.Errorf("insert search event: %w", err)
	}

	return nil
}
