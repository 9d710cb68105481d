package search

import (
	"fmt"
	"strings"
)

// Engine names a term-storage backend.
type Engine string

const (
	// EngineRedis serves queries from the Redis sorted set.
	EngineRedis Engine = "redis"
	// EnginePostgres serves queries from the PostgreSQL terms table.
	EnginePostgres Engine = "postgresql"
)

// Engines lists every backend a selector may resolve to.
func Engines() []Engine {
	return []Engine{EngineRedis, EnginePostgres}
}

// ParseEngine resolves a selector case-insensitively. Unknown selectors are
// rejected rather than mapped to a default.
func ParseEngine(selector string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(selector))); e {
	case EngineRedis, EnginePostgres:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, selector)
	}
}
