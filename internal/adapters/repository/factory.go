package repository

import (
	"context"
	"fmt"
	"strings"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// NewByEngine opens the store named by engine. dsn is a Postgres connection
// string or a SQLite path.
func NewByEngine(ctx context.Context, engine, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		return NewSQLiteStore(dsn, opts...)
	case EnginePostgres:
		return NewPostgresStore(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
}
