package telemetry

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/joao-fontenele/chopflow/internal/config"
)

// OpenDB opens an instrumented Postgres pool, applies the pool limits and
// checks connectivity.
func OpenDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := otelsql.Open("postgres", cfg.URL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
