package executor

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
)

// PostgresExecutor runs generated SQL against the primary Postgres
// reporting database.
type PostgresExecutor struct {
	db      *sql.DB
	timeout time.Duration
	logger  *observability.Logger
}

// NewPostgresExecutor creates an executor over an open connection pool
func NewPostgresExecutor(db *sql.DB, timeout time.Duration) *PostgresExecutor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &PostgresExecutor{
		db:      db,
		timeout: timeout,
		logger:  observability.NewLogger("executor-postgres"),
	}
}

// OpenPostgres opens a lib/pq connection pool with sane pool limits
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.NewDatabaseConnectionError(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Name identifies the backend
func (e *PostgresExecutor) Name() string {
	return "postgres"
}

// Ping checks database connectivity
func (e *PostgresExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Execute runs the SQL query of a safety-validated generation result
func (e *PostgresExecutor) Execute(ctx context.Context, result *generator.QueryGenerationResult) (*ResultSet, error) {
	if err := guardResult(result); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, result.SQL)
	recordExecution(e.Name(), err)
	if err != nil {
		e.logger.Error(ctx, "Query execution failed", err, map[string]interface{}{
			"template_id": result.TemplateID,
		})
		return nil, apperrors.NewDatabaseQueryError(err, "execute")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewDatabaseQueryError(err, "columns")
	}

	resultSet := &ResultSet{
		Columns: columns,
		Source:  e.Name(),
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, apperrors.NewDatabaseQueryError(err, "scan")
		}
		for i, v := range values {
			// lib/pq returns []byte for text columns
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		resultSet.Rows = append(resultSet.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryError(err, "iterate")
	}

	resultSet.RowCount = len(resultSet.Rows)
	resultSet.Duration = time.Since(start)

	e.logger.Debug(ctx, "Query executed", map[string]interface{}{
		"template_id": result.TemplateID,
		"row_count":   resultSet.RowCount,
		"duration_ms": resultSet.Duration.Milliseconds(),
	})

	return resultSet, nil
}
