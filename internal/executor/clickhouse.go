package executor

import (
	"context"
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
)

// ClickHouseExecutor runs the CHQL variant of a generated query
// against the analytics store.
type ClickHouseExecutor struct {
	conn    driver.Conn
	timeout time.Duration
	logger  *observability.Logger
}

// ClickHouseOptions holds connection settings for the analytics store
type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// NewClickHouseExecutor opens a native ClickHouse connection
func NewClickHouseExecutor(opts ClickHouseOptions) (*ClickHouseExecutor, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
		Settings: clickhouse.Settings{
			"max_execution_time": int(opts.Timeout.Seconds()),
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseConnectionError(err)
	}

	return &ClickHouseExecutor{
		conn:    conn,
		timeout: opts.Timeout,
		logger:  observability.NewLogger("executor-clickhouse"),
	}, nil
}

// Name identifies the backend
func (e *ClickHouseExecutor) Name() string {
	return "clickhouse"
}

// Ping checks ClickHouse connectivity
func (e *ClickHouseExecutor) Ping(ctx context.Context) error {
	return e.conn.Ping(ctx)
}

// Execute runs the CHQL query of a safety-validated generation result
func (e *ClickHouseExecutor) Execute(ctx context.Context, result *generator.QueryGenerationResult) (*ResultSet, error) {
	if err := guardResult(result); err != nil {
		return nil, err
	}
	if result.CHQL == "" {
		return nil, apperrors.New(apperrors.ErrCodeExecutionFailed, "Template has no analytics variant").
			WithDetails("template " + result.TemplateID + " defines no CHQL text")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.conn.Query(ctx, result.CHQL)
	recordExecution(e.Name(), err)
	if err != nil {
		e.logger.Error(ctx, "Analytics query execution failed", err, map[string]interface{}{
			"template_id": result.TemplateID,
		})
		return nil, apperrors.NewDatabaseQueryError(err, "execute")
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	columns := rows.Columns()

	resultSet := &ResultSet{
		Columns: columns,
		Source:  e.Name(),
	}

	for rows.Next() {
		scanTargets := make([]interface{}, len(columnTypes))
		for i, ct := range columnTypes {
			scanTargets[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, apperrors.NewDatabaseQueryError(err, "scan")
		}
		values := make([]interface{}, len(scanTargets))
		for i, target := range scanTargets {
			values[i] = reflect.ValueOf(target).Elem().Interface()
		}
		resultSet.Rows = append(resultSet.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryError(err, "iterate")
	}

	resultSet.RowCount = len(resultSet.Rows)
	resultSet.Duration = time.Since(start)

	return resultSet, nil
}
