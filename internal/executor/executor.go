// Package executor runs generated queries against the reporting
// stores. It is the enforcement point for the generation contract:
// a query whose safety validation did not pass is never executed.
package executor

import (
	"context"
	"time"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
)

// ResultSet holds the rows returned by an executed query
type ResultSet struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
	Duration time.Duration   `json:"duration_ms"`
	Source   string          `json:"source"`
}

// Executor executes a generated query against one backend
type Executor interface {
	// Execute runs the query carried by the generation result
	Execute(ctx context.Context, result *generator.QueryGenerationResult) (*ResultSet, error)

	// Ping checks backend connectivity
	Ping(ctx context.Context) error

	// Name identifies the backend for logging and metrics
	Name() string
}

// guardResult rejects results that must not reach a backend. Shared by
// all executors so the refusal rule cannot be bypassed by picking a
// different backend.
func guardResult(result *generator.QueryGenerationResult) error {
	if result == nil {
		return apperrors.NewExecutionRefusedError("")
	}
	if !result.Executable() {
		observability.GetGlobalMetrics().Inc(observability.MetricExecutorRefused, map[string]string{
			"template_id": result.TemplateID,
		})
		return apperrors.NewExecutionRefusedError(result.TemplateID)
	}
	return nil
}

func recordExecution(name string, err error) {
	mc := observability.GetGlobalMetrics()
	mc.Inc(observability.MetricExecutorQueries, map[string]string{"backend": name})
	if err != nil {
		mc.Inc(observability.MetricExecutorErrors, map[string]string{"backend": name})
	}
}
