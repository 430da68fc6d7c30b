package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/guardrails"
)

// stubExecutor lets tests script backend behavior without a database.
type stubExecutor struct {
	name     string
	err      error
	executed int
}

func (s *stubExecutor) Execute(ctx context.Context, result *generator.QueryGenerationResult) (*ResultSet, error) {
	s.executed++
	if s.err != nil {
		return nil, s.err
	}
	return &ResultSet{
		Columns:  []string{"total"},
		Rows:     [][]interface{}{{int64(42)}},
		RowCount: 1,
		Source:   s.name,
	}, nil
}

func (s *stubExecutor) Ping(ctx context.Context) error { return s.err }
func (s *stubExecutor) Name() string                   { return s.name }

func executableResult() *generator.QueryGenerationResult {
	return &generator.QueryGenerationResult{
		SQL:        "SELECT campaign_name FROM donations WHERE company_id = '12345678-1234-1234-1234-123456789012' LIMIT 10",
		TemplateID: "sroi_ratio",
		SafetyValidation: guardrails.SafetyValidationResult{
			Passed:          true,
			OverallSeverity: guardrails.SeverityNone,
		},
	}
}

func TestBreakerExecutorPassesThrough(t *testing.T) {
	stub := &stubExecutor{name: "postgres"}
	b := NewBreakerExecutor(stub, DefaultBreakerConfig)

	rows, err := b.Execute(context.Background(), executableResult())
	require.NoError(t, err)

	assert.Equal(t, 1, rows.RowCount)
	assert.Equal(t, "postgres", b.Name())
	assert.Equal(t, 1, stub.executed)
}

func TestExecutorRefusesUnvalidatedResult(t *testing.T) {
	stub := &stubExecutor{name: "postgres"}
	b := NewBreakerExecutor(stub, DefaultBreakerConfig)

	unsafe := executableResult()
	unsafe.SafetyValidation.Passed = false

	_, err := b.Execute(context.Background(), unsafe)
	require.Error(t, err)

	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExecutionRefused, coded.Code)

	// The backend must never have seen the query.
	assert.Equal(t, 0, stub.executed)
}

func TestExecutorRefusesNilResult(t *testing.T) {
	b := NewBreakerExecutor(&stubExecutor{name: "postgres"}, DefaultBreakerConfig)

	_, err := b.Execute(context.Background(), nil)
	require.Error(t, err)

	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExecutionRefused, coded.Code)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubExecutor{name: "postgres", err: errors.New("connection reset")}
	b := NewBreakerExecutor(stub, BreakerConfig{
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(context.Background(), executableResult())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	// While open, calls fail fast without reaching the backend.
	before := stub.executed
	_, err := b.Execute(context.Background(), executableResult())
	require.Error(t, err)
	assert.Equal(t, before, stub.executed)

	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExecutionFailed, coded.Code)
}

func TestRefusalsDoNotTripBreaker(t *testing.T) {
	stub := &stubExecutor{name: "postgres"}
	b := NewBreakerExecutor(stub, BreakerConfig{
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	unsafe := executableResult()
	unsafe.SafetyValidation.Passed = false

	for i := 0; i < 10; i++ {
		_, err := b.Execute(context.Background(), unsafe)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, uint32(0), b.Counts().TotalFailures)
}

func TestBreakerPingBypassesBreaker(t *testing.T) {
	stub := &stubExecutor{name: "postgres", err: errors.New("down")}
	b := NewBreakerExecutor(stub, DefaultBreakerConfig)

	assert.Error(t, b.Ping(context.Background()))

	stub.err = nil
	assert.NoError(t, b.Ping(context.Background()))
}
