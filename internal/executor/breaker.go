package executor

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
)

// BreakerConfig defines circuit breaker configuration
type BreakerConfig struct {
	MaxRequests   uint32        // Max requests allowed in half-open state
	Interval      time.Duration // Window for counting failures
	Timeout       time.Duration // Duration circuit stays open before trying recovery
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultBreakerConfig provides sensible defaults
var DefaultBreakerConfig = BreakerConfig{
	MaxRequests: 1,
	Interval:    10 * time.Second,
	Timeout:     30 * time.Second,
	ReadyToTrip: func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && (counts.ConsecutiveFailures >= 5 || failureRatio >= 0.6)
	},
}

// BreakerExecutor wraps an Executor with circuit breaker protection so
// a struggling backend sheds load instead of queueing timeouts.
type BreakerExecutor struct {
	inner   Executor
	breaker *gobreaker.CircuitBreaker
	logger  *observability.Logger
}

// NewBreakerExecutor wraps an executor in a circuit breaker
func NewBreakerExecutor(inner Executor, config BreakerConfig) *BreakerExecutor {
	logger := observability.NewLogger("executor-breaker")

	onStateChange := config.OnStateChange
	if onStateChange == nil {
		onStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(context.Background(), "Circuit breaker state changed", map[string]interface{}{
				"backend": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		}
	}

	settings := gobreaker.Settings{
		Name:          inner.Name(),
		MaxRequests:   config.MaxRequests,
		Interval:      config.Interval,
		Timeout:       config.Timeout,
		ReadyToTrip:   config.ReadyToTrip,
		OnStateChange: onStateChange,
	}

	return &BreakerExecutor{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Name identifies the wrapped backend
func (b *BreakerExecutor) Name() string {
	return b.inner.Name()
}

// Ping checks the wrapped backend, outside the breaker so health
// probes can observe recovery.
func (b *BreakerExecutor) Ping(ctx context.Context) error {
	return b.inner.Ping(ctx)
}

// Execute runs the query through the circuit breaker. Refusals for
// unvalidated queries pass through unchanged and never trip the
// breaker: they are a caller error, not a backend failure.
func (b *BreakerExecutor) Execute(ctx context.Context, result *generator.QueryGenerationResult) (*ResultSet, error) {
	if err := guardResult(result); err != nil {
		return nil, err
	}

	value, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Execute(ctx, result)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeExecutionFailed, "Query backend unavailable").
				WithSuggestion("The reporting backend is recovering, retry shortly")
		}
		return nil, err
	}

	return value.(*ResultSet), nil
}

// State returns the current breaker state
func (b *BreakerExecutor) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the current failure counts
func (b *BreakerExecutor) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}
