package observability

import (
	"strconv"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string                 `json:"name"`
	Type      MetricType             `json:"type"`
	Value     float64                `json:"value"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// MetricsCollector collects and stores application metrics
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metric),
	}
}

// metricKey generates a unique key for a metric
func metricKey(name string, labels map[string]string) string {
	key := name
	if len(labels) > 0 {
		for k, v := range labels {
			key += "." + k + "=" + v
		}
	}
	return key
}

// Inc increments a counter metric
func (mc *MetricsCollector) Inc(name string, labels map[string]string) {
	mc.Add(name, 1, labels)
}

// Add adds a value to a counter metric
func (mc *MetricsCollector) Add(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	if metric, exists := mc.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now()
	} else {
		mc.metrics[key] = &Metric{
			Name:      name,
			Type:      MetricTypeCounter,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
		}
	}
}

// Set sets a gauge metric value
func (mc *MetricsCollector) Set(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Observe records a histogram observation
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	if metric, exists := mc.metrics[key]; exists {
		if metric.Extra == nil {
			metric.Extra = make(map[string]interface{})
		}
		count := 1.0
		sum := value
		if c, ok := metric.Extra["count"].(float64); ok {
			count = c + 1
		}
		if s, ok := metric.Extra["sum"].(float64); ok {
			sum = s + value
		}
		metric.Extra["count"] = count
		metric.Extra["sum"] = sum
		metric.Value = sum / count
		metric.Timestamp = time.Now()
	} else {
		mc.metrics[key] = &Metric{
			Name:      name,
			Type:      MetricTypeHistogram,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
			Extra: map[string]interface{}{
				"count": 1.0,
				"sum":   value,
			},
		}
	}
}

// Get retrieves a metric by name and labels
func (mc *MetricsCollector) Get(name string, labels map[string]string) (*Metric, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	key := metricKey(name, labels)
	metric, exists := mc.metrics[key]
	return metric, exists
}

// GetAll retrieves all metrics
func (mc *MetricsCollector) GetAll() map[string]*Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*Metric, len(mc.metrics))
	for k, v := range mc.metrics {
		result[k] = v
	}
	return result
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics = make(map[string]*Metric)
}

// Standard metric names
const (
	// Generation metrics
	MetricGenerationTotal    = "nlq_generations_total"
	MetricGenerationDuration = "nlq_generation_duration_seconds"
	MetricGenerationSuccess  = "nlq_generations_success_total"
	MetricGenerationFailure  = "nlq_generations_failure_total"
	MetricGuardrailViolation = "nlq_guardrail_violations_total"

	// Cache metrics
	MetricCacheHits   = "nlq_cache_hits_total"
	MetricCacheMisses = "nlq_cache_misses_total"

	// Executor metrics
	MetricExecutorQueries = "nlq_executor_queries_total"
	MetricExecutorRefused = "nlq_executor_refused_total"
	MetricExecutorErrors  = "nlq_executor_errors_total"

	// HTTP metrics
	MetricHTTPRequests = "http_requests_total"
	MetricHTTPDuration = "http_request_duration_seconds"
)

var (
	globalMetrics     *MetricsCollector
	globalMetricsOnce sync.Once
)

// GetGlobalMetrics returns the process-wide metrics collector
func GetGlobalMetrics() *MetricsCollector {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// RecordGenerationMetrics records the outcome of one generation call
func RecordGenerationMetrics(duration time.Duration, safe bool) {
	mc := GetGlobalMetrics()
	mc.Inc(MetricGenerationTotal, nil)
	mc.Observe(MetricGenerationDuration, duration.Seconds(), nil)
	if safe {
		mc.Inc(MetricGenerationSuccess, nil)
	} else {
		mc.Inc(MetricGenerationFailure, nil)
	}
}

// RecordGuardrailViolations counts failed guardrail checks by code
func RecordGuardrailViolations(codes []string) {
	mc := GetGlobalMetrics()
	for _, code := range codes {
		mc.Inc(MetricGuardrailViolation, map[string]string{"code": code})
	}
}

// RecordHTTPMetrics records request count and latency for one request
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration) {
	mc := GetGlobalMetrics()

	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(statusCode),
	}

	mc.Inc(MetricHTTPRequests, labels)
	mc.Observe(MetricHTTPDuration, duration.Seconds(), labels)
}

// RecordCacheResult counts a cache lookup outcome
func RecordCacheResult(hit bool) {
	mc := GetGlobalMetrics()
	if hit {
		mc.Inc(MetricCacheHits, nil)
	} else {
		mc.Inc(MetricCacheMisses, nil)
	}
}
