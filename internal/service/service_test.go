package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactlens/nlq-engine/internal/auth"
	"github.com/impactlens/nlq-engine/internal/cache"
	"github.com/impactlens/nlq-engine/internal/catalog"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/observability"
)

const testCompanyID = "12345678-1234-1234-1234-123456789012"

func fixedNow() time.Time {
	return time.Date(2024, 8, 14, 15, 30, 0, 0, time.UTC)
}

type testHarness struct {
	router *gin.Engine
	token  string
	redis  *miniredis.Miniredis
}

func newTestHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	resultCache := cache.NewResultCache(rdb, 5*time.Minute)

	cat := catalog.MustBuiltin()
	gen := generator.New(cat, generator.WithClock(fixedNow))

	opts = append([]Option{WithResultCache(resultCache)}, opts...)
	svc := New(cat, gen, opts...)

	authManager := auth.NewManager(auth.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})
	token, err := authManager.CreateToken("user-1", testCompanyID, []string{"analyst"})
	require.NoError(t, err)

	return &testHarness{
		router: svc.SetupRoutes(authManager),
		token:  token,
		redis:  mr,
	}
}

func (h *testHarness) request(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDHeaderOnRegisteredRoutes(t *testing.T) {
	h := newTestHarness(t)

	// The logging middleware must run for handlers registered by
	// SetupRoutes, so every response carries a request id.
	w := h.request(http.MethodGet, "/api/v1/templates", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(observability.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(observability.RequestIDHeader, "corr-123")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, "corr-123", rec.Header().Get(observability.RequestIDHeader))
}

func TestListTemplates(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodGet, "/api/v1/templates", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count     int               `json:"count"`
		Templates []json.RawMessage `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 20, body.Count)
	assert.Len(t, body.Templates, 20)

	// Raw SQL never leaves the server
	assert.NotContains(t, w.Body.String(), "SELECT")
}

func TestListTemplatesByCategory(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodGet, "/api/v1/templates?category=giving", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Body.String(), "donation_totals")
	assert.NotContains(t, w.Body.String(), "carbon_emissions_summary")
}

func TestGetTemplate(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodGet, "/api/v1/templates/sroi_ratio", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SROI Ratio")
	assert.NotContains(t, w.Body.String(), "SELECT")

	w = h.request(http.MethodGet, "/api/v1/templates/nope", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "TEMPLATE_NOT_FOUND")
}

func TestTemplateCost(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodGet, "/api/v1/templates/sroi_ratio/cost", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "medium")
}

func TestGenerateEndpoint(t *testing.T) {
	h := newTestHarness(t)

	body := `{"template_id": "sroi_ratio", "time_range": {"token": "last_quarter"}}`
	w := h.request(http.MethodPost, "/api/v1/query/generate", body, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result generator.QueryGenerationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	assert.True(t, result.SafetyValidation.Passed)
	assert.Contains(t, result.SQL, testCompanyID)
	assert.Contains(t, result.SQL, "2024-04-01")
}

func TestGenerateRequiresAuth(t *testing.T) {
	h := newTestHarness(t)

	body := `{"template_id": "sroi_ratio"}`
	w := h.request(http.MethodPost, "/api/v1/query/generate", body, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateRejectsMissingTemplateID(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodPost, "/api/v1/query/generate", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateUnknownTemplate(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodPost, "/api/v1/query/generate", `{"template_id": "nope"}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "TEMPLATE_NOT_FOUND")
}

func TestGenerateRejectsOversizedWindow(t *testing.T) {
	h := newTestHarness(t)

	body := `{"template_id": "sroi_ratio", "time_range": {"token": "custom", "start": "2022-01-01", "end": "2024-03-10"}}`
	w := h.request(http.MethodPost, "/api/v1/query/generate", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "TIME_WINDOW_EXCEEDED")
}

func TestGeneratePopulatesCache(t *testing.T) {
	h := newTestHarness(t)

	body := `{"template_id": "sroi_ratio", "time_range": {"token": "last_quarter"}}`

	w := h.request(http.MethodPost, "/api/v1/query/generate", body, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.redis.Keys(), 1)

	// The second identical request is served from the cached entry.
	w = h.request(http.MethodPost, "/api/v1/query/generate", body, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, h.redis.Keys(), 1)
	assert.Contains(t, w.Body.String(), "2024-04-01")
}

func TestValidateEndpointReportsViolationsInBody(t *testing.T) {
	h := newTestHarness(t)

	body := `{"template_id": "sroi_ratio"}`
	w := h.request(http.MethodPost, "/api/v1/query/validate", body, true)
	require.Equal(t, http.StatusOK, w.Code)

	var result generator.QueryGenerationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.SafetyValidation.Passed)
	assert.NotEmpty(t, result.SafetyValidation.Checks)
}

func TestExecuteUnknownBackend(t *testing.T) {
	h := newTestHarness(t)

	body := `{"intent": {"template_id": "sroi_ratio"}, "backend": "sqlite"}`
	w := h.request(http.MethodPost, "/api/v1/query/execute", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_INPUT")
}

func TestAuditEndpointWithoutStore(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodGet, "/api/v1/audit", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSuggestionsEndpointWithoutStore(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodPost, "/api/v1/suggestions", `{"embedding": [0.1, 0.2]}`, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflightIsAccepted(t *testing.T) {
	h := newTestHarness(t)

	w := h.request(http.MethodOptions, "/api/v1/query/generate", "", false)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
