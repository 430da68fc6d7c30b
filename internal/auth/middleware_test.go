package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/api/v1/templates", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"templates": []string{}})
	})
	router.GET("/api/v1/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"company_id": TenantID(c)})
	})
	router.GET("/api/v1/admin", m.RequireRole("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestMiddlewareRejectsUnauthenticated(t *testing.T) {
	router := newTestRouter(newTestManager())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_AUTHENTICATED")
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	m := newTestManager()
	router := newTestRouter(m)

	token, err := m.CreateToken("user-1", testCompanyID, []string{"analyst"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testCompanyID)
}

func TestMiddlewareAcceptsAPIKey(t *testing.T) {
	m := newTestManager()
	router := newTestRouter(m)

	apiKey, err := m.IssueAPIKey(testCompanyID, "svc", nil, time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("X-API-Key", apiKey.Key)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testCompanyID)
}

func TestMiddlewareRejectsMalformedBearer(t *testing.T) {
	router := newTestRouter(newTestManager())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareSkipsHealthEndpoint(t *testing.T) {
	router := newTestRouter(newTestManager())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareAnonymousAccess(t *testing.T) {
	t.Run("public endpoint allowed when anonymous access is on", func(t *testing.T) {
		m := NewManager(Config{JWTSecret: "test-secret", AllowAnonymous: true})
		router := newTestRouter(m)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-public endpoint still requires credentials", func(t *testing.T) {
		m := NewManager(Config{JWTSecret: "test-secret", AllowAnonymous: true})
		router := newTestRouter(m)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	m := newTestManager()
	router := newTestRouter(m)

	adminToken, err := m.CreateToken("admin-1", testCompanyID, []string{"admin"})
	require.NoError(t, err)
	analystToken, err := m.CreateToken("user-1", testCompanyID, []string{"analyst"})
	require.NoError(t, err)

	t.Run("matching role passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing role is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin", nil)
		req.Header.Set("Authorization", "Bearer "+analystToken)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")
	})
}

func TestGetClientID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	c.Request.Header.Set("X-API-Key", "ilk_abc123.secret")
	assert.Equal(t, "key:abc123", getClientID(c))

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	c2.Request.RemoteAddr = "10.1.2.3:4444"
	assert.Equal(t, "ip:10.1.2.3", getClientID(c2))
}
