package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/observability"
)

const principalKey = "principal"

// Middleware returns a Gin middleware that authenticates the request
// and binds the tenant identity into both the gin and request contexts.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if shouldSkipAuth(path) {
			c.Next()
			return
		}

		clientID := getClientID(c)
		if !CheckRateLimit(clientID, m.config.RateLimit) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		principal, err := m.authenticateRequest(c)
		if err != nil {
			if m.config.AllowAnonymous && isPublicEndpoint(path) {
				c.Next()
				return
			}

			authErr := apperrors.NewNotAuthenticatedError()
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": authErr.UserMessage(),
				"code":  authErr.Code,
			})
			c.Abort()
			return
		}

		c.Set(principalKey, principal)

		// Tenant and correlation IDs flow through the request context so
		// every log line downstream carries them.
		ctx := observability.WithTenantID(c.Request.Context(), principal.CompanyID)
		if observability.GetCorrelationID(ctx) == "" {
			ctx = observability.WithCorrelationID(ctx, uuid.New().String())
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole returns a middleware that checks if the principal has any required role
func (m *Manager) RequireRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			authErr := apperrors.NewNotAuthenticatedError()
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": authErr.UserMessage(),
				"code":  authErr.Code,
			})
			c.Abort()
			return
		}

		hasRole := false
		for _, required := range requiredRoles {
			for _, role := range principal.Roles {
				if role == required {
					hasRole = true
					break
				}
			}
			if hasRole {
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
				"code":  string(apperrors.ErrCodeInsufficientPerms),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentPrincipal returns the authenticated principal for the request
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*Principal)
	return principal, ok
}

// TenantID returns the authenticated company ID, or empty if anonymous
func TenantID(c *gin.Context) string {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		return ""
	}
	return principal.CompanyID
}

// authenticateRequest tries JWT then API key authentication
func (m *Manager) authenticateRequest(c *gin.Context) (*Principal, error) {
	if principal, err := m.authenticateJWT(c); err == nil {
		return principal, nil
	}

	if principal, err := m.authenticateAPIKey(c); err == nil {
		return principal, nil
	}

	return nil, apperrors.NewNotAuthenticatedError()
}

// authenticateJWT authenticates using a Bearer token
func (m *Manager) authenticateJWT(c *gin.Context) (*Principal, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, apperrors.NewNotAuthenticatedError()
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperrors.NewNotAuthenticatedError()
	}

	claims, err := m.ValidateToken(parts[1])
	if err != nil {
		return nil, err
	}

	return &Principal{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Roles:     claims.Roles,
	}, nil
}

// authenticateAPIKey authenticates using the X-API-Key header
func (m *Manager) authenticateAPIKey(c *gin.Context) (*Principal, error) {
	key := c.GetHeader("X-API-Key")
	if key == "" {
		return nil, apperrors.NewNotAuthenticatedError()
	}
	return m.ValidateAPIKey(key)
}

// shouldSkipAuth checks if a path should skip authentication
func shouldSkipAuth(path string) bool {
	skipPaths := []string{
		"/health",
		"/ready",
		"/metrics",
	}

	for _, skip := range skipPaths {
		if path == skip {
			return true
		}
	}
	return false
}

// isPublicEndpoint checks if an endpoint can be served anonymously
func isPublicEndpoint(path string) bool {
	return strings.HasPrefix(path, "/api/v1/templates")
}

// getClientID extracts a client identifier for rate limiting
func getClientID(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		if keyID, _, ok := splitAPIKey(key); ok {
			return "key:" + keyID
		}
	}
	return "ip:" + c.ClientIP()
}
