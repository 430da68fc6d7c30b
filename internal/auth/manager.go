// Package auth establishes the tenant identity of every request.
// The company ID used for tenant isolation is always taken from
// verified credentials, never from request parameters.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
)

// Principal is the authenticated identity attached to a request
type Principal struct {
	UserID    string   `json:"user_id"`
	CompanyID string   `json:"company_id"`
	Roles     []string `json:"roles"`
}

// Claims represents JWT claims carrying the tenant binding
type Claims struct {
	UserID    string   `json:"user_id"`
	CompanyID string   `json:"company_id"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// APIKey represents a service credential scoped to a single company
type APIKey struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Key        string    `json:"key,omitempty"` // Plaintext (only shown once)
	HashedKey  string    `json:"-"`             // bcrypt hash of the secret part
	CompanyID  string    `json:"company_id"`
	Roles      []string  `json:"roles"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Active     bool      `json:"active"`
}

// Config holds authentication configuration
type Config struct {
	JWTSecret      string
	JWTExpiry      time.Duration
	BcryptCost     int
	RateLimit      int
	AllowAnonymous bool
}

// Manager handles token issuance and credential validation
type Manager struct {
	config  Config
	apiKeys map[string]*APIKey // key ID -> APIKey
	mu      sync.RWMutex
}

// NewManager creates a new authentication manager
func NewManager(config Config) *Manager {
	if config.JWTExpiry == 0 {
		config.JWTExpiry = 24 * time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.RateLimit == 0 {
		config.RateLimit = 100
	}
	if config.JWTSecret == "" {
		config.JWTSecret = generateRandomString(32)
	}

	return &Manager{
		config:  config,
		apiKeys: make(map[string]*APIKey),
	}
}

// CreateToken creates a JWT for a user bound to their company
func (m *Manager) CreateToken(userID, companyID string, roles []string) (string, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return "", apperrors.NewInvalidInputError("company_id", "must be a valid UUID")
	}

	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		CompanyID: companyID,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "nlq-engine",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.config.JWTSecret))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeTokenCreation, "failed to sign token")
	}

	return tokenString, nil
}

// ValidateToken validates a JWT and returns the claims
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.JWTSecret), nil
	})
	if err != nil {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	if claims.CompanyID == "" {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	return claims, nil
}

// IssueAPIKey creates a new API key scoped to a company.
// The returned key is of the form "ilk_<id>.<secret>" and is shown once;
// only the bcrypt hash of the secret is retained.
func (m *Manager) IssueAPIKey(companyID, name string, roles []string, expiresIn time.Duration) (*APIKey, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return nil, apperrors.NewInvalidInputError("company_id", "must be a valid UUID")
	}

	keyID := generateRandomString(8)
	secret := generateRandomString(24)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), m.config.BcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTokenCreation, "failed to hash API key")
	}

	apiKey := &APIKey{
		ID:        keyID,
		Name:      name,
		Key:       fmt.Sprintf("ilk_%s.%s", keyID, secret),
		HashedKey: string(hashed),
		CompanyID: companyID,
		Roles:     roles,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(expiresIn),
		Active:    true,
	}

	m.mu.Lock()
	m.apiKeys[keyID] = apiKey
	m.mu.Unlock()

	return apiKey, nil
}

// ValidateAPIKey validates an API key and returns the principal it represents
func (m *Manager) ValidateAPIKey(key string) (*Principal, error) {
	keyID, secret, ok := splitAPIKey(key)
	if !ok {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	m.mu.Lock()
	apiKey, exists := m.apiKeys[keyID]
	m.mu.Unlock()

	if !exists || !apiKey.Active {
		return nil, apperrors.NewInvalidCredentialsError()
	}
	if time.Now().After(apiKey.ExpiresAt) {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(apiKey.HashedKey), []byte(secret)); err != nil {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	m.mu.Lock()
	apiKey.LastUsedAt = time.Now()
	m.mu.Unlock()

	return &Principal{
		UserID:    "apikey:" + apiKey.ID,
		CompanyID: apiKey.CompanyID,
		Roles:     apiKey.Roles,
	}, nil
}

// RevokeAPIKey revokes an API key by ID
func (m *Manager) RevokeAPIKey(keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	apiKey, exists := m.apiKeys[keyID]
	if !exists {
		return fmt.Errorf("API key not found: %s", keyID)
	}
	apiKey.Active = false
	return nil
}

// ListAPIKeys returns all API keys for a company, without plaintext secrets
func (m *Manager) ListAPIKeys(companyID string) []*APIKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []*APIKey
	for _, apiKey := range m.apiKeys {
		if apiKey.CompanyID == companyID {
			keyCopy := *apiKey
			keyCopy.Key = ""
			keys = append(keys, &keyCopy)
		}
	}
	return keys
}

// CleanupExpired removes expired API keys
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, apiKey := range m.apiKeys {
		if now.After(apiKey.ExpiresAt) {
			delete(m.apiKeys, id)
		}
	}
}

// splitAPIKey parses "ilk_<id>.<secret>" into its parts
func splitAPIKey(key string) (keyID, secret string, ok bool) {
	if !strings.HasPrefix(key, "ilk_") {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, "ilk_")
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// generateRandomString generates a hex string from length random bytes
func generateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)
}
