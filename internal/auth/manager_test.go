package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
)

const testCompanyID = "12345678-1234-1234-1234-123456789012"

func newTestManager() *Manager {
	return NewManager(Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4, // minimum cost keeps the tests fast
	})
}

func TestCreateAndValidateToken(t *testing.T) {
	m := newTestManager()

	token, err := m.CreateToken("user-1", testCompanyID, []string{"analyst"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, testCompanyID, claims.CompanyID)
	assert.Equal(t, []string{"analyst"}, claims.Roles)
	assert.Equal(t, "nlq-engine", claims.Issuer)
}

func TestCreateTokenRejectsMalformedCompanyID(t *testing.T) {
	m := newTestManager()

	_, err := m.CreateToken("user-1", "not-a-uuid", nil)
	require.Error(t, err)

	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, coded.Code)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewManager(Config{JWTSecret: "secret-a", JWTExpiry: time.Hour})
	verifier := NewManager(Config{JWTSecret: "secret-b", JWTExpiry: time.Hour})

	token, err := issuer.CreateToken("user-1", testCompanyID, nil)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)

	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, coded.Code)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewManager(Config{JWTSecret: "test-secret", JWTExpiry: -time.Minute})

	token, err := m.CreateToken("user-1", testCompanyID, nil)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m := newTestManager()

	_, err := m.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestAPIKeyLifecycle(t *testing.T) {
	m := newTestManager()

	apiKey, err := m.IssueAPIKey(testCompanyID, "ci-pipeline", []string{"reader"}, time.Hour)
	require.NoError(t, err)

	assert.True(t, len(apiKey.Key) > 0)
	assert.Contains(t, apiKey.Key, "ilk_")
	assert.NotContains(t, apiKey.HashedKey, apiKey.Key, "plaintext must never equal the stored hash")

	principal, err := m.ValidateAPIKey(apiKey.Key)
	require.NoError(t, err)
	assert.Equal(t, testCompanyID, principal.CompanyID)
	assert.Equal(t, "apikey:"+apiKey.ID, principal.UserID)
	assert.Equal(t, []string{"reader"}, principal.Roles)

	// Correct key ID but wrong secret must fail the bcrypt comparison.
	_, err = m.ValidateAPIKey("ilk_" + apiKey.ID + ".wrong-secret")
	assert.Error(t, err)

	require.NoError(t, m.RevokeAPIKey(apiKey.ID))
	_, err = m.ValidateAPIKey(apiKey.Key)
	assert.Error(t, err)
}

func TestValidateAPIKeyRejectsExpired(t *testing.T) {
	m := newTestManager()

	apiKey, err := m.IssueAPIKey(testCompanyID, "stale", nil, -time.Minute)
	require.NoError(t, err)

	_, err = m.ValidateAPIKey(apiKey.Key)
	assert.Error(t, err)
}

func TestIssueAPIKeyRejectsMalformedCompanyID(t *testing.T) {
	m := newTestManager()

	_, err := m.IssueAPIKey("nope", "bad", nil, time.Hour)
	assert.Error(t, err)
}

func TestListAPIKeysOmitsPlaintext(t *testing.T) {
	m := newTestManager()

	_, err := m.IssueAPIKey(testCompanyID, "first", nil, time.Hour)
	require.NoError(t, err)
	_, err = m.IssueAPIKey("99999999-9999-9999-9999-999999999999", "other-tenant", nil, time.Hour)
	require.NoError(t, err)

	keys := m.ListAPIKeys(testCompanyID)
	require.Len(t, keys, 1)
	assert.Equal(t, "first", keys[0].Name)
	assert.Empty(t, keys[0].Key)
	assert.NotEmpty(t, keys[0].HashedKey)
}

func TestCleanupExpired(t *testing.T) {
	m := newTestManager()

	expired, err := m.IssueAPIKey(testCompanyID, "expired", nil, -time.Minute)
	require.NoError(t, err)
	live, err := m.IssueAPIKey(testCompanyID, "live", nil, time.Hour)
	require.NoError(t, err)

	m.CleanupExpired()

	assert.Nil(t, m.apiKeys[expired.ID])
	assert.NotNil(t, m.apiKeys[live.ID])
}

func TestSplitAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		keyID    string
		secret   string
		expected bool
	}{
		{name: "well formed", input: "ilk_abc123.deadbeef", keyID: "abc123", secret: "deadbeef", expected: true},
		{name: "secret containing a dot", input: "ilk_abc.de.ad", keyID: "abc", secret: "de.ad", expected: true},
		{name: "missing prefix", input: "abc123.deadbeef", expected: false},
		{name: "missing separator", input: "ilk_abc123deadbeef", expected: false},
		{name: "empty secret", input: "ilk_abc123.", expected: false},
		{name: "empty id", input: "ilk_.deadbeef", expected: false},
		{name: "empty string", input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyID, secret, ok := splitAPIKey(tt.input)
			assert.Equal(t, tt.expected, ok)
			if tt.expected {
				assert.Equal(t, tt.keyID, keyID)
				assert.Equal(t, tt.secret, secret)
			}
		})
	}
}
