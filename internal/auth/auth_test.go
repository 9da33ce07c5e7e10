package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "lazywalker.test"}

func TestParseRoundTrip(t *testing.T) {
	token, err := Sign(testConfig, "user-1", []string{ScopeWalksRead, ScopeWalksWrite}, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopeWalksWrite))
	require.False(t, claims.HasScope(ScopeAdmin))
}

func TestParseRejects(t *testing.T) {
	_, err := Parse("", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)

	token, err := Sign(Config{Secret: "other", Issuer: testConfig.Issuer}, "user-1", nil, time.Hour)
	require.NoError(t, err)
	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := Sign(testConfig, "user-1", nil, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	_, err = Parse(noSubject, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSpaceSeparatedScopes(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "walks:read  admin",
	}).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeAdmin))
	require.Len(t, claims.Scopes, 2)
}

func TestMiddleware(t *testing.T) {
	var seen *Claims
	handler := NewMiddleware(testConfig).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/progress", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Nil(t, seen)

	token, err := Sign(testConfig, "user-1", []string{ScopeWalksRead}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-1", seen.Subject)
}

func TestMiddlewareChallenge(t *testing.T) {
	handler := NewMiddleware(testConfig, "/v1/status").Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/walks", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, `Bearer realm="lazywalker"`, rec.Header().Get("WWW-Authenticate"))
	require.JSONEq(t, `{"type":"unauthorized","detail":"missing bearer token"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/v1/walks", nil)
	req.Header.Set("Authorization", "bearer not-a-jwt")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.JSONEq(t, `{"type":"unauthorized","detail":"invalid bearer token"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/walks", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAllowsImpliedScopes(t *testing.T) {
	writer := &Claims{Scopes: map[string]struct{}{ScopeWalksWrite: {}}}
	require.True(t, writer.Allows(ScopeWalksRead))
	require.True(t, writer.Allows(ScopeWalksWrite))
	require.False(t, writer.Allows(ScopeAdmin))

	reader := &Claims{Scopes: map[string]struct{}{ScopeWalksRead: {}}}
	require.False(t, reader.Allows(ScopeWalksWrite))

	var none *Claims
	require.False(t, none.Allows(ScopeWalksRead))
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", bearerToken("Bearer abc"))
	require.Equal(t, "abc", bearerToken("  BEARER   abc "))
	require.Empty(t, bearerToken("Token abc"))
	require.Empty(t, bearerToken("Bearer"))
	require.Empty(t, bearerToken(""))
}
