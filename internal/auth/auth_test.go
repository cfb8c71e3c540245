package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *AuthManager {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	return NewAuthManager(Config{
		JWTSecret:     "test-secret",
		JWTExpiration: 5,
		APIKeys:       []string{"key-1"},
		AllowedUsers:  []User{{Username: "op", PasswordHash: hash, Role: "operator"}},
	})
}

func TestAuthenticateUser(t *testing.T) {
	am := newManager(t)

	role, err := am.AuthenticateUser("op", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "operator", role)

	_, err = am.AuthenticateUser("op", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = am.AuthenticateUser("nobody", "s3cret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestJWTRoundTrip(t *testing.T) {
	am := newManager(t)

	tok, err := am.GenerateJWT("op", "operator")
	require.NoError(t, err)

	claims, err := am.ValidateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "op", claims.Username)
	assert.Equal(t, "operator", claims.Role)

	other := NewAuthManager(Config{JWTSecret: "different"})
	_, err = other.ValidateJWT(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMiddleware(t *testing.T) {
	am := newManager(t)
	tok, err := am.GenerateJWT("op", "operator")
	require.NoError(t, err)

	var sawClaims bool
	h := am.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"none", nil, http.StatusUnauthorized},
		{"bad key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"good key", map[string]string{"X-API-Key": "key-1"}, http.StatusNoContent},
		{"bad scheme", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized},
		{"bad token", map[string]string{"Authorization": "Bearer abc"}, http.StatusUnauthorized},
		{"good token", map[string]string{"Authorization": "Bearer " + tok}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"])
			}
		})
	}
	assert.True(t, sawClaims, "last request should carry claims")
}

func TestMiddlewareOpenWhenUnconfigured(t *testing.T) {
	am := NewAuthManager(Config{})
	assert.False(t, am.Enabled())

	h := am.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
