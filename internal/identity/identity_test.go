package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestParseMapsClaims(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, jwt.MapClaims{
		"sub":     "user_123",
		"email":   "a@x.com",
		"name":    "Jo Doe",
		"picture": "https://cdn.example.com/jo.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	ident, err := v.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Identity{
		ID:        "user_123",
		Email:     "a@x.com",
		FullName:  "Jo Doe",
		AvatarURL: "https://cdn.example.com/jo.png",
	}, ident)
}

func TestParseRejectsBadTokens(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Parse("not-a-token")
	require.Error(t, err)

	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"})
	signed, err := wrongKey.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = v.Parse(signed)
	require.Error(t, err)
}

func TestParseRequiresSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, jwt.MapClaims{"email": "a@x.com"})
	_, err := v.Parse(raw)
	require.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	v := NewVerifier(testSecret)
	raw := signToken(t, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err := v.Parse(raw)
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret)

	var got Identity
	var present bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, present = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := v.Middleware(next)

	// Valid token attaches the identity.
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "u1"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, present)
	assert.Equal(t, "u1", got.ID)

	// No token passes through anonymously rather than failing.
	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.False(t, present)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Garbage tokens are treated the same as no token.
	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, present)
}
