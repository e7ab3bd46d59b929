package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbook/pkg/authz"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
)

var testSecret = []byte("test-secret-0123456789")

func echoCaller(t *testing.T, got *authz.Caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := authz.FromContext(r.Context())
		require.True(t, ok)
		*got = c
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	want := authz.Caller{ID: "65a1f0c2e4b0a1b2c3d4e5f6", Role: model.RoleUser}
	token, err := IssueToken(testSecret, want, time.Hour)
	require.NoError(t, err)

	var got authz.Caller
	h := Authenticate(testSecret, logger.Discard())(echoCaller(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, got)
}

func TestAuthenticate_Rejects(t *testing.T) {
	expired, err := IssueToken(testSecret, authz.Caller{ID: "u1", Role: model.RoleUser}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken([]byte("another-secret-xxxxxxxx"), authz.Caller{ID: "u1", Role: model.RoleUser}, time.Hour)
	require.NoError(t, err)
	badRole, err := IssueToken(testSecret, authz.Caller{ID: "u1", Role: "ROOT"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := IssueToken(testSecret, authz.Caller{Role: model.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "role": "ADMIN"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"garbage":        "Bearer not-a-jwt",
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
		"unknown role":   "Bearer " + badRole,
		"no subject":     "Bearer " + noSubject,
		"alg none":       "Bearer " + none,
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})
	h := Authenticate(testSecret, logger.Discard())(next)

	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
		})
	}
}
