package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var testJWT = config.JWTConfig{SecretKey: "test-secret", Issuer: "trip-planner", Audience: "trip-planner-api"}

func signToken(t *testing.T, claims types.Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(userID string) types.Claims {
	return types.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testJWT.Issuer,
			Audience:  jwt.ClaimStrings{testJWT.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := "4a5c7f1e-7a0f-4c1b-9a3f-3f1d2a9c8b10"

	var seen string
	handler := Authenticate(logger, testJWT)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	expired := validClaims(userID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongAud := validClaims(userID)
	wrongAud.Audience = jwt.ClaimStrings{"other"}
	noExp := validClaims(userID)
	noExp.ExpiresAt = nil

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", http.StatusUnauthorized},
		{"valid token", "Bearer " + signToken(t, validClaims(userID), testJWT.SecretKey), http.StatusNoContent},
		{"expired", "Bearer " + signToken(t, expired, testJWT.SecretKey), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, validClaims(userID), "nope"), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + signToken(t, wrongAud, testJWT.SecretKey), http.StatusUnauthorized},
		{"no expiry", "Bearer " + signToken(t, noExp, testJWT.SecretKey), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/itineraries", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, userID, seen)
			}
		})
	}
}

func TestUserUUIDFromRequest(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := UserUUIDFromRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil), logger)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("malformed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithUserID(req.Context(), "not-a-uuid"))
		_, ok := UserUUIDFromRequest(rec, req, logger)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
