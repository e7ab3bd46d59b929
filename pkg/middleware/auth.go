package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hotelbook/pkg/authz"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload: sub is the user id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate verifies an HS256 bearer token and stores the caller in the
// request context. Anything else is answered with 401.
func Authenticate(secret []byte, log *logger.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := callerFromRequest(r, parser, secret)
			if err != nil {
				log.Warn("Rejected unauthenticated request",
					"request_id", logger.RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				writeError(w, r, log, "Authenticate", apperrors.Unauthenticated("valid bearer token required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(authz.WithCaller(r.Context(), caller)))
		})
	}
}

func callerFromRequest(r *http.Request, parser *jwt.Parser, secret []byte) (authz.Caller, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return authz.Caller{}, errors.New("missing bearer token")
	}

	claims := &Claims{}
	_, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return authz.Caller{}, err
	}
	if claims.Subject == "" {
		return authz.Caller{}, errors.New("token has no subject")
	}
	if !claims.Role.Valid() {
		return authz.Caller{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return authz.Caller{ID: claims.Subject, Role: claims.Role}, nil
}

// IssueToken signs a token for caller. Used by tests and local tooling;
// production tokens come from the identity service.
func IssueToken(secret []byte, caller authz.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: caller.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
