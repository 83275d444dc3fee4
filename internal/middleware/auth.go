package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// IdentityContextKey is the key for the authenticated identity in context
	IdentityContextKey ContextKey = "identity"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// Identity is the request-scoped caller identity decoded from the bearer
// token. It is passed explicitly into every engine operation rather than
// read from ambient state.
type Identity struct {
	UserID         uuid.UUID
	Email          string
	Role           string
	EmailConfirmed bool
}

// IsAdmin reports whether the identity carries the administrator role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == domain.RoleAdmin
}

type identityClaims struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	EmailConfirmed bool   `json:"email_confirmed"`
	jwt.RegisteredClaims
}

// Auth creates a middleware that requires a valid bearer token.
func Auth(secret string, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromRequest(r, secret)
			if err != nil {
				logger.WithError(err).Debug("Token validation failed")
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth decodes a bearer token when present and continues
// unauthenticated otherwise. Anonymous-session voting uses this.
func OptionalAuth(secret string, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := identityFromRequest(r, secret)
			if err != nil {
				logger.WithError(err).Debug("Token validation failed")
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly requires the authenticated identity to carry the admin role.
// Must be mounted after Auth.
func AdminOnly(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFrom(r.Context())
			if !identity.IsAdmin() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"error":{"type":"authorization","message":"administrator role required"}}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFrom extracts the authenticated identity from the context, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	identity, _ := ctx.Value(IdentityContextKey).(*Identity)
	return identity
}

func identityFromRequest(r *http.Request, secret string) (*Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header is required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, fmt.Errorf("invalid authorization header format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		return nil, fmt.Errorf("token is required")
	}

	var claims identityClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a valid identifier")
	}

	return &Identity{
		UserID:         userID,
		Email:          claims.Email,
		Role:           claims.Role,
		EmailConfirmed: claims.EmailConfirmed,
	}, nil
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := generateRequestID()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r)
		})
	}
}

func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"type":"authentication","message":%q}}`, message)
}
