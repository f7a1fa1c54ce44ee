package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	request "docverify/pkg/platform/middleware/request"
	"docverify/pkg/requestcontext"
)

// APIKeyClientID identifies callers that authenticated with the shared key.
const APIKeyClientID = "api-key"

// ErrInvalidCredentials is returned by an Authenticator that does not accept a token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator checks a bearer token and returns the calling client's ID.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (clientID string, err error)
}

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	ClientID string
	JTI      string
}

// StaticKey accepts exactly one shared secret.
type StaticKey struct {
	key []byte
}

func NewStaticKey(key string) *StaticKey {
	return &StaticKey{key: []byte(key)}
}

func (s *StaticKey) Authenticate(_ context.Context, token string) (string, error) {
	if len(s.key) == 0 || subtle.ConstantTimeCompare([]byte(token), s.key) != 1 {
		return "", ErrInvalidCredentials
	}
	return APIKeyClientID, nil
}

// HashedKey accepts the secret whose bcrypt hash is configured, so the
// plaintext key never has to sit in the environment.
type HashedKey struct {
	hash []byte
}

func NewHashedKey(hash string) (*HashedKey, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid bcrypt hash: %w", err)
	}
	return &HashedKey{hash: []byte(hash)}, nil
}

func (h *HashedKey) Authenticate(_ context.Context, token string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(h.hash, []byte(token)); err != nil {
		return "", ErrInvalidCredentials
	}
	return APIKeyClientID, nil
}

// JWT accepts signed client tokens; the client ID comes from the claims.
type JWT struct {
	validator JWTValidator
}

func NewJWT(validator JWTValidator) *JWT {
	return &JWT{validator: validator}
}

func (j *JWT) Authenticate(_ context.Context, token string) (string, error) {
	claims, err := j.validator.ValidateToken(token)
	if err != nil {
		return "", err
	}
	if claims.ClientID == "" {
		return "", ErrInvalidCredentials
	}
	return claims.ClientID, nil
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth accepts a request when any authenticator accepts its bearer
// token. With no authenticators configured every request passes.
func RequireAuth(authenticators []Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(authenticators) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			for _, a := range authenticators {
				clientID, err := a.Authenticate(ctx, token)
				if err != nil {
					continue
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithClientID(ctx, clientID)))
				return
			}

			logger.WarnContext(ctx, "unauthorized access - invalid token",
				"request_id", request.GetRequestID(ctx),
			)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
		})
	}
}
