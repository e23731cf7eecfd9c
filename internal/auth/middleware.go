package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/redmonkez12/diary-api/internal/httputil"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const IdentityContextKey ContextKey = "identity"

type outcome int

const (
	outcomeNone outcome = iota
	outcomeFail
	outcomeSuccess
)

// Result is the outcome of a single authentication scheme
type Result struct {
	outcome  outcome
	Identity *Identity
	Failure  string
	Code     string
}

// NoResult means the request is not meant for this scheme
func NoResult() Result {
	return Result{outcome: outcomeNone}
}

// Fail rejects the request as an invalid credential
func Fail(message string) Result {
	return FailWithCode(message, httputil.CodeInvalidToken)
}

// FailWithCode rejects the request with a specific machine-readable code
func FailWithCode(message, code string) Result {
	return Result{outcome: outcomeFail, Failure: message, Code: code}
}

// Success authenticates the request as identity
func Success(identity *Identity) Result {
	return Result{outcome: outcomeSuccess, Identity: identity}
}

func (r Result) None() bool      { return r.outcome == outcomeNone }
func (r Result) Failed() bool    { return r.outcome == outcomeFail }
func (r Result) Succeeded() bool { return r.outcome == outcomeSuccess }

// Scheme authenticates requests carrying one kind of credential
type Scheme interface {
	Name() string
	Authenticate(r *http.Request) Result
}

// Middleware handles authentication for protected routes
type Middleware struct {
	schemes []Scheme
}

// NewMiddleware creates a middleware that tries schemes in order
func NewMiddleware(schemes ...Scheme) *Middleware {
	return &Middleware{schemes: schemes}
}

// RequireAuth runs the schemes until one succeeds or fails; a scheme returning
// NoResult hands the request to the next one
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, scheme := range m.schemes {
			result := scheme.Authenticate(r)
			switch {
			case result.Failed():
				httputil.RespondErrorWithCode(w, result.Failure, result.Code, http.StatusUnauthorized)
				return
			case result.Succeeded():
				ctx := WithIdentity(r.Context(), result.Identity)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
	})
}

// ParseBearer extracts the credential from an Authorization header value.
// The scheme match is case-insensitive and surrounding whitespace is ignored.
func ParseBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(strings.TrimSpace(scheme), "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity stores the identity in the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext extracts the identity from the request context
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*Identity)
	return identity, ok && identity != nil
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.Subject == "" {
		return "", false
	}
	return identity.Subject, true
}
