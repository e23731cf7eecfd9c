package auth

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	stringadapter "github.com/casbin/casbin/v3/persist/string-adapter"

	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
)

//go:embed authz_model.conf
var authzModel string

//go:embed authz_policy.csv
var authzPolicy string

// Authorizer decides which routes an auth method may reach
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer builds an enforcer from the embedded model and policy
func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(authzModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load authz model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(authzPolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	return &Authorizer{enforcer: enforcer}, nil
}

// Allowed reports whether method may perform action on path. A trailing
// slash is ignored, matching how chi routes the request.
func (a *Authorizer) Allowed(method Method, path, action string) (bool, error) {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return a.enforcer.Enforce(string(method), path, action)
}

// Require rejects requests whose identity is not allowed to reach the route.
// It must run after RequireAuth.
func (a *Authorizer) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		allowed, err := a.Allowed(identity.Method(), r.URL.Path, r.Method)
		if err != nil {
			logging.GetLoggerFromContext(r.Context()).Error("authorization check failed", "error", err)
			httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}
		if !allowed {
			httputil.RespondErrorWithCode(w, "access denied", httputil.CodeForbidden, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
