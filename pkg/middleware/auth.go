package middleware

import (
	"net/http"
	"strings"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/contextkeys"
	"github.com/easternmills/millops/pkg/identity"
)

// SessionCookieName is the cookie carrying the session token for browser
// clients. API clients use the Authorization header instead.
const SessionCookieName = "millops_session"

// SessionAuth authenticates requests and resolves their access.
type SessionAuth struct {
	sessions *identity.Manager
	resolver *access.Resolver
	optional bool
}

// NewSessionAuth creates the authentication middleware. When optional is
// true, unauthenticated requests proceed with a deny-everything Access
// instead of a 401.
func NewSessionAuth(sessions *identity.Manager, resolver *access.Resolver, optional bool) *SessionAuth {
	return &SessionAuth{sessions: sessions, resolver: resolver, optional: optional}
}

// Handler wraps an HTTP handler with session validation and access
// resolution. Access is resolved fresh on every request; sessions carry only
// the principal.
func (m *SessionAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			m.deny(w, r, next, "missing session token")
			return
		}

		session, err := m.sessions.Validate(r.Context(), token)
		if err != nil {
			m.deny(w, r, next, "invalid or expired session")
			return
		}

		principal := session.Principal()
		acc := m.resolver.Resolve(r.Context(), principal)

		ctx := contextkeys.WithPrincipal(r.Context(), &principal)
		ctx = contextkeys.WithAccess(ctx, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionAuth) deny(w http.ResponseWriter, r *http.Request, next http.Handler, message string) {
	if m.optional {
		ctx := contextkeys.WithAccess(r.Context(), access.NoAccess())
		next.ServeHTTP(w, r.WithContext(ctx))
		return
	}
	unauthorizedResponse(w, message)
}

// extractToken pulls the session token from the Authorization header or the
// session cookie, in that order.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// GetAccess extracts the resolved access from the request. It never returns
// nil: requests that skipped authentication get the deny-everything value.
func GetAccess(r *http.Request) *access.Access {
	if acc, ok := r.Context().Value(contextkeys.AccessKey).(*access.Access); ok && acc != nil {
		return acc
	}
	return access.NoAccess()
}

// GetPrincipal extracts the authenticated principal, or nil when the request
// is unauthenticated.
func GetPrincipal(r *http.Request) *access.Principal {
	if p, ok := r.Context().Value(contextkeys.PrincipalKey).(*access.Principal); ok {
		return p
	}
	return nil
}

// RequireTab denies with 403 unless the caller may view the given tab.
func RequireTab(tabID string) func(http.Handler) http.Handler {
	return requireCheck(func(acc *access.Access) bool {
		return acc.CanViewTab(tabID)
	})
}

// RequireView denies with 403 unless the caller may view the resource.
func RequireView(resource string) func(http.Handler) http.Handler {
	return requireCheck(func(acc *access.Access) bool {
		return acc.CanView(resource)
	})
}

// RequireEdit denies with 403 unless the caller may edit the resource.
func RequireEdit(resource string) func(http.Handler) http.Handler {
	return requireCheck(func(acc *access.Access) bool {
		return acc.CanEdit(resource)
	})
}

// RequireManage denies with 403 unless the caller may manage the resource.
func RequireManage(resource string) func(http.Handler) http.Handler {
	return requireCheck(func(acc *access.Access) bool {
		return acc.CanManage(resource)
	})
}

// RequireDepartment denies with 403 unless the caller may access the
// department.
func RequireDepartment(department string) func(http.Handler) http.Handler {
	return requireCheck(func(acc *access.Access) bool {
		return acc.CanAccessDepartment(department)
	})
}

// RequireRole denies with 403 unless the caller holds the named role.
func RequireRole(roleID string) func(http.Handler) http.Handler {
	return requireCheck(func(acc *access.Access) bool {
		return acc.HasRole(roleID)
	})
}

func requireCheck(check func(*access.Access) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !check(GetAccess(r)) {
				forbiddenResponse(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
