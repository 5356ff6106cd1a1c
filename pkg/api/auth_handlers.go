package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/easternmills/millops/pkg/audit"
	"github.com/easternmills/millops/pkg/middleware"
)

// stateCookieName carries the anti-forgery state between login and callback.
const stateCookieName = "millops_auth_state"

type providerInfo struct {
	Name     string `json:"name"`
	LoginURL string `json:"login_url"`
}

// listProviders returns the configured identity providers so the sign-in
// page can render its buttons.
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	names := s.providers.Names()
	sort.Strings(names)

	infos := make([]providerInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, providerInfo{
			Name:     name,
			LoginURL: "/auth/" + name + "/login",
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": infos})
}

// login starts the provider's sign-in flow.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]
	provider, ok := s.providers.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown identity provider")
		return
	}

	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if err := provider.InitiateLogin(w, r, state); err != nil {
		s.logger.WithError(err).WithField("provider", name).Error("login initiation failed")
		writeError(w, http.StatusBadGateway, "failed to start sign-in")
	}
}

// callback completes the sign-in flow: the provider yields a principal, a
// session is issued, and the first-ever sign-in provisions a deny-by-default
// record via the resolver.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]
	provider, ok := s.providers.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown identity provider")
		return
	}

	principal, err := provider.HandleCallback(w, r)
	if err != nil {
		s.logger.WithError(err).WithField("provider", name).Warn("sign-in callback failed")
		s.recordAudit(r, &audit.Event{
			Action: audit.ActionSignInFailed,
			Detail: name,
		})
		writeError(w, http.StatusUnauthorized, "sign-in failed")
		return
	}

	token, session, err := s.sessions.Issue(r.Context(), *principal, name)
	if err != nil {
		s.logger.WithError(err).Error("session issue failed")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsIssuedTotal.Inc()
	}

	// Resolving here warms the record path and provisions first sign-ins
	// before the client's first API call.
	s.resolver.Resolve(r.Context(), *principal)

	s.recordAudit(r, &audit.Event{
		SubjectID: principal.SubjectID,
		Email:     principal.Email,
		Action:    audit.ActionSignIn,
		Detail:    name,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/auth",
		MaxAge: -1,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})
}

// logout revokes the current session.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerOrCookieToken(r)
	if token != "" {
		if err := s.sessions.Revoke(r.Context(), token); err != nil {
			s.logger.WithError(err).Warn("session revoke failed")
		} else if s.metrics != nil {
			s.metrics.SessionsRevokedTotal.Inc()
		}
	}

	if principal := middleware.GetPrincipal(r); principal != nil {
		s.recordAudit(r, &audit.Event{
			SubjectID: principal.SubjectID,
			Email:     principal.Email,
			Action:    audit.ActionSignOut,
		})
	}

	http.SetCookie(w, &http.Cookie{
		Name:   middleware.SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func bearerOrCookieToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
		return ""
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// recordAudit writes an audit event, logging rather than failing the request
// when the trail is unavailable.
func (s *Server) recordAudit(r *http.Request, event *audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to record audit event")
	}
}
