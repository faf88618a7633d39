package api

import (
	"crypto/subtle"
	"net/http"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// AdminHandler serves administrative endpoints.
type AdminHandler struct {
	deps  Dependencies
	token string
}

// NewAdminHandler creates an admin handler. An empty token rejects every
// request.
func NewAdminHandler(deps Dependencies, token string) *AdminHandler {
	return &AdminHandler{deps: deps, token: token}
}

// Authorized reports whether secret matches the configured token.
func (h *AdminHandler) Authorized(secret string) bool {
	if h.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(h.token)) == 1
}

// HandleRecompute handles POST /admin/recompute: an immediate rebuild of the
// ranked view.
func (h *AdminHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	if !h.Authorized(r.Header.Get(AdminTokenHeader)) {
		writeError(w, http.StatusUnauthorized, "unauthorized", wrapKind("api.recompute", ErrUnauthorized, nil))
		return
	}
	h.deps.Recompute(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
