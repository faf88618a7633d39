// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Submit(ctx context.Context, item model.Item) (int, error)
	Vote(ctx context.Context, index int, caller identity.CallerID) bool
	Recompute(ctx context.Context)
	ListRanked(ctx context.Context) []int
	GetItem(ctx context.Context, index int) (model.Item, bool)
	Score(ctx context.Context, index int) (float64, bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	itemsHandler  *ItemsHandler
	adminHandler  *AdminHandler
	queryHandler  *QueryHandler
	throttle      *Throttle
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	admin := NewAdminHandler(deps, o.adminToken)
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		itemsHandler:  NewItemsHandler(deps),
		adminHandler:  admin,
		queryHandler:  NewQueryHandler(deps, admin),
		throttle:      NewThrottle(o.throttleRPS, o.throttleBurst),
	}
}

// Register attaches all HTTP routes to mux. Mutating routes sit behind the
// per-address throttle.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /items", MetricsMiddleware(s.itemsHandler.HandleList, "items_list"))
	mux.HandleFunc("GET /items/{id}", MetricsMiddleware(s.itemsHandler.HandleGet, "items_get"))
	mux.HandleFunc("POST /items", MetricsMiddleware(s.throttle.Wrap(s.itemsHandler.HandleSubmit, "items_submit"), "items_submit"))
	mux.HandleFunc("POST /items/{id}/vote", MetricsMiddleware(s.throttle.Wrap(s.itemsHandler.HandleVote, "items_vote"), "items_vote"))
	mux.HandleFunc("POST /admin/recompute", MetricsMiddleware(s.throttle.Wrap(s.adminHandler.HandleRecompute, "admin_recompute"), "admin_recompute"))

	mux.HandleFunc("GET /query", MetricsMiddleware(s.throttle.Wrap(s.queryHandler.HandleQuery, "query"), "query"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// remoteHost returns the client address without its port.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// callerOf returns the pseudonymous identity of the requesting address.
func callerOf(r *http.Request) identity.CallerID {
	return identity.Hash(remoteHost(r))
}
