package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/rebar/internal/adapters/repository"
	"github.com/okian/rebar/internal/domain/model"
	"github.com/okian/rebar/internal/domain/types"
)

// Legacy plain-text replies.
const (
	querySuccess = "SUCC"
	queryErrFmt  = "ERROR: %s"
)

// QueryHandler serves the legacy GET /query text protocol:
// action=add|list|info|vote|update.
type QueryHandler struct {
	deps  Dependencies
	admin *AdminHandler
}

// NewQueryHandler creates the legacy handler. admin authorizes action=update.
func NewQueryHandler(deps Dependencies, admin *AdminHandler) *QueryHandler {
	return &QueryHandler{deps: deps, admin: admin}
}

// HandleQuery handles GET /query requests.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	q := r.URL.Query()
	var body string
	switch action := q.Get("action"); action {
	case "":
		body = queryError("No action.")
	case "add":
		body = h.add(r)
	case "list":
		ids := h.deps.ListRanked(r.Context())
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(id)
		}
		body = strings.Join(parts, ",")
	case "info":
		body = h.info(r)
	case "vote":
		body = h.vote(r)
	case "update":
		if !h.admin.Authorized(q.Get("pass")) {
			body = queryError("Wrong or no password.")
			break
		}
		h.deps.Recompute(r.Context())
		body = querySuccess
	default:
		body = queryError("Action not supported.")
	}

	_, _ = w.Write([]byte(body))
}

func (h *QueryHandler) add(r *http.Request) string {
	q := r.URL.Query()
	req := types.Submission{
		Host:        q.Get("host"),
		Owner:       q.Get("username"),
		Repo:        q.Get("reponame"),
		Description: q.Get("desc"),
	}
	item, err := buildItem(req, callerOf(r))
	switch {
	case errors.Is(err, errMissingHost):
		return queryError("No crate hoster provided.")
	case errors.Is(err, model.ErrUnknownHost):
		return queryError("Host not supported.")
	case errors.Is(err, errMissingOwner):
		return queryError("No Github username given.")
	case errors.Is(err, errMissingRepo):
		return queryError("No repo name given.")
	case errors.Is(err, errWhitespace):
		return queryError("Data may not contain whitespaces")
	case err != nil:
		return queryError(err.Error())
	}

	_, err = h.deps.Submit(r.Context(), item)
	switch {
	case errors.Is(err, repository.ErrRateLimited):
		return queryError("Upload limit reached. Wait an hour.")
	case errors.Is(err, repository.ErrDuplicate):
		return queryError("Already submitted.")
	case err != nil:
		return queryError(err.Error())
	}
	return querySuccess
}

func (h *QueryHandler) info(r *http.Request) string {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		return queryError("No id given.")
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return queryError("Invalid id.")
	}
	item, ok := h.deps.GetItem(r.Context(), id)
	if !ok {
		return queryError("Non-existing crate requested.")
	}
	return item.String()
}

func (h *QueryHandler) vote(r *http.Request) string {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		return queryError("No id given.")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return queryError("Invalid id.")
	}
	h.deps.Vote(r.Context(), id, callerOf(r))
	return querySuccess
}

func queryError(msg string) string {
	return fmt.Sprintf(queryErrFmt, msg)
}
