package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/rebar/internal/adapters/repository"
	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/model"
	"github.com/okian/rebar/internal/domain/types"
)

var (
	errMissingHost  = errors.New("missing host")
	errMissingOwner = errors.New("missing owner")
	errMissingRepo  = errors.New("missing repo")
	errWhitespace   = errors.New("owner and repo may not contain whitespace")
)

// ItemsHandler serves the JSON item endpoints.
type ItemsHandler struct {
	deps Dependencies
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(deps Dependencies) *ItemsHandler {
	return &ItemsHandler{deps: deps}
}

type submitResponse struct {
	ID int `json:"id"`
}

type ackResponse struct {
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}

// HandleSubmit handles POST /items requests.
func (h *ItemsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	var req types.Submission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	item, err := buildItem(req, callerOf(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.Submit(r.Context(), item)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, repository.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err)
	case errors.Is(err, repository.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	default:
		writeJSON(w, http.StatusCreated, submitResponse{ID: id})
	}
}

// HandleList handles GET /items requests: the ranked ids, best first.
func (h *ItemsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ids := h.deps.ListRanked(r.Context())
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// HandleGet handles GET /items/{id} requests.
func (h *ItemsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_item"
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	item, ok := h.deps.GetItem(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, nil))
		return
	}
	score, _ := h.deps.Score(r.Context(), id)
	writeJSON(w, http.StatusOK, viewOf(id, item, score))
}

// HandleVote handles POST /items/{id}/vote requests. Repeat and unknown
// votes are accepted and ignored.
func (h *ItemsHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.vote"
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	applied := h.deps.Vote(r.Context(), id, callerOf(r))
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Applied: applied})
}

// buildItem validates a submission and turns it into a store item.
func buildItem(req types.Submission, caller identity.CallerID) (model.Item, error) {
	host := strings.ToLower(strings.TrimSpace(req.Host))
	if host == "" {
		return model.Item{}, errMissingHost
	}
	owner := strings.TrimSpace(req.Owner)
	repo := strings.TrimSpace(req.Repo)

	src, err := model.DecodeSource(model.SourceRecord{Host: host, Owner: owner, Repo: repo})
	if err != nil {
		return model.Item{}, err
	}
	switch {
	case owner == "":
		return model.Item{}, errMissingOwner
	case repo == "":
		return model.Item{}, errMissingRepo
	case model.ContainsSpace(owner) || model.ContainsSpace(repo):
		return model.Item{}, errWhitespace
	}

	return model.Item{
		Description: req.Description,
		Source:      src,
		Submitter:   caller,
	}, nil
}

func viewOf(id int, it model.Item, score float64) types.ItemView {
	rec := model.EncodeSource(it.Source)
	view := types.ItemView{
		ID:          id,
		Host:        rec.Host,
		Owner:       rec.Owner,
		Repo:        rec.Repo,
		Description: it.Description,
		Votes:       it.Votes,
		SubmittedAt: it.SubmittedAt,
		Score:       score,
	}
	if gh, ok := it.Source.(model.GitHubSource); ok {
		view.URL = gh.URL()
	}
	return view
}
