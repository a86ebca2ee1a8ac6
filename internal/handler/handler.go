package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/eviction"
	"github.com/lucasew/cachequota/internal/eviction/policy/maxsize"
	"github.com/lucasew/cachequota/internal/repository"
)

// Maintainer runs quota maintenance on a tenant directory.
type Maintainer interface {
	Maintain(ctx context.Context, tenant, dir string, maxBytes int64) (eviction.Result, error)
}

// RemovalHandler enforces a tenant quota and reports what is left.
//
// Flow:
// 1. Decodes teamId, slug and mb from the query string.
// 2. Resolves the tenant key (teamId first, then slug) to its directory.
// 3. Runs maintenance against the quota (mb, default DefaultMB).
// 4. Responds with the absolute paths remaining in the directory.
//
// The {id} path segment is accepted but never used to pick a file: only
// quota-driven, oldest-first eviction happens.
type RemovalHandler struct {
	Store      *repository.TenantStore
	Maintainer Maintainer
	DefaultMB  float64
}

func NewRemovalHandler(store *repository.TenantStore, m Maintainer, defaultMB float64) *RemovalHandler {
	return &RemovalHandler{
		Store:      store,
		Maintainer: m,
		DefaultMB:  defaultMB,
	}
}

// Register mounts the removal routes on mux. HEAD behaves like DELETE
// without a body.
func (h *RemovalHandler) Register(mux *http.ServeMux) {
	for _, pattern := range []string{
		"DELETE /artifacts",
		"HEAD /artifacts",
		"DELETE /artifacts/{id}",
		"HEAD /artifacts/{id}",
	} {
		mux.Handle(pattern, h)
	}
}

func (h *RemovalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r.URL.Query())
	if err != nil {
		writeError(w, invalidRequest(err))
		return
	}
	if id := r.PathValue("id"); id != "" {
		slog.Debug("Ignoring artifact id, eviction is quota driven", "id", id)
	}

	tenant, err := repository.ResolveKey(q.TeamID, q.Slug)
	if err != nil {
		writeError(w, invalidRequest(err))
		return
	}
	dir, err := h.Store.Dir(tenant)
	if err != nil {
		writeError(w, invalidRequest(err))
		return
	}

	mb := h.DefaultMB
	if q.MB != nil {
		mb = *q.MB
	}

	res, err := h.Maintainer.Maintain(r.Context(), tenant, dir, maxsize.FromMB(mb).MaxBytes)
	if err != nil {
		errutil.LogMsg(err, "Maintenance failed", "tenant", tenant, "run_id", res.RunID, "deleted", len(res.Deletions))
		writeError(w, classify(err))
		return
	}

	paths, err := eviction.List(dir)
	if err != nil {
		errutil.LogMsg(err, "Listing failed", "tenant", tenant)
		writeError(w, classify(err))
		return
	}

	w.Header().Set("X-Run-Id", res.RunID)
	w.Header().Set("X-Evicted-Count", strconv.Itoa(len(res.Deletions)))
	writeJSON(w, http.StatusOK, paths)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	errutil.LogMsg(json.NewEncoder(w).Encode(data), "Failed to write response")
}

func writeError(w http.ResponseWriter, detail ErrorDetail) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Err: detail})
}
