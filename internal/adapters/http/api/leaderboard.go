package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	service "github.com/okian/tutorboard/internal/app"
	"github.com/okian/tutorboard/internal/domain/ranking"
	"github.com/okian/tutorboard/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, q service.Query) service.Result
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps    LeaderboardDependencies
	maxTopN int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxTopN int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:    deps,
		maxTopN: maxTopN,
	}
}

// HandleGetLeaderboard handles GET /leaderboard requests. Source failures
// are reported in the body with status 200.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := h.parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Leaderboard(r.Context(), q))
}

// HandleExportCSV handles GET /leaderboard.csv requests.
func (h *LeaderboardHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := h.parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res := h.deps.Leaderboard(r.Context(), q)
	if res.Status == service.StatusError {
		writeError(w, http.StatusServiceUnavailable, "source_unavailable",
			WrapKind(op, ErrUnavailable, errors.New(res.Error)))
		return
	}

	var buf bytes.Buffer
	if err := types.WriteCSV(&buf, res.Entries); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", types.ExportFilename(q.Level)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *LeaderboardHandler) parseQuery(v url.Values) (service.Query, error) {
	q := service.Query{
		Level: strings.TrimSpace(v.Get("level")),
	}

	var err error
	if q.MinAssignments, err = positiveInt(v, "min_assignments"); err != nil {
		return service.Query{}, err
	}
	if q.TopN, err = positiveInt(v, "top_n"); err != nil {
		return service.Query{}, err
	}
	if h.maxTopN > 0 && q.TopN > h.maxTopN {
		q.TopN = h.maxTopN
	}

	if q.Filter, err = ranking.ParseFilter(v.Get("from"), v.Get("to"), v.Get("search")); err != nil {
		return service.Query{}, err
	}
	return q, nil
}

// positiveInt reads an optional integer parameter. Absent means 0.
func positiveInt(v url.Values, name string) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q; must be a positive integer", name, raw)
	}
	return n, nil
}
