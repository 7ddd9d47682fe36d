package api

import (
	"net/http"
	"time"
)

// StatsProvider reports the leaderboard service's last-run counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats: the service counters plus the API's own
// limits, so operators can see what a request will be clamped to.
type StatsHandler struct {
	statsProvider StatsProvider
	maxTopN       int
	now           func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, maxTopN int) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, maxTopN: maxTopN, now: time.Now}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := map[string]interface{}{}
	for k, v := range h.statsProvider.GetStats() {
		stats[k] = v
	}
	stats["max_top_n"] = h.maxTopN
	stats["served_at"] = h.now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, stats)
}
