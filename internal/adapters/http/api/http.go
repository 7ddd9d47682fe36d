// Package api serves the leaderboard views and operator routes over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/tutorboard/internal/app"
	"github.com/okian/tutorboard/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	LevelsDependencies
	CacheDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Result is the JSON body of GET /leaderboard.
type Result = service.Result

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	levelsHandler      *LevelsHandler
	leaderboardHandler *LeaderboardHandler
	cacheHandler       *CacheHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers. maxTopN caps the
// top_n query parameter.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxTopN int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider, maxTopN),
		levelsHandler:      NewLevelsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxTopN),
		cacheHandler:       NewCacheHandler(deps),
		dashboardHandler:   newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/levels", MetricsMiddleware(s.levelsHandler.HandleGetLevels, "levels"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/leaderboard.csv", MetricsMiddleware(s.leaderboardHandler.HandleExportCSV, "leaderboard_csv"))
	mux.HandleFunc("/cache/invalidate", MetricsMiddleware(s.cacheHandler.HandleInvalidate, "cache_invalidate"))
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
