package api

import (
	"context"
	"net/http"

	service "github.com/okian/tutorboard/internal/app"
)

// LevelsDependencies lists the levels present in the score sheet.
type LevelsDependencies interface {
	Levels(ctx context.Context) ([]string, error)
}

type levelsResponse struct {
	Levels []string `json:"levels"`
	Error  string   `json:"error,omitempty"`
}

// LevelsHandler handles level listing requests.
type LevelsHandler struct {
	deps LevelsDependencies
}

// NewLevelsHandler creates a new levels handler.
func NewLevelsHandler(deps LevelsDependencies) *LevelsHandler {
	return &LevelsHandler{deps: deps}
}

// HandleGetLevels handles GET /levels requests. A source failure yields an
// empty list and an error string, not an error status.
func (h *LevelsHandler) HandleGetLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	levels, err := h.deps.Levels(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, levelsResponse{Levels: []string{}, Error: service.Describe(err)})
		return
	}
	if levels == nil {
		levels = []string{}
	}
	writeJSON(w, http.StatusOK, levelsResponse{Levels: levels})
}
