package api

import (
	"context"
	"net/http"
)

// CacheDependencies drops cached score sheets.
type CacheDependencies interface {
	InvalidateCache(ctx context.Context) error
}

// CacheHandler handles refresh requests.
type CacheHandler struct {
	deps CacheDependencies
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(deps CacheDependencies) *CacheHandler {
	return &CacheHandler{deps: deps}
}

// HandleInvalidate handles POST /cache/invalidate requests.
func (h *CacheHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.invalidate_cache"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.InvalidateCache(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "cache_unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
