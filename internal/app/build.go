package service

import (
	"fmt"

	"github.com/okian/tutorboard/internal/adapters/repository"
	"github.com/okian/tutorboard/internal/adapters/source"
	"github.com/okian/tutorboard/internal/config"
)

// FromConfig builds a Service with the source and cache backend selected by
// cfg. Extra options are applied last. The caller must Start it.
func FromConfig(cfg *config.Config, extra ...Option) (*Service, error) {
	var src source.Source
	switch cfg.Source {
	case config.SourcePostgres:
		pg, err := source.OpenPostgres(cfg.PostgresURL, cfg.PostgresSchema, cfg.FetchTimeout())
		if err != nil {
			return nil, fmt.Errorf("postgres source: %w", err)
		}
		src = pg
	default:
		src = source.NewSheetsClient(
			source.WithTimeout(cfg.FetchTimeout()),
			source.WithRetries(cfg.FetchRetries),
			source.WithRateLimit(cfg.FetchRatePerSec, cfg.FetchBurst),
		)
	}

	var store repository.Store
	switch cfg.CacheBackend {
	case config.CacheRedis:
		store = repository.NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
	default:
		store = repository.NewMemoryStore()
	}

	opts := []Option{
		WithSource(src),
		WithStore(store),
		WithSheetID(cfg.SheetID),
		WithTabCandidates(cfg.TabCandidates),
		WithCacheTTL(cfg.CacheTTL()),
		WithFetchBudget(cfg.FetchTimeout()),
		WithMinAssignments(cfg.MinAssignments),
		WithTopN(cfg.TopN),
	}
	return New(append(opts, extra...)...), nil
}
