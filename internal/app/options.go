package service

import (
	"time"

	"github.com/okian/tutorboard/internal/adapters/repository"
	"github.com/okian/tutorboard/internal/adapters/source"
	"github.com/okian/tutorboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets where score sheets are read from.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithStore sets the cache store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCacheTTL sets how long fetched sheets are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithFetchBudget bounds the time spent fetching across all candidate
// tabs. Zero leaves only the source's own timeout.
func WithFetchBudget(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.fetchBudget = d
		}
	}
}

// WithSheetID sets the spreadsheet to read.
func WithSheetID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.sheetID = id
		}
	}
}

// WithTabCandidates sets the tabs tried in order.
func WithTabCandidates(tabs []string) Option {
	return func(s *Service) {
		if len(tabs) > 0 {
			s.tabs = append([]string(nil), tabs...)
		}
	}
}

// WithMinAssignments sets the default qualification threshold.
func WithMinAssignments(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minAssignments = n
		}
	}
}

// WithTopN sets the default view size.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNow replaces the clock used for statistics.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
