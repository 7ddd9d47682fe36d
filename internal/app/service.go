// Package service runs the leaderboard pipeline for the HTTP API and the
// CLI: fetch, normalize, deduplicate, aggregate, rank.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tutorboard/internal/adapters/repository"
	"github.com/okian/tutorboard/internal/adapters/source"
	"github.com/okian/tutorboard/internal/config"
	"github.com/okian/tutorboard/internal/domain/dedupe"
	"github.com/okian/tutorboard/internal/domain/model"
	"github.com/okian/tutorboard/internal/domain/normalize"
	"github.com/okian/tutorboard/internal/domain/ranking"
	"github.com/okian/tutorboard/internal/domain/scoring"
	"github.com/okian/tutorboard/internal/domain/types"
	"github.com/okian/tutorboard/pkg/logger"
	"github.com/okian/tutorboard/pkg/metrics"
)

// Status summarizes a leaderboard computation.
type Status string

// Result statuses.
const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
	StatusError Status = "error"
)

// EmptyMessage is shown when nobody qualifies.
const EmptyMessage = "no qualifying students yet"

// Query selects a leaderboard view. Zero MinAssignments and TopN fall back
// to the service defaults.
type Query struct {
	Level          string
	MinAssignments int
	TopN           int
	Filter         ranking.Filter
}

// Result is a ranked table. Data problems never surface as Go errors; they
// yield StatusError with an operator-facing message and no rows.
type Result struct {
	RunID   string        `json:"run_id"`
	Status  Status        `json:"status"`
	Entries []types.Entry `json:"entries"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	Tab     string        `json:"tab,omitempty"`
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	source  source.Source
	store   repository.Store
	fetcher *repository.Cached

	// Configuration
	sheetID        string
	tabs           []string
	cacheTTL       time.Duration
	fetchBudget    time.Duration
	minAssignments int
	topN           int

	// State
	started bool
	stats   runStats
	now     func() time.Time

	logger logger.Logger
}

type runStats struct {
	runs          int
	lastRunAt     time.Time
	lastSuccessAt time.Time
	lastStatus    Status
	lastError     string
	lastTab       string
	rowsRead      int
	rowsKept      int
	students      int
	levels        int
}

// New constructs a new Service with default configuration. It reads the
// school sheet through the Google Sheets export unless WithSource is given.
func New(opts ...Option) *Service {
	s := &Service{
		sheetID:        config.DefaultSheetID,
		tabs:           config.DefaultTabCandidates(),
		cacheTTL:       300 * time.Second,
		fetchBudget:    12 * time.Second,
		minAssignments: 3,
		topN:           50,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start wires the cache in front of the source.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.source == nil {
		s.source = source.NewSheetsClient()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.fetcher = repository.NewCached(s.source,
		repository.WithStore(s.store),
		repository.WithTTL(s.cacheTTL),
	)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("sheet_id", s.sheetID),
		logger.Any("tabs", s.tabs),
		logger.Duration("cache_ttl", s.cacheTTL),
		logger.Int("min_assignments", s.minAssignments),
	)
	return nil
}

// Stop closes the source and the cache store when they hold connections.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	for _, c := range []any{s.source, s.store} {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				s.logger.Warn(context.Background(), "close failed", logger.Error(err))
			}
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get().Named("service")
	}
	return l
}

func (s *Service) cached() (*repository.Cached, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.fetcher, nil
}

// load reads the first candidate tab that has data rows. All candidates
// share one fetch budget, and a timeout ends the search.
func (s *Service) load(ctx context.Context) ([]model.Record, normalize.Stats, string, error) {
	fetcher, err := s.cached()
	if err != nil {
		return nil, normalize.Stats{}, "", err
	}

	if s.fetchBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchBudget)
		defer cancel()
	}

	var lastErr error
	for _, tab := range s.tabs {
		body, err := fetcher.Fetch(ctx, source.Request{SheetID: s.sheetID, Tab: tab})
		if err != nil {
			lastErr = err
			if timedOut(ctx, err) {
				if !errors.Is(err, ErrSourceUnavailable) {
					lastErr = fmt.Errorf("%w: tab %q: timed out after %s: %w", ErrSourceUnavailable, tab, s.fetchBudget, err)
				}
				s.log().Warn(ctx, "fetch budget exhausted",
					logger.String("tab", tab), logger.Duration("budget", s.fetchBudget))
				break
			}
			continue
		}
		res, err := normalize.Normalize(body)
		if err != nil {
			metrics.RecordFetchError("malformed")
			s.log().Warn(ctx, "score sheet is not valid csv",
				logger.String("tab", tab), logger.Error(err))
			lastErr = fmt.Errorf("%w: tab %q: %w", ErrSourceMalformed, tab, err)
			continue
		}
		if res.Stats.RowsRead == 0 {
			s.log().Debug(ctx, "tab has no data rows", logger.String("tab", tab))
			continue
		}
		metrics.RecordRows(res.Stats.RowsRead, res.Stats.RowsDropped)
		s.log().Debug(ctx, "score sheet loaded",
			logger.String("tab", tab),
			logger.Int("rows_read", res.Stats.RowsRead),
			logger.Int("rows_kept", res.Stats.RowsKept),
			logger.Int("rows_dropped", res.Stats.RowsDropped),
		)
		return res.Records, res.Stats, tab, nil
	}
	return nil, normalize.Stats{}, "", lastErr
}

func timedOut(ctx context.Context, err error) bool {
	var fe *source.FetchError
	if errors.As(err, &fe) && fe.Kind == source.KindTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}

// Leaderboard runs the pipeline for one view.
func (s *Service) Leaderboard(ctx context.Context, q Query) Result {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithFields(ctx, logger.String("run_id", runID))

	res := Result{RunID: runID, Entries: []types.Entry{}}
	records, stats, tab, err := s.load(ctx)
	res.Tab = tab

	var students, levels int
	if err != nil {
		res.Status = StatusError
		res.Error = Describe(err)
		s.log().Error(ctx, "leaderboard computation failed", logger.Error(err))
	} else {
		filtered := q.Filter.Apply(records)
		kept := dedupe.Latest(filtered)
		aggs := scoring.Aggregate(kept)
		res.Entries = ranking.Rank(aggs, s.rankQuery(q))
		res.Status = StatusOK
		if len(res.Entries) == 0 {
			res.Status = StatusEmpty
			res.Message = EmptyMessage
		}
		students, levels = len(aggs), len(ranking.Levels(records))

		metrics.RecordDeduplicated(len(filtered) - len(kept))
		metrics.UpdateStudentsTracked(students)
		metrics.UpdateStudentsRanked(len(res.Entries))
		metrics.UpdateLastSuccess(s.now().Unix())
		s.log().Info(ctx, "leaderboard computed",
			logger.String("tab", tab),
			logger.String("level", q.Level),
			logger.Int("attempts", len(filtered)),
			logger.Int("kept", len(kept)),
			logger.Int("students", students),
			logger.Int("ranked", len(res.Entries)),
			logger.Duration("took", time.Since(start)),
		)
	}
	s.record(res, stats, students, levels)

	metrics.RecordPipelineRun(string(res.Status), float64(time.Since(start).Milliseconds()))
	return res
}

func (s *Service) rankQuery(q Query) ranking.Query {
	rq := ranking.Query{Level: q.Level, MinAssignments: q.MinAssignments, TopN: q.TopN}
	if rq.MinAssignments == 0 {
		rq.MinAssignments = s.minAssignments
	}
	if rq.TopN == 0 {
		rq.TopN = s.topN
	}
	return rq
}

// Levels lists the distinct levels present in the sheet.
func (s *Service) Levels(ctx context.Context) ([]string, error) {
	ctx = logger.WithFields(ctx, logger.String("run_id", uuid.NewString()))
	records, _, _, err := s.load(ctx)
	if err != nil {
		s.log().Error(ctx, "levels lookup failed", logger.Error(err))
		return nil, err
	}
	levels := ranking.Levels(records)
	metrics.UpdateLevelsTracked(len(levels))
	return levels, nil
}

// InvalidateCache drops cached sheets so the next request refetches,
// bypassing intermediate HTTP caches too.
func (s *Service) InvalidateCache(ctx context.Context) error {
	fetcher, err := s.cached()
	if err != nil {
		return err
	}
	gen, err := fetcher.InvalidateAll(ctx)
	if err != nil {
		s.log().Warn(ctx, "cache invalidation incomplete", logger.Error(err))
		return err
	}
	s.log().Info(ctx, "cache invalidated", logger.Int("generation", int(gen)))
	return nil
}

func (s *Service) record(res Result, stats normalize.Stats, students, levels int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.stats.runs++
	s.stats.lastRunAt = now
	s.stats.lastStatus = res.Status
	s.stats.lastError = res.Error
	s.stats.lastTab = res.Tab
	s.stats.rowsRead = stats.RowsRead
	s.stats.rowsKept = stats.RowsKept
	if res.Status != StatusError {
		s.stats.lastSuccessAt = now
		s.stats.students = students
		s.stats.levels = levels
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"sheet_id":        s.sheetID,
		"tab_candidates":  s.tabs,
		"cache_ttl":       s.cacheTTL.String(),
		"min_assignments": s.minAssignments,
		"top_n":           s.topN,
		"runs":            s.stats.runs,
	}
	if s.fetcher != nil {
		stats["cache_generation"] = s.fetcher.Generation()
	}
	if s.stats.runs > 0 {
		stats["last_run_at"] = s.stats.lastRunAt.UTC().Format(time.RFC3339)
		stats["last_status"] = string(s.stats.lastStatus)
		stats["last_error"] = s.stats.lastError
		stats["last_tab"] = s.stats.lastTab
		stats["rows_read"] = s.stats.rowsRead
		stats["rows_kept"] = s.stats.rowsKept
		stats["students"] = s.stats.students
		stats["levels"] = s.stats.levels
	}
	if !s.stats.lastSuccessAt.IsZero() {
		stats["last_success_at"] = s.stats.lastSuccessAt.UTC().Format(time.RFC3339)
	}
	return stats
}

// Describe turns a pipeline error into an operator-facing sentence.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotStarted):
		return "the leaderboard service is not running"
	case errors.Is(err, ErrSourceMalformed):
		return "the score sheet could not be read as CSV: " + err.Error()
	case errors.Is(err, ErrSourceUnavailable):
		return "could not load scores from the sheet: " + err.Error()
	default:
		return err.Error()
	}
}
