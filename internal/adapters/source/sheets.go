package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/tutorboard/pkg/logger"
	"github.com/okian/tutorboard/pkg/metrics"
)

// htmlSniffBytes is how much of a body is inspected for an HTML page.
const htmlSniffBytes = 512

// SheetsClient reads tabs of a shared Google spreadsheet through the gviz
// CSV export.
type SheetsClient struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	retries    int
	retryPause time.Duration
	userAgent  string
}

// NewSheetsClient creates a client with defaults: 12s timeout, one retry,
// 2 requests per second with a burst of 4.
func NewSheetsClient(opts ...Option) *SheetsClient {
	c := &SheetsClient{
		baseURL:    defaultBaseURL,
		http:       &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(defaultRate), defaultBurst),
		timeout:    defaultTimeout,
		retries:    defaultRetries,
		retryPause: defaultRetryPause,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// URL builds the CSV export address of a tab.
func (c *SheetsClient) URL(req Request) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s&cb=%d",
		c.baseURL, url.PathEscape(req.SheetID), EscapeTab(req.Tab), req.Generation)
}

// EscapeTab percent-encodes a tab name for a query string, with spaces as %20.
func EscapeTab(tab string) string {
	return strings.ReplaceAll(url.QueryEscape(tab), "+", "%20")
}

// Fetch downloads the tab as CSV. Transient failures are retried; every
// failure matches ErrSourceUnavailable.
func (c *SheetsClient) Fetch(ctx context.Context, req Request) ([]byte, error) {
	log := logger.Get().Named("source")

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			metrics.RecordFetchRetry()
			if err := sleep(ctx, c.retryPause); err != nil {
				break
			}
		}

		body, err := c.fetchOnce(ctx, req)
		if err == nil {
			metrics.RecordFetch(req.Tab, "ok")
			return body, nil
		}
		lastErr = err

		var fe *FetchError
		if errors.As(err, &fe) {
			metrics.RecordFetchError(fe.Kind)
			log.Warn(ctx, "score sheet fetch failed",
				logger.String("tab", req.Tab),
				logger.Int("attempt", attempt+1),
				logger.String("kind", fe.Kind),
				logger.Error(err))
			if !fe.Retryable() {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	metrics.RecordFetch(req.Tab, "error")
	return nil, lastErr
}

func (c *SheetsClient) fetchOnce(ctx context.Context, req Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Tab: req.Tab, Kind: KindTimeout, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(req), nil)
	if err != nil {
		return nil, &FetchError{Tab: req.Tab, Kind: KindTransport, Err: err}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "text/csv, */*;q=0.1")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Pragma", "no-cache")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &FetchError{Tab: req.Tab, Kind: transportKind(ctx, err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, &FetchError{Tab: req.Tab, Kind: transportKind(ctx, err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Tab: req.Tab, Kind: KindStatus, Status: resp.StatusCode}
	}
	if LooksLikeHTML(body) {
		return nil, &FetchError{Tab: req.Tab, Kind: KindHTML}
	}
	metrics.RecordFetchBytes(len(body))
	return body, nil
}

// LooksLikeHTML reports whether the start of body contains an HTML tag.
func LooksLikeHTML(body []byte) bool {
	head := body[:min(len(body), htmlSniffBytes)]
	return bytes.Contains(bytes.ToLower(head), []byte("<html"))
}

func transportKind(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransport
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// String describes the client for logs.
func (c *SheetsClient) String() string {
	return "sheets(" + c.baseURL + ", retries=" + strconv.Itoa(c.retries) + ")"
}
