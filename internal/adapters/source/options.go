package source

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default fetch configuration constants.
const (
	defaultBaseURL    = "https://docs.google.com"
	defaultTimeout    = 12 * time.Second
	defaultRetries    = 1
	defaultRetryPause = 500 * time.Millisecond
	defaultRate       = 2
	defaultBurst      = 4
	defaultUserAgent  = "Mozilla/5.0 (compatible; tutorboard/1.0)"
	maxBodyBytes      = 32 << 20
)

// Option applies a configuration option to the SheetsClient.
type Option func(*SheetsClient)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(base string) Option {
	return func(c *SheetsClient) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *SheetsClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each attempt, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *SheetsClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(c *SheetsClient) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithRetryPause sets the fixed pause between attempts.
func WithRetryPause(d time.Duration) Option {
	return func(c *SheetsClient) {
		if d >= 0 {
			c.retryPause = d
		}
	}
}

// WithRateLimit caps outbound requests per second with a burst allowance.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *SheetsClient) {
		if perSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *SheetsClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
