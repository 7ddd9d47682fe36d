// Package source retrieves the raw score sheet as CSV bytes.
package source

import (
	"context"
	"fmt"
)

// Request identifies one sheet tab. Generation is the cache-bust counter;
// sources that talk through HTTP caches send it upstream.
type Request struct {
	SheetID    string
	Tab        string
	Generation uint64
}

// Key identifies the request for caching. It ignores Generation.
func (r Request) Key() string {
	return fmt.Sprintf("%s/%s", r.SheetID, r.Tab)
}

// Source returns the CSV body of a tab.
type Source interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, req Request) ([]byte, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, req Request) ([]byte, error) { return f(ctx, req) }
