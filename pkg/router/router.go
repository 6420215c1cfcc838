package router

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/vango-dev/vroute/pkg/routepath"
)

// Router serves matches from the current table and swaps in new tables
// atomically. A Router is safe for concurrent use.
type Router struct {
	table  atomic.Pointer[Table]
	logger *slog.Logger

	// onSwap is called after a new table is published.
	onSwap func(old, new *Table)
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSwapHook registers a function called after each table swap.
func WithSwapHook(fn func(old, new *Table)) Option {
	return func(r *Router) {
		r.onSwap = fn
	}
}

// New creates a router serving an empty table.
func New(opts ...Option) *Router {
	r := &Router{
		logger: slog.Default().With("component", "router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.table.Store(&Table{})
	return r
}

// SetLogger replaces the router logger.
func (r *Router) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Load builds a table from decls and publishes it. On error the current
// table stays in service and the build error is returned.
func (r *Router) Load(decls []Declaration) error {
	t, err := Build(decls)
	if err != nil {
		r.logger.Error("route table rejected", "error", err)
		return err
	}
	r.Swap(t)
	return nil
}

// Swap publishes t and returns the table it replaced. In-flight matches
// keep the table they started with.
func (r *Router) Swap(t *Table) *Table {
	if t == nil {
		t = &Table{}
	}
	old := r.table.Swap(t)
	r.logger.Info("route table published", "routes", t.Len())
	if r.onSwap != nil {
		r.onSwap(old, t)
	}
	return old
}

// Snapshot returns the table currently in service.
func (r *Router) Snapshot() *Table {
	return r.table.Load()
}

// Match matches an already normalized path against the current table.
func (r *Router) Match(path string) (*Match, bool) {
	return r.Snapshot().Match(path)
}

// MatchPath canonicalizes a raw request path, matches its decoded segments
// and checks that no single-segment parameter received an encoded slash.
// It returns (nil, nil) when nothing matches.
func (r *Router) MatchPath(raw string) (*Match, error) {
	return r.Snapshot().MatchPath(raw)
}

// ErrBadPath wraps canonicalization failures from MatchPath.
var ErrBadPath = errors.New("router: malformed request path")

// MatchPath is the Table form of Router.MatchPath.
func (t *Table) MatchPath(raw string) (*Match, error) {
	res, err := routepath.Canonicalize(raw)
	if err != nil {
		return nil, errors.Join(ErrBadPath, err)
	}
	m, ok := t.MatchSegments(res.Segments)
	if !ok {
		return nil, nil
	}
	for _, p := range m.Params {
		if err := routepath.CheckSegment(p.Value, p.Kind.IsCatchAll()); err != nil {
			return nil, errors.Join(ErrBadPath, err)
		}
	}
	return m, nil
}
