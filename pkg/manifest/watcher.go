package manifest

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/vroute/pkg/router"
)

// DefaultInterval is the polling interval of a Watcher.
const DefaultInterval = 5 * time.Second

// Watcher polls a Source and publishes a new route table on the Router
// whenever the manifest content changes. A manifest that fails to parse,
// resolve or build is logged and the current table stays in service.
type Watcher struct {
	source   Source
	registry *Registry
	router   *router.Router
	interval time.Duration
	logger   *slog.Logger
	onError  func(error)

	mu   sync.Mutex
	last [sha256.Size]byte
	seen bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithErrorHandler sets a callback for rejected manifests and source
// failures, in addition to logging.
func WithErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher creates a watcher publishing to r.
func NewWatcher(src Source, reg *Registry, r *router.Router, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:   src,
		registry: reg,
		router:   r,
		interval: DefaultInterval,
		logger:   slog.Default().With("component", "manifest"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Source returns the watched source.
func (w *Watcher) Source() Source {
	return w.source
}

// Reload loads the source once and publishes a new table if the content
// changed. It reports whether a table was published.
func (w *Watcher) Reload(ctx context.Context) (bool, error) {
	data, err := w.source.Load(ctx)
	if errors.Is(err, ErrNotModified) {
		return false, nil
	}
	if err != nil {
		w.fail("manifest source failed", err)
		return false, err
	}

	sum := sha256.Sum256(data)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen && sum == w.last {
		return false, nil
	}
	// Identical content is not retried, whether it was accepted or not.
	w.last, w.seen = sum, true

	table, err := Load(data, w.registry)
	if err != nil {
		w.fail("manifest rejected", err)
		return false, err
	}
	w.router.Swap(table)
	w.logger.Info("manifest loaded", "source", w.source.String(), "routes", table.Len())
	return true, nil
}

func (w *Watcher) fail(msg string, err error) {
	w.logger.Error(msg, "source", w.source.String(), "error", err)
	if w.onError != nil {
		w.onError(err)
	}
}

// Run reloads immediately and then on every interval until ctx is done.
// Failures are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.Reload(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Reload(ctx)
		}
	}
}
