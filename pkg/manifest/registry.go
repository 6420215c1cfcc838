package manifest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vango-dev/vroute/pkg/router"
)

// Registry holds the named handlers a manifest can refer to.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]router.HandlerFunc
	websockets map[string]*router.WebSocketHandler
	middleware map[string]router.Middleware
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:   make(map[string]router.HandlerFunc),
		websockets: make(map[string]*router.WebSocketHandler),
		middleware: make(map[string]router.Middleware),
	}
}

// Handle registers an HTTP handler under name, replacing any previous one.
func (r *Registry) Handle(name string, h router.HandlerFunc) {
	if h == nil {
		panic(fmt.Sprintf("manifest: nil handler %q", name))
	}
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

// HandleWebSocket registers a WebSocket handler under name. Every route that
// names it shares the same callbacks; connections are still grouped per
// route.
func (r *Registry) HandleWebSocket(name string, h *router.WebSocketHandler) {
	if h == nil {
		panic(fmt.Sprintf("manifest: nil websocket handler %q", name))
	}
	r.mu.Lock()
	r.websockets[name] = h
	r.mu.Unlock()
}

// Use registers a middleware under name.
func (r *Registry) Use(name string, mw router.Middleware) {
	if mw == nil {
		panic(fmt.Sprintf("manifest: nil middleware %q", name))
	}
	r.mu.Lock()
	r.middleware[name] = mw
	r.mu.Unlock()
}

// Names returns the sorted names of registered HTTP handlers, WebSocket
// handlers and middleware.
func (r *Registry) Names() (handlers, websockets, middleware []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.handlers), sortedKeys(r.websockets), sortedKeys(r.middleware)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
