package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vroute/pkg/dispatch"
	"github.com/vango-dev/vroute/pkg/router"
)

// Handler serves HTTP and WebSocket requests from a Router.
type Handler struct {
	router     *router.Router
	dispatcher *dispatch.Dispatcher
	config     *Config
	upgrader   websocket.Upgrader
	stats      *Stats
	logger     *slog.Logger
}

// New creates a Handler. A nil config uses DefaultConfig; unset fields are
// filled with defaults.
func New(r *router.Router, d *dispatch.Dispatcher, config *Config) *Handler {
	config = config.withDefaults()
	if d == nil {
		d = dispatch.New()
	}
	return &Handler{
		router:     r,
		dispatcher: d,
		config:     config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			CheckOrigin:       config.CheckOrigin,
			EnableCompression: config.EnableCompression,
		},
		stats:  &Stats{},
		logger: slog.Default().With("component", "server"),
	}
}

// SetLogger sets the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// Logger returns the handler logger.
func (h *Handler) Logger() *slog.Logger {
	return h.logger
}

// Config returns the effective configuration.
func (h *Handler) Config() *Config {
	return h.config
}

// Stats returns the live request counters.
func (h *Handler) Stats() *Stats {
	return h.stats
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.stats.requests.Add(1)

	m, err := h.router.MatchPath(r.URL.EscapedPath())
	if err != nil {
		h.stats.badRequests.Add(1)
		h.logger.Debug("malformed path", "path", r.URL.EscapedPath(), "error", err)
		writeError(w, http.StatusBadRequest, "malformed request path")
		return
	}
	if m == nil {
		h.stats.notFound.Add(1)
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	method, ok := requestMethod(r)
	if !ok {
		h.writeDispatchError(w, r, &dispatch.Error{
			Kind:    dispatch.KindMethodNotAllowed,
			Pattern: m.Entry.String(),
			Method:  router.Method(r.Method),
			Allow:   m.Entry.Bundle().Methods(),
		})
		return
	}

	req := &router.Request{Method: method, Path: r.URL.Path, Body: r}
	resp, err := h.dispatcher.Dispatch(r.Context(), m, req)
	if err != nil {
		h.writeDispatchError(w, r, err)
		return
	}

	if up, ok := resp.(*dispatch.Upgrade); ok {
		h.serveWebSocket(w, r, up)
		return
	}
	h.render(w, r, resp)
}

// requestMethod maps the request to a router method. Upgrade requests map
// to MethodWebSocket.
func requestMethod(r *http.Request) (router.Method, bool) {
	if websocket.IsWebSocketUpgrade(r) {
		return router.MethodWebSocket, true
	}
	return router.ParseMethod(r.Method)
}

// writeDispatchError renders a dispatch failure and logs it by severity.
func (h *Handler) writeDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := dispatch.AsError(err)
	if !ok {
		h.stats.serverErrors.Add(1)
		h.logger.Error("dispatch failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	status := de.StatusCode()
	attrs := []any{
		"kind", de.Kind.String(),
		"route", de.Pattern,
		"method", string(de.Method),
		"status", status,
	}

	switch {
	case de.Kind == dispatch.KindMethodNotAllowed:
		w.Header().Set("Allow", de.AllowHeader())
		h.logger.Debug("method not allowed", attrs...)
		writeError(w, status, http.StatusText(status))

	case de.Kind == dispatch.KindCanceled:
		h.stats.canceled.Add(1)
		h.logger.Debug("dispatch canceled", append(attrs, "error", de.Err)...)
		// The client is gone; the status only shows up in access logs.
		w.WriteHeader(status)

	case de.ClientError():
		h.stats.clientErrors.Add(1)
		h.logger.Info("request rejected", append(attrs, "error", de.Err)...)
		writeError(w, status, clientMessage(de))

	default:
		h.stats.serverErrors.Add(1)
		h.logger.Error("dispatch failed", append(attrs, "error", de.Err)...)
		writeError(w, status, http.StatusText(status))
	}
}

// clientMessage returns the message of a typed client error.
func clientMessage(de *dispatch.Error) string {
	var ce *router.ClientError
	if errors.As(de.Err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return http.StatusText(de.StatusCode())
}
