package server

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vroute/pkg/dispatch"
)

// wsTransport adapts a gorilla connection to router.Transport.
type wsTransport struct {
	conn   *websocket.Conn
	config *Config
	done   chan struct{}
	once   sync.Once
}

func newWSTransport(conn *websocket.Conn, config *Config) *wsTransport {
	t := &wsTransport{conn: conn, config: config, done: make(chan struct{})}
	conn.SetReadLimit(config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	})
	return t
}

// Receive returns the next data frame. A normal close returns io.EOF.
func (t *wsTransport) Receive() ([]byte, error) {
	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
	return msg, nil
}

// Send writes a text frame.
func (t *wsTransport) Send(payload []byte) error {
	t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame and closes the connection.
func (t *wsTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		deadline := time.Now().Add(t.config.WriteTimeout)
		t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = t.conn.Close()
	})
	return err
}

// pingLoop sends keepalive pings until the transport closes.
func (t *wsTransport) pingLoop() {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(t.config.WriteTimeout)
			if err := t.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

// serveWebSocket completes the handshake and runs the connection.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request, up *dispatch.Upgrade) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.stats.badRequests.Add(1)
		h.logger.Warn("websocket upgrade failed", "route", up.Pattern(), "error", err)
		return
	}
	h.stats.upgrades.Add(1)
	h.stats.activeConns.Add(1)
	defer h.stats.activeConns.Add(-1)

	t := newWSTransport(conn, h.config)
	go t.pingLoop()

	if err := up.Serve(r.Context(), t); err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) || errors.Is(err, io.ErrUnexpectedEOF) {
			h.logger.Debug("websocket ended", "route", up.Pattern(), "error", err)
			return
		}
		h.logger.Warn("websocket ended with error", "route", up.Pattern(), "error", err)
	}
}
