package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/vango-dev/vroute/pkg/manifest"
	"github.com/vango-dev/vroute/pkg/middleware"
	"github.com/vango-dev/vroute/pkg/router"
	"github.com/vango-dev/vroute/pkg/server"
)

// maxEchoBody bounds the body read by the echo handler.
const maxEchoBody = 1 << 20

// registerDemo registers the built-in handlers a manifest can name:
//
//	handlers:   static, echo, params
//	websockets: chat
//	middleware: auth, log
func registerDemo(reg *manifest.Registry, logger *slog.Logger) {
	reg.Handle("static", staticHandler)
	reg.Handle("echo", echoHandler)
	reg.Handle("params", paramsHandler)
	reg.HandleWebSocket("chat", chatRoom(logger))
	reg.Use("auth", router.MiddlewareFunc(requireBearer))
	reg.Use("log", middleware.Logging(logger))
}

// staticHandler describes the matched route.
func staticHandler(ctx context.Context, req *router.Request) (router.Response, error) {
	return map[string]string{"route": req.Pattern, "path": req.Path}, nil
}

// echoHandler returns the request body, or the path for bodiless requests.
func echoHandler(ctx context.Context, req *router.Request) (router.Response, error) {
	r, ok := req.Body.(*http.Request)
	if !ok || r.Body == nil || req.Method == router.MethodGet || req.Method == router.MethodDelete {
		return server.Text(http.StatusOK, req.Path), nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEchoBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxEchoBody {
		return nil, router.NewClientError(http.StatusRequestEntityTooLarge, "body too large")
	}
	resp := &server.Response{Status: http.StatusOK, Body: body, Header: http.Header{}}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		resp.Header.Set("Content-Type", ct)
	}
	return resp, nil
}

// paramsHandler returns the bound parameters as JSON.
func paramsHandler(ctx context.Context, req *router.Request) (router.Response, error) {
	return server.JSON(http.StatusOK, map[string]any{
		"route":  req.Pattern,
		"params": paramValues(req.Params),
	}), nil
}

// requireBearer rejects requests without a bearer token.
func requireBearer(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
	r, ok := req.Body.(*http.Request)
	if !ok {
		return nil, router.NewClientError(http.StatusUnauthorized, "authorization required")
	}
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return nil, router.NewClientError(http.StatusUnauthorized, "authorization required")
	}
	return next(ctx)
}

// chatRoom relays each message to every connection on the same route that
// bound the same parameters.
func chatRoom(logger *slog.Logger) *router.WebSocketHandler {
	return &router.WebSocketHandler{
		OnConnect: func(ctx context.Context, c *router.Conn) error {
			return c.Send([]byte(fmt.Sprintf("joined %s (%d online)", roomName(c), len(roomPeers(c)))))
		},
		OnMessage: func(ctx context.Context, c *router.Conn, payload []byte) error {
			for _, peer := range roomPeers(c) {
				if peer.ID() == c.ID() {
					continue
				}
				if err := peer.Send(payload); err != nil {
					logger.Debug("chat send failed", "route", c.Pattern(), "conn", peer.ID(), "error", err)
				}
			}
			return nil
		},
	}
}

func roomPeers(c *router.Conn) []*router.Conn {
	var out []*router.Conn
	for _, peer := range c.Peers().Snapshot() {
		if sameParams(peer.Params(), c.Params()) {
			out = append(out, peer)
		}
	}
	return out
}

func roomName(c *router.Conn) string {
	if len(c.Params()) == 0 {
		return c.Pattern()
	}
	parts := make([]string, 0, len(c.Params()))
	for _, p := range c.Params() {
		parts = append(parts, p.Name+"="+p.Value)
	}
	return strings.Join(parts, " ")
}

func sameParams(a, b router.Params) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Present != b[i].Present || a[i].Value != b[i].Value {
			return false
		}
		if !slices.Equal(a[i].Segments, b[i].Segments) {
			return false
		}
	}
	return true
}
