package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/vroute/pkg/router"
)

// Logging returns middleware that logs one line per dispatch. Server errors
// log at Error, client errors at Warn and the rest at Info.
func Logging(logger *slog.Logger) router.Middleware {
	if logger == nil {
		logger = slog.Default().With("component", "access")
	}
	return router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		start := time.Now()
		resp, err := next(ctx)
		out := outcomeOf(resp, err)

		attrs := []slog.Attr{
			slog.String("method", string(req.Method)),
			slog.String("path", req.Path),
			slog.String("route", routeLabel(req)),
			slog.Int("status", out.status),
			slog.Duration("duration", time.Since(start)),
		}
		level := slog.LevelInfo
		switch {
		case out.status >= 500:
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", err))
		case out.status >= 400:
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("kind", out.kind))
		}
		logger.LogAttrs(ctx, level, "dispatch", attrs...)
		return resp, err
	})
}
