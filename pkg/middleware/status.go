package middleware

import (
	"net/http"

	"github.com/vango-dev/vroute/pkg/dispatch"
	"github.com/vango-dev/vroute/pkg/router"
)

// outcome summarizes a finished dispatch link for metrics and traces.
type outcome struct {
	status int
	kind   string // empty on success
}

// outcomeOf derives the status of a dispatch from what the rest of the chain
// returned. Errors below a middleware always arrive as *dispatch.Error.
func outcomeOf(resp router.Response, err error) outcome {
	if err != nil {
		if de, ok := dispatch.AsError(err); ok {
			return outcome{status: de.StatusCode(), kind: de.Kind.String()}
		}
		return outcome{status: http.StatusInternalServerError, kind: "internal"}
	}
	switch r := resp.(type) {
	case *dispatch.Upgrade:
		return outcome{status: http.StatusSwitchingProtocols}
	case router.StatusCoder:
		return outcome{status: r.StatusCode()}
	case nil:
		return outcome{status: http.StatusNoContent}
	}
	return outcome{status: http.StatusOK}
}

// routeLabel returns the route label of a request.
func routeLabel(req *router.Request) string {
	if req.Pattern == "" {
		return "/"
	}
	return req.Pattern
}
