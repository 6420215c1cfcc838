package server

import (
	"encoding/json"
	"net/http"

	"github.com/vango-dev/vroute/pkg/router"
)

// Response is a handler result with an explicit status and headers.
type Response struct {
	Status int
	Header http.Header
	Body   any
}

// StatusCode implements router.StatusCoder.
func (r *Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// JSON returns a Response that encodes v as JSON.
func JSON(status int, v any) *Response {
	return &Response{Status: status, Body: v}
}

// Text returns a plain text Response.
func Text(status int, s string) *Response {
	return &Response{Status: status, Body: s}
}

// render writes a handler result.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, resp router.Response) {
	status := http.StatusOK
	body := resp

	if res, ok := resp.(*Response); ok {
		for k, vs := range res.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		status = res.StatusCode()
		body = res.Body
	} else if sc, ok := resp.(router.StatusCoder); ok {
		status = sc.StatusCode()
	}

	switch v := body.(type) {
	case nil:
		if status == http.StatusOK {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)

	case http.Handler:
		v.ServeHTTP(w, r)

	case []byte:
		setContentType(w, "application/octet-stream")
		w.WriteHeader(status)
		w.Write(v)

	case string:
		setContentType(w, "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(v))

	default:
		data, err := json.Marshal(v)
		if err != nil {
			h.stats.serverErrors.Add(1)
			h.logger.Error("response encoding failed", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}
		setContentType(w, "application/json")
		w.WriteHeader(status)
		w.Write(data)
		w.Write([]byte("\n"))
	}
}

func setContentType(w http.ResponseWriter, ct string) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", ct)
	}
}

// errorBody is the JSON body of error responses.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message, Status: status})
}
