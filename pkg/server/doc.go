// Package server adapts the router and dispatcher to net/http.
//
// A Handler canonicalizes the request path, matches it against the router's
// current table, dispatches it and renders the result:
//
//	r := router.New()
//	r.Load(decls)
//	h := server.New(r, dispatch.New(), nil)
//	http.ListenAndServe(":8080", h)
//
// # Responses
//
// Handler results are rendered by type:
//
//   - nil: 204 No Content
//   - http.Handler: served directly
//   - []byte: written as application/octet-stream
//   - string: written as text/plain
//   - anything else: encoded as JSON
//
// A result implementing router.StatusCoder sets the status code.
//
// # Errors
//
// No match is a 404, an unknown method a 405 with an Allow header, and a
// malformed path a 400. Dispatch failures map to their StatusCode; server
// errors are logged with the error kind and route, and the client only sees
// a generic message.
//
// # WebSocket
//
// Upgrade requests whose route has a WebSocket handler are upgraded with
// gorilla/websocket and served until the connection ends. Pings are sent at
// Config.PingInterval and each pong extends the read deadline.
package server
