// Package router holds compiled routes and resolves request paths to them.
//
// Routes are declared as (pattern, Bundle) pairs and compiled into an
// immutable Table ordered by specificity:
//
//	table, err := router.Build([]router.Declaration{
//		{Pattern: "/users/new", Bundle: router.Bundle{Get: newUser}},
//		{Pattern: "/users/[id]", Bundle: router.Bundle{Get: showUser, Delete: deleteUser}},
//		{Pattern: "/docs/[...slug]", Bundle: router.Bundle{Get: docs}},
//		{Pattern: "/chat/[room]", Bundle: router.Bundle{WebSocket: chat}},
//	})
//
// A Router serves the current table and swaps in new ones atomically:
//
//	r := router.New()
//	if err := r.Load(decls); err != nil {
//		log.Fatal(err)
//	}
//	m, ok := r.Match("/users/42") // m.Params.Value("id") == "42"
//
// # Ordering
//
// Entries are tried most specific first: more leading literals, then more
// required parameters, then patterns without optional segments, then
// patterns without a catch-all. Equal keys keep registration order.
// Two patterns with the same shape are rejected at build time.
//
// # Connections
//
// Each entry owns a Registry of live WebSocket connections. Registries are
// safe for concurrent Add, Remove and Broadcast; Snapshot never blocks
// writers for the duration of a broadcast.
package router
