package router

import "context"

// Compose builds a chain from middleware and a final link. Middleware runs
// in order (first to last), with final at the end.
func Compose(req *Request, mw []Middleware, final Next) Next {
	chain := final
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func(ctx context.Context) (Response, error) {
			return m.Handle(ctx, req, next)
		}
	}
	return chain
}

// Chain creates a middleware that runs several middleware in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, req *Request, next Next) (Response, error) {
		return Compose(req, middleware, next)(ctx)
	})
}

// Skip bypasses mw when condition holds.
func Skip(condition func(req *Request) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, req *Request, next Next) (Response, error) {
		if condition(req) {
			return next(ctx)
		}
		return mw.Handle(ctx, req, next)
	})
}

// Only runs mw only when condition holds.
func Only(condition func(req *Request) bool, mw Middleware) Middleware {
	return Skip(func(req *Request) bool { return !condition(req) }, mw)
}

// Methods runs mw only for the listed methods.
func Methods(mw Middleware, methods ...Method) Middleware {
	return Only(func(req *Request) bool {
		for _, m := range methods {
			if req.Method == m {
				return true
			}
		}
		return false
	}, mw)
}
