package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/vango-dev/vroute/internal/config"
	errs "github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/fsroutes"
	"github.com/vango-dev/vroute/pkg/router"
)

// routeSource is a routes directory and its route file extensions.
type routeSource struct {
	Dir        string
	Extensions []string
}

// resolveSource picks the routes directory: the argument when given,
// otherwise the one configured in the nearest vroute.json, otherwise
// ./routes. Extensions given on the command line win over the config.
func resolveSource(args []string, exts []string) routeSource {
	var src routeSource
	switch {
	case len(args) > 0:
		src.Dir = args[0]
	default:
		src.Dir = config.DefaultRoutesDir
		if cfg, err := config.LoadFromWorkingDir(); err == nil {
			src.Dir = cfg.RoutesPath()
			src.Extensions = cfg.Routes.Extensions
		}
	}
	if len(exts) > 0 {
		src.Extensions = exts
	}
	return src
}

// loaded is a table built from a routes directory.
type loaded struct {
	Table  *router.Table
	Routes []fsroutes.Route

	// files maps canonical patterns to their route files.
	files map[string]string
}

// File returns the route file that declared the entry's pattern.
func (l *loaded) File(e *router.Entry) string {
	return l.files[e.String()]
}

// loadRoutes scans src and builds its table. Errors carry the route file
// they came from.
func loadRoutes(src routeSource) (*loaded, error) {
	info, err := os.Stat(src.Dir)
	if err != nil {
		return nil, errs.New("R501").WithDetail("Routes directory " + src.Dir + " cannot be read").Wrap(err)
	}
	if !info.IsDir() {
		return nil, errs.New("R501").WithDetail(src.Dir + " is not a directory")
	}

	scanner := fsroutes.NewScanner(os.DirFS(src.Dir), fsroutes.Options{Extensions: src.Extensions})
	routes, err := scanner.Scan()
	if err != nil {
		var fe *fsroutes.FileError
		if errors.As(err, &fe) {
			return nil, &fsroutes.FileError{File: filepath.Join(src.Dir, fe.File), Err: fe.Err}
		}
		return nil, err
	}
	if len(routes) == 0 {
		return nil, errs.New("R205").WithDetail("No route files found in " + src.Dir)
	}

	l := &loaded{Routes: routes, files: make(map[string]string, len(routes))}
	decls := make([]router.Declaration, len(routes))
	for i, r := range routes {
		file := filepath.Join(src.Dir, filepath.FromSlash(r.File))
		l.files[r.Pattern] = file
		decls[i] = router.Declaration{Pattern: r.Pattern, Bundle: stubBundle(r)}
	}

	table, err := router.Build(decls)
	if err != nil {
		return nil, attachFiles(err, l.files)
	}
	l.Table = table
	return l, nil
}

// attachFiles wraps each route error of a build failure with the file that
// declared the route.
func attachFiles(err error, files map[string]string) error {
	var be *router.BuildError
	if !errors.As(err, &be) {
		return err
	}
	out := make([]error, len(be.Errors))
	for i, e := range be.Errors {
		out[i] = e
		var re *router.RouteError
		if errors.As(e, &re) {
			if file, ok := files[re.Pattern]; ok {
				out[i] = &fsroutes.FileError{File: file, Err: e}
			}
		}
	}
	return errors.Join(out...)
}

// stubBundle declares the handlers a route file exports. The handlers
// answer with the matched pattern. Files other than Go sources are pages
// and serve GET.
func stubBundle(r fsroutes.Route) router.Bundle {
	var b router.Bundle
	if filepath.Ext(r.File) != ".go" {
		b.Get = echoPattern
		return b
	}
	for _, name := range r.Methods {
		switch m, _ := router.ParseMethod(name); m {
		case router.MethodGet:
			b.Get = echoPattern
		case router.MethodPost:
			b.Post = echoPattern
		case router.MethodPut:
			b.Put = echoPattern
		case router.MethodDelete:
			b.Delete = echoPattern
		}
	}
	if r.WebSocket {
		b.WebSocket = &router.WebSocketHandler{}
	}
	return b
}

func echoPattern(ctx context.Context, req *router.Request) (router.Response, error) {
	return req.Pattern, nil
}
