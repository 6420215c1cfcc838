// Package fsroutes derives route patterns from a directory of route files.
//
// File names map to the bracket grammar of package pattern:
//
//	routes/
//	├── index.go                → /
//	├── about.go                → /about
//	├── (marketing)/pricing.go  → /pricing
//	├── blog/[id].go            → /blog/[id]
//	├── docs/[...slug].go       → /docs/[...slug]
//	├── [[lang]]/help.go        → /[[lang]]/help
//	├── users/_id_/posts.go     → /users/[id]/posts
//	└── files/path___.go        → /files/[...path]
//
// The underscore forms (_id_, path___) exist for toolchains that reject
// brackets in file names. Files whose base name starts with "_" (such as
// _layout.go) and *_test.go files are not routes.
package fsroutes

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/vango-dev/vroute/pkg/pattern"
)

// Route is a route derived from one file.
type Route struct {
	// Pattern is the derived pattern in canonical bracket form.
	Pattern string

	// File is the slash-separated path relative to the scanned root.
	File string

	// Methods lists the HTTP handlers a Go route file exports
	// (GET, POST, PUT, DELETE), in declaration order.
	Methods []string

	// WebSocket is true when a Go route file exports a WebSocket handler.
	WebSocket bool

	// HasMiddleware is true when a Go route file exports Middleware.
	HasMiddleware bool
}

// FileError reports a route file that cannot be turned into a route.
type FileError struct {
	File string
	Err  error
}

// Error returns the error message.
func (e *FileError) Error() string {
	return fmt.Sprintf("fsroutes: %s: %v", e.File, e.Err)
}

// Unwrap returns the cause.
func (e *FileError) Unwrap() error {
	return e.Err
}

// Options configures a Scanner.
type Options struct {
	// Extensions lists the route file extensions. Default: [".go"].
	Extensions []string

	// SkipHandlerScan disables parsing Go files for exported handlers.
	SkipHandlerScan bool
}

// Scanner walks a file system for route files.
type Scanner struct {
	fsys fs.FS
	opts Options
}

// NewScanner creates a scanner rooted at fsys.
func NewScanner(fsys fs.FS, opts Options) *Scanner {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".go"}
	}
	return &Scanner{fsys: fsys, opts: opts}
}

// Scan returns every route file in the tree, sorted by file path.
// A file whose name does not yield a valid pattern fails the scan.
func (s *Scanner) Scan() ([]Route, error) {
	var routes []Route

	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := s.extension(p)
		if ext == "" || strings.HasSuffix(p, "_test.go") {
			return nil
		}

		pat, ok, err := PatternFromFile(p, ext)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		route := Route{Pattern: pat, File: p}
		if ext == ".go" && !s.opts.SkipHandlerScan {
			if err := s.scanHandlers(&route); err != nil {
				return &FileError{File: p, Err: err}
			}
		}
		routes = append(routes, route)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(routes, func(a, b Route) int { return strings.Compare(a.File, b.File) })
	return routes, nil
}

func (s *Scanner) extension(p string) string {
	for _, ext := range s.opts.Extensions {
		if strings.HasSuffix(p, ext) {
			return ext
		}
	}
	return ""
}

// scanHandlers parses a Go file and records its exported handlers.
func (s *Scanner) scanHandlers(route *Route) error {
	src, err := fs.ReadFile(s.fsys, route.File)
	if err != nil {
		return err
	}
	f, err := parser.ParseFile(token.NewFileSet(), route.File, src, parser.SkipObjectResolution)
	if err != nil {
		return err
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil || !d.Name.IsExported() {
				continue
			}
			switch name := d.Name.Name; name {
			case "GET", "POST", "PUT", "DELETE":
				route.Methods = append(route.Methods, name)
			case "WebSocket":
				route.WebSocket = true
			case "Middleware":
				route.HasMiddleware = true
			}

		case *ast.GenDecl:
			// var Middleware = []router.Middleware{...}
			if d.Tok != token.VAR {
				continue
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, ident := range vs.Names {
					if ident.Name == "Middleware" {
						route.HasMiddleware = true
					}
				}
			}
		}
	}
	return nil
}

var (
	// typedParam strips type annotations: [id:int] → [id].
	typedParam = regexp.MustCompile(`^(\[\[?(?:\.\.\.)?[A-Za-z_][A-Za-z0-9_-]*):[A-Za-z0-9_]+(\]\]?)$`)

	// underscoreCatchAll matches path___ (and the _path___ variant).
	underscoreCatchAll = regexp.MustCompile(`^_?([A-Za-z][A-Za-z0-9]*)___$`)

	// underscoreParam matches _id_ (and the id_ variant).
	underscoreParam = regexp.MustCompile(`^_?([A-Za-z][A-Za-z0-9]*)_$`)

	// group matches route group directories: (marketing).
	group = regexp.MustCompile(`^\([^()/]+\)$`)
)

// PatternFromFile maps a slash-separated route file path to a pattern in
// canonical bracket form. It returns ok=false for files that are not routes
// (special "_" files). The result always compiles.
func PatternFromFile(file, ext string) (pat string, ok bool, err error) {
	rel := strings.TrimSuffix(strings.ReplaceAll(file, "\\", "/"), ext)

	dir, base := path.Split(rel)
	if strings.HasPrefix(base, "_") && !underscoreParam.MatchString(base) && !underscoreCatchAll.MatchString(base) {
		return "", false, nil
	}
	if base == "index" {
		rel = strings.TrimSuffix(dir, "/")
	}

	var segs []string
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || group.MatchString(seg) {
			continue
		}
		segs = append(segs, convertSegment(seg))
	}

	p, err := pattern.Compile("/" + strings.Join(segs, "/"))
	if err != nil {
		return "", false, &FileError{File: file, Err: err}
	}
	return p.String(), true, nil
}

// convertSegment rewrites one file-name segment into bracket syntax.
func convertSegment(seg string) string {
	if m := typedParam.FindStringSubmatch(seg); m != nil {
		return m[1] + m[2]
	}
	if m := underscoreCatchAll.FindStringSubmatch(seg); m != nil {
		return "[..." + m[1] + "]"
	}
	if m := underscoreParam.FindStringSubmatch(seg); m != nil {
		return "[" + m[1] + "]"
	}
	return seg
}
