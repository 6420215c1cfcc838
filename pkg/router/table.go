package router

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vango-dev/vroute/pkg/pattern"
)

// Route build errors.
var (
	// ErrDuplicateExact is returned when two patterns have the same shape and
	// would therefore match exactly the same paths.
	ErrDuplicateExact = errors.New("router: duplicate route")

	// ErrAmbiguousCatchAll is returned when two optional catch-all patterns
	// share a specificity key and can match the same path.
	ErrAmbiguousCatchAll = errors.New("router: ambiguous optional catch-all routes")

	// ErrEmptyBundle is returned for a declaration without any handler.
	ErrEmptyBundle = errors.New("router: route declares no handlers")
)

// RouteError describes a build failure tied to one declaration.
type RouteError struct {
	// Pattern is the offending declaration's pattern source.
	Pattern string

	// Conflict is the earlier declaration it collides with, if any.
	Conflict string

	// Err is the sentinel cause.
	Err error
}

// Error returns the error message.
func (e *RouteError) Error() string {
	if e.Conflict != "" {
		return fmt.Sprintf("%v: %q conflicts with %q", e.Err, e.Pattern, e.Conflict)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Pattern)
}

// Unwrap returns the sentinel cause.
func (e *RouteError) Unwrap() error {
	return e.Err
}

// BuildError collects every compile and route error found by Build.
type BuildError struct {
	Errors []error
}

// Error lists all errors.
func (e *BuildError) Error() string {
	if len(e.Errors) == 0 {
		return "router: no build errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route build errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err)
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	return e.Errors
}

// Entry is a compiled pattern bound to its handler bundle.
// Entries are immutable; only the connection registry changes.
type Entry struct {
	pattern *pattern.Pattern
	bundle  Bundle
	index   int
	conns   *Registry
}

// Pattern returns the compiled pattern.
func (e *Entry) Pattern() *pattern.Pattern { return e.pattern }

// Bundle returns the handler bundle.
func (e *Entry) Bundle() *Bundle { return &e.bundle }

// Index returns the registration position of the declaration.
func (e *Entry) Index() int { return e.index }

// Conns returns the entry's WebSocket connection registry.
func (e *Entry) Conns() *Registry { return e.conns }

// String returns the canonical pattern.
func (e *Entry) String() string { return e.pattern.String() }

// Table is an immutable, specificity-ordered set of entries.
type Table struct {
	entries []*Entry
}

// Build compiles every declaration and orders the result by specificity,
// ties broken by registration order. All problems are reported together in
// a *BuildError; on error no table is returned.
func Build(decls []Declaration) (*Table, error) {
	var (
		errs    []error
		entries = make([]*Entry, 0, len(decls))
		shapes  = make(map[string]*Entry, len(decls))
	)

	for i, d := range decls {
		p, err := pattern.Compile(d.Pattern)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d.Bundle.Empty() {
			errs = append(errs, &RouteError{Pattern: d.Pattern, Err: ErrEmptyBundle})
			continue
		}

		shape := p.Shape()
		if prev, ok := shapes[shape]; ok {
			errs = append(errs, &RouteError{
				Pattern:  d.Pattern,
				Conflict: prev.pattern.Source(),
				Err:      ErrDuplicateExact,
			})
			continue
		}

		e := &Entry{
			pattern: p,
			bundle:  d.Bundle.clone(),
			index:   i,
			conns:   NewRegistry(),
		}
		shapes[shape] = e
		entries = append(entries, e)
	}

	errs = append(errs, checkCatchAllAmbiguity(entries)...)
	if len(errs) > 0 {
		return nil, &BuildError{Errors: errs}
	}

	slices.SortStableFunc(entries, func(a, b *Entry) int {
		return a.pattern.Key().Compare(b.pattern.Key())
	})
	return &Table{entries: entries}, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(decls []Declaration) *Table {
	t, err := Build(decls)
	if err != nil {
		panic(err)
	}
	return t
}

// checkCatchAllAmbiguity rejects optional catch-all patterns with equal
// keys that can match a common path.
func checkCatchAllAmbiguity(entries []*Entry) []error {
	var (
		errs []error
		seen = make(map[pattern.Key][]*Entry)
	)
	for _, e := range entries {
		if e.pattern.Tail() != pattern.OptionalCatchAll {
			continue
		}
		k := e.pattern.Key()
		for _, prev := range seen[k] {
			if prefixesOverlap(prev.pattern, e.pattern) {
				errs = append(errs, &RouteError{
					Pattern:  e.pattern.Source(),
					Conflict: prev.pattern.Source(),
					Err:      ErrAmbiguousCatchAll,
				})
				break
			}
		}
		seen[k] = append(seen[k], e)
	}
	return errs
}

// prefixesOverlap reports whether the segments before the catch-all of a
// and b can match the same path. Two prefixes are disjoint when they hold
// different literals at the same position before any optional segment
// shifts the alignment.
func prefixesOverlap(a, b *pattern.Pattern) bool {
	n := min(a.Len(), b.Len()) - 1
	for i := 0; i < n; i++ {
		sa, sb := a.At(i), b.At(i)
		if sa.Kind == pattern.Optional || sb.Kind == pattern.Optional {
			return true
		}
		if sa.Kind == pattern.Literal && sb.Kind == pattern.Literal && sa.Value != sb.Value {
			return false
		}
	}
	return true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries in match order.
func (t *Table) Entries() []*Entry {
	if t == nil {
		return nil
	}
	return slices.Clone(t.entries)
}

// Lookup returns the entry whose canonical pattern equals src's canonical form.
func (t *Table) Lookup(src string) (*Entry, bool) {
	p, err := pattern.Compile(src)
	if err != nil || t == nil {
		return nil, false
	}
	want := p.String()
	for _, e := range t.entries {
		if e.pattern.String() == want {
			return e, true
		}
	}
	return nil, false
}
