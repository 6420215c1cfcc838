package router

import (
	"strings"

	"github.com/vango-dev/vroute/pkg/pattern"
	"github.com/vango-dev/vroute/pkg/routepath"
)

// Param is one bound parameter.
type Param struct {
	Name string
	Kind pattern.Kind

	// Value holds the segment for Required and Optional parameters, and the
	// slash-joined segments for catch-alls.
	Value string

	// Segments holds the consumed segments of a catch-all, in order.
	// It is nil for single-segment kinds and empty for an OptionalCatchAll
	// that consumed nothing.
	Segments []string

	// Present is false for an Optional segment that bound nothing.
	Present bool
}

// Params are the parameters of a match, in pattern order.
type Params []Param

// Get returns the value of a parameter and whether it was bound.
func (ps Params) Get(name string) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, p.Present
		}
	}
	return "", false
}

// Value returns the value of a parameter, or "".
func (ps Params) Value(name string) string {
	v, _ := ps.Get(name)
	return v
}

// Segments returns the segments bound to a catch-all parameter.
func (ps Params) Segments(name string) []string {
	for _, p := range ps {
		if p.Name == name {
			return p.Segments
		}
	}
	return nil
}

// Map returns the bound values keyed by name. Absent optionals are omitted.
func (ps Params) Map() map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		if p.Present {
			m[p.Name] = p.Value
		}
	}
	return m
}

// Match is the result of a successful lookup.
type Match struct {
	Entry  *Entry
	Params Params
}

// Match finds the first entry, in specificity order, that matches path.
// Empty segments in path are ignored and no decoding is performed.
func (t *Table) Match(path string) (*Match, bool) {
	return t.MatchSegments(routepath.Segments(path))
}

// MatchSegments is like Match for a path already split into segments.
func (t *Table) MatchSegments(segs []string) (*Match, bool) {
	if t == nil {
		return nil, false
	}
	for _, e := range t.entries {
		if params, ok := matchPattern(e.pattern, segs); ok {
			return &Match{Entry: e, Params: params}, true
		}
	}
	return nil, false
}

// matchPattern walks one pattern against the path segments.
func matchPattern(p *pattern.Pattern, segs []string) (Params, bool) {
	var params Params
	if n := len(p.Params()); n > 0 {
		params = make(Params, 0, n)
	}
	return walk(p, 0, segs, params)
}

// walk matches pattern segments from i onward against segs. Optional
// segments try to consume first and fall back to binding nothing.
func walk(p *pattern.Pattern, i int, segs []string, params Params) (Params, bool) {
	for ; i < p.Len(); i++ {
		seg := p.At(i)
		switch seg.Kind {
		case pattern.Literal:
			if len(segs) == 0 || segs[0] != seg.Value {
				return nil, false
			}
			segs = segs[1:]

		case pattern.Required:
			if len(segs) == 0 {
				return nil, false
			}
			params = append(params, Param{Name: seg.Value, Kind: seg.Kind, Value: segs[0], Present: true})
			segs = segs[1:]

		case pattern.Optional:
			if len(segs) > 0 {
				bound := append(params, Param{Name: seg.Value, Kind: seg.Kind, Value: segs[0], Present: true})
				if out, ok := walk(p, i+1, segs[1:], bound); ok {
					return out, true
				}
				// The append above may share params' backing array; drop it.
				params = params[:len(params):len(params)]
			}
			params = append(params, Param{Name: seg.Value, Kind: seg.Kind})

		case pattern.CatchAll, pattern.OptionalCatchAll:
			if len(segs) == 0 && seg.Kind == pattern.CatchAll {
				return nil, false
			}
			rest := make([]string, len(segs))
			copy(rest, segs)
			params = append(params, Param{
				Name:     seg.Value,
				Kind:     seg.Kind,
				Value:    strings.Join(rest, "/"),
				Segments: rest,
				Present:  len(rest) > 0,
			})
			return params, true
		}
	}
	if len(segs) != 0 {
		return nil, false
	}
	return params, true
}
