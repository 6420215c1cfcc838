package pattern

import (
	"cmp"
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies a pattern segment.
type Kind uint8

const (
	// Literal matches one path segment exactly.
	Literal Kind = iota
	// Required binds exactly one path segment: [name].
	Required
	// Optional binds zero or one path segment: [[name]].
	Optional
	// CatchAll binds one or more trailing segments: [...name].
	CatchAll
	// OptionalCatchAll binds zero or more trailing segments: [[...name]].
	OptionalCatchAll
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Required:
		return "required"
	case Optional:
		return "optional"
	case CatchAll:
		return "catch-all"
	case OptionalCatchAll:
		return "optional-catch-all"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsParam reports whether the kind binds a parameter.
func (k Kind) IsParam() bool {
	return k != Literal
}

// IsCatchAll reports whether the kind consumes a run of trailing segments.
func (k Kind) IsCatchAll() bool {
	return k == CatchAll || k == OptionalCatchAll
}

// Segment is one atom of a compiled pattern.
type Segment struct {
	Kind Kind

	// Value is the literal text for Literal segments and the parameter
	// name for all other kinds.
	Value string
}

// String renders the segment in bracket syntax.
func (s Segment) String() string {
	switch s.Kind {
	case Required:
		return "[" + s.Value + "]"
	case Optional:
		return "[[" + s.Value + "]]"
	case CatchAll:
		return "[..." + s.Value + "]"
	case OptionalCatchAll:
		return "[[..." + s.Value + "]]"
	default:
		return s.Value
	}
}

// shape renders the segment with the parameter name erased.
func (s Segment) shape() string {
	if s.Kind == Literal {
		return s.Value
	}
	return Segment{Kind: s.Kind}.String()
}

// Key is the specificity key of a pattern. Patterns with a smaller key
// (per Compare) are more specific and are tried first. HasOptional is
// compared before HasCatchAll, so "/[[...path]]" (0,0,false,true) precedes
// "/[[lang]]/about" (0,0,true,false) and matches every path the latter
// would.
type Key struct {
	// Literals is the number of leading literal segments.
	Literals int

	// Required is the number of required parameters.
	Required int

	// HasOptional reports an Optional segment anywhere in the pattern.
	HasOptional bool

	// HasCatchAll reports a CatchAll or OptionalCatchAll segment.
	HasCatchAll bool
}

// Compare orders keys: -1 if k is more specific than o, +1 if less, 0 if equal.
// Fields compare lexicographically: more leading literals first, then more
// required parameters, then no optional before optional, then no catch-all
// before catch-all.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(o.Literals, k.Literals); c != 0 {
		return c
	}
	if c := cmp.Compare(o.Required, k.Required); c != 0 {
		return c
	}
	if c := cmp.Compare(btoi(k.HasOptional), btoi(o.HasOptional)); c != 0 {
		return c
	}
	return cmp.Compare(btoi(k.HasCatchAll), btoi(o.HasCatchAll))
}

// String renders the key as a tuple.
func (k Key) String() string {
	return fmt.Sprintf("(%d,%d,%t,%t)", k.Literals, k.Required, k.HasOptional, k.HasCatchAll)
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Pattern is a compiled route pattern. It is immutable once built.
type Pattern struct {
	source   string
	segments []Segment
	key      Key
}

// nameRegex matches valid parameter names.
var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Compile parses a pattern string into a Pattern.
// Empty segments (leading, trailing or doubled slashes) are ignored, so ""
// and "/" both compile to the empty pattern.
func Compile(src string) (*Pattern, error) {
	raw := splitSegments(src)
	p := &Pattern{
		source:   src,
		segments: make([]Segment, 0, len(raw)),
	}

	seen := make(map[string]struct{}, len(raw))
	leading := true

	for i, text := range raw {
		seg, err := parseSegment(text)
		if err != nil {
			return nil, newError(src, text, i, err)
		}

		if seg.Kind.IsCatchAll() && i != len(raw)-1 {
			return nil, newError(src, text, i, ErrMisplacedCatchAll)
		}

		if seg.Kind.IsParam() {
			if _, dup := seen[seg.Value]; dup {
				return nil, newError(src, text, i, ErrDuplicateParam)
			}
			seen[seg.Value] = struct{}{}
		}

		switch seg.Kind {
		case Literal:
			if leading {
				p.key.Literals++
			}
		case Required:
			p.key.Required++
		case Optional:
			p.key.HasOptional = true
		case CatchAll, OptionalCatchAll:
			p.key.HasCatchAll = true
		}
		if seg.Kind != Literal {
			leading = false
		}

		p.segments = append(p.segments, seg)
	}

	return p, nil
}

// MustCompile is like Compile but panics on error.
// It is intended for patterns known at init time.
func MustCompile(src string) *Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// parseSegment classifies one non-empty segment by its bracket shape.
func parseSegment(text string) (Segment, error) {
	if !strings.ContainsAny(text, "[]") {
		return Segment{Kind: Literal, Value: text}, nil
	}

	var (
		inner    string
		optional bool
	)
	switch {
	case len(text) >= 4 && strings.HasPrefix(text, "[[") && strings.HasSuffix(text, "]]"):
		inner, optional = text[2:len(text)-2], true
	case len(text) >= 2 && text[0] == '[' && text[len(text)-1] == ']':
		inner = text[1 : len(text)-1]
	default:
		// Unbalanced, or literal text outside the brackets.
		return Segment{}, ErrInvalidSegment
	}

	if strings.ContainsAny(inner, "[]") {
		return Segment{}, ErrInvalidSegment
	}

	name, catchAll := strings.CutPrefix(inner, "...")
	if !nameRegex.MatchString(name) {
		return Segment{}, ErrInvalidSegment
	}

	switch {
	case optional && catchAll:
		return Segment{Kind: OptionalCatchAll, Value: name}, nil
	case optional:
		return Segment{Kind: Optional, Value: name}, nil
	case catchAll:
		return Segment{Kind: CatchAll, Value: name}, nil
	default:
		return Segment{Kind: Required, Value: name}, nil
	}
}

// splitSegments splits on "/" and drops empty segments.
func splitSegments(s string) []string {
	parts := strings.Split(s, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Source returns the string the pattern was compiled from.
func (p *Pattern) Source() string {
	return p.source
}

// Len returns the number of segments.
func (p *Pattern) Len() int {
	return len(p.segments)
}

// At returns the i-th segment.
func (p *Pattern) At(i int) Segment {
	return p.segments[i]
}

// Segments returns a copy of the segment list.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Key returns the specificity key.
func (p *Pattern) Key() Key {
	return p.key
}

// Params returns the parameter names in pattern order.
func (p *Pattern) Params() []string {
	var names []string
	for _, seg := range p.segments {
		if seg.Kind.IsParam() {
			names = append(names, seg.Value)
		}
	}
	return names
}

// Tail returns the kind of the final segment, or Literal for an empty pattern.
func (p *Pattern) Tail() Kind {
	if len(p.segments) == 0 {
		return Literal
	}
	return p.segments[len(p.segments)-1].Kind
}

// String returns the canonical bracket form of the pattern.
// Compiling the result yields a pattern that matches the same paths.
func (p *Pattern) String() string {
	return join(p.segments, Segment.String)
}

// Shape returns the structural identity of the pattern: the canonical form
// with parameter names erased. Two patterns with equal shapes match exactly
// the same paths.
func (p *Pattern) Shape() string {
	return join(p.segments, Segment.shape)
}

func join(segments []Segment, render func(Segment) string) string {
	if len(segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(render(seg))
	}
	return b.String()
}
