package pattern

import (
	"net/url"
	"strings"
)

// Build renders a concrete path from parameter values.
//
// Catch-all values are slash-separated ("a/b/c"); each of their segments is
// escaped individually. Missing Optional and OptionalCatchAll values are
// omitted. A missing or empty Required or CatchAll value fails with
// ErrMissingParam.
//
//	p := pattern.MustCompile("/[[lang]]/docs/[...slug]")
//	p.Build(map[string]string{"slug": "guide/routing"}) // "/docs/guide/routing"
func (p *Pattern) Build(values map[string]string) (string, error) {
	var b strings.Builder

	for i, seg := range p.segments {
		switch seg.Kind {
		case Literal:
			b.WriteByte('/')
			b.WriteString(seg.Value)

		case Required, Optional:
			v := values[seg.Value]
			if v == "" {
				if seg.Kind == Optional {
					continue
				}
				return "", newError(p.source, seg.String(), i, ErrMissingParam)
			}
			b.WriteByte('/')
			b.WriteString(url.PathEscape(v))

		case CatchAll, OptionalCatchAll:
			parts := splitSegments(values[seg.Value])
			if len(parts) == 0 {
				if seg.Kind == OptionalCatchAll {
					continue
				}
				return "", newError(p.source, seg.String(), i, ErrMissingParam)
			}
			for _, part := range parts {
				b.WriteByte('/')
				b.WriteString(url.PathEscape(part))
			}
		}
	}

	if b.Len() == 0 {
		return "/", nil
	}
	return b.String(), nil
}
