// Package routepath normalizes request paths before they reach the matcher.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Result contains the result of path canonicalization.
type Result struct {
	// Path is the canonicalized path (without query string).
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Segments are the decoded, non-empty segments of Path.
	Segments []string

	// Changed indicates if the path was modified during canonicalization.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrBackslashInPath       = errors.New("routepath: path contains backslash")
	ErrNullByteInPath        = errors.New("routepath: path contains null byte")
	ErrInvalidPercentEscape  = errors.New("routepath: invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("routepath: path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("routepath: encoded slash (%2F) in non-catch-all segment")
)

// Canonicalize normalizes a request path:
//   - collapses repeated slashes and drops the trailing slash (except "/")
//   - removes "." segments and resolves ".." segments
//   - percent-decodes every segment into Result.Segments
//
// Backslashes, NUL bytes (literal or %00), malformed percent escapes and ".."
// escaping the root are rejected. A query string is split off and returned
// untouched.
func Canonicalize(input string) (Result, error) {
	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}

	var raw []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(raw) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			raw = raw[:len(raw)-1]
		default:
			raw = append(raw, seg)
		}
	}

	segments := make([]string, len(raw))
	for i, seg := range raw {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return Result{}, ErrInvalidPercentEscape
		}
		segments[i] = decoded
	}

	canonical := "/" + strings.Join(raw, "/")
	return Result{
		Path:     canonical,
		Query:    query,
		Segments: segments,
		Changed:  canonical != path,
	}, nil
}

// Segments splits a path on "/" and drops empty segments. It performs no
// decoding; "/" and "" both yield no segments.
func Segments(path string) []string {
	if path == "" || path == "/" {
		return nil
	}
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CheckSegment reports ErrEncodedSlashInSegment when a decoded value bound
// to a single-segment parameter contains "/", which means the request smuggled
// a %2F into it. Catch-all values may contain "/" and are not checked.
func CheckSegment(decoded string, isCatchAll bool) error {
	if !isCatchAll && strings.Contains(decoded, "/") {
		return ErrEncodedSlashInSegment
	}
	return nil
}

// SplitPathAndQuery splits a path into path and query components.
// The query is returned without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}
