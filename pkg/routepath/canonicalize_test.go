package routepath

import (
	"errors"
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantPath     string
		wantQuery    string
		wantSegments []string
		wantChanged  bool
		wantErr      error
	}{
		{
			name:         "root",
			input:        "/",
			wantPath:     "/",
			wantSegments: []string{},
		},
		{
			name:         "empty string",
			input:        "",
			wantPath:     "/",
			wantSegments: []string{},
			wantChanged:  true,
		},
		{
			name:         "no leading slash",
			input:        "about",
			wantPath:     "/about",
			wantSegments: []string{"about"},
			wantChanged:  true,
		},
		{
			name:         "collapse slashes",
			input:        "/blog//post",
			wantPath:     "/blog/post",
			wantSegments: []string{"blog", "post"},
			wantChanged:  true,
		},
		{
			name:         "trailing slash",
			input:        "/blog/",
			wantPath:     "/blog",
			wantSegments: []string{"blog"},
			wantChanged:  true,
		},
		{
			name:         "single dot",
			input:        "/blog/./post",
			wantPath:     "/blog/post",
			wantSegments: []string{"blog", "post"},
			wantChanged:  true,
		},
		{
			name:         "double dot",
			input:        "/blog/posts/../other",
			wantPath:     "/blog/other",
			wantSegments: []string{"blog", "other"},
			wantChanged:  true,
		},
		{
			name:         "query preserved",
			input:        "/projects/123?tab=details",
			wantPath:     "/projects/123",
			wantQuery:    "tab=details",
			wantSegments: []string{"projects", "123"},
		},
		{
			name:         "query escapes not validated",
			input:        "/projects?bad=%GG",
			wantPath:     "/projects",
			wantQuery:    "bad=%GG",
			wantSegments: []string{"projects"},
		},
		{
			name:         "segments decoded",
			input:        "/search/hello%20world/a%2Fb",
			wantPath:     "/search/hello%20world/a%2Fb",
			wantSegments: []string{"search", "hello world", "a/b"},
		},
		{
			name:    "backslash",
			input:   "/a\\b",
			wantErr: ErrBackslashInPath,
		},
		{
			name:    "encoded nul",
			input:   "/a%00b",
			wantErr: ErrNullByteInPath,
		},
		{
			name:    "bad escape",
			input:   "/a%GG",
			wantErr: ErrInvalidPercentEscape,
		},
		{
			name:    "truncated escape",
			input:   "/a%2",
			wantErr: ErrInvalidPercentEscape,
		},
		{
			name:    "escapes root",
			input:   "/../secret",
			wantErr: ErrPathEscapesRoot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Canonicalize(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Canonicalize(%q) error = %v", tt.input, err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if got.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", got.Query, tt.wantQuery)
			}
			if !reflect.DeepEqual(got.Segments, tt.wantSegments) {
				t.Errorf("Segments = %q, want %q", got.Segments, tt.wantSegments)
			}
			if got.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"///", nil},
		{"/a", []string{"a"}},
		{"a/b/", []string{"a", "b"}},
		{"//a//b//", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := Segments(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Segments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckSegment(t *testing.T) {
	if err := CheckSegment("a/b", false); !errors.Is(err, ErrEncodedSlashInSegment) {
		t.Errorf("CheckSegment(a/b, false) = %v", err)
	}
	if err := CheckSegment("a/b", true); err != nil {
		t.Errorf("CheckSegment(a/b, true) = %v", err)
	}
	if err := CheckSegment("ab", false); err != nil {
		t.Errorf("CheckSegment(ab, false) = %v", err)
	}
}

func TestSplitPathAndQuery(t *testing.T) {
	p, q := SplitPathAndQuery("/a/b?x=1&y=2")
	if p != "/a/b" || q != "x=1&y=2" {
		t.Errorf("SplitPathAndQuery = %q, %q", p, q)
	}
	p, q = SplitPathAndQuery("/a")
	if p != "/a" || q != "" {
		t.Errorf("SplitPathAndQuery = %q, %q", p, q)
	}
}
