package errors

import (
	"encoding/json"
	goerrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"pattern error", "R101", "Invalid pattern segment", CategoryPattern},
		{"route error", "R201", "Duplicate route", CategoryRoute},
		{"config error", "R302", "Invalid configuration file", CategoryConfig},
		{"manifest error", "R403", "Unknown handler", CategoryManifest},
		{"unknown error code", "R999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewCopiesSuggestion(t *testing.T) {
	if New("R102").Suggestion == "" {
		t.Error("template suggestion not copied")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "routes.json")
	if err.Message != `file "routes.json" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q", err.Category)
	}
}

func TestError_Error(t *testing.T) {
	if got := New("R201").Error(); got != "R201: Duplicate route" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&Error{Message: "test error"}).Error(); got != "test error" {
		t.Errorf("Error() = %q", got)
	}
	if got := New("R401").Wrap(goerrors.New("timeout")).Error(); got != "R401: Manifest could not be read: timeout" {
		t.Errorf("Error() = %q", got)
	}
}

func TestError_WithLocation(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "routes.json")
	content := "{\n  \"routes\": [\n    {\"pattern\": \"/\",,}\n  ]\n}\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("R402").WithLocation(tmpFile, 3, 21)
	if err.Location == nil || err.Location.File != tmpFile || err.Location.Line != 3 || err.Location.Column != 21 {
		t.Fatalf("Location = %+v", err.Location)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}

	if e := New("R204").WithFile("blog/[id.go"); e.Location.String() != "blog/[id.go" || e.Context != nil {
		t.Errorf("WithFile location = %q", e.Location.String())
	}
}

func TestError_Builders(t *testing.T) {
	err := New("R101").
		WithDetail("Custom detail").
		WithSuggestion("Use [id]").
		WithExample("/users/[id]")
	if err.Detail != "Custom detail" || err.Suggestion != "Use [id]" || err.Example != "/users/[id]" {
		t.Errorf("err = %+v", err)
	}
}

func TestError_Wrap(t *testing.T) {
	inner := goerrors.New("disk")
	outer := New("R401").Wrap(inner)
	if outer.Unwrap() != inner || !goerrors.Is(outer, inner) {
		t.Error("Unwrap() should return wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "R502") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	e := New("R201")
	if FromError(e, "R502") != e {
		t.Error("FromError should return *Error as-is")
	}

	std := goerrors.New("listen tcp: address in use")
	if got := FromError(std, "R502"); got.Wrapped != std || got.Code != "R502" {
		t.Errorf("FromError() = %+v", got)
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"nil location", nil, ""},
		{"file only", &Location{File: "a.go"}, "a.go"},
		{"with column", &Location{File: "test.go", Line: 10, Column: 5}, "test.go:10:5"},
		{"without column", &Location{File: "test.go", Line: 10}, "test.go:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tmpFile := filepath.Join(t.TempDir(), "routes.json")
	if err := os.WriteFile(tmpFile, []byte("{\n  \"routes\": [\n    {,}\n  ]\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	formatted := New("R402").
		WithLocation(tmpFile, 3, 6).
		Wrap(goerrors.New("invalid character ','")).
		WithExample(`{"routes":[]}`).
		Format()

	for _, want := range []string{"R402", "Invalid manifest", tmpFile, "→", "^", "Cause: invalid character", "Hint:", "Example:", "Learn more:"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("R201").WithLocation("routes.json", 10, 5)
	if got := err.FormatCompact(); got != "routes.json:10:5: R201: Duplicate route" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	out := New("R201").WithLocation("routes.json", 10, 5).Wrap(goerrors.New("dup")).FormatJSON()

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("FormatJSON() is not JSON: %v (%s)", err, out)
	}
	if decoded["code"] != "R201" || decoded["category"] != "route" || decoded["cause"] != "dup" {
		t.Errorf("decoded = %v", decoded)
	}
	loc, _ := decoded["location"].(map[string]any)
	if loc["file"] != "routes.json" || loc["line"] != float64(10) {
		t.Errorf("location = %v", loc)
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	found := false
	for _, code := range codes {
		if !strings.HasPrefix(code, "R") || len(code) != 4 {
			t.Errorf("malformed code %q", code)
		}
		if code == "R101" {
			found = true
		}
	}
	if !found {
		t.Error("R101 should be in the codes list")
	}
}

func TestGetTemplateAndRegister(t *testing.T) {
	if tmpl, ok := GetTemplate("R201"); !ok || tmpl.Message != "Duplicate route" {
		t.Errorf("GetTemplate(R201) = %+v, %v", tmpl, ok)
	}
	if _, ok := GetTemplate("R999"); ok {
		t.Error("R999 should not exist")
	}

	Register("R999", ErrorTemplate{Category: CategoryCLI, Message: "Custom test error"})
	defer delete(registry, "R999")
	if New("R999").Message != "Custom test error" {
		t.Error("registered template not used")
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short text", 100); len(got) != 1 || got[0] != "short text" {
		t.Errorf("short text: %v", got)
	}
	if got := wrapText("this is a longer text that should be wrapped", 20); len(got) != 3 {
		t.Errorf("long text: expected 3 lines, got %d: %v", len(got), got)
	}
	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("empty: %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}
	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
