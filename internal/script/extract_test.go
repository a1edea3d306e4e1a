package script

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractTextPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(path, []byte("  a story about rain  "), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().ExtractText(path)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "a story about rain" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.html")
	html := `<html><head><style>p{color:red}</style></head><body><p>first line</p><p>second line</p></body></html>`
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().ExtractText(path)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "first line second line" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractOrFallback(t *testing.T) {
	e := NewExtractor()
	if got := e.ExtractOrFallback("/no/such/file", "raw text here"); got != "raw text here" {
		t.Fatalf("expected raw text fallback, got %q", got)
	}
	if got := e.ExtractOrFallback("/no/such/file", " "); got != DefaultScriptText {
		t.Fatalf("expected default text, got %q", got)
	}
}
