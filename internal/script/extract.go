package script

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultScriptText is substituted when no usable script text can be obtained.
const DefaultScriptText = "Generate images based on the uploaded content."

var (
	htmlTagRe    = regexp.MustCompile(`(?s)<script.*?</script>|<style.*?</style>|<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Extractor pulls plain text out of uploaded script documents.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractText reads the file at path and returns its textual content. HTML
// files are stripped of markup; everything else is treated as plain text.
func (e *Extractor) ExtractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text = htmlTagRe.ReplaceAllString(text, " ")
		text = whitespaceRe.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text), nil
}

// ExtractOrFallback extracts text from path, degrading to rawText and then to
// DefaultScriptText. Extraction failure never becomes a job failure.
func (e *Extractor) ExtractOrFallback(path, rawText string) string {
	if path != "" {
		if text, err := e.ExtractText(path); err == nil && text != "" {
			return text
		}
	}
	if t := strings.TrimSpace(rawText); t != "" {
		return t
	}
	return DefaultScriptText
}
