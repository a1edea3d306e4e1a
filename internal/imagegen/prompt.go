// Package imagegen generates scene images through the OpenAI Images API with
// a primary/fallback model strategy and a local placeholder when both fail.
package imagegen

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	maxSegmentChars = 500
	maxPromptChars  = 900
)

//go:embed styles.yaml
var stylesYAML []byte

type styleTable struct {
	Default string            `yaml:"default"`
	Styles  map[string]string `yaml:"styles"`
}

var styles = mustLoadStyles()

func mustLoadStyles() styleTable {
	var t styleTable
	if err := yaml.Unmarshal(stylesYAML, &t); err != nil {
		panic(fmt.Sprintf("imagegen: parse styles.yaml: %v", err))
	}
	return t
}

// ExpandStyle maps a style keyword to its prompt expansion, falling back to
// the default expansion for unknown keywords.
func ExpandStyle(style string) string {
	if expanded, ok := styles.Styles[strings.ToLower(strings.TrimSpace(style))]; ok {
		return expanded
	}
	return styles.Default
}

// ScenePrompt builds the deterministic generation prompt for one scene. The
// segment is truncated before templating and the whole prompt is capped so
// oversized scripts cannot blow the API's prompt budget.
func ScenePrompt(segment, characterDescription, style string, sceneNumber int) string {
	segment = truncate(strings.TrimSpace(segment), maxSegmentChars)

	titler := cases.Title(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, "Scene %d", sceneNumber)
	if c := strings.TrimSpace(characterDescription); c != "" {
		b.WriteString(": ")
		b.WriteString(c)
	}
	fmt.Fprintf(&b, ", %s style: %s.", titler.String(strings.TrimSpace(style)), ExpandStyle(style))
	if segment != "" {
		b.WriteString(" ")
		b.WriteString(segment)
	}
	return truncate(b.String(), maxPromptChars)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
