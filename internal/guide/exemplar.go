package guide

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
)

// Language classifies the fence tag of an exemplar.
type Language int

const (
	LanguageUnknown Language = iota
	LanguageScript
	LanguageMarkup
	LanguageConfig
)

// String returns the string representation of the language
func (l Language) String() string {
	switch l {
	case LanguageScript:
		return "script"
	case LanguageMarkup:
		return "markup"
	case LanguageConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ParseLanguage maps a fence info string ("js", "html", "json", ...) to a
// Language. Only the first word of the info string is considered.
func ParseLanguage(info string) Language {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return LanguageUnknown
	}

	switch strings.ToLower(fields[0]) {
	case "js", "javascript", "jsx", "ts", "typescript", "mjs", "cjs":
		return LanguageScript
	case "html", "htm", "xml", "xhtml", "svg":
		return LanguageMarkup
	case "json", "jsonc", "json5", "yaml", "yml":
		return LanguageConfig
	default:
		return LanguageUnknown
	}
}

// Polarity tells whether an exemplar shows recommended or discouraged practice.
type Polarity int

const (
	PolarityRecommended Polarity = iota
	PolarityDiscouraged
)

// String returns the string representation of the polarity
func (p Polarity) String() string {
	if p == PolarityDiscouraged {
		return "DISCOURAGED"
	}
	return "RECOMMENDED"
}

// CodeExemplar is one verbatim illustrative snippet. Its content is opaque:
// it is never executed or compiled.
type CodeExemplar struct {
	Language Language
	// Info is the raw fence info string, e.g. "js" or "json avoid".
	Info     string
	Content  string
	Polarity Polarity
	// Line is the 1-based source line of the opening fence.
	Line int
}

// ContentHash returns the hex SHA-256 of the verbatim content.
func (e CodeExemplar) ContentHash() string {
	sum := sha256.Sum256([]byte(e.Content))
	return hex.EncodeToString(sum[:])
}

// Contains reports whether the exemplar content contains pattern.
func (e CodeExemplar) Contains(pattern string) bool {
	return pattern != "" && strings.Contains(e.Content, pattern)
}

// ConfigEntry is one top-level key of a configuration exemplar.
type ConfigEntry struct {
	Key   string
	Value interface{}
}

// ParseConfig decodes a configuration exemplar (JSON or YAML) into its
// top-level entries in source order.
func (e CodeExemplar) ParseConfig() ([]ConfigEntry, error) {
	if e.Language != LanguageConfig {
		return nil, guideerrors.NewParseError(guideerrors.ErrCodeNotConfig,
			fmt.Sprintf("exemplar is %s, not config", e.Language), nil)
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(e.Content), &root); err != nil {
		return nil, guideerrors.NewParseError(guideerrors.ErrCodeParseFailed,
			"invalid configuration exemplar", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, guideerrors.NewParseError(guideerrors.ErrCodeParseFailed,
			"empty configuration exemplar", nil)
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, guideerrors.NewParseError(guideerrors.ErrCodeParseFailed,
			"configuration exemplar is not a mapping", nil)
	}

	entries := make([]ConfigEntry, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		var value interface{}
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, guideerrors.NewParseError(guideerrors.ErrCodeParseFailed,
				"decoding key "+mapping.Content[i].Value, err)
		}
		entries = append(entries, ConfigEntry{Key: mapping.Content[i].Value, Value: value})
	}
	return entries, nil
}
