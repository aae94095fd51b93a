package guide

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AnchorSlug derives the URL fragment for a heading: the text is lowercased,
// each whitespace rune becomes a hyphen, and everything that is not a letter,
// digit, hyphen or underscore is dropped.
//
//	AnchorSlug("controllerAs Syntax") == "controlleras-syntax"
//	AnchorSlug("$onInit")             == "oninit"
//
// The result is a fixed point: AnchorSlug(AnchorSlug(h)) == AnchorSlug(h).
func AnchorSlug(heading string) string {
	// Casers carry state, so one is built per call.
	lowered := cases.Lower(language.Und).String(strings.TrimSpace(heading))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}

// NormalizeAnchor strips a leading '#' and surrounding space from an anchor
// reference so "#oninit" and "oninit" resolve alike.
func NormalizeAnchor(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "#")
}
