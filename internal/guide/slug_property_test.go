//go:build property

package guide

import (
	"reflect"
	"strings"
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAnchorSlugProperties validates slug derivation properties
func TestAnchorSlugProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(13579)
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	headings := gen.OneGenOf(
		gen.AnyString(),
		gen.AlphaString(),
		gen.SliceOf(gen.OneConstOf("Avoid", "$scope", "controllerAs", "One-time", "_", " ", "&", "É", "2"), reflect.TypeOf("")).
			Map(func(parts []string) string { return strings.Join(parts, " ") }),
	)

	properties.Property("slug is idempotent", prop.ForAll(
		func(heading string) bool {
			slug := AnchorSlug(heading)
			return AnchorSlug(slug) == slug
		},
		headings,
	))

	properties.Property("slug contains only letters, digits, hyphens and underscores", prop.ForAll(
		func(heading string) bool {
			for _, r := range AnchorSlug(heading) {
				if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
					return false
				}
			}
			return true
		},
		headings,
	))

	properties.Property("ascii slugs are lowercase", prop.ForAll(
		func(heading string) bool {
			slug := AnchorSlug(heading)
			return slug == strings.ToLower(slug)
		},
		gen.AlphaString(),
	))

	properties.Property("slug is deterministic", prop.ForAll(
		func(heading string) bool {
			return AnchorSlug(heading) == AnchorSlug(heading)
		},
		headings,
	))

	properties.Property("sections with distinct slugs always build", prop.ForAll(
		func(words []string) bool {
			seen := make(map[string]bool)
			var secs []*Section
			for _, w := range words {
				slug := AnchorSlug(w)
				if slug == "" || seen[slug] {
					continue
				}
				seen[slug] = true
				secs = append(secs, &Section{Heading: w})
			}
			doc, err := NewDocument("T", BuildTOC(secs), secs)
			if err != nil {
				return false
			}
			for _, target := range doc.TOC().Targets() {
				if !doc.HasAnchor(target) {
					return false
				}
			}
			return doc.Len() == len(secs)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
