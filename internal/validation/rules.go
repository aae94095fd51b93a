package validation

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/renderer"
)

// reservedAnchors are ids the rendered page uses for itself.
var reservedAnchors = map[string]bool{
	"top":               true,
	"table-of-contents": true,
}

func checkUniqueAnchors(rc *ruleContext) {
	seen := make(map[string]*guide.Section)
	for s := range rc.doc.ListSections() {
		slug := s.AnchorSlug()
		switch {
		case slug == "":
			rc.report("", s.Line, "heading %q derives an empty anchor", s.Heading)
		case reservedAnchors[slug]:
			rc.report(slug, s.Line, "heading %q derives the reserved anchor #%s", s.Heading, slug)
		case seen[slug] != nil:
			rc.report(slug, s.Line, "heading %q derives #%s, already used by %q on line %d",
				s.Heading, slug, seen[slug].Heading, seen[slug].Line)
		default:
			seen[slug] = s
		}
	}
}

func checkTOCBijection(rc *ruleContext) {
	targeted := make(map[string]int)
	for _, entry := range rc.doc.TOC().Entries {
		target := guide.NormalizeAnchor(entry.Target)
		if !rc.doc.HasAnchor(target) {
			rc.report(target, entry.Line, "table of contents entry %q: %s",
				entry.Title, guideerrors.ErrAnchorNotFound(target).Message)
			continue
		}
		targeted[target]++
		if targeted[target] == 2 {
			rc.report(target, entry.Line, "table of contents lists #%s more than once", target)
		}
	}

	for s := range rc.doc.ListSections() {
		if targeted[s.AnchorSlug()] == 0 {
			rc.report(s.AnchorSlug(), s.Line, "section %q has no table of contents entry", s.Heading)
		}
	}
}

// checkTOCOrder compares the order of the entries that resolve with the order
// of the sections they resolve to. Missing and unresolvable entries are left
// to the bijection rule.
func checkTOCOrder(rc *ruleContext) {
	listed := make(map[string]bool)
	var tocOrder []guide.TOCEntry
	for _, entry := range rc.doc.TOC().Entries {
		target := guide.NormalizeAnchor(entry.Target)
		if rc.doc.HasAnchor(target) && !listed[target] {
			listed[target] = true
			tocOrder = append(tocOrder, entry)
		}
	}

	i := 0
	for s := range rc.doc.ListSections() {
		if !listed[s.AnchorSlug()] {
			continue
		}
		entry := tocOrder[i]
		if target := guide.NormalizeAnchor(entry.Target); target != s.AnchorSlug() {
			rc.report(target, entry.Line,
				"table of contents lists #%s where #%s is expected", target, s.AnchorSlug())
			return
		}
		i++
	}
}

// Patterns returns the discouraged patterns that apply to s.
func (o *Options) Patterns(s *guide.Section) []string {
	patterns := append([]string(nil), s.Avoid...)
	patterns = append(patterns, o.Discouraged[AllSections]...)
	patterns = append(patterns, o.Discouraged[s.AnchorSlug()]...)
	return patterns
}

func checkRecommendedExemplars(rc *ruleContext) {
	for s := range rc.doc.ListSections() {
		patterns := rc.opts.Patterns(s)
		if len(patterns) == 0 {
			continue
		}
		for _, e := range s.ExemplarsByPolarity(guide.PolarityRecommended) {
			for _, pattern := range patterns {
				if e.Contains(pattern) {
					rc.report(s.AnchorSlug(), e.Line,
						"recommended %s exemplar contains discouraged pattern %q", e.Language, pattern)
				}
			}
		}
	}
}

func checkBackToTop(rc *ruleContext) {
	last := rc.doc.Len() - 1
	i := 0
	for s := range rc.doc.ListSections() {
		if i < last && !s.BackToTop {
			rc.report(s.AnchorSlug(), s.Line, "section %q has no back-to-top link", s.Heading)
		}
		i++
	}
}

func checkConfigExemplars(rc *ruleContext) {
	for s := range rc.doc.ListSections() {
		for _, e := range s.Exemplars {
			if e.Language != guide.LanguageConfig {
				continue
			}
			if _, err := e.ParseConfig(); err != nil {
				rc.report(s.AnchorSlug(), e.Line, "configuration exemplar does not parse: %v", err)
			}
		}
	}
}

func checkDuplicateExemplars(rc *ruleContext) {
	type origin struct {
		slug string
		line int
	}
	seen := make(map[string]origin)
	for s := range rc.doc.ListSections() {
		for _, e := range s.Exemplars {
			if strings.TrimSpace(e.Content) == "" {
				continue
			}
			hash := e.ContentHash()
			if first, ok := seen[hash]; ok {
				rc.report(s.AnchorSlug(), e.Line,
					"exemplar duplicates the one in #%s on line %d", first.slug, first.line)
				continue
			}
			seen[hash] = origin{slug: s.AnchorSlug(), line: e.Line}
		}
	}
}

func checkHTMLAnchors(rc *ruleContext) {
	var buf bytes.Buffer
	if err := renderer.Page(rc.doc, renderer.PageOptions{}).Render(context.Background(), &buf); err != nil {
		rc.report("", 0, "rendering HTML: %v", err)
		return
	}

	root, err := html.Parse(&buf)
	if err != nil {
		rc.report("", 0, "parsing rendered HTML: %v", err)
		return
	}

	ids := make(map[string]bool)
	var hrefs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				switch {
				case attr.Key == "id":
					ids[attr.Val] = true
				case attr.Key == "href" && n.Data == "a" && strings.HasPrefix(attr.Val, "#"):
					hrefs = append(hrefs, attr.Val[1:])
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	reported := make(map[string]bool)
	for _, target := range hrefs {
		if ids[target] || reported[target] {
			continue
		}
		reported[target] = true
		rc.report(target, 0, "rendered link #%s has no matching id", target)
	}
}
