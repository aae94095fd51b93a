// Package markdown loads a style guide written in markdown into the
// guide.Document model.
//
// The expected layout is a level-1 title, an optional table of contents
// under a level-2 "Table of Contents" heading, and one level-2 heading per
// section. Within a section, paragraphs become prose, list items become
// rationale bullets, blockquotes become notes and fenced code blocks become
// exemplars. An HTML comment of the form
//
//	<!-- avoid: $scope | new GlideRecord -->
//
// declares patterns that must not appear in the section's recommended
// exemplars.
package markdown

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/guide"
)

// DefaultTOCHeadings are the heading slugs recognised as a table of contents.
var DefaultTOCHeadings = []string{"table-of-contents", "contents", "toc"}

// Loader parses markdown guides.
type Loader struct {
	md         goldmark.Markdown
	tocSlugs   map[string]bool
	crc32Table *crc32.Table
}

// Option configures a Loader.
type Option func(*Loader)

// WithTOCHeading adds a heading recognised as the table of contents. The
// heading is compared by slug.
func WithTOCHeading(heading string) Option {
	return func(l *Loader) {
		if slug := guide.AnchorSlug(heading); slug != "" {
			l.tocSlugs[slug] = true
		}
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		md:         goldmark.New(),
		tocSlugs:   make(map[string]bool, len(DefaultTOCHeadings)),
		crc32Table: crc32.MakeTable(crc32.Castagnoli),
	}
	for _, slug := range DefaultTOCHeadings {
		l.tocSlugs[slug] = true
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses the guide at path.
func (l *Loader) Load(path string) (*guide.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, guideerrors.NewIOError(guideerrors.ErrCodeFileNotFound, "guide not found", err).
				WithLocation(path, 0)
		}
		return nil, guideerrors.NewIOError(guideerrors.ErrCodeInvalidPath, "reading guide", err).
			WithLocation(path, 0)
	}
	return l.Parse(path, src)
}

// Hash returns the checksum Parse stores in Document.Hash.
func (l *Loader) Hash(src []byte) string {
	return fmt.Sprintf("%08x", crc32.Checksum(src, l.crc32Table))
}

// Parse builds a Document from src. path is only used for error locations
// and Document.Path.
func (l *Loader) Parse(path string, src []byte) (*guide.Document, error) {
	root := l.md.Parser().Parse(text.NewReader(src))

	b := &builder{src: src, tocSlugs: l.tocSlugs}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		b.block(n)
	}
	b.flush()

	doc, err := guide.NewDocument(b.title, guide.TableOfContents{Entries: b.toc}, b.sections)
	if err != nil {
		pe := guideerrors.WrapParse(err, guideerrors.ErrCodeParseFailed, "invalid guide structure")
		return nil, pe.WithLocation(path, pe.Line)
	}
	doc.Path = path
	doc.Intro = strings.Join(b.intro, "\n\n")
	doc.Hash = l.Hash(src)
	return doc, nil
}

// builder accumulates state while walking the top-level blocks.
type builder struct {
	src      []byte
	tocSlugs map[string]bool

	title    string
	intro    []string
	toc      []guide.TOCEntry
	sections []*guide.Section

	inTOC   bool
	current *guide.Section
	body    []string

	// lastText is the paragraph right before the next exemplar, cleared
	// by any other block except exemplars and HTML comments. subheading is
	// the level-3+ heading the next exemplar sits under.
	lastText   string
	subheading string
}

func (b *builder) flush() {
	if b.current == nil {
		return
	}
	b.current.Body = strings.Join(b.body, "\n\n")
	b.sections = append(b.sections, b.current)
	b.current = nil
	b.body = nil
	b.lastText = ""
	b.subheading = ""
}

func (b *builder) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		b.heading(node)
	case *ast.List:
		b.list(node)
	case *ast.Paragraph:
		b.paragraph(node)
	case *ast.FencedCodeBlock:
		b.fenced(node)
	case *ast.CodeBlock:
		if b.current != nil {
			b.current.Exemplars = append(b.current.Exemplars, guide.CodeExemplar{
				Content:  blockLines(node, b.src),
				Polarity: ClassifyPolarity("", b.lastText, b.subheading),
				Line:     lineOf(node, b.src),
			})
		}
	case *ast.Blockquote:
		b.lastText = ""
		if b.current != nil {
			b.current.Notes = append(b.current.Notes, blockText(node, b.src))
		}
	case *ast.HTMLBlock:
		if b.current != nil {
			raw := blockLines(node, b.src)
			if node.HasClosure() {
				raw += string(node.ClosureLine.Value(b.src))
			}
			b.current.Avoid = append(b.current.Avoid, parseAvoidDirective(raw)...)
		}
	default:
		b.lastText = ""
	}
}

func (b *builder) heading(h *ast.Heading) {
	title := inlineText(h, b.src, false)

	switch {
	case h.Level == 1 && b.title == "":
		b.title = title
	case h.Level <= 2:
		b.flush()
		b.inTOC = b.tocSlugs[guide.AnchorSlug(title)]
		if !b.inTOC {
			b.current = &guide.Section{Heading: title, Line: lineOf(h, b.src)}
		}
	case b.current != nil:
		sub := inlineText(h, b.src, true)
		b.body = append(b.body, strings.Repeat("#", h.Level)+" "+sub)
		b.lastText = ""
		b.subheading = sub
	}
}

func (b *builder) list(list *ast.List) {
	b.lastText = ""
	if b.inTOC {
		ast.Walk(list, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			link, ok := n.(*ast.Link)
			if !entering || !ok || !bytes.HasPrefix(link.Destination, []byte("#")) {
				return ast.WalkContinue, nil
			}
			b.toc = append(b.toc, guide.TOCEntry{
				Title:  inlineText(link, b.src, false),
				Target: guide.NormalizeAnchor(string(link.Destination)),
				Line:   lineOf(link, b.src),
			})
			return ast.WalkSkipChildren, nil
		})
		return
	}
	if b.current == nil {
		return
	}

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if b.isBackToTop(item) {
			b.current.BackToTop = true
			continue
		}
		b.current.Rationale = append(b.current.Rationale, blockText(item, b.src))
	}
}

func (b *builder) paragraph(p *ast.Paragraph) {
	if b.current == nil {
		if !b.inTOC && b.title != "" {
			b.intro = append(b.intro, inlineText(p, b.src, true))
		}
		return
	}
	if b.isBackToTop(p) {
		b.current.BackToTop = true
		return
	}

	para := inlineText(p, b.src, true)
	b.body = append(b.body, para)
	b.lastText = para
}

func (b *builder) fenced(f *ast.FencedCodeBlock) {
	if b.current == nil {
		return
	}

	var info string
	line := lineOf(f, b.src)
	if f.Info != nil {
		info = strings.TrimSpace(string(f.Info.Segment.Value(b.src)))
		line = lineAt(b.src, f.Info.Segment.Start)
	} else if line > 1 {
		line--
	}

	b.current.Exemplars = append(b.current.Exemplars, guide.CodeExemplar{
		Language: guide.ParseLanguage(info),
		Info:     info,
		Content:  blockLines(f, b.src),
		Polarity: ClassifyPolarity(info, b.lastText, b.subheading),
		Line:     line,
	})
}

// isBackToTop reports whether n links back to the table of contents.
func (b *builder) isBackToTop(n ast.Node) bool {
	found := false
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		link, ok := c.(*ast.Link)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}
		target := guide.NormalizeAnchor(string(link.Destination))
		label := strings.ToLower(inlineText(link, b.src, false))
		if b.tocSlugs[target] || target == "top" || strings.Contains(label, "back to top") {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	return found
}
