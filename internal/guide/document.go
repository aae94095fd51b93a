// Package guide holds the structural model of a style guide: a Document made
// of an ordered list of Sections and a table of contents linking to them by
// anchor slug. The model is read-only once built and safe for concurrent
// readers.
package guide

import (
	"iter"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
)

// TOCEntry is one table-of-contents link.
type TOCEntry struct {
	Title string
	// Target is the anchor without the leading '#'.
	Target string
	Line   int
}

// TableOfContents is the ordered list of links at the top of a guide.
type TableOfContents struct {
	Entries []TOCEntry
}

// Len returns the number of entries.
func (t TableOfContents) Len() int {
	return len(t.Entries)
}

// Targets returns the entry targets in order.
func (t TableOfContents) Targets() []string {
	out := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Target
	}
	return out
}

// BuildTOC derives a table of contents from sections, one entry per section
// in order.
func BuildTOC(sections []*Section) TableOfContents {
	entries := make([]TOCEntry, len(sections))
	for i, s := range sections {
		entries[i] = TOCEntry{Title: s.Heading, Target: s.AnchorSlug()}
	}
	return TableOfContents{Entries: entries}
}

// Document is a style guide: a title, its sections in authoring order and
// the table of contents.
type Document struct {
	Title string
	// Intro is the prose between the title and the first section.
	Intro string
	// Path is the file the document was loaded from, if any.
	Path string
	// Hash is a checksum of the source used for change detection.
	Hash string

	sections []*Section
	toc      TableOfContents
	index    map[string]int
}

// NewDocument builds a Document. It fails with a duplicate-anchor error when
// two sections derive the same slug, and with an empty-anchor error when a
// heading derives no slug.
func NewDocument(title string, toc TableOfContents, sections []*Section) (*Document, error) {
	index := make(map[string]int, len(sections))
	for i, s := range sections {
		slug := s.AnchorSlug()
		if slug == "" {
			return nil, guideerrors.ErrEmptyAnchor(s.Heading).WithLocation("", s.Line)
		}
		if prev, exists := index[slug]; exists {
			return nil, guideerrors.ErrDuplicateAnchor(slug, sections[prev].Heading, s.Heading).
				WithLocation("", s.Line)
		}
		index[slug] = i
	}

	owned := make([]*Section, len(sections))
	copy(owned, sections)
	entries := make([]TOCEntry, len(toc.Entries))
	copy(entries, toc.Entries)

	return &Document{
		Title:    title,
		sections: owned,
		toc:      TableOfContents{Entries: entries},
		index:    index,
	}, nil
}

// ListSections yields the sections in authoring order. The sequence is
// finite and may be ranged over any number of times.
func (d *Document) ListSections() iter.Seq[*Section] {
	return func(yield func(*Section) bool) {
		for _, s := range d.sections {
			if !yield(s) {
				return
			}
		}
	}
}

// Sections returns a copy of the section slice.
func (d *Document) Sections() []*Section {
	out := make([]*Section, len(d.sections))
	copy(out, d.sections)
	return out
}

// Len returns the number of sections.
func (d *Document) Len() int {
	return len(d.sections)
}

// Section returns the i-th section.
func (d *Document) Section(i int) *Section {
	return d.sections[i]
}

// TOC returns the table of contents as authored.
func (d *Document) TOC() TableOfContents {
	return d.toc
}

// ResolveAnchor returns the section whose slug equals slug. A leading '#'
// is accepted.
func (d *Document) ResolveAnchor(slug string) (*Section, error) {
	slug = NormalizeAnchor(slug)
	i, ok := d.index[slug]
	if !ok {
		return nil, guideerrors.ErrAnchorNotFound(slug).WithLocation(d.Path, 0)
	}
	return d.sections[i], nil
}

// HasAnchor reports whether slug resolves to a section.
func (d *Document) HasAnchor(slug string) bool {
	_, ok := d.index[NormalizeAnchor(slug)]
	return ok
}
