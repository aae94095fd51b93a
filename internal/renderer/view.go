package renderer

import (
	"encoding/json"
	"io"

	"github.com/conneroisu/guidebook/internal/guide"
)

// DocumentView is the serialisable form of a Document.
type DocumentView struct {
	Title    string         `json:"title" yaml:"title"`
	Path     string         `json:"path,omitempty" yaml:"path,omitempty"`
	Hash     string         `json:"hash,omitempty" yaml:"hash,omitempty"`
	TOC      []TOCEntryView `json:"toc" yaml:"toc"`
	Sections []SectionView  `json:"sections" yaml:"sections"`
}

// TOCEntryView is a table-of-contents entry and whether it resolves.
type TOCEntryView struct {
	Title    string `json:"title" yaml:"title"`
	Target   string `json:"target" yaml:"target"`
	Resolves bool   `json:"resolves" yaml:"resolves"`
}

// SectionView is the serialisable form of a Section.
type SectionView struct {
	Heading   string         `json:"heading" yaml:"heading"`
	Slug      string         `json:"slug" yaml:"slug"`
	Line      int            `json:"line,omitempty" yaml:"line,omitempty"`
	Body      string         `json:"body,omitempty" yaml:"body,omitempty"`
	Rationale []string       `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Notes     []string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	Avoid     []string       `json:"avoid,omitempty" yaml:"avoid,omitempty"`
	BackToTop bool           `json:"back_to_top" yaml:"back_to_top"`
	Exemplars []ExemplarView `json:"exemplars,omitempty" yaml:"exemplars,omitempty"`
}

// ExemplarView is the serialisable form of a CodeExemplar.
type ExemplarView struct {
	Language string `json:"language" yaml:"language"`
	Info     string `json:"info,omitempty" yaml:"info,omitempty"`
	Polarity string `json:"polarity" yaml:"polarity"`
	Hash     string `json:"hash" yaml:"hash"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
	Content  string `json:"content" yaml:"content"`
}

// View builds the serialisable view of doc.
func View(doc *guide.Document) DocumentView {
	view := DocumentView{
		Title:    doc.Title,
		Path:     doc.Path,
		Hash:     doc.Hash,
		TOC:      make([]TOCEntryView, 0, doc.TOC().Len()),
		Sections: make([]SectionView, 0, doc.Len()),
	}
	for _, entry := range doc.TOC().Entries {
		view.TOC = append(view.TOC, TOCEntryView{
			Title:    entry.Title,
			Target:   entry.Target,
			Resolves: doc.HasAnchor(entry.Target),
		})
	}
	for s := range doc.ListSections() {
		view.Sections = append(view.Sections, ViewSection(s))
	}
	return view
}

// ViewSection builds the serialisable view of a section.
func ViewSection(s *guide.Section) SectionView {
	sv := SectionView{
		Heading:   s.Heading,
		Slug:      s.AnchorSlug(),
		Line:      s.Line,
		Body:      s.Body,
		Rationale: s.Rationale,
		Notes:     s.Notes,
		Avoid:     s.Avoid,
		BackToTop: s.BackToTop,
	}
	for _, e := range s.Exemplars {
		sv.Exemplars = append(sv.Exemplars, ViewExemplar(e))
	}
	return sv
}

// ViewExemplar builds the serialisable view of an exemplar.
func ViewExemplar(e guide.CodeExemplar) ExemplarView {
	return ExemplarView{
		Language: e.Language.String(),
		Info:     e.Info,
		Polarity: e.Polarity.String(),
		Hash:     e.ContentHash(),
		Line:     e.Line,
		Content:  e.Content,
	}
}

// JSON writes the document view as indented JSON.
func JSON(w io.Writer, doc *guide.Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(View(doc))
}
