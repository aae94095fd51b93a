package renderer

import (
	"io"
	"strings"

	"github.com/conneroisu/guidebook/internal/guide"
	"github.com/conneroisu/guidebook/internal/markdown"
)

const tocHeading = "Table of Contents"

// Markdown writes doc as canonical markdown. The table of contents is
// regenerated from the sections, and exemplar fences carry an explicit
// polarity marker whenever the surrounding prose would suggest the opposite,
// so loading the output yields the same model.
func Markdown(w io.Writer, doc *guide.Document) error {
	ew := &errWriter{w: w}
	tocAnchor := guide.AnchorSlug(tocHeading)

	ew.printf("# %s\n\n", doc.Title)
	if doc.Intro != "" {
		ew.printf("%s\n\n", doc.Intro)
	}

	ew.printf("## %s\n\n", tocHeading)
	for _, entry := range guide.BuildTOC(doc.Sections()).Entries {
		ew.printf("1. [%s](#%s)\n", entry.Title, entry.Target)
	}

	for s := range doc.ListSections() {
		ew.write("\n")
		writeSectionMarkdown(ew, s, tocAnchor)
	}
	return ew.err
}

// SectionMarkdown renders a single section as markdown.
func SectionMarkdown(w io.Writer, s *guide.Section) error {
	ew := &errWriter{w: w}
	writeSectionMarkdown(ew, s, guide.AnchorSlug(tocHeading))
	return ew.err
}

func writeSectionMarkdown(ew *errWriter, s *guide.Section, tocAnchor string) {
	paragraph, subheading := fenceProse(s)
	for _, block := range s.Render() {
		switch block.Kind {
		case guide.BlockHeading:
			ew.printf("## %s\n\n", block.Text)
			if len(s.Avoid) > 0 {
				ew.printf("<!-- avoid: %s -->\n\n", strings.Join(s.Avoid, " | "))
			}
		case guide.BlockProse:
			ew.printf("%s\n\n", block.Text)
		case guide.BlockBullets:
			for _, item := range block.Items {
				ew.printf("- %s\n", strings.ReplaceAll(item, "\n", "\n  "))
			}
			ew.write("\n")
		case guide.BlockNote:
			ew.printf("> %s\n\n", strings.ReplaceAll(block.Text, "\n", "\n> "))
		case guide.BlockExemplar:
			writeFence(ew, *block.Exemplar, paragraph, subheading)
		case guide.BlockBackToTop:
			ew.printf("**[⬆ back to top](#%s)**\n\n", tocAnchor)
		}
	}
}

func writeFence(ew *errWriter, e guide.CodeExemplar, paragraph, subheading string) {
	info := ""
	if fields := strings.Fields(e.Info); len(fields) > 0 {
		info = fields[0]
	}
	if markdown.ClassifyPolarity(info, paragraph, subheading) != e.Polarity {
		if info == "" {
			info = "text"
		}
		if e.Polarity == guide.PolarityDiscouraged {
			info += " avoid"
		} else {
			info += " recommended"
		}
	}

	content := e.Content
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	ew.printf("```%s\n%s```\n\n", info, content)
}

// fenceProse returns the prose the loader reads exemplar polarity from
// once s is written out: every fence follows the body, the bullets and the
// notes, so only a body paragraph with nothing after it counts, next to the
// last subheading of the body.
func fenceProse(s *guide.Section) (paragraph, subheading string) {
	if s.Body == "" {
		return "", ""
	}
	chunks := strings.Split(s.Body, "\n\n")
	for i := len(chunks) - 1; i >= 0; i-- {
		if text, ok := markdown.SplitSubheading(chunks[i]); ok {
			subheading = text
			break
		}
	}
	last := chunks[len(chunks)-1]
	if _, ok := markdown.SplitSubheading(last); !ok && len(s.Rationale) == 0 && len(s.Notes) == 0 {
		paragraph = last
	}
	return paragraph, subheading
}
