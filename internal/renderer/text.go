package renderer

import (
	"io"
	"strings"

	"github.com/conneroisu/guidebook/internal/guide"
)

// Text writes doc as plain text with numbered sections.
func Text(w io.Writer, doc *guide.Document) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n%s\n", doc.Title, strings.Repeat("=", len([]rune(doc.Title))))
	if doc.Intro != "" {
		ew.printf("\n%s\n", doc.Intro)
	}

	i := 0
	for s := range doc.ListSections() {
		i++
		for _, block := range s.Render() {
			switch block.Kind {
			case guide.BlockHeading:
				ew.printf("\n%d. %s (#%s)\n\n", i, block.Text, block.Anchor)
			case guide.BlockProse:
				ew.printf("%s\n\n", indent(block.Text, "   "))
			case guide.BlockBullets:
				for _, item := range block.Items {
					ew.printf("   * %s\n", item)
				}
				ew.write("\n")
			case guide.BlockNote:
				ew.printf("%s\n\n", indent(block.Text, "   | "))
			case guide.BlockExemplar:
				e := block.Exemplar
				ew.printf("   [%s %s]\n", e.Polarity, e.Language)
				ew.printf("%s\n\n", indent(strings.TrimRight(e.Content, "\n"), "      "))
			}
		}
	}
	return ew.err
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
