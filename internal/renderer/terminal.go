package renderer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"

	"github.com/conneroisu/guidebook/internal/guide"
)

// Terminal writes doc styled for a terminal by feeding its canonical
// markdown through glamour.
func (r *Renderer) Terminal(w io.Writer, doc *guide.Document) error {
	var md bytes.Buffer
	if err := Markdown(&md, doc); err != nil {
		return err
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.terminalStyle),
		glamour.WithWordWrap(r.terminalWidth),
	)
	if err != nil {
		return fmt.Errorf("creating terminal renderer: %w", err)
	}

	out, err := tr.Render(md.String())
	if err != nil {
		return fmt.Errorf("rendering for terminal: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
