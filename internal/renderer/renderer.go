// Package renderer turns a guide.Document into output formats.
//
// Every format is driven by Section.Render, so the block order is the same
// everywhere: heading, prose, rationale bullets, notes, exemplars and the
// back-to-top link. Supported formats are canonical markdown, plain text, an
// HTML page built as a templ component, styled terminal output through
// glamour, and a JSON view of the structural model.
package renderer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/conneroisu/guidebook/internal/guide"
)

// Format names an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatTerminal Format = "terminal"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMarkdown, FormatText, FormatHTML, FormatTerminal, FormatJSON}

// ParseFormat converts a format name, accepting "md" and "txt" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	case "terminal", "term", "ansi":
		return FormatTerminal, nil
	case "json":
		return FormatJSON, nil
	default:
		names := make([]string, len(Formats))
		for i, f := range Formats {
			names[i] = string(f)
		}
		return "", fmt.Errorf("unsupported format %q (supported: %s)", s, strings.Join(names, ", "))
	}
}

// Renderer renders documents. The zero value is not usable; call New.
type Renderer struct {
	terminalStyle string
	terminalWidth int
	page          PageOptions
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTerminalStyle selects the glamour style ("dark", "light", "notty", ...).
func WithTerminalStyle(style string) Option {
	return func(r *Renderer) { r.terminalStyle = style }
}

// WithTerminalWidth sets the word-wrap width of terminal output.
func WithTerminalWidth(width int) Option {
	return func(r *Renderer) { r.terminalWidth = width }
}

// WithPageOptions sets the options used for HTML output.
func WithPageOptions(opts PageOptions) Option {
	return func(r *Renderer) { r.page = opts }
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		terminalStyle: "dark",
		terminalWidth: 80,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes doc to w in the given format.
func (r *Renderer) Render(ctx context.Context, w io.Writer, doc *guide.Document, format Format) error {
	switch format {
	case FormatMarkdown:
		return Markdown(w, doc)
	case FormatText:
		return Text(w, doc)
	case FormatHTML:
		return Page(doc, r.page).Render(ctx, w)
	case FormatTerminal:
		return r.Terminal(w, doc)
	case FormatJSON:
		return JSON(w, doc)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// errWriter remembers the first write error so rendering code can write
// unconditionally and check once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) write(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}
