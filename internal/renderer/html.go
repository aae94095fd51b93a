package renderer

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"

	"github.com/conneroisu/guidebook/internal/guide"
)

// PageOptions tweaks the HTML page.
type PageOptions struct {
	// LiveReloadURL, when set, adds a script that reloads the page on a
	// "reload" message from this websocket endpoint.
	LiveReloadURL string
	// Issues are shown in a banner above the guide.
	Issues []string
}

// prose converts markdown prose to HTML. Raw HTML in the source is omitted
// by goldmark's default renderer.
var prose = goldmark.New()

// Page returns the full HTML page for doc as a templ component. Section
// elements carry their slug as id and the navigation links to them, so every
// in-page link of a consistent guide resolves.
func Page(doc *guide.Document, opts PageOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		title := templ.EscapeString(doc.Title)

		ew.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title>`, title)
		ew.write(`<style>` + pageCSS + `</style></head><body><main>`)
		ew.printf(`<h1 id="top">%s</h1>`, title)

		if len(opts.Issues) > 0 {
			ew.write(`<aside class="issues"><ul>`)
			for _, issue := range opts.Issues {
				ew.printf(`<li>%s</li>`, templ.EscapeString(issue))
			}
			ew.write(`</ul></aside>`)
		}
		if doc.Intro != "" {
			ew.write(markdownHTML(doc.Intro))
		}
		if ew.err != nil {
			return ew.err
		}

		if err := TOCNav(doc.TOC()).Render(ctx, w); err != nil {
			return err
		}
		for s := range doc.ListSections() {
			if err := SectionHTML(s).Render(ctx, w); err != nil {
				return err
			}
		}

		ew.write(`</main>`)
		if opts.LiveReloadURL != "" {
			ew.printf(`<script>`+reloadScript+`</script>`, opts.LiveReloadURL)
		}
		ew.write(`</body></html>`)
		return ew.err
	})
}

// TOCNav renders the table of contents as authored.
func TOCNav(toc guide.TableOfContents) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<nav id="%s"><h2>%s</h2><ol>`, guide.AnchorSlug(tocHeading), tocHeading)
		for _, entry := range toc.Entries {
			ew.printf(`<li><a href="#%s">%s</a></li>`,
				templ.EscapeString(entry.Target), templ.EscapeString(entry.Title))
		}
		ew.write(`</ol></nav>`)
		return ew.err
	})
}

// SectionHTML renders one section.
func SectionHTML(s *guide.Section) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		for _, block := range s.Render() {
			switch block.Kind {
			case guide.BlockHeading:
				ew.printf(`<section id="%s"><h2>%s</h2>`,
					templ.EscapeString(block.Anchor), templ.EscapeString(block.Text))
			case guide.BlockProse:
				ew.write(markdownHTML(block.Text))
			case guide.BlockBullets:
				ew.write(`<ul class="rationale">`)
				for _, item := range block.Items {
					ew.printf(`<li>%s</li>`, inlineHTML(item))
				}
				ew.write(`</ul>`)
			case guide.BlockNote:
				ew.printf(`<blockquote>%s</blockquote>`, markdownHTML(block.Text))
			case guide.BlockExemplar:
				e := block.Exemplar
				ew.printf(`<pre class="exemplar %s" data-polarity="%s" data-hash="%s"><code class="language-%s">%s</code></pre>`,
					strings.ToLower(e.Polarity.String()), e.Polarity, e.ContentHash(),
					templ.EscapeString(firstWord(e.Info)), templ.EscapeString(e.Content))
			case guide.BlockBackToTop:
				ew.printf(`<p><a class="back-to-top" href="#%s">back to top</a></p>`, guide.AnchorSlug(tocHeading))
			}
		}
		ew.write(`</section>`)
		return ew.err
	})
}

func markdownHTML(src string) string {
	var buf bytes.Buffer
	if err := prose.Convert([]byte(src), &buf); err != nil {
		return "<p>" + templ.EscapeString(src) + "</p>"
	}
	return buf.String()
}

// inlineHTML renders a single line of markdown without the paragraph wrapper.
func inlineHTML(src string) string {
	out := strings.TrimSpace(markdownHTML(src))
	out = strings.TrimPrefix(out, "<p>")
	return strings.TrimSuffix(out, "</p>")
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return "text"
}

const pageCSS = `body{font-family:system-ui,sans-serif;max-width:52rem;margin:2rem auto;padding:0 1rem;line-height:1.5}` +
	`pre{background:#f6f8fa;padding:.75rem;overflow:auto;border-left:4px solid #2da44e}` +
	`pre.discouraged{border-left-color:#cf222e}` +
	`aside.issues{background:#fff8c5;padding:.5rem 1rem;border:1px solid #d4a72c}`

// reloadScript expects the websocket URL as its only format argument.
const reloadScript = `(function(){var u=new URL(%q,location.href);u.protocol=u.protocol.replace("http","ws");` +
	`var ws=new WebSocket(u);ws.onmessage=function(e){try{if(JSON.parse(e.data).type==="reload"){location.reload()}}catch(_){}}})();`
