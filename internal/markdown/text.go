package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// inlineText flattens the inline content of n. With markup set, code spans,
// emphasis and links keep their markdown delimiters so prose can be written
// back out unchanged; without it the plain text is returned, as needed for
// headings and link labels.
func inlineText(n ast.Node, src []byte, markup bool) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := c.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(src))
				if node.HardLineBreak() || node.SoftLineBreak() {
					sb.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.CodeSpan:
			if markup {
				sb.WriteByte('`')
			}
		case *ast.Emphasis:
			if markup {
				sb.WriteString(strings.Repeat("*", node.Level))
			}
		case *ast.Link:
			if !markup {
				break
			}
			if entering {
				sb.WriteByte('[')
			} else {
				sb.WriteString("](")
				sb.Write(node.Destination)
				sb.WriteByte(')')
			}
		case *ast.AutoLink:
			if entering {
				sb.Write(node.URL(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			if entering && markup {
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					sb.Write(seg.Value(src))
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// blockText joins the inline text of every paragraph-like child of n, one
// per line. It is used for list items and blockquotes.
func blockText(n ast.Node, src []byte) string {
	var parts []string
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			if t := inlineText(c, src, true); t != "" {
				parts = append(parts, t)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(parts, "\n")
}

// blockLines returns the verbatim lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// lineOf returns the 1-based source line of n, looking at the nearest node
// carrying line segments. Inline nodes borrow their block's line.
func lineOf(n ast.Node, src []byte) int {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() == ast.TypeInline {
			continue
		}
		if lines := cur.Lines(); lines != nil && lines.Len() > 0 {
			return lineAt(src, lines.At(0).Start)
		}
		for child := cur.FirstChild(); child != nil; child = child.NextSibling() {
			if child.Type() == ast.TypeInline {
				continue
			}
			if lines := child.Lines(); lines != nil && lines.Len() > 0 {
				return lineAt(src, lines.At(0).Start)
			}
		}
	}
	return 0
}

// lineAt converts a byte offset into a 1-based line number.
func lineAt(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.Count(src[:offset], []byte("\n")) + 1
}
