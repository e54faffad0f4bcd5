// Package markdown turns markdown papers into the plain prose the humanizer
// works on, and renders humanized markdown back to HTML.
package markdown

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

func newParser() *parser.Parser {
	return parser.NewWithExtensions(parser.CommonExtensions | parser.Attributes)
}

func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)
	doc := newParser().Parse(md)
	return string(markdown.Render(doc, renderer))
}

// ToPlainText flattens md into paragraphs separated by blank lines. Headings
// and list items become their own paragraphs, link text is kept without the
// target, images are dropped. Code and math keep their delimiters so the
// placeholder package can protect them.
func ToPlainText(md []byte) string {
	doc := newParser().Parse(md)

	var (
		blocks []string
		cur    strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			blocks = append(blocks, s)
		}
		cur.Reset()
	}

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.TableRow:
			flush()
		case *ast.TableCell:
			if !entering && cur.Len() > 0 {
				cur.WriteString(" ")
			}
		case *ast.Text:
			cur.Write(n.Literal)
		case *ast.Code:
			cur.WriteString("`")
			cur.Write(n.Literal)
			cur.WriteString("`")
		case *ast.Math:
			cur.WriteString("$")
			cur.Write(n.Literal)
			cur.WriteString("$")
		case *ast.MathBlock:
			if entering {
				flush()
				cur.WriteString("$$")
				cur.Write(n.Literal)
				cur.WriteString("$$")
				flush()
			}
			return ast.SkipChildren
		case *ast.CodeBlock:
			flush()
			cur.WriteString("```\n")
			cur.WriteString(strings.TrimRight(string(n.Literal), "\n"))
			cur.WriteString("\n```")
			flush()
		case *ast.Softbreak, *ast.Hardbreak:
			cur.WriteString(" ")
		case *ast.Image, *ast.HTMLBlock, *ast.HTMLSpan:
			return ast.SkipChildren
		}
		return ast.GoToNext
	})
	flush()

	return strings.Join(blocks, "\n\n")
}
