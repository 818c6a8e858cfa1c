// Package markdown flattens markdown documents to plain text for indexing.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Text strips markdown formatting from source and returns the plain text.
// Headings, list markers, emphasis and link targets are dropped; code block
// contents are kept verbatim. Blocks are separated by blank lines so that
// adjacent sections do not fuse into one word stream.
func Text(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.AutoLink:
				buf.Write(node.URL(source))
			case *ast.FencedCodeBlock:
				writeLines(&buf, source, n)
			case *ast.CodeBlock:
				writeLines(&buf, source, n)
			}
			return ast.WalkContinue, nil
		}

		// Close out leaf blocks that carry text; container nodes (lists,
		// blockquotes) are separated by their children.
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock,
			ast.KindCodeBlock, ast.KindFencedCodeBlock:
			buf.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(blankRuns.ReplaceAllString(buf.String(), "\n\n"))
}

func writeLines(buf *bytes.Buffer, source []byte, n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
}
