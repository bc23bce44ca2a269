package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownText parses markdown and walks the AST, keeping heading and
// body text while dropping formatting. Paragraph and heading boundaries
// become blank lines so downstream splitting sees them as separators.
func markdownText(path string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading markdown file: %w", err)
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var buf strings.Builder
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				buf.Write(node.Segment.Value(source))
			case *ast.String:
				buf.Write(node.Value)
			}
			return ast.WalkContinue, nil
		}

		switch n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			buf.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})

	return buf.String(), nil
}
