package printer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced or indented code block found in a markdown text.
type CodeBlock struct {
	Language string
	Code     string
}

// ExtractCodeBlocks returns the code blocks of a markdown document in order.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var ret []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch block := n.(type) {
		case *ast.FencedCodeBlock:
			ret = append(ret, CodeBlock{
				Language: string(block.Language(source)),
				Code:     linesOf(block, source),
			})
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			ret = append(ret, CodeBlock{
				Code: linesOf(block, source),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return ret
}

func linesOf(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
	return sb.String()
}
