package ast

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	markdownEngine     goldmark.Markdown
	markdownEngineOnce sync.Once
)

// goldmark parsers carry no per-document state, so one instance is shared.
func markdownParser() goldmark.Markdown {
	markdownEngineOnce.Do(func() {
		markdownEngine = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownEngine
}

// MarkdownParser extracts headings and fenced code blocks. Headings nest by
// level; a "#" line inside a code fence is not a heading.
type MarkdownParser struct{}

// NewMarkdownParser creates a parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

func (mp *MarkdownParser) Language() string   { return "markdown" }
func (mp *MarkdownParser) Category() Category { return CategoryDoc }

type headingFrame struct {
	level int
	id    string
}

// Parse converts markdown into hierarchical nodes.
func (mp *MarkdownParser) Parse(content string, filePath string) (*ParseResult, error) {
	source := []byte(content)
	document := markdownParser().Parser().Parse(text.NewReader(source))
	fileID := GenerateFileID(filePath)
	root := &Node{
		ID:        fmt.Sprintf("%s:root", fileID),
		Type:      NodeTypeDocument,
		Category:  CategoryDoc,
		Language:  "markdown",
		Name:      filepath.Base(filePath),
		StartLine: 1,
		EndLine:   bytes.Count(source, []byte("\n")) + 1,
	}
	result := &ParseResult{RootNode: root, Nodes: []*Node{root}}

	stack := []headingFrame{{level: 0, id: root.ID}}
	blocks := 0
	err := gmast.Walk(document, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			name := strings.TrimSpace(inlineText(node, source))
			if name == "" {
				return gmast.WalkSkipChildren, nil
			}
			for len(stack) > 1 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			line := lineOf(node, source)
			heading := &Node{
				ID:         fmt.Sprintf("%s:heading:%d", fileID, len(result.Nodes)),
				ParentID:   stack[len(stack)-1].id,
				Type:       NodeTypeHeading,
				Category:   CategoryDoc,
				Language:   "markdown",
				Name:       name,
				StartLine:  line,
				EndLine:    line,
				Attributes: map[string]interface{}{"level": node.Level},
			}
			result.Nodes = append(result.Nodes, heading)
			stack = append(stack, headingFrame{level: node.Level, id: heading.ID})
			return gmast.WalkSkipChildren, nil
		case *gmast.FencedCodeBlock:
			blocks++
			line := lineOf(node, source)
			result.Nodes = append(result.Nodes, &Node{
				ID:        fmt.Sprintf("%s:code:%d", fileID, blocks),
				ParentID:  stack[len(stack)-1].id,
				Type:      NodeTypeCodeBlock,
				Category:  CategoryDoc,
				Language:  "markdown",
				Name:      fmt.Sprintf("Code Block %d", blocks),
				StartLine: line,
				EndLine:   line + node.Lines().Len(),
				Attributes: map[string]interface{}{
					"language": string(node.Language(source)),
				},
			})
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// inlineText concatenates the literal text below an inline container.
func inlineText(n gmast.Node, source []byte) string {
	var b strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch typed := child.(type) {
		case *gmast.Text:
			b.Write(typed.Segment.Value(source))
			if typed.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(typed.Value)
		default:
			b.WriteString(inlineText(child, source))
		}
	}
	return b.String()
}

// lineOf returns the 1-based line of a block's first content segment.
func lineOf(n gmast.Node, source []byte) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	start := lines.At(0).Start
	if start > len(source) {
		start = len(source)
	}
	return bytes.Count(source[:start], []byte("\n")) + 1
}
