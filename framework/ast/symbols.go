package ast

import (
	"context"
	"fmt"
	"path/filepath"
)

// DocumentSymbol captures structure information provided by external sources
// such as LSP servers. Only the subset needed to build outline nodes is kept.
type DocumentSymbol struct {
	Name      string
	Detail    string
	Kind      NodeType
	StartLine int
	EndLine   int
	Children  []DocumentSymbol
}

// DocumentSymbolProvider supplies symbols for files that lack parsers.
type DocumentSymbolProvider interface {
	DocumentSymbols(ctx context.Context, path string, language string, content string) ([]DocumentSymbol, error)
}

// FromDocumentSymbols converts a symbol tree into a parse result so outlines
// built from external symbols follow the same path as parsed ones.
func FromDocumentSymbols(filePath, language string, symbols []DocumentSymbol) *ParseResult {
	fileID := GenerateFileID(filePath)
	root := &Node{
		ID:       fmt.Sprintf("%s:root", fileID),
		Type:     NodeTypeDocument,
		Language: language,
		Name:     filepath.Base(filePath),
	}
	result := &ParseResult{RootNode: root, Nodes: []*Node{root}}
	appendSymbols(result, root.ID, language, symbols)
	return result
}

func appendSymbols(result *ParseResult, parentID, language string, symbols []DocumentSymbol) {
	for _, sym := range symbols {
		kind := sym.Kind
		if kind == "" {
			kind = NodeTypeSection
		}
		node := &Node{
			ID:        fmt.Sprintf("%s/%d", parentID, len(result.Nodes)),
			ParentID:  parentID,
			Type:      kind,
			Language:  language,
			Name:      sym.Name,
			Signature: sym.Detail,
			StartLine: sym.StartLine,
			EndLine:   sym.EndLine,
		}
		result.Nodes = append(result.Nodes, node)
		appendSymbols(result, node.ID, language, sym.Children)
	}
}
