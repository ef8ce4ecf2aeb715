package ast

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLParser outlines tables and keys in the order they are defined.
// BurntSushi/toml exposes no positions, so line numbers are left at zero.
type TOMLParser struct{}

// NewTOMLParser creates a parser.
func NewTOMLParser() *TOMLParser { return &TOMLParser{} }

func (tp *TOMLParser) Language() string   { return "toml" }
func (tp *TOMLParser) Category() Category { return CategoryConfig }

// Parse decodes content and emits one node per defined key.
func (tp *TOMLParser) Parse(content string, filePath string) (*ParseResult, error) {
	var data map[string]interface{}
	meta, err := toml.Decode(content, &data)
	if err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	fileID := GenerateFileID(filePath)
	root := &Node{
		ID:        fmt.Sprintf("%s:root", fileID),
		Type:      NodeTypeConfigRoot,
		Category:  CategoryConfig,
		Language:  "toml",
		Name:      filepath.Base(filePath),
		StartLine: 1,
		EndLine:   strings.Count(content, "\n") + 1,
	}
	result := &ParseResult{RootNode: root, Nodes: []*Node{root}}

	// Array tables repeat their key; later children attach to the latest one.
	latest := map[string]string{"": root.ID}
	for idx, key := range meta.Keys() {
		if len(key) == 0 {
			continue
		}
		path := strings.Join(key, "\x00")
		parentID, ok := latest[strings.Join(key[:len(key)-1], "\x00")]
		if !ok {
			parentID = root.ID
		}
		kind := NodeTypeProperty
		switch meta.Type(key...) {
		case "Hash":
			kind = NodeTypeTable
		case "ArrayHash":
			kind = NodeTypeArray
		}
		node := &Node{
			ID:       fmt.Sprintf("%s:key:%d", fileID, idx),
			ParentID: parentID,
			Type:     kind,
			Category: CategoryConfig,
			Language: "toml",
			Name:     key[len(key)-1],
		}
		latest[path] = node.ID
		result.Nodes = append(result.Nodes, node)
	}
	return result, nil
}
