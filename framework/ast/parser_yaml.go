package ast

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLParser outlines mapping keys. Keys of mappings nested in sequences are
// attached to the key that owns the sequence.
type YAMLParser struct{}

// NewYAMLParser creates a parser.
func NewYAMLParser() *YAMLParser { return &YAMLParser{} }

func (yp *YAMLParser) Language() string   { return "yaml" }
func (yp *YAMLParser) Category() Category { return CategoryConfig }

// Parse walks the first YAML document.
func (yp *YAMLParser) Parse(content string, filePath string) (*ParseResult, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	fileID := GenerateFileID(filePath)
	root := &Node{
		ID:        fmt.Sprintf("%s:root", fileID),
		Type:      NodeTypeConfigRoot,
		Category:  CategoryConfig,
		Language:  "yaml",
		Name:      filepath.Base(filePath),
		StartLine: 1,
		EndLine:   strings.Count(content, "\n") + 1,
	}
	result := &ParseResult{RootNode: root, Nodes: []*Node{root}}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		yp.walk(doc.Content[0], root.ID, root.ID, result)
	}
	return result, nil
}

func (yp *YAMLParser) walk(value *yaml.Node, parentID, idPrefix string, result *ParseResult) {
	switch value.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, child := value.Content[i], value.Content[i+1]
			node := &Node{
				ID:        fmt.Sprintf("%s/%d", idPrefix, i/2),
				ParentID:  parentID,
				Type:      yamlNodeType(child),
				Category:  CategoryConfig,
				Language:  "yaml",
				Name:      key.Value,
				StartLine: key.Line,
				EndLine:   lastLine(child),
			}
			result.Nodes = append(result.Nodes, node)
			yp.walk(child, node.ID, node.ID, result)
		}
	case yaml.SequenceNode:
		for idx, item := range value.Content {
			yp.walk(item, parentID, fmt.Sprintf("%s[%d]", idPrefix, idx), result)
		}
	}
}

func yamlNodeType(value *yaml.Node) NodeType {
	switch value.Kind {
	case yaml.MappingNode:
		return NodeTypeObject
	case yaml.SequenceNode:
		return NodeTypeArray
	default:
		return NodeTypeProperty
	}
}

func lastLine(value *yaml.Node) int {
	line := value.Line
	for _, child := range value.Content {
		if l := lastLine(child); l > line {
			line = l
		}
	}
	return line
}
