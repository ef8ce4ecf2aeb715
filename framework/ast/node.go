package ast

// Node represents a structured unit extracted from a file.
type Node struct {
	ID         string                 `json:"id"`
	ParentID   string                 `json:"parent_id"`
	Type       NodeType               `json:"type"`
	Category   Category               `json:"category"`
	Language   string                 `json:"language"`
	StartLine  int                    `json:"start_line"`
	EndLine    int                    `json:"end_line"`
	Name       string                 `json:"name"`
	Signature  string                 `json:"signature"`
	DocString  string                 `json:"doc_string"`
	Attributes map[string]interface{} `json:"attributes"`
	IsExported bool                   `json:"is_exported"`
}

// NodeType enumerates supported node kinds.
type NodeType string

const (
	NodeTypePackage   NodeType = "package"
	NodeTypeImport    NodeType = "import"
	NodeTypeFunction  NodeType = "function"
	NodeTypeMethod    NodeType = "method"
	NodeTypeClass     NodeType = "class"
	NodeTypeInterface NodeType = "interface"
	NodeTypeStruct    NodeType = "struct"
	NodeTypeVariable  NodeType = "variable"
	NodeTypeConstant  NodeType = "constant"
	NodeTypeEnum      NodeType = "enum"
	NodeTypeType      NodeType = "type"
	NodeTypeField     NodeType = "field"
	NodeTypeModule    NodeType = "module"

	NodeTypeDocument  NodeType = "document"
	NodeTypeSection   NodeType = "section"
	NodeTypeHeading   NodeType = "heading"
	NodeTypeCodeBlock NodeType = "code_block"
	NodeTypeLink      NodeType = "link"

	NodeTypeConfigRoot NodeType = "config_root"
	NodeTypeObject     NodeType = "object"
	NodeTypeArray      NodeType = "array"
	NodeTypeProperty   NodeType = "property"
	NodeTypeTable      NodeType = "table"
)

// Category represents the high level grouping for a node.
type Category string

const (
	CategoryCode   Category = "code"
	CategoryDoc    Category = "document"
	CategoryConfig Category = "config"
	CategorySchema Category = "schema"
	CategoryInfra  Category = "infrastructure"
)

// InOutline reports whether nodes of this type are listed in a document
// outline. Roots, imports and inline markdown constructs are not.
func (t NodeType) InOutline() bool {
	switch t {
	case NodeTypePackage, NodeTypeDocument, NodeTypeConfigRoot,
		NodeTypeImport, NodeTypeCodeBlock, NodeTypeLink, "":
		return false
	default:
		return true
	}
}
