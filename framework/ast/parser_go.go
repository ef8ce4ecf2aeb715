package ast

import (
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"strings"
)

// GoParser builds outline nodes using go/parser. Only top-level declarations
// and struct/interface members are emitted.
type GoParser struct{}

// NewGoParser returns a ready-to-use Go parser.
func NewGoParser() *GoParser {
	return &GoParser{}
}

func (gp *GoParser) Language() string   { return "go" }
func (gp *GoParser) Category() Category { return CategoryCode }

// Parse converts Go source into nodes. Syntax errors are recorded on the
// result as long as go/parser recovered a package clause or declarations.
func (gp *GoParser) Parse(content string, filePath string) (*ParseResult, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, content, parser.ParseComments|parser.SkipObjectResolution)
	if file == nil || file.Name == nil {
		if err == nil {
			err = fmt.Errorf("go parse produced no file")
		}
		return nil, err
	}
	// Without a package clause go/parser stops before any declaration, so
	// the recovered file carries nothing worth outlining.
	if err != nil && file.Name.Name == "" && len(file.Decls) == 0 {
		return nil, err
	}
	fileID := GenerateFileID(filePath)
	root := &Node{
		ID:        fmt.Sprintf("%s:root", fileID),
		Type:      NodeTypePackage,
		Category:  CategoryCode,
		Language:  "go",
		Name:      file.Name.Name,
		StartLine: 1,
		EndLine:   fset.Position(file.End()).Line,
	}
	result := &ParseResult{RootNode: root, Nodes: []*Node{root}}
	if list, ok := err.(scanner.ErrorList); ok {
		for _, e := range list {
			result.Errors = append(result.Errors, ParseError{
				Line:    e.Pos.Line,
				Column:  e.Pos.Column,
				Message: e.Msg,
				Level:   "error",
			})
		}
	}

	b := goNodeBuilder{fset: fset, fileID: fileID, result: result}
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, "\"")
		b.add(&Node{
			ID:       fmt.Sprintf("%s:import:%s", fileID, path),
			ParentID: root.ID,
			Type:     NodeTypeImport,
			Name:     path,
		}, imp)
	}
	for _, decl := range file.Decls {
		switch typed := decl.(type) {
		case *goast.FuncDecl:
			b.function(typed, root.ID)
		case *goast.GenDecl:
			b.genDecl(typed, root.ID)
		}
	}
	return result, nil
}

type goNodeBuilder struct {
	fset   *token.FileSet
	fileID string
	result *ParseResult
}

func (b *goNodeBuilder) add(node *Node, span goast.Node) *Node {
	node.Category = CategoryCode
	node.Language = "go"
	node.StartLine = b.fset.Position(span.Pos()).Line
	node.EndLine = b.fset.Position(span.End()).Line
	b.result.Nodes = append(b.result.Nodes, node)
	return node
}

func (b *goNodeBuilder) function(decl *goast.FuncDecl, parentID string) {
	name := decl.Name.Name
	node := &Node{
		ID:         fmt.Sprintf("%s:func:%s", b.fileID, name),
		ParentID:   parentID,
		Type:       NodeTypeFunction,
		Name:       name,
		Signature:  "func " + name + strings.TrimPrefix(types.ExprString(decl.Type), "func"),
		DocString:  docString(decl.Doc),
		IsExported: goast.IsExported(name),
	}
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		receiver := types.ExprString(decl.Recv.List[0].Type)
		node.Type = NodeTypeMethod
		node.ID = fmt.Sprintf("%s:method:%s.%s", b.fileID, receiver, name)
		node.Name = fmt.Sprintf("(%s) %s", receiver, name)
		node.Attributes = map[string]interface{}{"receiver": receiver}
	}
	b.add(node, decl)
}

func (b *goNodeBuilder) genDecl(decl *goast.GenDecl, parentID string) {
	for _, spec := range decl.Specs {
		switch typed := spec.(type) {
		case *goast.TypeSpec:
			b.typeSpec(typed, decl, parentID)
		case *goast.ValueSpec:
			kind := NodeTypeVariable
			if decl.Tok == token.CONST {
				kind = NodeTypeConstant
			}
			for _, ident := range typed.Names {
				if ident.Name == "_" {
					continue
				}
				b.add(&Node{
					ID:         fmt.Sprintf("%s:%s:%s", b.fileID, kind, ident.Name),
					ParentID:   parentID,
					Type:       kind,
					Name:       ident.Name,
					IsExported: goast.IsExported(ident.Name),
				}, typed)
			}
		}
	}
}

func (b *goNodeBuilder) typeSpec(spec *goast.TypeSpec, decl *goast.GenDecl, parentID string) {
	name := spec.Name.Name
	doc := spec.Doc
	if doc == nil {
		doc = decl.Doc
	}
	node := b.add(&Node{
		ID:         fmt.Sprintf("%s:type:%s", b.fileID, name),
		ParentID:   parentID,
		Type:       NodeTypeType,
		Name:       name,
		DocString:  docString(doc),
		IsExported: goast.IsExported(name),
	}, spec)
	var members *goast.FieldList
	switch typed := spec.Type.(type) {
	case *goast.StructType:
		node.Type = NodeTypeStruct
		members = typed.Fields
	case *goast.InterfaceType:
		node.Type = NodeTypeInterface
		members = typed.Methods
	}
	if members == nil {
		return
	}
	for _, field := range members.List {
		for _, ident := range field.Names {
			kind := NodeTypeField
			if _, ok := field.Type.(*goast.FuncType); ok {
				kind = NodeTypeMethod
			}
			b.add(&Node{
				ID:         fmt.Sprintf("%s.%s", node.ID, ident.Name),
				ParentID:   node.ID,
				Type:       kind,
				Name:       ident.Name,
				Signature:  types.ExprString(field.Type),
				IsExported: goast.IsExported(ident.Name),
			}, field)
		}
	}
}

func docString(comment *goast.CommentGroup) string {
	if comment == nil {
		return ""
	}
	return comment.Text()
}
