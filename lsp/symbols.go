package lsp

import (
	"encoding/json"
	"errors"

	"go.lsp.dev/protocol"

	"github.com/lexcodex/slashcmd/framework/ast"
)

// decodeSymbols accepts both shapes servers send for textDocument/documentSymbol:
// a DocumentSymbol tree or a flat SymbolInformation list.
func decodeSymbols(raw json.RawMessage) ([]ast.DocumentSymbol, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var probe []struct {
		Location *json.RawMessage `json:"location"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.New("document symbol response not understood")
	}
	if len(probe) > 0 && probe[0].Location != nil {
		var infos []protocol.SymbolInformation
		if err := json.Unmarshal(raw, &infos); err != nil {
			return nil, err
		}
		return fromSymbolInformation(infos), nil
	}
	var symbols []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, err
	}
	return fromDocumentSymbols(symbols), nil
}

func fromDocumentSymbols(symbols []protocol.DocumentSymbol) []ast.DocumentSymbol {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]ast.DocumentSymbol, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, ast.DocumentSymbol{
			Name:   sym.Name,
			Detail: sym.Detail,
			Kind:   mapSymbolKind(sym.Kind),
			// LSP lines are zero-based.
			StartLine: int(sym.Range.Start.Line) + 1,
			EndLine:   int(sym.Range.End.Line) + 1,
			Children:  fromDocumentSymbols(sym.Children),
		})
	}
	return out
}

// fromSymbolInformation keeps the flat list flat; ContainerName is not
// reliable enough across servers to rebuild a tree.
func fromSymbolInformation(infos []protocol.SymbolInformation) []ast.DocumentSymbol {
	out := make([]ast.DocumentSymbol, 0, len(infos))
	for _, info := range infos {
		out = append(out, ast.DocumentSymbol{
			Name:      info.Name,
			Kind:      mapSymbolKind(info.Kind),
			StartLine: int(info.Location.Range.Start.Line) + 1,
			EndLine:   int(info.Location.Range.End.Line) + 1,
		})
	}
	return out
}

func mapSymbolKind(kind protocol.SymbolKind) ast.NodeType {
	switch kind {
	case protocol.SymbolKindModule, protocol.SymbolKindNamespace, protocol.SymbolKindPackage:
		return ast.NodeTypeModule
	case protocol.SymbolKindClass:
		return ast.NodeTypeClass
	case protocol.SymbolKindMethod, protocol.SymbolKindConstructor:
		return ast.NodeTypeMethod
	case protocol.SymbolKindProperty, protocol.SymbolKindField, protocol.SymbolKindEnumMember:
		return ast.NodeTypeField
	case protocol.SymbolKindEnum:
		return ast.NodeTypeEnum
	case protocol.SymbolKindInterface:
		return ast.NodeTypeInterface
	case protocol.SymbolKindFunction, protocol.SymbolKindOperator:
		return ast.NodeTypeFunction
	case protocol.SymbolKindVariable:
		return ast.NodeTypeVariable
	case protocol.SymbolKindConstant:
		return ast.NodeTypeConstant
	case protocol.SymbolKindStruct:
		return ast.NodeTypeStruct
	case protocol.SymbolKindTypeParameter:
		return ast.NodeTypeType
	case protocol.SymbolKindObject:
		return ast.NodeTypeObject
	case protocol.SymbolKindArray:
		return ast.NodeTypeArray
	case protocol.SymbolKindKey:
		return ast.NodeTypeProperty
	default:
		return ast.NodeTypeSection
	}
}
