package ast

// OutlineEntry is one outline symbol with its nesting depth. Depth 0 entries
// sit directly under the file root.
type OutlineEntry struct {
	Name      string
	Kind      NodeType
	Depth     int
	StartLine int
	EndLine   int
}

// Outline lists the outline-worthy nodes of r in the order the parser emitted
// them, which is document order for every built-in parser.
func (r *ParseResult) Outline() []OutlineEntry {
	if r == nil {
		return nil
	}
	byID := make(map[string]*Node, len(r.Nodes))
	for _, node := range r.Nodes {
		byID[node.ID] = node
	}
	entries := make([]OutlineEntry, 0, len(r.Nodes))
	for _, node := range r.Nodes {
		if !node.Type.InOutline() || node.Name == "" {
			continue
		}
		entries = append(entries, OutlineEntry{
			Name:      node.Name,
			Kind:      node.Type,
			Depth:     outlineDepth(node, byID),
			StartLine: node.StartLine,
			EndLine:   node.EndLine,
		})
	}
	return entries
}

func outlineDepth(node *Node, byID map[string]*Node) int {
	depth := 0
	seen := map[string]bool{node.ID: true}
	for parentID := node.ParentID; parentID != ""; {
		parent, ok := byID[parentID]
		if !ok || seen[parentID] {
			break
		}
		seen[parentID] = true
		if parent.Type.InOutline() && parent.Name != "" {
			depth++
		}
		parentID = parent.ParentID
	}
	return depth
}
