package buffer

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/lexcodex/slashcmd/framework/ast"
)

// Snapshot is a frozen view of a buffer. Nothing reachable from a Snapshot
// is shared with the live buffer, so it may be handed to any goroutine.
type Snapshot struct {
	text       string
	path       string
	language   string
	version    uint64
	parser     ast.Parser
	symbols    []ast.DocumentSymbol
	hasSymbols bool

	outlineOnce sync.Once
	outline     *Outline
}

// Text returns the captured contents.
func (s *Snapshot) Text() string { return s.text }

// Path returns the absolute file path, or "" when untitled.
func (s *Snapshot) Path() string { return s.path }

// Language returns the captured language identifier.
func (s *Snapshot) Language() string { return s.language }

// Version returns the buffer version the snapshot was taken at.
func (s *Snapshot) Version() uint64 { return s.version }

// OutlineItem is one symbol of an outline.
type OutlineItem struct {
	Depth     int
	Text      string
	Kind      ast.NodeType
	StartLine int
	EndLine   int
}

// PathCandidate is the display string of an item: its ancestors' texts and
// its own, separated by single spaces. ID indexes Outline.Items.
type PathCandidate struct {
	ID     int
	String string
}

// Outline lists symbols in document order.
type Outline struct {
	Items          []OutlineItem
	PathCandidates []PathCandidate
}

// NewOutline derives path candidates from items, which must be in document
// order with parents preceding their children.
func NewOutline(items []OutlineItem) *Outline {
	outline := &Outline{
		Items:          items,
		PathCandidates: make([]PathCandidate, 0, len(items)),
	}
	var ancestors []string
	for id, item := range items {
		depth := item.Depth
		if depth > len(ancestors) {
			depth = len(ancestors)
		}
		ancestors = append(ancestors[:depth], item.Text)
		outline.PathCandidates = append(outline.PathCandidates, PathCandidate{
			ID:     id,
			String: strings.Join(ancestors, " "),
		})
	}
	return outline
}

// Outline returns the snapshot's outline, or false when its language yields
// none: no parser is registered and no external symbols were published, or
// parsing failed. A nil filter keeps every item; otherwise only items whose
// path candidate fuzzy-matches filter are kept, still in document order.
func (s *Snapshot) Outline(filter *string) (*Outline, bool) {
	s.outlineOnce.Do(func() {
		s.outline = s.buildOutline()
	})
	if s.outline == nil {
		return nil, false
	}
	if filter == nil {
		return s.outline, true
	}
	return s.outline.filtered(*filter), true
}

func (s *Snapshot) buildOutline() *Outline {
	var result *ast.ParseResult
	if s.parser != nil {
		if parsed, err := s.parser.Parse(s.text, s.displayName()); err == nil {
			result = parsed
		}
	}
	if result == nil && s.hasSymbols {
		result = ast.FromDocumentSymbols(s.displayName(), s.language, s.symbols)
	}
	if result == nil {
		return nil
	}
	entries := result.Outline()
	items := make([]OutlineItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, OutlineItem{
			Depth:     entry.Depth,
			Text:      entry.Name,
			Kind:      entry.Kind,
			StartLine: entry.StartLine,
			EndLine:   entry.EndLine,
		})
	}
	return NewOutline(items)
}

func (o *Outline) filtered(query string) *Outline {
	candidates := make([]string, len(o.PathCandidates))
	for i, candidate := range o.PathCandidates {
		candidates[i] = candidate.String
	}
	keep := make(map[int]bool)
	for _, match := range fuzzy.Find(query, candidates) {
		keep[match.Index] = true
	}
	out := &Outline{}
	for i, candidate := range o.PathCandidates {
		if !keep[i] {
			continue
		}
		out.Items = append(out.Items, o.Items[candidate.ID])
		out.PathCandidates = append(out.PathCandidates, PathCandidate{
			ID:     len(out.Items) - 1,
			String: candidate.String,
		})
	}
	return out
}

func (s *Snapshot) displayName() string {
	if s.path == "" {
		return "untitled"
	}
	return s.path
}

// ResolveFilePath returns the path to show for this document. With
// preferRelative and a file under worktreeRoot, the path is relative to the
// root; otherwise it is absolute. Untitled snapshots resolve to false.
func (s *Snapshot) ResolveFilePath(worktreeRoot string, preferRelative bool) (string, bool) {
	if s.path == "" {
		return "", false
	}
	if preferRelative && worktreeRoot != "" {
		if abs, err := filepath.Abs(worktreeRoot); err == nil {
			worktreeRoot = abs
		}
		rel, err := filepath.Rel(worktreeRoot, s.path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rel, true
		}
	}
	return s.path, true
}
