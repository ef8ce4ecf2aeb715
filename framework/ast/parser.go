package ast

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
)

// Parser converts file contents into AST nodes. Implementations must be safe
// for concurrent use; buffers share one registry across goroutines.
type Parser interface {
	Parse(content string, filePath string) (*ParseResult, error)
	Language() string
	Category() Category
}

// ParseResult captures the nodes of one file in document order.
type ParseResult struct {
	RootNode *Node
	Nodes    []*Node
	Errors   []ParseError
}

// ParseError represents parser warnings/errors.
type ParseError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

// ParserRegistry keeps parser implementations keyed by language.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewParserRegistry constructs an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[string]Parser)}
}

// DefaultParserRegistry returns a registry with every built-in parser.
func DefaultParserRegistry() *ParserRegistry {
	registry := NewParserRegistry()
	registry.Register(NewGoParser())
	registry.Register(NewMarkdownParser())
	registry.Register(NewYAMLParser())
	registry.Register(NewTOMLParser())
	return registry
}

// Register adds a parser keyed by its Language.
func (pr *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.parsers[parser.Language()] = parser
}

// GetParser retrieves a parser by language identifier.
func (pr *ParserRegistry) GetParser(language string) (Parser, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	parser, ok := pr.parsers[language]
	return parser, ok
}

// SupportedLanguages returns all registered languages, sorted.
func (pr *ParserRegistry) SupportedLanguages() []string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	langs := make([]string, 0, len(pr.parsers))
	for lang := range pr.parsers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// GenerateFileID produces a stable identifier for a file path.
func GenerateFileID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return fmt.Sprintf("file:%x", sum[:8])
}
