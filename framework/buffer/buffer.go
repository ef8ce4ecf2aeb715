package buffer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexcodex/slashcmd/framework/ast"
)

var detector = ast.NewLanguageDetector()

// Buffer is the mutable, in-memory text of one document. It is owned by the
// interactive context; other goroutines only ever see it through a Snapshot.
type Buffer struct {
	mu       sync.RWMutex
	text     string
	path     string
	language string
	version  uint64
	parsers  *ast.ParserRegistry

	symbols        []ast.DocumentSymbol
	symbolsVersion uint64
	hasSymbols     bool
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithLanguage overrides language detection.
func WithLanguage(language string) Option {
	return func(b *Buffer) { b.language = language }
}

// WithParsers selects the parser registry used for outlines.
func WithParsers(parsers *ast.ParserRegistry) Option {
	return func(b *Buffer) { b.parsers = parsers }
}

// New creates a buffer. An empty path makes the buffer untitled; otherwise
// path is made absolute.
func New(text, path string, opts ...Option) *Buffer {
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	b := &Buffer{text: text, path: path, version: 1}
	for _, opt := range opts {
		opt(b)
	}
	if b.language == "" {
		b.language = detector.Detect(path)
	}
	if b.parsers == nil {
		b.parsers = ast.DefaultParserRegistry()
	}
	return b
}

// Open reads path from disk into a new buffer.
func Open(path string, opts ...Option) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open buffer: %w", err)
	}
	return New(string(data), path, opts...), nil
}

// Text returns the current contents.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Path returns the absolute file path, or "" for untitled buffers.
func (b *Buffer) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Language returns the language identifier used to pick a parser.
func (b *Buffer) Language() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.language
}

// Version increments on every edit.
func (b *Buffer) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// SetText replaces the whole contents.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.version++
}

// Edit replaces the byte range [start, end) with text.
func (b *Buffer) Edit(start, end int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if start < 0 || end < start || end > len(b.text) {
		return fmt.Errorf("edit range [%d,%d) out of bounds for length %d", start, end, len(b.text))
	}
	b.text = b.text[:start] + text + b.text[end:]
	b.version++
	return nil
}

// SetPath associates the buffer with a file, re-detecting its language.
func (b *Buffer) SetPath(path string) {
	if abs, err := filepath.Abs(path); err == nil && path != "" {
		path = abs
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.path = path
	b.language = detector.Detect(path)
}

// PublishSymbols records symbols computed externally for the given version.
// It reports false when the buffer has moved past that version.
func (b *Buffer) PublishSymbols(version uint64, symbols []ast.DocumentSymbol) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if version != b.version {
		return false
	}
	b.symbols = cloneSymbols(symbols)
	b.symbolsVersion = version
	b.hasSymbols = true
	return true
}

// Snapshot captures an immutable view of the buffer.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := &Snapshot{
		text:     b.text,
		path:     b.path,
		language: b.language,
		version:  b.version,
	}
	if parser, ok := b.parsers.GetParser(b.language); ok {
		snap.parser = parser
	}
	if b.hasSymbols && b.symbolsVersion == b.version {
		snap.symbols = cloneSymbols(b.symbols)
		snap.hasSymbols = true
	}
	return snap
}

func cloneSymbols(symbols []ast.DocumentSymbol) []ast.DocumentSymbol {
	if symbols == nil {
		return nil
	}
	out := make([]ast.DocumentSymbol, len(symbols))
	for i, sym := range symbols {
		out[i] = sym
		out[i].Children = cloneSymbols(sym.Children)
	}
	return out
}
