package lsp

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/lexcodex/slashcmd/framework"
	"github.com/lexcodex/slashcmd/framework/ast"
	"github.com/lexcodex/slashcmd/framework/buffer"
)

// SymbolSource is a running language server as seen by the Delegate.
type SymbolSource interface {
	ast.DocumentSymbolProvider
	Close() error
}

// Factory starts a symbol source for a language.
type Factory func(ctx context.Context, language string, cfg ServerConfig, root string) (SymbolSource, error)

func startProcess(ctx context.Context, language string, cfg ServerConfig, root string) (SymbolSource, error) {
	return Start(ctx, language, cfg, root)
}

// DelegateOption configures a Delegate.
type DelegateOption func(*Delegate)

// WithFactory replaces the process launcher, mostly for tests.
func WithFactory(factory Factory) DelegateOption {
	return func(d *Delegate) { d.factory = factory }
}

// WithLogger sets the logger used for server lifecycle messages.
func WithLogger(logger *log.Logger) DelegateOption {
	return func(d *Delegate) { d.logger = logger }
}

// Delegate implements framework.LanguageDelegate for one worktree. Servers
// are started lazily, one per language, on first use.
type Delegate struct {
	root    string
	servers map[string]ServerConfig
	factory Factory
	logger  *log.Logger

	mu      sync.Mutex
	clients map[string]SymbolSource
}

var _ framework.LanguageDelegate = (*Delegate)(nil)

// NewDelegate builds a delegate for the worktree at root.
func NewDelegate(root string, servers map[string]ServerConfig, opts ...DelegateOption) *Delegate {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	d := &Delegate{
		root:    root,
		servers: servers,
		factory: startProcess,
		logger:  log.New(io.Discard, "", 0),
		clients: make(map[string]SymbolSource),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WorktreeRoot returns the absolute worktree root.
func (d *Delegate) WorktreeRoot() string { return d.root }

// Which looks up binary on PATH.
func (d *Delegate) Which(ctx context.Context, binary string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", false
	}
	return path, true
}

// ReadTextFile reads path, resolved against the worktree root when relative.
func (d *Delegate) ReadTextFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// HasServer reports whether a server is configured for language.
func (d *Delegate) HasServer(language string) bool {
	_, ok := d.servers[language]
	return ok
}

func (d *Delegate) client(ctx context.Context, language string) (SymbolSource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if client, ok := d.clients[language]; ok {
		return client, nil
	}
	cfg, ok := d.servers[language]
	if !ok {
		return nil, fmt.Errorf("no language server configured for %s", language)
	}
	client, err := d.factory(ctx, language, cfg, d.root)
	if err != nil {
		return nil, err
	}
	d.logger.Printf("started %s language server (%s)", language, cfg.Command)
	d.clients[language] = client
	return client, nil
}

// RefreshSymbols asks the buffer's language server for symbols and publishes
// them into the buffer. It reports false when no server is configured for the
// buffer's language or the buffer changed while the server was working.
func (d *Delegate) RefreshSymbols(ctx context.Context, buf *buffer.Buffer) (bool, error) {
	snap := buf.Snapshot()
	if !d.HasServer(snap.Language()) || snap.Path() == "" {
		return false, nil
	}
	client, err := d.client(ctx, snap.Language())
	if err != nil {
		return false, err
	}
	symbols, err := client.DocumentSymbols(ctx, snap.Path(), snap.Language(), snap.Text())
	if err != nil {
		return false, fmt.Errorf("document symbols for %s: %w", snap.Path(), err)
	}
	return buf.PublishSymbols(snap.Version(), symbols), nil
}

// Close shuts down every started server.
func (d *Delegate) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for language, client := range d.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.clients, language)
	}
	return firstErr
}
