package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/slashcmd/framework/ast"
	"github.com/lexcodex/slashcmd/framework/buffer"
)

type openedDoc struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
		Text    string `json:"text"`
	} `json:"textDocument"`
}

type fakeServer struct {
	mu       sync.Mutex
	methods  []string
	opened   []openedDoc
	response string
}

func (s *fakeServer) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = append(s.methods, req.Method)
	switch req.Method {
	case "initialize":
		return map[string]interface{}{"capabilities": map[string]interface{}{}}, nil
	case "textDocument/didOpen":
		var doc openedDoc
		if err := json.Unmarshal(*req.Params, &doc); err != nil {
			return nil, err
		}
		s.opened = append(s.opened, doc)
	case "textDocument/documentSymbol":
		return json.RawMessage(s.response), nil
	}
	return nil, nil
}

func (s *fakeServer) snapshot() ([]string, []openedDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.methods...), append([]openedDoc(nil), s.opened...)
}

func dialFake(t *testing.T, server *fakeServer) *Client {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	stream := jsonrpc2.NewBufferedStream(serverSide, jsonrpc2.VSCodeObjectCodec{})
	serverConn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(server.handle))
	t.Cleanup(func() { _ = serverConn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, clientSide, "rust", t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

const treeResponse = `[
  {"name": "Server", "detail": "struct", "kind": 23,
   "range": {"start": {"line": 2, "character": 0}, "end": {"line": 10, "character": 1}},
   "selectionRange": {"start": {"line": 2, "character": 7}, "end": {"line": 2, "character": 13}},
   "children": [
     {"name": "start", "kind": 6,
      "range": {"start": {"line": 4, "character": 4}, "end": {"line": 6, "character": 5}},
      "selectionRange": {"start": {"line": 4, "character": 7}, "end": {"line": 4, "character": 12}}}
   ]}
]`

func TestClientDocumentSymbolsTree(t *testing.T) {
	server := &fakeServer{response: treeResponse}
	client := dialFake(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	symbols, err := client.DocumentSymbols(ctx, "/tmp/project/src/main.rs", "rust", "struct Server;")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, "Server", symbols[0].Name)
	require.Equal(t, ast.NodeTypeStruct, symbols[0].Kind)
	require.Equal(t, 3, symbols[0].StartLine)
	require.Equal(t, 11, symbols[0].EndLine)
	require.Len(t, symbols[0].Children, 1)
	require.Equal(t, ast.NodeTypeMethod, symbols[0].Children[0].Kind)

	methods, opened := server.snapshot()
	require.Equal(t, []string{"initialize", "initialized", "textDocument/didOpen", "textDocument/documentSymbol"}, methods)
	require.Equal(t, 1, opened[0].TextDocument.Version)
	require.Equal(t, "file:///tmp/project/src/main.rs", opened[0].TextDocument.URI)
}

func TestClientReopensChangedDocument(t *testing.T) {
	server := &fakeServer{response: "[]"}
	client := dialFake(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.DocumentSymbols(ctx, "/tmp/a.rs", "rust", "v1")
	require.NoError(t, err)
	_, err = client.DocumentSymbols(ctx, "/tmp/a.rs", "rust", "v1")
	require.NoError(t, err)
	_, err = client.DocumentSymbols(ctx, "/tmp/a.rs", "rust", "v2")
	require.NoError(t, err)

	methods, opened := server.snapshot()
	require.Contains(t, methods, "textDocument/didClose")
	require.Len(t, opened, 2)
	require.Equal(t, 2, opened[1].TextDocument.Version)
	require.Equal(t, "v2", opened[1].TextDocument.Text)
}

func TestClientOrdersConcurrentReopens(t *testing.T) {
	server := &fakeServer{response: "[]"}
	client := dialFake(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := client.DocumentSymbols(ctx, "/tmp/a.rs", "rust", fmt.Sprintf("v%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	methods, opened := server.snapshot()
	require.Len(t, opened, callers)
	for i, doc := range opened {
		require.Equal(t, i+1, doc.TextDocument.Version)
	}
	var lifecycle []string
	for _, method := range methods {
		if method == "textDocument/didOpen" || method == "textDocument/didClose" || method == "textDocument/documentSymbol" {
			lifecycle = append(lifecycle, method)
		}
	}
	expected := []string{"textDocument/didOpen", "textDocument/documentSymbol"}
	for i := 1; i < callers; i++ {
		expected = append(expected, "textDocument/didClose", "textDocument/didOpen", "textDocument/documentSymbol")
	}
	require.Equal(t, expected, lifecycle)
}

func TestDecodeSymbolInformation(t *testing.T) {
	raw := json.RawMessage(`[{"name": "main", "kind": 12,
	  "location": {"uri": "file:///tmp/main.rs",
	    "range": {"start": {"line": 0, "character": 0}, "end": {"line": 3, "character": 1}}}}]`)
	symbols, err := decodeSymbols(raw)
	require.NoError(t, err)
	require.Equal(t, []ast.DocumentSymbol{{Name: "main", Kind: ast.NodeTypeFunction, StartLine: 1, EndLine: 4}}, symbols)

	symbols, err = decodeSymbols(json.RawMessage("null"))
	require.NoError(t, err)
	require.Empty(t, symbols)

	_, err = decodeSymbols(json.RawMessage(`{"oops": true}`))
	require.Error(t, err)
}

type fakeSource struct {
	symbols []ast.DocumentSymbol
	during  func()
	closed  bool
}

func (f *fakeSource) DocumentSymbols(context.Context, string, string, string) ([]ast.DocumentSymbol, error) {
	if f.during != nil {
		f.during()
	}
	return f.symbols, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func TestDelegateRefreshSymbols(t *testing.T) {
	root := t.TempDir()
	source := &fakeSource{symbols: []ast.DocumentSymbol{{Name: "main", Kind: ast.NodeTypeFunction, StartLine: 1}}}
	starts := 0
	delegate := NewDelegate(root, map[string]ServerConfig{"rust": {Command: "rust-analyzer"}},
		WithFactory(func(_ context.Context, language string, cfg ServerConfig, _ string) (SymbolSource, error) {
			starts++
			require.Equal(t, "rust", language)
			require.Equal(t, "rust-analyzer", cfg.Command)
			return source, nil
		}))

	buf := buffer.New("fn main() {}\n", filepath.Join(root, "main.rs"))
	_, ok := buf.Snapshot().Outline(nil)
	require.False(t, ok)

	published, err := delegate.RefreshSymbols(context.Background(), buf)
	require.NoError(t, err)
	require.True(t, published)
	outline, ok := buf.Snapshot().Outline(nil)
	require.True(t, ok)
	require.Equal(t, "main", outline.PathCandidates[0].String)

	_, err = delegate.RefreshSymbols(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, 1, starts)

	require.NoError(t, delegate.Close())
	require.True(t, source.closed)
}

func TestDelegateRefreshSymbolsDropsStaleResults(t *testing.T) {
	root := t.TempDir()
	buf := buffer.New("fn main() {}\n", filepath.Join(root, "main.rs"))
	source := &fakeSource{
		symbols: []ast.DocumentSymbol{{Name: "main"}},
		during:  func() { buf.SetText("fn other() {}\n") },
	}
	delegate := NewDelegate(root, map[string]ServerConfig{"rust": {Command: "ra"}},
		WithFactory(func(context.Context, string, ServerConfig, string) (SymbolSource, error) { return source, nil }))

	published, err := delegate.RefreshSymbols(context.Background(), buf)
	require.NoError(t, err)
	require.False(t, published)
}

func TestDelegateWithoutServer(t *testing.T) {
	root := t.TempDir()
	delegate := NewDelegate(root, nil, WithFactory(func(context.Context, string, ServerConfig, string) (SymbolSource, error) {
		return nil, errors.New("must not start")
	}))
	published, err := delegate.RefreshSymbols(context.Background(), buffer.New("x", filepath.Join(root, "a.rs")))
	require.NoError(t, err)
	require.False(t, published)
	require.Equal(t, root, delegate.WorktreeRoot())
}

func TestDelegateReadTextFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# Intro\n"), 0o644))
	delegate := NewDelegate(root, nil)

	text, err := delegate.ReadTextFile(context.Background(), "notes.md")
	require.NoError(t, err)
	require.Equal(t, "# Intro\n", text)

	_, err = delegate.ReadTextFile(context.Background(), "missing.md")
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = delegate.ReadTextFile(ctx, "notes.md")
	require.ErrorIs(t, err, context.Canceled)
}
