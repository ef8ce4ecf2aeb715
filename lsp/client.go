// Package lsp talks to language servers on behalf of slash commands. Its
// main job is publishing document symbols into buffers whose language has no
// built-in outline parser.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/lexcodex/slashcmd/framework/ast"
)

// ServerConfig describes how to launch a language server.
type ServerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

type openDocument struct {
	version int32
	text    string
}

// Client is a JSON-RPC connection to one language server.
type Client struct {
	languageID string
	conn       *jsonrpc2.Conn
	cmd        *exec.Cmd
	cancel     context.CancelFunc

	// docMu keeps each didClose/didOpen pair and the symbol request that
	// follows it together on the wire.
	docMu sync.Mutex

	mu     sync.Mutex
	opened map[protocol.DocumentURI]*openDocument
}

var _ ast.DocumentSymbolProvider = (*Client)(nil)

// Start launches the configured server rooted at root and performs the
// initialize handshake.
func Start(ctx context.Context, languageID string, cfg ServerConfig, root string) (*Client, error) {
	if cfg.Command == "" {
		return nil, errors.New("command is required for language server")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, cfg.Command, cfg.Args...)
	cmd.Dir = absRoot
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	client, err := Dial(ctx, &stdioReadWriteCloser{reader: stdout, writer: stdin}, languageID, absRoot)
	if err != nil {
		cancel()
		_ = cmd.Wait()
		return nil, err
	}
	client.cmd = cmd
	client.cancel = cancel
	return client, nil
}

// Dial initializes a server reachable over rwc.
func Dial(ctx context.Context, rwc io.ReadWriteCloser, languageID, root string) (*Client, error) {
	if languageID == "" {
		return nil, errors.New("language id is required for language server")
	}
	client := &Client{
		languageID: languageID,
		opened:     make(map[protocol.DocumentURI]*openDocument),
	}
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}
		return nil, nil
	})
	client.conn = jsonrpc2.NewConn(context.Background(), stream, handler)
	if err := client.initialize(ctx, root); err != nil {
		_ = client.conn.Close()
		return nil, fmt.Errorf("initialize %s server: %w", languageID, err)
	}
	return client, nil
}

func (c *Client) initialize(ctx context.Context, root string) error {
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   protocol.DocumentURI(uri.File(root)),
		ClientInfo: &protocol.ClientInfo{
			Name:    "slashcmd",
			Version: "0.1",
		},
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: true,
				},
			},
		},
	}
	var result protocol.InitializeResult
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	return c.conn.Notify(ctx, "initialized", &protocol.InitializedParams{})
}

// LanguageID returns the language this client serves.
func (c *Client) LanguageID() string { return c.languageID }

// sync makes the server's copy of path match text. Servers see a new
// version as a close followed by a reopen, which every server supports.
func (c *Client) sync(ctx context.Context, docURI protocol.DocumentURI, text string) error {
	c.mu.Lock()
	doc, ok := c.opened[docURI]
	if ok && doc.text == text {
		c.mu.Unlock()
		return nil
	}
	version := int32(1)
	if ok {
		version = doc.version + 1
	}
	c.opened[docURI] = &openDocument{version: version, text: text}
	c.mu.Unlock()

	if ok {
		closeParams := protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		}
		if err := c.conn.Notify(ctx, "textDocument/didClose", closeParams); err != nil {
			return err
		}
	}
	return c.conn.Notify(ctx, "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        docURI,
			LanguageID: protocol.LanguageIdentifier(c.languageID),
			Version:    version,
			Text:       text,
		},
	})
}

// DocumentSymbols implements ast.DocumentSymbolProvider. language is ignored
// when it does not match the server; the server decides what it can parse.
func (c *Client) DocumentSymbols(ctx context.Context, path, language, content string) ([]ast.DocumentSymbol, error) {
	docURI := protocol.DocumentURI(uri.File(path))
	c.docMu.Lock()
	defer c.docMu.Unlock()
	if err := c.sync(ctx, docURI, content); err != nil {
		return nil, err
	}
	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}
	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, err
	}
	return decodeSymbols(raw)
}

// Close terminates the connection and, for launched servers, the process.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	err := c.conn.Close()
	if c.cancel != nil {
		c.cancel()
	}
	if c.cmd != nil {
		_ = c.cmd.Wait()
	}
	return err
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}
