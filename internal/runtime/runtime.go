// Package runtime wires the executors, workspace, command registry, language
// delegate and transcript store shared by the CLI and the interactive shell.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/lexcodex/slashcmd/commands"
	"github.com/lexcodex/slashcmd/framework"
	"github.com/lexcodex/slashcmd/framework/buffer"
	"github.com/lexcodex/slashcmd/framework/executor"
	"github.com/lexcodex/slashcmd/framework/workspace"
	"github.com/lexcodex/slashcmd/internal/assistant"
	"github.com/lexcodex/slashcmd/lsp"
	"github.com/lexcodex/slashcmd/persistence"
)

// ErrNotStarted is returned by operations that need the interactive loop
// before Start was called.
var ErrNotStarted = errors.New("runtime not started")

// Runtime owns one window: its interactive loop, background pool, workspace
// and the context document commands insert into.
type Runtime struct {
	Config     Config
	Logger     *log.Logger
	Foreground *executor.Foreground
	Background *executor.Background
	Workspace  *workspace.Workspace
	Registry   *framework.Registry
	Delegate   *lsp.Delegate
	Store      persistence.TranscriptStore
	Document   *assistant.ContextDocument

	logFile io.Closer
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option customizes runtime construction.
type Option func(*options)

type options struct {
	console io.Writer
	lspOpts []lsp.DelegateOption
}

// WithConsole mirrors log output to w in addition to the log file.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithDelegateOptions forwards options to the language delegate.
func WithDelegateOptions(opts ...lsp.DelegateOption) Option {
	return func(o *options) { o.lspOpts = append(o.lspOpts, opts...) }
}

// New builds a runtime. Call Start before invoking commands.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	var out io.Writer = logFile
	if o.console != nil {
		out = io.MultiWriter(o.console, logFile)
	}
	logger := log.New(out, "slashcmd ", log.LstdFlags|log.Lmicroseconds)

	store, err := persistence.NewSQLiteTranscriptStore(cfg.TranscriptPath)
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("transcript store: %w", err)
	}

	registry := framework.NewRegistry(logger)
	if err := registry.Register(commands.OutlineCommand{AbsolutePaths: !cfg.PreferRelativePaths}); err != nil {
		_ = store.Close()
		_ = logFile.Close()
		return nil, err
	}

	background := executor.NewBackground(cfg.BackgroundWorkers)
	delegateOpts := append([]lsp.DelegateOption{lsp.WithLogger(logger)}, o.lspOpts...)
	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Foreground: executor.NewForeground(background),
		Background: background,
		Workspace:  workspace.New(cfg.Workspace),
		Registry:   registry,
		Delegate:   lsp.NewDelegate(cfg.Workspace, cfg.LanguageServers, delegateOpts...),
		Store:      store,
		Document:   assistant.NewContextDocument(store),
		logFile:    logFile,
	}, nil
}

// Start runs the interactive loop until ctx is done or Close is called.
func (r *Runtime) Start(ctx context.Context) {
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		if err := r.Foreground.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.Logger.Printf("foreground stopped: %v", err)
		}
	}()
}

func (r *Runtime) call(ctx context.Context, fn func(cx *executor.WindowContext) error) error {
	if r.done == nil {
		return ErrNotStarted
	}
	return r.Foreground.Call(ctx, fn)
}

// OpenFile loads path into a new active editor tab and returns its index.
func (r *Runtime) OpenFile(ctx context.Context, path string) (int, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Config.Workspace, path)
	}
	buf, err := buffer.Open(path)
	if err != nil {
		return -1, err
	}
	r.refreshSymbols(ctx, buf)
	index := -1
	err = r.call(ctx, func(*executor.WindowContext) error {
		index = r.Workspace.AddItem(workspace.NewSingletonEditor(buf), true)
		return nil
	})
	return index, err
}

// OpenSettings opens the settings tab and makes it active.
func (r *Runtime) OpenSettings(ctx context.Context) error {
	return r.call(ctx, func(*executor.WindowContext) error {
		r.Workspace.AddItem(workspace.SettingsView{}, true)
		return nil
	})
}

// ActivateTab switches the active tab.
func (r *Runtime) ActivateTab(ctx context.Context, index int) error {
	return r.call(ctx, func(*executor.WindowContext) error {
		return r.Workspace.ActivateItem(index)
	})
}

// Tab describes an open tab.
type Tab struct {
	Index  int
	Title  string
	Active bool
}

// Tabs lists the open tabs.
func (r *Runtime) Tabs(ctx context.Context) ([]Tab, error) {
	var tabs []Tab
	err := r.call(ctx, func(*executor.WindowContext) error {
		active := r.Workspace.ActiveIndex()
		for i, item := range r.Workspace.Items() {
			tabs = append(tabs, Tab{Index: i, Title: item.TabTitle(), Active: i == active})
		}
		return nil
	})
	return tabs, err
}

func (r *Runtime) activeBuffer(ctx context.Context) *buffer.Buffer {
	var buf *buffer.Buffer
	_ = r.call(ctx, func(*executor.WindowContext) error {
		item, ok := r.Workspace.ActiveItem()
		if !ok {
			return nil
		}
		if editor, ok := workspace.AsEditor(item); ok {
			buf, _ = editor.Buffer().AsSingleton()
		}
		return nil
	})
	return buf
}

func (r *Runtime) refreshSymbols(ctx context.Context, buf *buffer.Buffer) {
	if buf == nil || !r.Delegate.HasServer(buf.Language()) {
		return
	}
	if _, err := r.Delegate.RefreshSymbols(ctx, buf); err != nil {
		r.Logger.Printf("symbols for %s: %v", buf.Path(), err)
	}
}

// Invoke runs a slash command against the workspace and inserts its output
// into the context document.
func (r *Runtime) Invoke(ctx context.Context, name, argument string) (framework.Output, error) {
	if r.done == nil {
		return framework.Output{}, ErrNotStarted
	}
	r.refreshSymbols(ctx, r.activeBuffer(ctx))
	task := r.Registry.Invoke(ctx, r.Foreground, name, argument, r.Workspace.Downgrade(), r.Delegate)
	out, err := task.Await(ctx)
	if err != nil {
		task.Cancel()
		return framework.Output{}, err
	}
	cmd, _ := r.Registry.Get(name)
	if _, err := r.Document.InsertCommand(ctx, cmd.Name(), argument, out); err != nil {
		return out, fmt.Errorf("insert output: %w", err)
	}
	return out, nil
}

// Commands lists the registered slash commands.
func (r *Runtime) Commands() []framework.SlashCommand {
	return r.Registry.List()
}

// Complete asks a command for argument completions.
func (r *Runtime) Complete(ctx context.Context, name, query string) ([]framework.ArgumentCompletion, error) {
	ref := r.Workspace.Downgrade()
	return r.Registry.Complete(ctx, r.Foreground.App(), name, query, &ref).Await(ctx)
}

// History lists persisted command output, newest last.
func (r *Runtime) History(ctx context.Context, limit int) ([]persistence.TranscriptEntry, error) {
	return r.Store.List(ctx, "", limit)
}

// Close stops the interactive loop and releases every resource. Outstanding
// weak references to the workspace stop resolving.
func (r *Runtime) Close() error {
	r.Workspace.Close()
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	r.Background.Close()
	var errs []error
	if err := r.Delegate.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.logFile != nil {
		if err := r.logFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
