package framework

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lexcodex/slashcmd/framework/executor"
	"github.com/lexcodex/slashcmd/framework/workspace"
)

// Registry holds the slash commands available to a window, keyed by name.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]SlashCommand
	logger   *log.Logger
}

// NewRegistry builds an empty registry. A nil logger discards output.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		commands: make(map[string]SlashCommand),
		logger:   logger,
	}
}

// Register adds a command. Names must be unique.
func (r *Registry) Register(cmd SlashCommand) error {
	if cmd == nil || cmd.Name() == "" {
		return fmt.Errorf("command name required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[cmd.Name()]; exists {
		return fmt.Errorf("command %s already registered", cmd.Name())
	}
	r.commands[cmd.Name()] = cmd
	return nil
}

// Get fetches a command by name. A leading slash is ignored.
func (r *Registry) Get(name string) (SlashCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[strings.TrimPrefix(name, "/")]
	return cmd, ok
}

// List returns every command sorted by name.
func (r *Registry) List() []SlashCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]SlashCommand, 0, len(r.commands))
	for _, cmd := range r.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

// Invoke schedules the named command on the interactive context. If ctx is
// cancelled, or the returned task is cancelled, before the foreground loop
// reaches the command, Run is never called.
func (r *Registry) Invoke(ctx context.Context, fg *executor.Foreground, name, argument string, ws workspace.WeakRef, delegate LanguageDelegate) *executor.Task[Output] {
	cmd, ok := r.Get(name)
	if !ok {
		return executor.Fail[Output](NewUnknownCommand(strings.TrimPrefix(name, "/")))
	}
	argument = strings.TrimSpace(argument)
	if cmd.RequiresArgument() && argument == "" {
		return executor.Fail[Output](NewMissingArgument(cmd.Name()))
	}

	id := uuid.NewString()
	started := time.Now()
	r.logger.Printf("invoke /%s id=%s", cmd.Name(), id)
	task := executor.Dispatch(ctx, fg, func(cx *executor.WindowContext) (task *executor.Task[Output]) {
		defer func() {
			if rec := recover(); rec != nil {
				task = executor.Fail[Output](fmt.Errorf("command /%s panicked: %v", cmd.Name(), rec))
			}
		}()
		return cmd.Run(argument, ws, delegate, cx)
	})
	go func() {
		out, err := task.Await(context.Background())
		elapsed := time.Since(started).Round(time.Microsecond)
		if err != nil {
			r.logger.Printf("invoke /%s id=%s failed after %s: %v", cmd.Name(), id, elapsed, err)
			return
		}
		r.logger.Printf("invoke /%s id=%s ok after %s (%d bytes)", cmd.Name(), id, elapsed, len(out.Text))
	}()
	return task
}

// Complete asks the named command for argument completions. The command's
// cancellation flag is raised when ctx is done.
func (r *Registry) Complete(ctx context.Context, app *executor.AppContext, name, query string, ws *workspace.WeakRef) *executor.Task[[]ArgumentCompletion] {
	cmd, ok := r.Get(name)
	if !ok {
		return executor.Fail[[]ArgumentCompletion](NewUnknownCommand(strings.TrimPrefix(name, "/")))
	}
	cancel := new(atomic.Bool)
	if ctx.Err() != nil {
		cancel.Store(true)
	}
	stop := context.AfterFunc(ctx, func() { cancel.Store(true) })
	task := cmd.CompleteArgument(query, cancel, ws, app)
	if task.IsReady() {
		stop()
		return task
	}
	go func() {
		<-task.Done()
		stop()
	}()
	return task
}
