package framework

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/slashcmd/framework/executor"
	"github.com/lexcodex/slashcmd/framework/workspace"
)

type stubCommand struct {
	name     string
	argument bool
	runs     atomic.Int32
	run      func(argument string) (Output, error)
	complete func(query string, cancel *atomic.Bool) ([]ArgumentCompletion, error)
}

func (s *stubCommand) Name() string           { return s.name }
func (s *stubCommand) Description() string    { return "stub " + s.name }
func (s *stubCommand) MenuText() string       { return "Stub" }
func (s *stubCommand) RequiresArgument() bool { return s.argument }

func (s *stubCommand) CompleteArgument(query string, cancel *atomic.Bool, _ *workspace.WeakRef, cx *executor.AppContext) *executor.Task[[]ArgumentCompletion] {
	if s.complete == nil {
		return executor.Fail[[]ArgumentCompletion](ErrArgumentNotAccepted)
	}
	return executor.Spawn(cx.Background(), func(context.Context) ([]ArgumentCompletion, error) {
		return s.complete(query, cancel)
	})
}

func (s *stubCommand) Run(argument string, _ workspace.WeakRef, _ LanguageDelegate, _ *executor.WindowContext) *executor.Task[Output] {
	s.runs.Add(1)
	return executor.Ready(s.run(argument))
}

func startForeground(t *testing.T) *executor.Foreground {
	t.Helper()
	bg := executor.NewBackground(2)
	fg := executor.NewForeground(bg)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = fg.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
		bg.Close()
	})
	return fg
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

func echo(argument string) (Output, error) {
	return Output{Text: "echo " + argument}, nil
}

func TestRegistryRegisterAndList(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(&stubCommand{name: "zeta", run: echo}))
	require.NoError(t, reg.Register(&stubCommand{name: "alpha", run: echo}))
	require.EqualError(t, reg.Register(&stubCommand{name: "alpha", run: echo}), "command alpha already registered")
	require.Error(t, reg.Register(&stubCommand{}))

	names := []string{}
	for _, cmd := range reg.List() {
		names = append(names, cmd.Name())
	}
	require.Equal(t, []string{"alpha", "zeta"}, names)

	_, ok := reg.Get("/alpha")
	require.True(t, ok)
	_, ok = reg.Get("missing")
	require.False(t, ok)
}

func TestRegistryInvoke(t *testing.T) {
	fg := startForeground(t)
	logs := &lockedBuffer{}
	reg := NewRegistry(log.New(logs, "", 0))
	cmd := &stubCommand{name: "echo", run: echo}
	require.NoError(t, reg.Register(cmd))
	ws := workspace.New(t.TempDir())

	out, err := reg.Invoke(context.Background(), fg, "/echo", "  hi ", ws.Downgrade(), nil).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "echo hi", out.Text)
	require.EqualValues(t, 1, cmd.runs.Load())
	require.Eventually(t, func() bool {
		return logs.Contains("ok after")
	}, time.Second, 10*time.Millisecond)
}

func TestRegistryInvokeRejectsUnknownAndMissingArgument(t *testing.T) {
	fg := startForeground(t)
	reg := NewRegistry(nil)
	cmd := &stubCommand{name: "file", argument: true, run: echo}
	require.NoError(t, reg.Register(cmd))
	ref := workspace.New(t.TempDir()).Downgrade()

	_, err := reg.Invoke(context.Background(), fg, "nope", "", ref, nil).Await(context.Background())
	require.True(t, IsKind(err, ErrorUnknownCommand))
	require.EqualError(t, err, "unknown command /nope")

	_, err = reg.Invoke(context.Background(), fg, "file", " ", ref, nil).Await(context.Background())
	require.True(t, IsKind(err, ErrorMissingArgument))
	require.EqualValues(t, 0, cmd.runs.Load())
}

func TestRegistryInvokeRecoversPanic(t *testing.T) {
	fg := startForeground(t)
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(&stubCommand{name: "boom", run: func(string) (Output, error) {
		panic("kaboom")
	}}))

	_, err := reg.Invoke(context.Background(), fg, "boom", "", workspace.New(t.TempDir()).Downgrade(), nil).Await(context.Background())
	require.ErrorContains(t, err, "command /boom panicked: kaboom")

	// The loop survives the panic.
	require.NoError(t, fg.Call(context.Background(), func(*executor.WindowContext) error { return nil }))
}

func TestRegistryInvokeCancelledBeforeRunNeverRuns(t *testing.T) {
	fg := startForeground(t)
	reg := NewRegistry(nil)
	cmd := &stubCommand{name: "echo", run: echo}
	require.NoError(t, reg.Register(cmd))

	release := make(chan struct{})
	require.NoError(t, fg.Post(func(*executor.WindowContext) { <-release }))

	ctx, cancel := context.WithCancel(context.Background())
	task := reg.Invoke(ctx, fg, "echo", "", workspace.New(t.TempDir()).Downgrade(), nil)
	cancel()
	close(release)

	_, err := task.Await(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, fg.Call(context.Background(), func(*executor.WindowContext) error { return nil }))
	require.EqualValues(t, 0, cmd.runs.Load())
}

func TestRegistryCompleteRaisesCancelFlag(t *testing.T) {
	fg := startForeground(t)
	reg := NewRegistry(nil)
	started := make(chan struct{})
	require.NoError(t, reg.Register(&stubCommand{
		name: "file",
		run:  echo,
		complete: func(query string, cancel *atomic.Bool) ([]ArgumentCompletion, error) {
			close(started)
			for !cancel.Load() {
				time.Sleep(time.Millisecond)
			}
			return nil, errors.New("abandoned " + query)
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	task := reg.Complete(ctx, fg.App(), "file", "rea", nil)
	<-started
	cancel()
	_, err := task.Await(context.Background())
	require.EqualError(t, err, "abandoned rea")

	_, err = reg.Complete(context.Background(), fg.App(), "nope", "", nil).Await(context.Background())
	require.True(t, IsKind(err, ErrorUnknownCommand))
}

func TestCommandErrorKinds(t *testing.T) {
	wrapped := Wrap(ErrWorkspaceGone, errors.New("window closed"))
	require.ErrorIs(t, wrapped, ErrWorkspaceGone)
	require.False(t, errors.Is(wrapped, ErrNoOutline))
	require.EqualError(t, wrapped, "workspace released: window closed")
	require.True(t, IsKind(wrapped, ErrorWorkspaceGone))
	require.False(t, IsKind(errors.New("plain"), ErrorNoOutline))
}
