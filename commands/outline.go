// Package commands contains the slash commands shipped with slashcmd.
package commands

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/lexcodex/slashcmd/framework"
	"github.com/lexcodex/slashcmd/framework/buffer"
	"github.com/lexcodex/slashcmd/framework/executor"
	"github.com/lexcodex/slashcmd/framework/workspace"
)

// OutlineCommand inserts the symbol outline of the active tab. Paths under
// the worktree are shown relative to it unless AbsolutePaths is set.
type OutlineCommand struct {
	AbsolutePaths bool
}

var _ framework.SlashCommand = OutlineCommand{}

func (OutlineCommand) Name() string           { return "outline" }
func (OutlineCommand) Description() string    { return "insert outline for active tab" }
func (OutlineCommand) MenuText() string       { return "Insert Outline for Active Tab" }
func (OutlineCommand) RequiresArgument() bool { return false }

// CompleteArgument always fails: the command takes no argument.
func (OutlineCommand) CompleteArgument(string, *atomic.Bool, *workspace.WeakRef, *executor.AppContext) *executor.Task[[]framework.ArgumentCompletion] {
	return executor.Fail[[]framework.ArgumentCompletion](framework.ErrArgumentNotAccepted)
}

// Run captures a snapshot of the active editor's buffer and formats its
// outline on the background pool.
func (c OutlineCommand) Run(_ string, ws workspace.WeakRef, _ framework.LanguageDelegate, cx *executor.WindowContext) *executor.Task[framework.Output] {
	state, err := workspace.Update(ws, cx, func(ws *workspace.Workspace, _ *executor.WindowContext) captured {
		return captureActive(ws, !c.AbsolutePaths)
	})
	if errors.Is(err, workspace.ErrReleased) {
		return executor.Fail[framework.Output](framework.ErrWorkspaceGone)
	}
	if err != nil {
		return executor.Fail[framework.Output](err)
	}
	if state.err != nil {
		return executor.Fail[framework.Output](state.err)
	}
	return executor.Spawn(cx.Background(), func(context.Context) (framework.Output, error) {
		outline, ok := state.snapshot.Outline(nil)
		if !ok {
			return framework.Output{}, framework.ErrNoOutline
		}
		return framework.Output{
			Text:              formatOutline(state.path, state.hasPath, outline),
			Sections:          []framework.Section{},
			RunCommandsInText: false,
		}, nil
	})
}

// captured is everything Run reads from the workspace before leaving the
// interactive context.
type captured struct {
	snapshot *buffer.Snapshot
	path     string
	hasPath  bool
	err      error
}

func captureActive(ws *workspace.Workspace, preferRelative bool) captured {
	item, ok := ws.ActiveItem()
	if !ok {
		return captured{err: framework.ErrNoActiveTab}
	}
	editor, ok := workspace.AsEditor(item)
	if !ok {
		return captured{err: framework.ErrNotAnEditor}
	}
	buf, ok := editor.Buffer().AsSingleton()
	if !ok {
		return captured{err: framework.ErrNotAnEditor}
	}
	snap := buf.Snapshot()
	path, hasPath := snap.ResolveFilePath(ws.Root(), preferRelative)
	return captured{snapshot: snap, path: path, hasPath: hasPath}
}

func formatOutline(path string, hasPath bool, outline *buffer.Outline) string {
	if !hasPath {
		path = "untitled"
	}
	var sb strings.Builder
	sb.WriteString("Symbols for ")
	sb.WriteString(path)
	sb.WriteString(":\n")
	for _, candidate := range outline.PathCandidates {
		sb.WriteString("- ")
		sb.WriteString(candidate.String)
		sb.WriteString("\n")
	}
	return sb.String()
}
