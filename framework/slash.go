package framework

import (
	"context"
	"sync/atomic"

	"github.com/lexcodex/slashcmd/framework/executor"
	"github.com/lexcodex/slashcmd/framework/workspace"
)

// SlashCommand is a named action a user can insert into the context document
// by typing /name. Implementations are registered once and shared by every
// invocation, so they must not keep per-call state.
type SlashCommand interface {
	Name() string
	Description() string
	MenuText() string
	RequiresArgument() bool

	// CompleteArgument proposes values for the command's argument. cancel is
	// advisory: long-running completions should poll it and stop early.
	CompleteArgument(query string, cancel *atomic.Bool, ws *workspace.WeakRef, cx *executor.AppContext) *executor.Task[[]ArgumentCompletion]

	// Run starts the command. It is called on the interactive context; work
	// that does not need workspace state belongs on cx.Background().
	Run(argument string, ws workspace.WeakRef, delegate LanguageDelegate, cx *executor.WindowContext) *executor.Task[Output]
}

// LanguageDelegate gives commands access to services backed by the worktree
// and its language servers.
type LanguageDelegate interface {
	WorktreeRoot() string
	Which(ctx context.Context, binary string) (string, bool)
	ReadTextFile(ctx context.Context, path string) (string, error)
}

// ArgumentCompletion is one suggestion offered while the user types an
// argument.
type ArgumentCompletion struct {
	Label   string
	NewText string
	// RunCommand runs the command as soon as the completion is accepted.
	RunCommand bool
}

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered.
func (r Range) Len() int { return r.End - r.Start }

// Section annotates part of an Output so the text-assembly layer can fold or
// label it.
type Section struct {
	Range Range  `json:"range"`
	Icon  string `json:"icon,omitempty"`
	Label string `json:"label"`
}

// Output is the result of a successful command.
type Output struct {
	Text     string    `json:"text"`
	Sections []Section `json:"sections"`
	// RunCommandsInText asks the assembler to expand slash commands found
	// inside Text.
	RunCommandsInText bool `json:"run_commands_in_text"`
}
