package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"weak"

	"github.com/lexcodex/slashcmd/framework/executor"
)

// ErrReleased is returned when a weak reference no longer resolves, usually
// because the window owning the workspace was closed.
var ErrReleased = errors.New("workspace released")

// ErrNoWindowContext is returned by Update when called without a window
// context, which only happens off the interactive loop.
var ErrNoWindowContext = errors.New("workspace update requires a window context")

// Workspace tracks open items (tabs) and which one is active. It is owned by
// the interactive context: methods must only be called from code running on
// the Foreground loop.
type Workspace struct {
	root   string
	items  []Item
	active int
	closed atomic.Bool
}

// New creates an empty workspace rooted at root.
func New(root string) *Workspace {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Workspace{root: root, active: -1}
}

// Root returns the absolute worktree root.
func (w *Workspace) Root() string { return w.root }

// Items returns the open items in tab order.
func (w *Workspace) Items() []Item {
	out := make([]Item, len(w.items))
	copy(out, w.items)
	return out
}

// AddItem opens item as a new tab, optionally making it active.
func (w *Workspace) AddItem(item Item, activate bool) int {
	w.items = append(w.items, item)
	index := len(w.items) - 1
	if activate || w.active < 0 {
		w.active = index
	}
	return index
}

// ActivateItem makes the tab at index active.
func (w *Workspace) ActivateItem(index int) error {
	if index < 0 || index >= len(w.items) {
		return fmt.Errorf("no tab at index %d", index)
	}
	w.active = index
	return nil
}

// CloseItem removes the tab at index. The previous tab becomes active when
// the active tab is closed.
func (w *Workspace) CloseItem(index int) error {
	if index < 0 || index >= len(w.items) {
		return fmt.Errorf("no tab at index %d", index)
	}
	w.items = append(w.items[:index], w.items[index+1:]...)
	switch {
	case len(w.items) == 0:
		w.active = -1
	case w.active > index || w.active == len(w.items):
		w.active--
	}
	return nil
}

// ActiveIndex returns the active tab index, or -1.
func (w *Workspace) ActiveIndex() int { return w.active }

// ActiveItem returns the active tab, if any.
func (w *Workspace) ActiveItem() (Item, bool) {
	if w.active < 0 || w.active >= len(w.items) {
		return nil, false
	}
	return w.items[w.active], true
}

// Close marks the workspace as gone. Outstanding weak references stop
// resolving even if something still holds the workspace.
func (w *Workspace) Close() {
	w.closed.Store(true)
}

// Downgrade returns a reference that does not keep w alive.
func (w *Workspace) Downgrade() WeakRef {
	return WeakRef{ptr: weak.Make(w)}
}

// WeakRef is a non-owning reference to a Workspace.
type WeakRef struct {
	ptr weak.Pointer[Workspace]
}

// Upgrade returns the workspace if it is still alive and open.
func (r WeakRef) Upgrade() (*Workspace, bool) {
	ws := r.ptr.Value()
	if ws == nil || ws.closed.Load() {
		return nil, false
	}
	return ws, true
}

// Update resolves r and runs fn with the workspace. Requiring a
// WindowContext keeps access confined to the interactive context.
func Update[T any](r WeakRef, cx *executor.WindowContext, fn func(ws *Workspace, cx *executor.WindowContext) T) (T, error) {
	var zero T
	if cx == nil {
		return zero, ErrNoWindowContext
	}
	ws, ok := r.Upgrade()
	if !ok {
		return zero, ErrReleased
	}
	return fn(ws, cx), nil
}
