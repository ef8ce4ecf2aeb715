package workspace

import (
	"path/filepath"

	"github.com/lexcodex/slashcmd/framework/buffer"
)

// Item is anything that can occupy a tab.
type Item interface {
	TabTitle() string
}

// MultiBuffer presents one or more buffers as a single editable surface.
type MultiBuffer struct {
	buffers []*buffer.Buffer
}

// NewMultiBuffer groups buffers; a single buffer makes a singleton.
func NewMultiBuffer(buffers ...*buffer.Buffer) *MultiBuffer {
	return &MultiBuffer{buffers: buffers}
}

// AsSingleton returns the underlying buffer when there is exactly one.
func (m *MultiBuffer) AsSingleton() (*buffer.Buffer, bool) {
	if m == nil || len(m.buffers) != 1 {
		return nil, false
	}
	return m.buffers[0], true
}

// Buffers returns the grouped buffers.
func (m *MultiBuffer) Buffers() []*buffer.Buffer {
	out := make([]*buffer.Buffer, len(m.buffers))
	copy(out, m.buffers)
	return out
}

// Editor is a text-editing view over a MultiBuffer.
type Editor struct {
	buffer *MultiBuffer
	title  string
}

// NewEditor opens an editor over mb.
func NewEditor(mb *MultiBuffer) *Editor {
	return &Editor{buffer: mb}
}

// NewSingletonEditor opens an editor over one buffer.
func NewSingletonEditor(b *buffer.Buffer) *Editor {
	return NewEditor(NewMultiBuffer(b))
}

// WithTitle overrides the tab title, used for multi-buffer views such as
// search results.
func (e *Editor) WithTitle(title string) *Editor {
	e.title = title
	return e
}

// Buffer returns the editor's multi-buffer.
func (e *Editor) Buffer() *MultiBuffer { return e.buffer }

// TabTitle implements Item.
func (e *Editor) TabTitle() string {
	if e.title != "" {
		return e.title
	}
	if b, ok := e.buffer.AsSingleton(); ok {
		if path := b.Path(); path != "" {
			return filepath.Base(path)
		}
		return "untitled"
	}
	return "multibuffer"
}

// AsEditor downcasts item to an editor.
func AsEditor(item Item) (*Editor, bool) {
	editor, ok := item.(*Editor)
	return editor, ok && editor != nil
}

// SettingsView is a non-editor tab.
type SettingsView struct{}

// TabTitle implements Item.
func (SettingsView) TabTitle() string { return "Settings" }
