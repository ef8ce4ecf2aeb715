// Package assistant assembles slash command output into the context document
// that is later sent to a model.
package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lexcodex/slashcmd/framework"
	"github.com/lexcodex/slashcmd/persistence"
)

// Insertion records where one command's output landed in the document.
type Insertion struct {
	Command  string
	Argument string
	Range    framework.Range
	Sections []framework.Section
	// Expand is set when the output asked for commands inside it to run.
	Expand bool
}

// ContextDocument is the text buffer slash command output is inserted into.
type ContextDocument struct {
	id    string
	store persistence.TranscriptStore

	mu         sync.Mutex
	text       strings.Builder
	insertions []Insertion
}

// NewContextDocument starts an empty document. store may be nil.
func NewContextDocument(store persistence.TranscriptStore) *ContextDocument {
	return &ContextDocument{id: uuid.NewString(), store: store}
}

// ID identifies the document in the transcript store.
func (d *ContextDocument) ID() string { return d.id }

// Text returns the assembled document.
func (d *ContextDocument) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text.String()
}

// Insertions returns insertions in document order.
func (d *ContextDocument) Insertions() []Insertion {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Insertion(nil), d.insertions...)
}

// InsertCommand appends out to the document. Section ranges are shifted
// into document coordinates and a section covering the whole output,
// labelled with the invocation, is added first. The entry is persisted
// before the document changes so a failed write leaves it untouched.
func (d *ContextDocument) InsertCommand(ctx context.Context, command, argument string, out framework.Output) (Insertion, error) {
	text := out.Text
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	label := "/" + command
	if argument != "" {
		label += " " + argument
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	start := d.text.Len()
	insertion := Insertion{
		Command:  command,
		Argument: argument,
		Range:    framework.Range{Start: start, End: start + len(text)},
		Expand:   out.RunCommandsInText,
	}
	insertion.Sections = append(insertion.Sections, framework.Section{Range: insertion.Range, Label: label})
	for _, section := range out.Sections {
		section.Range = framework.Range{Start: start + section.Range.Start, End: start + section.Range.End}
		insertion.Sections = append(insertion.Sections, section)
	}

	if d.store != nil {
		err := d.store.Append(ctx, &persistence.TranscriptEntry{
			DocumentID:        d.id,
			Command:           command,
			Argument:          argument,
			Text:              text,
			Sections:          insertion.Sections,
			RunCommandsInText: out.RunCommandsInText,
		})
		if err != nil {
			return Insertion{}, err
		}
	}
	d.text.WriteString(text)
	d.insertions = append(d.insertions, insertion)
	return insertion, nil
}
