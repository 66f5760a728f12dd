package history

import (
	"errors"
	"fmt"

	"zxpaint/internal/layer"
	"zxpaint/internal/logging"
	"zxpaint/pkg/scr"
)

// DefaultMaxEntries is the undo depth used when none is configured.
const DefaultMaxEntries = 200

var ErrFormatMismatch = errors.New("history: snapshot format does not match document")

// Snapshot is the full restorable state of a document.
type Snapshot struct {
	Format scr.FormatID
	Data   []byte
	Layers *layer.Stack
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Format: s.Format}
	if s.Data != nil {
		out.Data = append([]byte(nil), s.Data...)
	}
	if s.Layers != nil {
		out.Layers = s.Layers.Clone()
	}
	return out
}

// Document is anything whose state can be captured and replaced.
type Document interface {
	Format() scr.Descriptor
	Snapshot() Snapshot
	Replace(Snapshot) error
}

// Manager holds the undo and redo stacks of one document.
type Manager struct {
	undoStack []Snapshot
	redoStack []Snapshot

	maxEntries int
}

func NewManager(maxEntries int) *Manager {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Manager{maxEntries: maxEntries}
}

// Capture pushes the current state of doc. Call it once before each user
// action. The redo stack is cleared.
func (m *Manager) Capture(doc Document) {
	m.undoStack = append(m.undoStack, doc.Snapshot().Clone())
	m.redoStack = nil
	m.trim()
}

func (m *Manager) trim() {
	if excess := len(m.undoStack) - m.maxEntries; excess > 0 {
		m.undoStack = append([]Snapshot(nil), m.undoStack[excess:]...)
		logging.Logger().Debug("history evicted", "entries", excess)
	}
}

// Undo restores the most recent snapshot and moves the current state to
// the redo stack. A snapshot of another format is rejected and nothing
// changes.
func (m *Manager) Undo(doc Document) error {
	if len(m.undoStack) == 0 {
		return nil
	}
	return m.step(doc, &m.undoStack, &m.redoStack)
}

// Redo is the mirror of Undo.
func (m *Manager) Redo(doc Document) error {
	if len(m.redoStack) == 0 {
		return nil
	}
	return m.step(doc, &m.redoStack, &m.undoStack)
}

func (m *Manager) step(doc Document, from, to *[]Snapshot) error {
	last := (*from)[len(*from)-1]
	if got := doc.Format().ID; last.Format != got {
		logging.Logger().Debug("history snapshot rejected", "snapshot", last.Format, "document", got)
		return fmt.Errorf("%w: snapshot %d, document %d", ErrFormatMismatch, last.Format, got)
	}
	cur := doc.Snapshot().Clone()
	if err := doc.Replace(last.Clone()); err != nil {
		return err
	}
	*from = (*from)[:len(*from)-1]
	*to = append(*to, cur)
	if to == &m.undoStack {
		m.trim()
	}
	return nil
}

// Mark is the position of both stacks at one moment.
type Mark struct {
	undo, redo []Snapshot
}

// Mark records the stacks so that a Capture made after it can be taken
// back with Rollback.
func (m *Manager) Mark() Mark {
	return Mark{undo: m.undoStack, redo: m.redoStack}
}

// Rollback restores doc to the most recent capture and puts both stacks
// back the way they were at mark. It is for actions that fail after
// their Capture and must leave no trace.
func (m *Manager) Rollback(doc Document, mark Mark) error {
	if len(m.undoStack) > 0 {
		last := m.undoStack[len(m.undoStack)-1]
		if err := doc.Replace(last.Clone()); err != nil {
			return err
		}
	}
	m.undoStack = mark.undo
	m.redoStack = mark.redo
	return nil
}

func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

func (m *Manager) UndoCount() int { return len(m.undoStack) }

func (m *Manager) RedoCount() int { return len(m.redoStack) }

// SetMaxEntries changes the undo depth, evicting the oldest entries if
// the stack is already deeper.
func (m *Manager) SetMaxEntries(n int) {
	if n <= 0 {
		n = DefaultMaxEntries
	}
	m.maxEntries = n
	m.trim()
}

// Clear drops both stacks, e.g. after a new document is opened.
func (m *Manager) Clear() {
	m.undoStack = nil
	m.redoStack = nil
}
