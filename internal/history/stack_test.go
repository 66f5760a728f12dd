package history

import (
	"errors"
	"testing"

	"zxpaint/internal/layer"
	"zxpaint/pkg/scr"
)

type fakeDoc struct {
	desc     scr.Descriptor
	data     []byte
	stack    *layer.Stack
	replaced int
}

func newFakeDoc(id scr.FormatID) *fakeDoc {
	d := scr.MustLookup(id)
	return &fakeDoc{desc: d, data: make([]byte, d.FileSize)}
}

func (f *fakeDoc) Format() scr.Descriptor { return f.desc }

func (f *fakeDoc) Snapshot() Snapshot {
	return Snapshot{Format: f.desc.ID, Data: f.data, Layers: f.stack}
}

func (f *fakeDoc) Replace(s Snapshot) error {
	f.data = s.Data
	f.stack = s.Layers
	f.replaced++
	return nil
}

func TestUndoRedo(t *testing.T) {
	doc := newFakeDoc(scr.FormatStandard)
	m := NewManager(10)

	m.Capture(doc)
	doc.data[0] = 1
	m.Capture(doc)
	doc.data[0] = 2

	if err := m.Undo(doc); err != nil {
		t.Fatal(err)
	}
	if doc.data[0] != 1 {
		t.Fatalf("after undo: %d", doc.data[0])
	}
	if !m.CanRedo() || m.RedoCount() != 1 {
		t.Fatalf("redo stack: %d", m.RedoCount())
	}
	if err := m.Redo(doc); err != nil {
		t.Fatal(err)
	}
	if doc.data[0] != 2 {
		t.Fatalf("after redo: %d", doc.data[0])
	}
	_ = m.Undo(doc)
	_ = m.Undo(doc)
	if doc.data[0] != 0 {
		t.Fatalf("after two undos: %d", doc.data[0])
	}
}

func TestCaptureCopiesState(t *testing.T) {
	doc := newFakeDoc(scr.FormatStandard)
	m := NewManager(10)
	m.Capture(doc)
	doc.data[10] = 0xAA
	_ = m.Undo(doc)
	if doc.data[10] != 0 {
		t.Fatalf("snapshot aliased the live buffer")
	}
}

func TestCaptureClearsRedo(t *testing.T) {
	doc := newFakeDoc(scr.FormatStandard)
	m := NewManager(10)
	m.Capture(doc)
	_ = m.Undo(doc)
	if !m.CanRedo() {
		t.Fatal("expected redo entry")
	}
	m.Capture(doc)
	if m.CanRedo() {
		t.Fatalf("capture must clear redo")
	}
}

func TestRollbackRestoresStacks(t *testing.T) {
	doc := newFakeDoc(scr.FormatStandard)
	m := NewManager(2)
	doc.data[0] = 1
	m.Capture(doc)
	doc.data[0] = 2
	m.Capture(doc)
	doc.data[0] = 3
	_ = m.Undo(doc)

	mark := m.Mark()
	m.Capture(doc)
	doc.data[0] = 9
	if err := m.Rollback(doc, mark); err != nil {
		t.Fatal(err)
	}
	if doc.data[0] != 2 {
		t.Fatalf("document after rollback: %d", doc.data[0])
	}
	if m.UndoCount() != 1 || m.RedoCount() != 1 {
		t.Fatalf("counts: %d/%d", m.UndoCount(), m.RedoCount())
	}
	_ = m.Redo(doc)
	if doc.data[0] != 3 {
		t.Fatalf("redo after rollback: %d", doc.data[0])
	}
	_ = m.Undo(doc)
	_ = m.Undo(doc)
	if doc.data[0] != 1 {
		t.Fatalf("oldest entry lost: %d", doc.data[0])
	}
}

func TestUnderflowIsSilent(t *testing.T) {
	doc := newFakeDoc(scr.FormatStandard)
	m := NewManager(10)
	if err := m.Undo(doc); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if err := m.Redo(doc); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if doc.replaced != 0 {
		t.Fatalf("document touched on underflow")
	}
}

func TestEvictsOldest(t *testing.T) {
	doc := newFakeDoc(scr.FormatStandard)
	m := NewManager(3)
	for i := 1; i <= 5; i++ {
		doc.data[0] = byte(i)
		m.Capture(doc)
	}
	if m.UndoCount() != 3 {
		t.Fatalf("depth: %d", m.UndoCount())
	}
	for m.CanUndo() {
		_ = m.Undo(doc)
	}
	if doc.data[0] != 3 {
		t.Fatalf("oldest kept snapshot: %d want 3", doc.data[0])
	}

	m.SetMaxEntries(1)
	if m.UndoCount() != 0 || m.RedoCount() != 3 {
		t.Fatalf("counts: %d/%d", m.UndoCount(), m.RedoCount())
	}
}

func TestSetMaxEntriesTrims(t *testing.T) {
	doc := newFakeDoc(scr.FormatStandard)
	m := NewManager(0)
	for i := 0; i < 10; i++ {
		m.Capture(doc)
	}
	m.SetMaxEntries(4)
	if m.UndoCount() != 4 {
		t.Fatalf("depth: %d", m.UndoCount())
	}
	m.Clear()
	if m.CanUndo() || m.CanRedo() {
		t.Fatalf("Clear left entries")
	}
}

func TestFormatMismatch(t *testing.T) {
	std := newFakeDoc(scr.FormatStandard)
	m := NewManager(10)
	m.Capture(std)

	giga := newFakeDoc(scr.FormatGigascreen)
	if err := m.Undo(giga); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("got %v", err)
	}
	if giga.replaced != 0 || m.UndoCount() != 1 || m.RedoCount() != 0 {
		t.Fatalf("mismatch changed state")
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	d := scr.MustLookup(scr.FormatStandard)
	st, err := layer.NewStack(d, make([]byte, d.FileSize))
	if err != nil {
		t.Fatal(err)
	}
	s := Snapshot{Format: d.ID, Data: make([]byte, d.FileSize), Layers: st}
	c := s.Clone()
	c.Data[0] = 1
	c.Layers.Add("x")
	if s.Data[0] != 0 || s.Layers.Len() != 1 {
		t.Fatalf("clone shares state")
	}
}
