// Package history provides snapshot based undo/redo for screen images.
//
// Every user action is bracketed by a single Capture taken before the
// action mutates the document:
//
//	h := history.NewManager(200)
//	h.Capture(img) // before the stroke
//	// ... any number of pixel writes ...
//	h.Undo(img)   // restores the state before the stroke
//
// # Snapshots
//
// A Snapshot holds a deep copy of the committed buffer, the layer stack
// and the active layer index. Restoring one replaces the document state
// wholesale and re-flattens the layers, since a snapshot may have been
// taken before the last flatten.
//
// # Limits
//
// The undo stack is bounded; once full, the oldest entry is evicted. The
// redo stack is cleared by every Capture. Undo and Redo on an empty stack
// do nothing and return nil.
package history
