package editor

import (
	"fmt"

	"zxpaint/pkg/scr"
)

// SetCell prints code at (col, row) of the active layer. Positions off the
// grid are ignored. A transparent ink or paper on an upper layer erases
// the cell.
func (img *Image) SetCell(ctx Context, col, row int, code byte) error {
	if !img.desc.CharStream {
		return ErrNotCharStream
	}
	if col < 0 || row < 0 || col >= scr.Columns || row >= scr.Rows {
		return nil
	}
	idx := row*scr.Columns + col
	l := img.stack.ActiveLayer()
	if img.erases(ctx) {
		l.SetMask(idx, false)
		img.Commit()
		return nil
	}
	if !scr.Printable(code) {
		return fmt.Errorf("%w: %d", ErrInvalidCode, code)
	}
	l.Cells[idx] = scr.Cell{Code: code, Attr: ctx.Colors.Attr(), Inverse: ctx.Inverse}
	l.SetMask(idx, true)
	img.Commit()
	return nil
}

// Cell returns the visible cell at (col, row): the topmost visible layer
// that printed there. ok is false when nothing was printed.
func (img *Image) Cell(col, row int) (scr.Cell, bool) {
	if !img.desc.CharStream || col < 0 || row < 0 || col >= scr.Columns || row >= scr.Rows {
		return scr.Cell{}, false
	}
	idx := row*scr.Columns + col
	layers := img.stack.Layers()
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if l.Visible && l.Masked(idx) && scr.Printable(l.Cells[idx].Code) {
			return l.Cells[idx], true
		}
	}
	return scr.Cell{}, false
}

// WriteText prints s from (col, row) onward, wrapping at the right edge.
// Characters that cannot be printed are skipped.
func (img *Image) WriteText(ctx Context, col, row int, s string) error {
	if !img.desc.CharStream {
		return ErrNotCharStream
	}
	for _, r := range s {
		if r == '\n' {
			col, row = 0, row+1
			continue
		}
		if r < 0 || r > 255 || !scr.Printable(byte(r)) {
			continue
		}
		if err := img.SetCell(ctx, col, row, byte(r)); err != nil {
			return err
		}
		col++
		if col == scr.Columns {
			col, row = 0, row+1
		}
	}
	return nil
}
