package editor

import (
	"errors"

	"zxpaint/internal/history"
	"zxpaint/pkg/scr"
)

type Tool int

const (
	ToolPencil Tool = iota
	ToolEraser
	ToolAttribute
	ToolText
	ToolBorder
	ToolSelect
)

func (t Tool) String() string {
	switch t {
	case ToolPencil:
		return "pencil"
	case ToolEraser:
		return "eraser"
	case ToolAttribute:
		return "attribute"
	case ToolText:
		return "text"
	case ToolBorder:
		return "border"
	case ToolSelect:
		return "select"
	}
	return "unknown"
}

// Position is a character cell.
type Position struct {
	Col int
	Row int
}

// Rect is a pixel rectangle with exclusive upper bounds.
type Rect struct {
	X0, Y0, X1, Y1 int
}

func (r Rect) Empty() bool { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }

// State is one editing session: the image, the drawing selection, the
// undo history and the view settings the shell persists between frames.
type State struct {
	Image   *Image
	Ctx     Context
	History *history.Manager
	Path    string
	Dirty   bool

	Tool        Tool
	Caret       Position
	ZoomPercent int
	UIScale     int
	HelpVisible bool
	FlashOn     bool

	selectionAnchor   [2]int
	selectionAnchored bool
	selection         Rect
}

func NewState(img *Image) *State {
	if img == nil {
		img = NewImage(scr.MustLookup(scr.FormatStandard))
	}
	s := &State{
		Image:       img,
		Ctx:         DefaultContext(),
		History:     history.NewManager(history.DefaultMaxEntries),
		ZoomPercent: 300,
		UIScale:     100,
	}
	if img.Format().CharStream {
		s.Tool = ToolText
	}
	s.Normalize()
	return s
}

// Normalize clamps the view and caret after the image or settings change.
func (s *State) Normalize() {
	if s.ZoomPercent < 100 {
		s.ZoomPercent = 100
	}
	if s.ZoomPercent > 800 {
		s.ZoomPercent = 800
	}
	if s.UIScale < 50 {
		s.UIScale = 50
	}
	if s.UIScale > 200 {
		s.UIScale = 200
	}
	s.Caret.Col = clamp(s.Caret.Col, 0, scr.Columns-1)
	s.Caret.Row = clamp(s.Caret.Row, 0, scr.Rows-1)
	if s.Tool == ToolBorder && !s.Image.Format().HasBorder() {
		s.Tool = ToolPencil
	}
	if s.Tool == ToolAttribute && !s.Image.Format().HasAttributes() {
		s.Tool = ToolPencil
	}
}

// Load replaces the image and drops the history.
func (s *State) Load(img *Image, path string) {
	s.Image = img
	s.Path = path
	s.Dirty = false
	s.History.Clear()
	s.ClearSelection()
	if img.Format().CharStream {
		s.Tool = ToolText
	} else if s.Tool == ToolText {
		s.Tool = ToolPencil
	}
	s.Normalize()
}

// Edit captures one undo snapshot and runs fn. A whole user action, such
// as one drag of the pencil, should be a single Edit or start with
// Begin. When fn fails the image, the history and the dirty flag are
// restored.
func (s *State) Edit(fn func(*Image) error) error {
	mark, dirty := s.History.Mark(), s.Dirty
	s.Begin()
	if err := fn(s.Image); err != nil {
		if rerr := s.History.Rollback(s.Image, mark); rerr != nil {
			return errors.Join(err, rerr)
		}
		s.Dirty = dirty
		return err
	}
	return nil
}

// Begin captures an undo snapshot and marks the image modified.
func (s *State) Begin() {
	s.History.Capture(s.Image)
	s.Dirty = true
}

func (s *State) Undo() error {
	if !s.History.CanUndo() {
		return nil
	}
	s.Dirty = true
	return s.History.Undo(s.Image)
}

func (s *State) Redo() error {
	if !s.History.CanRedo() {
		return nil
	}
	s.Dirty = true
	return s.History.Redo(s.Image)
}

// Stroke applies the current tool at pixel (x, y). ink selects the ink
// role, false the paper role.
func (s *State) Stroke(x, y int, ink bool) error {
	img := s.Image
	switch s.Tool {
	case ToolPencil:
		if img.Format().CharStream {
			return nil
		}
		return img.SetPixel(s.Ctx, x, y, ink)
	case ToolEraser:
		erase := img.Layered() && img.Layers().Active() != 0
		ctx := s.Ctx
		if erase {
			ctx.Ink, ctx.Paper = ColorTransparent, ColorTransparent
		}
		if img.Format().CharStream {
			return img.SetCell(ctx, x/8, y/8, ' ')
		}
		if erase {
			return img.SetPixel(ctx, x, y, true)
		}
		return img.SetPixel(s.Ctx, x, y, false)
	case ToolAttribute:
		return img.PaintAttribute(s.Ctx, x, y)
	case ToolText:
		s.SetCaret(x/8, y/8)
	case ToolSelect:
		s.ExtendSelection(x, y)
	}
	return nil
}

// StrokeBorder paints the border at frame pixel (fx, fy).
func (s *State) StrokeBorder(fx, fy int) error {
	return s.Image.SetBorder(s.Ctx, fx, fy)
}

func (s *State) SetCaret(col, row int) {
	s.Caret = Position{Col: col, Row: row}
	s.Normalize()
}

func (s *State) MoveCaretLeft() {
	if s.Caret.Col > 0 {
		s.Caret.Col--
	} else if s.Caret.Row > 0 {
		s.Caret.Row--
		s.Caret.Col = scr.Columns - 1
	}
}

func (s *State) MoveCaretRight() {
	if s.Caret.Col < scr.Columns-1 {
		s.Caret.Col++
	} else if s.Caret.Row < scr.Rows-1 {
		s.Caret.Row++
		s.Caret.Col = 0
	}
}

func (s *State) MoveCaretUp() {
	if s.Caret.Row > 0 {
		s.Caret.Row--
	}
}

func (s *State) MoveCaretDown() {
	if s.Caret.Row < scr.Rows-1 {
		s.Caret.Row++
	}
}

// InsertTextAtCaret prints input at the caret and advances it. Callers
// wrap a typing burst in one Begin.
func (s *State) InsertTextAtCaret(input string) error {
	for _, r := range input {
		if r < 0 || r > 255 || !scr.Printable(byte(r)) {
			continue
		}
		if err := s.Image.SetCell(s.Ctx, s.Caret.Col, s.Caret.Row, byte(r)); err != nil {
			return err
		}
		s.MoveCaretRight()
	}
	return nil
}

// Backspace steps the caret back and blanks that cell.
func (s *State) Backspace() error {
	s.MoveCaretLeft()
	ctx := s.Ctx
	if s.Image.Layered() && s.Image.Layers().Active() != 0 {
		ctx.Ink = ColorTransparent
	}
	return s.Image.SetCell(ctx, s.Caret.Col, s.Caret.Row, ' ')
}

func (s *State) StartSelection(x, y int) {
	s.selectionAnchor = [2]int{x, y}
	s.selectionAnchored = true
	s.selection = Rect{X0: x, Y0: y, X1: x + 1, Y1: y + 1}
}

func (s *State) ExtendSelection(x, y int) {
	if !s.selectionAnchored {
		s.StartSelection(x, y)
		return
	}
	ax, ay := s.selectionAnchor[0], s.selectionAnchor[1]
	s.selection = Rect{X0: min(ax, x), Y0: min(ay, y), X1: max(ax, x) + 1, Y1: max(ay, y) + 1}
}

func (s *State) ClearSelection() {
	s.selectionAnchored = false
	s.selection = Rect{}
}

// Selection returns the selected rectangle, or the whole image when
// nothing is selected.
func (s *State) Selection() Rect {
	if s.selection.Empty() {
		d := s.Image.Format()
		return Rect{X1: d.Width, Y1: d.Height}
	}
	return s.selection
}

func (s *State) HasSelection() bool { return !s.selection.Empty() }

// CopySelection copies the selection or the whole image.
func (s *State) CopySelection() (*Region, error) {
	r := s.Selection()
	return s.Image.Copy(r.X0, r.Y0, r.X1, r.Y1)
}

// PasteAt pastes r at the selection origin as one undoable action.
func (s *State) PasteAt(r *Region) error {
	if r == nil {
		return ErrBadRegion
	}
	if r.Family != s.Image.Format().Family() {
		return ErrFamilyMismatch
	}
	sel := s.Selection()
	return s.Edit(func(img *Image) error { return img.Paste(r, sel.X0, sel.Y0) })
}

// CycleInk steps the ink through 0-7 and the transparent selection.
func (s *State) CycleInk(delta int) {
	s.Ctx.Ink = cycleColor(s.Ctx.Ink, delta, s.Image.Layered())
}

func (s *State) CyclePaper(delta int) {
	s.Ctx.Paper = cycleColor(s.Ctx.Paper, delta, s.Image.Layered())
}

// CycleBlend steps the dual-frame blend.
func (s *State) CycleBlend() {
	s.Ctx.Blend = (s.Ctx.Blend + 1) % 4
}

func (s *State) ZoomIn()  { s.ZoomPercent += 100; s.Normalize() }
func (s *State) ZoomOut() { s.ZoomPercent -= 100; s.Normalize() }

func cycleColor(c, delta int, allowTransparent bool) int {
	lo := 0
	if allowTransparent {
		lo = ColorTransparent
	}
	n := 8 - lo
	return ((c-lo+delta)%n+n)%n + lo
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
