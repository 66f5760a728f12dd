package scr

// BorderLayout describes the border strips stored after the screen by the
// bordered format. Coordinates are frame coordinates: the screen occupies
// [Left, Left+256) x [Top, Top+192) of a FrameWidth x FrameHeight frame.
// Every byte holds two 3-bit colors, low bits first, each covering a run
// of UnitWidth pixels on one line.
type BorderLayout struct {
	FrameWidth  int
	FrameHeight int
	Left        int
	Top         int
	Bottom      int
	UnitWidth   int
}

var StandardBorder = BorderLayout{
	FrameWidth:  384,
	FrameHeight: 304,
	Left:        64,
	Top:         64,
	Bottom:      48,
	UnitWidth:   8,
}

func (b BorderLayout) Right() int { return b.FrameWidth - b.Left - ScreenWidth }

func (b BorderLayout) fullLineBytes() int { return b.FrameWidth / (2 * b.UnitWidth) }

func (b BorderLayout) sideLineBytes() int { return (b.Left + b.Right()) / (2 * b.UnitWidth) }

// Size is the number of bytes the border occupies.
func (b BorderLayout) Size() int {
	return (b.Top+b.Bottom)*b.fullLineBytes() + ScreenHeight*b.sideLineBytes()
}

// Units is the number of independently colored runs.
func (b BorderLayout) Units() int { return b.Size() * 2 }

// Contains reports whether frame pixel (fx, fy) lies in the border.
func (b BorderLayout) Contains(fx, fy int) bool {
	if fx < 0 || fy < 0 || fx >= b.FrameWidth || fy >= b.FrameHeight {
		return false
	}
	inScreen := fx >= b.Left && fx < b.Left+ScreenWidth && fy >= b.Top && fy < b.Top+ScreenHeight
	return !inScreen
}

// Address resolves frame pixel (fx, fy) to a byte offset relative to the
// start of the border block and the shift of its 3-bit color.
func (b BorderLayout) Address(fx, fy int) (off int, shift uint, ok bool) {
	if !b.Contains(fx, fy) {
		return 0, 0, false
	}
	full := b.fullLineBytes()
	side := b.sideLineBytes()
	var unit int
	switch {
	case fy < b.Top:
		off = fy * full
		unit = fx / b.UnitWidth
	case fy >= b.Top+ScreenHeight:
		off = b.Top*full + ScreenHeight*side + (fy-b.Top-ScreenHeight)*full
		unit = fx / b.UnitWidth
	default:
		off = b.Top*full + (fy-b.Top)*side
		if fx < b.Left {
			unit = fx / b.UnitWidth
		} else {
			unit = b.Left/b.UnitWidth + (fx-b.Left-ScreenWidth)/b.UnitWidth
		}
	}
	off += unit / 2
	shift = uint(unit%2) * 3
	return off, shift, true
}

// Unit is the run index for (fx, fy), used to key per-run masks.
func (b BorderLayout) Unit(fx, fy int) (int, bool) {
	off, shift, ok := b.Address(fx, fy)
	if !ok {
		return 0, false
	}
	return off*2 + int(shift/3), true
}

// ColorAt reads the border color of frame pixel (fx, fy) from border data.
func (b BorderLayout) ColorAt(border []byte, fx, fy int) (int, bool) {
	off, shift, ok := b.Address(fx, fy)
	if !ok || off >= len(border) {
		return 0, false
	}
	return int(border[off]>>shift) & 7, true
}

// SetUnitColor writes color c into run u of border data.
func (b BorderLayout) SetUnitColor(border []byte, u, c int) {
	off := u / 2
	if u < 0 || off >= len(border) {
		return
	}
	shift := uint(u%2) * 3
	border[off] = border[off]&^(7<<shift) | byte(ClampColor(c))<<shift
}

// UnitColor reads run u of border data.
func (b BorderLayout) UnitColor(border []byte, u int) int {
	off := u / 2
	if u < 0 || off >= len(border) {
		return 0
	}
	return int(border[off]>>(uint(u%2)*3)) & 7
}

// BorderBlock returns the border slice of a native buffer, or nil.
func (d Descriptor) BorderBlock(data []byte) []byte {
	if d.Border == nil {
		return nil
	}
	end := d.BorderBase + d.Border.Size()
	if end > len(data) {
		return nil
	}
	return data[d.BorderBase:end]
}
