package scr

// AddressingStrategy maps a pixel to its byte inside one bitmap plane.
type AddressingStrategy interface {
	BitmapOffset(x, y int) (int, bool)
}

// AttributeStrategy maps a pixel to the attribute byte covering it,
// relative to the start of the attribute block.
type AttributeStrategy interface {
	AttributeIndex(x, y int) (int, bool)
}

// Interleaved is the display file layout: the screen is split in thirds
// of 64 lines, each third holds eight character rows, and consecutive
// pixel lines of a character row are 256 bytes apart.
type Interleaved struct{}

func (Interleaved) BitmapOffset(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= ScreenWidth || y >= ScreenHeight {
		return 0, false
	}
	third := y / 64
	charRow := (y % 64) / 8
	line := y % 8
	return third*2048 + line*256 + charRow*32 + x/8, true
}

// CellRows addresses a linear attribute block with one row of 32 cells
// for every Height pixel lines.
type CellRows struct {
	Height int
}

func (c CellRows) AttributeIndex(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= ScreenWidth || y >= ScreenHeight || c.Height <= 0 {
		return 0, false
	}
	return (y/c.Height)*Columns + x/8, true
}

// DualBank keeps two standard 768-byte attribute blocks; pixel lines 0-3
// of a character row read the first bank and lines 4-7 the second.
type DualBank struct{}

func (DualBank) AttributeIndex(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= ScreenWidth || y >= ScreenHeight {
		return 0, false
	}
	bank := (y % 8) / 4
	return bank*AttrSize + (y/8)*Columns + x/8, true
}

type NoAttributes struct{}

func (NoAttributes) AttributeIndex(int, int) (int, bool) { return 0, false }

// NoBitmap is used by the character stream format. Callers must go
// through the character grid instead.
type NoBitmap struct{}

func (NoBitmap) BitmapOffset(int, int) (int, bool) { return 0, false }

// BitPosition is the bit inside a bitmap byte holding column x, MSB first.
func BitPosition(x int) uint {
	return uint(7 - (x & 7))
}

// BitmapAddress resolves (x, y) to an offset inside plane 0 of the native
// file.
func (d Descriptor) BitmapAddress(x, y int) (int, bool) {
	if !d.HasBitmap() || !d.InBounds(x, y) {
		return 0, false
	}
	return d.Addressing.BitmapOffset(x, y)
}

// AttributeIndex resolves (x, y) to an offset inside an attribute block.
func (d Descriptor) AttributeIndex(x, y int) (int, bool) {
	if !d.HasAttributes() && !d.CharStream {
		return 0, false
	}
	if !d.InBounds(x, y) {
		return 0, false
	}
	return d.Attributes.AttributeIndex(x, y)
}

// AttributeAddress resolves (x, y) to an offset in the native file of the
// first attribute block.
func (d Descriptor) AttributeAddress(x, y int) (int, bool) {
	if !d.HasAttributes() {
		return 0, false
	}
	i, ok := d.AttributeIndex(x, y)
	if !ok {
		return 0, false
	}
	return d.AttrBase + i, true
}

// CellRect returns the pixel rectangle covered by the attribute byte at
// index i, as x0, y0, x1, y1 with exclusive upper bounds.
func (d Descriptor) CellRect(i int) (x0, y0, x1, y1 int) {
	col := i % Columns
	row := i / Columns
	x0 = col * 8
	x1 = x0 + 8
	if d.ID == FormatMulticolor4 {
		bank := row / Rows
		row %= Rows
		y0 = row*8 + bank*4
		y1 = y0 + 4
		return
	}
	h := d.CellHeight
	if h <= 0 {
		h = 8
	}
	y0 = row * h
	y1 = y0 + h
	return
}

// Surface gives access to the bitmap planes and attribute blocks of a
// buffer laid out for some format.
type Surface interface {
	Plane(p int) []byte
	AttrBlock(f int) []byte
}

// Native is a Surface over a buffer in the format's file layout.
type Native struct {
	Desc Descriptor
	Data []byte
}

func (n Native) Plane(p int) []byte {
	base := n.Desc.PlaneBase(p)
	if p < 0 || p >= n.Desc.Channels || base+n.Desc.BitmapSize > len(n.Data) {
		return nil
	}
	return n.Data[base : base+n.Desc.BitmapSize]
}

func (n Native) AttrBlock(f int) []byte {
	if f < 0 || f >= n.Desc.AttrFrames() {
		return nil
	}
	base := n.Desc.AttrBlockBase(f)
	if base+n.Desc.AttrSize > len(n.Data) {
		return nil
	}
	return n.Data[base : base+n.Desc.AttrSize]
}

// Bit reads the bit for (x, y) from plane p of s. Out-of-range reads
// return false.
func (d Descriptor) Bit(s Surface, p, x, y int) bool {
	off, ok := d.BitmapAddress(x, y)
	if !ok {
		return false
	}
	plane := s.Plane(p)
	if plane == nil {
		return false
	}
	return plane[off]&(1<<BitPosition(x)) != 0
}

// SetBit writes the bit for (x, y) into plane p of s. Out-of-range writes
// are ignored.
func (d Descriptor) SetBit(s Surface, p, x, y int, v bool) {
	off, ok := d.BitmapAddress(x, y)
	if !ok {
		return
	}
	plane := s.Plane(p)
	if plane == nil {
		return
	}
	if v {
		plane[off] |= 1 << BitPosition(x)
	} else {
		plane[off] &^= 1 << BitPosition(x)
	}
}

func (d Descriptor) Attr(s Surface, f, x, y int) (Attr, bool) {
	i, ok := d.AttributeIndex(x, y)
	if !ok {
		return 0, false
	}
	block := s.AttrBlock(f)
	if block == nil || i >= len(block) {
		return 0, false
	}
	return Attr(block[i]), true
}

func (d Descriptor) SetAttr(s Surface, f, x, y int, a Attr) {
	i, ok := d.AttributeIndex(x, y)
	if !ok {
		return
	}
	block := s.AttrBlock(f)
	if block == nil || i >= len(block) {
		return
	}
	block[i] = byte(a)
}
