package scr

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	charsetGlyphs = FirstBlock - FirstPrintable
	udgGlyphs     = LastPrintable - FirstUDG + 1

	// CharsetSize is the size of a ROM-style font: 96 glyphs of 8 bytes.
	CharsetSize = charsetGlyphs * 8
)

// Charset rasterizes character cells for preview and export. Editing state
// never depends on it.
type Charset struct {
	Glyphs [charsetGlyphs][8]byte
	UDG    [udgGlyphs][8]byte
}

// LoadCharset reads a 768-byte font covering codes 32-127.
func LoadCharset(b []byte) (*Charset, error) {
	if len(b) != CharsetSize {
		return nil, fmt.Errorf("%w: charset needs %d bytes, got %d", ErrSize, CharsetSize, len(b))
	}
	cs := &Charset{}
	for i := range cs.Glyphs {
		copy(cs.Glyphs[i][:], b[i*8:i*8+8])
	}
	return cs, nil
}

// SetUDG replaces user-defined graphic n (0 for 'A' through 20 for 'U').
func (cs *Charset) SetUDG(n int, rows [8]byte) error {
	if n < 0 || n >= udgGlyphs {
		return fmt.Errorf("scr: udg %d out of range", n)
	}
	cs.UDG[n] = rows
	return nil
}

// Glyph returns the eight pixel rows of code, MSB leftmost.
func (cs *Charset) Glyph(code byte) [8]byte {
	switch {
	case code >= FirstPrintable && code < FirstBlock:
		return cs.Glyphs[code-FirstPrintable]
	case code >= FirstBlock && code < FirstUDG:
		return blockGraphic(code - FirstBlock)
	case code >= FirstUDG && code <= LastPrintable:
		return cs.UDG[code-FirstUDG]
	}
	return [8]byte{}
}

// CellBits is the glyph of cell with INVERSE applied.
func (cs *Charset) CellBits(c Cell) [8]byte {
	g := cs.Glyph(c.Code)
	if c.Inverse {
		for i := range g {
			g[i] = ^g[i]
		}
	}
	return g
}

// blockGraphic builds the 2x2 quadrant glyphs: bit 0 top right, bit 1 top
// left, bit 2 bottom right, bit 3 bottom left.
func blockGraphic(n byte) [8]byte {
	var top, bottom byte
	if n&1 != 0 {
		top |= 0x0F
	}
	if n&2 != 0 {
		top |= 0xF0
	}
	if n&4 != 0 {
		bottom |= 0x0F
	}
	if n&8 != 0 {
		bottom |= 0xF0
	}
	return [8]byte{top, top, top, top, bottom, bottom, bottom, bottom}
}

var (
	defaultCharsetOnce sync.Once
	defaultCharset     *Charset
)

// DefaultCharset is built once from the 7x13 bitmap face, squeezed into
// 8x8 cells. Code 127 renders as the copyright sign.
func DefaultCharset() *Charset {
	defaultCharsetOnce.Do(func() {
		defaultCharset = buildCharset(basicfont.Face7x13)
	})
	return defaultCharset
}

func buildCharset(face *basicfont.Face) *Charset {
	cs := &Charset{}
	src := image.NewAlpha(image.Rect(0, 0, face.Advance, face.Height))
	dst := image.NewAlpha(image.Rect(0, 0, 8, 8))
	for i := range cs.Glyphs {
		r := rune(FirstPrintable + i)
		if r == 127 {
			r = '©'
		}
		draw.Draw(src, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		d := font.Drawer{Dst: src, Src: image.Opaque, Face: face, Dot: fixed.P(0, face.Ascent)}
		d.DrawString(string(r))

		draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
		draw.NearestNeighbor.Scale(dst, image.Rect(0, 0, face.Advance, 8), src, image.Rect(0, 2, face.Advance, face.Height-1), draw.Src, nil)

		for y := 0; y < 8; y++ {
			var row byte
			for x := 0; x < 8; x++ {
				if dst.AlphaAt(x, y).A >= 0x80 {
					row |= 1 << uint(7-x)
				}
			}
			cs.Glyphs[i][y] = row
		}
	}
	return cs
}
