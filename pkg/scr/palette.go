package scr

import (
	"fmt"
	"image/color"
)

// Palette is the 64-byte extended palette table: four CLUTs of sixteen
// entries, eight inks followed by eight papers. Each entry packs a color
// as GGGRRRBB.
type Palette [PaletteSize]byte

var color3bits = [8]uint8{0x00, 0x24, 0x49, 0x6d, 0x92, 0xb6, 0xdb, 0xff}

// PaletteIndex returns the table slot used by attribute a for ink or paper.
func PaletteIndex(a Attr, paper bool) int {
	i := a.CLUT()*16 + a.Ink()
	if paper {
		i = a.CLUT()*16 + 8 + a.Paper()
	}
	return i
}

// PackColor builds a GGGRRRBB entry from 3-bit green and red and 2-bit blue.
func PackColor(g, r, b int) byte {
	return byte((g&7)<<5 | (r&7)<<2 | b&3)
}

// RGBA expands entry i. The missing low blue bit is the OR of the two
// stored blue bits.
func (p *Palette) RGBA(i int) color.RGBA {
	if i < 0 || i >= PaletteSize {
		return color.RGBA{A: 0xFF}
	}
	v := p[i]
	g := (v >> 5) & 7
	r := (v >> 2) & 7
	b2 := v & 3
	b := b2<<1 | (b2>>1 | b2&1)
	return color.RGBA{R: color3bits[r], G: color3bits[g], B: color3bits[b], A: 0xFF}
}

// Colors resolves ink and paper of a through the palette.
func (p *Palette) Colors(a Attr) (ink, paper color.RGBA) {
	return p.RGBA(PaletteIndex(a, false)), p.RGBA(PaletteIndex(a, true))
}

// DefaultPalette mirrors the standard colors: CLUT bit 0 selects bright.
func DefaultPalette() Palette {
	var p Palette
	for clut := 0; clut < 4; clut++ {
		level, blue := 5, 2
		if clut&1 != 0 {
			level, blue = 7, 3
		}
		for slot := 0; slot < 16; slot++ {
			c := slot & 7
			var g, r, b int
			if c&4 != 0 {
				g = level
			}
			if c&2 != 0 {
				r = level
			}
			if c&1 != 0 {
				b = blue
			}
			p[clut*16+slot] = PackColor(g, r, b)
		}
	}
	return p
}

// PaletteFrom reads the palette table of a native buffer.
func PaletteFrom(d Descriptor, data []byte) (Palette, error) {
	var p Palette
	if !d.HasPalette() {
		return p, fmt.Errorf("scr: %s has no palette", d.Name)
	}
	if d.PaletteBase+PaletteSize > len(data) {
		return p, fmt.Errorf("%w: palette past end of buffer", ErrSize)
	}
	copy(p[:], data[d.PaletteBase:d.PaletteBase+PaletteSize])
	return p, nil
}
