package scr

import "image/color"

// Attr is one attribute byte:
//
//	bit 7    FLASH
//	bit 6    BRIGHT
//	bits 5-3 PAPER
//	bits 2-0 INK
//
// For the extended palette format bits 7-6 select one of four CLUTs.
type Attr byte

const (
	attrInkMask   = 0x07
	attrPaperMask = 0x38
	attrBright    = 0x40
	attrFlash     = 0x80
)

// DefaultAttr is what the compositor falls back to when no layer owns an
// attribute cell: white ink on black paper.
const DefaultAttr = Attr(7)

// ClampColor forces a color index into 0-7.
func ClampColor(c int) int {
	if c < 0 {
		return 0
	}
	if c > 7 {
		return 7
	}
	return c
}

func MakeAttr(ink, paper int, bright, flash bool) Attr {
	a := Attr(ClampColor(ink)) | Attr(ClampColor(paper))<<3
	if bright {
		a |= attrBright
	}
	if flash {
		a |= attrFlash
	}
	return a
}

func (a Attr) Ink() int     { return int(a & attrInkMask) }
func (a Attr) Paper() int   { return int(a&attrPaperMask) >> 3 }
func (a Attr) Bright() bool { return a&attrBright != 0 }
func (a Attr) Flash() bool  { return a&attrFlash != 0 }

// CLUT is the extended palette bank selected by this attribute.
func (a Attr) CLUT() int { return int(a >> 6) }

// WithInk returns a copy of a with the ink replaced.
func (a Attr) WithInk(ink int) Attr {
	return a&^attrInkMask | Attr(ClampColor(ink))
}

func (a Attr) WithPaper(paper int) Attr {
	return a&^attrPaperMask | Attr(ClampColor(paper))<<3
}

// Standard palette levels. Black cannot be brightened.
const (
	levelNormal = 0xD7
	levelBright = 0xFF
)

// SpectrumColor returns the RGBA value of color index c (GRB bit order).
func SpectrumColor(c int, bright bool) color.RGBA {
	c = ClampColor(c)
	level := uint8(levelNormal)
	if bright {
		level = levelBright
	}
	var r, g, b uint8
	if c&2 != 0 {
		r = level
	}
	if c&4 != 0 {
		g = level
	}
	if c&1 != 0 {
		b = level
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// Colors resolves the ink and paper of an attribute with the standard
// palette, swapping them when flash is set and flashOn is true.
func (a Attr) Colors(flashOn bool) (ink, paper color.RGBA) {
	ink = SpectrumColor(a.Ink(), a.Bright())
	paper = SpectrumColor(a.Paper(), a.Bright())
	if a.Flash() && flashOn {
		ink, paper = paper, ink
	}
	return ink, paper
}
