package editor

import (
	"errors"

	"zxpaint/pkg/scr"
)

// ColorTransparent selects "no color". Writing it on any layer but the
// background erases that layer's content instead of drawing.
const ColorTransparent = -1

var (
	ErrCharStream     = errors.New("editor: pixel access on a character stream format")
	ErrNotCharStream  = errors.New("editor: format is not a character stream")
	ErrInvalidCode    = errors.New("editor: character code is not printable")
	ErrFamilyMismatch = errors.New("editor: clipboard region belongs to another format family")
	ErrNoAttributes   = errors.New("editor: format has no attributes")
	ErrNoBorder       = errors.New("editor: format has no border")
	ErrNoPalette      = errors.New("editor: format has no palette")
	ErrEmptyRegion    = errors.New("editor: region is empty")
	ErrBadRegion      = errors.New("editor: malformed clipboard region")
)

// Colors is one ink/paper selection. For the extended palette format the
// Bright and Flash bits double as the CLUT selector.
type Colors struct {
	Ink    int
	Paper  int
	Bright bool
	Flash  bool
}

func (c Colors) Attr() scr.Attr {
	return scr.MakeAttr(c.Ink, c.Paper, c.Bright, c.Flash)
}

// Blend is the pair of roles a dual-frame pixel takes in its two frames.
type Blend uint8

const (
	BlendPaperPaper Blend = iota
	BlendPaperInk
	BlendInkPaper
	BlendInkInk
)

func blendOf(first, second bool) Blend {
	var b Blend
	if first {
		b |= 2
	}
	if second {
		b |= 1
	}
	return b
}

// Frames reports whether the pixel is ink in frame 1 and in frame 2.
func (b Blend) Frames() (first, second bool) {
	return b&2 != 0, b&1 != 0
}

func (b Blend) String() string {
	switch b {
	case BlendInkInk:
		return "ink+ink"
	case BlendInkPaper:
		return "ink+paper"
	case BlendPaperInk:
		return "paper+ink"
	default:
		return "paper+paper"
	}
}

// Context is the caller's current drawing selection, passed explicitly to
// every write.
type Context struct {
	Colors

	// Second is the frame 2 selection of the dual-frame format and Blend
	// picks the roles an ink write takes in each frame.
	Second Colors
	Blend  Blend

	// Inverse applies to character writes.
	Inverse bool
}

// DefaultContext is white ink on black paper, the dual-frame ink+ink blend.
func DefaultContext() Context {
	c := Colors{Ink: 7, Paper: 0}
	return Context{Colors: c, Second: c, Blend: BlendInkInk}
}

// color returns the selection written for the ink or paper role.
func (c Colors) color(ink bool) int {
	if ink {
		return c.Ink
	}
	return c.Paper
}
