package editor

import "zxpaint/pkg/scr"

// Bits of a color index carried by the red, green and blue planes of the
// tri-channel format.
var planeBits = [3]int{2, 4, 1}

// SetPixel writes one pixel in the ink or paper role using ctx. Formats
// with attributes also rewrite the covering attribute cell. Writes outside
// the image are ignored.
func (img *Image) SetPixel(ctx Context, x, y int, ink bool) error {
	d := img.desc
	if d.CharStream {
		return ErrCharStream
	}
	if !d.InBounds(x, y) {
		return nil
	}
	s, l := img.target()
	idx := y*d.Width + x

	if img.erases(ctx) {
		l.SetMask(idx, false)
		img.commitRect(x, y, x+1, y+1)
		return nil
	}

	switch d.ID {
	case scr.FormatTricolor:
		c := scr.ClampColor(ctx.color(ink))
		for p, bit := range planeBits {
			d.SetBit(s, p, x, y, c&bit != 0)
		}
	case scr.FormatGigascreen:
		first, second := false, false
		if ink {
			first, second = ctx.Blend.Frames()
		}
		d.SetBit(s, 0, x, y, first)
		d.SetBit(s, 1, x, y, second)
		d.SetAttr(s, 0, x, y, ctx.Colors.Attr())
		d.SetAttr(s, 1, x, y, ctx.Second.Attr())
	default:
		d.SetBit(s, 0, x, y, ink)
		if d.HasAttributes() {
			d.SetAttr(s, 0, x, y, ctx.Colors.Attr())
		}
	}
	if l != nil {
		l.SetMask(idx, true)
		img.commitRect(x, y, x+1, y+1)
	}
	return nil
}

// Pixel reports whether (x, y) is set in the committed image. For the
// tri-channel format any non-black index counts, so an ink write of index
// 0 reads back false and a paper write of a non-zero index reads back
// true; use ColorIndex there. For the dual-frame format a bit in either
// frame counts.
func (img *Image) Pixel(x, y int) bool {
	d := img.desc
	if !d.HasBitmap() {
		return false
	}
	n := scr.Native{Desc: d, Data: img.data}
	for p := 0; p < d.Channels; p++ {
		if d.Bit(n, p, x, y) {
			return true
		}
	}
	return false
}

// PixelState is the four-way read of a dual-frame pixel. Other formats
// report ink+ink or paper+paper.
func (img *Image) PixelState(x, y int) Blend {
	d := img.desc
	if d.ID != scr.FormatGigascreen {
		v := img.Pixel(x, y)
		return blendOf(v, v)
	}
	n := scr.Native{Desc: d, Data: img.data}
	return blendOf(d.Bit(n, 0, x, y), d.Bit(n, 1, x, y))
}

// ColorIndex is the 0-7 color shown at (x, y): the plane bits of the
// tri-channel format, or the ink or paper of the covering attribute.
func (img *Image) ColorIndex(x, y int) int {
	d := img.desc
	if !d.HasBitmap() || !d.InBounds(x, y) {
		return 0
	}
	n := scr.Native{Desc: d, Data: img.data}
	if d.ID == scr.FormatTricolor {
		c := 0
		for p, bit := range planeBits {
			if d.Bit(n, p, x, y) {
				c |= bit
			}
		}
		return c
	}
	a, ok := d.Attr(n, 0, x, y)
	if !ok {
		return 0
	}
	if d.Bit(n, 0, x, y) {
		return a.Ink()
	}
	return a.Paper()
}

// Attribute returns the attribute covering (x, y) in frame 1. Character
// streams report the attribute of the visible cell.
func (img *Image) Attribute(x, y int) (scr.Attr, bool) {
	d := img.desc
	if d.CharStream {
		if !d.InBounds(x, y) {
			return 0, false
		}
		c, ok := img.Cell(x/8, y/8)
		if !ok {
			return scr.DefaultAttr, true
		}
		return c.Attr, true
	}
	return d.Attr(scr.Native{Desc: d, Data: img.data}, 0, x, y)
}

// PaintAttribute recolors the attribute cell covering (x, y) without
// touching the bitmap. On an upper layer the cell's current pixels are
// copied into the layer so it owns the whole cell.
func (img *Image) PaintAttribute(ctx Context, x, y int) error {
	d := img.desc
	if d.CharStream {
		return ErrCharStream
	}
	if !d.HasAttributes() {
		return ErrNoAttributes
	}
	if !d.InBounds(x, y) {
		return nil
	}
	i, _ := d.AttributeIndex(x, y)
	x0, y0, x1, y1 := d.CellRect(i)
	s, l := img.target()
	if l != nil && img.stack.Active() != 0 {
		if img.erases(ctx) {
			for py := y0; py < y1; py++ {
				for px := x0; px < x1; px++ {
					l.SetMask(py*d.Width+px, false)
				}
			}
			img.commitRect(x0, y0, x1, y1)
			return nil
		}
		n := scr.Native{Desc: d, Data: img.data}
		for py := y0; py < y1; py++ {
			for px := x0; px < x1; px++ {
				if !l.Masked(py*d.Width + px) {
					for p := 0; p < d.Channels; p++ {
						d.SetBit(s, p, px, py, d.Bit(n, p, px, py))
					}
					l.SetMask(py*d.Width+px, true)
				}
			}
		}
	}
	d.SetAttr(s, 0, x, y, ctx.Colors.Attr())
	if d.AttrFrames() > 1 {
		d.SetAttr(s, 1, x, y, ctx.Second.Attr())
	}
	img.commitRect(x0, y0, x1, y1)
	return nil
}
