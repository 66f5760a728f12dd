package layer

import (
	"zxpaint/internal/logging"
	"zxpaint/pkg/scr"
)

// Flatten resolves the stack into a native buffer. For fixed-size formats
// dst is updated in place and returned; a dst of the wrong size is replaced
// by a fresh buffer. Regions the layers do not own, such as the palette,
// are left as they are in dst. For the character stream format the
// encoded stream is returned and dst is only reused for its capacity.
func (s *Stack) Flatten(dst []byte) []byte {
	d := s.desc
	if d.CharStream {
		out := append(dst[:0], scr.EncodeStream(s.grids())...)
		logging.Logger().Debug("flatten", "format", d.Name, "layers", len(s.layers), "bytes", len(out))
		return out
	}
	if len(dst) != d.FileSize {
		dst = make([]byte, d.FileSize)
	}
	s.flattenRect(dst, 0, 0, d.Width, d.Height)
	s.flattenBorder(dst)
	logging.Logger().Debug("flatten", "format", d.Name, "layers", len(s.layers))
	return dst
}

// FlattenRect refreshes only the pixels inside [x0,x1) x [y0,y1) and the
// attribute cells touching it. dst must already hold a full flatten.
func (s *Stack) FlattenRect(dst []byte, x0, y0, x1, y1 int) []byte {
	d := s.desc
	if d.CharStream || len(dst) != d.FileSize {
		return s.Flatten(dst)
	}
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, d.Width), min(y1, d.Height)
	if x0 >= x1 || y0 >= y1 {
		return dst
	}
	s.flattenRect(dst, x0, y0, x1, y1)
	return dst
}

func (s *Stack) flattenRect(dst []byte, x0, y0, x1, y1 int) {
	d := s.desc
	out := scr.Native{Desc: d, Data: dst}
	surfaces := make([]scr.Surface, len(s.layers))
	for i, l := range s.layers {
		surfaces[i] = Surface(d, l)
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			src := s.topmost(y*d.Width + x)
			for p := 0; p < d.Channels; p++ {
				v := false
				if src >= 0 {
					v = d.Bit(surfaces[src], p, x, y)
				}
				d.SetBit(out, p, x, y, v)
			}
		}
	}

	if !d.HasAttributes() {
		return
	}
	for i := 0; i < d.AttrSize; i++ {
		cx0, cy0, cx1, cy1 := d.CellRect(i)
		if cx1 <= x0 || cx0 >= x1 || cy1 <= y0 || cy0 >= y1 {
			continue
		}
		src := -1
		for li := len(s.layers) - 1; li >= 0; li-- {
			l := s.layers[li]
			if l.Visible && l.Attrs != nil && l.anyMasked(d, cx0, cy0, cx1, cy1) {
				src = li
				break
			}
		}
		for f := 0; f < d.AttrFrames(); f++ {
			block := out.AttrBlock(f)
			if block == nil {
				continue
			}
			if src < 0 {
				block[i] = byte(scr.DefaultAttr)
				continue
			}
			block[i] = surfaces[src].AttrBlock(f)[i]
		}
	}
}

// topmost is the index of the highest visible layer with content at mask
// index i, or -1.
func (s *Stack) topmost(i int) int {
	for li := len(s.layers) - 1; li >= 0; li-- {
		l := s.layers[li]
		if l.Visible && l.Masked(i) {
			return li
		}
	}
	return -1
}

func (s *Stack) flattenBorder(dst []byte) {
	d := s.desc
	block := d.BorderBlock(dst)
	if block == nil {
		return
	}
	for u := 0; u < d.Border.Units(); u++ {
		c := 0
		for li := len(s.layers) - 1; li >= 0; li-- {
			l := s.layers[li]
			if l.Visible && u < len(l.BorderMask) && l.BorderMask[u] {
				c = d.Border.UnitColor(l.Border, u)
				break
			}
		}
		d.Border.SetUnitColor(block, u, c)
	}
}

// grids returns the visible layers as character grids. A hidden base
// layer still opens the stream, as an empty grid.
func (s *Stack) grids() []scr.Grid {
	var out []scr.Grid
	for i, l := range s.layers {
		if !l.Visible {
			if i == 0 {
				out = append(out, scr.NewGrid())
			}
			continue
		}
		out = append(out, scr.Grid{Cells: l.Cells, Mask: l.Mask})
	}
	return out
}

// Raster draws a character stream stack into a standard screen. Glyph bits
// of visible layers accumulate with XOR; each cell takes the attribute of
// the topmost visible layer that printed there.
func (s *Stack) Raster(cs *scr.Charset) []byte {
	if !s.desc.CharStream {
		return s.Flatten(nil)
	}
	std := scr.MustLookup(scr.FormatStandard)
	buf := make([]byte, std.FileSize)
	if cs == nil {
		cs = scr.DefaultCharset()
	}
	out := scr.Native{Desc: std, Data: buf}
	for idx := 0; idx < scr.GridCells; idx++ {
		var bits [8]byte
		attr := scr.DefaultAttr
		for _, l := range s.layers {
			if !l.Visible || !l.Masked(idx) || !scr.Printable(l.Cells[idx].Code) {
				continue
			}
			g := cs.CellBits(l.Cells[idx])
			for r := range bits {
				bits[r] ^= g[r]
			}
			attr = l.Cells[idx].Attr
		}
		col, row := idx%scr.Columns, idx/scr.Columns
		for r := 0; r < 8; r++ {
			off, _ := std.BitmapAddress(col*8, row*8+r)
			buf[off] = bits[r]
		}
		std.SetAttr(out, 0, col*8, row*8, attr)
	}
	return buf
}
