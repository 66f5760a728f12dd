package editor

import (
	"encoding/base64"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"zxpaint/pkg/scr"
)

// Region is a copied block of an image in a format independent packing:
// each bitmap plane is linear, MSB first, row-major with a stride of
// Width/8 bytes, and each attribute frame holds one byte per cell in
// row-major order. Character stream regions carry Cells instead and
// measure Width and Height in cells. A nil Mask means every position was
// copied.
type Region struct {
	Family     string
	Width      int
	Height     int
	Planes     int
	CellHeight int

	Bitmap [][]byte
	Attrs  [][]byte
	Mask   []bool
	Cells  []scr.Cell
}

func (r *Region) chars() bool { return r.Family == "chars" }

func (r *Region) stride() int { return (r.Width + 7) / 8 }

func (r *Region) attrCells() int {
	if r.CellHeight <= 0 {
		return 0
	}
	return (r.Width / 8) * (r.Height / r.CellHeight)
}

func (r *Region) bit(p, x, y int) bool {
	return r.Bitmap[p][y*r.stride()+x/8]&(1<<scr.BitPosition(x)) != 0
}

func (r *Region) setBit(p, x, y int) {
	r.Bitmap[p][y*r.stride()+x/8] |= 1 << scr.BitPosition(x)
}

func (r *Region) masked(i int) bool { return r.Mask == nil || r.Mask[i] }

// Validate checks that every buffer has the shape the header promises.
func (r *Region) Validate() error {
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: empty", ErrBadRegion)
	}
	n := r.Width * r.Height
	if r.Mask != nil && len(r.Mask) != n {
		return fmt.Errorf("%w: mask has %d entries, want %d", ErrBadRegion, len(r.Mask), n)
	}
	if r.chars() {
		if len(r.Cells) != n {
			return fmt.Errorf("%w: %d cells, want %d", ErrBadRegion, len(r.Cells), n)
		}
		for i, c := range r.Cells {
			if r.masked(i) && !scr.Printable(c.Code) {
				return fmt.Errorf("%w: cell %d holds code %d", ErrBadRegion, i, c.Code)
			}
		}
		return nil
	}
	if r.Width%8 != 0 {
		return fmt.Errorf("%w: width %d is not a whole number of bytes", ErrBadRegion, r.Width)
	}
	if r.CellHeight > 0 && r.Height%r.CellHeight != 0 {
		return fmt.Errorf("%w: height %d splits an attribute cell", ErrBadRegion, r.Height)
	}
	if len(r.Bitmap) != r.Planes || r.Planes == 0 {
		return fmt.Errorf("%w: %d planes, header says %d", ErrBadRegion, len(r.Bitmap), r.Planes)
	}
	for p, b := range r.Bitmap {
		if len(b) != r.stride()*r.Height {
			return fmt.Errorf("%w: plane %d is %d bytes", ErrBadRegion, p, len(b))
		}
	}
	for f, a := range r.Attrs {
		if len(a) != r.attrCells() {
			return fmt.Errorf("%w: attribute frame %d is %d bytes, want %d", ErrBadRegion, f, len(a), r.attrCells())
		}
	}
	return nil
}

// snap widens [v0, v1) to multiples of step and clamps it to [0, limit).
func snap(v0, v1, step, limit int) (int, int) {
	if step <= 0 {
		step = 1
	}
	v0 = max(0, v0-v0%step)
	v1 = max(0, v1)
	if v1%step != 0 {
		v1 += step - v1%step
	}
	return v0, min(v1, limit)
}

// floorTo rounds v down to a multiple of step, toward minus infinity.
func floorTo(v, step int) int {
	m := v % step
	if m < 0 {
		m += step
	}
	return v - m
}

// Copy captures the visible content of [x0,x1) x [y0,y1), widened to the
// attribute cell grid.
func (img *Image) Copy(x0, y0, x1, y1 int) (*Region, error) {
	d := img.desc
	ch := d.CellHeight
	if ch == 0 {
		ch = 1
	}
	x0, x1 = snap(x0, x1, 8, d.Width)
	y0, y1 = snap(y0, y1, ch, d.Height)
	if x0 >= x1 || y0 >= y1 {
		return nil, ErrEmptyRegion
	}

	if d.CharStream {
		c0, r0 := x0/8, y0/8
		r := &Region{Family: d.Family(), Width: (x1 - x0) / 8, Height: (y1 - y0) / 8, CellHeight: 8}
		r.Cells = make([]scr.Cell, r.Width*r.Height)
		r.Mask = make([]bool, r.Width*r.Height)
		for row := 0; row < r.Height; row++ {
			for col := 0; col < r.Width; col++ {
				c, ok := img.Cell(c0+col, r0+row)
				r.Cells[row*r.Width+col] = c
				r.Mask[row*r.Width+col] = ok
			}
		}
		return r, nil
	}

	r := &Region{
		Family: d.Family(), Width: x1 - x0, Height: y1 - y0,
		Planes: d.Channels, CellHeight: d.CellHeight,
	}
	n := scr.Native{Desc: d, Data: img.data}
	r.Bitmap = make([][]byte, r.Planes)
	for p := range r.Bitmap {
		r.Bitmap[p] = make([]byte, r.stride()*r.Height)
		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {
				if d.Bit(n, p, x0+x, y0+y) {
					r.setBit(p, x, y)
				}
			}
		}
	}
	if d.HasAttributes() {
		cols := r.Width / 8
		r.Attrs = make([][]byte, d.AttrFrames())
		for f := range r.Attrs {
			r.Attrs[f] = make([]byte, r.attrCells())
			for i := range r.Attrs[f] {
				a, _ := d.Attr(n, f, x0+(i%cols)*8, y0+(i/cols)*r.CellHeight)
				r.Attrs[f][i] = byte(a)
			}
		}
	}
	return r, nil
}

// Paste writes r with its top-left corner at (x, y), snapped down to the
// attribute cell grid. Content falling outside the image is dropped. A
// region of another family is rejected without changing anything.
func (img *Image) Paste(r *Region, x, y int) error {
	d := img.desc
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Family != d.Family() {
		return fmt.Errorf("%w: %s into %s", ErrFamilyMismatch, r.Family, d.Family())
	}

	if d.CharStream {
		col0, row0 := floorTo(x, 8)/8, floorTo(y, 8)/8
		l := img.stack.ActiveLayer()
		for row := 0; row < r.Height; row++ {
			for col := 0; col < r.Width; col++ {
				i := row*r.Width + col
				c, rw := col0+col, row0+row
				if !r.masked(i) || c < 0 || rw < 0 || c >= scr.Columns || rw >= scr.Rows {
					continue
				}
				l.Cells[rw*scr.Columns+c] = r.Cells[i]
				l.SetMask(rw*scr.Columns+c, true)
			}
		}
		img.Commit()
		return nil
	}

	if r.Planes != d.Channels || len(r.Attrs) != d.AttrFrames() || r.CellHeight != d.CellHeight {
		return fmt.Errorf("%w: shape does not fit %s", ErrBadRegion, d.Name)
	}
	x = floorTo(x, 8)
	if r.CellHeight > 0 {
		y = floorTo(y, r.CellHeight)
	}
	s, l := img.target()
	for py := 0; py < r.Height; py++ {
		for px := 0; px < r.Width; px++ {
			dx, dy := x+px, y+py
			if !r.masked(py*r.Width+px) || !d.InBounds(dx, dy) {
				continue
			}
			for p := 0; p < r.Planes; p++ {
				d.SetBit(s, p, dx, dy, r.bit(p, px, py))
			}
			if l != nil {
				l.SetMask(dy*d.Width+dx, true)
			}
		}
	}
	cols := r.Width / 8
	for f, block := range r.Attrs {
		for i, a := range block {
			d.SetAttr(s, f, x+(i%cols)*8, y+(i/cols)*r.CellHeight, scr.Attr(a))
		}
	}
	img.commitRect(x, y, x+r.Width, y+r.Height)
	return nil
}

const regionTag = "zxpaint/region"

// MarshalText encodes r as a small JSON document for the system
// clipboard. Binary buffers are base64.
func (r *Region) MarshalText() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			out, err = sjson.SetBytes(out, path, v)
		}
	}
	set("type", regionTag)
	set("family", r.Family)
	set("width", r.Width)
	set("height", r.Height)
	set("planes", r.Planes)
	set("cellHeight", r.CellHeight)
	set("bitmap", encodeAll(r.Bitmap))
	set("attrs", encodeAll(r.Attrs))
	if r.Mask != nil {
		set("mask", base64.StdEncoding.EncodeToString(packMask(r.Mask)))
	}
	if r.Cells != nil {
		cells := make([]byte, 0, 3*len(r.Cells))
		for _, c := range r.Cells {
			cells = append(cells, c.Code, byte(c.Attr), boolByte(c.Inverse))
		}
		set("cells", base64.StdEncoding.EncodeToString(cells))
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UnmarshalText parses the MarshalText form and validates the result.
func (r *Region) UnmarshalText(b []byte) error {
	if !gjson.ValidBytes(b) {
		return fmt.Errorf("%w: not JSON", ErrBadRegion)
	}
	doc := gjson.ParseBytes(b)
	if doc.Get("type").String() != regionTag {
		return fmt.Errorf("%w: not a region", ErrBadRegion)
	}
	out := Region{
		Family:     doc.Get("family").String(),
		Width:      int(doc.Get("width").Int()),
		Height:     int(doc.Get("height").Int()),
		Planes:     int(doc.Get("planes").Int()),
		CellHeight: int(doc.Get("cellHeight").Int()),
	}
	var err error
	if out.Bitmap, err = decodeAll(doc.Get("bitmap")); err != nil {
		return err
	}
	if out.Attrs, err = decodeAll(doc.Get("attrs")); err != nil {
		return err
	}
	if m := doc.Get("mask"); m.Exists() {
		packed, err := base64.StdEncoding.DecodeString(m.String())
		if err != nil {
			return fmt.Errorf("%w: mask: %v", ErrBadRegion, err)
		}
		if out.Mask, err = unpackMask(packed, out.Width*out.Height); err != nil {
			return err
		}
	}
	if c := doc.Get("cells"); c.Exists() {
		raw, err := base64.StdEncoding.DecodeString(c.String())
		if err != nil || len(raw)%3 != 0 {
			return fmt.Errorf("%w: cells", ErrBadRegion)
		}
		out.Cells = make([]scr.Cell, len(raw)/3)
		for i := range out.Cells {
			out.Cells[i] = scr.Cell{Code: raw[3*i], Attr: scr.Attr(raw[3*i+1]), Inverse: raw[3*i+2] != 0}
		}
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}

func encodeAll(bufs [][]byte) []string {
	out := make([]string, len(bufs))
	for i, b := range bufs {
		out[i] = base64.StdEncoding.EncodeToString(b)
	}
	return out
}

func decodeAll(v gjson.Result) ([][]byte, error) {
	if !v.Exists() {
		return nil, nil
	}
	var out [][]byte
	var err error
	v.ForEach(func(_, s gjson.Result) bool {
		var b []byte
		b, err = base64.StdEncoding.DecodeString(s.String())
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrBadRegion, err)
			return false
		}
		out = append(out, b)
		return true
	})
	return out, err
}

func packMask(m []bool) []byte {
	out := make([]byte, (len(m)+7)/8)
	for i, v := range m {
		if v {
			out[i/8] |= 1 << scr.BitPosition(i)
		}
	}
	return out
}

func unpackMask(b []byte, n int) ([]bool, error) {
	if len(b) != (n+7)/8 {
		return nil, fmt.Errorf("%w: mask is %d bytes", ErrBadRegion, len(b))
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = b[i/8]&(1<<scr.BitPosition(i)) != 0
	}
	return out, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
