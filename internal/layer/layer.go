package layer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"zxpaint/pkg/scr"
)

var (
	ErrBaseLayer  = errors.New("layer: operation not allowed on the base layer")
	ErrIndex      = errors.New("layer: index out of range")
	ErrShape      = errors.New("layer: buffer shape does not match format")
	ErrMergeXOR   = errors.New("layer: accumulating layers cannot be merged")
	ErrNoBitmap   = errors.New("layer: format has no bitmap")
	ErrCharFormat = errors.New("layer: format is not a character stream")
)

// Layer is one level of the stack. Mask marks the pixels (character cells
// for the character stream format) the user placed content on; unmasked
// positions are transparent. Attrs is nil when the layer owns no
// attributes.
type Layer struct {
	ID      uuid.UUID
	Name    string
	Visible bool

	Bitmap []byte
	Attrs  []byte
	Mask   []bool

	Border     []byte
	BorderMask []bool

	Cells []scr.Cell
}

// New returns an empty, visible layer shaped for d.
func New(d scr.Descriptor, name string) *Layer {
	l := &Layer{
		ID:      uuid.New(),
		Name:    name,
		Visible: true,
		Mask:    make([]bool, d.PixelCount()),
	}
	if d.CharStream {
		l.Cells = make([]scr.Cell, scr.GridCells)
		return l
	}
	l.Bitmap = make([]byte, d.Channels*d.BitmapSize)
	if d.HasAttributes() {
		l.Attrs = make([]byte, d.AttrFrames()*d.AttrSize)
		for i := range l.Attrs {
			l.Attrs[i] = byte(scr.DefaultAttr)
		}
	}
	if d.Border != nil {
		l.Border = make([]byte, d.Border.Size())
		l.BorderMask = make([]bool, d.Border.Units())
	}
	return l
}

// newBase builds an opaque layer from a native buffer.
func newBase(d scr.Descriptor, data []byte) *Layer {
	l := New(d, "Background")
	native := scr.Native{Desc: d, Data: data}
	ls := Surface(d, l)
	for p := 0; p < d.Channels; p++ {
		copy(ls.Plane(p), native.Plane(p))
	}
	for f := 0; f < d.AttrFrames(); f++ {
		copy(ls.AttrBlock(f), native.AttrBlock(f))
	}
	if b := d.BorderBlock(data); b != nil {
		copy(l.Border, b)
	}
	l.fillMask()
	return l
}

func (l *Layer) fillMask() {
	for i := range l.Mask {
		l.Mask[i] = true
	}
	for i := range l.BorderMask {
		l.BorderMask[i] = true
	}
}

// Surface binds l to the geometry of d so the scr bit and attribute
// accessors can address it like a native buffer.
func Surface(d scr.Descriptor, l *Layer) scr.Surface {
	return surface{d: d, l: l}
}

type surface struct {
	d scr.Descriptor
	l *Layer
}

func (s surface) Plane(p int) []byte {
	size := s.d.BitmapSize
	if p < 0 || size == 0 || (p+1)*size > len(s.l.Bitmap) {
		return nil
	}
	return s.l.Bitmap[p*size : (p+1)*size]
}

func (s surface) AttrBlock(f int) []byte {
	size := s.d.AttrSize
	if f < 0 || size == 0 || (f+1)*size > len(s.l.Attrs) {
		return nil
	}
	return s.l.Attrs[f*size : (f+1)*size]
}

func (l *Layer) Masked(i int) bool {
	return i >= 0 && i < len(l.Mask) && l.Mask[i]
}

func (l *Layer) SetMask(i int, v bool) {
	if i >= 0 && i < len(l.Mask) {
		l.Mask[i] = v
	}
}

// Empty reports whether the layer has no user-placed content.
func (l *Layer) Empty() bool {
	for _, m := range l.Mask {
		if m {
			return false
		}
	}
	for _, m := range l.BorderMask {
		if m {
			return false
		}
	}
	return true
}

func (l *Layer) Clone() *Layer {
	if l == nil {
		return nil
	}
	out := &Layer{ID: l.ID, Name: l.Name, Visible: l.Visible}
	out.Bitmap = cloneBytes(l.Bitmap)
	out.Attrs = cloneBytes(l.Attrs)
	out.Mask = cloneBools(l.Mask)
	out.Border = cloneBytes(l.Border)
	out.BorderMask = cloneBools(l.BorderMask)
	if l.Cells != nil {
		out.Cells = append([]scr.Cell(nil), l.Cells...)
	}
	return out
}

// Validate checks every buffer against the shape d requires.
func (l *Layer) Validate(d scr.Descriptor) error {
	if l == nil {
		return fmt.Errorf("%w: nil layer", ErrShape)
	}
	if len(l.Mask) != d.PixelCount() {
		return fmt.Errorf("%w: mask has %d entries, want %d", ErrShape, len(l.Mask), d.PixelCount())
	}
	if d.CharStream {
		if len(l.Cells) != scr.GridCells {
			return fmt.Errorf("%w: %d cells, want %d", ErrShape, len(l.Cells), scr.GridCells)
		}
		return nil
	}
	if len(l.Bitmap) != d.Channels*d.BitmapSize {
		return fmt.Errorf("%w: bitmap is %d bytes, want %d", ErrShape, len(l.Bitmap), d.Channels*d.BitmapSize)
	}
	if l.Attrs != nil && len(l.Attrs) != d.AttrFrames()*d.AttrSize {
		return fmt.Errorf("%w: attributes are %d bytes, want %d", ErrShape, len(l.Attrs), d.AttrFrames()*d.AttrSize)
	}
	if d.Border != nil {
		if len(l.Border) != d.Border.Size() || len(l.BorderMask) != d.Border.Units() {
			return fmt.Errorf("%w: border shape", ErrShape)
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneBools(b []bool) []bool {
	if b == nil {
		return nil
	}
	return append([]bool(nil), b...)
}
