package layer

import (
	"fmt"

	"zxpaint/pkg/scr"
)

// Stack is the ordered layer sequence of one image, bottom first. Layer 0
// is the opaque background: it cannot be removed, moved, or made
// transparent. Only Stack methods change the order.
type Stack struct {
	desc   scr.Descriptor
	layers []*Layer
	active int
	serial int
}

// NewStack builds a stack from a committed buffer. Bitmap formats get a
// single background layer; a character stream is split into one layer per
// accumulated section.
func NewStack(d scr.Descriptor, committed []byte) (*Stack, error) {
	if err := d.CheckSize(committed); err != nil {
		return nil, err
	}
	s := &Stack{desc: d}
	if d.CharStream {
		for i, g := range scr.DecodeStream(committed) {
			name := "Background"
			if i > 0 {
				name = fmt.Sprintf("Overlay %d", i)
			}
			l := New(d, name)
			copy(l.Cells, g.Cells)
			copy(l.Mask, g.Mask)
			s.layers = append(s.layers, l)
		}
		s.layers[0].fillMask()
		s.serial = len(s.layers) - 1
		return s, nil
	}
	s.layers = []*Layer{newBase(d, committed)}
	return s, nil
}

// FromLayers rebuilds a stack from previously saved layers. Every layer is
// validated before the stack is returned; the base layer is forced opaque.
func FromLayers(d scr.Descriptor, layers []*Layer, active int) (*Stack, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrShape)
	}
	for i, l := range layers {
		if err := l.Validate(d); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	s := &Stack{desc: d, layers: layers, serial: len(layers) - 1}
	s.layers[0].fillMask()
	if active < 0 || active >= len(layers) {
		active = len(layers) - 1
	}
	s.active = active
	return s, nil
}

func (s *Stack) Desc() scr.Descriptor { return s.desc }

func (s *Stack) Len() int { return len(s.layers) }

// Layer returns layer i, or nil when i is out of range. Callers may edit
// the layer's buffers but not the stack order.
func (s *Stack) Layer(i int) *Layer {
	if i < 0 || i >= len(s.layers) {
		return nil
	}
	return s.layers[i]
}

// Layers returns the layers bottom first. The slice is a copy.
func (s *Stack) Layers() []*Layer {
	return append([]*Layer(nil), s.layers...)
}

func (s *Stack) Active() int { return s.active }

func (s *Stack) ActiveLayer() *Layer { return s.layers[s.active] }

func (s *Stack) SetActive(i int) error {
	if i < 0 || i >= len(s.layers) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	s.active = i
	return nil
}

// Add inserts an empty layer above the active one and makes it active.
func (s *Stack) Add(name string) int {
	s.serial++
	if name == "" {
		name = fmt.Sprintf("Layer %d", s.serial)
	}
	l := New(s.desc, name)
	at := s.active + 1
	s.layers = append(s.layers, nil)
	copy(s.layers[at+1:], s.layers[at:])
	s.layers[at] = l
	s.active = at
	return at
}

func (s *Stack) Remove(i int) error {
	if i == 0 {
		return ErrBaseLayer
	}
	if i < 0 || i >= len(s.layers) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	if s.active >= i && s.active > 0 {
		s.active--
	}
	return nil
}

// Move reorders layer from to position to. Neither may be the base.
func (s *Stack) Move(from, to int) error {
	if from == 0 || to == 0 {
		return ErrBaseLayer
	}
	if from < 0 || from >= len(s.layers) || to < 0 || to >= len(s.layers) {
		return fmt.Errorf("%w: %d -> %d", ErrIndex, from, to)
	}
	activeID := s.layers[s.active].ID
	l := s.layers[from]
	s.layers = append(s.layers[:from], s.layers[from+1:]...)
	s.layers = append(s.layers[:to], append([]*Layer{l}, s.layers[to:]...)...)
	for i, x := range s.layers {
		if x.ID == activeID {
			s.active = i
		}
	}
	return nil
}

func (s *Stack) SetVisible(i int, v bool) error {
	l := s.Layer(i)
	if l == nil {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	l.Visible = v
	return nil
}

func (s *Stack) Rename(i int, name string) error {
	l := s.Layer(i)
	if l == nil {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	l.Name = name
	return nil
}

// MergeDown folds layer i into the layer below it with the override rule
// and removes it.
func (s *Stack) MergeDown(i int) error {
	if i == 0 {
		return ErrBaseLayer
	}
	if i < 0 || i >= len(s.layers) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	if s.desc.Compose == scr.ComposeXOR {
		return ErrMergeXOR
	}
	top, below := s.layers[i], s.layers[i-1]
	d := s.desc
	ts, bs := Surface(d, top), Surface(d, below)
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			idx := y*d.Width + x
			if !top.Masked(idx) {
				continue
			}
			for p := 0; p < d.Channels; p++ {
				d.SetBit(bs, p, x, y, d.Bit(ts, p, x, y))
			}
			below.Mask[idx] = true
		}
	}
	if top.Attrs != nil {
		if below.Attrs == nil {
			below.Attrs = make([]byte, len(top.Attrs))
		}
		for i := 0; i < d.AttrSize; i++ {
			x0, y0, x1, y1 := d.CellRect(i)
			if !top.anyMasked(d, x0, y0, x1, y1) {
				continue
			}
			for f := 0; f < d.AttrFrames(); f++ {
				bs.AttrBlock(f)[i] = ts.AttrBlock(f)[i]
			}
		}
	}
	for u, m := range top.BorderMask {
		if m {
			d.Border.SetUnitColor(below.Border, u, d.Border.UnitColor(top.Border, u))
			below.BorderMask[u] = true
		}
	}
	return s.Remove(i)
}

func (s *Stack) Clone() *Stack {
	out := &Stack{desc: s.desc, active: s.active, serial: s.serial}
	out.layers = make([]*Layer, len(s.layers))
	for i, l := range s.layers {
		out.layers[i] = l.Clone()
	}
	return out
}

func (l *Layer) anyMasked(d scr.Descriptor, x0, y0, x1, y1 int) bool {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if l.Masked(y*d.Width + x) {
				return true
			}
		}
	}
	return false
}
