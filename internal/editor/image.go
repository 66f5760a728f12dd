package editor

import (
	"fmt"

	"zxpaint/internal/history"
	"zxpaint/internal/layer"
	"zxpaint/internal/logging"
	"zxpaint/pkg/scr"
)

// Image is one editable screen: the committed buffer holding exactly what
// the native file would contain, and an optional layer stack. While
// layering is on every write goes to the active layer and is flattened
// into the committed buffer before the call returns.
type Image struct {
	desc  scr.Descriptor
	data  []byte
	stack *layer.Stack
}

// NewImage returns a blank image: an empty bitmap, every attribute cell
// white on black and, for the extended palette format, the default
// palette. Character stream images always start layered.
func NewImage(d scr.Descriptor) *Image {
	img := &Image{desc: d}
	if d.CharStream {
		img.stack, _ = layer.NewStack(d, nil)
		return img
	}
	img.data = make([]byte, d.FileSize)
	n := scr.Native{Desc: d, Data: img.data}
	for f := 0; f < d.AttrFrames(); f++ {
		block := n.AttrBlock(f)
		for i := range block {
			block[i] = byte(scr.DefaultAttr)
		}
	}
	if d.HasPalette() {
		p := scr.DefaultPalette()
		copy(img.data[d.PaletteBase:], p[:])
	}
	return img
}

// OpenImage wraps a copy of a native buffer.
func OpenImage(d scr.Descriptor, data []byte) (*Image, error) {
	if err := d.CheckSize(data); err != nil {
		return nil, err
	}
	img := &Image{desc: d, data: append([]byte(nil), data...)}
	if d.CharStream {
		s, err := layer.NewStack(d, img.data)
		if err != nil {
			return nil, err
		}
		img.stack = s
		img.data = s.Flatten(nil)
	}
	return img, nil
}

// ReadImage loads a native file, detecting its format.
func ReadImage(path string) (*Image, error) {
	d, data, err := scr.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return OpenImage(d, data)
}

// WriteImage saves the committed buffer as a native file.
func (img *Image) WriteImage(path string) error {
	return scr.WriteFile(path, img.desc, img.data)
}

func (img *Image) Format() scr.Descriptor { return img.desc }

// Committed returns the committed buffer itself. Callers must not modify
// it.
func (img *Image) Committed() []byte { return img.data }

// Bytes returns a copy of the committed buffer.
func (img *Image) Bytes() []byte { return append([]byte(nil), img.data...) }

// Layers returns the layer stack, or nil when layering is off. After
// changing the stack directly call Commit.
func (img *Image) Layers() *layer.Stack { return img.stack }

func (img *Image) Layered() bool { return img.stack != nil }

// EnableLayers turns layering on, seeding the background layer from the
// committed buffer.
func (img *Image) EnableLayers() error {
	if img.stack != nil {
		return nil
	}
	s, err := layer.NewStack(img.desc, img.data)
	if err != nil {
		return err
	}
	img.stack = s
	return nil
}

// SetLayers installs a previously saved stack and flattens it.
func (img *Image) SetLayers(s *layer.Stack) error {
	if s == nil {
		if img.desc.CharStream {
			return fmt.Errorf("%w: layers are required", ErrCharStream)
		}
		img.stack = nil
		return nil
	}
	if s.Desc().ID != img.desc.ID {
		return fmt.Errorf("%w: stack is %s, image is %s", layer.ErrShape, s.Desc().Name, img.desc.Name)
	}
	img.stack = s
	img.Commit()
	return nil
}

// FlattenLayers resolves the stack into the committed buffer and turns
// layering off. Character streams cannot drop their layers.
func (img *Image) FlattenLayers() error {
	if img.stack == nil {
		return nil
	}
	if img.desc.CharStream {
		return ErrCharStream
	}
	img.data = img.stack.Flatten(img.data)
	img.stack = nil
	return nil
}

// Commit re-flattens the whole stack.
func (img *Image) Commit() {
	if img.stack != nil {
		img.data = img.stack.Flatten(img.data)
	}
}

func (img *Image) commitRect(x0, y0, x1, y1 int) {
	if img.stack != nil {
		img.data = img.stack.FlattenRect(img.data, x0, y0, x1, y1)
	}
}

// target is the surface writes go to and, when layered, the active layer.
func (img *Image) target() (scr.Surface, *layer.Layer) {
	if img.stack == nil {
		return scr.Native{Desc: img.desc, Data: img.data}, nil
	}
	l := img.stack.ActiveLayer()
	return layer.Surface(img.desc, l), l
}

// erasing reports whether a write of color c should clear the active
// layer instead of drawing.
func (img *Image) erasing(c int) bool {
	return c == ColorTransparent && img.stack != nil && img.stack.Active() != 0
}

// erases reports whether any color of ctx is transparent on an upper
// layer. Such writes clear the layer whichever role they are made in, so
// a transparent selection is never stored as black.
func (img *Image) erases(ctx Context) bool {
	if img.erasing(ctx.Ink) || img.erasing(ctx.Paper) {
		return true
	}
	if img.desc.AttrFrames() > 1 {
		return img.erasing(ctx.Second.Ink) || img.erasing(ctx.Second.Paper)
	}
	return false
}

func (img *Image) Snapshot() history.Snapshot {
	return history.Snapshot{Format: img.desc.ID, Data: img.data, Layers: img.stack}
}

// Replace restores a snapshot taken from this image.
func (img *Image) Replace(s history.Snapshot) error {
	if s.Format != img.desc.ID {
		return fmt.Errorf("%w: snapshot %d, image %d", history.ErrFormatMismatch, s.Format, img.desc.ID)
	}
	if err := img.desc.CheckSize(s.Data); err != nil {
		return err
	}
	img.data = s.Data
	img.stack = s.Layers
	img.Commit()
	return nil
}

// Clear wipes the active layer, or the whole image when layering is off.
// The background is reset to paper with ctx's attribute; other layers
// become empty.
func (img *Image) Clear(ctx Context) {
	d := img.desc
	if d.CharStream {
		l := img.stack.ActiveLayer()
		for i := range l.Cells {
			l.Cells[i] = scr.Cell{}
			l.Mask[i] = img.stack.Active() == 0
		}
		img.Commit()
		return
	}
	if img.stack != nil && img.stack.Active() != 0 {
		l := img.stack.ActiveLayer()
		for i := range l.Mask {
			l.Mask[i] = false
		}
		for i := range l.BorderMask {
			l.BorderMask[i] = false
		}
		img.Commit()
		return
	}
	s, _ := img.target()
	for p := 0; p < d.Channels; p++ {
		clear(s.Plane(p))
	}
	attrs := []scr.Attr{ctx.Attr(), ctx.Second.Attr()}
	for f := 0; f < d.AttrFrames(); f++ {
		block := s.AttrBlock(f)
		for i := range block {
			block[i] = byte(attrs[f%2])
		}
	}
	img.Commit()
	logging.Logger().Debug("image cleared", "format", d.Name)
}

// Palette returns the extended palette of the committed buffer.
func (img *Image) Palette() (scr.Palette, error) {
	if !img.desc.HasPalette() {
		return scr.Palette{}, ErrNoPalette
	}
	return scr.PaletteFrom(img.desc, img.data)
}

// SetPaletteEntry stores a GGGRRRBB value in slot i. The palette lives
// only in the committed buffer; layers never override it.
func (img *Image) SetPaletteEntry(i int, v byte) error {
	if !img.desc.HasPalette() {
		return ErrNoPalette
	}
	if i < 0 || i >= img.desc.PaletteSize {
		return fmt.Errorf("editor: palette slot %d out of range", i)
	}
	img.data[img.desc.PaletteBase+i] = v
	return nil
}
