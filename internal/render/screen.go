package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"zxpaint/internal/layer"
	"zxpaint/internal/logging"
	"zxpaint/pkg/scr"
)

// Options controls how a native buffer is turned into RGBA pixels.
type Options struct {
	// FlashOn swaps ink and paper of flashing cells.
	FlashOn bool
	// Border draws the surrounding frame for formats that store one.
	Border bool
	// Charset renders character streams. Nil means the built-in set.
	Charset *scr.Charset
}

// RenderScreen rasterizes a native buffer of format d. The result is the
// 256x192 screen, or the full frame when opts.Border is set and d stores
// border data.
func RenderScreen(d scr.Descriptor, data []byte, opts Options) (*FrameBuffer, error) {
	if d.CharStream {
		st, err := layer.NewStack(d, data)
		if err != nil {
			return nil, err
		}
		d = scr.MustLookup(scr.FormatStandard)
		data = st.Raster(opts.Charset)
	}
	if err := d.CheckSize(data); err != nil {
		return nil, err
	}

	ox, oy := 0, 0
	w, h := d.Width, d.Height
	if opts.Border && d.Border != nil {
		ox, oy = d.Border.Left, d.Border.Top
		w, h = d.Border.FrameWidth, d.Border.FrameHeight
	}
	fb := NewFrameBuffer(w, h)
	if ox != 0 || oy != 0 {
		drawBorder(fb, d, data)
	}

	pixel, err := pixelFunc(d, data, opts.FlashOn)
	if err != nil {
		return nil, err
	}
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			fb.Set(ox+x, oy+y, pixel(x, y))
		}
	}
	logging.Logger().Debug("render screen", "format", d.Name, "width", w, "height", h)
	return fb, nil
}

func pixelFunc(d scr.Descriptor, data []byte, flashOn bool) (func(x, y int) color.RGBA, error) {
	native := scr.Native{Desc: d, Data: data}
	switch {
	case d.Channels == 3:
		return func(x, y int) color.RGBA {
			idx := 0
			for p, bit := range [3]int{2, 4, 1} {
				if d.Bit(native, p, x, y) {
					idx |= bit
				}
			}
			return scr.SpectrumColor(idx, true)
		}, nil
	case d.Channels == 2:
		return func(x, y int) color.RGBA {
			a := frameColor(d, native, 0, x, y, flashOn, nil)
			b := frameColor(d, native, 1, x, y, flashOn, nil)
			return color.RGBA{
				R: uint8((int(a.R) + int(b.R)) / 2),
				G: uint8((int(a.G) + int(b.G)) / 2),
				B: uint8((int(a.B) + int(b.B)) / 2),
				A: 0xFF,
			}
		}, nil
	case d.HasPalette():
		pal, err := scr.PaletteFrom(d, data)
		if err != nil {
			return nil, err
		}
		return func(x, y int) color.RGBA {
			return frameColor(d, native, 0, x, y, false, &pal)
		}, nil
	case d.HasAttributes():
		return func(x, y int) color.RGBA {
			return frameColor(d, native, 0, x, y, flashOn, nil)
		}, nil
	}
	return nil, fmt.Errorf("render: %s has no drawable content", d.Name)
}

func frameColor(d scr.Descriptor, s scr.Surface, f, x, y int, flashOn bool, pal *scr.Palette) color.RGBA {
	a, _ := d.Attr(s, f, x, y)
	var ink, paper color.RGBA
	if pal != nil {
		ink, paper = pal.Colors(a)
	} else {
		ink, paper = a.Colors(flashOn)
	}
	if d.Bit(s, f, x, y) {
		return ink
	}
	return paper
}

func drawBorder(fb *FrameBuffer, d scr.Descriptor, data []byte) {
	border := d.BorderBlock(data)
	b := d.Border
	for fy := 0; fy < b.FrameHeight; fy++ {
		for fx := 0; fx < b.FrameWidth; fx++ {
			if c, ok := b.ColorAt(border, fx, fy); ok {
				fb.Set(fx, fy, scr.SpectrumColor(c, false))
			}
		}
	}
}

// Scale returns fb enlarged by an integer factor with nearest-neighbour
// sampling so the pixel grid stays sharp.
func Scale(fb *FrameBuffer, factor int) *image.RGBA {
	src := fb.Image()
	if factor <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, fb.W*factor, fb.H*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// WritePNG encodes fb, scaled by factor, as PNG.
func WritePNG(w io.Writer, fb *FrameBuffer, factor int) error {
	return png.Encode(w, Scale(fb, factor))
}

// EncodePNG is WritePNG into memory.
func EncodePNG(fb *FrameBuffer, factor int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, fb, factor); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
