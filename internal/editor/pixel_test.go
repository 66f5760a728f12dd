package editor

import (
	"bytes"
	"errors"
	"testing"

	"zxpaint/pkg/scr"
)

func bitmapFormats() []scr.Descriptor {
	var out []scr.Descriptor
	for _, d := range scr.Formats() {
		if d.HasBitmap() {
			out = append(out, d)
		}
	}
	return out
}

func TestSetPixelScenarioA(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatStandard))
	ctx := DefaultContext()
	ctx.Ink, ctx.Paper, ctx.Bright = 2, 5, true

	if err := img.SetPixel(ctx, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	data := img.Committed()
	if data[0] != 0x80 {
		t.Fatalf("byte 0: got %#02x want 0x80", data[0])
	}
	if got, want := scr.Attr(data[6144]), scr.MakeAttr(2, 5, true, false); got != want {
		t.Fatalf("attribute 0: got %#02x want %#02x", byte(got), byte(want))
	}

	if err := img.SetPixel(ctx, 255, 191, true); err != nil {
		t.Fatal(err)
	}
	if data[6143] != 0x01 {
		t.Fatalf("byte 6143: got %#02x want 0x01", data[6143])
	}
	if got := scr.Attr(data[6144+767]); got != scr.MakeAttr(2, 5, true, false) {
		t.Fatalf("last attribute: got %#02x", byte(got))
	}
}

func TestSetPixelRoundTripAllFormats(t *testing.T) {
	ctx := DefaultContext()
	for _, d := range bitmapFormats() {
		t.Run(d.Name, func(t *testing.T) {
			img := NewImage(d)
			for y := 0; y < d.Height; y++ {
				for x := 0; x < d.Width; x++ {
					if err := img.SetPixel(ctx, x, y, true); err != nil {
						t.Fatal(err)
					}
					if !img.Pixel(x, y) {
						t.Fatalf("(%d,%d) not set after ink write", x, y)
					}
					if err := img.SetPixel(ctx, x, y, false); err != nil {
						t.Fatal(err)
					}
					if img.Pixel(x, y) {
						t.Fatalf("(%d,%d) still set after paper write", x, y)
					}
				}
			}
		})
	}
}

func TestSetPixelRoundTripLayered(t *testing.T) {
	ctx := DefaultContext()
	for _, d := range bitmapFormats() {
		t.Run(d.Name, func(t *testing.T) {
			img := NewImage(d)
			if err := img.EnableLayers(); err != nil {
				t.Fatal(err)
			}
			img.Layers().Add("top")
			for _, p := range [][2]int{{0, 0}, {7, 3}, {128, 100}, {255, 191}} {
				if err := img.SetPixel(ctx, p[0], p[1], true); err != nil {
					t.Fatal(err)
				}
				if !img.Pixel(p[0], p[1]) {
					t.Fatalf("%v not set", p)
				}
				if err := img.SetPixel(ctx, p[0], p[1], false); err != nil {
					t.Fatal(err)
				}
				if img.Pixel(p[0], p[1]) {
					t.Fatalf("%v still set", p)
				}
			}
		})
	}
}

func TestSetPixelIdempotent(t *testing.T) {
	ctx := DefaultContext()
	ctx.Ink = 3
	for _, d := range bitmapFormats() {
		once := NewImage(d)
		twice := NewImage(d)
		for _, p := range [][2]int{{1, 1}, {200, 64}, {31, 190}} {
			_ = once.SetPixel(ctx, p[0], p[1], true)
			_ = twice.SetPixel(ctx, p[0], p[1], true)
			_ = twice.SetPixel(ctx, p[0], p[1], true)
		}
		if !bytes.Equal(once.Committed(), twice.Committed()) {
			t.Fatalf("%s: second write changed the buffer", d.Name)
		}
	}
}

func TestOutOfBoundsIsNoOp(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatStandard))
	before := img.Bytes()
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {256, 0}, {0, 192}, {1000, 1000}} {
		if err := img.SetPixel(DefaultContext(), p[0], p[1], true); err != nil {
			t.Fatalf("%v: %v", p, err)
		}
		if img.Pixel(p[0], p[1]) {
			t.Fatalf("%v reads as set", p)
		}
	}
	if !bytes.Equal(before, img.Committed()) {
		t.Fatalf("out of bounds write changed the buffer")
	}
}

func TestAttributeClamping(t *testing.T) {
	for _, c := range []struct{ ink, paper, wantInk, wantPaper int }{
		{-1, 8, 0, 7},
		{8, -5, 7, 0},
		{255, 255, 7, 7},
		{3, 4, 3, 4},
	} {
		img := NewImage(scr.MustLookup(scr.FormatStandard))
		ctx := DefaultContext()
		ctx.Ink, ctx.Paper = c.ink, c.paper
		if err := img.SetPixel(ctx, 9, 9, true); err != nil {
			t.Fatal(err)
		}
		a, ok := img.Attribute(9, 9)
		if !ok {
			t.Fatal("no attribute")
		}
		if a.Ink() != c.wantInk || a.Paper() != c.wantPaper {
			t.Fatalf("ink %d paper %d stored as %d/%d", c.ink, c.paper, a.Ink(), a.Paper())
		}
	}
}

func TestMulticolorAttributeCells(t *testing.T) {
	d := scr.MustLookup(scr.FormatMulticolor4)
	img := NewImage(d)
	ctx := DefaultContext()
	ctx.Ink, ctx.Paper = 1, 6
	if err := img.SetPixel(ctx, 0, 5, true); err != nil {
		t.Fatal(err)
	}
	data := img.Committed()
	if got := scr.Attr(data[d.AttrBase+768]); got != scr.MakeAttr(1, 6, false, false) {
		t.Fatalf("second bank cell 0: got %#02x", byte(got))
	}
	if got := scr.Attr(data[d.AttrBase]); got != scr.DefaultAttr {
		t.Fatalf("first bank cell 0 changed: %#02x", byte(got))
	}
}

func TestTricolorIndexDecomposition(t *testing.T) {
	d := scr.MustLookup(scr.FormatTricolor)
	img := NewImage(d)
	ctx := DefaultContext()
	for c := 0; c < 8; c++ {
		ctx.Ink = c
		if err := img.SetPixel(ctx, c, 0, true); err != nil {
			t.Fatal(err)
		}
		if got := img.ColorIndex(c, 0); got != c {
			t.Fatalf("index %d read back as %d", c, got)
		}
	}
	// red only: plane 0
	data := img.Committed()
	if data[0]&(1<<scr.BitPosition(2)) == 0 || data[6144]&(1<<scr.BitPosition(2)) != 0 {
		t.Fatalf("index 2 should live in the red plane only")
	}
	ctx.Paper = 5
	if err := img.SetPixel(ctx, 0, 1, false); err != nil {
		t.Fatal(err)
	}
	if got := img.ColorIndex(0, 1); got != 5 {
		t.Fatalf("paper write: got index %d want 5", got)
	}
}

func TestGigascreenScenarioC(t *testing.T) {
	d := scr.MustLookup(scr.FormatGigascreen)
	img := NewImage(d)
	ctx := DefaultContext()
	ctx.Blend = BlendInkPaper
	ctx.Second = Colors{Ink: 2, Paper: 4}
	if err := img.SetPixel(ctx, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	data := img.Committed()
	if data[0]&0x80 == 0 {
		t.Fatalf("frame 1 bit clear")
	}
	if data[scr.ScreenSize]&0x80 != 0 {
		t.Fatalf("frame 2 bit set")
	}
	if got := img.PixelState(0, 0); got != BlendInkPaper {
		t.Fatalf("state: got %v", got)
	}
	if got := scr.Attr(data[scr.ScreenSize+scr.BitmapSize]); got != scr.MakeAttr(2, 4, false, false) {
		t.Fatalf("frame 2 attribute: got %#02x", byte(got))
	}

	for _, b := range []Blend{BlendInkInk, BlendPaperInk, BlendPaperPaper} {
		ctx.Blend = b
		if err := img.SetPixel(ctx, 3, 3, true); err != nil {
			t.Fatal(err)
		}
		if got := img.PixelState(3, 3); got != b {
			t.Fatalf("blend %v read back as %v", b, got)
		}
	}
}

func TestTransparentErasesUpperLayer(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatStandard))
	if err := img.EnableLayers(); err != nil {
		t.Fatal(err)
	}
	img.Layers().Add("top")
	ctx := DefaultContext()
	if err := img.SetPixel(ctx, 4, 4, true); err != nil {
		t.Fatal(err)
	}
	if !img.Layers().ActiveLayer().Masked(4*256 + 4) {
		t.Fatalf("write did not mark the mask")
	}
	ctx.Ink = ColorTransparent
	if err := img.SetPixel(ctx, 4, 4, true); err != nil {
		t.Fatal(err)
	}
	if img.Layers().ActiveLayer().Masked(4*256 + 4) {
		t.Fatalf("transparent write left the mask set")
	}
	if img.Pixel(4, 4) {
		t.Fatalf("background should show through")
	}

	if err := img.Layers().SetActive(0); err != nil {
		t.Fatal(err)
	}
	if err := img.SetPixel(ctx, 4, 4, true); err != nil {
		t.Fatal(err)
	}
	if !img.Pixel(4, 4) {
		t.Fatalf("background ignores transparency and draws")
	}
}

func TestTransparentInkErasesPaperWrite(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatStandard))
	if err := img.EnableLayers(); err != nil {
		t.Fatal(err)
	}
	img.Layers().Add("top")
	ctx := DefaultContext()
	// a neighbour keeps the layer owning the cell
	if err := img.SetPixel(ctx, 5, 4, false); err != nil {
		t.Fatal(err)
	}
	before, _ := img.Attribute(4, 4)

	ctx.Ink, ctx.Paper = ColorTransparent, 3
	if err := img.SetPixel(ctx, 4, 4, false); err != nil {
		t.Fatal(err)
	}
	if img.Layers().ActiveLayer().Masked(4*256 + 4) {
		t.Fatalf("paper write with a transparent ink drew on the layer")
	}
	if after, _ := img.Attribute(4, 4); after != before {
		t.Fatalf("attribute changed from %#02x to %#02x", byte(before), byte(after))
	}

	// the attribute tool takes the same path
	if err := img.SetPixel(DefaultContext(), 4, 4, true); err != nil {
		t.Fatal(err)
	}
	if err := img.PaintAttribute(ctx, 4, 4); err != nil {
		t.Fatal(err)
	}
	if l := img.Layers().ActiveLayer(); l.Masked(4*256+4) || l.Masked(4*256+5) {
		t.Fatalf("attribute write with a transparent ink kept the cell")
	}
}

func TestTransparentSecondFrameErases(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatGigascreen))
	if err := img.EnableLayers(); err != nil {
		t.Fatal(err)
	}
	img.Layers().Add("top")
	ctx := DefaultContext()
	if err := img.SetPixel(ctx, 9, 9, true); err != nil {
		t.Fatal(err)
	}
	ctx.Second.Ink = ColorTransparent
	if err := img.SetPixel(ctx, 9, 9, true); err != nil {
		t.Fatal(err)
	}
	if img.Layers().ActiveLayer().Masked(9*256 + 9) {
		t.Fatalf("transparent frame 2 ink was stored instead of erasing")
	}
	if img.PixelState(9, 9) != BlendPaperPaper {
		t.Fatalf("background should show through, got %v", img.PixelState(9, 9))
	}
}

func TestTricolorPixelReadsPlanes(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatTricolor))
	ctx := DefaultContext()
	ctx.Ink, ctx.Paper = 0, 6
	if err := img.SetPixel(ctx, 0, 0, true); err != nil {
		t.Fatal(err)
	}
	if img.Pixel(0, 0) {
		t.Fatalf("black ink index reads as set")
	}
	if err := img.SetPixel(ctx, 1, 0, false); err != nil {
		t.Fatal(err)
	}
	if !img.Pixel(1, 0) || img.ColorIndex(1, 0) != 6 {
		t.Fatalf("paper index 6 reads as %v/%d", img.Pixel(1, 0), img.ColorIndex(1, 0))
	}
}

func TestCharStreamRejectsPixels(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatCharStream))
	if err := img.SetPixel(DefaultContext(), 0, 0, true); !errors.Is(err, ErrCharStream) {
		t.Fatalf("got %v", err)
	}
	if img.Pixel(0, 0) {
		t.Fatalf("char stream has no pixels")
	}
}

func TestPaintAttributeKeepsBitmap(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatStandard))
	ctx := DefaultContext()
	_ = img.SetPixel(ctx, 10, 10, true)
	bitmap := append([]byte(nil), img.Committed()[:scr.BitmapSize]...)
	ctx.Ink, ctx.Paper = 4, 1
	if err := img.PaintAttribute(ctx, 12, 12); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bitmap, img.Committed()[:scr.BitmapSize]) {
		t.Fatalf("attribute paint changed the bitmap")
	}
	if a, _ := img.Attribute(8, 8); a != scr.MakeAttr(4, 1, false, false) {
		t.Fatalf("attribute: got %#02x", byte(a))
	}
	if err := NewImage(scr.MustLookup(scr.FormatTricolor)).PaintAttribute(ctx, 0, 0); !errors.Is(err, ErrNoAttributes) {
		t.Fatalf("tri-channel: got %v", err)
	}
}

func TestPaintAttributeOnUpperLayerOwnsCell(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatStandard))
	ctx := DefaultContext()
	_ = img.SetPixel(ctx, 1, 1, true)
	if err := img.EnableLayers(); err != nil {
		t.Fatal(err)
	}
	img.Layers().Add("colors")
	ctx.Ink, ctx.Paper = 6, 2
	if err := img.PaintAttribute(ctx, 0, 0); err != nil {
		t.Fatal(err)
	}
	if !img.Pixel(1, 1) {
		t.Fatalf("cell pixels were lost")
	}
	if a, _ := img.Attribute(0, 0); a != scr.MakeAttr(6, 2, false, false) {
		t.Fatalf("attribute: got %#02x", byte(a))
	}
}

func TestSetBorder(t *testing.T) {
	d := scr.MustLookup(scr.FormatBordered)
	img := NewImage(d)
	ctx := DefaultContext()
	ctx.Ink = 2
	if err := img.SetBorder(ctx, 3, 3); err != nil {
		t.Fatal(err)
	}
	if c, _ := img.BorderColor(0, 0); c != 2 {
		t.Fatalf("border: got %d want 2", c)
	}
	if err := img.SetBorder(ctx, 100, 100); err != nil {
		t.Fatalf("screen area should be ignored: %v", err)
	}
	if err := NewImage(scr.MustLookup(scr.FormatStandard)).SetBorder(ctx, 0, 0); !errors.Is(err, ErrNoBorder) {
		t.Fatalf("standard format: got %v", err)
	}

	if err := img.EnableLayers(); err != nil {
		t.Fatal(err)
	}
	img.Layers().Add("")
	ctx.Ink = 6
	if err := img.SetBorder(ctx, 3, 3); err != nil {
		t.Fatal(err)
	}
	if c, _ := img.BorderColor(0, 0); c != 6 {
		t.Fatalf("layered border: got %d want 6", c)
	}
	if err := img.Layers().SetVisible(1, false); err != nil {
		t.Fatal(err)
	}
	img.Commit()
	if c, _ := img.BorderColor(0, 0); c != 2 {
		t.Fatalf("hidden layer border: got %d want 2", c)
	}
}

func TestPaletteEntry(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatULAPlus))
	p, err := img.Palette()
	if err != nil {
		t.Fatal(err)
	}
	if p != scr.DefaultPalette() {
		t.Fatalf("new image should carry the default palette")
	}
	if err := img.SetPaletteEntry(5, 0xE3); err != nil {
		t.Fatal(err)
	}
	p, _ = img.Palette()
	if p[5] != 0xE3 {
		t.Fatalf("slot 5: got %#02x", p[5])
	}
	if err := img.SetPaletteEntry(64, 0); err == nil {
		t.Fatalf("slot 64 accepted")
	}
	if _, err := NewImage(scr.MustLookup(scr.FormatStandard)).Palette(); !errors.Is(err, ErrNoPalette) {
		t.Fatalf("standard palette: got %v", err)
	}
}

func TestFlattenLayersDisablesLayering(t *testing.T) {
	img := NewImage(scr.MustLookup(scr.FormatStandard))
	_ = img.EnableLayers()
	img.Layers().Add("")
	_ = img.SetPixel(DefaultContext(), 2, 2, true)
	if err := img.FlattenLayers(); err != nil {
		t.Fatal(err)
	}
	if img.Layered() || !img.Pixel(2, 2) {
		t.Fatalf("flatten lost content or kept layers")
	}
	char := NewImage(scr.MustLookup(scr.FormatCharStream))
	if err := char.FlattenLayers(); !errors.Is(err, ErrCharStream) {
		t.Fatalf("char stream flatten: got %v", err)
	}
}
