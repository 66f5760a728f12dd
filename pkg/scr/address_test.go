package scr

import "testing"

func TestInterleavedKnownOffsets(t *testing.T) {
	cases := []struct {
		x, y int
		want int
	}{
		{0, 0, 0},
		{0, 1, 256},
		{0, 8, 32},
		{0, 64, 2048},
		{8, 0, 1},
		{255, 191, 6143},
	}
	d := MustLookup(FormatStandard)
	for _, c := range cases {
		got, ok := d.BitmapAddress(c.x, c.y)
		if !ok || got != c.want {
			t.Fatalf("(%d,%d): got %d %v want %d", c.x, c.y, got, ok, c.want)
		}
	}
}

func TestInterleavedCoversBitmapOnce(t *testing.T) {
	d := MustLookup(FormatStandard)
	seen := make([]bool, BitmapSize)
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x += 8 {
			off, ok := d.BitmapAddress(x, y)
			if !ok || off < 0 || off >= BitmapSize {
				t.Fatalf("(%d,%d) -> %d %v", x, y, off, ok)
			}
			if seen[off] {
				t.Fatalf("offset %d reached twice", off)
			}
			seen[off] = true
		}
	}
	for i, v := range seen {
		if !v {
			t.Fatalf("offset %d never reached", i)
		}
	}
}

func TestAddressingRejectsOutOfRange(t *testing.T) {
	d := MustLookup(FormatStandard)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {256, 0}, {0, 192}} {
		if _, ok := d.BitmapAddress(p[0], p[1]); ok {
			t.Fatalf("(%d,%d) accepted", p[0], p[1])
		}
		if _, ok := d.AttributeIndex(p[0], p[1]); ok {
			t.Fatalf("attr (%d,%d) accepted", p[0], p[1])
		}
	}
	if _, ok := MustLookup(FormatCharStream).BitmapAddress(0, 0); ok {
		t.Fatalf("character stream has no bitmap")
	}
	if _, ok := MustLookup(FormatTricolor).AttributeIndex(0, 0); ok {
		t.Fatalf("tri-channel has no attributes")
	}
}

func TestBitPositionIsMSBFirst(t *testing.T) {
	if BitPosition(0) != 7 || BitPosition(7) != 0 || BitPosition(9) != 6 {
		t.Fatalf("bit positions %d %d %d", BitPosition(0), BitPosition(7), BitPosition(9))
	}
}

func TestAttributeGeometry(t *testing.T) {
	std := MustLookup(FormatStandard)
	if a, _ := std.AttributeAddress(255, 191); a != ScreenSize-1 {
		t.Fatalf("standard last attribute at %d", a)
	}

	mc4 := MustLookup(FormatMulticolor4)
	if i, _ := mc4.AttributeIndex(0, 3); i != 0 {
		t.Fatalf("mc4 line 3 in bank %d", i)
	}
	if i, _ := mc4.AttributeIndex(0, 4); i != AttrSize {
		t.Fatalf("mc4 line 4 at %d want %d", i, AttrSize)
	}
	if x0, y0, x1, y1 := mc4.CellRect(AttrSize + 33); x0 != 8 || y0 != 12 || x1 != 16 || y1 != 16 {
		t.Fatalf("mc4 cell rect %d,%d-%d,%d", x0, y0, x1, y1)
	}

	mc2 := MustLookup(FormatMulticolor2)
	if i, _ := mc2.AttributeIndex(16, 5); i != 2*Columns+2 {
		t.Fatalf("mc2 index %d", i)
	}
	mlt := MustLookup(FormatMulticolor1)
	if i, _ := mlt.AttributeIndex(0, 191); i != 191*Columns {
		t.Fatalf("mlt index %d", i)
	}
}

func TestLayoutsFitFileSize(t *testing.T) {
	for _, d := range Formats() {
		if d.FileSize == 0 {
			continue
		}
		if d.HasBitmap() {
			if end := d.PlaneBase(d.Channels-1) + d.BitmapSize; end > d.FileSize {
				t.Fatalf("%s: planes end at %d past %d", d.Name, end, d.FileSize)
			}
		}
		if f := d.AttrFrames(); f > 0 {
			if end := d.AttrBlockBase(f-1) + d.AttrSize; end > d.FileSize {
				t.Fatalf("%s: attributes end at %d past %d", d.Name, end, d.FileSize)
			}
		}
		if d.HasPalette() && d.PaletteBase+d.PaletteSize > d.FileSize {
			t.Fatalf("%s: palette past end", d.Name)
		}
	}
}

func TestSurfaceBitAndAttr(t *testing.T) {
	d := MustLookup(FormatGigascreen)
	s := Native{Desc: d, Data: make([]byte, d.FileSize)}
	d.SetBit(s, 1, 10, 20, true)
	if d.Bit(s, 0, 10, 20) || !d.Bit(s, 1, 10, 20) {
		t.Fatalf("bit landed in the wrong frame")
	}
	off, _ := d.BitmapAddress(10, 20)
	if s.Data[ScreenSize+off] != 1<<BitPosition(10) {
		t.Fatalf("frame 2 byte %08b", s.Data[ScreenSize+off])
	}
	d.SetAttr(s, 1, 10, 20, MakeAttr(2, 5, false, false))
	if a, ok := d.Attr(s, 1, 10, 20); !ok || a.Ink() != 2 || a.Paper() != 5 {
		t.Fatalf("frame 2 attr %v %v", a, ok)
	}
	if a, _ := d.Attr(s, 0, 10, 20); a != 0 {
		t.Fatalf("frame 1 attr changed: %v", a)
	}
	// out of range writes are ignored
	d.SetBit(s, 2, 0, 0, true)
	d.SetBit(s, 0, 300, 0, true)
}
