package scr

import "testing"

func TestStandardBorderSize(t *testing.T) {
	if got := StandardBorder.Size(); got != 4224 {
		t.Fatalf("border size %d", got)
	}
	if got := StandardBorder.Right(); got != 64 {
		t.Fatalf("right strip %d", got)
	}
	d := MustLookup(FormatBordered)
	if d.FileSize != ScreenSize+4224 {
		t.Fatalf("bsc size %d", d.FileSize)
	}
}

func TestBorderAddress(t *testing.T) {
	b := StandardBorder
	cases := []struct {
		fx, fy int
		off    int
		shift  uint
	}{
		{0, 0, 0, 0},
		{8, 0, 0, 3},
		{16, 0, 1, 0},
		{0, 64, 1536, 0},
		{320, 64, 1540, 0},
		{383, 303, 4223, 3},
	}
	for _, c := range cases {
		off, shift, ok := b.Address(c.fx, c.fy)
		if !ok || off != c.off || shift != c.shift {
			t.Fatalf("(%d,%d): got %d/%d/%v want %d/%d", c.fx, c.fy, off, shift, ok, c.off, c.shift)
		}
	}
	if _, _, ok := b.Address(64, 64); ok {
		t.Fatalf("screen pixel resolved as border")
	}
	if _, _, ok := b.Address(384, 0); ok {
		t.Fatalf("pixel outside the frame resolved")
	}
}

func TestBorderUnitsAreDistinct(t *testing.T) {
	b := StandardBorder
	seen := map[int]bool{}
	for fy := 0; fy < b.FrameHeight; fy++ {
		for fx := 0; fx < b.FrameWidth; fx += b.UnitWidth {
			u, ok := b.Unit(fx, fy)
			if !ok {
				continue
			}
			if seen[u] {
				t.Fatalf("unit %d reached twice", u)
			}
			seen[u] = true
		}
	}
	if len(seen) != b.Units() {
		t.Fatalf("reached %d units of %d", len(seen), b.Units())
	}
}

func TestBorderColors(t *testing.T) {
	b := StandardBorder
	border := make([]byte, b.Size())
	u, _ := b.Unit(8, 0)
	b.SetUnitColor(border, u, 5)
	b.SetUnitColor(border, u-1, 9)
	if border[0] != 5<<3|7 {
		t.Fatalf("packed byte %08b", border[0])
	}
	if c, ok := b.ColorAt(border, 12, 0); !ok || c != 5 {
		t.Fatalf("color %d %v", c, ok)
	}
	if b.UnitColor(border, u-1) != 7 {
		t.Fatalf("clamped unit color %d", b.UnitColor(border, u-1))
	}
	// out of range runs are ignored
	b.SetUnitColor(border, b.Units(), 3)
	b.SetUnitColor(border, -1, 3)

	d := MustLookup(FormatBordered)
	data := make([]byte, d.FileSize)
	if got := len(d.BorderBlock(data)); got != b.Size() {
		t.Fatalf("border block %d bytes", got)
	}
	if MustLookup(FormatStandard).BorderBlock(data) != nil {
		t.Fatalf("standard format has no border block")
	}
}
