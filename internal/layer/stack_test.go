package layer

import (
	"bytes"
	"errors"
	"testing"

	"zxpaint/pkg/scr"
)

func standardStack(t *testing.T) (*Stack, scr.Descriptor) {
	t.Helper()
	d := scr.MustLookup(scr.FormatStandard)
	base := make([]byte, d.FileSize)
	for i := range base[:d.BitmapSize] {
		base[i] = byte(i * 7)
	}
	for i := range base[d.BitmapSize:] {
		base[d.BitmapSize+i] = byte(scr.MakeAttr(i%8, (i/8)%8, false, false))
	}
	s, err := NewStack(d, base)
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	return s, d
}

func TestNewStackRejectsWrongSize(t *testing.T) {
	d := scr.MustLookup(scr.FormatStandard)
	if _, err := NewStack(d, make([]byte, 100)); !errors.Is(err, scr.ErrSize) {
		t.Fatalf("expected ErrSize, got %v", err)
	}
}

func TestFlattenBaseOnlyReproducesCommitted(t *testing.T) {
	for _, d := range scr.Formats() {
		if d.CharStream {
			continue
		}
		t.Run(d.Name, func(t *testing.T) {
			base := make([]byte, d.FileSize)
			for i := range base {
				base[i] = byte(i*31 + 5)
			}
			if bb := d.BorderBlock(base); bb != nil {
				for i := range bb {
					bb[i] &= 0x3F
				}
			}
			s, err := NewStack(d, base)
			if err != nil {
				t.Fatal(err)
			}
			got := s.Flatten(append([]byte(nil), base...))
			if !bytes.Equal(got, base) {
				t.Fatalf("flatten of a single base layer changed the buffer")
			}
		})
	}
}

func TestHiddenUpperLayersReproduceBase(t *testing.T) {
	s, d := standardStack(t)
	base := s.Flatten(nil)

	s.Add("ink")
	top := s.ActiveLayer()
	ts := Surface(d, top)
	for x := 0; x < 40; x++ {
		d.SetBit(ts, 0, x, 3, true)
		top.SetMask(3*d.Width+x, true)
	}
	d.SetAttr(ts, 0, 0, 3, scr.MakeAttr(2, 6, true, false))
	if bytes.Equal(s.Flatten(nil), base) {
		t.Fatalf("visible upper layer should change the flatten")
	}

	if err := s.SetVisible(1, false); err != nil {
		t.Fatal(err)
	}
	if got := s.Flatten(nil); !bytes.Equal(got, base) {
		t.Fatalf("hiding upper layers must reproduce layer 0")
	}
}

func TestOverrideTopmostWins(t *testing.T) {
	s, d := standardStack(t)
	base := s.Layer(0)
	bs := Surface(d, base)
	d.SetBit(bs, 0, 10, 10, false)

	s.Add("a")
	a := s.ActiveLayer()
	d.SetBit(Surface(d, a), 0, 10, 10, true)
	a.SetMask(10*d.Width+10, true)

	s.Add("b")
	b := s.ActiveLayer()
	b.SetMask(10*d.Width+10, true)
	d.SetAttr(Surface(d, b), 0, 10, 10, scr.MakeAttr(4, 1, false, false))

	out := s.Flatten(nil)
	native := scr.Native{Desc: d, Data: out}
	if d.Bit(native, 0, 10, 10) {
		t.Fatalf("topmost layer holds a 0 bit, expected it to win")
	}
	attr, _ := d.Attr(native, 0, 10, 10)
	if attr != scr.MakeAttr(4, 1, false, false) {
		t.Fatalf("attribute: got %#02x", byte(attr))
	}

	if err := s.SetVisible(2, false); err != nil {
		t.Fatal(err)
	}
	out = s.Flatten(out)
	if !d.Bit(scr.Native{Desc: d, Data: out}, 0, 10, 10) {
		t.Fatalf("layer a should supply the pixel once b is hidden")
	}
}

func TestHiddenBaseUsesDefaultAttribute(t *testing.T) {
	s, d := standardStack(t)
	if err := s.SetVisible(0, false); err != nil {
		t.Fatal(err)
	}
	out := s.Flatten(nil)
	for i := 0; i < d.BitmapSize; i++ {
		if out[i] != 0 {
			t.Fatalf("byte %d = %#02x, want 0", i, out[i])
		}
	}
	for i := 0; i < d.AttrSize; i++ {
		if scr.Attr(out[d.AttrBase+i]) != scr.DefaultAttr {
			t.Fatalf("attr %d = %#02x, want default", i, out[d.AttrBase+i])
		}
	}
}

func TestAttributelessLayerFallsBackToBase(t *testing.T) {
	s, d := standardStack(t)
	s.Add("")
	l := s.ActiveLayer()
	l.Attrs = nil
	ls := Surface(d, l)
	// cell 10 covers x 80-87 on the first character row
	for y := 0; y < 8; y++ {
		for x := 80; x < 88; x++ {
			d.SetBit(ls, 0, x, y, true)
			l.SetMask(y*d.Width+x, true)
		}
	}
	out := s.Flatten(nil)
	n := scr.Native{Desc: d, Data: out}
	if !d.Bit(n, 0, 83, 4) {
		t.Fatalf("upper layer pixel missing")
	}
	a, ok := d.Attr(n, 0, 83, 4)
	if !ok || a.Ink() != 2 || a.Paper() != 1 {
		t.Fatalf("attr %#02x, want the base cell's ink 2 paper 1", byte(a))
	}
	if err := s.SetVisible(0, false); err != nil {
		t.Fatal(err)
	}
	out = s.Flatten(nil)
	if got := scr.Attr(out[d.AttrBase+10]); got != scr.DefaultAttr {
		t.Fatalf("hidden base: attr %#02x, want default", byte(got))
	}
}

func TestFlattenRectMatchesFullFlatten(t *testing.T) {
	s, d := standardStack(t)
	full := s.Flatten(nil)

	s.Add("")
	l := s.ActiveLayer()
	ls := Surface(d, l)
	for y := 20; y < 30; y++ {
		for x := 50; x < 60; x++ {
			d.SetBit(ls, 0, x, y, (x+y)%2 == 0)
			d.SetAttr(ls, 0, x, y, scr.MakeAttr(3, 5, false, true))
			l.SetMask(y*d.Width+x, true)
		}
	}
	partial := s.FlattenRect(append([]byte(nil), full...), 50, 20, 60, 30)
	want := s.Flatten(nil)
	if !bytes.Equal(partial, want) {
		t.Fatalf("FlattenRect disagrees with Flatten")
	}
}

func TestBaseLayerIsFixed(t *testing.T) {
	s, _ := standardStack(t)
	s.Add("one")
	if err := s.Remove(0); !errors.Is(err, ErrBaseLayer) {
		t.Fatalf("Remove(0): got %v", err)
	}
	if err := s.Move(1, 0); !errors.Is(err, ErrBaseLayer) {
		t.Fatalf("Move(1, 0): got %v", err)
	}
	if err := s.MergeDown(0); !errors.Is(err, ErrBaseLayer) {
		t.Fatalf("MergeDown(0): got %v", err)
	}
	if err := s.Remove(5); !errors.Is(err, ErrIndex) {
		t.Fatalf("Remove(5): got %v", err)
	}
}

func TestAddInsertsAboveActive(t *testing.T) {
	s, _ := standardStack(t)
	s.Add("one")
	s.Add("two")
	if err := s.SetActive(1); err != nil {
		t.Fatal(err)
	}
	at := s.Add("between")
	if at != 2 || s.Active() != 2 {
		t.Fatalf("inserted at %d, active %d", at, s.Active())
	}
	names := []string{}
	for _, l := range s.Layers() {
		names = append(names, l.Name)
	}
	want := []string{"Background", "one", "between", "two"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order: got %v want %v", names, want)
		}
	}
}

func TestMoveKeepsActiveLayer(t *testing.T) {
	s, _ := standardStack(t)
	s.Add("one")
	s.Add("two")
	s.Add("three")
	if err := s.SetActive(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Move(1, 3); err != nil {
		t.Fatal(err)
	}
	if s.ActiveLayer().Name != "one" || s.Active() != 3 {
		t.Fatalf("active: %d %q", s.Active(), s.ActiveLayer().Name)
	}
	if s.Layer(1).Name != "two" {
		t.Fatalf("layer 1: %q", s.Layer(1).Name)
	}
}

func TestMergeDownPreservesFlatten(t *testing.T) {
	s, d := standardStack(t)
	s.Add("top")
	l := s.ActiveLayer()
	ls := Surface(d, l)
	for x := 0; x < 16; x++ {
		d.SetBit(ls, 0, x, 100, true)
		d.SetAttr(ls, 0, x, 100, scr.MakeAttr(1, 2, true, false))
		l.SetMask(100*d.Width+x, true)
	}
	before := s.Flatten(nil)
	if err := s.MergeDown(1); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len after merge: %d", s.Len())
	}
	if got := s.Flatten(nil); !bytes.Equal(got, before) {
		t.Fatalf("merge changed the flattened image")
	}
}

func TestBorderComposite(t *testing.T) {
	d := scr.MustLookup(scr.FormatBordered)
	base := make([]byte, d.FileSize)
	s, err := NewStack(d, base)
	if err != nil {
		t.Fatal(err)
	}
	s.Add("border")
	l := s.ActiveLayer()
	u, ok := d.Border.Unit(0, 0)
	if !ok {
		t.Fatal("frame origin should be border")
	}
	d.Border.SetUnitColor(l.Border, u, 5)
	l.BorderMask[u] = true

	out := s.Flatten(nil)
	if c, _ := d.Border.ColorAt(d.BorderBlock(out), 0, 0); c != 5 {
		t.Fatalf("border color: got %d want 5", c)
	}
	if c, _ := d.Border.ColorAt(d.BorderBlock(out), 8, 0); c != 0 {
		t.Fatalf("neighbouring run: got %d want 0", c)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s, d := standardStack(t)
	before := s.Flatten(nil)
	c := s.Clone()
	cs := Surface(d, c.Layer(0))
	d.SetBit(cs, 0, 0, 0, !d.Bit(cs, 0, 0, 0))
	c.Layer(0).Mask[0] = false
	c.Layer(0).Name = "changed"
	if s.Layer(0).Name == "changed" || !s.Layer(0).Masked(0) {
		t.Fatalf("clone shares layer values")
	}
	if !bytes.Equal(s.Flatten(nil), before) {
		t.Fatalf("clone shares bitmap storage")
	}
}

func TestFromLayersValidates(t *testing.T) {
	d := scr.MustLookup(scr.FormatStandard)
	bad := New(d, "bad")
	bad.Mask = bad.Mask[:10]
	if _, err := FromLayers(d, []*Layer{New(d, "ok"), bad}, 0); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
	if _, err := FromLayers(d, nil, 0); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape for empty stack, got %v", err)
	}
	s, err := FromLayers(d, []*Layer{New(d, "a"), New(d, "b")}, 9)
	if err != nil {
		t.Fatal(err)
	}
	if s.Active() != 1 || !s.Layer(0).Masked(0) {
		t.Fatalf("FromLayers did not normalize the stack")
	}
}

func TestCharStreamLayers(t *testing.T) {
	d := scr.MustLookup(scr.FormatCharStream)
	stream := []byte{
		'H', 'I',
		scr.CodeOver, 1, scr.CodeAt, 0, 0, '_',
	}
	s, err := NewStack(d, stream)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("layers: got %d want 2", s.Len())
	}
	if s.Layer(1).Cells[0].Code != '_' || !s.Layer(1).Masked(0) {
		t.Fatalf("upper layer cell 0: %+v", s.Layer(1).Cells[0])
	}
	if err := s.MergeDown(1); !errors.Is(err, ErrMergeXOR) {
		t.Fatalf("MergeDown: got %v", err)
	}

	first := s.Flatten(nil)
	s.Add("")
	if got := s.Flatten(nil); !bytes.Equal(got, first) {
		t.Fatalf("empty layer changed the stream: %v vs %v", got, first)
	}

	again, err := NewStack(d, first)
	if err != nil {
		t.Fatal(err)
	}
	if got := again.Flatten(nil); !bytes.Equal(got, first) {
		t.Fatalf("stream does not round trip: %v vs %v", got, first)
	}
}

func TestRasterXorsLayers(t *testing.T) {
	d := scr.MustLookup(scr.FormatCharStream)
	s, err := NewStack(d, []byte{scr.FirstBlock + 15, scr.CodeOver, 1, scr.CodeAt, 0, 0, scr.FirstBlock + 15})
	if err != nil {
		t.Fatal(err)
	}
	out := s.Raster(nil)
	if out[0] != 0 {
		t.Fatalf("full block xor full block: got %#02x want 0", out[0])
	}
	if err := s.SetVisible(1, false); err != nil {
		t.Fatal(err)
	}
	out = s.Raster(nil)
	if out[0] != 0xFF {
		t.Fatalf("single full block: got %#02x want 0xff", out[0])
	}
}
