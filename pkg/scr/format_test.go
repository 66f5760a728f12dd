package scr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistryLookups(t *testing.T) {
	d, err := ByExtension(".SCR")
	if err != nil || d.ID != FormatStandard {
		t.Fatalf("scr: %v %v", d.Name, err)
	}
	for _, name := range []string{"Multicolor 8x2", "multicolor 8x2", "mc2"} {
		d, err := ByName(name)
		if err != nil || d.ID != FormatMulticolor2 {
			t.Fatalf("%q: %v %v", name, d.Name, err)
		}
	}
	for _, ext := range []string{"rgb", "3cl"} {
		if d, err := ByExtension(ext); err != nil || d.ID != FormatTricolor {
			t.Fatalf("%s: %v %v", ext, d.Name, err)
		}
	}
	if _, err := Lookup(200); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("unknown id: %v", err)
	}
	if _, err := ByName("pcx"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("unknown name: %v", err)
	}

	all := Formats()
	if len(all) != 9 {
		t.Fatalf("%d formats registered", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("formats out of order at %d", i)
		}
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		size int
		want FormatID
	}{
		{"a.scr", ScreenSize, FormatStandard},
		{"a.bin", ScreenSize, FormatStandard},
		{"a.mc4", ScreenSize, FormatStandard},
		{"a.bin", 2 * ScreenSize, FormatGigascreen},
		{"a.bin", 3 * BitmapSize, FormatTricolor},
		{"a.ulp", ScreenSize + PaletteSize, FormatULAPlus},
		{"a.txt", 17, FormatCharStream},
		{"A.ZXT", 0, FormatCharStream},
	}
	for _, c := range cases {
		d, err := Detect(make([]byte, c.size), c.name)
		if err != nil || d.ID != c.want {
			t.Fatalf("%s/%d: got %v %v", c.name, c.size, d.Name, err)
		}
	}
	if _, err := Detect(make([]byte, 100), "a.bin"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("odd size: %v", err)
	}
}

func TestCheckSize(t *testing.T) {
	d := MustLookup(FormatMulticolor4)
	if err := d.CheckSize(make([]byte, BitmapSize+2*AttrSize)); err != nil {
		t.Fatal(err)
	}
	if err := d.CheckSize(make([]byte, ScreenSize)); !errors.Is(err, ErrSize) {
		t.Fatalf("short buffer: %v", err)
	}
	if err := MustLookup(FormatCharStream).CheckSize(nil); err != nil {
		t.Fatalf("variable length format: %v", err)
	}
}

func TestFamilies(t *testing.T) {
	cases := map[FormatID]string{
		FormatStandard:    "attr8x8",
		FormatBordered:    "attr8x8",
		FormatULAPlus:     "attr8x8",
		FormatMulticolor4: "attr8x4",
		FormatMulticolor1: "attr8x1",
		FormatTricolor:    "planes3",
		FormatGigascreen:  "dual-frame",
		FormatCharStream:  "chars",
	}
	for id, want := range cases {
		if got := MustLookup(id).Family(); got != want {
			t.Fatalf("%s: family %q want %q", MustLookup(id).Name, got, want)
		}
	}
}

func TestReadWriteFile(t *testing.T) {
	d := MustLookup(FormatMulticolor1)
	data := make([]byte, d.FileSize)
	data[0] = 0x81
	path := filepath.Join(t.TempDir(), "sub", "pic.mlt")
	if err := WriteFile(path, d, data); err != nil {
		t.Fatal(err)
	}
	got, b, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != FormatMulticolor1 || len(b) != d.FileSize || b[0] != 0x81 {
		t.Fatalf("read back %s %d bytes", got.Name, len(b))
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind")
	}
	if err := WriteFile(path, d, data[:10]); !errors.Is(err, ErrSize) {
		t.Fatalf("short write: %v", err)
	}
}
