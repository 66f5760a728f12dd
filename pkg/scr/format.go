// Package scr describes the ZX Spectrum family of screen formats: their
// geometry, the interleaved bitmap addressing shared by all of them, the
// attribute byte, palettes, border strips and the character stream codec.
//
// Everything in this package is pure: descriptors are immutable values and
// address resolution never touches a buffer.
package scr

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type FormatID uint8

const (
	FormatStandard FormatID = iota
	FormatBordered
	FormatMulticolor4
	FormatMulticolor2
	FormatMulticolor1
	FormatTricolor
	FormatULAPlus
	FormatGigascreen
	FormatCharStream
)

const (
	ScreenWidth  = 256
	ScreenHeight = 192
	BitmapSize   = 6144
	AttrSize     = 768
	Columns      = 32
	Rows         = 24
	ScreenSize   = BitmapSize + AttrSize
	PaletteSize  = 64
)

// ComposeRule selects how a layer stack is flattened.
type ComposeRule uint8

const (
	ComposeOverride ComposeRule = iota
	ComposeXOR
)

var (
	ErrUnknownFormat = errors.New("scr: unknown format")
	ErrSize          = errors.New("scr: buffer size does not match format")
	ErrNoBitmap      = errors.New("scr: format has no bitmap")
)

// Descriptor is the static description of one format. Values returned by
// Lookup are copies; the registry itself is never modified after init.
type Descriptor struct {
	ID         FormatID
	Name       string
	Extensions []string

	Width  int
	Height int

	// BitmapSize is the size of one bitmap plane. Channels is the number
	// of planes: 1 for most formats, 2 for the dual-frame format (one per
	// frame), 3 for the tri-channel format.
	BitmapSize int
	Channels   int

	// PlaneStride is the distance in the native file between plane p and
	// plane p+1. Frames of the dual-frame format each carry their own
	// attribute block, so their stride is a whole standard screen.
	PlaneStride int

	CellWidth  int
	CellHeight int
	AttrBase   int
	AttrSize   int
	AttrBanks  int

	Border      *BorderLayout
	BorderBase  int
	PaletteBase int
	PaletteSize int

	CharStream bool
	Compose    ComposeRule

	// FileSize is zero for variable-length formats.
	FileSize int

	Addressing AddressingStrategy
	Attributes AttributeStrategy
}

func (d Descriptor) String() string { return d.Name }

func (d Descriptor) HasBitmap() bool { return !d.CharStream && d.BitmapSize > 0 }

func (d Descriptor) HasAttributes() bool { return d.AttrSize > 0 }

func (d Descriptor) HasBorder() bool { return d.Border != nil }

func (d Descriptor) HasPalette() bool { return d.PaletteSize > 0 }

// AttrFrames is the number of independent attribute blocks in the file.
func (d Descriptor) AttrFrames() int {
	if !d.HasAttributes() {
		return 0
	}
	if d.ID == FormatGigascreen {
		return d.Channels
	}
	return 1
}

// PixelCount is the number of logical pixels, or character cells for the
// character stream format.
func (d Descriptor) PixelCount() int {
	if d.CharStream {
		return Columns * Rows
	}
	return d.Width * d.Height
}

func (d Descriptor) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < d.Width && y < d.Height
}

// Family groups formats whose clipboard regions are interchangeable.
func (d Descriptor) Family() string {
	switch {
	case d.CharStream:
		return "chars"
	case d.ID == FormatGigascreen:
		return "dual-frame"
	case !d.HasAttributes():
		return fmt.Sprintf("planes%d", d.Channels)
	default:
		return fmt.Sprintf("attr%dx%d", d.CellWidth, d.CellHeight)
	}
}

// PlaneBase is the native offset of bitmap plane p.
func (d Descriptor) PlaneBase(p int) int { return p * d.PlaneStride }

// AttrBlockBase is the native offset of attribute block f.
func (d Descriptor) AttrBlockBase(f int) int { return f*d.PlaneStride + d.AttrBase }

var registry = map[FormatID]Descriptor{}

func register(d Descriptor) {
	registry[d.ID] = d
}

func init() {
	interleaved := Interleaved{}
	standardAttrs := CellRows{Height: 8}

	register(Descriptor{
		ID: FormatStandard, Name: "Standard", Extensions: []string{"scr"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 1, PlaneStride: ScreenSize,
		CellWidth: 8, CellHeight: 8, AttrBase: BitmapSize, AttrSize: AttrSize, AttrBanks: 1,
		FileSize:   ScreenSize,
		Addressing: interleaved, Attributes: standardAttrs,
	})
	register(Descriptor{
		ID: FormatBordered, Name: "Bordered", Extensions: []string{"bsc"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 1, PlaneStride: ScreenSize,
		CellWidth: 8, CellHeight: 8, AttrBase: BitmapSize, AttrSize: AttrSize, AttrBanks: 1,
		Border: &StandardBorder, BorderBase: ScreenSize,
		FileSize:   ScreenSize + StandardBorder.Size(),
		Addressing: interleaved, Attributes: standardAttrs,
	})
	register(Descriptor{
		ID: FormatMulticolor4, Name: "Multicolor 8x4", Extensions: []string{"mc4"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 1, PlaneStride: BitmapSize + 2*AttrSize,
		CellWidth: 8, CellHeight: 4, AttrBase: BitmapSize, AttrSize: 2 * AttrSize, AttrBanks: 2,
		FileSize:   BitmapSize + 2*AttrSize,
		Addressing: interleaved, Attributes: DualBank{},
	})
	register(Descriptor{
		ID: FormatMulticolor2, Name: "Multicolor 8x2", Extensions: []string{"mc2"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 1, PlaneStride: BitmapSize + 4*AttrSize,
		CellWidth: 8, CellHeight: 2, AttrBase: BitmapSize, AttrSize: 4 * AttrSize, AttrBanks: 1,
		FileSize:   BitmapSize + 4*AttrSize,
		Addressing: interleaved, Attributes: CellRows{Height: 2},
	})
	register(Descriptor{
		ID: FormatMulticolor1, Name: "Multicolor 8x1", Extensions: []string{"mlt"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 1, PlaneStride: 2 * BitmapSize,
		CellWidth: 8, CellHeight: 1, AttrBase: BitmapSize, AttrSize: 8 * AttrSize, AttrBanks: 1,
		FileSize:   2 * BitmapSize,
		Addressing: interleaved, Attributes: CellRows{Height: 1},
	})
	register(Descriptor{
		ID: FormatTricolor, Name: "Tri-channel RGB", Extensions: []string{"rgb", "3cl"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 3, PlaneStride: BitmapSize,
		FileSize:   3 * BitmapSize,
		Addressing: interleaved, Attributes: NoAttributes{},
	})
	register(Descriptor{
		ID: FormatULAPlus, Name: "Extended palette", Extensions: []string{"ulp"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 1, PlaneStride: ScreenSize + PaletteSize,
		CellWidth: 8, CellHeight: 8, AttrBase: BitmapSize, AttrSize: AttrSize, AttrBanks: 1,
		PaletteBase: ScreenSize, PaletteSize: PaletteSize,
		FileSize:   ScreenSize + PaletteSize,
		Addressing: interleaved, Attributes: standardAttrs,
	})
	register(Descriptor{
		ID: FormatGigascreen, Name: "Dual-frame", Extensions: []string{"img"},
		Width: ScreenWidth, Height: ScreenHeight,
		BitmapSize: BitmapSize, Channels: 2, PlaneStride: ScreenSize,
		CellWidth: 8, CellHeight: 8, AttrBase: BitmapSize, AttrSize: AttrSize, AttrBanks: 1,
		FileSize:   2 * ScreenSize,
		Addressing: interleaved, Attributes: standardAttrs,
	})
	register(Descriptor{
		ID: FormatCharStream, Name: "Character stream", Extensions: []string{"txt", "zxt"},
		Width: ScreenWidth, Height: ScreenHeight,
		CellWidth: 8, CellHeight: 8,
		CharStream: true, Compose: ComposeXOR,
		Addressing: NoBitmap{}, Attributes: standardAttrs,
	})
}

func Lookup(id FormatID) (Descriptor, error) {
	d, ok := registry[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: id %d", ErrUnknownFormat, id)
	}
	return d, nil
}

// MustLookup is Lookup for IDs known at compile time.
func MustLookup(id FormatID) Descriptor {
	d, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return d
}

func ByExtension(ext string) (Descriptor, error) {
	ext = strings.ToLower(strings.TrimLeft(ext, "."))
	for _, d := range registry {
		for _, e := range d.Extensions {
			if e == ext {
				return d, nil
			}
		}
	}
	return Descriptor{}, fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
}

// ByName accepts either a format name or one of its extensions.
func ByName(name string) (Descriptor, error) {
	for _, d := range registry {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return ByExtension(name)
}

// Formats returns every registered descriptor ordered by ID.
func Formats() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Detect picks a format for data loaded from name. The extension wins
// when it is known and the size agrees; otherwise the size alone decides.
func Detect(data []byte, name string) (Descriptor, error) {
	if ext := filepath.Ext(name); ext != "" {
		if d, err := ByExtension(ext); err == nil {
			if d.FileSize == 0 || d.FileSize == len(data) {
				return d, nil
			}
		}
	}
	for _, d := range Formats() {
		if d.FileSize != 0 && d.FileSize == len(data) {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s (%d bytes)", ErrUnknownFormat, name, len(data))
}

// CheckSize reports whether buf can back an image of format d.
func (d Descriptor) CheckSize(buf []byte) error {
	if d.FileSize == 0 {
		return nil
	}
	if len(buf) != d.FileSize {
		return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrSize, d.Name, d.FileSize, len(buf))
	}
	return nil
}
