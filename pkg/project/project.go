package project

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/pbkdf2"

	"zxpaint/internal/editor"
	"zxpaint/internal/layer"
	"zxpaint/pkg/scr"
)

const (
	MagicString      = "ZXPaintLayeredScreen"
	VersionV1        = uint16(1)
	FlagRandomAccess = uint16(1 << 0)

	magicSize   = len(MagicString)
	headerSize  = magicSize + 2 + 2 + 8 + 4
	tocEntSize  = 8 + 1 + 8 + 4 + 4
	metaBlockID = uint64(0)
	baseBlockID = uint64(1)

	secureMagic      = "ZXPAINT_SECURE"
	secureVersionV1  = uint16(1)
	secureFlagComp   = uint16(1 << 0)
	secureFlagEnc    = uint16(1 << 1)
	secureSaltSize   = 16
	secureNonceSize  = 12
	secureHeaderSize = len(secureMagic) + 2 + 2 + secureSaltSize + secureNonceSize + 8
	kdfIterations    = 200000
)

type EncryptionOptions struct {
	Enabled  bool
	Password string
}

type SaveOptions struct {
	Compression bool
	Encryption  EncryptionOptions
}

type LoadOptions struct {
	Password string
}

type EnvelopeInfo struct {
	Wrapped     bool
	Compressed  bool
	Encrypted   bool
	EnvelopeVer uint16
}

type BlockKind uint8

const (
	BlockKindMetadata BlockKind = 0
	BlockKindBase     BlockKind = 1
	BlockKindLayer    BlockKind = 2
)

// Project is a saved editing session: the committed native buffer plus,
// when layering was on, every layer and the active index.
type Project struct {
	Metadata  Metadata
	Committed []byte
	Layers    []*layer.Layer
	Active    int
}

type Metadata struct {
	Format       scr.FormatID
	Author       string
	Title        string
	CreatedUnix  int64
	ModifiedUnix int64
}

type LayoutSegment struct {
	Name    string
	Kind    BlockKind
	BlockID uint64
	Offset  uint64
	Length  uint32
}

type LayoutInfo struct {
	HeaderLength uint32
	IndexOffset  uint64
	IndexLength  uint32
	FileSize     uint64
	Segments     []LayoutSegment
}

type tocEntry struct {
	ID     uint64
	Kind   BlockKind
	Offset uint64
	Length uint32
	CRC32  uint32
}

type encodeResult struct {
	Blob      []byte
	Entries   []tocEntry
	TOCOffset uint64
	TOCLength uint32
}

type payloadEntry struct {
	ID      uint64
	Kind    BlockKind
	Payload []byte
}

var (
	ErrInvalidMagic      = errors.New("project: invalid magic")
	ErrUnsupportedVer    = errors.New("project: unsupported version")
	ErrMissingRandomFlag = errors.New("project: random-access flag required")
	ErrInvalidTOC        = errors.New("project: invalid toc")
	ErrInvalidBlockRange = errors.New("project: invalid block range")
	ErrOverlappingBlocks = errors.New("project: overlapping block ranges")
	ErrPasswordRequired  = errors.New("project: password required")
	ErrInvalidPassword   = errors.New("project: invalid password")
	ErrInvalidSecureFile = errors.New("project: invalid secure file")
	ErrMalformedBlock    = errors.New("project: malformed block")
)

func New(format scr.FormatID, author, title string) *Project {
	now := time.Now().Unix()
	return &Project{Metadata: Metadata{
		Format:       format,
		Author:       author,
		Title:        title,
		CreatedUnix:  now,
		ModifiedUnix: now,
	}}
}

// FromImage captures img. The project shares no storage with it.
func FromImage(img *editor.Image, author, title string) *Project {
	p := New(img.Format().ID, author, title)
	p.Committed = img.Bytes()
	if s := img.Layers(); s != nil {
		for _, l := range s.Layers() {
			p.Layers = append(p.Layers, l.Clone())
		}
		p.Active = s.Active()
	}
	return p
}

// Image rebuilds an editable image, layered when the project has layers.
func (p *Project) Image() (*editor.Image, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	d := scr.MustLookup(p.Metadata.Format)
	img, err := editor.OpenImage(d, p.Committed)
	if err != nil {
		return nil, err
	}
	if len(p.Layers) == 0 {
		return img, nil
	}
	layers := make([]*layer.Layer, len(p.Layers))
	for i, l := range p.Layers {
		layers[i] = l.Clone()
	}
	s, err := layer.FromLayers(d, layers, p.Active)
	if err != nil {
		return nil, err
	}
	if err := img.SetLayers(s); err != nil {
		return nil, err
	}
	return img, nil
}

func Save(path string, p *Project) error {
	return SaveWithOptions(path, p, SaveOptions{})
}

func SaveWithOptions(path string, p *Project, opts SaveOptions) error {
	if p == nil {
		return errors.New("project: project is nil")
	}
	now := time.Now().Unix()
	if p.Metadata.CreatedUnix == 0 {
		p.Metadata.CreatedUnix = now
	}
	p.Metadata.ModifiedUnix = now

	if err := Validate(p); err != nil {
		return err
	}

	res, err := encodeProjectDetailed(p)
	if err != nil {
		return err
	}
	blob := res.Blob

	if opts.Compression {
		blob, err = compressBytes(blob)
		if err != nil {
			return err
		}
	}

	if opts.Encryption.Enabled {
		if strings.TrimSpace(opts.Encryption.Password) == "" {
			return ErrPasswordRequired
		}
	}

	if opts.Compression || opts.Encryption.Enabled {
		blob, err = encodeSecureEnvelope(blob, opts)
		if err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Load(path string) (*Project, error) {
	return LoadWithOptions(path, LoadOptions{})
}

func LoadWithOptions(path string, opts LoadOptions) (*Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isSecureEnvelope(b) {
		b, err = decodeSecureEnvelope(b, opts)
		if err != nil {
			return nil, err
		}
	}
	p, err := decodeProject(b)
	if err != nil {
		return nil, err
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// IsProject reports whether b starts like a project file, plain or
// wrapped.
func IsProject(b []byte) bool {
	return isSecureEnvelope(b) || len(b) >= magicSize && string(b[:magicSize]) == MagicString
}

func InspectEnvelope(path string) (EnvelopeInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return inspectEnvelopeBytes(b)
}

func InspectLayout(p *Project) (*LayoutInfo, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	res, err := encodeProjectDetailed(p)
	if err != nil {
		return nil, err
	}

	segments := []LayoutSegment{{
		Name:    "Header",
		Kind:    BlockKindMetadata,
		BlockID: metaBlockID,
		Offset:  0,
		Length:  uint32(headerSize),
	}, {
		Name:    "Index",
		Kind:    BlockKindMetadata,
		BlockID: metaBlockID,
		Offset:  res.TOCOffset,
		Length:  res.TOCLength,
	}}
	for _, e := range res.Entries {
		name := "Block"
		switch e.Kind {
		case BlockKindMetadata:
			name = "Metadata"
		case BlockKindBase:
			name = "Committed Buffer"
		case BlockKindLayer:
			name = fmt.Sprintf("Layer %d", e.ID-baseBlockID-1)
		}
		segments = append(segments, LayoutSegment{
			Name:    name,
			Kind:    e.Kind,
			BlockID: e.ID,
			Offset:  e.Offset,
			Length:  e.Length,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Offset < segments[j].Offset })
	return &LayoutInfo{
		HeaderLength: uint32(headerSize),
		IndexOffset:  res.TOCOffset,
		IndexLength:  res.TOCLength,
		FileSize:     uint64(len(res.Blob)),
		Segments:     segments,
	}, nil
}

func Validate(p *Project) error {
	if p == nil {
		return errors.New("project: project is nil")
	}
	if !utf8.ValidString(p.Metadata.Author) || !utf8.ValidString(p.Metadata.Title) {
		return errors.New("project: metadata fields must be valid UTF-8")
	}
	d, err := scr.Lookup(p.Metadata.Format)
	if err != nil {
		return err
	}
	if err := d.CheckSize(p.Committed); err != nil {
		return err
	}
	if d.CharStream && len(p.Layers) == 0 {
		return fmt.Errorf("project: %s needs at least one layer", d.Name)
	}
	seen := map[uuid.UUID]struct{}{}
	for i, l := range p.Layers {
		if err := l.Validate(d); err != nil {
			return fmt.Errorf("project: layer %d: %w", i, err)
		}
		if _, ok := seen[l.ID]; ok {
			return fmt.Errorf("project: duplicate layer id %s", l.ID)
		}
		seen[l.ID] = struct{}{}
		if !utf8.ValidString(l.Name) {
			return fmt.Errorf("project: layer %d name is not valid UTF-8", i)
		}
	}
	if len(p.Layers) > 0 && (p.Active < 0 || p.Active >= len(p.Layers)) {
		return fmt.Errorf("project: active layer %d out of range", p.Active)
	}
	return nil
}

func encodeProject(p *Project) ([]byte, error) {
	res, err := encodeProjectDetailed(p)
	if err != nil {
		return nil, err
	}
	return res.Blob, nil
}

func encodeProjectDetailed(p *Project) (*encodeResult, error) {
	payloads := make([]payloadEntry, 0, len(p.Layers)+2)
	payloads = append(payloads, payloadEntry{
		ID:      metaBlockID,
		Kind:    BlockKindMetadata,
		Payload: encodeMetadata(p.Metadata, p.Active),
	})
	payloads = append(payloads, payloadEntry{
		ID:      baseBlockID,
		Kind:    BlockKindBase,
		Payload: append([]byte(nil), p.Committed...),
	})
	for i, l := range p.Layers {
		payload, err := encodeLayer(l)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payloadEntry{
			ID:      baseBlockID + 1 + uint64(i),
			Kind:    BlockKindLayer,
			Payload: payload,
		})
	}

	tocOffset := uint64(headerSize)
	tocLength := uint32(len(payloads) * tocEntSize)
	out := make([]byte, headerSize+int(tocLength))
	copy(out[:magicSize], []byte(MagicString))

	entries := make([]tocEntry, 0, len(payloads))
	offset := uint64(len(out))
	for _, pl := range payloads {
		entries = append(entries, tocEntry{
			ID:     pl.ID,
			Kind:   pl.Kind,
			Offset: offset,
			Length: uint32(len(pl.Payload)),
			CRC32:  crc32.ChecksumIEEE(pl.Payload),
		})
		out = append(out, pl.Payload...)
		offset += uint64(len(pl.Payload))
	}

	ptr := headerSize
	for _, e := range entries {
		binary.LittleEndian.PutUint64(out[ptr:ptr+8], e.ID)
		out[ptr+8] = byte(e.Kind)
		binary.LittleEndian.PutUint64(out[ptr+9:ptr+17], e.Offset)
		binary.LittleEndian.PutUint32(out[ptr+17:ptr+21], e.Length)
		binary.LittleEndian.PutUint32(out[ptr+21:ptr+25], e.CRC32)
		ptr += tocEntSize
	}

	h := magicSize
	binary.LittleEndian.PutUint16(out[h:h+2], VersionV1)
	binary.LittleEndian.PutUint16(out[h+2:h+4], FlagRandomAccess)
	binary.LittleEndian.PutUint64(out[h+4:h+12], tocOffset)
	binary.LittleEndian.PutUint32(out[h+12:h+16], uint32(len(entries)))
	return &encodeResult{Blob: out, Entries: entries, TOCOffset: tocOffset, TOCLength: tocLength}, nil
}

func decodeProject(blob []byte) (*Project, error) {
	if len(blob) < headerSize {
		return nil, ErrInvalidMagic
	}
	if string(blob[:magicSize]) != MagicString {
		return nil, ErrInvalidMagic
	}
	h := magicSize
	if v := binary.LittleEndian.Uint16(blob[h : h+2]); v != VersionV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVer, v)
	}
	if flags := binary.LittleEndian.Uint16(blob[h+2 : h+4]); flags&FlagRandomAccess == 0 {
		return nil, ErrMissingRandomFlag
	}
	tocOffset := binary.LittleEndian.Uint64(blob[h+4 : h+12])
	tocCount := binary.LittleEndian.Uint32(blob[h+12 : h+16])
	if tocOffset > uint64(len(blob)) {
		return nil, ErrInvalidTOC
	}
	end := tocOffset + uint64(tocCount)*uint64(tocEntSize)
	if end > uint64(len(blob)) {
		return nil, ErrInvalidTOC
	}

	entries := make([]tocEntry, 0, tocCount)
	ptr := int(tocOffset)
	for i := 0; i < int(tocCount); i++ {
		entries = append(entries, tocEntry{
			ID:     binary.LittleEndian.Uint64(blob[ptr : ptr+8]),
			Kind:   BlockKind(blob[ptr+8]),
			Offset: binary.LittleEndian.Uint64(blob[ptr+9 : ptr+17]),
			Length: binary.LittleEndian.Uint32(blob[ptr+17 : ptr+21]),
			CRC32:  binary.LittleEndian.Uint32(blob[ptr+21 : ptr+25]),
		})
		ptr += tocEntSize
	}
	if err := validateEntryRanges(entries, len(blob)); err != nil {
		return nil, err
	}

	p := &Project{}
	var sawMeta bool
	layers := map[uint64]*layer.Layer{}
	for _, e := range entries {
		start := int(e.Offset)
		stop := start + int(e.Length)
		payload := blob[start:stop]
		if crc32.ChecksumIEEE(payload) != e.CRC32 {
			return nil, fmt.Errorf("project: crc mismatch for block %d", e.ID)
		}
		switch e.Kind {
		case BlockKindMetadata:
			m, active, err := decodeMetadata(payload)
			if err != nil {
				return nil, err
			}
			p.Metadata, p.Active, sawMeta = m, active, true
		case BlockKindBase:
			p.Committed = append([]byte(nil), payload...)
		case BlockKindLayer:
			l, err := decodeLayer(payload)
			if err != nil {
				return nil, fmt.Errorf("project: layer block %d: %w", e.ID, err)
			}
			layers[e.ID] = l
		default:
			// Forward compatible: unknown kinds remain skippable via TOC.
		}
	}
	if !sawMeta {
		return nil, fmt.Errorf("%w: no metadata", ErrMalformedBlock)
	}
	ids := make([]uint64, 0, len(layers))
	for id := range layers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p.Layers = append(p.Layers, layers[id])
	}
	return p, nil
}

func validateEntryRanges(entries []tocEntry, fileLen int) error {
	type rng struct{ start, end uint64 }
	ranges := make([]rng, 0, len(entries))
	for _, e := range entries {
		if e.Offset > uint64(fileLen) {
			return ErrInvalidBlockRange
		}
		end := e.Offset + uint64(e.Length)
		if end > uint64(fileLen) {
			return ErrInvalidBlockRange
		}
		ranges = append(ranges, rng{start: e.Offset, end: end})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	for i := 1; i < len(ranges); i++ {
		if ranges[i].start < ranges[i-1].end {
			return ErrOverlappingBlocks
		}
	}
	return nil
}

func encodeMetadata(m Metadata, active int) []byte {
	out := make([]byte, 0, 64)
	out = append(out, byte(m.Format))
	out = appendString(out, m.Author)
	out = appendString(out, m.Title)
	out = appendI64(out, m.CreatedUnix)
	out = appendI64(out, m.ModifiedUnix)
	out = appendU32(out, uint32(active))
	return out
}

func decodeMetadata(b []byte) (Metadata, int, error) {
	var m Metadata
	var ok bool
	if len(b) < 1 {
		return m, 0, fmt.Errorf("%w: metadata format", ErrMalformedBlock)
	}
	m.Format = scr.FormatID(b[0])
	b = b[1:]
	if m.Author, b, ok = readString(b); !ok {
		return m, 0, fmt.Errorf("%w: metadata author", ErrMalformedBlock)
	}
	if m.Title, b, ok = readString(b); !ok {
		return m, 0, fmt.Errorf("%w: metadata title", ErrMalformedBlock)
	}
	if len(b) < 20 {
		return m, 0, fmt.Errorf("%w: metadata timestamps", ErrMalformedBlock)
	}
	m.CreatedUnix = int64(binary.LittleEndian.Uint64(b[:8]))
	m.ModifiedUnix = int64(binary.LittleEndian.Uint64(b[8:16]))
	active := int(binary.LittleEndian.Uint32(b[16:20]))
	return m, active, nil
}

const (
	layerFlagVisible = 1 << 0
	layerFlagAttrs   = 1 << 1
)

func encodeLayer(l *layer.Layer) ([]byte, error) {
	id, err := l.ID.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 16+len(l.Bitmap)+len(l.Attrs)+len(l.Mask)/8+64)
	out = append(out, id...)
	out = appendString(out, l.Name)
	flags := byte(0)
	if l.Visible {
		flags |= layerFlagVisible
	}
	if l.Attrs != nil {
		flags |= layerFlagAttrs
	}
	out = append(out, flags)
	out = appendBytes(out, l.Bitmap)
	out = appendBytes(out, l.Attrs)
	out = appendBools(out, l.Mask)
	out = appendBytes(out, l.Border)
	out = appendBools(out, l.BorderMask)
	out = appendU32(out, uint32(len(l.Cells)))
	for _, c := range l.Cells {
		inv := byte(0)
		if c.Inverse {
			inv = 1
		}
		out = append(out, c.Code, byte(c.Attr), inv)
	}
	return out, nil
}

func decodeLayer(b []byte) (*layer.Layer, error) {
	if len(b) < 16 {
		return nil, fmt.Errorf("%w: layer id", ErrMalformedBlock)
	}
	id, err := uuid.FromBytes(b[:16])
	if err != nil {
		return nil, err
	}
	l := &layer.Layer{ID: id}
	b = b[16:]
	var ok bool
	if l.Name, b, ok = readString(b); !ok || len(b) < 1 {
		return nil, fmt.Errorf("%w: layer name", ErrMalformedBlock)
	}
	flags := b[0]
	b = b[1:]
	l.Visible = flags&layerFlagVisible != 0
	if l.Bitmap, b, ok = readBytes(b); !ok {
		return nil, fmt.Errorf("%w: layer bitmap", ErrMalformedBlock)
	}
	if l.Attrs, b, ok = readBytes(b); !ok {
		return nil, fmt.Errorf("%w: layer attributes", ErrMalformedBlock)
	}
	if flags&layerFlagAttrs == 0 {
		l.Attrs = nil
	}
	if l.Mask, b, ok = readBools(b); !ok {
		return nil, fmt.Errorf("%w: layer mask", ErrMalformedBlock)
	}
	if l.Border, b, ok = readBytes(b); !ok {
		return nil, fmt.Errorf("%w: layer border", ErrMalformedBlock)
	}
	if l.BorderMask, b, ok = readBools(b); !ok {
		return nil, fmt.Errorf("%w: layer border mask", ErrMalformedBlock)
	}
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: layer cells", ErrMalformedBlock)
	}
	n := int(binary.LittleEndian.Uint32(b[:4]))
	b = b[4:]
	if len(b) != 3*n {
		return nil, fmt.Errorf("%w: layer cells", ErrMalformedBlock)
	}
	if n > 0 {
		l.Cells = make([]scr.Cell, n)
		for i := range l.Cells {
			l.Cells[i] = scr.Cell{Code: b[3*i], Attr: scr.Attr(b[3*i+1]), Inverse: b[3*i+2] != 0}
		}
	}
	if len(l.Bitmap) == 0 {
		l.Bitmap = nil
	}
	if len(l.Border) == 0 {
		l.Border, l.BorderMask = nil, nil
	}
	return l, nil
}

func appendString(dst []byte, s string) []byte {
	dst = appendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

func readString(src []byte) (string, []byte, bool) {
	b, rest, ok := readBytes(src)
	return string(b), rest, ok
}

func appendBytes(dst []byte, b []byte) []byte {
	dst = appendU32(dst, uint32(len(b)))
	return append(dst, b...)
}

func readBytes(src []byte) ([]byte, []byte, bool) {
	if len(src) < 4 {
		return nil, nil, false
	}
	ln := int(binary.LittleEndian.Uint32(src[:4]))
	src = src[4:]
	if len(src) < ln {
		return nil, nil, false
	}
	return append([]byte(nil), src[:ln]...), src[ln:], true
}

// appendBools packs a flag slice MSB first behind its entry count.
func appendBools(dst []byte, v []bool) []byte {
	dst = appendU32(dst, uint32(len(v)))
	packed := make([]byte, (len(v)+7)/8)
	for i, on := range v {
		if on {
			packed[i/8] |= 0x80 >> (i % 8)
		}
	}
	return append(dst, packed...)
}

func readBools(src []byte) ([]bool, []byte, bool) {
	if len(src) < 4 {
		return nil, nil, false
	}
	n := int(binary.LittleEndian.Uint32(src[:4]))
	src = src[4:]
	size := (n + 7) / 8
	if len(src) < size {
		return nil, nil, false
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = src[i/8]&(0x80>>(i%8)) != 0
	}
	return out, src[size:], true
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func appendI64(dst []byte, v int64) []byte {
	return appendU64(dst, uint64(v))
}

func isSecureEnvelope(b []byte) bool {
	return len(b) >= len(secureMagic) && string(b[:len(secureMagic)]) == secureMagic
}

func inspectEnvelopeBytes(b []byte) (EnvelopeInfo, error) {
	info := EnvelopeInfo{}
	if !isSecureEnvelope(b) {
		return info, nil
	}
	if len(b) < secureHeaderSize {
		return info, ErrInvalidSecureFile
	}
	version := binary.LittleEndian.Uint16(b[len(secureMagic) : len(secureMagic)+2])
	if version != secureVersionV1 {
		return info, fmt.Errorf("%w: secure envelope version %d", ErrUnsupportedVer, version)
	}
	flags := binary.LittleEndian.Uint16(b[len(secureMagic)+2 : len(secureMagic)+4])
	info.Wrapped = true
	info.Compressed = flags&secureFlagComp != 0
	info.Encrypted = flags&secureFlagEnc != 0
	info.EnvelopeVer = version
	return info, nil
}

func deriveGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encodeSecureEnvelope(payload []byte, opts SaveOptions) ([]byte, error) {
	flags := uint16(0)
	if opts.Compression {
		flags |= secureFlagComp
	}
	if opts.Encryption.Enabled {
		flags |= secureFlagEnc
	}

	salt := make([]byte, secureSaltSize)
	nonce := make([]byte, secureNonceSize)
	if opts.Encryption.Enabled {
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, err
		}
		gcm, err := deriveGCM(opts.Encryption.Password, salt)
		if err != nil {
			return nil, err
		}
		payload = gcm.Seal(nil, nonce, payload, nil)
	}

	m := len(secureMagic)
	out := make([]byte, secureHeaderSize)
	copy(out[:m], []byte(secureMagic))
	binary.LittleEndian.PutUint16(out[m:m+2], secureVersionV1)
	binary.LittleEndian.PutUint16(out[m+2:m+4], flags)
	copy(out[m+4:m+4+secureSaltSize], salt)
	copy(out[m+4+secureSaltSize:m+4+secureSaltSize+secureNonceSize], nonce)
	binary.LittleEndian.PutUint64(out[m+4+secureSaltSize+secureNonceSize:], uint64(len(payload)))
	out = append(out, payload...)
	return out, nil
}

func decodeSecureEnvelope(b []byte, opts LoadOptions) ([]byte, error) {
	info, err := inspectEnvelopeBytes(b)
	if err != nil {
		return nil, err
	}
	if !info.Wrapped {
		return nil, ErrInvalidSecureFile
	}
	m := len(secureMagic)
	salt := append([]byte(nil), b[m+4:m+4+secureSaltSize]...)
	nonce := append([]byte(nil), b[m+4+secureSaltSize:m+4+secureSaltSize+secureNonceSize]...)
	payloadLen := binary.LittleEndian.Uint64(b[m+4+secureSaltSize+secureNonceSize:])
	if uint64(len(b)-secureHeaderSize) != payloadLen {
		return nil, ErrInvalidSecureFile
	}
	payload := append([]byte(nil), b[secureHeaderSize:]...)

	if info.Encrypted {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, ErrPasswordRequired
		}
		gcm, err := deriveGCM(opts.Password, salt)
		if err != nil {
			return nil, err
		}
		payload, err = gcm.Open(nil, nonce, payload, nil)
		if err != nil {
			return nil, ErrInvalidPassword
		}
	}

	if info.Compressed {
		payload, err = decompressBytes(payload)
		if err != nil {
			return nil, err
		}
	}

	return payload, nil
}

func compressBytes(in []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, make([]byte, 0, len(in)/2)), nil
}

func decompressBytes(in []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(in, nil)
	if err != nil {
		return nil, fmt.Errorf("project: decompress: %w", err)
	}
	return out, nil
}
