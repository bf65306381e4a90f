// Package rpaktest builds small containers and streaming files for tests.
package rpaktest

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/jchantrell/rpaktool/internal/rpak"
)

const pageAlignment = 8

// LE encodes fixed-size values little-endian, back to back.
func LE(values ...any) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// Page is one segment of the container under construction.
type Page struct {
	index uint32
	buf   bytes.Buffer
}

// Index returns the page's segment index.
func (p *Page) Index() uint32 {
	return p.index
}

// Len returns the number of bytes written so far.
func (p *Page) Len() uint32 {
	return uint32(p.buf.Len())
}

// Append writes data at the end of the page and returns a pointer to it.
func (p *Page) Append(data []byte) rpak.Pointer {
	ptr := rpak.Pointer{Index: p.index, Offset: p.Len()}
	p.buf.Write(data)
	return ptr
}

// AppendString writes a NUL-terminated string.
func (p *Page) AppendString(s string) rpak.Pointer {
	return p.Append(append([]byte(s), 0))
}

// Reserve appends n zero bytes to be patched later.
func (p *Page) Reserve(n int) rpak.Pointer {
	return p.Append(make([]byte, n))
}

// Patch overwrites bytes previously written at ptr.
func (p *Page) Patch(ptr rpak.Pointer, data []byte) {
	copy(p.buf.Bytes()[ptr.Offset:], data)
}

// Asset is an asset table entry.
type Asset struct {
	GUID             uint64
	Type             rpak.AssetType
	Version          uint32
	SubHeader        rpak.Pointer
	SubHeaderSize    uint32
	RawData          rpak.Pointer
	StarpakOffset    uint64
	OptStarpakOffset uint64
}

type assetEntry struct {
	GUID             uint64
	_                uint64
	SubHeaderIndex   uint32
	SubHeaderOffset  uint32
	RawDataIndex     uint32
	RawDataOffset    uint32
	StarpakOffset    uint64
	OptStarpakOffset uint64
	PageEnd          uint16
	_                uint16
	RelationsStart   uint32
	UsesStart        uint32
	RelationCount    uint32
	UsesCount        uint32
	SubHeaderSize    uint32
	Version          uint32
	Type             uint32
}

// Builder assembles a version 8 container.
type Builder struct {
	Version         uint16
	StarpakPaths    []string
	OptStarpakPaths []string

	// Compress, when set, compresses the body and marks the container as
	// compressed.
	Compress func(body []byte) []byte

	pages  []*Page
	assets []Asset
}

// NewBuilder returns a builder for an empty container.
func NewBuilder() *Builder {
	return &Builder{Version: 8}
}

// NewPage adds a segment.
func (b *Builder) NewPage() *Page {
	p := &Page{index: uint32(len(b.pages))}
	b.pages = append(b.pages, p)
	return p
}

// AddAsset appends an asset table entry. Unset streaming offsets mean
// "not streamed".
func (b *Builder) AddAsset(a Asset) {
	if a.StarpakOffset == 0 {
		a.StarpakOffset = rpak.NotStreamed
	}
	if a.OptStarpakOffset == 0 {
		a.OptStarpakOffset = rpak.NotStreamed
	}
	b.assets = append(b.assets, a)
}

// Build returns the encoded container.
func (b *Builder) Build() []byte {
	var body bytes.Buffer
	starpaks := pathBlock(b.StarpakPaths)
	optStarpaks := pathBlock(b.OptStarpakPaths)
	body.Write(starpaks)
	body.Write(optStarpaks)

	var total uint64
	for _, p := range b.pages {
		total += uint64(p.Len())
	}
	body.Write(LE(uint32(0), uint32(0), total))

	for _, p := range b.pages {
		body.Write(LE(uint32(0), uint32(pageAlignment), p.Len()))
	}

	for _, a := range b.assets {
		body.Write(LE(&assetEntry{
			GUID:             a.GUID,
			SubHeaderIndex:   a.SubHeader.Index,
			SubHeaderOffset:  a.SubHeader.Offset,
			RawDataIndex:     a.RawData.Index,
			RawDataOffset:    a.RawData.Offset,
			StarpakOffset:    a.StarpakOffset,
			OptStarpakOffset: a.OptStarpakOffset,
			SubHeaderSize:    a.SubHeaderSize,
			Version:          a.Version,
			Type:             uint32(a.Type),
		}))
	}

	for _, p := range b.pages {
		for (rpak.HeaderSize+body.Len())%pageAlignment != 0 {
			body.WriteByte(0)
		}
		body.Write(p.buf.Bytes())
	}

	h := rpak.FileHeader{
		Magic:               rpak.Magic,
		Version:             b.Version,
		StarpakPathsSize:    uint16(len(starpaks)),
		OptStarpakPathsSize: uint16(len(optStarpaks)),
		VirtualSegmentCount: 1,
		PageCount:           uint16(len(b.pages)),
		AssetCount:          uint32(len(b.assets)),
		DecompressedSize:    uint64(rpak.HeaderSize + body.Len()),
	}

	payload := body.Bytes()
	if b.Compress != nil {
		payload = b.Compress(payload)
		h.Flags |= rpak.FlagCompressed
	}
	h.CompressedSize = uint64(rpak.HeaderSize + len(payload))

	var out bytes.Buffer
	out.Write(LE(&h))
	out.Write(payload)
	return out.Bytes()
}

// WriteFile builds the container and writes it to path.
func (b *Builder) WriteFile(path string) error {
	return os.WriteFile(path, b.Build(), 0o644)
}

func pathBlock(paths []string) []byte {
	var buf bytes.Buffer
	for _, p := range paths {
		buf.WriteString(p)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// Starpak assembles a streaming file.
type Starpak struct {
	buf bytes.Buffer
}

// NewStarpak returns a streaming file holding only its header.
func NewStarpak() *Starpak {
	s := &Starpak{}
	s.buf.Write(LE(rpak.StarpakMagic, uint32(1)))
	return s
}

// AppendAligned pads to a 256 byte boundary, writes data and returns the
// offset it was written at. The low byte of the offset is zero so it can
// be stored as an asset streaming offset.
func (s *Starpak) AppendAligned(data []byte) uint64 {
	for s.buf.Len()%0x100 != 0 {
		s.buf.WriteByte(0)
	}
	return s.Append(data)
}

// Append writes data without padding and returns its offset.
func (s *Starpak) Append(data []byte) uint64 {
	off := uint64(s.buf.Len())
	s.buf.Write(data)
	return off
}

// Len returns the current file size.
func (s *Starpak) Len() uint64 {
	return uint64(s.buf.Len())
}

// WriteFile writes the streaming file to path.
func (s *Starpak) WriteFile(path string) error {
	return os.WriteFile(path, s.buf.Bytes(), 0o644)
}
