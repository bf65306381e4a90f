package rpak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// Magic is "RPak" read as a little-endian uint32.
	Magic uint32 = 0x6b615052

	// HeaderSize is the size of the uncompressed container header.
	HeaderSize = 0x80

	// FlagCompressed marks a container whose body is stored compressed
	// with the container codec.
	FlagCompressed uint16 = 0x1

	assetEntrySize = 0x50
)

// supportedContainerVersions is the closed set of container layouts.
var supportedContainerVersions = map[uint16]bool{
	8: true,
}

// FileHeader is the fixed container header.
type FileHeader struct {
	Magic                 uint32
	Version               uint16
	Flags                 uint16
	CreatedTime           uint64
	CRC                   uint64
	CompressedSize        uint64
	EmbeddedStarpakOffset uint64
	_                     uint64
	DecompressedSize      uint64
	EmbeddedStarpakSize   uint64
	_                     uint64
	StarpakPathsSize      uint16
	OptStarpakPathsSize   uint16
	VirtualSegmentCount   uint16
	PageCount             uint16
	PatchIndex            uint16
	Alignment             uint16
	DescriptorCount       uint32
	AssetCount            uint32
	GUIDDescriptorCount   uint32
	RelationCount         uint32
	_                     [28]byte
}

// Compressed reports whether the container body needs the codec.
func (h *FileHeader) Compressed() bool {
	return h.Flags&FlagCompressed != 0
}

type virtualSegment struct {
	Flags uint32
	Type  uint32
	Size  uint64
}

type pageHeader struct {
	Segment   uint32
	Alignment uint32
	Size      uint32
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

// Container is a loaded rpak file: its header, segment base table,
// streaming file references and asset table.
type Container struct {
	Path   string
	Header FileHeader

	starpaks    []string
	optStarpaks []string
	segments    []uint64
	assets      []*Asset

	// image holds the logical container bytes when the body had to be
	// decompressed. Uncompressed containers are read from disk per session.
	image []byte
	size  int64
}

// LoadContainer parses the container at path. Compressed bodies are
// decompressed with codec and kept in memory.
func LoadContainer(path string, codec Codec) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat container: %w", err)
	}

	return parseContainer(path, f, info.Size(), codec)
}

func parseContainer(path string, r io.ReaderAt, fileSize int64, codec Codec) (*Container, error) {
	c := &Container{Path: path, size: fileSize}

	rs := io.NewSectionReader(r, 0, fileSize)
	if err := binary.Read(rs, binary.LittleEndian, &c.Header); err != nil {
		return nil, fmt.Errorf("failed to read container header: %w", err)
	}

	h := &c.Header
	if h.Magic != Magic {
		return nil, fmt.Errorf("bad container magic 0x%08x", h.Magic)
	}
	if !supportedContainerVersions[h.Version] {
		return nil, fmt.Errorf("%w: container version %d", ErrUnsupportedVersion, h.Version)
	}

	var store Store = NewStore(r, fileSize)
	if h.Compressed() {
		if codec == nil {
			return nil, fmt.Errorf("container is compressed but no codec is configured")
		}
		if h.CompressedSize < HeaderSize || int64(h.CompressedSize) > fileSize {
			return nil, fmt.Errorf("compressed size %d does not fit file of %d bytes", h.CompressedSize, fileSize)
		}
		if h.DecompressedSize < HeaderSize {
			return nil, fmt.Errorf("decompressed size %d is smaller than the header", h.DecompressedSize)
		}
		if err := CheckDeclaredSize(h.CompressedSize-HeaderSize, h.DecompressedSize-HeaderSize); err != nil {
			return nil, fmt.Errorf("container body: %w", err)
		}

		cur := NewCursor(store)
		body, err := ReadCompressed(cur, HeaderSize, h.CompressedSize-HeaderSize, h.DecompressedSize-HeaderSize, codec)
		if err != nil {
			return nil, fmt.Errorf("decompressing container body: %w", err)
		}

		image := make([]byte, HeaderSize, h.DecompressedSize)
		if _, err := r.ReadAt(image, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading container header bytes: %w", err)
		}
		c.image = append(image, body...)
		c.size = int64(len(c.image))
		store = bytes.NewReader(c.image)

		slog.Debug("Container body decompressed",
			"path", path,
			"codec", codec.Name(),
			"compressed", h.CompressedSize,
			"decompressed", h.DecompressedSize)
	}

	if err := c.parseTables(NewCursor(store)); err != nil {
		return nil, fmt.Errorf("parsing container %s: %w", path, err)
	}

	return c, nil
}

func (c *Container) parseTables(cur *Cursor) error {
	h := &c.Header
	if err := cur.Seek(HeaderSize); err != nil {
		return err
	}

	paths, err := cur.Bytes(int(h.StarpakPathsSize))
	if err != nil {
		return fmt.Errorf("reading starpak paths: %w", err)
	}
	c.starpaks = readPathList(paths)

	paths, err = cur.Bytes(int(h.OptStarpakPathsSize))
	if err != nil {
		return fmt.Errorf("reading optimal starpak paths: %w", err)
	}
	c.optStarpaks = readPathList(paths)

	vsegs := make([]virtualSegment, h.VirtualSegmentCount)
	if err := cur.ReadStruct(vsegs); err != nil {
		return fmt.Errorf("reading virtual segments (count=%d): %w", h.VirtualSegmentCount, err)
	}

	pages := make([]pageHeader, h.PageCount)
	if err := cur.ReadStruct(pages); err != nil {
		return fmt.Errorf("reading pages (count=%d): %w", h.PageCount, err)
	}

	if err := cur.Skip(int64(h.DescriptorCount) * 8); err != nil {
		return fmt.Errorf("skipping descriptors: %w", err)
	}

	if uint64(h.AssetCount)*assetEntrySize > uint64(cur.Remaining()) {
		return fmt.Errorf("%w: %d asset entries at 0x%x", ErrOutOfBounds, h.AssetCount, cur.Pos())
	}
	entries := make([]assetEntry, h.AssetCount)
	if err := cur.ReadStruct(entries); err != nil {
		return fmt.Errorf("reading asset entries (count=%d): %w", h.AssetCount, err)
	}

	if err := cur.Skip(int64(h.GUIDDescriptorCount)*8 + int64(h.RelationCount)*4); err != nil {
		return fmt.Errorf("skipping relations: %w", err)
	}

	// page data follows the tables back to back, each page aligned
	base := cur.Pos()
	c.segments = make([]uint64, len(pages))
	for i, p := range pages {
		base = alignUp(base, uint64(p.Alignment))
		c.segments[i] = base
		base += uint64(p.Size)
	}
	if base > uint64(cur.Size()) {
		return fmt.Errorf("%w: page data ends at 0x%x past container end 0x%x", ErrOutOfBounds, base, cur.Size())
	}

	c.assets = make([]*Asset, len(entries))
	for i, e := range entries {
		c.assets[i] = &Asset{
			GUID:             e.GUID,
			SubHeader:        Pointer{Index: e.SubHeaderIndex, Offset: e.SubHeaderOffset},
			RawData:          Pointer{Index: e.RawDataIndex, Offset: e.RawDataOffset},
			StarpakOffset:    e.StarpakOffset,
			OptStarpakOffset: e.OptStarpakOffset,
			PageEnd:          e.PageEnd,
			SubHeaderSize:    e.SubHeaderSize,
			Version:          e.Version,
			Type:             AssetType(e.Type),
			container:        c,
		}
	}

	return nil
}

// Resolve maps a pointer to an absolute address in the container image.
func (c *Container) Resolve(p Pointer) (uint64, error) {
	if int(p.Index) >= len(c.segments) {
		return 0, fmt.Errorf("%w: pointer %s, container has %d segments", ErrInvalidSegment, p, len(c.segments))
	}
	return c.segments[p.Index] + uint64(p.Offset), nil
}

// Segments returns a copy of the segment base table.
func (c *Container) Segments() []uint64 {
	out := make([]uint64, len(c.segments))
	copy(out, c.segments)
	return out
}

// Assets returns the container's asset table in file order.
func (c *Container) Assets() []*Asset {
	return c.assets
}

// StarpakPaths returns the streaming file references of the given kind.
func (c *Container) StarpakPaths(kind StreamKind) []string {
	switch kind {
	case StreamStandard:
		return c.starpaks
	case StreamOptimal:
		return c.optStarpaks
	}
	return nil
}

// open returns a store over the logical container image. Compressed
// containers share their in-memory image; others get a fresh handle.
func (c *Container) open() (Store, io.Closer, error) {
	if c.image != nil {
		return bytes.NewReader(c.image), nil, nil
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening container %s: %w", c.Path, err)
	}
	return NewStore(f, c.size), f, nil
}

func readPathList(data []byte) []string {
	var paths []string
	for _, p := range strings.Split(string(data), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
