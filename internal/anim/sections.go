package anim

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/schema"
)

// ErrSectionIndexOutOfRange is returned for frames past the end of an
// animation and for chunk indexes past the declared section table.
var ErrSectionIndexOutOfRange = errors.New("section index out of range")

// SectionParams describe how an animation's frames are split into chunks.
// Chunk 0 covers the first StaticFrames frames, each later chunk covers
// SectionFrames frames and the final frame gets a chunk of its own.
type SectionParams struct {
	NumFrames     uint32
	StaticFrames  uint32
	SectionFrames uint32
}

// ParamsOf returns the section parameters of a blend.
func ParamsOf(d *schema.BlendDesc) SectionParams {
	return SectionParams{
		NumFrames:     d.NumFrames,
		StaticFrames:  d.StaticFrames,
		SectionFrames: d.SectionFrames,
	}
}

// Chunked reports whether the animation uses a section table at all.
func (p SectionParams) Chunked() bool {
	return p.SectionFrames != 0
}

// SectionCount is the declared length of the section table.
func (p SectionParams) SectionCount() uint32 {
	if !p.Chunked() || p.NumFrames <= p.StaticFrames {
		return 1
	}
	return (p.NumFrames-p.StaticFrames-1)/p.SectionFrames + 3
}

// ChunkRef names the chunk holding a frame and the frame's index inside it.
type ChunkRef struct {
	Index      uint32
	LocalFrame uint32
}

// Locate maps a frame to its chunk.
func Locate(p SectionParams, frame uint32) (ChunkRef, error) {
	if frame >= p.NumFrames {
		return ChunkRef{}, fmt.Errorf("%w: frame %d of %d", ErrSectionIndexOutOfRange, frame, p.NumFrames)
	}
	if !p.Chunked() || frame < p.StaticFrames {
		return ChunkRef{Index: 0, LocalFrame: frame}, nil
	}

	var ref ChunkRef
	if frame == p.NumFrames-1 && p.NumFrames > p.StaticFrames {
		ref = ChunkRef{Index: (p.NumFrames-p.StaticFrames-1)/p.SectionFrames + 2}
	} else {
		rel := frame - p.StaticFrames
		ref = ChunkRef{
			Index:      rel/p.SectionFrames + 1,
			LocalFrame: rel - p.SectionFrames*(rel/p.SectionFrames),
		}
	}

	if ref.Index >= p.SectionCount() {
		return ChunkRef{}, fmt.Errorf("%w: chunk %d of %d", ErrSectionIndexOutOfRange, ref.Index, p.SectionCount())
	}
	return ref, nil
}

// ChunkKind says which store holds a chunk.
type ChunkKind int

const (
	ChunkInline ChunkKind = iota
	ChunkExternal
)

func (k ChunkKind) String() string {
	if k == ChunkExternal {
		return "external"
	}
	return "inline"
}

// ChunkAddress locates one chunk. Inline offsets are relative to the
// animation descriptor; external offsets are relative to the streaming
// base.
type ChunkAddress struct {
	Kind   ChunkKind
	Offset uint64
}

// Inline returns an address inside the container.
func Inline(offset uint64) ChunkAddress {
	return ChunkAddress{Kind: ChunkInline, Offset: offset}
}

// External returns an address inside the streaming file.
func External(offset uint64) ChunkAddress {
	return ChunkAddress{Kind: ChunkExternal, Offset: offset}
}

func (a ChunkAddress) String() string {
	return fmt.Sprintf("%s+0x%x", a.Kind, a.Offset)
}

// ReadChunkAddress returns where a chunk lives. Unchunked animations keep
// all their data at the descriptor's anim index and have no section table.
func ReadChunkAddress(c *rpak.Cursor, descAddr uint64, d *schema.BlendDesc, ref ChunkRef) (ChunkAddress, error) {
	p := ParamsOf(d)
	if !p.Chunked() {
		if d.AnimIndex < 0 {
			return ChunkAddress{}, fmt.Errorf("negative anim index %d", d.AnimIndex)
		}
		return Inline(uint64(d.AnimIndex)), nil
	}

	if ref.Index >= p.SectionCount() {
		return ChunkAddress{}, fmt.Errorf("%w: chunk %d of %d", ErrSectionIndexOutOfRange, ref.Index, p.SectionCount())
	}
	if d.SectionIndex < 0 {
		return ChunkAddress{}, fmt.Errorf("negative section index %d", d.SectionIndex)
	}

	entry := descAddr + uint64(d.SectionIndex) + d.SectionEntrySize()*uint64(ref.Index)
	if err := c.Seek(entry); err != nil {
		return ChunkAddress{}, fmt.Errorf("seeking to section entry %d: %w", ref.Index, err)
	}

	if d.Layout == schema.LayoutV16 {
		v, err := c.Int32()
		if err != nil {
			return ChunkAddress{}, fmt.Errorf("reading section entry %d: %w", ref.Index, err)
		}
		if v < 0 {
			return External(uint64(-int64(v)) - 1), nil
		}
		return Inline(uint64(v)), nil
	}

	offset, err := c.Uint32()
	if err != nil {
		return ChunkAddress{}, fmt.Errorf("reading section entry %d: %w", ref.Index, err)
	}
	external, err := c.Uint32()
	if err != nil {
		return ChunkAddress{}, fmt.Errorf("reading section entry %d: %w", ref.Index, err)
	}
	if external != 0 {
		return External(uint64(offset)), nil
	}
	return Inline(uint64(offset)), nil
}

type chunkKey struct {
	asset uint64
	blend uint32
	chunk uint32
}

// ChunkCache remembers chunk addresses so revisited sections skip the
// table read. A nil cache is valid and caches nothing.
type ChunkCache struct {
	lru *lru.Cache[chunkKey, ChunkAddress]
}

// NewChunkCache returns a cache holding up to size addresses, or nil when
// size is not positive.
func NewChunkCache(size int) (*ChunkCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[chunkKey, ChunkAddress](size)
	if err != nil {
		return nil, fmt.Errorf("creating chunk cache: %w", err)
	}
	return &ChunkCache{lru: c}, nil
}

func (c *ChunkCache) get(asset uint64, blend, chunk uint32) (ChunkAddress, bool) {
	if c == nil {
		return ChunkAddress{}, false
	}
	return c.lru.Get(chunkKey{asset, blend, chunk})
}

func (c *ChunkCache) add(asset uint64, blend, chunk uint32, addr ChunkAddress) {
	if c == nil {
		return
	}
	c.lru.Add(chunkKey{asset, blend, chunk}, addr)
}

// Len returns the number of cached addresses.
func (c *ChunkCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
