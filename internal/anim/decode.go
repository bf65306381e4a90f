package anim

import (
	"fmt"
	"log/slog"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/schema"
	"github.com/jchantrell/rpaktool/internal/skeleton"
)

// Source is where a blend's chunks are read from: the container holding
// the sequence and, for streamed sequences, the streaming payload.
type Source struct {
	Container *rpak.Cursor
	Stream    *rpak.Cursor
	// StreamBase is the payload's base address inside Stream.
	StreamBase uint64
}

// Blend identifies one animation descriptor of a sequence.
type Blend struct {
	Asset uint64
	Index uint32
	Addr  uint64
	Desc  *schema.BlendDesc
}

// Decoder turns blends into animations. A Decoder is not safe for
// concurrent use; give each worker its own.
type Decoder struct {
	Channels ChannelDecoder
	Cache    *ChunkCache
}

// NewDecoder returns a decoder using the default channel format.
func NewDecoder(cache *ChunkCache) *Decoder {
	return &Decoder{Channels: RLEDecoder{}, Cache: cache}
}

// DecodeBlend decodes every frame of a blend against a copy of bones and
// returns the pruned animation. Any failure discards the whole blend.
func (d *Decoder) DecodeBlend(src Source, blend Blend, bones []skeleton.Bone) (*Animation, error) {
	desc := blend.Desc
	if len(bones) > skeleton.MaxBones {
		return nil, fmt.Errorf("%w: %d bones, at most %d supported", ErrTooManyBones, len(bones), skeleton.MaxBones)
	}

	mode := Absolute
	if desc.Additive() {
		mode = Additive
	}
	a := NewAnimation(bones, mode)
	a.FrameRate = desc.Fps

	params := ParamsOf(desc)
	externalBase := src.StreamBase
	if desc.ExternalBase != 0 {
		externalBase = desc.ExternalBase
	}

	slog.Debug("Decoding blend",
		"asset", fmt.Sprintf("0x%x", blend.Asset),
		"blend", blend.Index,
		"frames", params.NumFrames,
		"static_frames", params.StaticFrames,
		"section_frames", params.SectionFrames,
		"sections", params.SectionCount(),
		"layout", desc.Layout)

	for frame := uint32(0); frame < params.NumFrames; frame++ {
		ref, err := Locate(params, frame)
		if err != nil {
			return nil, err
		}

		addr, err := d.chunkAddress(src.Container, blend, ref)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", frame, err)
		}

		cur, base := src.Container, blend.Addr
		if addr.Kind == ChunkExternal {
			if src.Stream == nil {
				return nil, fmt.Errorf("frame %d: %w: chunk %d is external but the sequence is not streamed", frame, rpak.ErrStreamingFileUnavailable, ref.Index)
			}
			cur, base = src.Stream, externalBase
		}

		f := Frame{Local: ref.LocalFrame, Global: frame}
		if err := DecodeChunk(cur, base+addr.Offset, len(bones), f, desc.Additive(), d.Channels, a); err != nil {
			return nil, fmt.Errorf("frame %d chunk %d (%s): %w", frame, ref.Index, addr, err)
		}
	}

	a.PruneEmpty()
	return a, nil
}

func (d *Decoder) chunkAddress(c *rpak.Cursor, blend Blend, ref ChunkRef) (ChunkAddress, error) {
	if addr, ok := d.Cache.get(blend.Asset, blend.Index, ref.Index); ok {
		return addr, nil
	}
	addr, err := ReadChunkAddress(c, blend.Addr, blend.Desc, ref)
	if err != nil {
		return ChunkAddress{}, err
	}
	d.Cache.add(blend.Asset, blend.Index, ref.Index, addr)
	return addr, nil
}
