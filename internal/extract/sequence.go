package extract

import (
	"fmt"
	"log/slog"

	"github.com/jchantrell/rpaktool/internal/anim"
	"github.com/jchantrell/rpaktool/internal/export"
	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/schema"
	"github.com/jchantrell/rpaktool/internal/skeleton"
)

// sequence is a parsed sequence asset.
type sequence struct {
	header *schema.SeqHeader
	name   string
	addr   uint64
	desc   *schema.SeqDesc
}

func parseSequence(c *rpak.Cursor, a *rpak.Asset) (*sequence, error) {
	if a.Type != rpak.TypeAnimSeq {
		return nil, fmt.Errorf("%w: %s is not a sequence", ErrUnsupportedType, a)
	}
	addr, err := a.Resolve(a.SubHeader)
	if err != nil {
		return nil, fmt.Errorf("resolving sequence header: %w", err)
	}
	h, err := schema.ParseSeqHeader(c, addr, a.Version, a.SubHeaderSize)
	if err != nil {
		return nil, err
	}

	s := &sequence{header: h}
	if s.name, err = readName(c, a, h.Name); err != nil {
		return nil, fmt.Errorf("reading sequence name: %w", err)
	}
	if s.addr, err = a.Resolve(h.Animation); err != nil {
		return nil, fmt.Errorf("resolving sequence descriptor: %w", err)
	}
	if s.desc, err = schema.ParseSeqDesc(c, s.addr, a.Version); err != nil {
		return nil, err
	}
	return s, nil
}

// exportSequence writes every exportable blend of a sequence into dir.
func (j *job) exportSequence(a *rpak.Asset, bones []skeleton.Bone, dir string) SequenceResult {
	sr := SequenceResult{Hash: a.GUID}

	c, err := j.session.Cursor(a)
	if err != nil {
		sr.Err = err
		return sr
	}
	seq, err := parseSequence(c, a)
	if err != nil {
		sr.Err = err
		return sr
	}
	sr.Name = seq.name

	src := anim.Source{Container: c}
	if kind, _ := a.Stream(); kind != rpak.StreamInline {
		p, err := j.session.OpenPayload(a)
		if err != nil {
			// inline chunks still decode; external ones fail per blend
			slog.Warn("Streaming file unavailable", "sequence", seq.name, "error", err)
		} else {
			src.Stream, src.StreamBase = p.Cursor, p.Base
		}
	}

	name := baseName(seq.name)
	ext := j.x.opts.Exporter.Extension()

	for i := uint32(0); i < seq.desc.NumBlends; i++ {
		br := j.exportBlend(c, src, a, seq, i, bones, export.AnimationPath(dir, name, i, ext))
		if br.Err != nil {
			slog.Warn("Blend export failed", "sequence", seq.name, "blend", i, "error", br.Err)
		}
		sr.Blends = append(sr.Blends, br)
	}
	return sr
}

func (j *job) exportBlend(c *rpak.Cursor, src anim.Source, a *rpak.Asset, seq *sequence, i uint32, bones []skeleton.Bone, path string) BlendResult {
	br := BlendResult{Index: i, Path: path}

	off, err := seq.desc.BlendOffset(c, seq.addr, i)
	if err != nil {
		br.Err = err
		return br
	}
	addr := seq.addr + off
	desc, err := schema.ParseBlendDesc(c, addr, seq.desc.Layout)
	if err != nil {
		br.Err = err
		return br
	}

	if desc.Empty() {
		slog.Debug("Skipping empty blend", "sequence", seq.name, "blend", i)
		br.Skipped = true
		return br
	}
	if !desc.Exportable() {
		slog.Debug("Skipping blend without bone chunks", "sequence", seq.name, "blend", i, "flags", fmt.Sprintf("0x%x", desc.Flags))
		br.Skipped = true
		return br
	}

	w := j.x.opts.Writer
	if !w.ShouldWrite(path) {
		slog.Debug("Skipping existing animation", "path", path)
		br.Skipped = true
		return br
	}

	out, err := j.decoder.DecodeBlend(src, anim.Blend{Asset: a.GUID, Index: i, Addr: addr, Desc: desc}, bones)
	if err != nil {
		br.Err = fmt.Errorf("decoding blend: %w", err)
		return br
	}

	out.Name = baseName(seq.name)
	if blendName, err := schema.BlendName(c, addr, desc); err == nil && blendName != "" {
		out.Name = blendName
	}

	if err := w.Prepare(path); err != nil {
		br.Err = err
		return br
	}
	if err := j.x.opts.Exporter.ExportAnimation(out, path); err != nil {
		br.Err = err
		return br
	}
	slog.Debug("Exported blend", "path", path, "frames", out.FrameCount, "curves", out.CurveCount())
	return br
}
