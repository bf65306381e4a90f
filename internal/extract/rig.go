package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/schema"
	"github.com/jchantrell/rpaktool/internal/skeleton"
)

// ErrNoRig is returned when a sequence is exported on its own and no
// loaded rig references it.
var ErrNoRig = errors.New("no rig references the sequence")

// rig is a parsed rig asset with its skeleton.
type rig struct {
	asset  *rpak.Asset
	header *schema.RigHeader
	name   string
	bones  []skeleton.Bone
	studio uint64
	seqs   []uint64
}

func (j *job) loadRig(a *rpak.Asset) (*rig, error) {
	c, err := j.session.Cursor(a)
	if err != nil {
		return nil, err
	}
	addr, err := a.Resolve(a.SubHeader)
	if err != nil {
		return nil, fmt.Errorf("resolving rig header: %w", err)
	}
	h, err := schema.ParseRigHeader(c, addr, a.Version)
	if err != nil {
		return nil, err
	}

	r := &rig{asset: a, header: h}
	if r.name, err = readName(c, a, h.Name); err != nil {
		return nil, fmt.Errorf("reading rig name: %w", err)
	}
	if r.seqs, err = readSequenceRefs(c, a, h); err != nil {
		return r, err
	}

	if r.studio, err = a.Resolve(h.StudioData); err != nil {
		return r, fmt.Errorf("resolving studio data: %w", err)
	}
	if r.bones, err = skeleton.Extract(c, r.studio, h.SkeletonVersion()); err != nil {
		return r, fmt.Errorf("extracting skeleton of %s: %w", r.name, err)
	}
	return r, nil
}

func readSequenceRefs(c *rpak.Cursor, a *rpak.Asset, h *schema.RigHeader) ([]uint64, error) {
	if h.AnimSeqCount == 0 {
		return nil, nil
	}
	base, err := a.Resolve(h.AnimSeqs)
	if err != nil {
		return nil, fmt.Errorf("resolving sequence references: %w", err)
	}
	if err := c.Seek(base); err != nil {
		return nil, err
	}

	refs := make([]uint64, h.AnimSeqCount)
	for i := range refs {
		if refs[i], err = c.Uint64(); err != nil {
			return nil, fmt.Errorf("reading sequence reference %d: %w", i, err)
		}
	}
	return refs, nil
}

func (j *job) exportRig(a *rpak.Asset) (*Result, error) {
	r, err := j.loadRig(a)
	if r == nil {
		return nil, err
	}
	res := &Result{Asset: a, Name: r.name}
	if err != nil {
		return res, err
	}

	setName := baseName(r.name)
	dir := j.x.opts.Writer.Path(setName)

	if j.x.opts.DumpRig {
		if err := j.dumpRig(r, setName, res); err != nil {
			return res, err
		}
	}

	slog.Info("Exporting rig", "rig", r.name, "sequences", len(r.seqs), "bones", len(r.bones))

	for i, hash := range r.seqs {
		if hash == selfExcluded {
			slog.Warn("Sequence reference is self-excluded", "rig", r.name, "index", i)
			continue
		}

		seq, err := j.x.lib.Lookup(hash)
		if err != nil {
			slog.Warn("Missing referenced sequence", "rig", r.name, "hash", fmt.Sprintf("0x%x", hash))
			res.Sequences = append(res.Sequences, SequenceResult{Hash: hash, Err: err})
			continue
		}

		sr := j.exportSequence(seq, r.bones, dir)
		if sr.Err != nil {
			slog.Warn("Sequence export failed", "rig", r.name, "sequence", seq.String(), "error", sr.Err)
		}
		res.Sequences = append(res.Sequences, sr)
	}
	return res, nil
}

func (j *job) dumpRig(r *rig, setName string, res *Result) error {
	c, err := j.session.Cursor(r.asset)
	if err != nil {
		return err
	}
	raw, err := skeleton.Raw(c, r.studio, r.header.SkeletonVersion())
	if err != nil {
		return fmt.Errorf("reading raw skeleton: %w", err)
	}

	path, written, err := j.x.opts.Writer.WriteFile(filepath.Join(setName, setName+".rrig"), raw)
	if err != nil {
		return err
	}
	if written {
		res.Files = append(res.Files, path)
	}
	return nil
}

// exportStandaloneSequence exports a sequence against the skeleton of the
// first loaded rig that references it.
func (j *job) exportStandaloneSequence(a *rpak.Asset) (*Result, error) {
	for _, ra := range j.x.lib.AssetsOfType(rpak.TypeAnimRig) {
		r, err := j.loadRig(ra)
		if err != nil {
			slog.Debug("Skipping unreadable rig", "rig", ra.String(), "error", err)
			continue
		}

		for _, hash := range r.seqs {
			if hash != a.GUID {
				continue
			}
			dir := j.x.opts.Writer.Path(baseName(r.name))
			sr := j.exportSequence(a, r.bones, dir)
			res := &Result{Asset: a, Name: sr.Name, Sequences: []SequenceResult{sr}}
			return res, sr.Err
		}
	}
	return nil, ErrNoRig
}
