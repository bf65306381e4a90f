package extract

import (
	"fmt"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/schema"
	"github.com/jchantrell/rpaktool/internal/skeleton"
)

// AssetInfo is the listing line of an asset.
type AssetInfo struct {
	Hash      uint64
	Type      rpak.AssetType
	Version   uint32
	Name      string
	Info      string
	Container string
	Streamed  bool
}

// Info describes one asset. Assets without an exporter get their hash as
// name and no summary.
func (x *Extractor) Info(a *rpak.Asset) (*AssetInfo, error) {
	s := x.lib.NewSession()
	defer s.Close()

	info, err := x.info(s, a)
	if err != nil {
		return nil, &AssetError{Hash: a.GUID, Err: err}
	}
	return info, nil
}

// Infos describes assets over one session. Unreadable assets are left out
// and their errors joined into the returned error.
func (x *Extractor) Infos(assets []*rpak.Asset) ([]*AssetInfo, []error) {
	s := x.lib.NewSession()
	defer s.Close()

	var errs []error
	out := make([]*AssetInfo, 0, len(assets))
	for _, a := range assets {
		info, err := x.info(s, a)
		if err != nil {
			errs = append(errs, &AssetError{Hash: a.GUID, Err: err})
			continue
		}
		out = append(out, info)
	}
	return out, errs
}

func (x *Extractor) info(s *rpak.Session, a *rpak.Asset) (*AssetInfo, error) {
	kind, _ := a.Stream()
	info := &AssetInfo{
		Hash:      a.GUID,
		Type:      a.Type,
		Version:   a.Version,
		Name:      fmt.Sprintf("0x%x", a.GUID),
		Container: a.Container().Path,
		Streamed:  kind != rpak.StreamInline,
	}

	c, err := s.Cursor(a)
	if err != nil {
		return nil, err
	}

	switch a.Type {
	case rpak.TypeAnimRig:
		name, summary, err := rigSummary(c, a)
		if err != nil {
			return nil, err
		}
		info.Name, info.Info = x.DisplayName(name), summary
	case rpak.TypeAnimSeq:
		seq, err := parseSequence(c, a)
		if err != nil {
			return nil, err
		}
		activity, err := c.CStringAt(seq.addr + uint64(seq.desc.ActivityNameIndex))
		if err != nil {
			return nil, fmt.Errorf("reading activity name: %w", err)
		}
		info.Name, info.Info = x.DisplayName(seq.name), activity
	case rpak.TypeWrap:
		j := &job{x: x, session: s}
		_, name, err := j.wrapName(c, a)
		if err != nil {
			return nil, err
		}
		info.Name, info.Info = x.DisplayName(name), "N/A"
	}
	return info, nil
}

// rigSummary reads a rig's name and its sequence and bone counts without
// extracting the skeleton.
func rigSummary(c *rpak.Cursor, a *rpak.Asset) (string, string, error) {
	addr, err := a.Resolve(a.SubHeader)
	if err != nil {
		return "", "", fmt.Errorf("resolving rig header: %w", err)
	}
	h, err := schema.ParseRigHeader(c, addr, a.Version)
	if err != nil {
		return "", "", err
	}
	name, err := readName(c, a, h.Name)
	if err != nil {
		return "", "", fmt.Errorf("reading rig name: %w", err)
	}
	studio, err := a.Resolve(h.StudioData)
	if err != nil {
		return name, "", fmt.Errorf("resolving studio data: %w", err)
	}
	sh, err := skeleton.ReadHeader(c, studio, h.SkeletonVersion())
	if err != nil {
		return name, "", err
	}
	return name, fmt.Sprintf("Animations: %d, Bones: %d", h.AnimSeqCount, sh.NumBones), nil
}
