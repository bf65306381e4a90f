package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jchantrell/rpaktool/internal/rpak"
	"github.com/jchantrell/rpaktool/internal/schema"
)

// wrapQualifiers are stripped from wrapped file names.
var wrapQualifiers = strings.NewReplacer(".client", "", ".ui", "")

func (j *job) wrapName(c *rpak.Cursor, a *rpak.Asset) (*schema.WrapHeader, string, error) {
	addr, err := a.Resolve(a.SubHeader)
	if err != nil {
		return nil, "", fmt.Errorf("resolving wrap header: %w", err)
	}
	h, err := schema.ParseWrapHeader(c, addr, a.Version)
	if err != nil {
		return nil, "", err
	}
	name, err := readName(c, a, h.Name)
	if err != nil {
		return h, "", fmt.Errorf("reading wrap name: %w", err)
	}
	return h, wrapQualifiers.Replace(name), nil
}

func (j *job) exportWrap(a *rpak.Asset) (*Result, error) {
	c, err := j.session.Cursor(a)
	if err != nil {
		return nil, err
	}
	h, name, err := j.wrapName(c, a)
	if err != nil {
		return nil, err
	}
	res := &Result{Asset: a, Name: name}

	w := j.x.opts.Writer
	if !w.ShouldWrite(w.Path(name)) {
		slog.Debug("Skipping existing file", "path", w.Path(name))
		return res, nil
	}

	data, err := j.wrapData(c, a, h)
	if err != nil {
		return res, err
	}
	if n := len(data); n > 0 && data[n-1] == 0 {
		data = data[:n-1]
	}

	path, written, err := w.WriteFile(name, data)
	if err != nil {
		return res, err
	}
	if written {
		res.Files = append(res.Files, path)
	}
	return res, nil
}

// wrapData reads the payload, inline or streamed, and decompresses it when
// the header says so.
func (j *job) wrapData(c *rpak.Cursor, a *rpak.Asset, h *schema.WrapHeader) ([]byte, error) {
	var addr uint64
	if kind, _ := a.Stream(); kind == rpak.StreamInline {
		var err error
		if addr, err = a.Resolve(h.Data); err != nil {
			return nil, fmt.Errorf("resolving wrap data: %w", err)
		}
	} else {
		p, err := j.session.OpenPayload(a)
		if err != nil {
			return nil, err
		}
		c, addr = p.Cursor, p.Base
	}

	read := func(n uint32) ([]byte, error) {
		if err := c.Seek(addr); err != nil {
			return nil, err
		}
		return c.Bytes(int(n))
	}

	if h.CmpSize < h.DcmpSize {
		raw, err := read(h.CmpSize)
		if err != nil {
			return nil, fmt.Errorf("reading wrap data: %w", err)
		}
		if h.Compressed(raw) {
			return rpak.Decompress(j.x.lib.Codec(), raw, uint64(h.DcmpSize))
		}
	}

	data, err := read(h.DcmpSize)
	if err != nil {
		return nil, fmt.Errorf("reading wrap data: %w", err)
	}
	return data, nil
}
