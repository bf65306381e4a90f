// Package extract drives per-asset exports: rigs with their sequences,
// standalone sequences and wrapped raw files.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/jchantrell/rpaktool/internal/anim"
	"github.com/jchantrell/rpaktool/internal/export"
	"github.com/jchantrell/rpaktool/internal/rpak"
)

// selfExcluded is the reference value a rig stores in place of a sequence
// hash that was excluded from its own container.
const selfExcluded uint64 = 0xdf5

// ErrUnsupportedType is returned for asset types that have no exporter.
var ErrUnsupportedType = errors.New("unsupported asset type")

// AssetError is a failure that aborted the export of a whole asset.
type AssetError struct {
	Hash uint64
	Name string
	Err  error
}

func (e *AssetError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("asset 0x%x: %v", e.Hash, e.Err)
	}
	return fmt.Sprintf("asset 0x%x (%s): %v", e.Hash, e.Name, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// BlendResult is the outcome of one blend of a sequence. Blend failures
// are recorded here and never abort the sequence.
type BlendResult struct {
	Index   uint32
	Path    string
	Skipped bool
	Err     error
}

// SequenceResult is the outcome of one sequence. Err is set when the
// sequence could not be read at all.
type SequenceResult struct {
	Hash   uint64
	Name   string
	Blends []BlendResult
	Err    error
}

// Result is the outcome of exporting one asset.
type Result struct {
	Asset     *rpak.Asset
	Name      string
	Files     []string
	Sequences []SequenceResult
}

// Written counts the files the export produced.
func (r *Result) Written() int {
	n := len(r.Files)
	for _, s := range r.Sequences {
		for _, b := range s.Blends {
			if !b.Skipped && b.Err == nil {
				n++
			}
		}
	}
	return n
}

// Options configures an Extractor.
type Options struct {
	Writer       *export.Writer
	Exporter     export.AnimExporter
	UseFullPaths bool
	DumpRig      bool

	// Channels overrides the channel value decoder.
	Channels anim.ChannelDecoder

	// ChunkCacheSize bounds the chunk address cache of each export; zero
	// disables it.
	ChunkCacheSize int

	// Workers bounds concurrent exports in ExportAll. Zero means one per CPU.
	Workers int
}

// Extractor exports assets from a loaded library. It is safe for
// concurrent use: every export opens its own session and decoder.
type Extractor struct {
	lib  *rpak.Library
	opts Options
}

// New creates an extractor over lib.
func New(lib *rpak.Library, opts *Options) (*Extractor, error) {
	if opts == nil || opts.Writer == nil {
		return nil, errors.New("extractor needs an output writer")
	}
	o := *opts
	if o.Exporter == nil {
		o.Exporter = export.SEAnimExporter{}
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return &Extractor{lib: lib, opts: o}, nil
}

// job is the per-export state: a session owning the file handles and a
// decoder with its own chunk cache.
type job struct {
	x       *Extractor
	session *rpak.Session
	decoder *anim.Decoder
}

func (x *Extractor) newJob() (*job, error) {
	cache, err := anim.NewChunkCache(x.opts.ChunkCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating chunk cache: %w", err)
	}
	dec := anim.NewDecoder(cache)
	if x.opts.Channels != nil {
		dec.Channels = x.opts.Channels
	}
	return &job{
		x:       x,
		session: x.lib.NewSession(),
		decoder: dec,
	}, nil
}

// Export writes one asset. Rigs export every referenced sequence,
// sequences export through the first rig that references them and wraps
// write their payload.
func (x *Extractor) Export(a *rpak.Asset) (*Result, error) {
	j, err := x.newJob()
	if err != nil {
		return nil, &AssetError{Hash: a.GUID, Err: err}
	}
	defer j.session.Close()

	var res *Result
	switch a.Type {
	case rpak.TypeAnimRig:
		res, err = j.exportRig(a)
	case rpak.TypeAnimSeq:
		res, err = j.exportStandaloneSequence(a)
	case rpak.TypeWrap:
		res, err = j.exportWrap(a)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, a.Type)
	}
	if err != nil {
		name := ""
		if res != nil {
			name = res.Name
		}
		return res, &AssetError{Hash: a.GUID, Name: name, Err: err}
	}
	return res, nil
}

// ExportAll exports assets on a bounded worker pool. done, if set, is
// called after each asset from the worker goroutine. Whole-asset failures
// do not stop the other exports; they are joined into the returned error.
func (x *Extractor) ExportAll(ctx context.Context, assets []*rpak.Asset, done func(*Result, error)) error {
	p := pool.New().WithMaxGoroutines(x.opts.Workers).WithContext(ctx)
	for _, a := range assets {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := x.Export(a)
			if err != nil {
				slog.Error("Asset export failed", "asset", a.String(), "error", err)
			}
			if done != nil {
				done(res, err)
			}
			return err
		})
	}
	return p.Wait()
}

// baseName returns a stored path's file name without its extension.
func baseName(stored string) string {
	p := path.Base(strings.ReplaceAll(stored, "\\", "/"))
	return strings.TrimSuffix(p, path.Ext(p))
}

// DisplayName is the listing name of a stored asset path.
func (x *Extractor) DisplayName(stored string) string {
	if x.opts.UseFullPaths {
		return stored
	}
	return strings.ToLower(baseName(stored))
}

func readName(c *rpak.Cursor, a *rpak.Asset, p rpak.Pointer) (string, error) {
	addr, err := a.Resolve(p)
	if err != nil {
		return "", err
	}
	return c.CStringAt(addr)
}
