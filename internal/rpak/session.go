package rpak

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// StarpakMagic is "SRPk" read as a little-endian uint32.
const StarpakMagic uint32 = 0x6b505253

// Payload is an opened asset payload: the store that holds it and the
// absolute address of its first byte inside that store.
type Payload struct {
	Kind   StreamKind
	Cursor *Cursor
	Base   uint64
}

// External reports whether the payload lives in a streaming file.
func (p Payload) External() bool {
	return p.Kind != StreamInline
}

// Session owns the read handles used by one export. Handles are opened
// lazily, reused for the lifetime of the session and never shared with
// other sessions. Every call hands out a fresh cursor over the shared
// handle so callers never observe each other's positions.
type Session struct {
	lib        *Library
	containers map[*Container]Store
	streams    map[string]Store
	closers    []io.Closer
}

// Cursor returns the session's cursor over the container holding a.
func (s *Session) Cursor(a *Asset) (*Cursor, error) {
	return s.containerCursor(a.container)
}

func (s *Session) containerCursor(c *Container) (*Cursor, error) {
	if store, ok := s.containers[c]; ok {
		return NewCursor(store), nil
	}

	store, closer, err := c.open()
	if err != nil {
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	s.containers[c] = store
	return NewCursor(store), nil
}

// OpenPayload locates an asset's payload. The optimal streaming file is
// preferred, then the standard one; otherwise the payload is inline at the
// asset's raw data pointer.
func (s *Session) OpenPayload(a *Asset) (Payload, error) {
	kind, base := a.Stream()
	if kind == StreamInline {
		cur, err := s.Cursor(a)
		if err != nil {
			return Payload{}, err
		}
		addr, err := a.Resolve(a.RawData)
		if err != nil {
			return Payload{}, fmt.Errorf("resolving raw data: %w", err)
		}
		return Payload{Kind: StreamInline, Cursor: cur, Base: addr}, nil
	}

	cur, err := s.openStream(a.container, kind)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Kind: kind, Cursor: cur, Base: base}, nil
}

func (s *Session) openStream(c *Container, kind StreamKind) (*Cursor, error) {
	paths := c.StarpakPaths(kind)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: container %s lists no %s starpak", ErrStreamingFileUnavailable, c.Path, kind)
	}
	stored := paths[0]

	var lastErr error
	for _, candidate := range s.lib.starpakCandidates(c, stored) {
		if store, ok := s.streams[candidate]; ok {
			return NewCursor(store), nil
		}

		store, err := s.openStarpak(candidate)
		if err != nil {
			lastErr = err
			slog.Debug("Starpak candidate unusable", "path", candidate, "error", err)
			continue
		}

		s.streams[candidate] = store
		return NewCursor(store), nil
	}

	if lastErr == nil {
		lastErr = errors.New("no candidate paths")
	}
	return nil, fmt.Errorf("%w: %s starpak %q: %v", ErrStreamingFileUnavailable, kind, stored, lastErr)
}

func (s *Session) openStarpak(path string) (Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	store := NewStore(f, info.Size())
	magic, err := NewCursor(store).Uint32()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading starpak magic: %w", err)
	}
	if magic != StarpakMagic {
		f.Close()
		return nil, fmt.Errorf("bad starpak magic 0x%08x", magic)
	}

	s.closers = append(s.closers, f)
	return store, nil
}

// Close releases every handle the session opened.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	s.containers = make(map[*Container]Store)
	s.streams = make(map[string]Store)
	return errors.Join(errs...)
}
