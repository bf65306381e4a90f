package rpak

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// maxCStringLength caps NUL-terminated string reads.
const maxCStringLength = 4096

// Store is a random-access backing store: a container image or a
// streaming file.
type Store interface {
	io.ReaderAt
	Size() int64
}

// Cursor is a bounds-checked read position over a Store. Reads that would
// cross the end of the store fail with ErrOutOfBounds and never return
// partial data. A Cursor is not safe for concurrent use.
type Cursor struct {
	r    io.ReaderAt
	size int64
	pos  int64
}

// NewCursor returns a cursor positioned at the start of s.
func NewCursor(s Store) *Cursor {
	return &Cursor{r: s, size: s.Size()}
}

// Size returns the size of the backing store.
func (c *Cursor) Size() int64 {
	return c.size
}

// Remaining returns the number of bytes between the cursor and the end of
// the store.
func (c *Cursor) Remaining() int64 {
	return c.size - c.pos
}

// Pos returns the current absolute position.
func (c *Cursor) Pos() uint64 {
	return uint64(c.pos)
}

// Seek moves the cursor to an absolute position. Seeking to the very end
// is allowed; any later read fails.
func (c *Cursor) Seek(pos uint64) error {
	if pos > uint64(c.size) {
		return fmt.Errorf("%w: seek to 0x%x past end 0x%x", ErrOutOfBounds, pos, c.size)
	}
	c.pos = int64(pos)
	return nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: negative skip %d", ErrOutOfBounds, n)
	}
	return c.Seek(uint64(c.pos + n))
}

// Read implements io.Reader. It fills p completely or fails.
func (c *Cursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if c.pos+int64(len(p)) > c.size {
		return 0, fmt.Errorf("%w: %d bytes at 0x%x (size 0x%x)", ErrOutOfBounds, len(p), c.pos, c.size)
	}
	n, err := c.r.ReadAt(p, c.pos)
	if n != len(p) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("reading %d bytes at 0x%x: %w", len(p), c.pos, err)
	}
	c.pos += int64(n)
	return n, nil
}

// ReadStruct decodes a fixed-size little-endian structure at the cursor.
func (c *Cursor) ReadStruct(v any) error {
	return binary.Read(c, binary.LittleEndian, v)
}

// Bytes reads exactly n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrOutOfBounds, n)
	}
	if int64(n) > c.Remaining() {
		return nil, fmt.Errorf("%w: %d bytes at 0x%x (size 0x%x)", ErrOutOfBounds, n, c.pos, c.size)
	}
	buf := make([]byte, n)
	if _, err := c.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Cursor) Uint8() (uint8, error) {
	var b [1]byte
	if _, err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) Uint16() (uint16, error) {
	var b [2]byte
	if _, err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

func (c *Cursor) Uint32() (uint32, error) {
	var b [4]byte
	if _, err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

func (c *Cursor) Uint64() (uint64, error) {
	var b [8]byte
	if _, err := c.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (c *Cursor) Float32() (float32, error) {
	v, err := c.Uint32()
	return math.Float32frombits(v), err
}

// CString reads a NUL-terminated string and leaves the cursor after the
// terminator.
func (c *Cursor) CString() (string, error) {
	start := c.pos
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)

	for len(buf) < maxCStringLength {
		remaining := c.size - c.pos
		if remaining <= 0 {
			break
		}
		n := int64(len(chunk))
		if n > remaining {
			n = remaining
		}
		if _, err := c.r.ReadAt(chunk[:n], c.pos); err != nil && err != io.EOF {
			return "", fmt.Errorf("reading string at 0x%x: %w", start, err)
		}
		for i := int64(0); i < n; i++ {
			if chunk[i] == 0 {
				c.pos += i + 1
				return string(append(buf, chunk[:i]...)), nil
			}
		}
		buf = append(buf, chunk[:n]...)
		c.pos += n
	}

	c.pos = start
	return "", fmt.Errorf("%w: unterminated string at 0x%x", ErrOutOfBounds, start)
}

// CStringAt reads a NUL-terminated string at pos.
func (c *Cursor) CStringAt(pos uint64) (string, error) {
	if err := c.Seek(pos); err != nil {
		return "", err
	}
	return c.CString()
}

// readerAtSize adapts an io.ReaderAt with a known size into a Store.
type readerAtSize struct {
	io.ReaderAt
	size int64
}

func (r readerAtSize) Size() int64 {
	return r.size
}

// NewStore wraps r as a Store of the given size.
func NewStore(r io.ReaderAt, size int64) Store {
	return readerAtSize{ReaderAt: r, size: size}
}
