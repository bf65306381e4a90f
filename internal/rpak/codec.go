package rpak

import (
	"fmt"
	"math"

	"github.com/oriath-net/gooz"
)

// Codec is an opaque block decompressor: compressed bytes plus the
// declared output size in, decompressed bytes out.
type Codec interface {
	Name() string
	Decompress(src []byte, size int) ([]byte, error)
}

// OodleCodec is the container codec.
type OodleCodec struct{}

func (OodleCodec) Name() string {
	return "oodle"
}

func (OodleCodec) Decompress(src []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := gooz.Decompress(src, dst)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return dst[:n], nil
}

// StoredCodec passes data through unchanged. It is used for payloads
// flagged as stored.
type StoredCodec struct{}

func (StoredCodec) Name() string {
	return "stored"
}

func (StoredCodec) Decompress(src []byte, size int) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// A declared size may be at most maxExpansion times its compressed input,
// or minDeclaredLimit for small inputs.
const (
	maxExpansion     = 256
	minDeclaredLimit = 1 << 20
)

// CheckDeclaredSize rejects declared sizes no codec could produce from
// compressed bytes of input.
func CheckDeclaredSize(compressed, declared uint64) error {
	limit := uint64(minDeclaredLimit)
	if compressed <= math.MaxUint64/maxExpansion && compressed*maxExpansion > limit {
		limit = compressed * maxExpansion
	}
	if declared > limit || declared > math.MaxInt {
		return fmt.Errorf("%w: %d bytes declared for %d compressed", ErrImplausibleSize, declared, compressed)
	}
	return nil
}

// Decompress runs codec over src and checks the output against the
// declared size. The output is never truncated or padded.
func Decompress(codec Codec, src []byte, declared uint64) ([]byte, error) {
	if err := CheckDeclaredSize(uint64(len(src)), declared); err != nil {
		return nil, err
	}
	out, err := codec.Decompress(src, int(declared))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", codec.Name(), err)
	}
	if uint64(len(out)) != declared {
		return nil, fmt.Errorf("%w: %s produced %d bytes, declared %d", ErrDecompressionSizeMismatch, codec.Name(), len(out), declared)
	}
	return out, nil
}

// ReadCompressed reads exactly compressedSize bytes at addr and
// decompresses them to declared bytes.
func ReadCompressed(c *Cursor, addr, compressedSize, declared uint64, codec Codec) ([]byte, error) {
	if err := CheckDeclaredSize(compressedSize, declared); err != nil {
		return nil, err
	}
	if err := c.Seek(addr); err != nil {
		return nil, err
	}
	if compressedSize > uint64(c.Remaining()) {
		return nil, fmt.Errorf("%w: %d compressed bytes at 0x%x", ErrOutOfBounds, compressedSize, addr)
	}
	src, err := c.Bytes(int(compressedSize))
	if err != nil {
		return nil, fmt.Errorf("reading %d compressed bytes at 0x%x: %w", compressedSize, addr, err)
	}
	return Decompress(codec, src, declared)
}
