package rpak

import "errors"

var (
	// ErrInvalidSegment is returned when a pointer names a segment outside
	// the container's segment table.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrOutOfBounds is returned by Cursor reads that would cross the end
	// of the backing store.
	ErrOutOfBounds = errors.New("read out of bounds")

	// ErrUnsupportedVersion is returned for any container or asset schema
	// version outside the known set.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrDecompressionSizeMismatch is returned when a codec produces a
	// different number of bytes than the declared decompressed size.
	ErrDecompressionSizeMismatch = errors.New("decompressed size mismatch")

	// ErrImplausibleSize is returned when a declared decompressed size is
	// too large for its compressed input.
	ErrImplausibleSize = errors.New("implausible decompressed size")

	// ErrStreamingFileUnavailable is returned when an asset references a
	// starpak that cannot be located or opened.
	ErrStreamingFileUnavailable = errors.New("streaming file unavailable")

	// ErrAssetNotFound is returned by Library.Lookup for unknown hashes.
	ErrAssetNotFound = errors.New("asset not found")
)
