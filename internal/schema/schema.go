// Package schema holds the fixed binary layouts of animation assets and
// picks between them by the version stored with each asset.
//
// Every parser dispatches on a closed set of versions and returns one
// normalized value. A version outside the set is an error; no layout is
// ever inferred from sizes alone.
package schema

import (
	"fmt"

	"github.com/jchantrell/rpaktool/internal/rpak"
)

// ErrUnsupportedVersion is returned for a version outside the known set.
var ErrUnsupportedVersion = rpak.ErrUnsupportedVersion

// Layout names one family of mutually compatible binary layouts.
type Layout int

const (
	LayoutLegacy Layout = iota
	LayoutV16
)

func (l Layout) String() string {
	if l == LayoutV16 {
		return "v16"
	}
	return "legacy"
}

const (
	// rigBoundary is the first rig version using the v5 header.
	rigBoundary = 5

	// seqDescBoundary is the first sequence version whose descriptor uses
	// 16-bit index fields.
	seqDescBoundary = 11

	// SkeletonBoundary is the first skeleton schema with the v16 header.
	SkeletonBoundary = 16

	// SkeletonLegacy is the skeleton schema carried by pre-v5 rigs.
	SkeletonLegacy = 10
)

var (
	rigVersions  = map[uint32]Layout{4: LayoutLegacy, 5: LayoutV16, 6: LayoutV16}
	seqVersions  = map[uint32]Layout{7: LayoutLegacy, 10: LayoutLegacy, 11: LayoutV16, 12: LayoutV16}
	wrapVersions = map[uint32]bool{7: true, 8: true}
)

// SequenceLayout returns the descriptor layout used by a sequence version.
func SequenceLayout(version uint32) (Layout, error) {
	l, ok := seqVersions[version]
	if !ok {
		return 0, fmt.Errorf("%w: sequence version %d", ErrUnsupportedVersion, version)
	}
	return l, nil
}

// RigLayout returns the header layout used by a rig version.
func RigLayout(version uint32) (Layout, error) {
	l, ok := rigVersions[version]
	if !ok {
		return 0, fmt.Errorf("%w: rig version %d", ErrUnsupportedVersion, version)
	}
	return l, nil
}

// fixOffset decodes a packed 16-bit offset. Odd values carry a shift of
// four in their low bit.
func fixOffset(v uint16) uint32 {
	return uint32(v&0xFFFE) << (4 * uint32(v&1))
}

func readAt(c *rpak.Cursor, addr uint64, v any, what string) error {
	if err := c.Seek(addr); err != nil {
		return fmt.Errorf("seeking to %s at 0x%x: %w", what, addr, err)
	}
	if err := c.ReadStruct(v); err != nil {
		return fmt.Errorf("reading %s at 0x%x: %w", what, addr, err)
	}
	return nil
}
