// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package keyflow

import (
	"math"
	"strconv"
	"strings"
)

const (
	// HardenedKeyStart is the index at which hardened child keys begin:
	// bit 31 of the serialized index.
	HardenedKeyStart uint32 = 0x80000000

	// MaxDepth is the deepest path that still serializes into a one-byte
	// BIP32 depth field.
	MaxDepth = math.MaxUint8

	pathPrefix     = "m"
	hardenedSymbol = "'"
)

// Default BIP44 account paths.
const (
	BitcoinPath  = "m/44'/0'/0'/0/0"
	EthereumPath = "m/44'/60'/0'/0/0"
	SolanaPath   = "m/44'/501'/0'/0'"
)

// Segment is one step of a derivation path.
type Segment struct {
	// Index is the child number without the hardened bit, in [0, 2^31).
	Index    uint32
	Hardened bool
}

// Hardened returns a hardened segment for index.
func Hardened(index uint32) Segment {
	return Segment{Index: index, Hardened: true}
}

// Normal returns a non-hardened segment for index.
func Normal(index uint32) Segment {
	return Segment{Index: index}
}

// ChildNumber returns the 32-bit serialized index with bit 31 set for
// hardened segments.
func (s Segment) ChildNumber() uint32 {
	if s.Hardened {
		return s.Index | HardenedKeyStart
	}
	return s.Index
}

// SegmentFromChildNumber splits a serialized child number back into its
// index and hardened flag.
func SegmentFromChildNumber(n uint32) Segment {
	return Segment{Index: n &^ HardenedKeyStart, Hardened: n&HardenedKeyStart != 0}
}

func (s Segment) String() string {
	if s.Hardened {
		return strconv.FormatUint(uint64(s.Index), 10) + hardenedSymbol
	}
	return strconv.FormatUint(uint64(s.Index), 10)
}

// Path is an ordered derivation path from the master key.
type Path []Segment

// ParsePath parses the textual form m/44'/0'/0'/0/0. The hardened marker may
// be ', h or H. The bare string "m" is the empty path.
func ParsePath(path string) (Path, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, inputErrf("parse path", ErrMalformedPath, "path cannot be empty")
	}

	pieces := strings.Split(path, "/")
	if pieces[0] != pathPrefix {
		return nil, inputErrf("parse path", ErrMalformedPath, "absolute path starting with %q is required: %q", pathPrefix, path)
	}
	pieces = pieces[1:]

	if len(pieces) > MaxDepth {
		return nil, inputErrf("parse path", ErrMalformedPath, "path exceeds the maximum depth of %d", MaxDepth)
	}

	parsed := make(Path, 0, len(pieces))
	for _, piece := range pieces {
		seg := Segment{}
		if n := len(piece); n > 0 {
			switch piece[n-1] {
			case '\'', 'h', 'H':
				seg.Hardened = true
				piece = piece[:n-1]
			}
		}

		if piece == "" || strings.ContainsAny(piece, "'hH+-") {
			return nil, inputErrf("parse path", ErrMalformedPath, "invalid segment in %q", path)
		}

		// Indices must leave bit 31 free for the hardened flag.
		index, err := strconv.ParseUint(piece, 10, 31)
		if err != nil {
			return nil, inputErrf("parse path", ErrMalformedPath, "segment %q: %v", piece, err)
		}
		seg.Index = uint32(index)

		parsed = append(parsed, seg)
	}

	return parsed, nil
}

// MustParsePath is like ParsePath but panics on error. It is meant for
// package-level constants.
func MustParsePath(path string) Path {
	p, err := ParsePath(path)
	if err != nil {
		panic(err)
	}
	return p
}

// Depth returns the number of segments.
func (p Path) Depth() int {
	return len(p)
}

// Child returns a new path with seg appended. The receiver is not modified.
func (p Path) Child(seg Segment) (Path, error) {
	if p.Depth()+1 > MaxDepth {
		return nil, inputErrf("path child", ErrMalformedPath, "cannot extend path beyond depth %d", MaxDepth)
	}
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, seg), nil
}

// FullyHardened reports whether every segment is hardened.
func (p Path) FullyHardened() bool {
	for _, seg := range p {
		if !seg.Hardened {
			return false
		}
	}
	return true
}

// ChildNumbers returns the serialized child numbers of the path.
func (p Path) ChildNumbers() []uint32 {
	out := make([]uint32, len(p))
	for i, seg := range p {
		out[i] = seg.ChildNumber()
	}
	return out
}

// String encodes the path in its textual form, e.g. m/44'/0'/0'/0/0.
func (p Path) String() string {
	steps := make([]string, 1+len(p))
	steps[0] = pathPrefix
	for i, seg := range p {
		steps[1+i] = seg.String()
	}
	return strings.Join(steps, "/")
}
