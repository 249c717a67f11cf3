// Package hash provides the ring hashing primitives used by the scheduler.
package hash

import (
	"math"
	"unicode/utf16"
)

const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// Func maps a key to a position on a ring.
type Func func(key string) uint64

// FNVMix hashes key with 32-bit FNV-1a followed by an avalanche mix.
//
// The key is consumed as UTF-16 code units so that identical strings hash
// identically on every platform. The mixing steps run in signed 32-bit
// arithmetic with arithmetic right shifts, and the result is folded to a
// non-negative value in [0, math.MaxInt32].
//
// Parameters:
//   - key: String to hash (task ID or virtual node name)
//
// Returns:
//   - uint64: Non-negative ring position
func FNVMix(key string) uint64 {
	h := fnvOffset32
	for _, r := range key {
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			h = (h ^ uint32(hi)) * fnvPrime32
			h = (h ^ uint32(lo)) * fnvPrime32

			continue
		}
		h = (h ^ uint32(r)) * fnvPrime32 //nolint:gosec // rune is a BMP code unit here
	}

	s := int32(h) //nolint:gosec // reinterpretation is intended
	s += s << 13
	s ^= s >> 7
	s += s << 3
	s ^= s >> 17
	s += s << 5

	if s < 0 {
		s = -s
		// -MinInt32 overflows back to MinInt32
		if s < 0 {
			s = math.MaxInt32
		}
	}

	return uint64(s)
}
