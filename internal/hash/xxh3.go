package hash

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Names of the supported hash functions.
const (
	NameFNV  = "fnv"
	NameXXH3 = "xxh3"
)

// XXH3 hashes key with the 64-bit XXH3 algorithm.
//
// Offered as an alternative to FNVMix for large pools where the 31-bit FNV
// range produces noticeable virtual node collisions.
func XXH3(key string) uint64 {
	return xxh3.HashString(key)
}

// Lookup resolves a hash function by name.
//
// An empty name selects FNVMix.
//
// Returns:
//   - Func: The hash function
//   - error: Non-nil when the name is unknown
func Lookup(name string) (Func, error) {
	switch name {
	case "", NameFNV:
		return FNVMix, nil
	case NameXXH3:
		return XXH3, nil
	default:
		return nil, fmt.Errorf("unknown hash function %q (must be one of: %s, %s)", name, NameFNV, NameXXH3)
	}
}
