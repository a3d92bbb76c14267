// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// ByteWidth returns the number of bytes needed to store v, with a minimum
// of one byte. ByteWidth(0) is 1.
func ByteWidth(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 7) / 8
}

// FitsIn reports whether v can be stored in n bits.
func FitsIn(v uint64, n int) bool {
	if n >= 64 {
		return true
	}
	if n <= 0 {
		return v == 0
	}
	return v>>uint(n) == 0
}
