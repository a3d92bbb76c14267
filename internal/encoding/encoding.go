// Package encoding provides the integer encodings shared by the wire formats:
// fixed-width little-endian fields of 1 to 8 bytes and variable-length
// integers carrying 7 payload bits per byte.
//
// Decoding functions never read past the end of the buffer. They report
// failure through ok=false or a zero length and leave the choice of how to
// fail to the caller.
package encoding

// MaxVIntLen is the longest encoding of a uint64 as a vint.
const MaxVIntLen = 10

// PutUint writes the low width bytes of v into dst in little-endian order.
// Precondition: len(dst) >= width.
func PutUint(dst []byte, v uint64, width int) {
	for i := range width {
		dst[i] = byte(v >> (i * 8))
	}
}

// Uint reads a little-endian value of width bytes from buf.
// Precondition: len(buf) >= width.
func Uint(buf []byte, width int) uint64 {
	var v uint64
	for i := range width {
		v |= uint64(buf[i]) << (i * 8)
	}
	return v
}

// VIntLen returns the number of bytes PutVInt uses for v.
func VIntLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// PutVInt writes v into dst, lowest 7-bit group first, with the high bit of
// every byte but the last set. Returns the number of bytes written.
// Precondition: len(dst) >= VIntLen(v).
func PutVInt(dst []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		dst[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	dst[i] = byte(v)
	return i + 1
}

// PutVIntPadded writes v using exactly size bytes by emitting zero-valued
// continuation groups after the significant ones. size must be at least
// VIntLen(v) and at most MaxVIntLen. The result decodes to v with VInt.
func PutVIntPadded(dst []byte, v uint64, size int) int {
	need := VIntLen(v)
	if size <= need {
		return PutVInt(dst, v)
	}
	for i := 0; i < size-1; i++ {
		dst[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	dst[size-1] = byte(v)
	return size
}

// VInt decodes a vint from the start of buf. It returns the value and the
// number of bytes consumed, or n == 0 if buf ends before the terminating
// byte or the encoding is longer than MaxVIntLen.
func VInt(buf []byte) (v uint64, n int) {
	var shift uint
	for i, b := range buf {
		if i == MaxVIntLen {
			return 0, 0
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// SkipVInt returns the length of the vint at the start of buf, or 0 if it is
// not terminated within buf.
func SkipVInt(buf []byte) int {
	for i, b := range buf {
		if i == MaxVIntLen {
			return 0
		}
		if b&0x80 == 0 {
			return i + 1
		}
	}
	return 0
}

// ZigZag maps a signed delta to an unsigned value so that small magnitudes
// of either sign get short vints.
func ZigZag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// UnZigZag inverts ZigZag.
func UnZigZag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
