// SPDX-License-Identifier: MIT
/*
Package bitint sizes power-of-two buffers such as meter rings and FFT
blocks. A power-of-two ring of length n can wrap an index with i&(n-1) instead
of a modulo, which keeps the audio callback free of divisions.

All functions are constant time and never allocate.

	size := bitint.NextPowerOfTwo(window + maxFrames) // ring length
	mask := bitint.Mask(size)                         // index & mask wraps
	ok := bitint.IsPowerOfTwo(fftSize)
*/
package bitint

import "math/bits"

// Integer is any integer type a buffer length may be held in.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// NextPowerOfTwo returns the smallest power of two >= n. Values below one
// return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo[T Integer](n T) T {
	if n <= 1 {
		return 1
	}
	// n-1 keeps exact powers of two in place: 8-1 = 0111 has length 3.
	return T(1) << bits.Len64(uint64(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so clearing its lowest set bit leaves zero.
func IsPowerOfTwo[T Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}

// Mask returns the index mask of a ring of the given size. It panics when
// size is not a power of two.
func Mask[T Integer](size T) T {
	if !IsPowerOfTwo(size) {
		panic("bitint: ring size is not a power of two")
	}
	return size - 1
}

// Log2 returns the exponent of a power of two, or -1 when n is not one.
func Log2[T Integer](n T) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros64(uint64(n))
}
