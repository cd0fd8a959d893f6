// SPDX-License-Identifier: MIT
package smooth

import "math"

// Linear interpolates at a constant rate.
func Linear(t, b, c, d float32) float32 {
	return c*t/d + b
}

// QuadInOut accelerates through the first half and decelerates through the
// second half using a quadratic curve.
func QuadInOut(t, b, c, d float32) float32 {
	t /= d / 2
	if t < 1 {
		return c/2*t*t + b
	}
	t--
	return -c/2*(t*(t-2)-1) + b
}

// CubicInOut is QuadInOut with a cubic curve.
func CubicInOut(t, b, c, d float32) float32 {
	t /= d / 2
	if t < 1 {
		return c/2*t*t*t + b
	}
	t -= 2
	return c/2*(t*t*t+2) + b
}

// SineInOut follows half a cosine period.
func SineInOut(t, b, c, d float32) float32 {
	return -c/2*(float32(math.Cos(math.Pi*float64(t)/float64(d)))-1) + b
}

// ByName returns the easing function registered under name, or nil.
func ByName(name string) EasingFunc {
	switch name {
	case "linear":
		return Linear
	case "quad":
		return QuadInOut
	case "cubic":
		return CubicInOut
	case "sine":
		return SineInOut
	default:
		return nil
	}
}
