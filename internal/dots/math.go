package dots

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Vec3 is a 3-component vector. Gameplay happens in the XZ plane.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) LenSq() float64 { return v.Dot(v) }
func (v Vec3) Len() float64 { return math.Sqrt(v.LenSq()) }
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func (v Vec3) Horizontal() Vec3 { return Vec3{v.X, 0, v.Z} }

// Normalize returns v scaled to unit length, or the zero vector when v has no
// usable length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// FromYaw returns the horizontal unit vector for a heading.
func FromYaw(yaw float64) Vec3 {
	return Vec3{X: math.Sin(yaw), Z: math.Cos(yaw)}
}

// Yaw returns the heading of v in the XZ plane.
func Yaw(v Vec3) float64 {
	if v.X == 0 && v.Z == 0 {
		return 0
	}
	return math.Atan2(v.X, v.Z)
}

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HalfScale is the radius of a sphere with the given volume.
func HalfScale(volume int) float64 {
	return math.Cbrt(3 * float64(volume) / (4 * math.Pi))
}

// Scale is the diameter of a sphere with the given volume.
func Scale(volume int) float64 {
	return 2 * HalfScale(volume)
}
