// Package math provides the vector, matrix and quaternion types used to
// place and align mesh modules.
package math

import "math"

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-12

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// LengthSq returns the squared magnitude.
func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns a unit vector, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < Epsilon {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// NormalizeOr returns v normalized, or fallback normalized when v has no
// usable length. The second result reports whether the fallback was used.
func (v Vec3) NormalizeOr(fallback Vec3) (Vec3, bool) {
	l := v.Length()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return fallback.Normalize(), true
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}, false
}

// IsZero reports whether v has no usable length.
func (v Vec3) IsZero() bool {
	return v.Length() < Epsilon
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float64 {
	return v.Sub(other).Length()
}

// ApproxEqual reports whether every component differs by at most tol.
func (v Vec3) ApproxEqual(other Vec3, tol float64) bool {
	return math.Abs(v.X-other.X) <= tol &&
		math.Abs(v.Y-other.Y) <= tol &&
		math.Abs(v.Z-other.Z) <= tol
}

// Angle returns the angle in radians between v and other, in [0, pi].
// Zero-length inputs yield 0.
func Angle(v, other Vec3) float64 {
	l := v.Length() * other.Length()
	if l < Epsilon {
		return 0
	}
	c := v.Dot(other) / l
	// Rounding can push |c| slightly above 1.
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// Perpendicular returns a unit vector orthogonal to v.
func (v Vec3) Perpendicular() Vec3 {
	axis := Vec3{1, 0, 0}
	if math.Abs(v.X) > math.Abs(v.Y) {
		axis = Vec3{0, 1, 0}
	}
	return v.Cross(axis).Normalize()
}

// Centroid returns the mean of the given points.
func Centroid(points []Vec3) Vec3 {
	if len(points) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}
