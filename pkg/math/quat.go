package math

import "math"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float64
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	halfAngle := angle / 2
	s := math.Sin(halfAngle)
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: math.Cos(halfAngle),
	}
}

// QuatBetween returns the shortest rotation taking direction from onto
// direction to. Antiparallel inputs rotate by pi about any perpendicular
// axis; zero-length inputs yield the identity.
func QuatBetween(from, to Vec3) Quat {
	a := from.Normalize()
	b := to.Normalize()
	if a.IsZero() || b.IsZero() {
		return QuatIdentity()
	}
	axis := a.Cross(b)
	if axis.IsZero() {
		if a.Dot(b) > 0 {
			return QuatIdentity()
		}
		return QuatFromAxisAngle(a.Perpendicular(), math.Pi)
	}
	return QuatFromAxisAngle(axis.Normalize(), Angle(a, b))
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float64 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Mul multiplies two quaternions (combines rotations).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	return q.ToMat4().TransformDirection(v)
}

// AlignVectors returns the rotation that takes direction from onto
// direction to, pivoting at pivot.
func AlignVectors(from, to, pivot Vec3) Mat4 {
	r := QuatBetween(from, to).ToMat4()
	return TranslateVec(pivot).Mul(r).Mul(TranslateVec(pivot.Neg()))
}

// RandomRotation returns a uniformly distributed rotation from three
// uniform samples in [0, 1) (Arvo, "Fast Random Rotation Matrices").
func RandomRotation(x1, x2, x3 float64) Mat4 {
	theta := x1 * 2 * math.Pi // rotation about the pole
	phi := x2 * 2 * math.Pi   // direction to deflect the pole
	z := x3 * 2               // amount of pole deflection

	r := math.Sqrt(z)
	v := Vec3{math.Sin(phi) * r, math.Cos(phi) * r, math.Sqrt(2 - z)}

	st, ct := math.Sin(theta), math.Cos(theta)
	sx := v.X*ct - v.Y*st
	sy := v.X*st + v.Y*ct

	rows := [3][3]float64{
		{v.X*sx - ct, v.X*sy - st, v.X * v.Z},
		{v.Y*sx + st, v.Y*sy - ct, v.Y * v.Z},
		{v.Z*sx, v.Z*sy, 1 - z},
	}
	return FromRows(rows, Vec3{})
}
