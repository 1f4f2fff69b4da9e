package vector

import "math"

// Quat is a rotation quaternion (x, y, z imaginary; w real)
type Quat struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
	Z float64 `json:"z" cbor:"z"`
	W float64 `json:"w" cbor:"w"`
}

// Identity returns the zero rotation
func Identity() Quat { return Quat{W: 1} }

// AxisAngle returns a rotation of angle radians about a unit axis
func AxisAngle(axis Vec3, angle float64) Quat {
	s := math.Sin(angle / 2)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: math.Cos(angle / 2)}
}

// Mul returns q*o (apply o first, then q)
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.X*o.W + q.W*o.X + q.Y*o.Z - q.Z*o.Y,
		Y: q.Y*o.W + q.W*o.Y + q.Z*o.X - q.X*o.Z,
		Z: q.Z*o.W + q.W*o.Z + q.X*o.Y - q.Y*o.X,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Normalize returns q scaled to unit length
func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return Identity()
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// RotateX rotates about the body's own X axis (pitch).
func (q Quat) RotateX(angle float64) Quat { return q.Mul(AxisAngle(Vec3{X: 1}, angle)) }

// RotateY rotates about the body's own Y axis (yaw).
func (q Quat) RotateY(angle float64) Quat { return q.Mul(AxisAngle(Vec3{Y: 1}, angle)) }

// RotateZ rotates about the body's own Z axis (roll).
func (q Quat) RotateZ(angle float64) Quat { return q.Mul(AxisAngle(Vec3{Z: 1}, angle)) }

// Rotate applies the rotation to v
func (q Quat) Rotate(v Vec3) Vec3 {
	tx := 2 * (q.Y*v.Z - q.Z*v.Y)
	ty := 2 * (q.Z*v.X - q.X*v.Z)
	tz := 2 * (q.X*v.Y - q.Y*v.X)
	return Vec3{
		X: v.X + q.W*tx + q.Y*tz - q.Z*ty,
		Y: v.Y + q.W*ty + q.Z*tx - q.X*tz,
		Z: v.Z + q.W*tz + q.X*ty - q.Y*tx,
	}
}

// Euler holds intrinsic angles in radians
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// EulerYXZ decomposes q into yaw (Y), then pitch (X), then roll (Z).
//
// This matches how the flight model composes orientation, so X is pitch,
// Y is heading and Z is bank.
func (q Quat) EulerYXZ() Euler {
	m := q.matrix()
	var e Euler
	e.X = math.Asin(-clamp(m[1][2], -1, 1))
	if math.Abs(m[1][2]) < 0.9999999 {
		e.Y = math.Atan2(m[0][2], m[2][2])
		e.Z = math.Atan2(m[1][0], m[1][1])
	} else {
		e.Y = math.Atan2(-m[2][0], m[0][0])
		e.Z = 0
	}
	return e
}

// LookRotation returns the rotation that turns an object's local +Z toward dir.
func LookRotation(dir, up Vec3) Quat {
	z := dir.Normalize()
	if z == (Vec3{}) {
		z = Vec3{Z: 1}
	}
	x := up.Cross(z)
	if x.Norm() < 1e-12 {
		// up and dir are parallel
		if math.Abs(up.Z) == 1 {
			z.X += 0.0001
		} else {
			z.Z += 0.0001
		}
		z = z.Normalize()
		x = up.Cross(z)
	}
	x = x.Normalize()
	y := z.Cross(x)

	return fromBasis(x, y, z)
}

// matrix returns the row-major rotation matrix of q.
func (q Quat) matrix() [3][3]float64 {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	return [3][3]float64{
		{1 - (yy + zz), xy - wz, xz + wy},
		{xy + wz, 1 - (xx + zz), yz - wx},
		{xz - wy, yz + wx, 1 - (xx + yy)},
	}
}

// fromBasis converts orthonormal column vectors into a quaternion.
func fromBasis(x, y, z Vec3) Quat {
	m11, m12, m13 := x.X, y.X, z.X
	m21, m22, m23 := x.Y, y.Y, z.Y
	m31, m32, m33 := x.Z, y.Z, z.Z

	trace := m11 + m22 + m33
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		return Quat{W: 0.25 / s, X: (m32 - m23) * s, Y: (m13 - m31) * s, Z: (m21 - m12) * s}
	case m11 > m22 && m11 > m33:
		s := 2 * math.Sqrt(1+m11-m22-m33)
		return Quat{W: (m32 - m23) / s, X: 0.25 * s, Y: (m12 + m21) / s, Z: (m13 + m31) / s}
	case m22 > m33:
		s := 2 * math.Sqrt(1+m22-m11-m33)
		return Quat{W: (m13 - m31) / s, X: (m12 + m21) / s, Y: 0.25 * s, Z: (m23 + m32) / s}
	default:
		s := 2 * math.Sqrt(1+m33-m11-m22)
		return Quat{W: (m21 - m12) / s, X: (m13 + m31) / s, Y: (m23 + m32) / s, Z: 0.25 * s}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
