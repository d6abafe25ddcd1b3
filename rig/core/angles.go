package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Axis is a local coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return "?"
}

// Unit returns the unit vector of the axis.
func (a Axis) Unit() mgl32.Vec3 {
	var v mgl32.Vec3
	v[a] = 1
	return v
}

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "x", "X":
		return AxisX, true
	case "y", "Y":
		return AxisY, true
	case "z", "Z":
		return AxisZ, true
	}
	return AxisX, false
}

// Others returns the two remaining axes in ascending order.
func (a Axis) Others() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	}
	return AxisX, AxisY
}

const Epsilon = 1e-6

// Normalize180 wraps an angle in degrees into (-180, 180].
func Normalize180(deg float32) float32 {
	d := float32(math.Mod(float64(deg), 360))
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// NormalizeAngles wraps each component into (-180, 180].
func NormalizeAngles(a mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{Normalize180(a[0]), Normalize180(a[1]), Normalize180(a[2])}
}

// SignedAngle returns the angle in degrees rotating from onto to about axis,
// measured in the plane perpendicular to axis. ok is false when either vector
// collapses onto the axis.
func SignedAngle(from, to, axis mgl32.Vec3) (float32, bool) {
	u := Reject(from, axis)
	w := Reject(to, axis)
	if u.Len() < Epsilon || w.Len() < Epsilon {
		return 0, false
	}
	y := u.Cross(w).Dot(axis)
	x := u.Dot(w)
	return mgl32.RadToDeg(float32(math.Atan2(float64(y), float64(x)))), true
}

// Reject removes the component of v along the unit vector axis.
func Reject(v, axis mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(axis.Mul(v.Dot(axis)))
}

// Project keeps only the component of v along the unit vector axis.
func Project(v, axis mgl32.Vec3) mgl32.Vec3 {
	return axis.Mul(v.Dot(axis))
}

// Clampf clamps value into [lo, hi].
func Clampf(value, lo, hi float32) float32 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// IsFinite reports whether every component is a finite number.
func IsFinite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return false
		}
	}
	return true
}

// QuatAngle returns the rotation angle of q in degrees, in [0, 180].
func QuatAngle(q mgl32.Quat) float32 {
	w := Clampf(float32(math.Abs(float64(q.W))), 0, 1)
	return mgl32.RadToDeg(2 * float32(math.Acos(float64(w))))
}
