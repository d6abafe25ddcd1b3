// Package limit stores per-joint angle limits and converts between joint
// angles (degrees per axis) and local orientations.
package limit

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

// Limit is the allowed angle range of one joint, in degrees, and the axis the
// bone points along. Min components are <= 0 and Max components are >= 0.
type Limit struct {
	Min  mgl32.Vec3
	Max  mgl32.Vec3
	Axis core.Axis
}

// Unlimited is used for joints without a configured entry.
var Unlimited = Limit{
	Min:  mgl32.Vec3{-180, -180, -180},
	Max:  mgl32.Vec3{180, 180, 180},
	Axis: core.AxisY,
}

// Range returns the total extent on the negative and positive side.
func (l Limit) Range() (neg, pos mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		neg[i] = -l.Min[i]
		pos[i] = l.Max[i]
	}
	return neg, pos
}

// Model holds the limit table. It is immutable after construction.
type Model struct {
	limits [core.BoneCount]*Limit
}

// New validates the table: min <= 0 <= max on every axis.
func New(table map[core.HumanBone]Limit) (*Model, error) {
	m := &Model{}
	for bone, l := range table {
		if !bone.Valid() {
			return nil, core.ConfigErrorf("limit for unknown bone %d", bone)
		}
		for i := 0; i < 3; i++ {
			if l.Min[i] > 0 || l.Max[i] < 0 {
				return nil, core.ConfigErrorf("limit %s axis %s is [%g,%g]; min must be <= 0 <= max",
					bone, core.Axis(i), l.Min[i], l.Max[i])
			}
			if l.Min[i] < -180 || l.Max[i] > 180 {
				return nil, core.ConfigErrorf("limit %s axis %s exceeds [-180,180]", bone, core.Axis(i))
			}
		}
		if l.Axis < core.AxisX || l.Axis > core.AxisZ {
			return nil, core.ConfigErrorf("limit %s has invalid axis %d", bone, l.Axis)
		}
		entry := l
		m.limits[bone] = &entry
	}
	return m, nil
}

// Limit returns the configured entry, or Unlimited when none exists.
func (m *Model) Limit(b core.HumanBone) (Limit, bool) {
	if !b.Valid() || m.limits[b] == nil {
		return Unlimited, false
	}
	return *m.limits[b], true
}

// Axis returns the declared primary axis of the joint.
func (m *Model) Axis(b core.HumanBone) core.Axis {
	l, _ := m.Limit(b)
	return l.Axis
}

// Clamp restricts angle per axis to the joint's [min, max].
func (m *Model) Clamp(b core.HumanBone, angle mgl32.Vec3) mgl32.Vec3 {
	l, _ := m.Limit(b)
	return clamp(l, angle)
}

func clamp(l Limit, angle mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		out[i] = core.Clampf(angle[i], l.Min[i], l.Max[i])
	}
	return out
}

// Contains reports whether angle lies inside the joint's limits (with a small tolerance).
func (m *Model) Contains(b core.HumanBone, angle mgl32.Vec3, tolerance float32) bool {
	l, _ := m.Limit(b)
	for i := 0; i < 3; i++ {
		if angle[i] < l.Min[i]-tolerance || angle[i] > l.Max[i]+tolerance {
			return false
		}
	}
	return true
}

// order returns the composition sequence: the two off axes ascending, then the
// declared axis last.
func order(axis core.Axis) [3]core.Axis {
	i, j := axis.Others()
	return [3]core.Axis{i, j, axis}
}

// ToOrientation composes R_i * R_j * R_k with k the declared axis, so the bone
// axis direction does not depend on the rotation about it.
func (m *Model) ToOrientation(b core.HumanBone, angle mgl32.Vec3) mgl32.Quat {
	seq := order(m.Axis(b))
	q := mgl32.QuatIdent()
	for _, ax := range seq {
		q = q.Mul(mgl32.QuatRotate(mgl32.DegToRad(angle[ax]), ax.Unit()))
	}
	return q.Normalize()
}

// Candidates returns both normalised angle decompositions of q, unclamped.
func (m *Model) Candidates(b core.HumanBone, q mgl32.Quat) (mgl32.Vec3, mgl32.Vec3) {
	seq := order(m.Axis(b))
	i, j, k := int(seq[0]), int(seq[1]), int(seq[2])

	s := float32(-1)
	if j == (i+1)%3 {
		s = 1
	}

	r := q.Normalize().Mat4().Mat3()
	var ai, aj, ak float64
	sinJ := core.Clampf(s*r.At(i, k), -1, 1)
	aj = math.Asin(float64(sinJ))
	if math.Abs(float64(sinJ)) > 0.99999 {
		// Gimbal lock: fold the coupled rotation into the first axis.
		ak = 0
		ai = math.Atan2(float64(s*r.At(k, j)), float64(r.At(j, j)))
	} else {
		ai = math.Atan2(float64(-s*r.At(j, k)), float64(r.At(k, k)))
		ak = math.Atan2(float64(-s*r.At(i, j)), float64(r.At(i, i)))
	}

	var first mgl32.Vec3
	first[i] = mgl32.RadToDeg(float32(ai))
	first[j] = mgl32.RadToDeg(float32(aj))
	first[k] = mgl32.RadToDeg(float32(ak))
	first = core.NormalizeAngles(first)

	var second mgl32.Vec3
	second[i] = first[i] + 180
	second[j] = 180 - first[j]
	second[k] = first[k] + 180
	second = core.NormalizeAngles(second)

	return first, second
}

// ToAngles decomposes q into clamped joint angles. Of the two equivalent
// decompositions the one moved least by clamping wins; ties keep the first.
func (m *Model) ToAngles(b core.HumanBone, q mgl32.Quat) mgl32.Vec3 {
	l, _ := m.Limit(b)
	first, second := m.Candidates(b, q)

	c1 := clamp(l, first)
	c2 := clamp(l, second)
	if c2.Sub(second).Len() < c1.Sub(first).Len() {
		return c2
	}
	return c1
}
