// Package manip is the only writer of joint orientations. Every write honours
// the joint limits and bone groups and reports the delta actually applied.
package manip

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/group"
	"github.com/gekko3d/puppet/rig/limit"
)

// Kind classifies how a joint is driven.
type Kind int

const (
	Independent Kind = iota
	Grouped
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Independent:
		return "independent"
	case Grouped:
		return "grouped"
	}
	return "unsupported"
}

type Option func(*Manipulator)

// WithUnsupported marks joints the manipulator never drives (eyes, jaw...).
func WithUnsupported(bones ...core.HumanBone) Option {
	return func(m *Manipulator) {
		for _, b := range bones {
			if b.Valid() {
				m.unsupported[b] = true
			}
		}
	}
}

// WithAngleCache makes reads trust the last written angle while the live
// orientation stays within tolerance of the one written.
func WithAngleCache(tolerance float32) Option {
	return func(m *Manipulator) {
		m.cache = newAngleCache(tolerance)
	}
}

type Manipulator struct {
	sk     *core.Skeleton
	limits *limit.Model
	groups *group.Layer

	unsupported [core.BoneCount]bool
	cache       *angleCache
}

func New(sk *core.Skeleton, limits *limit.Model, groups *group.Layer, opts ...Option) (*Manipulator, error) {
	if sk == nil || limits == nil || groups == nil {
		return nil, core.ConfigErrorf("manipulator needs a skeleton, limits and groups")
	}
	m := &Manipulator{sk: sk, limits: limits, groups: groups}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manipulator) Skeleton() *core.Skeleton { return m.sk }
func (m *Manipulator) Limits() *limit.Model     { return m.limits }

// Cached reports whether reads go through the angle cache.
func (m *Manipulator) Cached() bool { return m.cache != nil }

// Kind classifies b. Absent joints are unsupported.
func (m *Manipulator) Kind(b core.HumanBone) Kind {
	if !m.sk.Has(b) || m.unsupported[b] {
		return Unsupported
	}
	if _, ok := m.groups.GroupOf(b); ok {
		return Grouped
	}
	return Independent
}

// read extracts the joint's angle from its live orientation.
func (m *Manipulator) read(b core.HumanBone) mgl32.Vec3 {
	live := m.sk.LocalRotation(b)
	if m.cache != nil {
		if angle, ok := m.cache.lookup(b, live); ok {
			return angle
		}
	}
	return m.limits.ToAngles(b, live)
}

// write stores a clamped angle and returns the angle a read now yields.
func (m *Manipulator) write(b core.HumanBone, angle mgl32.Vec3) mgl32.Vec3 {
	clamped := m.limits.Clamp(b, angle)
	q := m.limits.ToOrientation(b, clamped)
	m.sk.SetLocalRotation(b, q)

	// Store what a stateless read returns so both read paths always agree.
	stored := m.limits.ToAngles(b, m.sk.LocalRotation(b))
	if m.cache != nil {
		m.cache.store(b, stored, m.sk.LocalRotation(b))
	}
	return stored
}

func (m *Manipulator) present(b core.HumanBone) bool {
	return m.sk.Has(b) && !m.unsupported[b]
}

// GetRotation returns the joint angle; for grouped joints the group angle,
// the sum of every member's angle.
func (m *Manipulator) GetRotation(b core.HumanBone) mgl32.Vec3 {
	switch m.Kind(b) {
	case Independent:
		return m.read(b)
	case Grouped:
		g, _ := m.groups.GroupOf(b)
		var sum mgl32.Vec3
		for _, member := range g.Members() {
			if m.present(member) {
				sum = sum.Add(m.read(member))
			}
		}
		return sum
	case Unsupported:
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{}
}

// SetRotation drives b toward angle and returns the delta actually applied.
func (m *Manipulator) SetRotation(b core.HumanBone, angle mgl32.Vec3) mgl32.Vec3 {
	switch m.Kind(b) {
	case Independent:
		before := m.read(b)
		after := m.write(b, angle)
		return core.NormalizeAngles(after.Sub(before))
	case Grouped:
		g, _ := m.groups.GroupOf(b)
		var delta mgl32.Vec3
		for _, share := range g.Apply(angle) {
			if !m.present(share.Bone) {
				continue
			}
			before := m.read(share.Bone)
			after := m.write(share.Bone, share.Angle)
			delta = delta.Add(core.NormalizeAngles(after.Sub(before)))
		}
		return delta
	case Unsupported:
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{}
}

// Rotate adds delta to the current angle.
func (m *Manipulator) Rotate(b core.HumanBone, delta mgl32.Vec3) mgl32.Vec3 {
	if m.Kind(b) == Unsupported {
		return mgl32.Vec3{}
	}
	return m.SetRotation(b, m.GetRotation(b).Add(core.NormalizeAngles(delta)))
}

// RotateWorld applies a world-space rotation to b about its own position and
// returns the joint-angle delta actually applied.
func (m *Manipulator) RotateWorld(b core.HumanBone, worldDelta mgl32.Quat) mgl32.Vec3 {
	if m.Kind(b) == Unsupported {
		return mgl32.Vec3{}
	}
	delta, ok := m.AngleDelta(b, worldDelta)
	if !ok {
		return mgl32.Vec3{}
	}
	return m.Rotate(b, delta)
}

// AngleDelta converts a world-space rotation of b into a joint-angle delta,
// choosing the decomposition closest to the current angle.
func (m *Manipulator) AngleDelta(b core.HumanBone, worldDelta mgl32.Quat) (mgl32.Vec3, bool) {
	if !m.sk.Has(b) {
		return mgl32.Vec3{}, false
	}
	parent := m.sk.ParentWorldRotation(b)
	localDelta := parent.Conjugate().Mul(worldDelta).Mul(parent)
	current := m.sk.LocalRotation(b)
	target := localDelta.Mul(current).Normalize()

	now := m.read(b)
	first, second := m.limits.Candidates(b, target)
	d1 := core.NormalizeAngles(first.Sub(now))
	d2 := core.NormalizeAngles(second.Sub(now))
	delta := d1
	if d2.Len() < d1.Len() {
		delta = d2
	}
	if !core.IsFinite(delta) {
		return mgl32.Vec3{}, false
	}
	return delta, true
}

// AlignGroup spreads the angle measured on b over b's whole group, as if the
// group had produced it, and returns the resulting group angle.
func (m *Manipulator) AlignGroup(b core.HumanBone) mgl32.Vec3 {
	if m.Kind(b) != Grouped {
		return m.GetRotation(b)
	}
	g, _ := m.groups.GroupOf(b)
	for _, share := range g.Redistribute(b, m.read(b)) {
		if m.present(share.Bone) {
			m.write(share.Bone, share.Angle)
		}
	}
	return m.GetRotation(b)
}
