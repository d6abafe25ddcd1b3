// Package index precomputes, once per rig, everything the force engine looks up
// per contact: capsules, group origins, straightened chain lengths and the
// ancestor tables used to forward residual force toward the root.
package index

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/group"
	"github.com/gekko3d/puppet/rig/limit"
)

// Capsule is a collision volume attached to a joint, in the joint's frame.
// Aligned capsules run along the joint's primary axis, others along local Y.
type Capsule struct {
	Bone    core.HumanBone
	Radius  float32
	Length  float32
	Center  mgl32.Vec3
	Aligned bool
}

// GroupProperty treats the chain from Bone up to Origin as one rigid segment.
type GroupProperty struct {
	Bone   core.HumanBone
	Origin core.HumanBone
	Length float32

	chain []core.HumanBone
}

// Empty reports a property with no capsule-bearing joint behind it.
func (gp GroupProperty) Empty() bool {
	return gp.Bone == core.NoBone
}

// Chain lists the joints whose rest offsets are summed by ToLocalPosition.
func (gp GroupProperty) Chain() []core.HumanBone {
	return append([]core.HumanBone(nil), gp.chain...)
}

type Index struct {
	sk     *core.Skeleton
	limits *limit.Model
	groups *group.Layer

	capsules        [core.BoneCount]*Capsule
	props           [core.BoneCount]*GroupProperty
	ancestors       [core.BoneCount][]core.HumanBone
	capsuleAncestor [core.BoneCount]core.HumanBone
}

// New builds the index. Every capsule must belong to a joint of the skeleton.
func New(sk *core.Skeleton, limits *limit.Model, groups *group.Layer, capsules []Capsule) (*Index, error) {
	if sk == nil {
		return nil, core.ConfigErrorf("index needs a skeleton")
	}
	if limits == nil {
		return nil, core.ConfigErrorf("index needs a limit table")
	}
	if groups == nil {
		return nil, core.ConfigErrorf("index needs a bone group layer")
	}

	idx := &Index{sk: sk, limits: limits, groups: groups}
	for _, c := range capsules {
		if !sk.Has(c.Bone) {
			return nil, core.ConfigErrorf("capsule for %s which the skeleton lacks", c.Bone)
		}
		if c.Radius <= 0 || c.Length < 0 {
			return nil, core.ConfigErrorf("capsule %s has radius %g length %g", c.Bone, c.Radius, c.Length)
		}
		if idx.capsules[c.Bone] != nil {
			return nil, core.ConfigErrorf("capsule %s defined twice", c.Bone)
		}
		entry := c
		idx.capsules[c.Bone] = &entry
	}

	for i := range idx.capsuleAncestor {
		idx.capsuleAncestor[i] = core.NoBone
	}

	// Parents come before children, so inherited properties are already resolved.
	for _, b := range sk.Bones() {
		for p := sk.Parent(b); p != core.NoBone; p = sk.Parent(p) {
			idx.ancestors[b] = append(idx.ancestors[b], p)
			if idx.capsuleAncestor[b] == core.NoBone && idx.capsules[p] != nil {
				idx.capsuleAncestor[b] = p
			}
		}

		if idx.capsules[b] != nil {
			idx.props[b] = idx.walkGroup(b)
			continue
		}
		if a := idx.capsuleAncestor[b]; a != core.NoBone {
			idx.props[b] = idx.props[a]
			continue
		}
		idx.props[b] = &GroupProperty{Bone: core.NoBone, Origin: b}
	}
	return idx, nil
}

func (idx *Index) walkGroup(b core.HumanBone) *GroupProperty {
	gp := &GroupProperty{Bone: b, Origin: b}
	cur := b
	for {
		p := idx.sk.Parent(cur)
		if p == core.NoBone || !idx.groups.SameGroup(b, p) {
			break
		}
		gp.chain = append(gp.chain, cur)
		gp.Length += idx.sk.LocalPosition(cur).Len()
		cur = p
	}
	gp.Origin = cur
	return gp
}

func (idx *Index) Skeleton() *core.Skeleton { return idx.sk }
func (idx *Index) Limits() *limit.Model     { return idx.limits }
func (idx *Index) Groups() *group.Layer     { return idx.groups }

// Capsule returns the joint's capsule.
func (idx *Index) Capsule(b core.HumanBone) (Capsule, bool) {
	if !b.Valid() || idx.capsules[b] == nil {
		return Capsule{}, false
	}
	return *idx.capsules[b], true
}

func (idx *Index) HasCapsule(b core.HumanBone) bool {
	return b.Valid() && idx.capsules[b] != nil
}

// GroupProperty returns the property of a skeleton joint.
func (idx *Index) GroupProperty(b core.HumanBone) (GroupProperty, bool) {
	if !b.Valid() || idx.props[b] == nil {
		return GroupProperty{Bone: core.NoBone, Origin: core.NoBone}, false
	}
	return *idx.props[b], true
}

// MustGroupProperty panics when b was never indexed.
func (idx *Index) MustGroupProperty(b core.HumanBone) GroupProperty {
	gp, ok := idx.GroupProperty(b)
	if !ok {
		core.InvalidBonePanic(b, "Index.MustGroupProperty")
	}
	return gp
}

// Ancestors lists b's parent chain up to the root.
func (idx *Index) Ancestors(b core.HumanBone) []core.HumanBone {
	if !b.Valid() {
		return nil
	}
	return idx.ancestors[b]
}

// CapsuleAncestor is the nearest strict ancestor carrying a capsule.
func (idx *Index) CapsuleAncestor(b core.HumanBone) core.HumanBone {
	if !b.Valid() {
		return core.NoBone
	}
	return idx.capsuleAncestor[b]
}

// ForwardTarget is where residual force leaves b for: the nearest capsule-bearing
// ancestor above b's group origin.
func (idx *Index) ForwardTarget(b core.HumanBone) core.HumanBone {
	gp, ok := idx.GroupProperty(b)
	if !ok || gp.Empty() {
		return core.NoBone
	}
	return idx.CapsuleAncestor(gp.Origin)
}

// ToLocalPosition maps a world point into gp.Bone's frame and then adds each
// rest offset up the chain, so the limb reads as one straight segment rooted at
// gp.Origin.
func (idx *Index) ToLocalPosition(gp GroupProperty, world mgl32.Vec3) mgl32.Vec3 {
	if gp.Empty() {
		return idx.sk.ToLocal(gp.Origin, world)
	}
	x := idx.sk.ToLocal(gp.Bone, world)
	for _, c := range gp.chain {
		x = x.Add(idx.sk.LocalPosition(c))
	}
	return x
}

// CapsuleAxis returns the capsule's local axis direction.
func (idx *Index) CapsuleAxis(c Capsule) mgl32.Vec3 {
	if c.Aligned {
		return idx.limits.Axis(c.Bone).Unit()
	}
	return core.AxisY.Unit()
}

// CapsuleWorld returns the capsule center and axis in world space.
func (idx *Index) CapsuleWorld(c Capsule) (center, axis mgl32.Vec3) {
	pos, rot := idx.sk.WorldTransform(c.Bone)
	center = pos.Add(rot.Rotate(c.Center))
	axis = rot.Rotate(idx.CapsuleAxis(c)).Normalize()
	return center, axis
}

// NormalizedPosition returns where a world point falls along the capsule axis,
// 0 at one cap and 1 at the other.
func (idx *Index) NormalizedPosition(c Capsule, world mgl32.Vec3) float32 {
	center, axis := idx.CapsuleWorld(c)
	if c.Length <= core.Epsilon {
		return 0.5
	}
	start := center.Sub(axis.Mul(c.Length / 2))
	return core.Clampf(world.Sub(start).Dot(axis)/c.Length, 0, 1)
}
