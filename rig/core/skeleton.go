package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// JointDef is the static structural description of one joint. Position is the
// rest offset from the parent joint in the parent frame; for the root it is the
// world position.
type JointDef struct {
	Bone     HumanBone
	Parent   HumanBone
	Position mgl32.Vec3
}

// Joint is one rotatable node of the skeleton. Rest rotation is identity.
type Joint struct {
	Bone          HumanBone
	Parent        HumanBone
	LocalPosition mgl32.Vec3
	LocalRotation mgl32.Quat

	children []HumanBone
}

// Skeleton is the structural hierarchy of a humanoid with its live pose.
type Skeleton struct {
	joints [BoneCount]*Joint
	order  []HumanBone
	root   HumanBone
}

// NewSkeleton builds a skeleton from joint definitions. Exactly one joint, the
// hips, may be parentless and every parent must be defined.
func NewSkeleton(defs []JointDef) (*Skeleton, error) {
	if len(defs) == 0 {
		return nil, ConfigErrorf("skeleton has no joints")
	}

	sk := &Skeleton{root: NoBone}
	for _, def := range defs {
		if !def.Bone.Valid() {
			return nil, ConfigErrorf("joint %d is not a humanoid bone", def.Bone)
		}
		if sk.joints[def.Bone] != nil {
			return nil, ConfigErrorf("joint %s defined twice", def.Bone)
		}
		if def.Parent == NoBone {
			if def.Bone != Hips {
				return nil, ConfigErrorf("joint %s has no parent; only Hips may be the root", def.Bone)
			}
			sk.root = def.Bone
		}
		sk.joints[def.Bone] = &Joint{
			Bone:          def.Bone,
			Parent:        def.Parent,
			LocalPosition: def.Position,
			LocalRotation: mgl32.QuatIdent(),
		}
	}
	if sk.root == NoBone {
		return nil, ConfigErrorf("skeleton has no Hips root")
	}

	for _, j := range sk.joints {
		if j == nil || j.Parent == NoBone {
			continue
		}
		if !j.Parent.Valid() || sk.joints[j.Parent] == nil {
			return nil, ConfigErrorf("joint %s references missing parent %s", j.Bone, j.Parent)
		}
		parent := sk.joints[j.Parent]
		parent.children = append(parent.children, j.Bone)
	}

	// Breadth-first from the root gives parents-before-children and catches cycles.
	sk.order = append(sk.order, sk.root)
	for i := 0; i < len(sk.order); i++ {
		sk.order = append(sk.order, sk.joints[sk.order[i]].children...)
	}
	if len(sk.order) != len(defs) {
		return nil, ConfigErrorf("skeleton has %d joints unreachable from Hips", len(defs)-len(sk.order))
	}
	return sk, nil
}

// Root returns the root joint id.
func (sk *Skeleton) Root() HumanBone { return sk.root }

// Has reports whether the bone exists in this skeleton.
func (sk *Skeleton) Has(b HumanBone) bool {
	return b.Valid() && sk.joints[b] != nil
}

// Joint returns the joint or nil when the bone is absent.
func (sk *Skeleton) Joint(b HumanBone) *Joint {
	if !b.Valid() {
		return nil
	}
	return sk.joints[b]
}

// MustJoint returns the joint and panics when the bone is absent.
func (sk *Skeleton) MustJoint(b HumanBone) *Joint {
	j := sk.Joint(b)
	if j == nil {
		InvalidBonePanic(b, "Skeleton.MustJoint")
	}
	return j
}

// Bones lists the present bones, parents before children.
func (sk *Skeleton) Bones() []HumanBone {
	return append([]HumanBone(nil), sk.order...)
}

func (sk *Skeleton) Parent(b HumanBone) HumanBone {
	if j := sk.Joint(b); j != nil {
		return j.Parent
	}
	return NoBone
}

func (sk *Skeleton) Children(b HumanBone) []HumanBone {
	if j := sk.Joint(b); j != nil {
		return j.children
	}
	return nil
}

func (sk *Skeleton) ChildCount(b HumanBone) int {
	return len(sk.Children(b))
}

func (sk *Skeleton) LocalRotation(b HumanBone) mgl32.Quat {
	if j := sk.Joint(b); j != nil {
		return j.LocalRotation
	}
	return mgl32.QuatIdent()
}

// SetLocalRotation writes a joint orientation. Absent bones are ignored.
func (sk *Skeleton) SetLocalRotation(b HumanBone, q mgl32.Quat) {
	if j := sk.Joint(b); j != nil {
		j.LocalRotation = q.Normalize()
	}
}

func (sk *Skeleton) LocalPosition(b HumanBone) mgl32.Vec3 {
	if j := sk.Joint(b); j != nil {
		return j.LocalPosition
	}
	return mgl32.Vec3{}
}

// Translate moves the whole body by delta.
func (sk *Skeleton) Translate(delta mgl32.Vec3) {
	root := sk.joints[sk.root]
	root.LocalPosition = root.LocalPosition.Add(delta)
}

// WorldTransform composes the chain from the root down to b.
// WorldPos = ParentPos + ParentRot * LocalPos, WorldRot = ParentRot * LocalRot.
func (sk *Skeleton) WorldTransform(b HumanBone) (mgl32.Vec3, mgl32.Quat) {
	j := sk.Joint(b)
	if j == nil {
		return mgl32.Vec3{}, mgl32.QuatIdent()
	}
	if j.Parent == NoBone {
		return j.LocalPosition, j.LocalRotation
	}
	parentPos, parentRot := sk.WorldTransform(j.Parent)
	pos := parentPos.Add(parentRot.Rotate(j.LocalPosition))
	rot := parentRot.Mul(j.LocalRotation).Normalize()
	return pos, rot
}

func (sk *Skeleton) WorldPosition(b HumanBone) mgl32.Vec3 {
	pos, _ := sk.WorldTransform(b)
	return pos
}

func (sk *Skeleton) WorldRotation(b HumanBone) mgl32.Quat {
	_, rot := sk.WorldTransform(b)
	return rot
}

// ParentWorldRotation is the frame local rotations of b are expressed in.
func (sk *Skeleton) ParentWorldRotation(b HumanBone) mgl32.Quat {
	p := sk.Parent(b)
	if p == NoBone {
		return mgl32.QuatIdent()
	}
	return sk.WorldRotation(p)
}

// ToLocal expresses a world point in the frame of b.
func (sk *Skeleton) ToLocal(b HumanBone, world mgl32.Vec3) mgl32.Vec3 {
	pos, rot := sk.WorldTransform(b)
	return rot.Conjugate().Rotate(world.Sub(pos))
}

// ToWorld maps a point in the frame of b to world space.
func (sk *Skeleton) ToWorld(b HumanBone, local mgl32.Vec3) mgl32.Vec3 {
	pos, rot := sk.WorldTransform(b)
	return pos.Add(rot.Rotate(local))
}

// Pose is a copy of every local rotation plus the root position.
type Pose struct {
	Root      mgl32.Vec3
	Rotations [BoneCount]mgl32.Quat
}

// Snapshot captures the live pose.
func (sk *Skeleton) Snapshot() Pose {
	var p Pose
	p.Root = sk.joints[sk.root].LocalPosition
	for i := range p.Rotations {
		p.Rotations[i] = mgl32.QuatIdent()
		if j := sk.joints[i]; j != nil {
			p.Rotations[i] = j.LocalRotation
		}
	}
	return p
}

// Restore rewinds the live pose to a snapshot.
func (sk *Skeleton) Restore(p Pose) {
	sk.joints[sk.root].LocalPosition = p.Root
	for i, j := range sk.joints {
		if j != nil {
			j.LocalRotation = p.Rotations[i]
		}
	}
}
