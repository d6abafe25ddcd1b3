package core

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func armDefs() []JointDef {
	return []JointDef{
		{Bone: Hips, Parent: NoBone, Position: mgl32.Vec3{0, 1, 0}},
		{Bone: Spine, Parent: Hips, Position: mgl32.Vec3{0, 0.5, 0}},
		{Bone: LeftUpperArm, Parent: Spine, Position: mgl32.Vec3{0.2, 0, 0}},
		{Bone: LeftLowerArm, Parent: LeftUpperArm, Position: mgl32.Vec3{0.3, 0, 0}},
	}
}

func TestNewSkeleton_Structure(t *testing.T) {
	sk, err := NewSkeleton(armDefs())
	require.NoError(t, err)

	assert.Equal(t, Hips, sk.Root())
	assert.Equal(t, []HumanBone{Hips, Spine, LeftUpperArm, LeftLowerArm}, sk.Bones())
	assert.Equal(t, 1, sk.ChildCount(Spine))
	assert.Equal(t, LeftUpperArm, sk.Parent(LeftLowerArm))
	assert.False(t, sk.Has(Head))
	assert.Nil(t, sk.Joint(Head))
}

func TestNewSkeleton_Errors(t *testing.T) {
	cases := map[string][]JointDef{
		"empty":          nil,
		"no root":        {{Bone: Spine, Parent: Hips}},
		"foreign root":   {{Bone: Hips, Parent: NoBone}, {Bone: Head, Parent: NoBone}},
		"missing parent": {{Bone: Hips, Parent: NoBone}, {Bone: Head, Parent: Neck}},
		"duplicate":      {{Bone: Hips, Parent: NoBone}, {Bone: Hips, Parent: NoBone}},
		"cycle": {
			{Bone: Hips, Parent: NoBone},
			{Bone: Neck, Parent: Head},
			{Bone: Head, Parent: Neck},
		},
	}
	for name, defs := range cases {
		_, err := NewSkeleton(defs)
		if assert.Error(t, err, name) {
			assert.True(t, errors.Is(err, ErrConfiguration), name)
		}
	}
}

func TestWorldTransform_ComposesChain(t *testing.T) {
	sk, err := NewSkeleton(armDefs())
	require.NoError(t, err)

	assert.True(t, sk.WorldPosition(LeftLowerArm).ApproxEqualThreshold(mgl32.Vec3{0.5, 1.5, 0}, 1e-6))

	// Bend the spine 90 degrees about Z: the arm now points up.
	sk.SetLocalRotation(Spine, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}))
	got := sk.WorldPosition(LeftLowerArm)
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec3{0, 2.0, 0}, 1e-5), "got %v", got)

	local := sk.ToLocal(LeftUpperArm, got)
	assert.True(t, local.ApproxEqualThreshold(mgl32.Vec3{0.3, 0, 0}, 1e-5), "local %v", local)
	assert.True(t, sk.ToWorld(LeftUpperArm, local).ApproxEqualThreshold(got, 1e-5))
}

func TestSnapshotRestore(t *testing.T) {
	sk, err := NewSkeleton(armDefs())
	require.NoError(t, err)
	pose := sk.Snapshot()

	sk.SetLocalRotation(LeftUpperArm, mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0}))
	sk.Translate(mgl32.Vec3{1, 0, 0})
	require.False(t, sk.WorldPosition(LeftLowerArm).ApproxEqualThreshold(mgl32.Vec3{0.5, 1.5, 0}, 1e-3))

	sk.Restore(pose)
	assert.True(t, sk.WorldPosition(LeftLowerArm).ApproxEqualThreshold(mgl32.Vec3{0.5, 1.5, 0}, 1e-6))
}

func TestMustJoint_Panics(t *testing.T) {
	sk, err := NewSkeleton(armDefs())
	require.NoError(t, err)
	assert.Panics(t, func() { sk.MustJoint(Head) })
}

func TestNormalize180(t *testing.T) {
	cases := map[float32]float32{0: 0, 180: 180, -180: 180, 190: -170, -190: 170, 540: 180, 725: 5}
	for in, want := range cases {
		assert.InDelta(t, want, Normalize180(in), 1e-4, "in %v", in)
	}
}

func TestSignedAngle(t *testing.T) {
	got, ok := SignedAngle(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 90, got, 1e-4)

	_, ok = SignedAngle(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0})
	assert.False(t, ok)
}

func TestParseHumanBone(t *testing.T) {
	b, ok := ParseHumanBone("lefthand")
	assert.True(t, ok)
	assert.Equal(t, LeftHand, b)
	_, ok = ParseHumanBone("tail")
	assert.False(t, ok)
	assert.Equal(t, "None", NoBone.String())
}
