package manip_test

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/group"
	"github.com/gekko3d/puppet/rig/humanoid"
	"github.com/gekko3d/puppet/rig/limit"
	"github.com/gekko3d/puppet/rig/manip"
)

func newManipulator(t *testing.T, opts ...manip.Option) *manip.Manipulator {
	t.Helper()
	sk, err := core.NewSkeleton(humanoid.Joints())
	require.NoError(t, err)
	limits, err := limit.New(humanoid.Limits())
	require.NoError(t, err)
	groups, err := group.NewLayer(humanoid.Groups(), limits, sk.Has)
	require.NoError(t, err)
	opts = append([]manip.Option{manip.WithUnsupported(humanoid.Unsupported()...)}, opts...)
	m, err := manip.New(sk, limits, groups, opts...)
	require.NoError(t, err)
	return m
}

func assertVec(t *testing.T, want, got mgl32.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}

func TestSetRotation_StaysWithinLimitsAndIsIdempotent(t *testing.T) {
	for _, cached := range []bool{false, true} {
		var opts []manip.Option
		if cached {
			opts = append(opts, manip.WithAngleCache(1e-5))
		}
		m := newManipulator(t, opts...)
		rng := rand.New(rand.NewSource(7))

		for i := 0; i < 400; i++ {
			b := core.HumanBone(rng.Intn(int(core.BoneCount)))
			angle := mgl32.Vec3{
				rng.Float32()*360 - 180,
				rng.Float32()*360 - 180,
				rng.Float32()*360 - 180,
			}
			m.SetRotation(b, angle)

			members := []core.HumanBone{b}
			if m.Kind(b) == manip.Grouped {
				members = groupMembers(b)
			}
			for _, member := range members {
				read := m.Limits().ToAngles(member, m.Skeleton().LocalRotation(member))
				assert.True(t, m.Limits().Contains(member, read, 1e-3), "%s angle %v", member, read)
			}

			before := m.GetRotation(b)
			again := m.SetRotation(b, angle)
			assertVec(t, mgl32.Vec3{}, again, 1e-3, "re-apply on %s", b)
			assertVec(t, before, m.GetRotation(b), 1e-3)
		}
	}
}

func groupMembers(b core.HumanBone) []core.HumanBone {
	for _, def := range humanoid.Groups() {
		for _, member := range def.Members {
			if member == b {
				return def.Members
			}
		}
	}
	return nil
}

func TestRotate_Independent_ReportsClampedDelta(t *testing.T) {
	m := newManipulator(t)

	assert.Equal(t, manip.Independent, m.Kind(core.LeftLowerArm))
	got := m.Rotate(core.LeftLowerArm, mgl32.Vec3{0, -170, 0})
	assertVec(t, mgl32.Vec3{0, -150, 0}, got, 1e-2)

	got = m.Rotate(core.LeftLowerArm, mgl32.Vec3{0, -10, 0})
	assertVec(t, mgl32.Vec3{}, got, 1e-2)

	got = m.Rotate(core.LeftLowerArm, mgl32.Vec3{0, 50, 0})
	assertVec(t, mgl32.Vec3{0, 50, 0}, got, 1e-2)
	assertVec(t, mgl32.Vec3{0, -100, 0}, m.GetRotation(core.LeftLowerArm), 1e-2)
}

func TestRotate_Grouped_DistributesAndSums(t *testing.T) {
	m := newManipulator(t)
	require.Equal(t, manip.Grouped, m.Kind(core.Chest))

	got := m.Rotate(core.Chest, mgl32.Vec3{40, 0, 0})
	assertVec(t, mgl32.Vec3{40, 0, 0}, got, 1e-2)
	assert.InDelta(t, 20, m.Limits().ToAngles(core.Spine, m.Skeleton().LocalRotation(core.Spine))[0], 1e-2)
	assert.InDelta(t, 15, m.Limits().ToAngles(core.Chest, m.Skeleton().LocalRotation(core.Chest))[0], 1e-2)
	assert.InDelta(t, 5, m.Limits().ToAngles(core.UpperChest, m.Skeleton().LocalRotation(core.UpperChest))[0], 1e-2)

	// Group total is 80 on +X; asking for 100 more stops at the limit.
	got = m.Rotate(core.Spine, mgl32.Vec3{100, 0, 0})
	assertVec(t, mgl32.Vec3{40, 0, 0}, got, 1e-2)
	assertVec(t, mgl32.Vec3{80, 0, 0}, m.GetRotation(core.UpperChest), 1e-2)
}

func TestRotate_Unsupported_IsNoop(t *testing.T) {
	m := newManipulator(t)

	assert.Equal(t, manip.Unsupported, m.Kind(core.LeftEye))
	got := m.Rotate(core.LeftEye, mgl32.Vec3{10, 10, 10})
	assert.Equal(t, mgl32.Vec3{}, got)
	assert.Equal(t, mgl32.QuatIdent(), m.Skeleton().LocalRotation(core.LeftEye))

	assert.Equal(t, mgl32.Vec3{}, m.Rotate(core.HumanBone(99), mgl32.Vec3{1, 0, 0}))
}

func TestAngleCache_MatchesStatelessAndEvictsOnDrift(t *testing.T) {
	plain := newManipulator(t)
	cached := newManipulator(t, manip.WithAngleCache(1e-5))

	steps := []struct {
		bone  core.HumanBone
		delta mgl32.Vec3
	}{
		{core.LeftUpperArm, mgl32.Vec3{20, -30, 40}},
		{core.Head, mgl32.Vec3{-10, 25, 5}},
		{core.RightLowerLeg, mgl32.Vec3{60, 0, 0}},
		{core.LeftUpperArm, mgl32.Vec3{50, 70, 70}},
		{core.Neck, mgl32.Vec3{0, 0, 170}},
	}
	for _, s := range steps {
		a := plain.Rotate(s.bone, s.delta)
		b := cached.Rotate(s.bone, s.delta)
		assertVec(t, a, b, 1e-3, "step %s", s.bone)
		assertVec(t, plain.GetRotation(s.bone), cached.GetRotation(s.bone), 1e-3)
	}
	hits, _ := cached.CacheStats()
	assert.Greater(t, hits, 0)

	// Move the joint behind the manipulator's back.
	q := mgl32.QuatRotate(mgl32.DegToRad(-40), mgl32.Vec3{0, 1, 0})
	cached.Skeleton().SetLocalRotation(core.LeftLowerArm, q)
	cached.Rotate(core.LeftLowerArm, mgl32.Vec3{})
	plain.Skeleton().SetLocalRotation(core.LeftLowerArm, q)

	assertVec(t, mgl32.Vec3{0, -40, 0}, cached.GetRotation(core.LeftLowerArm), 1e-2)
	assertVec(t, plain.GetRotation(core.LeftLowerArm), cached.GetRotation(core.LeftLowerArm), 1e-3)

	cached.Skeleton().SetLocalRotation(core.LeftLowerArm, mgl32.QuatRotate(mgl32.DegToRad(-70), mgl32.Vec3{0, 1, 0}))
	assertVec(t, mgl32.Vec3{0, -70, 0}, cached.GetRotation(core.LeftLowerArm), 1e-2)
	_, evictions := cached.CacheStats()
	assert.Greater(t, evictions, 0)
}

func TestRotateWorld(t *testing.T) {
	m := newManipulator(t)
	sk := m.Skeleton()
	elbow := sk.WorldPosition(core.LeftLowerArm)

	// Folding the left forearm forward (+Z) is a negative Y rotation.
	got := m.RotateWorld(core.LeftLowerArm, mgl32.QuatRotate(mgl32.DegToRad(-30), mgl32.Vec3{0, 1, 0}))
	assertVec(t, mgl32.Vec3{0, -30, 0}, got, 1e-2)

	hand := sk.WorldPosition(core.LeftHand).Sub(elbow)
	assert.Greater(t, hand.Z(), float32(0.1))

	// The other way is outside the elbow's range.
	m2 := newManipulator(t)
	got = m2.RotateWorld(core.LeftLowerArm, mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0}))
	assertVec(t, mgl32.Vec3{}, got, 1e-2)
}

func TestAlignGroup(t *testing.T) {
	m := newManipulator(t)
	m.Skeleton().SetLocalRotation(core.Chest, mgl32.QuatRotate(mgl32.DegToRad(15), mgl32.Vec3{1, 0, 0}))

	total := m.AlignGroup(core.Chest)
	assertVec(t, mgl32.Vec3{40, 0, 0}, total, 1e-2)
	assert.InDelta(t, 20, m.Limits().ToAngles(core.Spine, m.Skeleton().LocalRotation(core.Spine))[0], 1e-2)
	assert.InDelta(t, 5, m.Limits().ToAngles(core.UpperChest, m.Skeleton().LocalRotation(core.UpperChest))[0], 1e-2)
}
