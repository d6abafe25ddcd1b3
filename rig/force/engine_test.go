package force_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/force"
	"github.com/gekko3d/puppet/rig/group"
	"github.com/gekko3d/puppet/rig/humanoid"
	"github.com/gekko3d/puppet/rig/index"
	"github.com/gekko3d/puppet/rig/limit"
	"github.com/gekko3d/puppet/rig/manip"
)

type fixture struct {
	sk     *core.Skeleton
	m      *manip.Manipulator
	engine *force.Engine
	events []force.Event
}

func newFixture(t *testing.T, opts ...force.Option) *fixture {
	t.Helper()
	sk, err := core.NewSkeleton(humanoid.Joints())
	require.NoError(t, err)
	limits, err := limit.New(humanoid.Limits())
	require.NoError(t, err)
	groups, err := group.NewLayer(humanoid.Groups(), limits, sk.Has)
	require.NoError(t, err)
	idx, err := index.New(sk, limits, groups, humanoid.Capsules())
	require.NoError(t, err)
	m, err := manip.New(sk, limits, groups, manip.WithUnsupported(humanoid.Unsupported()...))
	require.NoError(t, err)

	f := &fixture{sk: sk, m: m}
	opts = append([]force.Option{force.WithTrace(func(e force.Event) { f.events = append(f.events, e) })}, opts...)
	f.engine, err = force.New(idx, m, opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) resolved(b core.HumanBone) (force.Event, bool) {
	for _, e := range f.events {
		if !e.Forward && e.Bone == b {
			return e, true
		}
	}
	return force.Event{}, false
}

func (f *fixture) forwarded(b core.HumanBone) (force.Event, bool) {
	for _, e := range f.events {
		if e.Forward && e.Bone == b {
			return e, true
		}
	}
	return force.Event{}, false
}

func TestTriangulate(t *testing.T) {
	l1, l2, ok := force.Triangulate(5, 5, 8)
	require.True(t, ok)
	assert.InDelta(t, 4, l1, 1e-5)
	assert.InDelta(t, 4, l2, 1e-5)

	l1, l2, ok = force.Triangulate(3, 5, 6)
	require.True(t, ok)
	assert.InDelta(t, 6, l1+l2, 1e-5)
	assert.Less(t, l1, l2)

	_, _, ok = force.Triangulate(5, 3, 4)
	assert.False(t, ok, "l <= |a|/l")
	_, _, ok = force.Triangulate(5, 5, 11)
	assert.False(t, ok, "longer than the limb")
	_, _, ok = force.Triangulate(5, 5, 0)
	assert.False(t, ok)
}

func TestHipsBlend(t *testing.T) {
	cases := []struct {
		ratio, spine, legs float32
	}{
		{0, 0, 1},
		{0.5, 1 - 1/1.5, 1 / 1.5},
		{1, 0.5, 0.5},
		{1.5, 1 / 1.5, 1 - 1/1.5},
		{2, 1, 0},
		{5, 1, 0},
	}
	for _, c := range cases {
		spine, legs := force.HipsBlend(c.ratio)
		assert.InDelta(t, c.spine, spine, 1e-5, "ratio %v", c.ratio)
		assert.InDelta(t, c.legs, legs, 1e-5, "ratio %v", c.ratio)
	}
}

func TestConsensusShift(t *testing.T) {
	// Straddling X: one contact held, the other moved by 2; the origin moves by 1.
	from := []mgl32.Vec3{{-1, 0, 0}, {1, 0, 0}}
	to := []mgl32.Vec3{{-1, 0, 0.2}, {3, 0, 0.4}}
	shift := force.ConsensusShift(from, to)
	assert.InDelta(t, 1, shift.X(), 1e-5)
	assert.InDelta(t, 0, shift.Y(), 1e-5)
	assert.InDelta(t, 0.3, shift.Z(), 1e-5, "same side on Z falls back to the mean")

	three := force.ConsensusShift(
		[]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[]mgl32.Vec3{{1, 0.3, 0}, {0, 1.3, 0}, {0, 0.3, 1}},
	)
	assert.InDelta(t, 0.3, three.Y(), 1e-5)
	assert.Equal(t, mgl32.Vec3{}, force.ConsensusShift(nil, nil))
}

func TestConsensusTurn(t *testing.T) {
	from := []mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}}
	to := []mgl32.Vec3{{0, 1, 0}, {0, -1, 0}}
	turn := force.ConsensusTurn(from, to)

	want := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	assert.True(t, turn.ApproxEqualThreshold(want, 1e-4), "got %v", turn)
	assert.Equal(t, mgl32.QuatIdent(), force.ConsensusTurn(nil, nil))
}

func TestNew_RequiresInputs(t *testing.T) {
	_, err := force.New(nil, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestQueue_ContactDescriptor(t *testing.T) {
	f := newFixture(t)

	assert.Nil(t, f.engine.Queue(core.Neck, mgl32.Vec3{}, mgl32.Vec3{0, 0, 0.1}, nil, true, false), "neck has no capsule")
	assert.Nil(t, f.engine.Queue(core.LeftHand, mgl32.Vec3{}, mgl32.Vec3{float32(math.NaN()), 0, 0}, nil, true, false))
	assert.Equal(t, 0, f.engine.Pending())

	hand := f.sk.WorldPosition(core.LeftHand)
	c := f.engine.Queue(core.LeftHand, hand.Add(mgl32.Vec3{0.08, 0, 0}), mgl32.Vec3{0, 0, 0.1}, nil, false, false)
	require.NotNil(t, c)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, core.LeftHand, c.Bone)
	assert.True(t, c.Hold)
	assert.InDelta(t, 0.5, c.NormalizedPosition, 1e-4)
	assert.InDelta(t, 1, c.Axis.X(), 1e-5)
	assert.Equal(t, 1, f.engine.Pending())
}

func TestExecute_AxialPushPassesThrough(t *testing.T) {
	f := newFixture(t)
	tip := f.sk.WorldPosition(core.LeftHand).Add(mgl32.Vec3{0.1, 0, 0})
	push := mgl32.Vec3{-0.05, 0, 0}

	f.engine.Queue(core.LeftHand, tip, push, nil, true, false)
	f.engine.Execute()

	ev, ok := f.resolved(core.LeftHand)
	require.True(t, ok)
	assert.InDelta(t, 0, ev.Achieved.Len(), 1e-5)
	assert.InDelta(t, push.Len(), ev.Residual.Len(), 1e-5)

	fw, ok := f.forwarded(core.LeftHand)
	require.True(t, ok)
	assert.Equal(t, core.LeftLowerArm, fw.To)
	assert.InDelta(t, push.X(), fw.Residual.X(), 1e-5)

	rot := f.m.GetRotation(core.LeftHand)
	assert.InDelta(t, 0, rot.Len(), 1e-3)
}

func TestExecute_PushBeyondLimitStopsAtBoundAndForwards(t *testing.T) {
	f := newFixture(t)
	tip := f.sk.WorldPosition(core.LeftHand).Add(mgl32.Vec3{0.1, 0, 0})

	f.engine.Queue(core.LeftHand, tip, mgl32.Vec3{0, 0, 1}, nil, true, false)
	stats := f.engine.Execute()

	assert.InDelta(t, -30, f.m.GetRotation(core.LeftHand).Y(), 1e-2)

	fw, ok := f.forwarded(core.LeftHand)
	require.True(t, ok)
	assert.Equal(t, core.LeftLowerArm, fw.To)
	assert.InDelta(t, 0.95, fw.Residual.Z(), 1e-3)
	assert.Greater(t, stats.Forwarded, 0)

	_, ok = f.resolved(core.LeftLowerArm)
	assert.True(t, ok, "the forearm picks the residual up")
}

func TestExecute_ForearmPushFoldsElbow(t *testing.T) {
	f := newFixture(t)
	hand := f.sk.WorldPosition(core.LeftHand)

	f.engine.Queue(core.LeftLowerArm, hand, mgl32.Vec3{-0.2, 0, 0}, nil, true, false)
	f.engine.Execute()

	reach := f.sk.WorldPosition(core.LeftHand).Sub(f.sk.WorldPosition(core.LeftUpperArm)).Len()
	assert.InDelta(t, 0.33, reach, 0.02)
	assert.InDelta(t, -103.2, f.m.GetRotation(core.LeftLowerArm).Y(), 2)
	assert.Greater(t, f.m.GetRotation(core.LeftUpperArm).Y(), float32(30))
}

func TestExecute_OrientationForwardsUnmetRotation(t *testing.T) {
	f := newFixture(t)
	target := mgl32.QuatRotate(mgl32.DegToRad(100), mgl32.Vec3{1, 0, 0})

	c := f.engine.Queue(core.LeftHand, f.sk.WorldPosition(core.LeftHand), mgl32.Vec3{}, &target, true, false)
	require.NotNil(t, c)
	f.engine.Execute()

	assert.InDelta(t, 60, f.m.GetRotation(core.LeftHand).X(), 1e-2)
	assert.InDelta(t, 40, f.m.GetRotation(core.LeftLowerArm).X(), 1e-1)
	got := f.sk.WorldRotation(core.LeftHand)
	assert.True(t, got.ApproxEqualThreshold(target, 1e-3) || got.ApproxEqualThreshold(target.Scale(-1), 1e-3), "got %v", got)
}

func TestExecute_MergesContactsOnOneJoint(t *testing.T) {
	f := newFixture(t)
	arm := f.sk.WorldPosition(core.LeftUpperArm)

	f.engine.Queue(core.LeftUpperArm, arm.Add(mgl32.Vec3{0.05, 0, 0}), mgl32.Vec3{0, 0, 0.02}, nil, true, false)
	f.engine.Queue(core.LeftUpperArm, arm.Add(mgl32.Vec3{0.25, 0, 0}), mgl32.Vec3{0, 0, 0.04}, nil, true, false)
	stats := f.engine.Execute()

	assert.Equal(t, 2, stats.Queued)
	assert.GreaterOrEqual(t, stats.Merged, 1)
	assert.Less(t, f.m.GetRotation(core.LeftUpperArm).Y(), float32(0), "both contacts swing the arm forward")
	assert.Equal(t, stats, f.engine.Stats())
	assert.Equal(t, 0, f.engine.Pending())
}

func TestExecute_DropsCapsulelessTasks(t *testing.T) {
	f := newFixture(t)
	f.engine.Enqueue(&force.Single{Bone: core.Neck, Force: mgl32.Vec3{0, 0, 0.1}, Push: true})
	f.engine.Enqueue(&force.Single{Bone: core.HumanBone(42), Force: mgl32.Vec3{0, 0, 0.1}, Push: true})
	f.engine.Enqueue(nil)

	stats := f.engine.Execute()
	assert.Equal(t, 2, stats.Dropped)
	assert.Equal(t, mgl32.Vec3{}, f.m.GetRotation(core.Neck))
}

func TestExecute_RootTranslationKeepsFeetPlanted(t *testing.T) {
	f := newFixture(t)
	hips := f.sk.WorldPosition(core.Hips)
	foot := f.sk.WorldPosition(core.LeftFoot)

	// The bottom of the hips capsule: everything goes to the legs.
	f.engine.Queue(core.Hips, hips.Sub(mgl32.Vec3{0, 0.14, 0}), mgl32.Vec3{0.05, 0, 0}, nil, true, true)
	f.engine.Execute()

	assert.InDelta(t, 0.05, f.sk.WorldPosition(core.Hips).Sub(hips).X(), 1e-5)
	assert.Less(t, f.sk.WorldPosition(core.LeftFoot).Sub(foot).Len(), float32(0.005))
	assert.True(t, f.sk.WorldRotation(core.Hips).ApproxEqualThreshold(mgl32.QuatIdent(), 1e-6))
}

func TestExecute_RootTurnKeepsFeetPlanted(t *testing.T) {
	f := newFixture(t)
	hips := f.sk.WorldPosition(core.Hips)
	foot := f.sk.WorldPosition(core.LeftFoot)
	neck := f.sk.ToLocal(core.Hips, f.sk.WorldPosition(core.Neck))

	turn := mgl32.QuatRotate(mgl32.DegToRad(10), mgl32.Vec3{1, 0, 0})
	f.engine.Queue(core.Hips, hips.Sub(mgl32.Vec3{0, 0.24, 0}), mgl32.Vec3{}, &turn, false, true)
	f.engine.Execute()

	assert.True(t, f.sk.WorldRotation(core.Hips).ApproxEqualThreshold(turn, 1e-4))
	assert.Less(t, f.sk.WorldPosition(core.LeftFoot).Sub(foot).Len(), float32(0.005))
	assert.Less(t, f.sk.ToLocal(core.Hips, f.sk.WorldPosition(core.Neck)).Sub(neck).Len(), float32(1e-4), "the spine stays straight")
}

func TestExecute_RootPinnedWithoutTranslation(t *testing.T) {
	f := newFixture(t)
	hips := f.sk.WorldPosition(core.Hips)
	neck := f.sk.WorldPosition(core.Neck)

	f.engine.Queue(core.Hips, hips.Add(mgl32.Vec3{0, 0.14, 0}), mgl32.Vec3{0, 0, 0.05}, nil, true, false)
	f.engine.Execute()

	assert.Equal(t, hips, f.sk.WorldPosition(core.Hips))
	assert.Greater(t, f.sk.WorldPosition(core.Neck).Sub(neck).Z(), float32(0.01), "the upper body bends away")
}

func TestExecute_PullFeedbackHoldsTheContact(t *testing.T) {
	run := func(feedback bool) (float32, force.Stats) {
		settings := force.DefaultSettings()
		settings.Feedback = feedback
		f := newFixture(t, force.WithSettings(settings))
		tip := f.sk.WorldPosition(core.LeftHand).Add(mgl32.Vec3{0.1, 0, 0})
		local := f.sk.ToLocal(core.LeftHand, tip)
		goal := tip.Add(mgl32.Vec3{0, 0.05, 0})

		f.engine.Queue(core.LeftHand, tip, goal.Sub(tip), nil, false, false)
		stats := f.engine.Execute()
		return f.sk.ToWorld(core.LeftHand, local).Sub(goal).Len(), stats
	}

	without, stats := run(false)
	assert.Equal(t, 0, stats.Feedback)
	with, stats := run(true)
	assert.LessOrEqual(t, stats.Feedback, 1)
	assert.Less(t, with, float32(0.05))
	assert.LessOrEqual(t, with, without+1e-4)
}
