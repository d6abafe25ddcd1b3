package limit

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/puppet/rig/core"
)

func assertAngles(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], 1e-2, msgAndArgs...)
	}
}

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(map[core.HumanBone]Limit{
		core.LeftUpperArm: {Min: mgl32.Vec3{-90, -80, -60}, Max: mgl32.Vec3{90, 80, 100}, Axis: core.AxisX},
		core.Spine:        {Min: mgl32.Vec3{-40, -30, -20}, Max: mgl32.Vec3{40, 30, 20}, Axis: core.AxisY},
		core.LeftFoot:     {Min: mgl32.Vec3{-45, -30, -20}, Max: mgl32.Vec3{45, 30, 20}, Axis: core.AxisZ},
		core.Neck:         {Min: mgl32.Vec3{-90, -90, -150}, Max: mgl32.Vec3{90, 90, 150}, Axis: core.AxisY},
	})
	require.NoError(t, err)
	return m
}

func TestNew_RejectsInvertedLimits(t *testing.T) {
	_, err := New(map[core.HumanBone]Limit{
		core.Head: {Min: mgl32.Vec3{10, 0, 0}, Max: mgl32.Vec3{20, 0, 0}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestClamp(t *testing.T) {
	m := testModel(t)

	got := m.Clamp(core.Spine, mgl32.Vec3{100, -100, 5})
	assert.Equal(t, mgl32.Vec3{40, -30, 5}, got)

	// Unknown joints fall back to [-180, 180].
	got = m.Clamp(core.Jaw, mgl32.Vec3{170, -179, 30})
	assert.Equal(t, mgl32.Vec3{170, -179, 30}, got)
}

func TestToAngles_RoundTrip(t *testing.T) {
	m := testModel(t)

	cases := []struct {
		bone  core.HumanBone
		angle mgl32.Vec3
	}{
		{core.LeftUpperArm, mgl32.Vec3{10, -20, 30}},
		{core.LeftUpperArm, mgl32.Vec3{-85, 45, 95}},
		{core.Spine, mgl32.Vec3{15, 25, -10}},
		{core.LeftFoot, mgl32.Vec3{-30, 10, 15}},
		{core.Spine, mgl32.Vec3{}},
	}
	for _, tc := range cases {
		q := m.ToOrientation(tc.bone, tc.angle)
		assertAngles(t, tc.angle, m.ToAngles(tc.bone, q), "bone %s angle %v", tc.bone, tc.angle)
	}
}

func TestToOrientation_DeclaredAxisLast(t *testing.T) {
	m := testModel(t)

	// Rotating about the declared axis must not move the bone's own axis.
	tilted := m.ToOrientation(core.LeftUpperArm, mgl32.Vec3{0, 20, 30})
	twisted := m.ToOrientation(core.LeftUpperArm, mgl32.Vec3{70, 20, 30})

	a := tilted.Rotate(core.AxisX.Unit())
	b := twisted.Rotate(core.AxisX.Unit())
	assert.True(t, a.ApproxEqualThreshold(b, 1e-5), "axis moved: %v vs %v", a, b)
}

func TestToAngles_PicksNearerCandidate(t *testing.T) {
	m := testModel(t)

	// 120 degrees about Z on a Y-axis joint decomposes into (180, 180, 60) or (0, 0, 120).
	// The neck allows Z up to 150 but X only to 90, so the second candidate is exact.
	q := m.ToOrientation(core.Neck, mgl32.Vec3{0, 0, 120})
	assertAngles(t, mgl32.Vec3{0, 0, 120}, m.ToAngles(core.Neck, q))

	first, second := m.Candidates(core.Neck, q)
	assert.InDelta(t, 60, first[2], 1e-2)
	assert.InDelta(t, 120, second[2], 1e-2)
}

func TestToAngles_ClampsOutOfRange(t *testing.T) {
	m := testModel(t)

	q := m.ToOrientation(core.Spine, mgl32.Vec3{70, 0, 0})
	got := m.ToAngles(core.Spine, q)
	assert.True(t, m.Contains(core.Spine, got, 1e-3), "got %v", got)
	assert.InDelta(t, 40, got[0], 1e-2)
}

func TestRange(t *testing.T) {
	l := Limit{Min: mgl32.Vec3{-30, -5, 0}, Max: mgl32.Vec3{60, 5, 10}}
	neg, pos := l.Range()
	assert.Equal(t, mgl32.Vec3{30, 5, 0}, neg)
	assert.Equal(t, mgl32.Vec3{60, 5, 10}, pos)
}
