package puppet

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/puppet/internal/config"
	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/posture"
)

func newReactionApp(t *testing.T) (*App, *Reaction) {
	t.Helper()
	mod, err := NewReactionModule(config.NewDefaultConfig(), nil)
	require.NoError(t, err)
	app := NewAppBuilder().
		UseModule(TimeModule{}, mod).
		Build()
	r, ok := Resource[Reaction](app)
	require.True(t, ok)
	require.Same(t, mod.Reaction(), r)
	return app, r
}

func TestReactionModule_PushMovesTheArm(t *testing.T) {
	app, r := newReactionApp(t)

	before := r.Rig.Skeleton.WorldPosition(core.LeftHand)
	c := r.Push(core.LeftHand, mgl32.Vec3{0, 0, 0.05}, false)
	require.NotNil(t, c)
	assert.Equal(t, core.LeftHand, c.Bone)
	assert.False(t, c.Hold)

	app.Step(16 * time.Millisecond)

	after := r.Rig.Skeleton.WorldPosition(core.LeftHand)
	assert.Greater(t, after.Z()-before.Z(), float32(0.01))
	assert.Equal(t, 1, r.Totals().Queued)
	assert.GreaterOrEqual(t, r.Totals().Executed, 1)
	assert.Zero(t, r.Rig.Engine.Pending())

	angles := r.Angles()
	var bent float32
	for _, b := range []core.HumanBone{core.LeftHand, core.LeftLowerArm, core.LeftUpperArm, core.LeftShoulder} {
		bent += angles[b].Len()
	}
	assert.Greater(t, bent, float32(1))
	assert.Equal(t, posture.Upright, r.Rig.Posture.State())
}

func TestReactionModule_QuietStepsChangeNothing(t *testing.T) {
	app, r := newReactionApp(t)
	pose := r.Rig.Skeleton.Snapshot()

	app.Run(10, 16*time.Millisecond)

	assert.Equal(t, pose, r.Rig.Skeleton.Snapshot())
	assert.Zero(t, r.Totals().Executed)
	assert.Equal(t, posture.Upright, r.Rig.Posture.State())
}

func TestReactionModule_CapsulelessBone(t *testing.T) {
	_, r := newReactionApp(t)
	assert.Nil(t, r.Pull(core.Neck, mgl32.Vec3{0, 0, 0.1}, false))
	assert.Zero(t, r.Rig.Engine.Pending())
}

func TestNewReactionModule_FailsClosed(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Posture.Gravity = -1
	mod, err := NewReactionModule(cfg, nil)
	assert.Nil(t, mod)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
