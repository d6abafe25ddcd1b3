package puppet

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/internal/config"
	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/force"
	"github.com/gekko3d/puppet/rig/posture"
)

// Reaction is the rig resource. Hosts queue contacts on it between steps;
// each step runs posture control, then resolves everything queued.
type Reaction struct {
	Rig *config.Rig

	logger Logger
	totals force.Stats
	state  posture.State
}

// Push queues a push at the world center of the bone's capsule.
func (r *Reaction) Push(b core.HumanBone, f mgl32.Vec3, allowTranslation bool) *force.Contact {
	return r.queueAtCapsule(b, f, true, allowTranslation)
}

// Pull queues a pull at the world center of the bone's capsule.
func (r *Reaction) Pull(b core.HumanBone, f mgl32.Vec3, allowTranslation bool) *force.Contact {
	return r.queueAtCapsule(b, f, false, allowTranslation)
}

func (r *Reaction) queueAtCapsule(b core.HumanBone, f mgl32.Vec3, push, allowTranslation bool) *force.Contact {
	c, ok := r.Rig.Index.Capsule(b)
	if !ok {
		r.logger.Warnf("reaction: %s has no capsule to touch", b)
		return nil
	}
	center, _ := r.Rig.Index.CapsuleWorld(c)
	return r.Rig.Engine.Queue(b, center, f, nil, push, allowTranslation)
}

// Angles reads the current angle of every joint the skeleton has.
func (r *Reaction) Angles() map[core.HumanBone]mgl32.Vec3 {
	out := make(map[core.HumanBone]mgl32.Vec3)
	for _, b := range r.Rig.Skeleton.Bones() {
		out[b] = r.Rig.Manipulator.GetRotation(b)
	}
	return out
}

// Totals sums the engine counters over every step so far.
func (r *Reaction) Totals() force.Stats { return r.totals }

type ReactionModule struct {
	reaction *Reaction
}

// NewReactionModule assembles the rig described by cfg. Assembly failures are
// returned and nothing is installed.
func NewReactionModule(cfg *config.Config, logger Logger, opts ...config.BuildOption) (*ReactionModule, error) {
	if logger == nil {
		logger = NewNopLogger()
	}
	rig, err := config.Build(cfg, append([]config.BuildOption{config.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &ReactionModule{reaction: &Reaction{Rig: rig, logger: logger}}, nil
}

func (m *ReactionModule) Reaction() *Reaction { return m.reaction }

func (m *ReactionModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(m.reaction)
	cmd.UseSystem(System(postureSystem).InStage(PreUpdate))
	cmd.UseSystem(System(forceSystem).InStage(Update))
	cmd.UseSystem(System(reportSystem).InStage(PostUpdate))
}

func postureSystem(t *Time, r *Reaction) {
	r.Rig.Posture.Tick(t.Seconds())
}

func forceSystem(r *Reaction) {
	s := r.Rig.Engine.Execute()
	r.totals.Queued += s.Queued
	r.totals.Executed += s.Executed
	r.totals.Merged += s.Merged
	r.totals.Forwarded += s.Forwarded
	r.totals.Dropped += s.Dropped
	r.totals.Feedback += s.Feedback
	r.totals.Moved += s.Moved
}

func reportSystem(r *Reaction) {
	if s := r.Rig.Engine.Stats(); s.Executed > 0 && r.logger.DebugEnabled() {
		r.logger.Debugf("reaction: %d executed, %d merged, %d forwarded, %d dropped, moved %.4f",
			s.Executed, s.Merged, s.Forwarded, s.Dropped, s.Moved)
	}
	if st := r.Rig.Posture.Status(); st.State != r.state {
		r.logger.Infof("reaction: posture %s -> %s (%s)", r.state, st.State, st.Strategy)
		r.state = st.State
	}
}
