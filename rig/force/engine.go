// Package force turns per-tick contact forces into joint rotations. Tasks are
// executed joint by joint from the extremities toward the root; whatever a
// joint cannot absorb within its limits is forwarded to the next
// capsule-bearing ancestor.
package force

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/index"
	"github.com/gekko3d/puppet/rig/manip"
)

// Priority is the execution order: extremities first, root last. Every
// forwarding target comes after its source.
var Priority = []core.HumanBone{
	core.Head, core.Neck,
	core.LeftHand, core.RightHand,
	core.LeftLowerArm, core.RightLowerArm,
	core.LeftUpperArm, core.RightUpperArm,
	core.LeftShoulder, core.RightShoulder,
	core.LeftFoot, core.RightFoot,
	core.LeftLowerLeg, core.RightLowerLeg,
	core.LeftUpperLeg, core.RightUpperLeg,
	core.UpperChest, core.Chest, core.Spine,
	core.Hips,
}

// Settings tunes the resolution.
type Settings struct {
	// TwistRadiusScale scales the capsule radius below which a contact is too
	// close to the joint axis to twist it.
	TwistRadiusScale float32
	// MaxTwist is the largest twist in degrees a single contact may cause.
	MaxTwist float32
	// ResidualEpsilon is the force magnitude below which residuals are dropped.
	ResidualEpsilon float32
	// RotationEpsilon is the angle in degrees below which rotation residuals are dropped.
	RotationEpsilon float32
	// Feedback enables the pull correction pass.
	Feedback bool
}

func DefaultSettings() Settings {
	return Settings{
		TwistRadiusScale: 1,
		MaxTwist:         90,
		ResidualEpsilon:  1e-4,
		RotationEpsilon:  0.05,
		Feedback:         true,
	}
}

// Contact describes a queued contact for callers that render or track it.
type Contact struct {
	ID                 uuid.UUID
	Bone               core.HumanBone
	Hold               bool
	NormalizedPosition float32
	Axis               mgl32.Vec3
}

// Stats counts what happened during the last Execute.
type Stats struct {
	Queued    int
	Executed  int
	Merged    int
	Forwarded int
	Dropped   int
	Feedback  int
	// Moved is the summed magnitude of achieved contact displacement.
	Moved float32
}

// Event is reported to the trace hook for every resolved or forwarded task.
type Event struct {
	Bone     core.HumanBone
	To       core.HumanBone
	Force    mgl32.Vec3
	Achieved mgl32.Vec3
	Residual mgl32.Vec3
	Forward  bool
}

type Option func(*Engine)

func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

func WithLogger(l core.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTrace installs a hook called synchronously during Execute.
func WithTrace(fn func(Event)) Option {
	return func(e *Engine) { e.trace = fn }
}

type Engine struct {
	idx      *index.Index
	m        *manip.Manipulator
	sk       *core.Skeleton
	settings Settings
	logger   core.Logger
	trace    func(Event)

	queue    []Task
	pending  [core.BoneCount]Task
	feedback []Feedback
	stats    Stats
	last     Stats
}

func New(idx *index.Index, m *manip.Manipulator, opts ...Option) (*Engine, error) {
	if idx == nil || m == nil {
		return nil, core.ConfigErrorf("force engine needs an index and a manipulator")
	}
	if idx.Skeleton() != m.Skeleton() {
		return nil, core.ConfigErrorf("index and manipulator drive different skeletons")
	}
	e := &Engine{
		idx:      idx,
		m:        m,
		sk:       m.Skeleton(),
		settings: DefaultSettings(),
		logger:   core.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.settings.TwistRadiusScale < 0 || e.settings.ResidualEpsilon < 0 || e.settings.RotationEpsilon < 0 {
		return nil, core.ConfigErrorf("force settings must not be negative: %+v", e.settings)
	}
	if e.settings.MaxTwist <= 0 {
		e.settings.MaxTwist = 90
	}
	return e, nil
}

func (e *Engine) Settings() Settings              { return e.settings }
func (e *Engine) Index() *index.Index             { return e.idx }
func (e *Engine) Manipulator() *manip.Manipulator { return e.m }

// Stats returns the counters of the last Execute.
func (e *Engine) Stats() Stats { return e.last }

// Pending reports how many tasks wait for the next Execute.
func (e *Engine) Pending() int { return len(e.queue) }

// Queue records a contact for the next Execute. contact is the world point
// touched, force the world displacement it should make. A nil orientation
// leaves the joint's orientation to the force. Joints without a capsule
// cannot be touched and yield nil.
func (e *Engine) Queue(b core.HumanBone, contact, force mgl32.Vec3, orientation *mgl32.Quat, push, allowTranslation bool) *Contact {
	c, ok := e.idx.Capsule(b)
	if !ok {
		e.logger.Debugf("force: %s has no capsule, contact ignored", b)
		return nil
	}
	if !core.IsFinite(contact) || !core.IsFinite(force) {
		e.logger.Warnf("force: non-finite contact on %s ignored", b)
		return nil
	}
	task := &Single{
		Bone:             b,
		Contact:          contact,
		Force:            force,
		Push:             push,
		AllowTranslation: allowTranslation,
	}
	if orientation != nil {
		q := orientation.Normalize()
		task.Orientation = &q
	}
	e.queue = append(e.queue, task)

	_, axis := e.idx.CapsuleWorld(c)
	return &Contact{
		ID:                 uuid.New(),
		Bone:               b,
		Hold:               !push,
		NormalizedPosition: e.idx.NormalizedPosition(c, contact),
		Axis:               axis,
	}
}

// Enqueue adds a prepared task.
func (e *Engine) Enqueue(t Task) {
	if t == nil {
		return
	}
	e.queue = append(e.queue, t)
}

// Execute resolves everything queued since the last call.
func (e *Engine) Execute() Stats {
	e.stats = Stats{Queued: len(e.queue)}
	for _, t := range e.queue {
		e.submit(t)
	}
	e.queue = e.queue[:0]

	for _, b := range Priority {
		t := e.pending[b]
		if t == nil {
			continue
		}
		e.pending[b] = nil
		e.execute(t)
	}
	for b, t := range e.pending {
		if t != nil {
			e.logger.Debugf("force: task on %s outside the execution order dropped", core.HumanBone(b))
			e.stats.Dropped++
			e.pending[b] = nil
		}
	}

	if e.settings.Feedback {
		e.replayFeedback()
	}
	e.feedback = e.feedback[:0]

	e.last = e.stats
	return e.last
}

func (e *Engine) submit(t Task) {
	b := t.Target()
	if !b.Valid() {
		e.stats.Dropped++
		return
	}
	if e.pending[b] != nil {
		e.stats.Merged++
	}
	e.pending[b] = merge(e.pending[b], t)
}

func (e *Engine) execute(t Task) {
	switch t := t.(type) {
	case *Single:
		e.stats.Executed++
		e.executeSingle(t)
	case *Multi:
		e.stats.Executed++
		e.executeMulti(t)
	default:
		panic("force: unknown task type")
	}
}

// forward hands what b could not absorb to its capsule-bearing ancestor.
func (e *Engine) forward(from *Single, contact, rest mgl32.Vec3, spin *mgl32.Quat) {
	if from.replay {
		return
	}
	hasForce := rest.Len() > e.settings.ResidualEpsilon
	hasSpin := spin != nil && core.QuatAngle(*spin) > e.settings.RotationEpsilon
	if !hasForce && !hasSpin {
		return
	}
	to := e.idx.ForwardTarget(from.Bone)
	if e.trace != nil {
		e.trace(Event{Bone: from.Bone, To: to, Force: from.Force, Residual: rest, Forward: true})
	}
	if to == core.NoBone {
		e.stats.Dropped++
		return
	}
	next := &Single{
		Bone:             to,
		Contact:          contact,
		Push:             from.Push,
		AllowTranslation: from.AllowTranslation,
		derived:          true,
	}
	if hasForce {
		next.Force = rest
	}
	if hasSpin {
		next.spin = spin
	}
	e.stats.Forwarded++
	e.submit(next)
}

// residual is what remains of force after achieved; pushes only keep the part
// still pointing along the force.
func residual(force, achieved mgl32.Vec3, push bool) mgl32.Vec3 {
	rest := force.Sub(achieved)
	if !push {
		return rest
	}
	n := force.Len()
	if n < core.Epsilon {
		return mgl32.Vec3{}
	}
	dir := force.Mul(1 / n)
	along := rest.Dot(dir)
	if along <= 0 {
		return mgl32.Vec3{}
	}
	return dir.Mul(along)
}

func (e *Engine) replayFeedback() {
	if len(e.feedback) == 0 {
		return
	}
	for _, b := range Priority {
		if b.IsTorso() {
			break
		}
		for _, fb := range e.feedback {
			if fb.Bone != b || !e.sk.Has(b) {
				continue
			}
			current := e.sk.ToWorld(b, fb.Local)
			correction := fb.Goal.Sub(current)
			if correction.Len() <= e.settings.ResidualEpsilon {
				continue
			}
			e.stats.Feedback++
			e.executeSingle(&Single{Bone: b, Contact: current, Force: correction, derived: true, replay: true})
		}
	}
}
