// Package posture watches the balance of the rig and, once the centroid
// leaves its support, drives a landing strategy through the force engine
// until the body is balanced again.
package posture

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/force"
	"github.com/gekko3d/puppet/rig/index"
)

type State int

const (
	Upright State = iota
	Falling
)

func (s State) String() string {
	if s == Falling {
		return "falling"
	}
	return "upright"
}

// GroundSampler estimates the lowest ground contact of the skeleton. The
// controller takes the floor height from it once, when control is enabled,
// and the support point on that floor on every tick.
type GroundSampler func(sk *core.Skeleton) (mgl32.Vec3, bool)

// FeetSampler averages the feet lying within tolerance of the lowest one.
func FeetSampler(tolerance float32) GroundSampler {
	return func(sk *core.Skeleton) (mgl32.Vec3, bool) {
		var pts []mgl32.Vec3
		for _, f := range feet {
			if sk.Has(f) {
				pts = append(pts, sk.WorldPosition(f))
			}
		}
		if len(pts) == 0 {
			return mgl32.Vec3{}, false
		}
		lowest := pts[0].Y()
		for _, p := range pts[1:] {
			if p.Y() < lowest {
				lowest = p.Y()
			}
		}
		var sum mgl32.Vec3
		n := 0
		for _, p := range pts {
			if p.Y()-lowest <= tolerance {
				sum = sum.Add(p)
				n++
			}
		}
		return sum.Mul(1 / float32(n)), true
	}
}

type Settings struct {
	// Thresholds bound the centroid offset from the ground point: X and Z
	// horizontally, Y as the drift of the height from its calibrated rest.
	Thresholds       mgl32.Vec3
	Gravity          float32
	MinFallHeight    float32
	MaxDurationScale float32
	StepLength       float32
	FootLift         float32
	GoalTolerance    float32
	GroundTolerance  float32
	// AngleStep is the increment in degrees of the landing point search.
	AngleStep float32
}

func DefaultSettings() Settings {
	return Settings{
		Thresholds:       mgl32.Vec3{0.15, 0.3, 0.15},
		Gravity:          9.81,
		MinFallHeight:    0.05,
		MaxDurationScale: 1.5,
		StepLength:       0.3,
		FootLift:         0.05,
		GoalTolerance:    0.02,
		GroundTolerance:  0.02,
		AngleStep:        1,
	}
}

// FallDuration is the free-fall time from height h, never shorter than the
// time from minHeight.
func FallDuration(h, minHeight, gravity float32) float32 {
	if h < minHeight {
		h = minHeight
	}
	if gravity <= 0 || h <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(2 * h / gravity)))
}

// Status is a snapshot of the controller.
type Status struct {
	Enabled  bool
	State    State
	Strategy Strategy
	Control  core.HumanBone
	Goal     mgl32.Vec3
	Elapsed  float32
	Duration float32
	// Landed is set once a hand or hips landing reached its goal; the body
	// rests there until it is balanced again.
	Landed bool
}

type Option func(*Controller)

func WithSettings(s Settings) Option {
	return func(c *Controller) { c.settings = s }
}

func WithGroundSampler(g GroundSampler) Option {
	return func(c *Controller) {
		if g != nil {
			c.sampler = g
		}
	}
}

func WithLogger(l core.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

type Controller struct {
	engine   *force.Engine
	idx      *index.Index
	sk       *core.Skeleton
	weights  [core.BoneCount]float32
	settings Settings
	sampler  GroundSampler
	logger   core.Logger

	enabled    bool
	state      State
	active     plan
	elapsed    float32
	restHeight float32
	floor      float32
	floorSet   bool
}

func New(engine *force.Engine, weights map[core.HumanBone]float32, opts ...Option) (*Controller, error) {
	if engine == nil {
		return nil, core.ConfigErrorf("posture controller needs a force engine")
	}
	c := &Controller{
		engine:   engine,
		idx:      engine.Index(),
		sk:       engine.Index().Skeleton(),
		settings: DefaultSettings(),
		logger:   core.NopLogger(),
	}
	var total float32
	for b, w := range weights {
		if !b.Valid() || w < 0 {
			return nil, core.ConfigErrorf("weight %g for %s", w, b)
		}
		if c.sk.Has(b) {
			c.weights[b] = w
			total += w
		}
	}
	if total <= 0 {
		return nil, core.ConfigErrorf("posture controller needs a positive weight on a skeleton joint")
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sampler == nil {
		c.sampler = FeetSampler(c.settings.GroundTolerance)
	}
	if c.settings.Gravity <= 0 || c.settings.MaxDurationScale <= 0 || c.settings.MinFallHeight < 0 {
		return nil, core.ConfigErrorf("posture settings out of range: %+v", c.settings)
	}
	return c, nil
}

// SetPostureControlState turns balance control on or off. Enabling needs the
// hips and both feet; disabling is refused while a landing is in progress.
func (c *Controller) SetPostureControlState(enabled bool) bool {
	if enabled {
		for _, b := range []core.HumanBone{core.Hips, core.LeftFoot, core.RightFoot} {
			if !c.sk.Has(b) {
				c.logger.Warnf("posture: cannot enable without %s", b)
				return false
			}
		}
		if !c.enabled {
			c.enabled = true
			c.reset()
			c.calibrate()
		}
		return true
	}
	if c.state == Falling && c.active.strategy != NoStrategy && !c.active.landed {
		return false
	}
	c.enabled = false
	c.reset()
	return true
}

func (c *Controller) reset() {
	c.state = Upright
	c.active = plan{control: core.NoBone}
	c.elapsed = 0
}

// calibrate latches the floor height under the current pose and records the
// centroid height above it as the rest.
func (c *Controller) calibrate() {
	g, ok := c.sampler(c.sk)
	if !ok {
		return
	}
	c.floor, c.floorSet = g.Y(), true
	c.restHeight = c.Centroid().Y() - c.floor
}


func (c *Controller) Enabled() bool { return c.enabled }
func (c *Controller) State() State  { return c.state }

func (c *Controller) Status() Status {
	return Status{
		Enabled:  c.enabled,
		State:    c.state,
		Strategy: c.active.strategy,
		Control:  c.active.control,
		Goal:     c.active.goal,
		Elapsed:  c.elapsed,
		Duration: c.active.duration,
		Landed:   c.active.landed,
	}
}

// Centroid is the weighted mean of the weighted joints' world positions.
func (c *Controller) Centroid() mgl32.Vec3 {
	var sum mgl32.Vec3
	var total float32
	for b, w := range c.weights {
		if w == 0 {
			continue
		}
		sum = sum.Add(c.sk.WorldPosition(core.HumanBone(b)).Mul(w))
		total += w
	}
	if total == 0 {
		return mgl32.Vec3{}
	}
	return sum.Mul(1 / total)
}

// Ground samples the current support point, on the latched floor once
// control has been enabled.
func (c *Controller) Ground() (mgl32.Vec3, bool) {
	g, ok := c.sampler(c.sk)
	if ok && c.floorSet {
		g[1] = c.floor
	}
	return g, ok
}

// Offset is the centroid relative to the ground point.
func (c *Controller) Offset() (mgl32.Vec3, bool) {
	g, ok := c.Ground()
	if !ok {
		return mgl32.Vec3{}, false
	}
	return c.Centroid().Sub(g), true
}

// Balanced reports whether offset lies within the thresholds.
func (c *Controller) Balanced(offset mgl32.Vec3) bool {
	t := c.settings.Thresholds
	if abs(offset.X()) > t.X() || abs(offset.Z()) > t.Z() {
		return false
	}
	return abs(offset.Y()-c.restHeight) <= t.Y()
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

// Tick advances the controller by dt seconds, queueing landing forces into the
// engine. The host runs the engine afterwards.
func (c *Controller) Tick(dt float32) {
	if !c.enabled {
		return
	}
	if dt < 0 || math.IsNaN(float64(dt)) || math.IsInf(float64(dt), 0) {
		c.logger.Warnf("posture: ignoring tick with dt %v", dt)
		return
	}
	ground, ok := c.Ground()
	if !ok {
		return
	}
	offset := c.Centroid().Sub(ground)

	switch c.state {
	case Upright:
		if !c.Balanced(offset) {
			c.state = Falling
			c.begin(ground, offset)
		}
	case Falling:
		if c.active.landed {
			if c.Balanced(offset) {
				c.logger.Infof("posture: balanced again after %s, upright", c.active.strategy)
				c.reset()
			}
			return
		}
		c.elapsed += dt
		cur := c.sk.WorldPosition(c.active.control)
		reached := c.active.control != core.NoBone && c.reached(cur)
		if c.active.control == core.NoBone || reached || c.elapsed >= c.active.duration*c.settings.MaxDurationScale {
			if c.Balanced(offset) {
				c.logger.Infof("posture: %s finished, upright", c.active.strategy)
				c.reset()
				return
			}
			if reached && c.active.strategy.lands() {
				c.active.landed = true
				c.logger.Infof("posture: landed on %s after %.3fs", c.active.control, c.elapsed)
				return
			}
			c.begin(ground, offset)
			return
		}
		c.drive(cur, dt)
	}
}

func (c *Controller) begin(ground, offset mgl32.Vec3) {
	s := c.classify(offset)
	p, ok := c.plan(s, ground, offset)
	if !ok && s != LandOnFoot {
		s = LandOnFoot
		p, ok = c.plan(s, ground, offset)
	}
	c.elapsed = 0
	if !ok {
		c.logger.Warnf("posture: no control point for %s", s)
		c.active = plan{control: core.NoBone}
		return
	}
	c.active = p
	c.logger.Infof("posture: falling, %s via %s over %.3fs", s, p.control, p.duration)
}

// drive moves the control point toward the goal by the share of the
// remaining time dt covers.
func (c *Controller) drive(cur mgl32.Vec3, dt float32) {
	remaining := c.active.duration - (c.elapsed - dt)
	factor := float32(1)
	if remaining > dt {
		factor = core.Clampf(dt/remaining, 0, 1)
	}

	switch c.active.strategy {
	case LandOnHand:
		c.topple(factor)
	case LandOnHips:
		c.lower(cur, factor)
	case LandOnFoot:
		c.step(cur, factor)
	case NoStrategy:
	default:
		panic("posture: unknown strategy")
	}
}

// topple tips the body about the support point by its share of the landing
// angle. The hips turn and move as one root task, the legs keep the feet.
func (c *Controller) topple(factor float32) {
	tp := &c.active.tip
	tp.turned += (tp.angle - tp.turned) * factor
	hips, rot := tp.pose(tp.turned)
	force := hips.Sub(c.sk.WorldPosition(core.Hips))
	if c.engine.Queue(core.Hips, c.seat(), force, &rot, false, true) == nil {
		c.logger.Debugf("posture: hips cannot be tipped")
	}
}

// lower moves the whole body so the hips drop toward the goal.
func (c *Controller) lower(cur mgl32.Vec3, factor float32) {
	pull := c.active.goal.Sub(cur).Mul(factor)
	if pull.Len() <= core.Epsilon {
		return
	}
	if c.engine.Queue(core.Hips, c.seat(), pull, nil, false, true) == nil {
		c.logger.Debugf("posture: hips cannot be lowered")
	}
}

// step pulls a foot through the leg alone; whatever the leg cannot reach
// never moves the root.
func (c *Controller) step(cur mgl32.Vec3, factor float32) {
	pull := c.active.goal.Sub(cur).Mul(factor)
	if pull.Len() <= core.Epsilon {
		return
	}
	if c.engine.Queue(c.active.control, cur, pull, nil, false, false) == nil {
		c.logger.Debugf("posture: %s cannot be driven", c.active.control)
	}
}

// seat is a contact below the hips capsule, so root tasks issued from it are
// taken up entirely by the legs and leave the spine straight.
func (c *Controller) seat() mgl32.Vec3 {
	capsule, _ := c.idx.Capsule(core.Hips)
	center, axis := c.idx.CapsuleWorld(capsule)
	return center.Sub(axis.Mul(capsule.Length/2 + capsule.Radius))
}
