package posture

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

// Strategy is the active landing plan while Falling.
type Strategy int

const (
	NoStrategy Strategy = iota
	LandOnHand
	LandOnHips
	LandOnFoot
)

func (s Strategy) String() string {
	switch s {
	case NoStrategy:
		return "none"
	case LandOnHand:
		return "land-on-hand"
	case LandOnHips:
		return "land-on-hips"
	case LandOnFoot:
		return "land-on-foot"
	}
	return "unknown"
}

// lands reports whether reaching the goal puts the body down on the ground.
func (s Strategy) lands() bool {
	switch s {
	case LandOnHand, LandOnHips:
		return true
	case NoStrategy, LandOnFoot:
		return false
	}
	panic("posture: unknown strategy")
}

// plan is what a strategy drives: one control joint toward one goal.
type plan struct {
	strategy Strategy
	control  core.HumanBone
	goal     mgl32.Vec3
	duration float32
	tip      tipping
	landed   bool
}

// tipping is the rigid turn of the body about the support point that brings
// the control point to the ground.
type tipping struct {
	pivot  mgl32.Vec3
	axis   mgl32.Vec3
	angle  float32
	turned float32
	hips   mgl32.Vec3
	rot    mgl32.Quat
}

// pose returns the hips position and orientation after turning by deg. The
// hips stay on the floor once the turn would take them below it.
func (t tipping) pose(deg float32) (mgl32.Vec3, mgl32.Quat) {
	q := mgl32.QuatRotate(mgl32.DegToRad(deg), t.axis)
	hips := t.pivot.Add(q.Rotate(t.hips.Sub(t.pivot)))
	if hips.Y() < t.pivot.Y() {
		hips[1] = t.pivot.Y()
	}
	return hips, q.Mul(t.rot).Normalize()
}

// carry returns where the world point p, fixed to the hips, ends up after
// turning by deg.
func (t tipping) carry(p mgl32.Vec3, deg float32) mgl32.Vec3 {
	hips, _ := t.pose(deg)
	return hips.Add(mgl32.QuatRotate(mgl32.DegToRad(deg), t.axis).Rotate(p.Sub(t.hips)))
}

var (
	hands = [...]core.HumanBone{core.LeftHand, core.RightHand}
	feet  = [...]core.HumanBone{core.LeftFoot, core.RightFoot}
	up    = mgl32.Vec3{0, 1, 0}
)

// fallDirection is the horizontal direction the centroid leans toward.
func (c *Controller) fallDirection(offset mgl32.Vec3) mgl32.Vec3 {
	d := mgl32.Vec3{offset.X(), 0, offset.Z()}
	if d.Len() > core.Epsilon {
		return d.Normalize()
	}
	fwd := c.forward()
	return mgl32.Vec3{fwd.X(), 0, fwd.Z()}.Normalize()
}

func (c *Controller) forward() mgl32.Vec3 {
	f := c.sk.WorldRotation(core.Hips).Rotate(mgl32.Vec3{0, 0, 1})
	if (mgl32.Vec3{f.X(), 0, f.Z()}).Len() < core.Epsilon {
		return mgl32.Vec3{0, 0, 1}
	}
	return f
}

// classify picks the landing strategy for the current pose.
func (c *Controller) classify(offset mgl32.Vec3) Strategy {
	if _, lifted := c.liftedFoot(); lifted {
		return LandOnFoot
	}
	if _, ok := c.usableHand(c.fallDirection(offset)); !ok {
		return LandOnFoot
	}
	horizontal := mgl32.Vec3{offset.X(), 0, offset.Z()}
	if horizontal.Dot(c.forward()) < 0 {
		return LandOnHips
	}
	return LandOnHand
}

func (c *Controller) lowestFoot() float32 {
	lowest := float32(0)
	first := true
	for _, f := range feet {
		if !c.sk.Has(f) {
			continue
		}
		y := c.sk.WorldPosition(f).Y()
		if first || y < lowest {
			lowest, first = y, false
		}
	}
	return lowest
}

// liftedFoot returns the foot clearly off the ground, if any.
func (c *Controller) liftedFoot() (core.HumanBone, bool) {
	lowest := c.lowestFoot()
	best := core.NoBone
	var height float32
	for _, f := range feet {
		if !c.sk.Has(f) {
			continue
		}
		h := c.sk.WorldPosition(f).Y() - lowest
		if h > c.settings.FootLift && h > height {
			best, height = f, h
		}
	}
	return best, best != core.NoBone
}

// usableHand returns the hand between foot and head height reaching furthest
// toward dir.
func (c *Controller) usableHand(dir mgl32.Vec3) (core.HumanBone, bool) {
	if !c.sk.Has(core.Head) {
		return core.NoBone, false
	}
	floor := c.lowestFoot()
	ceiling := c.sk.WorldPosition(core.Head).Y()
	com := c.Centroid()

	best := core.NoBone
	var reach float32
	for _, h := range hands {
		if !c.sk.Has(h) || !c.idx.HasCapsule(h) {
			continue
		}
		p := c.sk.WorldPosition(h)
		if p.Y() <= floor || p.Y() >= ceiling {
			continue
		}
		r := p.Sub(com).Dot(dir)
		if best == core.NoBone || r > reach {
			best, reach = h, r
		}
	}
	return best, best != core.NoBone
}

// plan builds the control target of s for the current pose.
func (c *Controller) plan(s Strategy, ground, offset mgl32.Vec3) (plan, bool) {
	dir := c.fallDirection(offset)
	com := c.Centroid()
	p := plan{strategy: s}

	switch s {
	case LandOnHand:
		h, ok := c.usableHand(dir)
		if !ok || !c.idx.HasCapsule(core.Hips) {
			return p, false
		}
		axis, ok := toppleAxis(com, ground, dir)
		if !ok {
			return p, false
		}
		p.control = h
		p.tip = tipping{
			pivot: ground,
			axis:  axis,
			hips:  c.sk.WorldPosition(core.Hips),
			rot:   c.sk.WorldRotation(core.Hips),
		}
		hand := c.sk.WorldPosition(h)
		deg, ok := crossing(func(deg float32) float32 {
			return p.tip.carry(hand, deg).Y() - ground.Y()
		}, c.settings.AngleStep)
		if !ok {
			return p, false
		}
		p.tip.angle = deg
		p.goal = p.tip.carry(hand, deg)
		p.goal[1] = ground.Y()
	case LandOnHips:
		if !c.idx.HasCapsule(core.Hips) {
			return p, false
		}
		p.control = core.Hips
		p.goal = LandingPoint(c.sk.WorldPosition(core.Hips), com, ground, dir, c.settings.AngleStep)
	case LandOnFoot:
		f, lifted := c.liftedFoot()
		if !lifted {
			f = c.trailingFoot(dir)
		}
		if f == core.NoBone {
			return p, false
		}
		p.control = f
		pos := c.sk.WorldPosition(f)
		reach := mgl32.Vec3{offset.X(), 0, offset.Z()}.Len()
		if reach < c.settings.StepLength {
			reach = c.settings.StepLength
		}
		p.goal = pos.Add(dir.Mul(reach))
		p.goal[1] = ground.Y()
	case NoStrategy:
		return p, false
	default:
		panic("posture: unknown strategy")
	}

	h := c.sk.WorldPosition(p.control).Y() - ground.Y()
	p.duration = FallDuration(h, c.settings.MinFallHeight, c.settings.Gravity)
	return p, true
}

// trailingFoot is the foot furthest behind the fall direction.
func (c *Controller) trailingFoot(dir mgl32.Vec3) core.HumanBone {
	best := core.NoBone
	var lag float32
	for _, f := range feet {
		if !c.sk.Has(f) {
			continue
		}
		l := -c.sk.WorldPosition(f).Dot(dir)
		if best == core.NoBone || l > lag {
			best, lag = f, l
		}
	}
	return best
}

// reached reports whether the control point made it to the goal.
func (c *Controller) reached(cur mgl32.Vec3) bool {
	tol := c.settings.GoalTolerance
	switch c.active.strategy {
	case LandOnFoot:
		d := cur.Sub(c.active.goal)
		return mgl32.Vec3{d.X(), 0, d.Z()}.Len() <= tol
	case LandOnHand, LandOnHips:
		return cur.Y() <= c.active.goal.Y()+tol
	case NoStrategy:
		return true
	default:
		panic("posture: unknown strategy")
	}
}

// toppleAxis is the axis the body tips about when falling toward dir: normal
// to the centroid line and dir, or to up and dir when those are parallel.
func toppleAxis(com, ground, dir mgl32.Vec3) (mgl32.Vec3, bool) {
	axis := com.Sub(ground).Cross(dir)
	if axis.Len() < core.Epsilon {
		axis = up.Cross(dir)
	}
	if axis.Len() < core.Epsilon {
		return mgl32.Vec3{}, false
	}
	return axis.Normalize(), true
}

// crossing searches half a turn in steps of stepDeg for the first angle at
// which height drops to zero, interpolating within the step.
func crossing(height func(deg float32) float32, stepDeg float32) (float32, bool) {
	if stepDeg <= 0 {
		stepDeg = 1
	}
	prev := height(0)
	if prev <= 0 {
		return 0, true
	}
	for deg := stepDeg; deg <= 180; deg += stepDeg {
		h := height(deg)
		if h <= 0 {
			return deg - stepDeg + stepDeg*prev/(prev-h), true
		}
		prev = h
	}
	return 0, false
}

// LandingPoint tips p as a rigid body toward dir about the ground point, the
// support the body pivots on, and returns where p first touches the ground.
// The axis is normal to the centroid line and dir. The pivot is the ground
// point rather than the centroid: turning about the centroid, a point reaches
// the ground only when its distance from the axis exceeds the centroid's
// height, which a hand at the side of a standing body never does. Without
// contact within half a turn it returns the lowest point passed.
func LandingPoint(p, com, ground, dir mgl32.Vec3, stepDeg float32) mgl32.Vec3 {
	axis, ok := toppleAxis(com, ground, dir)
	if !ok {
		return mgl32.Vec3{p.X(), ground.Y(), p.Z()}
	}
	tipped := func(deg float32) mgl32.Vec3 {
		return ground.Add(mgl32.QuatRotate(mgl32.DegToRad(deg), axis).Rotate(p.Sub(ground)))
	}
	if deg, ok := crossing(func(deg float32) float32 { return tipped(deg).Y() - ground.Y() }, stepDeg); ok {
		cand := tipped(deg)
		cand[1] = ground.Y()
		return cand
	}

	if stepDeg <= 0 {
		stepDeg = 1
	}
	lowest := p
	for deg := stepDeg; deg <= 180; deg += stepDeg {
		if cand := tipped(deg); cand.Y() < lowest.Y() {
			lowest = cand
		}
	}
	return lowest
}
