package force

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

func (e *Engine) executeSingle(t *Single) {
	b := t.Bone
	if !e.sk.Has(b) || !e.idx.HasCapsule(b) {
		e.stats.Dropped++
		return
	}
	if b == e.sk.Root() {
		e.executeRoot(t)
		return
	}

	local := e.sk.ToLocal(b, t.Contact)
	if !t.derived && !t.Push && t.Force.Len() > e.settings.ResidualEpsilon {
		e.feedback = append(e.feedback, Feedback{Bone: b, Goal: t.Contact.Add(t.Force), Local: local})
	}

	spinLeft := e.applySpin(t)
	contact := e.sk.ToWorld(b, local)

	var achieved mgl32.Vec3
	if t.Force.Len() > e.settings.ResidualEpsilon {
		ok := false
		if b.IsLowerLimb() {
			achieved, ok = e.triangulate(b, t.Force)
		}
		if !ok {
			achieved = e.resolveGeneral(b, contact, t.Force)
		}
	}
	rest := residual(t.Force, achieved, t.Push)
	e.stats.Moved += achieved.Len()
	if e.trace != nil {
		e.trace(Event{Bone: b, To: b, Force: t.Force, Achieved: achieved, Residual: rest})
	}
	e.forward(t, e.sk.ToWorld(b, local), rest, spinLeft)
}

// applySpin rotates b toward the task's orientation and any rotation owed by
// descendants, returning the world rotation still unmet.
func (e *Engine) applySpin(t *Single) *mgl32.Quat {
	want := mgl32.QuatIdent()
	has := false
	if t.Orientation != nil {
		want = t.Orientation.Mul(e.sk.WorldRotation(t.Bone).Conjugate()).Normalize()
		has = true
	}
	if t.spin != nil {
		want = want.Mul(*t.spin).Normalize()
		has = true
	}
	if !has || core.QuatAngle(want) <= e.settings.RotationEpsilon {
		return nil
	}

	before := e.sk.WorldRotation(t.Bone)
	e.m.RotateWorld(t.Bone, want)
	done := e.sk.WorldRotation(t.Bone).Mul(before.Conjugate())
	left := want.Mul(done.Conjugate()).Normalize()
	return &left
}

// resolveGeneral tilts b so the contact follows the part of force
// perpendicular to the bone, then twists it about the bone for whatever the
// tilt left unmet. It returns the contact's world displacement.
func (e *Engine) resolveGeneral(b core.HumanBone, contact, force mgl32.Vec3) mgl32.Vec3 {
	gp := e.idx.MustGroupProperty(b)
	capsule, _ := e.idx.Capsule(b)
	axis := e.idx.Limits().Axis(b).Unit()
	rot := e.sk.WorldRotation(b)
	attached := e.sk.ToLocal(b, contact)
	x := e.idx.ToLocalPosition(gp, contact)
	fl := rot.Conjugate().Rotate(force)

	h := x.Dot(axis)
	along := axis.Mul(h)
	perp := core.Reject(fl, axis)
	if float32(math.Abs(float64(h))) > core.Epsilon && perp.Len() > core.Epsilon {
		from := rot.Rotate(along)
		to := rot.Rotate(along.Add(perp))
		e.m.RotateWorld(b, mgl32.QuatBetweenVectors(from, to))
	}
	moved := e.sk.ToWorld(b, attached).Sub(contact)

	threshold := capsule.Radius * e.settings.TwistRadiusScale
	moment := x.Add(fl)
	if core.Reject(x, axis).Len() > threshold && core.Reject(moment, axis).Len() > threshold {
		angle, ok := core.SignedAngle(x, moment, axis)
		if ok && float32(math.Abs(float64(angle))) <= e.settings.MaxTwist {
			n2 := force.Dot(force)
			unmet := 1 - core.Clampf(moved.Dot(force)/n2, 0, 1)
			if twist := angle * unmet; float32(math.Abs(float64(twist))) > e.settings.RotationEpsilon {
				worldAxis := e.sk.WorldRotation(b).Rotate(axis)
				e.m.RotateWorld(b, mgl32.QuatRotate(mgl32.DegToRad(twist), worldAxis))
			}
		}
	}
	return e.sk.ToWorld(b, attached).Sub(contact)
}
