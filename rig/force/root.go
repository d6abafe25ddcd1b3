package force

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

// HipsBlend splits a root contact between the spine and the legs. ratio is
// 0 at the bottom of the hips capsule, 1 at its center and 2 at its top.
func HipsBlend(ratio float32) (spine, legs float32) {
	ratio = core.Clampf(ratio, 0, 2)
	if ratio >= 1 {
		spine = 1 / (1 + (2 - ratio))
		return spine, 1 - spine
	}
	legs = 1 / (1 + ratio)
	return 1 - legs, legs
}

var legChains = [...][2]core.HumanBone{
	{core.LeftUpperLeg, core.LeftFoot},
	{core.RightUpperLeg, core.RightFoot},
}

// torsoTop is the highest joint of the upper body.
func (e *Engine) torsoTop() core.HumanBone {
	for _, b := range []core.HumanBone{core.Neck, core.UpperChest, core.Chest} {
		if e.sk.Has(b) {
			return b
		}
	}
	return core.NoBone
}

// executeRoot never rotates the hips for a force. When the whole body may
// move the root turns toward any requested orientation and translates, and the
// legs and spine counter-rotate, weighted by where the contact sits on the
// hips; otherwise only the spine bends.
func (e *Engine) executeRoot(t *Single) {
	b := t.Bone
	f := t.Force
	moves := f.Len() > e.settings.ResidualEpsilon

	var feet [len(legChains)]mgl32.Vec3
	turned := false
	if t.AllowTranslation {
		for i, leg := range legChains {
			if e.sk.Has(leg[1]) {
				feet[i] = e.sk.WorldPosition(leg[1])
			}
		}
		before := e.sk.WorldRotation(b)
		e.applySpin(t)
		turned = core.QuatAngle(e.sk.WorldRotation(b).Mul(before.Conjugate())) > e.settings.RotationEpsilon
	}
	if !moves && !turned {
		return
	}

	capsule, _ := e.idx.Capsule(b)
	center, axis := e.idx.CapsuleWorld(capsule)
	v := t.Contact.Sub(center).Dot(axis)
	spineShare, legShare := HipsBlend(1 + v/capsule.Radius)

	top := e.torsoTop()
	hasSpine := e.sk.Has(core.Spine) && top != core.NoBone

	var achieved mgl32.Vec3
	if t.AllowTranslation {
		var topBefore mgl32.Vec3
		if hasSpine {
			topBefore = e.sk.WorldPosition(top)
		}
		if moves {
			e.sk.Translate(f)
			achieved = f
		}

		if legShare > 0 {
			for i, leg := range legChains {
				if !e.sk.Has(leg[0]) || !e.sk.Has(leg[1]) {
					continue
				}
				hip := e.sk.WorldPosition(leg[0])
				full := mgl32.QuatBetweenVectors(e.sk.WorldPosition(leg[1]).Sub(hip), feet[i].Sub(hip))
				e.m.RotateWorld(leg[0], mgl32.QuatSlerp(mgl32.QuatIdent(), full, legShare))
			}
		}
		if hasSpine && moves && spineShare > 0 {
			base := e.sk.WorldPosition(core.Spine)
			full := mgl32.QuatBetweenVectors(e.sk.WorldPosition(top).Sub(base), topBefore.Sub(base))
			e.m.RotateWorld(core.Spine, mgl32.QuatSlerp(mgl32.QuatIdent(), full, spineShare))
		}
	} else if hasSpine && moves && spineShare > 0 {
		base := e.sk.WorldPosition(core.Spine)
		before := e.sk.WorldPosition(top)
		goal := before.Add(f.Mul(spineShare))
		e.m.RotateWorld(core.Spine, mgl32.QuatBetweenVectors(before.Sub(base), goal.Sub(base)))
		achieved = e.sk.WorldPosition(top).Sub(before)
	}

	e.stats.Moved += achieved.Len()
	rest := residual(f, achieved, t.Push)
	if e.trace != nil {
		e.trace(Event{Bone: b, To: b, Force: f, Achieved: achieved, Residual: rest})
	}
	if rest.Len() > e.settings.ResidualEpsilon {
		e.logger.Debugf("force: %.4f of force left at the root", rest.Len())
	}
}
