package force

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

// executeMulti reduces concurrent contacts on one joint to one consensus
// rotation about the group origin plus the shift of the origin the rotation
// leaves unexplained, then resolves that as a single task.
func (e *Engine) executeMulti(t *Multi) {
	switch len(t.Contacts) {
	case 0:
		return
	case 1:
		e.executeSingle(t.Contacts[0])
		return
	}
	b := t.Bone
	gp, ok := e.idx.GroupProperty(b)
	if !ok || gp.Empty() || !e.sk.Has(b) {
		e.stats.Dropped++
		return
	}

	rot := e.sk.WorldRotation(b)
	inv := rot.Conjugate()
	from := make([]mgl32.Vec3, len(t.Contacts))
	to := make([]mgl32.Vec3, len(t.Contacts))
	combined := &Single{Bone: b, Push: true, derived: true}
	for i, c := range t.Contacts {
		from[i] = e.idx.ToLocalPosition(gp, c.Contact)
		to[i] = from[i].Add(inv.Rotate(c.Force))

		combined.Push = combined.Push && c.Push
		combined.AllowTranslation = combined.AllowTranslation || c.AllowTranslation
		if combined.Orientation == nil && c.Orientation != nil {
			combined.Orientation = c.Orientation
		}
		if c.spin != nil {
			if combined.spin == nil {
				q := *c.spin
				combined.spin = &q
			} else {
				q := c.spin.Mul(*combined.spin).Normalize()
				combined.spin = &q
			}
		}
		if !c.derived && !c.Push && c.Force.Len() > e.settings.ResidualEpsilon {
			e.feedback = append(e.feedback, Feedback{
				Bone:  b,
				Goal:  c.Contact.Add(c.Force),
				Local: e.sk.ToLocal(b, c.Contact),
			})
		}
	}

	turn := ConsensusTurn(from, to)
	rotated := make([]mgl32.Vec3, len(from))
	for i := range from {
		rotated[i] = turn.Rotate(from[i])
	}
	// What the rotation cannot explain moves the origin and is left for the
	// ancestors.
	shift := ConsensusShift(rotated, to)
	if core.QuatAngle(turn) > e.settings.RotationEpsilon {
		world := rot.Mul(turn).Mul(inv).Normalize()
		if combined.spin != nil {
			world = world.Mul(*combined.spin).Normalize()
		}
		combined.spin = &world
	}
	combined.Contact = e.sk.WorldPosition(gp.Origin)
	combined.Force = rot.Rotate(shift)
	e.executeSingle(combined)
}

// ConsensusShift returns the displacement of the local origin implied by
// contacts moving from -> to. With two contacts straddling the origin on an
// axis, the displacement on that axis is interpolated at the origin;
// otherwise it is the mean displacement.
func ConsensusShift(from, to []mgl32.Vec3) mgl32.Vec3 {
	n := len(from)
	if n == 0 || len(to) != n {
		return mgl32.Vec3{}
	}
	var mean mgl32.Vec3
	for i := range from {
		mean = mean.Add(to[i].Sub(from[i]))
	}
	mean = mean.Mul(1 / float32(n))
	if n != 2 {
		return mean
	}

	shift := mean
	a, b := from[0], from[1]
	a2, b2 := to[0], to[1]
	for k := 0; k < 3; k++ {
		if a[k]*b[k] < 0 {
			shift[k] = (a[k]*b2[k] - b[k]*a2[k]) / (a[k] - b[k])
		}
	}
	return shift
}

// ConsensusTurn blends the rotation each contact implies about the origin by
// incremental normalised lerp.
func ConsensusTurn(from, to []mgl32.Vec3) mgl32.Quat {
	turn := mgl32.QuatIdent()
	count := 0
	for i := range from {
		if i >= len(to) {
			break
		}
		start := from[i]
		dest := to[i]
		if start.Len() < core.Epsilon || dest.Len() < core.Epsilon {
			continue
		}
		q := mgl32.QuatBetweenVectors(start, dest)
		count++
		if count == 1 {
			turn = q
			continue
		}
		if turn.Dot(q) < 0 {
			q = q.Scale(-1)
		}
		turn = mgl32.QuatNlerp(turn, q, 1/float32(count))
	}
	return turn.Normalize()
}
