package force

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
)

// Triangulate splits the distance l between a limb's two ends into the bases
// of the two right triangles formed with the middle joint, where hl1 and hl2
// are the segment lengths. ok is false when no triangle exists.
func Triangulate(hl1, hl2, l float32) (l1, l2 float32, ok bool) {
	if l <= core.Epsilon || hl1 <= core.Epsilon || hl2 <= core.Epsilon {
		return 0, 0, false
	}
	a := hl1*hl1 - hl2*hl2
	if l <= float32(math.Abs(float64(a)))/l {
		return 0, 0, false
	}
	l1 = l/2 + a/(2*l)
	l2 = l/2 - a/(2*l)
	tol := 1e-5 * (hl1 + hl2)
	if l1 > hl1+tol || l2 > hl2+tol {
		return 0, 0, false
	}
	return l1, l2, true
}

func baseAngle(base, hyp float32) float64 {
	return math.Acos(float64(core.Clampf(base/hyp, -1, 1)))
}

// triangulate bends a lower limb so its far end follows force: the middle
// joint folds by the combined change of the two base angles and the upper
// joint counter-rotates by the change at its end. It reports the far end's
// world displacement and false when the target cannot be triangulated.
func (e *Engine) triangulate(b core.HumanBone, force mgl32.Vec3) (mgl32.Vec3, bool) {
	end := b.LimbEnd()
	upper := e.sk.Parent(b)
	if !e.sk.Has(end) || upper == core.NoBone {
		return mgl32.Vec3{}, false
	}

	c := e.sk.WorldPosition(end)
	j := e.sk.WorldPosition(b)
	u := e.sk.WorldPosition(upper)
	hl1 := c.Sub(j).Len()
	hl2 := j.Sub(u).Len()

	b1, b2, ok := Triangulate(hl1, hl2, c.Sub(u).Len())
	if !ok {
		return mgl32.Vec3{}, false
	}
	a1, a2, ok := Triangulate(hl1, hl2, c.Add(force).Sub(u).Len())
	if !ok {
		return mgl32.Vec3{}, false
	}
	d1 := baseAngle(a1, hl1) - baseAngle(b1, hl1)
	d2 := baseAngle(a2, hl2) - baseAngle(b2, hl2)
	if math.Abs(d1)+math.Abs(d2) < 1e-6 {
		return mgl32.Vec3{}, true
	}

	normal, ok := e.bendAxis(b, u, j, c)
	if !ok {
		return mgl32.Vec3{}, false
	}
	e.m.RotateWorld(upper, mgl32.QuatRotate(float32(d2), normal))
	e.m.RotateWorld(b, mgl32.QuatRotate(float32(-(d1+d2)), normal))
	return e.sk.WorldPosition(end).Sub(c), true
}

// bendAxis is the normal of the plane the limb folds in, oriented so a
// positive rotation of the lower segment opens the limb. A straight limb
// takes the plane from the joint's widest off-axis range.
func (e *Engine) bendAxis(b core.HumanBone, u, j, c mgl32.Vec3) (mgl32.Vec3, bool) {
	toUpper := u.Sub(j)
	toEnd := c.Sub(j)
	n := toUpper.Cross(toEnd)
	if n.Len() > 1e-4*toUpper.Len()*toEnd.Len() {
		return n.Normalize(), true
	}

	lim, ok := e.idx.Limits().Limit(b)
	if !ok {
		return mgl32.Vec3{}, false
	}
	p, q := lim.Axis.Others()
	bend := p
	if lim.Max[q]-lim.Min[q] > lim.Max[p]-lim.Min[p] {
		bend = q
	}
	fold := bend.Unit()
	if -lim.Min[bend] > lim.Max[bend] {
		fold = fold.Mul(-1)
	}
	// Folding is a negative rotation about the returned normal.
	return e.sk.ParentWorldRotation(b).Rotate(fold).Mul(-1), true
}
