// Package group distributes one control angle over a set of joints that
// rotate together, in proportion to each member's share of the group's limits.
package group

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/limit"
)

// Def declares a bone group.
type Def struct {
	Name    string
	Members []core.HumanBone
}

// MemberAngle is one member's share of a group angle.
type MemberAngle struct {
	Bone  core.HumanBone
	Angle mgl32.Vec3
}

// Ratios is a member's fraction of the group extent, per axis, for each side.
type Ratios struct {
	Neg mgl32.Vec3
	Pos mgl32.Vec3
}

func (r Ratios) apply(angle mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		if angle[i] < 0 {
			out[i] = angle[i] * r.Neg[i]
		} else {
			out[i] = angle[i] * r.Pos[i]
		}
	}
	return out
}

// Group is immutable after construction.
type Group struct {
	name    string
	members []core.HumanBone
	ratios  map[core.HumanBone]Ratios
	// based[baseline][member] = ratio(member) / ratio(baseline)
	based map[core.HumanBone]map[core.HumanBone]Ratios
}

func newGroup(def Def, limits *limit.Model, present func(core.HumanBone) bool) *Group {
	g := &Group{
		name:    def.Name,
		members: append([]core.HumanBone(nil), def.Members...),
		ratios:  make(map[core.HumanBone]Ratios, len(def.Members)),
		based:   make(map[core.HumanBone]map[core.HumanBone]Ratios, len(def.Members)),
	}

	var totalNeg, totalPos mgl32.Vec3
	for _, b := range g.members {
		if !present(b) {
			continue
		}
		l, _ := limits.Limit(b)
		neg, pos := l.Range()
		totalNeg = totalNeg.Add(neg)
		totalPos = totalPos.Add(pos)
	}

	for _, b := range g.members {
		var r Ratios
		if present(b) {
			l, _ := limits.Limit(b)
			neg, pos := l.Range()
			for i := 0; i < 3; i++ {
				if totalNeg[i] != 0 {
					r.Neg[i] = neg[i] / totalNeg[i]
				}
				if totalPos[i] != 0 {
					r.Pos[i] = pos[i] / totalPos[i]
				}
			}
		}
		g.ratios[b] = r
	}

	// Every baseline is computed up front; groups never change afterwards.
	for _, base := range g.members {
		baseRatio := g.ratios[base]
		row := make(map[core.HumanBone]Ratios, len(g.members))
		for _, b := range g.members {
			r := g.ratios[b]
			var out Ratios
			for i := 0; i < 3; i++ {
				if baseRatio.Neg[i] != 0 {
					out.Neg[i] = r.Neg[i] / baseRatio.Neg[i]
				}
				if baseRatio.Pos[i] != 0 {
					out.Pos[i] = r.Pos[i] / baseRatio.Pos[i]
				}
			}
			row[b] = out
		}
		g.based[base] = row
	}
	return g
}

func (g *Group) Name() string { return g.name }

// Members returns the group's joints in declaration order.
func (g *Group) Members() []core.HumanBone {
	return append([]core.HumanBone(nil), g.members...)
}

// Contains reports whether b belongs to the group.
func (g *Group) Contains(b core.HumanBone) bool {
	_, ok := g.ratios[b]
	return ok
}

// Ratio returns the member's share; zero for absent joints.
func (g *Group) Ratio(b core.HumanBone) Ratios {
	return g.ratios[b]
}

// Apply splits a group angle into per-member angles, using the negative-side
// ratio for negative components and the positive-side ratio otherwise.
func (g *Group) Apply(groupAngle mgl32.Vec3) []MemberAngle {
	out := make([]MemberAngle, 0, len(g.members))
	for _, b := range g.members {
		out = append(out, MemberAngle{Bone: b, Angle: g.ratios[b].apply(groupAngle)})
	}
	return out
}

// GetRatiosBasedOn returns every member's ratio divided by the baseline's, so a
// rotation measured on the baseline can be spread across the whole group.
func (g *Group) GetRatiosBasedOn(baseline core.HumanBone) map[core.HumanBone]Ratios {
	return g.based[baseline]
}

// Redistribute spreads an angle measured on one member across the group.
func (g *Group) Redistribute(baseline core.HumanBone, measured mgl32.Vec3) []MemberAngle {
	row := g.based[baseline]
	if row == nil {
		return nil
	}
	out := make([]MemberAngle, 0, len(g.members))
	for _, b := range g.members {
		out = append(out, MemberAngle{Bone: b, Angle: row[b].apply(measured)})
	}
	return out
}

// Layer indexes every group by member.
type Layer struct {
	groups []*Group
	byBone [core.BoneCount]*Group
}

// NewLayer builds the groups. present reports which joints exist in the rig;
// nil treats every joint as present. A joint may belong to one group only.
func NewLayer(defs []Def, limits *limit.Model, present func(core.HumanBone) bool) (*Layer, error) {
	if limits == nil {
		return nil, core.ConfigErrorf("bone groups need a limit table")
	}
	if present == nil {
		present = func(core.HumanBone) bool { return true }
	}

	layer := &Layer{}
	for _, def := range defs {
		if len(def.Members) == 0 {
			return nil, core.ConfigErrorf("bone group %q has no members", def.Name)
		}
		for _, b := range def.Members {
			if !b.Valid() {
				return nil, core.ConfigErrorf("bone group %q has unknown member %d", def.Name, b)
			}
			if other := layer.byBone[b]; other != nil {
				return nil, core.ConfigErrorf("bone %s is in groups %q and %q", b, other.name, def.Name)
			}
		}
		g := newGroup(def, limits, present)
		for _, b := range def.Members {
			layer.byBone[b] = g
		}
		layer.groups = append(layer.groups, g)
	}
	return layer, nil
}

// GroupOf returns the group containing b.
func (l *Layer) GroupOf(b core.HumanBone) (*Group, bool) {
	if l == nil || !b.Valid() {
		return nil, false
	}
	g := l.byBone[b]
	return g, g != nil
}

// SameGroup reports whether a and b belong to one group.
func (l *Layer) SameGroup(a, b core.HumanBone) bool {
	ga, ok := l.GroupOf(a)
	if !ok || !b.Valid() {
		return false
	}
	return ga.Contains(b)
}

func (l *Layer) Groups() []*Group {
	return append([]*Group(nil), l.groups...)
}
