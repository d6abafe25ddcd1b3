// Package humanoid holds the stock static tables for a 1.7m humanoid in
// T-pose: Y up, facing +Z, left side on +X.
package humanoid

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/puppet/rig/core"
	"github.com/gekko3d/puppet/rig/group"
	"github.com/gekko3d/puppet/rig/index"
	"github.com/gekko3d/puppet/rig/limit"
)

// HipsHeight is the rest world height of the root joint.
const HipsHeight = 0.95

// Joints returns the structural description.
func Joints() []core.JointDef {
	return []core.JointDef{
		{Bone: core.Hips, Parent: core.NoBone, Position: mgl32.Vec3{0, HipsHeight, 0}},
		{Bone: core.Spine, Parent: core.Hips, Position: mgl32.Vec3{0, 0.10, 0}},
		{Bone: core.Chest, Parent: core.Spine, Position: mgl32.Vec3{0, 0.15, 0}},
		{Bone: core.UpperChest, Parent: core.Chest, Position: mgl32.Vec3{0, 0.12, 0}},
		{Bone: core.Neck, Parent: core.UpperChest, Position: mgl32.Vec3{0, 0.10, 0}},
		{Bone: core.Head, Parent: core.Neck, Position: mgl32.Vec3{0, 0.08, 0}},
		{Bone: core.LeftEye, Parent: core.Head, Position: mgl32.Vec3{0.03, 0.07, 0.08}},
		{Bone: core.RightEye, Parent: core.Head, Position: mgl32.Vec3{-0.03, 0.07, 0.08}},
		{Bone: core.Jaw, Parent: core.Head, Position: mgl32.Vec3{0, 0.01, 0.04}},

		{Bone: core.LeftShoulder, Parent: core.UpperChest, Position: mgl32.Vec3{0.04, 0.06, 0}},
		{Bone: core.LeftUpperArm, Parent: core.LeftShoulder, Position: mgl32.Vec3{0.12, 0, 0}},
		{Bone: core.LeftLowerArm, Parent: core.LeftUpperArm, Position: mgl32.Vec3{0.28, 0, 0}},
		{Bone: core.LeftHand, Parent: core.LeftLowerArm, Position: mgl32.Vec3{0.25, 0, 0}},
		{Bone: core.RightShoulder, Parent: core.UpperChest, Position: mgl32.Vec3{-0.04, 0.06, 0}},
		{Bone: core.RightUpperArm, Parent: core.RightShoulder, Position: mgl32.Vec3{-0.12, 0, 0}},
		{Bone: core.RightLowerArm, Parent: core.RightUpperArm, Position: mgl32.Vec3{-0.28, 0, 0}},
		{Bone: core.RightHand, Parent: core.RightLowerArm, Position: mgl32.Vec3{-0.25, 0, 0}},

		{Bone: core.LeftUpperLeg, Parent: core.Hips, Position: mgl32.Vec3{0.09, -0.05, 0}},
		{Bone: core.LeftLowerLeg, Parent: core.LeftUpperLeg, Position: mgl32.Vec3{0, -0.42, 0}},
		{Bone: core.LeftFoot, Parent: core.LeftLowerLeg, Position: mgl32.Vec3{0, -0.42, 0}},
		{Bone: core.LeftToes, Parent: core.LeftFoot, Position: mgl32.Vec3{0, -0.05, 0.13}},
		{Bone: core.RightUpperLeg, Parent: core.Hips, Position: mgl32.Vec3{-0.09, -0.05, 0}},
		{Bone: core.RightLowerLeg, Parent: core.RightUpperLeg, Position: mgl32.Vec3{0, -0.42, 0}},
		{Bone: core.RightFoot, Parent: core.RightLowerLeg, Position: mgl32.Vec3{0, -0.42, 0}},
		{Bone: core.RightToes, Parent: core.RightFoot, Position: mgl32.Vec3{0, -0.05, 0.13}},
	}
}

func lim(minX, minY, minZ, maxX, maxY, maxZ float32, axis core.Axis) limit.Limit {
	return limit.Limit{Min: mgl32.Vec3{minX, minY, minZ}, Max: mgl32.Vec3{maxX, maxY, maxZ}, Axis: axis}
}

// Limits returns the per-joint angle limits in degrees.
func Limits() map[core.HumanBone]limit.Limit {
	return map[core.HumanBone]limit.Limit{
		core.Hips:       lim(-180, -180, -180, 180, 180, 180, core.AxisY),
		core.Spine:      lim(-40, -40, -40, 40, 40, 40, core.AxisY),
		core.Chest:      lim(-30, -30, -30, 30, 30, 30, core.AxisY),
		core.UpperChest: lim(-10, -10, -10, 10, 10, 10, core.AxisY),
		core.Neck:       lim(-40, -50, -40, 40, 50, 40, core.AxisY),
		core.Head:       lim(-40, -50, -40, 40, 50, 40, core.AxisY),

		core.LeftShoulder:  lim(-10, -15, -10, 10, 15, 30, core.AxisX),
		core.LeftUpperArm:  lim(-80, -90, -80, 80, 90, 80, core.AxisX),
		core.LeftLowerArm:  lim(-90, -150, -5, 90, 0, 5, core.AxisX),
		core.LeftHand:      lim(-60, -30, -70, 60, 30, 70, core.AxisX),
		core.RightShoulder: lim(-10, -15, -30, 10, 15, 10, core.AxisX),
		core.RightUpperArm: lim(-80, -90, -80, 80, 90, 80, core.AxisX),
		core.RightLowerArm: lim(-90, 0, -5, 90, 150, 5, core.AxisX),
		core.RightHand:     lim(-60, -30, -70, 60, 30, 70, core.AxisX),

		core.LeftUpperLeg:  lim(-100, -40, -20, 30, 40, 60, core.AxisY),
		core.LeftLowerLeg:  lim(0, -5, -5, 140, 5, 5, core.AxisY),
		core.LeftFoot:      lim(-30, -20, -15, 45, 20, 15, core.AxisZ),
		core.RightUpperLeg: lim(-100, -40, -60, 30, 40, 20, core.AxisY),
		core.RightLowerLeg: lim(0, -5, -5, 140, 5, 5, core.AxisY),
		core.RightFoot:     lim(-30, -20, -15, 45, 20, 15, core.AxisZ),
	}
}

// Groups returns the joints that bend as one.
func Groups() []group.Def {
	return []group.Def{
		{Name: "spine", Members: []core.HumanBone{core.Spine, core.Chest, core.UpperChest}},
		{Name: "neck", Members: []core.HumanBone{core.Neck, core.Head}},
		{Name: "left-arm", Members: []core.HumanBone{core.LeftShoulder, core.LeftUpperArm}},
		{Name: "right-arm", Members: []core.HumanBone{core.RightShoulder, core.RightUpperArm}},
	}
}

// Unsupported lists joints the manipulator never drives.
func Unsupported() []core.HumanBone {
	return []core.HumanBone{core.LeftEye, core.RightEye, core.Jaw, core.LeftToes, core.RightToes}
}

// Capsules returns the collision volumes.
func Capsules() []index.Capsule {
	return []index.Capsule{
		{Bone: core.Hips, Radius: 0.14, Length: 0.20, Center: mgl32.Vec3{0, 0, 0}, Aligned: true},
		{Bone: core.Spine, Radius: 0.13, Length: 0.15, Center: mgl32.Vec3{0, 0.075, 0}, Aligned: true},
		{Bone: core.Chest, Radius: 0.15, Length: 0.22, Center: mgl32.Vec3{0, 0.11, 0}, Aligned: true},
		{Bone: core.Head, Radius: 0.10, Length: 0.10, Center: mgl32.Vec3{0, 0.10, 0}, Aligned: true},

		{Bone: core.LeftUpperArm, Radius: 0.05, Length: 0.28, Center: mgl32.Vec3{0.14, 0, 0}, Aligned: true},
		{Bone: core.LeftLowerArm, Radius: 0.04, Length: 0.25, Center: mgl32.Vec3{0.125, 0, 0}, Aligned: true},
		{Bone: core.LeftHand, Radius: 0.04, Length: 0.10, Center: mgl32.Vec3{0.08, 0, 0}, Aligned: true},
		{Bone: core.RightUpperArm, Radius: 0.05, Length: 0.28, Center: mgl32.Vec3{-0.14, 0, 0}, Aligned: true},
		{Bone: core.RightLowerArm, Radius: 0.04, Length: 0.25, Center: mgl32.Vec3{-0.125, 0, 0}, Aligned: true},
		{Bone: core.RightHand, Radius: 0.04, Length: 0.10, Center: mgl32.Vec3{-0.08, 0, 0}, Aligned: true},

		{Bone: core.LeftUpperLeg, Radius: 0.07, Length: 0.42, Center: mgl32.Vec3{0, -0.21, 0}, Aligned: true},
		{Bone: core.LeftLowerLeg, Radius: 0.055, Length: 0.42, Center: mgl32.Vec3{0, -0.21, 0}, Aligned: true},
		{Bone: core.LeftFoot, Radius: 0.045, Length: 0.18, Center: mgl32.Vec3{0, -0.03, 0.06}, Aligned: true},
		{Bone: core.RightUpperLeg, Radius: 0.07, Length: 0.42, Center: mgl32.Vec3{0, -0.21, 0}, Aligned: true},
		{Bone: core.RightLowerLeg, Radius: 0.055, Length: 0.42, Center: mgl32.Vec3{0, -0.21, 0}, Aligned: true},
		{Bone: core.RightFoot, Radius: 0.045, Length: 0.18, Center: mgl32.Vec3{0, -0.03, 0.06}, Aligned: true},
	}
}

// Weights returns relative body-segment masses for the centroid.
func Weights() map[core.HumanBone]float32 {
	return map[core.HumanBone]float32{
		core.Hips:          0.15,
		core.Spine:         0.10,
		core.Chest:         0.15,
		core.UpperChest:    0.05,
		core.Head:          0.08,
		core.LeftUpperArm:  0.03,
		core.LeftLowerArm:  0.02,
		core.LeftHand:      0.01,
		core.RightUpperArm: 0.03,
		core.RightLowerArm: 0.02,
		core.RightHand:     0.01,
		core.LeftUpperLeg:  0.10,
		core.LeftLowerLeg:  0.045,
		core.LeftFoot:      0.015,
		core.RightUpperLeg: 0.10,
		core.RightLowerLeg: 0.045,
		core.RightFoot:     0.015,
	}
}
