package core

import "strings"

// HumanBone identifies a joint of the humanoid rig.
type HumanBone int

const (
	Hips HumanBone = iota
	Spine
	Chest
	UpperChest
	Neck
	Head
	LeftEye
	RightEye
	Jaw
	LeftShoulder
	LeftUpperArm
	LeftLowerArm
	LeftHand
	RightShoulder
	RightUpperArm
	RightLowerArm
	RightHand
	LeftUpperLeg
	LeftLowerLeg
	LeftFoot
	LeftToes
	RightUpperLeg
	RightLowerLeg
	RightFoot
	RightToes

	BoneCount
)

// NoBone marks an absent parent or an unresolved lookup.
const NoBone HumanBone = -1

var boneNames = [BoneCount]string{
	Hips:          "Hips",
	Spine:         "Spine",
	Chest:         "Chest",
	UpperChest:    "UpperChest",
	Neck:          "Neck",
	Head:          "Head",
	LeftEye:       "LeftEye",
	RightEye:      "RightEye",
	Jaw:           "Jaw",
	LeftShoulder:  "LeftShoulder",
	LeftUpperArm:  "LeftUpperArm",
	LeftLowerArm:  "LeftLowerArm",
	LeftHand:      "LeftHand",
	RightShoulder: "RightShoulder",
	RightUpperArm: "RightUpperArm",
	RightLowerArm: "RightLowerArm",
	RightHand:     "RightHand",
	LeftUpperLeg:  "LeftUpperLeg",
	LeftLowerLeg:  "LeftLowerLeg",
	LeftFoot:      "LeftFoot",
	LeftToes:      "LeftToes",
	RightUpperLeg: "RightUpperLeg",
	RightLowerLeg: "RightLowerLeg",
	RightFoot:     "RightFoot",
	RightToes:     "RightToes",
}

func (b HumanBone) String() string {
	if !b.Valid() {
		return "None"
	}
	return boneNames[b]
}

func (b HumanBone) Valid() bool {
	return b >= 0 && b < BoneCount
}

// ParseHumanBone resolves a bone name case-insensitively.
func ParseHumanBone(name string) (HumanBone, bool) {
	for i, n := range boneNames {
		if strings.EqualFold(n, name) {
			return HumanBone(i), true
		}
	}
	return NoBone, false
}

// IsLowerLimb reports whether the bone is the middle joint of a two-segment limb.
func (b HumanBone) IsLowerLimb() bool {
	switch b {
	case LeftLowerArm, RightLowerArm, LeftLowerLeg, RightLowerLeg:
		return true
	}
	return false
}

// IsTorso reports whether the bone belongs to the trunk (hips up to the upper chest).
func (b HumanBone) IsTorso() bool {
	switch b {
	case Hips, Spine, Chest, UpperChest:
		return true
	}
	return false
}

// LimbEnd returns the child joint that ends the limb segment starting at a lower limb joint.
func (b HumanBone) LimbEnd() HumanBone {
	switch b {
	case LeftLowerArm:
		return LeftHand
	case RightLowerArm:
		return RightHand
	case LeftLowerLeg:
		return LeftFoot
	case RightLowerLeg:
		return RightFoot
	}
	return NoBone
}

// AllBones lists every humanoid bone in declaration order.
func AllBones() []HumanBone {
	bones := make([]HumanBone, BoneCount)
	for i := range bones {
		bones[i] = HumanBone(i)
	}
	return bones
}
