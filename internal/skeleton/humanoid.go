package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Humanoid joint names.
const (
	Hips          JointID = "Hips"
	Spine         JointID = "Spine"
	Chest         JointID = "Chest"
	Neck          JointID = "Neck"
	Head          JointID = "Head"
	LeftShoulder  JointID = "LeftShoulder"
	LeftUpperArm  JointID = "LeftUpperArm"
	LeftLowerArm  JointID = "LeftLowerArm"
	LeftHand      JointID = "LeftHand"
	RightShoulder JointID = "RightShoulder"
	RightUpperArm JointID = "RightUpperArm"
	RightLowerArm JointID = "RightLowerArm"
	RightHand     JointID = "RightHand"
	LeftUpperLeg  JointID = "LeftUpperLeg"
	LeftLowerLeg  JointID = "LeftLowerLeg"
	LeftFoot      JointID = "LeftFoot"
	RightUpperLeg JointID = "RightUpperLeg"
	RightLowerLeg JointID = "RightLowerLeg"
	RightFoot     JointID = "RightFoot"
)

type boneDef struct {
	id     JointID
	parent JointID
	offset mgl64.Vec3
}

// T-pose in metres, character facing +Z so its left side is -X.
var humanoidBones = []boneDef{
	{Hips, "", mgl64.Vec3{0, 1.0, 0}},
	{Spine, Hips, mgl64.Vec3{0, 0.1, 0}},
	{Chest, Spine, mgl64.Vec3{0, 0.2, 0}},
	{Neck, Chest, mgl64.Vec3{0, 0.25, 0}},
	{Head, Neck, mgl64.Vec3{0, 0.1, 0}},
	{LeftShoulder, Chest, mgl64.Vec3{-0.05, 0.2, 0}},
	{LeftUpperArm, LeftShoulder, mgl64.Vec3{-0.1, 0, 0}},
	{LeftLowerArm, LeftUpperArm, mgl64.Vec3{-0.28, 0, 0}},
	{LeftHand, LeftLowerArm, mgl64.Vec3{-0.25, 0, 0}},
	{RightShoulder, Chest, mgl64.Vec3{0.05, 0.2, 0}},
	{RightUpperArm, RightShoulder, mgl64.Vec3{0.1, 0, 0}},
	{RightLowerArm, RightUpperArm, mgl64.Vec3{0.28, 0, 0}},
	{RightHand, RightLowerArm, mgl64.Vec3{0.25, 0, 0}},
	{LeftUpperLeg, Hips, mgl64.Vec3{-0.09, -0.05, 0}},
	{LeftLowerLeg, LeftUpperLeg, mgl64.Vec3{0, -0.42, 0}},
	{LeftFoot, LeftLowerLeg, mgl64.Vec3{0, -0.4, 0}},
	{RightUpperLeg, Hips, mgl64.Vec3{0.09, -0.05, 0}},
	{RightLowerLeg, RightUpperLeg, mgl64.Vec3{0, -0.42, 0}},
	{RightFoot, RightLowerLeg, mgl64.Vec3{0, -0.4, 0}},
}

// Humanoid builds a rig with a Hips root, spine, head, arms and legs in a
// T-pose. The T-pose is recorded as the bind pose.
func Humanoid() *Rig {
	r, err := buildRig(humanoidBones)
	if err != nil {
		panic(fmt.Sprintf("skeleton: humanoid rig: %v", err))
	}
	return r
}

// buildRig adds bones in order, so parents must come before children, and
// records the result as the bind pose.
func buildRig(bones []boneDef) (*Rig, error) {
	r := NewRig()
	for _, b := range bones {
		if err := r.AddJoint(b.id, b.parent, b.offset); err != nil {
			return nil, err
		}
	}
	if err := r.MarkBindPose(); err != nil {
		return nil, fmt.Errorf("bind pose: %w", err)
	}
	return r, nil
}
