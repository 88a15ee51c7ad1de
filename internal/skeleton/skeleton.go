// Package skeleton describes the joint hierarchy that landmark frames are
// retargeted onto. Skeleton is the capability set the retargeter consumes;
// Rig is an in-memory implementation used by the server and by tests.
package skeleton

import "github.com/go-gl/mathgl/mgl64"

// JointID names a joint semantically (e.g. "LeftUpperArm").
type JointID string

// Transform is a position, rotation and per-axis scale.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityTransform returns a transform at the origin with no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// TransformPoint maps p from the space described by t into the enclosing space.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	scaled := mgl64.Vec3{p[0] * t.Scale[0], p[1] * t.Scale[1], p[2] * t.Scale[2]}
	return t.Position.Add(t.Rotation.Rotate(scaled))
}

// Skeleton is the host-owned joint hierarchy. Implementations are mutated in
// place; callers never create or destroy joints through this interface.
type Skeleton interface {
	// JointTransform returns the world transform of id, or false if the
	// skeleton has no such joint.
	JointTransform(id JointID) (Transform, bool)

	// SetJointLocalPosition sets the position of id relative to its parent.
	SetJointLocalPosition(id JointID, p mgl64.Vec3)

	// SetJointWorldRotation sets the world-space rotation of id.
	SetJointWorldRotation(id JointID, q mgl64.Quat)

	// Parent returns the parent of id, or false for a root joint.
	Parent(id JointID) (JointID, bool)

	// RootTransform returns the world transform of the skeleton's root.
	RootTransform() Transform
}
