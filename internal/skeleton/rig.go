package skeleton

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tiendc/go-deepcopy"
)

// JointState is the local transform of one joint relative to its parent.
type JointState struct {
	LocalPosition mgl64.Vec3 `json:"local_position"`
	LocalRotation mgl64.Quat `json:"local_rotation"`
	LocalScale    mgl64.Vec3 `json:"local_scale"`
}

// Pose is a snapshot of every joint's local state.
type Pose struct {
	Joints map[JointID]JointState `json:"joints"`
}

// Rig is a concurrency-safe in-memory Skeleton. World transforms are
// composed from local states through the parent chain on every read.
type Rig struct {
	mu      sync.RWMutex
	order   []JointID
	parents map[JointID]JointID
	pose    Pose
	bind    Pose
	root    JointID
}

var _ Skeleton = (*Rig)(nil)

// NewRig creates an empty rig.
func NewRig() *Rig {
	return &Rig{
		parents: make(map[JointID]JointID),
		pose:    Pose{Joints: make(map[JointID]JointState)},
		bind:    Pose{Joints: make(map[JointID]JointState)},
	}
}

// AddJoint adds id under parent with the given local position and identity
// rotation. An empty parent makes a root joint; the first root added becomes
// the rig root returned by RootTransform.
func (r *Rig) AddJoint(id JointID, parent JointID, localPos mgl64.Vec3) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		return fmt.Errorf("joint id must not be empty")
	}
	if _, exists := r.pose.Joints[id]; exists {
		return fmt.Errorf("joint %q already exists", id)
	}
	if parent != "" {
		if _, ok := r.pose.Joints[parent]; !ok {
			return fmt.Errorf("parent %q of joint %q not found", parent, id)
		}
		r.parents[id] = parent
	} else if r.root == "" {
		r.root = id
	}

	r.pose.Joints[id] = JointState{
		LocalPosition: localPos,
		LocalRotation: mgl64.QuatIdent(),
		LocalScale:    mgl64.Vec3{1, 1, 1},
	}
	r.order = append(r.order, id)
	return nil
}

// Joints returns joint ids in insertion order (parents before children).
func (r *Rig) Joints() []JointID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]JointID, len(r.order))
	copy(out, r.order)
	return out
}

// Root returns the rig root joint, or "" for an empty rig.
func (r *Rig) Root() JointID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root
}

// JointTransform returns the world transform of id.
func (r *Rig) JointTransform(id JointID) (Transform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.pose.Joints[id]; !ok {
		return Transform{}, false
	}
	return r.worldLocked(id), true
}

// LocalState returns the local state of id.
func (r *Rig) LocalState(id JointID) (JointState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.pose.Joints[id]
	return st, ok
}

// SetJointLocalPosition sets the local position of id. Unknown joints are ignored.
func (r *Rig) SetJointLocalPosition(id JointID, p mgl64.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.pose.Joints[id]
	if !ok {
		return
	}
	st.LocalPosition = p
	r.pose.Joints[id] = st
}

// SetJointWorldRotation converts q into the parent's space and stores it as
// the local rotation of id. Unknown joints are ignored.
func (r *Rig) SetJointWorldRotation(id JointID, q mgl64.Quat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.pose.Joints[id]
	if !ok {
		return
	}
	local := q
	if parent, ok := r.parents[id]; ok {
		local = r.worldLocked(parent).Rotation.Inverse().Mul(q)
	}
	st.LocalRotation = local.Normalize()
	r.pose.Joints[id] = st
}

// Parent returns the parent of id, or false for roots and unknown joints.
func (r *Rig) Parent(id JointID) (JointID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parents[id]
	return p, ok
}

// RootTransform returns the world transform of the rig root, or the identity
// transform for an empty rig.
func (r *Rig) RootTransform() Transform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.root == "" {
		return IdentityTransform()
	}
	return r.worldLocked(r.root)
}

// WorldTransforms returns the world transform of every joint.
func (r *Rig) WorldTransforms() map[JointID]Transform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[JointID]Transform, len(r.order))
	for _, id := range r.order {
		out[id] = r.worldLocked(id)
	}
	return out
}

// Snapshot returns a deep copy of the current pose.
func (r *Rig) Snapshot() (Pose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out Pose
	if err := deepcopy.Copy(&out, &r.pose); err != nil {
		return Pose{}, fmt.Errorf("failed to copy pose: %w", err)
	}
	return out, nil
}

// Restore applies the local states in p to joints that exist in the rig.
// Joints absent from p keep their current state.
func (r *Rig) Restore(p Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, st := range p.Joints {
		if _, ok := r.pose.Joints[id]; ok {
			r.pose.Joints[id] = st
		}
	}
}

// MarkBindPose records the current pose as the one Reset returns to.
func (r *Rig) MarkBindPose() error {
	snap, err := r.Snapshot()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.bind = snap
	r.mu.Unlock()
	return nil
}

// Reset restores the bind pose.
func (r *Rig) Reset() {
	r.mu.RLock()
	bind := r.bind
	r.mu.RUnlock()
	r.Restore(bind)
}

func (r *Rig) worldLocked(id JointID) Transform {
	st := r.pose.Joints[id]
	local := Transform{Position: st.LocalPosition, Rotation: st.LocalRotation, Scale: st.LocalScale}

	parent, ok := r.parents[id]
	if !ok {
		return local
	}
	pw := r.worldLocked(parent)
	return Transform{
		Position: pw.TransformPoint(local.Position),
		Rotation: pw.Rotation.Mul(local.Rotation).Normalize(),
		Scale: mgl64.Vec3{
			pw.Scale[0] * local.Scale[0],
			pw.Scale[1] * local.Scale[1],
			pw.Scale[2] * local.Scale[2],
		},
	}
}
