package skeleton

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

// vecNear compares by distance. ApproxEqualThreshold squares eps when one
// component is exactly zero, so rounding noise fails it.
func vecNear(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	if got.Sub(want).Len() > eps {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTransformPoint(t *testing.T) {
	tr := Transform{
		Position: mgl64.Vec3{1, 2, 3},
		Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}),
		Scale:    mgl64.Vec3{2, 2, 2},
	}
	// (1,0,0) scaled to (2,0,0), rotated 90° about Y to (0,0,-2).
	vecNear(t, mgl64.Vec3{1, 2, 1}, tr.TransformPoint(mgl64.Vec3{1, 0, 0}))

	vecNear(t, mgl64.Vec3{4, 5, 6}, IdentityTransform().TransformPoint(mgl64.Vec3{4, 5, 6}))
}

func TestRig_AddJointErrors(t *testing.T) {
	r := NewRig()
	require.NoError(t, r.AddJoint("root", "", mgl64.Vec3{}))

	assert.Error(t, r.AddJoint("", "root", mgl64.Vec3{}))
	assert.Error(t, r.AddJoint("root", "", mgl64.Vec3{}))
	assert.Error(t, r.AddJoint("child", "missing", mgl64.Vec3{}))
	assert.Equal(t, []JointID{"root"}, r.Joints())
}

func TestRig_WorldTransformComposesParents(t *testing.T) {
	r := NewRig()
	require.NoError(t, r.AddJoint("root", "", mgl64.Vec3{0, 1, 0}))
	require.NoError(t, r.AddJoint("arm", "root", mgl64.Vec3{1, 0, 0}))
	require.NoError(t, r.AddJoint("hand", "arm", mgl64.Vec3{1, 0, 0}))

	hand, ok := r.JointTransform("hand")
	require.True(t, ok)
	vecNear(t, mgl64.Vec3{2, 1, 0}, hand.Position)

	// Rotating the arm 90° about Y swings the hand from +X to -Z.
	r.SetJointWorldRotation("arm", mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}))
	hand, _ = r.JointTransform("hand")
	vecNear(t, mgl64.Vec3{1, 1, -1}, hand.Position)
}

func TestRig_SetJointWorldRotationUnderRotatedParent(t *testing.T) {
	r := NewRig()
	require.NoError(t, r.AddJoint("root", "", mgl64.Vec3{}))
	require.NoError(t, r.AddJoint("child", "root", mgl64.Vec3{0, 1, 0}))

	r.SetJointWorldRotation("root", mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	r.SetJointWorldRotation("child", want)

	got, ok := r.JointTransform("child")
	require.True(t, ok)
	assert.True(t, got.Rotation.OrientationEqualThreshold(want, 1e-9), "got %v want %v", got.Rotation, want)
}

func TestRig_UnknownJointsIgnored(t *testing.T) {
	r := NewRig()
	require.NoError(t, r.AddJoint("root", "", mgl64.Vec3{}))

	r.SetJointLocalPosition("ghost", mgl64.Vec3{1, 1, 1})
	r.SetJointWorldRotation("ghost", mgl64.QuatIdent())

	_, ok := r.JointTransform("ghost")
	assert.False(t, ok)
	_, ok = r.Parent("ghost")
	assert.False(t, ok)
	_, ok = r.Parent("root")
	assert.False(t, ok)
}

func TestRig_RootTransform(t *testing.T) {
	empty := NewRig()
	assert.Equal(t, IdentityTransform(), empty.RootTransform())

	r := NewRig()
	require.NoError(t, r.AddJoint("root", "", mgl64.Vec3{0, 1, 0}))
	r.SetJointLocalPosition("root", mgl64.Vec3{3, 2, 1})
	vecNear(t, mgl64.Vec3{3, 2, 1}, r.RootTransform().Position)
	assert.Equal(t, JointID("root"), r.Root())
}

func TestHumanoid(t *testing.T) {
	r := Humanoid()

	assert.Equal(t, Hips, r.Root())
	assert.Len(t, r.Joints(), len(humanoidBones))

	parent, ok := r.Parent(LeftHand)
	require.True(t, ok)
	assert.Equal(t, LeftLowerArm, parent)

	hand, ok := r.JointTransform(LeftHand)
	require.True(t, ok)
	vecNear(t, mgl64.Vec3{-0.68, 1.5, 0}, hand.Position)

	foot, ok := r.JointTransform(RightFoot)
	require.True(t, ok)
	vecNear(t, mgl64.Vec3{0.09, 0.13, 0}, foot.Position)
}

func TestBuildRig(t *testing.T) {
	_, err := buildRig([]boneDef{
		{"hand", "arm", mgl64.Vec3{}},
		{"arm", "", mgl64.Vec3{}},
	})
	assert.ErrorContains(t, err, `parent "arm"`)

	r, err := buildRig([]boneDef{
		{"arm", "", mgl64.Vec3{0, 1, 0}},
		{"hand", "arm", mgl64.Vec3{1, 0, 0}},
	})
	require.NoError(t, err)
	r.SetJointLocalPosition("hand", mgl64.Vec3{5, 0, 0})
	r.Reset()
	st, ok := r.LocalState("hand")
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, st.LocalPosition)
}

func TestHumanoidDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { Humanoid() })
}

func TestRig_SnapshotIsDeepCopy(t *testing.T) {
	r := Humanoid()
	snap, err := r.Snapshot()
	require.NoError(t, err)

	r.SetJointLocalPosition(Hips, mgl64.Vec3{5, 5, 5})

	assert.Equal(t, mgl64.Vec3{0, 1, 0}, snap.Joints[Hips].LocalPosition)

	snap.Joints[Head] = JointState{LocalPosition: mgl64.Vec3{9, 9, 9}}
	st, _ := r.LocalState(Head)
	assert.Equal(t, mgl64.Vec3{0, 0.1, 0}, st.LocalPosition)
}

func TestRig_RestoreAndReset(t *testing.T) {
	r := Humanoid()
	snap, err := r.Snapshot()
	require.NoError(t, err)

	r.SetJointLocalPosition(Hips, mgl64.Vec3{1, 2, 3})
	r.SetJointWorldRotation(LeftUpperArm, mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0}))

	r.Restore(snap)
	hips, _ := r.LocalState(Hips)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, hips.LocalPosition)

	r.SetJointLocalPosition(Hips, mgl64.Vec3{1, 2, 3})
	r.Reset()
	hips, _ = r.LocalState(Hips)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, hips.LocalPosition)
	arm, _ := r.LocalState(LeftUpperArm)
	assert.Equal(t, mgl64.QuatIdent(), arm.LocalRotation)
}

func TestRig_RestoreIgnoresUnknownJoints(t *testing.T) {
	r := NewRig()
	require.NoError(t, r.AddJoint("root", "", mgl64.Vec3{}))

	r.Restore(Pose{Joints: map[JointID]JointState{"ghost": {}}})
	assert.Equal(t, []JointID{"root"}, r.Joints())
	_, ok := r.LocalState("ghost")
	assert.False(t, ok)
}
