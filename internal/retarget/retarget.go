// Package retarget drives skeleton joints from pose landmarks.
//
// Limb joints are oriented toward their landmark: the landmark is mapped into
// root-relative space, the direction from the joint to that point becomes the
// joint's forward axis, and the joint's world rotation is moved part of the
// way toward that orientation. Root joints are positioned instead of rotated.
package retarget

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/banshee-data/pose-replay/internal/jointmap"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/skeleton"
)

const (
	// DefaultBlend is the slerp factor applied toward the target rotation on
	// every update.
	DefaultBlend = 0.5

	// degenerateLenSqr is the squared direction length at or below which a
	// joint is treated as sitting on its target.
	degenerateLenSqr = 1e-6
)

var (
	worldUp      = mgl64.Vec3{0, 1, 0}
	worldForward = mgl64.Vec3{0, 0, 1}
)

// Stats counts what happened to each landmark of a frame.
type Stats struct {
	Landmarks     int `json:"landmarks"`
	Unmapped      int `json:"unmapped"`
	LowVisibility int `json:"low_visibility"`
	MissingJoint  int `json:"missing_joint"`
	Degenerate    int `json:"degenerate"`
	Rotated       int `json:"rotated"`
	Positioned    int `json:"positioned"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Landmarks += o.Landmarks
	s.Unmapped += o.Unmapped
	s.LowVisibility += o.LowVisibility
	s.MissingJoint += o.MissingJoint
	s.Degenerate += o.Degenerate
	s.Rotated += o.Rotated
	s.Positioned += o.Positioned
}

// Applied reports how many joints were written.
func (s Stats) Applied() int { return s.Rotated + s.Positioned }

// Option configures a Retargeter.
type Option func(*Retargeter)

// WithBlend sets the slerp factor toward the target rotation. Values are
// clamped to [0, 1].
func WithBlend(f float64) Option {
	return func(r *Retargeter) {
		if math.IsNaN(f) {
			return
		}
		r.blend = math.Max(0, math.Min(1, f))
	}
}

// WithMinVisibility skips landmarks whose visibility is below v. Zero
// disables the filter.
func WithMinVisibility(v float64) Option {
	return func(r *Retargeter) {
		if v > 0 {
			r.minVisibility = v
		}
	}
}

// Retargeter applies frames to a skeleton. It holds no per-frame state and
// is safe for concurrent use; callers serialise writes to a given skeleton.
type Retargeter struct {
	joints        *jointmap.JointMap
	blend         float64
	minVisibility float64
}

// New creates a Retargeter resolving landmarks through joints.
func New(joints *jointmap.JointMap, opts ...Option) *Retargeter {
	r := &Retargeter{joints: joints, blend: DefaultBlend}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Blend returns the configured slerp factor.
func (r *Retargeter) Blend() float64 { return r.blend }

// ApplyFrame writes frame onto skel. A nil frame, a frame without landmarks
// or a nil skeleton leaves everything untouched. Landmarks that cannot be
// applied are skipped and counted in the returned Stats.
func (r *Retargeter) ApplyFrame(frame *pose.Frame, skel skeleton.Skeleton, scale float64) Stats {
	var st Stats
	if frame == nil || len(frame.Landmarks) == 0 || skel == nil {
		return st
	}

	for _, lm := range frame.Landmarks {
		st.Landmarks++

		joint, ok := r.joints.Resolve(lm.ID)
		if !ok {
			st.Unmapped++
			continue
		}
		if r.minVisibility > 0 && lm.Visibility < r.minVisibility {
			st.LowVisibility++
			continue
		}
		current, ok := skel.JointTransform(joint)
		if !ok {
			st.MissingJoint++
			continue
		}

		local := LocalTarget(lm, scale)

		if _, hasParent := skel.Parent(joint); !hasParent {
			skel.SetJointLocalPosition(joint, local)
			st.Positioned++
			continue
		}

		worldTarget := skel.RootTransform().TransformPoint(local)
		dir := worldTarget.Sub(current.Position)
		if dir.LenSqr() <= degenerateLenSqr {
			st.Degenerate++
			continue
		}

		target := LookRotation(dir.Normalize(), worldUp)
		skel.SetJointWorldRotation(joint, Slerp(current.Rotation, target, r.blend))
		st.Rotated++
	}
	return st
}

// LocalTarget converts a normalized landmark into root-relative space. X and
// Y are centred on 0.5 and Y is flipped so it grows upward; Z passes through.
func LocalTarget(lm pose.Landmark, scale float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(lm.X - 0.5) * scale,
		(0.5 - lm.Y) * scale,
		lm.Z * scale,
	}
}

// LookRotation returns the rotation that maps +Z onto forward while keeping
// +Y as close to up as possible. When forward is parallel to up the shortest
// arc from +Z to forward is used.
func LookRotation(forward, up mgl64.Vec3) mgl64.Quat {
	f := forward.Normalize()
	right := up.Cross(f)
	if right.LenSqr() < 1e-12 {
		return mgl64.QuatBetweenVectors(worldForward, f).Normalize()
	}
	right = right.Normalize()
	newUp := f.Cross(right)

	m := mgl64.Mat4FromCols(right.Vec4(0), newUp.Vec4(0), f.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(m).Normalize()
}

// Slerp interpolates from a to b by t along the shorter arc.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}
