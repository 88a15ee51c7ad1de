// Package jointmap resolves pose-estimation landmark ids to skeleton joints.
package jointmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/pose-replay/internal/fsutil"
	"github.com/banshee-data/pose-replay/internal/skeleton"
)

// maxFileSize caps joint map files; real tables are a few hundred bytes.
const maxFileSize = 64 << 10

// JointMap is an immutable landmark id to joint table. The zero value and a
// nil *JointMap map nothing.
type JointMap struct {
	joints map[int]skeleton.JointID
}

// Entry is one landmark to joint mapping.
type Entry struct {
	LandmarkID int              `json:"landmark_id"`
	Joint      skeleton.JointID `json:"joint"`
}

// New builds a map from m. The input is copied.
func New(m map[int]skeleton.JointID) *JointMap {
	joints := make(map[int]skeleton.JointID, len(m))
	for id, j := range m {
		if j != "" {
			joints[id] = j
		}
	}
	return &JointMap{joints: joints}
}

// MediaPipe returns the table for the 33-point MediaPipe pose model. Only
// limb landmarks are mapped; face, torso and finger points drive nothing.
func MediaPipe() *JointMap {
	return New(map[int]skeleton.JointID{
		11: skeleton.LeftUpperArm,
		12: skeleton.RightUpperArm,
		13: skeleton.LeftLowerArm,
		14: skeleton.RightLowerArm,
		15: skeleton.LeftHand,
		16: skeleton.RightHand,
		23: skeleton.LeftUpperLeg,
		24: skeleton.RightUpperLeg,
		25: skeleton.LeftLowerLeg,
		26: skeleton.RightLowerLeg,
		27: skeleton.LeftFoot,
		28: skeleton.RightFoot,
	})
}

// Resolve returns the joint driven by landmarkID.
func (m *JointMap) Resolve(landmarkID int) (skeleton.JointID, bool) {
	if m == nil {
		return "", false
	}
	j, ok := m.joints[landmarkID]
	return j, ok
}

// With returns a copy of m with landmarkID mapped to joint. An empty joint
// removes the mapping.
func (m *JointMap) With(landmarkID int, joint skeleton.JointID) *JointMap {
	var src map[int]skeleton.JointID
	if m != nil {
		src = m.joints
	}
	out := New(src)
	if joint == "" {
		delete(out.joints, landmarkID)
	} else {
		out.joints[landmarkID] = joint
	}
	return out
}

// Len returns the number of mapped landmark ids.
func (m *JointMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.joints)
}

// Entries lists the mappings sorted by landmark id.
func (m *JointMap) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, 0, len(m.joints))
	for id, j := range m.joints {
		out = append(out, Entry{LandmarkID: id, Joint: j})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].LandmarkID < out[b].LandmarkID })
	return out
}

// MarshalJSON writes the object form read by Decode.
func (m *JointMap) MarshalJSON() ([]byte, error) {
	obj := make(map[string]skeleton.JointID, m.Len())
	for _, e := range m.Entries() {
		obj[strconv.Itoa(e.LandmarkID)] = e.Joint
	}
	return json.Marshal(obj)
}

// Decode reads a JSON object keyed by landmark id, e.g. {"15": "LeftHand"}.
func Decode(r io.Reader) (*JointMap, error) {
	var raw map[string]skeleton.JointID
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse joint map: %w", err)
	}
	joints := make(map[int]skeleton.JointID, len(raw))
	for key, joint := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("invalid landmark id %q: %w", key, err)
		}
		if id < 0 {
			return nil, fmt.Errorf("invalid landmark id %d: must be non-negative", id)
		}
		joints[id] = joint
	}
	return New(joints), nil
}

// Load reads a joint map file from fsys.
func Load(fsys fsutil.FileSystem, path string) (*JointMap, error) {
	if filepath.Ext(path) != ".json" {
		return nil, fmt.Errorf("joint map file must have .json extension, got: %s", path)
	}
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat joint map %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("joint map %s too large: %d bytes (max %d)", path, info.Size(), maxFileSize)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read joint map %s: %w", path, err)
	}
	m, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
