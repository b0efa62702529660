package skeleton

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrVertexOutOfRange is returned when a bone weight references a vertex outside its mesh.
var ErrVertexOutOfRange = errors.New("bone weight references vertex out of range")

// VertexWeight is a single (vertex, weight) influence declared by a mesh bone.
type VertexWeight struct {
	// VertexID is the vertex index local to the owning mesh.
	VertexID uint32

	// Weight is the influence of the bone on the vertex.
	Weight float32
}

// MeshBone is a bone as declared by a single mesh.
// The same bone name may appear in several meshes; every occurrence resolves to one BoneID.
type MeshBone struct {
	// Name is the bone's node name.
	Name string

	// OffsetMatrix maps from mesh (bind-pose) space into bone space.
	OffsetMatrix mgl32.Mat4

	// Weights lists every vertex this bone influences within its mesh.
	Weights []VertexWeight
}

// MeshSkin is the skinning input of one mesh: its vertex count and its bone list.
type MeshSkin struct {
	VertexCount int
	Bones       []MeshBone
}

// Rig is the load-time skinning data of a model.
type Rig struct {
	// Index maps bone names to ids.
	Index *BoneIndex

	// Bones holds the offset matrix of every bone in id order.
	Bones *BoneInfoTable

	// VertexBones holds the influences of every vertex, indexed by global vertex id.
	VertexBones []VertexBoneData

	// Dropped counts influences ignored because their vertex already held MaxBonesPerVertex.
	Dropped int
}

// Build resolves every mesh's bones into a single Rig.
// Meshes are laid out back to back, so a vertex's global id is the running vertex count
// of the preceding meshes plus its local id.
//
// Parameters:
//   - meshes: the meshes in combined-buffer order
//
// Returns:
//   - *Rig: the resolved rig
//   - error: ErrVertexOutOfRange if a weight references a vertex past its mesh
func Build(meshes []MeshSkin) (*Rig, error) {
	total := 0
	for _, m := range meshes {
		total += m.VertexCount
	}

	rig := &Rig{
		Index:       NewBoneIndex(),
		Bones:       &BoneInfoTable{},
		VertexBones: make([]VertexBoneData, total),
	}

	var base uint32
	for mi, m := range meshes {
		for _, bone := range m.Bones {
			id := rig.Index.GetOrAssignID(bone.Name)
			rig.Bones.Register(id, bone.OffsetMatrix)

			for _, w := range bone.Weights {
				if int(w.VertexID) >= m.VertexCount {
					return nil, fmt.Errorf("mesh %d bone %q vertex %d: %w", mi, bone.Name, w.VertexID, ErrVertexOutOfRange)
				}
				if !rig.VertexBones[base+w.VertexID].Add(id, w.Weight) {
					rig.Dropped++
				}
			}
		}
		base += uint32(m.VertexCount)
	}
	return rig, nil
}
