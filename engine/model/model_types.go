package model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// --- Transform & Hierarchy Types ---

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a Transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Matrix composes the transform as T * R * S.
//
// Returns:
//   - mgl32.Mat4: the column-major local matrix
func (t Transform) Matrix() mgl32.Mat4 {
	return common.ComposeTRS(
		mgl32.Vec3(t.Translation),
		common.QuatFromXYZW(t.Rotation),
		mgl32.Vec3(t.Scale),
	)
}

// Node is a single entry of a model's node hierarchy.
// Nodes are stored in an arena slice; the root is always index 0 and Children hold arena indices.
type Node struct {
	// Name identifies the node. Bones and animation channels refer to nodes by name.
	Name string

	// Transform is the node's bind-pose transform relative to its parent.
	Transform mgl32.Mat4

	// Children are arena indices of the node's children, in source order.
	Children []int
}

// VertexWeight is a single (vertex, weight) influence declared by a mesh bone.
type VertexWeight = skeleton.VertexWeight

// MeshBone is a bone as declared by a single mesh.
type MeshBone = skeleton.MeshBone

// --- Animation Types ---

// AnimationClip represents a single animation (walk, run, attack, etc.).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in ticks.
	Duration float32

	// TicksPerSecond is the sample rate of the animation. Zero means the asset did not declare one.
	TicksPerSecond float32

	// Channels contains animation data for each animated node.
	Channels []AnimationChannel

	indexOnce sync.Once
	byName    map[string]int
}

// Channel looks up the channel animating the named node.
// The name index is built on first use and is safe for concurrent readers.
//
// Parameters:
//   - nodeName: the node name to find
//
// Returns:
//   - *AnimationChannel: the channel, or nil when the node is not animated
//   - bool: true if a channel exists for the node
func (c *AnimationClip) Channel(nodeName string) (*AnimationChannel, bool) {
	c.indexOnce.Do(func() {
		c.byName = make(map[string]int, len(c.Channels))
		for i := range c.Channels {
			if _, exists := c.byName[c.Channels[i].NodeName]; !exists {
				c.byName[c.Channels[i].NodeName] = i
			}
		}
	})
	idx, ok := c.byName[nodeName]
	if !ok {
		return nil, false
	}
	return &c.Channels[idx], true
}

// AnimationChannel contains keyframe data for a single node.
// The three key sequences are independently sized.
type AnimationChannel struct {
	// NodeName is the name of the node this channel animates.
	NodeName string

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation (quaternion).
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value [3]float32
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the quaternion value at this keyframe (x, y, z, w).
	Value [4]float32
}

// --- Import Types ---

// ImportedModel represents a 3D model loaded from an external format.
// This is the universal format that importers (glTF, etc.) produce.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Meshes contains all mesh data (may have multiple meshes/submeshes).
	Meshes []ImportedMesh

	// Nodes is the node hierarchy arena; Nodes[0] is the root.
	Nodes []Node

	// Animations are all animation clips bundled with the model.
	Animations []*AnimationClip
}

// ImportedMesh represents a single mesh within an imported model.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// Vertices are the mesh vertices.
	Vertices []Vertex

	// Indices are the triangle indices, local to this mesh.
	Indices []uint32

	// MaterialIndex references the source asset's material list.
	MaterialIndex int

	// Bones are the bones influencing this mesh. Empty for static meshes.
	Bones []MeshBone

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin [3]float32

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax [3]float32
}

// MeshEntry locates one mesh inside a model's combined vertex and index buffers.
type MeshEntry struct {
	// Name is the mesh identifier.
	Name string

	// BaseVertex is the index of the mesh's first vertex in the combined vertex buffer.
	BaseVertex uint32

	// BaseIndex is the index of the mesh's first index in the combined index buffer.
	BaseIndex uint32

	// IndexCount is the number of indices belonging to the mesh.
	IndexCount uint32

	// MaterialIndex references the source asset's material list.
	MaterialIndex int
}
