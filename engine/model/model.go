package model

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies how a model is drawn.
type Kind int

const (
	// KindStaticMesh is a rigid mesh with no bones.
	KindStaticMesh Kind = iota
	// KindSkinnedModel is a mesh deformed by a per-frame bone palette.
	KindSkinnedModel
	// KindInstancedVoxel is a single mesh drawn once per instance matrix.
	KindInstancedVoxel
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStaticMesh:
		return "static_mesh"
	case KindSkinnedModel:
		return "skinned_model"
	case KindInstancedVoxel:
		return "instanced_voxel"
	default:
		return "unknown"
	}
}

// model is the implementation of the Model interface.
type model struct {
	name                  string
	kind                  Kind
	kindSet               bool
	skinned               bool
	nodes                 []Node
	boneIndex             *skeleton.BoneIndex
	boneOffsets           []mgl32.Mat4
	vertexBones           []skeleton.VertexBoneData
	globalInverse         mgl32.Mat4
	animations            []*AnimationClip
	meshes                []MeshEntry
	boundingRadius        float32
	vertexData, indexData []byte
	indexCount            int
}

// Model defines the interface for a loaded 3D model.
// A Model is the shared, read-only asset produced by the Loader: the node hierarchy,
// the bone table, the animation clips and the packed vertex and index streams.
// Any number of animation instances may evaluate against one Model concurrently.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Kind reports how the model is drawn.
	// Unless overridden with WithKind, skinned models report KindSkinnedModel and others KindStaticMesh.
	//
	// Returns:
	//   - Kind: the model kind
	Kind() Kind

	// Skinned reports whether this model uses skeletal animation.
	//
	// Returns:
	//   - bool: true if the model has bone data
	Skinned() bool

	// Nodes retrieves the node hierarchy arena. Nodes()[0] is the root.
	//
	// Returns:
	//   - []Node: the node arena
	Nodes() []Node

	// BoneIndex retrieves the bone name to id mapping.
	// Returns nil for static models.
	//
	// Returns:
	//   - *skeleton.BoneIndex: the bone index or nil
	BoneIndex() *skeleton.BoneIndex

	// BoneOffsets retrieves the offset matrix of every bone in BoneID order.
	//
	// Returns:
	//   - []mgl32.Mat4: the offsets
	BoneOffsets() []mgl32.Mat4

	// BoneCount returns the number of distinct bones.
	//
	// Returns:
	//   - int: the bone count
	BoneCount() int

	// VertexBones retrieves the bone influences of every vertex, indexed by global vertex id.
	//
	// Returns:
	//   - []skeleton.VertexBoneData: per-vertex influences
	VertexBones() []skeleton.VertexBoneData

	// GlobalInverse returns the inverse of the root node's bind transform.
	//
	// Returns:
	//   - mgl32.Mat4: the global inverse transform
	GlobalInverse() mgl32.Mat4

	// Animations retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []*AnimationClip: the animation clips
	Animations() []*AnimationClip

	// AnimationCount returns the number of available animation clips.
	//
	// Returns:
	//   - int: the animation count
	AnimationCount() int

	// AnimationNames returns the names of all animation clips.
	//
	// Returns:
	//   - []string: the animation clip names
	AnimationNames() []string

	// GetAnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	GetAnimationIndex(name string) int

	// Meshes retrieves the draw range of every mesh in the combined buffers.
	//
	// Returns:
	//   - []MeshEntry: the mesh entries
	Meshes() []MeshEntry

	// VertexData returns the raw vertex data for this model's mesh.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the raw index data for this model's mesh.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// IndexCount returns the number of indices in the model's mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// BoundingRadius returns the bounding sphere radius for this model, measured as
	// the maximum vertex distance from the origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// SetVertexData sets the raw vertex data for this model's mesh.
	//
	// Parameters:
	//   - data: the vertex data to set
	SetVertexData(data []byte)

	// SetIndexData sets the raw index data for this model's mesh.
	//
	// Parameters:
	//   - data: the index data to set
	SetIndexData(data []byte)

	// SetIndexCount sets the number of indices in the model's mesh.
	//
	// Parameters:
	//   - count: the index count to set
	SetIndexCount(count int)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// Without WithNodes the model gets a single identity root node.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{globalInverse: mgl32.Ident4()}
	for _, opt := range options {
		opt(m)
	}
	if len(m.nodes) == 0 {
		m.nodes = []Node{{Name: m.name, Transform: mgl32.Ident4()}}
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Kind() Kind {
	if m.kindSet {
		return m.kind
	}
	if m.skinned {
		return KindSkinnedModel
	}
	return KindStaticMesh
}

func (m *model) Skinned() bool {
	return m.skinned
}

func (m *model) Nodes() []Node {
	return m.nodes
}

func (m *model) BoneIndex() *skeleton.BoneIndex {
	return m.boneIndex
}

func (m *model) BoneOffsets() []mgl32.Mat4 {
	return m.boneOffsets
}

func (m *model) BoneCount() int {
	return len(m.boneOffsets)
}

func (m *model) VertexBones() []skeleton.VertexBoneData {
	return m.vertexBones
}

func (m *model) GlobalInverse() mgl32.Mat4 {
	return m.globalInverse
}

func (m *model) Animations() []*AnimationClip {
	return m.animations
}

func (m *model) AnimationCount() int {
	return len(m.animations)
}

func (m *model) AnimationNames() []string {
	names := make([]string, len(m.animations))
	for i, anim := range m.animations {
		names[i] = anim.Name
	}
	return names
}

func (m *model) GetAnimationIndex(name string) int {
	for i, anim := range m.animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}

func (m *model) Meshes() []MeshEntry {
	return m.meshes
}

func (m *model) VertexData() []byte {
	return m.vertexData
}

func (m *model) SetVertexData(data []byte) {
	m.vertexData = data
}

func (m *model) IndexData() []byte {
	return m.indexData
}

func (m *model) SetIndexData(data []byte) {
	m.indexData = data
}

func (m *model) IndexCount() int {
	return m.indexCount
}

func (m *model) SetIndexCount(count int) {
	m.indexCount = count
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}
