package model

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithKind is an option builder that overrides the kind derived from the skinned flag.
//
// Parameters:
//   - kind: the model kind
//
// Returns:
//   - ModelBuilderOption: a function that applies the kind option to a model
func WithKind(kind Kind) ModelBuilderOption {
	return func(m *model) {
		m.kind = kind
		m.kindSet = true
	}
}

// WithNodes is an option builder that sets the node hierarchy arena of the Model.
//
// Parameters:
//   - nodes: the node arena, root at index 0
//
// Returns:
//   - ModelBuilderOption: a function that applies the nodes option to a model
func WithNodes(nodes []Node) ModelBuilderOption {
	return func(m *model) {
		m.nodes = nodes
	}
}

// WithRig is an option builder that sets the bone index, bone offsets and per-vertex influences
// from a resolved rig. A rig with at least one bone marks the model as skinned.
//
// Parameters:
//   - rig: the rig built by skeleton.Build
//
// Returns:
//   - ModelBuilderOption: a function that applies the rig option to a model
func WithRig(rig *skeleton.Rig) ModelBuilderOption {
	return func(m *model) {
		if rig == nil {
			return
		}
		m.boneIndex = rig.Index
		m.boneOffsets = rig.Bones.Offsets()
		m.vertexBones = rig.VertexBones
		m.skinned = rig.Index.Len() > 0
	}
}

// WithGlobalInverse is an option builder that sets the global inverse transform of the Model.
//
// Parameters:
//   - inv: the inverse of the root bind transform
//
// Returns:
//   - ModelBuilderOption: a function that applies the global inverse option to a model
func WithGlobalInverse(inv mgl32.Mat4) ModelBuilderOption {
	return func(m *model) {
		m.globalInverse = inv
	}
}

// WithAnimations is an option builder that sets the animation clips of the Model.
//
// Parameters:
//   - animations: the animation clips to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(animations []*AnimationClip) ModelBuilderOption {
	return func(m *model) {
		m.animations = animations
	}
}

// WithMeshes is an option builder that sets the per-mesh draw entries.
//
// Parameters:
//   - meshes: the mesh entries in combined-buffer order
//
// Returns:
//   - ModelBuilderOption: a function that applies the meshes option to a model
func WithMeshes(meshes []MeshEntry) ModelBuilderOption {
	return func(m *model) {
		m.meshes = meshes
	}
}

// WithBoundingRadius is an option builder that manually sets the bounding sphere radius.
// Use this to override the auto-computed value from ComputeBoundingRadius when a manually
// tuned conservative bound is preferred.
//
// Parameters:
//   - radius: the bounding radius to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the bounding radius option to a model
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}

// WithVertexData is an option builder that sets the raw vertex data for this model's mesh.
//
// Parameters:
//   - data: the vertex data to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertex data option to a model
func WithVertexData(data []byte) ModelBuilderOption {
	return func(m *model) {
		m.vertexData = data
	}
}

// WithIndexData is an option builder that sets the raw index data for this model's mesh.
//
// Parameters:
//   - data: the index data to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the index data option to a model
func WithIndexData(data []byte) ModelBuilderOption {
	return func(m *model) {
		m.indexData = data
	}
}

// WithIndexCount is an option builder that sets the number of indices in the model's mesh.
//
// Parameters:
//   - count: the index count to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the index count option to a model
func WithIndexCount(count int) ModelBuilderOption {
	return func(m *model) {
		m.indexCount = count
	}
}
