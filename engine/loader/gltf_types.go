// gltf_types.go holds the subset of the glTF 2.0 JSON schema the animation loader reads:
// the scene graph, geometry buffers, skins and animations. Materials, textures and images
// are not decoded; encoding/json ignores them.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// gltfDocument is the root of a glTF JSON document.
type gltfDocument struct {
	// Asset carries the required version string.
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	Scenes      []gltfScene      `json:"scenes,omitempty"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
	Skins       []gltfSkin       `json:"skins,omitempty"`
	Animations  []gltfAnimation  `json:"animations,omitempty"`
}

type gltfAsset struct {
	// Version must be "2.0".
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// --- Scene Graph ---

type gltfScene struct {
	Name string `json:"name,omitempty"`

	// Nodes are the indices of the scene's root nodes.
	Nodes []int `json:"nodes,omitempty"`
}

// gltfNode is one entry of the document's node list.
// A node carries either Matrix or any of Translation, Rotation and Scale.
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`

	// Mesh is the index of the mesh instanced by this node.
	Mesh *int `json:"mesh,omitempty"`

	// Skin is the index of the skin deforming the node's mesh.
	Skin *int `json:"skin,omitempty"`

	// Matrix is the local transform in column-major order.
	Matrix *[16]float32 `json:"matrix,omitempty"`

	Translation *[3]float32 `json:"translation,omitempty"`
	Rotation    *[4]float32 `json:"rotation,omitempty"` // x, y, z, w
	Scale       *[3]float32 `json:"scale,omitempty"`
}

// --- Mesh Data ---

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	// Attributes maps a semantic (POSITION, NORMAL, TEXCOORD_0, JOINTS_0, WEIGHTS_0) to an accessor index.
	Attributes map[string]int `json:"attributes"`

	Indices  *int `json:"indices,omitempty"`
	Material *int `json:"material,omitempty"`

	// Mode is the topology; absent means triangles.
	Mode *int `json:"mode,omitempty"`
}

const gltfPrimitiveModeTriangles = 4

// --- Buffer Data ---

// gltfAccessor describes a typed view into a bufferView.
type gltfAccessor struct {
	BufferView *int `json:"bufferView,omitempty"`
	ByteOffset int  `json:"byteOffset,omitempty"`

	// ComponentType is one of the gltfComponentType constants.
	ComponentType int  `json:"componentType"`
	Normalized    bool `json:"normalized,omitempty"`
	Count         int  `json:"count"`

	// Type is SCALAR, VEC2, VEC3, VEC4, MAT2, MAT3 or MAT4.
	Type string    `json:"type"`
	Max  []float32 `json:"max,omitempty"`
	Min  []float32 `json:"min,omitempty"`

	// Sparse is decoded only so the parser can reject it.
	Sparse *struct {
		Count int `json:"count"`
	} `json:"sparse,omitempty"`
}

const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126
)

const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat2   = "MAT2"
	gltfAccessorTypeMat3   = "MAT3"
	gltfAccessorTypeMat4   = "MAT4"
)

type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

type gltfBuffer struct {
	// URI is a data: URI or a path relative to the asset. Empty for the GLB BIN chunk.
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	// Data is filled by the parser after the JSON is decoded.
	Data []byte `json:"-"`
}

// --- Skeletal Animation ---

type gltfSkin struct {
	Name string `json:"name,omitempty"`

	// InverseBindMatrices is a MAT4 accessor with one matrix per joint. Absent means identity.
	InverseBindMatrices *int `json:"inverseBindMatrices,omitempty"`

	Skeleton *int `json:"skeleton,omitempty"`

	// Joints are node indices; JOINTS_0 values index into this list.
	Joints []int `json:"joints"`
}

type gltfAnimation struct {
	Name     string            `json:"name,omitempty"`
	Channels []gltfAnimChannel `json:"channels"`
	Samplers []gltfAnimSampler `json:"samplers"`
}

type gltfAnimChannel struct {
	Sampler int            `json:"sampler"`
	Target  gltfAnimTarget `json:"target"`
}

type gltfAnimTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

// gltfAnimSampler pairs a key time accessor (Input) with a value accessor (Output).
type gltfAnimSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}

const (
	gltfAnimPathTranslation = "translation"
	gltfAnimPathRotation    = "rotation"
	gltfAnimPathScale       = "scale"
	gltfAnimPathWeights     = "weights"
)

const gltfAnimInterpolationCubicSpline = "CUBICSPLINE"

// --- GLB Binary Format ---

// gltfGLBHeader is the 12-byte GLB file header.
type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// gltfGLBChunkHeader precedes every GLB chunk.
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
