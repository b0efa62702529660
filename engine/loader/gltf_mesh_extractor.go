package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
	nodes  gltfNodeExtractor
}

// gltfMeshExtractor converts glTF mesh primitives into ImportedMesh values.
// Each triangle primitive becomes one ImportedMesh. A primitive drawn by a skinned node also gets a
// MeshBone list derived from the skin's joints, inverse bind matrices and the JOINTS_0/WEIGHTS_0 streams.
type gltfMeshExtractor interface {
	// ExtractInstance extracts every primitive of a mesh as placed by a node.
	//
	// Parameters:
	//   - inst: the mesh instance found during node extraction
	//
	// Returns:
	//   - []model.ImportedMesh: one entry per primitive
	//   - error: error if extraction fails
	ExtractInstance(inst gltfMeshInstance) ([]model.ImportedMesh, error)

	// ExtractMesh extracts every primitive of a mesh with no skin applied.
	// Used for documents that define meshes without placing them in a scene.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//
	// Returns:
	//   - []model.ImportedMesh: one entry per primitive
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]model.ImportedMesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - nodes: the node extractor used to name skin joints
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser, nodes gltfNodeExtractor) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser, nodes: nodes}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]model.ImportedMesh, error) {
	return e.ExtractInstance(gltfMeshInstance{Node: -1, Mesh: meshIndex})
}

func (e *gltfMeshExtractorImpl) ExtractInstance(inst gltfMeshInstance) ([]model.ImportedMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}
	if inst.Mesh < 0 || inst.Mesh >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", inst.Mesh)
	}

	var skin *gltfSkin
	if inst.Skin != nil {
		if *inst.Skin < 0 || *inst.Skin >= len(doc.Skins) {
			return nil, fmt.Errorf("node %d skin index %d out of range", inst.Node, *inst.Skin)
		}
		skin = &doc.Skins[*inst.Skin]
	}

	mesh := &doc.Meshes[inst.Mesh]
	result := make([]model.ImportedMesh, 0, len(mesh.Primitives))
	for primIdx := range mesh.Primitives {
		imported, err := e.extractPrimitive(&mesh.Primitives[primIdx], mesh.Name, inst.Mesh, primIdx, skin)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", inst.Mesh, primIdx, err)
		}
		result = append(result, *imported)
	}
	return result, nil
}

func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, meshName string, meshIndex, primIndex int, skin *gltfSkin) (*model.ImportedMesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %d (only triangles)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadFloats(posAccessor, gltfAccessorTypeVec3)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	vertexCount := len(positions) / 3
	vertices := make([]model.Vertex, vertexCount)
	for i := range vertices {
		vertices[i].Position = [3]float32(positions[i*3 : i*3+3])
	}

	hasNormals := false
	if acc, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.ReadFloats(acc, gltfAccessorTypeVec3)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		for i := 0; i < vertexCount && i*3+3 <= len(normals); i++ {
			vertices[i].Normal = [3]float32(normals[i*3 : i*3+3])
		}
		hasNormals = true
	}

	if acc, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := e.parser.ReadFloats(acc, gltfAccessorTypeVec2)
		if err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
		for i := 0; i < vertexCount && i*2+2 <= len(uvs); i++ {
			vertices[i].TexCoord = [2]float32(uvs[i*2 : i*2+2])
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadUints(*prim.Indices, gltfAccessorTypeScalar)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= vertexCount {
				return nil, fmt.Errorf("index %d of %d vertices: %w", idx, vertexCount, ErrAccessorBounds)
			}
		}
	} else {
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	if !hasNormals && len(indices) >= 3 {
		generateNormals(vertices, indices)
	}

	var bones []model.MeshBone
	if skin != nil {
		bones, err = e.extractBones(prim, skin, vertexCount)
		if err != nil {
			return nil, err
		}
	}

	materialIndex := -1
	if prim.Material != nil {
		materialIndex = *prim.Material
	}

	name := meshName
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if primIndex > 0 {
		name = fmt.Sprintf("%s_prim%d", name, primIndex)
	}

	bmin, bmax := gltfCalculateBoundingBox(vertices)
	return &model.ImportedMesh{
		Name:          name,
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
		Bones:         bones,
		BoundingMin:   bmin,
		BoundingMax:   bmax,
	}, nil
}

// extractBones turns the per-vertex joint and weight streams into per-bone weight lists.
// Bones are emitted in skin joint order and only when they influence at least one vertex.
func (e *gltfMeshExtractorImpl) extractBones(prim *gltfPrimitive, skin *gltfSkin, vertexCount int) ([]model.MeshBone, error) {
	jointsAcc, hasJoints := prim.Attributes["JOINTS_0"]
	weightsAcc, hasWeights := prim.Attributes["WEIGHTS_0"]
	if !hasJoints || !hasWeights {
		return nil, nil
	}

	joints, err := e.parser.ReadUints(jointsAcc, gltfAccessorTypeVec4)
	if err != nil {
		return nil, fmt.Errorf("joints: %w", err)
	}
	weights, err := e.parser.ReadWeights(weightsAcc)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}

	offsets := make([]mgl32.Mat4, len(skin.Joints))
	for i := range offsets {
		offsets[i] = mgl32.Ident4()
	}
	if skin.InverseBindMatrices != nil {
		ibm, err := e.parser.ReadFloats(*skin.InverseBindMatrices, gltfAccessorTypeMat4)
		if err != nil {
			return nil, fmt.Errorf("inverse bind matrices: %w", err)
		}
		for i := range offsets {
			if i*16+16 > len(ibm) {
				break
			}
			offsets[i] = mgl32.Mat4([16]float32(ibm[i*16 : i*16+16]))
		}
	}

	perJoint := make([][]model.VertexWeight, len(skin.Joints))
	n := min(vertexCount, len(joints)/4, len(weights))
	for v := 0; v < n; v++ {
		for k := 0; k < 4; k++ {
			w := weights[v][k]
			if w == 0 {
				continue
			}
			j := int(joints[v*4+k])
			if j >= len(skin.Joints) {
				return nil, fmt.Errorf("vertex %d joint %d of %d: %w", v, j, len(skin.Joints), ErrAccessorBounds)
			}
			perJoint[j] = append(perJoint[j], model.VertexWeight{VertexID: uint32(v), Weight: w})
		}
	}

	var bones []model.MeshBone
	for j, ws := range perJoint {
		if len(ws) == 0 {
			continue
		}
		bones = append(bones, model.MeshBone{
			Name:         e.nodes.NodeName(skin.Joints[j]),
			OffsetMatrix: offsets[j],
			Weights:      ws,
		})
	}
	return bones, nil
}

// --- Helper Functions ---

// gltfCalculateBoundingBox returns the axis-aligned bounds of the vertex positions.
func gltfCalculateBoundingBox(vertices []model.Vertex) ([3]float32, [3]float32) {
	if len(vertices) == 0 {
		return [3]float32{}, [3]float32{}
	}

	bmin := [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	bmax := [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32}
	for _, v := range vertices {
		for j := 0; j < 3; j++ {
			bmin[j] = min(bmin[j], v.Position[j])
			bmax[j] = max(bmax[j], v.Position[j])
		}
	}
	return bmin, bmax
}

// generateNormals computes smooth vertex normals by accumulating area-weighted face normals.
// Vertices touched by no triangle get +Y.
func generateNormals(vertices []model.Vertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := mgl32.Vec3(vertices[i0].Position)
		p1 := mgl32.Vec3(vertices[i1].Position)
		p2 := mgl32.Vec3(vertices[i2].Position)

		face := p1.Sub(p0).Cross(p2.Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}

	for i, n := range accum {
		if n.Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = n.Normalize()
	}
}
