package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrNodeCycle is returned when a document's node graph is not a tree.
var ErrNodeCycle = errors.New("glTF node graph is not a tree")

// gltfMeshInstance is a mesh placed in the scene by a node, with the skin that deforms it.
type gltfMeshInstance struct {
	Node int
	Mesh int
	Skin *int
}

// gltfNodeExtractorImpl is the implementation of the gltfNodeExtractor interface.
type gltfNodeExtractorImpl struct {
	parser gltfParser
	names  []string
}

// gltfNodeExtractor builds the engine node hierarchy from a parsed document and resolves
// the names that bones and animation channels are keyed by.
type gltfNodeExtractor interface {
	// ExtractNodes flattens the default scene into a pre-order node arena.
	// A scene with several roots gets a synthetic identity root named after the scene.
	//
	// Returns:
	//   - []model.Node: the arena, root at index 0
	//   - []gltfMeshInstance: every mesh-bearing node in traversal order
	//   - error: ErrNodeCycle if a node is reachable twice
	ExtractNodes() ([]model.Node, []gltfMeshInstance, error)

	// NodeName returns the unique engine name of a document node.
	// Unnamed nodes are called node_<index>; a repeated name gets the node index appended.
	//
	// Parameters:
	//   - nodeIndex: the document node index
	//
	// Returns:
	//   - string: the node name
	NodeName(nodeIndex int) string

	// NodeTransform returns a document node's local bind transform in decomposed form.
	//
	// Parameters:
	//   - nodeIndex: the document node index
	//
	// Returns:
	//   - model.Transform: the node's translation, rotation and scale
	NodeTransform(nodeIndex int) model.Transform
}

var _ gltfNodeExtractor = &gltfNodeExtractorImpl{}

// newGLTFNodeExtractor creates a node extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfNodeExtractor: the node extractor
func newGLTFNodeExtractor(parser gltfParser) gltfNodeExtractor {
	e := &gltfNodeExtractorImpl{parser: parser}
	e.names = gltfUniqueNodeNames(parser.Document())
	return e
}

func (e *gltfNodeExtractorImpl) NodeName(nodeIndex int) string {
	if nodeIndex < 0 || nodeIndex >= len(e.names) {
		return fmt.Sprintf("node_%d", nodeIndex)
	}
	return e.names[nodeIndex]
}

func (e *gltfNodeExtractorImpl) NodeTransform(nodeIndex int) model.Transform {
	doc := e.parser.Document()
	if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
		return model.IdentityTransform()
	}
	return gltfExtractNodeTransform(&doc.Nodes[nodeIndex])
}

func (e *gltfNodeExtractorImpl) ExtractNodes() ([]model.Node, []gltfMeshInstance, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, ErrNoDocument
	}

	roots, sceneName := gltfSceneRoots(doc)
	var (
		arena     []model.Node
		instances []gltfMeshInstance
		visited   = make([]bool, len(doc.Nodes))
	)

	var walk func(nodeIndex int) (int, error)
	walk = func(nodeIndex int) (int, error) {
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return 0, fmt.Errorf("node %d of %d: %w", nodeIndex, len(doc.Nodes), ErrAccessorBounds)
		}
		if visited[nodeIndex] {
			return 0, fmt.Errorf("node %d: %w", nodeIndex, ErrNodeCycle)
		}
		visited[nodeIndex] = true

		n := &doc.Nodes[nodeIndex]
		slot := len(arena)
		arena = append(arena, model.Node{
			Name:      e.NodeName(nodeIndex),
			Transform: gltfNodeMatrix(n),
		})
		if n.Mesh != nil {
			instances = append(instances, gltfMeshInstance{Node: nodeIndex, Mesh: *n.Mesh, Skin: n.Skin})
		}

		children := make([]int, 0, len(n.Children))
		for _, c := range n.Children {
			childSlot, err := walk(c)
			if err != nil {
				return 0, err
			}
			children = append(children, childSlot)
		}
		arena[slot].Children = children
		return slot, nil
	}

	if len(roots) != 1 {
		arena = append(arena, model.Node{Name: sceneName, Transform: mgl32.Ident4()})
	}
	var rootChildren []int
	for _, r := range roots {
		slot, err := walk(r)
		if err != nil {
			return nil, nil, err
		}
		rootChildren = append(rootChildren, slot)
	}
	if len(roots) != 1 {
		arena[0].Children = rootChildren
	}

	return arena, instances, nil
}

// --- Helper Functions ---

// gltfSceneRoots returns the root node indices of the default scene and a name for it.
// Documents without scenes use every node that is nobody's child.
func gltfSceneRoots(doc *gltfDocument) ([]int, string) {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		name := doc.Scenes[idx].Name
		if name == "" {
			name = fmt.Sprintf("scene_%d", idx)
		}
		return doc.Scenes[idx].Nodes, name
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots, "scene_root"
}

// gltfUniqueNodeNames names every document node, making repeated names unique.
func gltfUniqueNodeNames(doc *gltfDocument) []string {
	if doc == nil {
		return nil
	}
	names := make([]string, len(doc.Nodes))
	seen := make(map[string]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		// A repeat takes the node index as suffix, bumped past names already in use.
		for base, k := name, i; seen[name]; k++ {
			name = fmt.Sprintf("%s_%d", base, k)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// gltfNodeMatrix returns a node's local bind matrix: its matrix if present, otherwise T * R * S.
func gltfNodeMatrix(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		return mgl32.Mat4(*node.Matrix)
	}
	return gltfExtractNodeTransform(node).Matrix()
}

// gltfExtractNodeTransform extracts the TRS transform of a node, decomposing its matrix if it has one.
func gltfExtractNodeTransform(node *gltfNode) model.Transform {
	if node.Matrix != nil {
		return gltfDecomposeMatrix(mgl32.Mat4(*node.Matrix))
	}

	t := model.IdentityTransform()
	if node.Translation != nil {
		t.Translation = *node.Translation
	}
	if node.Rotation != nil {
		t.Rotation = *node.Rotation
	}
	if node.Scale != nil {
		t.Scale = *node.Scale
	}
	return t
}

// gltfDecomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
// Shear is not supported.
func gltfDecomposeMatrix(m mgl32.Mat4) model.Transform {
	var t model.Transform
	t.Translation = [3]float32{m[12], m[13], m[14]}

	var rot mgl32.Mat4
	for c := 0; c < 3; c++ {
		col := m.Col(c).Vec3()
		s := common.Length3(col)
		t.Scale[c] = s
		if s < 1e-4 {
			s = 1
		}
		rot.SetCol(c, col.Mul(1/s).Vec4(0))
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	// A negative determinant is a mirror; fold it into the X scale.
	if rot.Det() < 0 {
		t.Scale[0] = -t.Scale[0]
		rot.SetCol(0, rot.Col(0).Mul(-1))
	}

	q := mgl32.Mat4ToQuat(rot).Normalize()
	if math32.IsNaN(q.W) {
		q = mgl32.QuatIdent()
	}
	t.Rotation = common.QuatToXYZW(q)
	return t
}
