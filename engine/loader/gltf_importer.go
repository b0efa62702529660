package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// gltfUnnamedModel names a model whose document and source give it no name.
const gltfUnnamedModel = "unnamed_model"

// gltfImporter is the loaderBackend for glTF and GLB. Each import runs a fresh parser
// through the node, mesh and animation extractors, so one importer serves concurrent loads.
type gltfImporter struct{}

var _ loaderBackend = &gltfImporter{}

func newGLTFImporter() *gltfImporter {
	return &gltfImporter{}
}

func (imp *gltfImporter) Extensions() []string {
	return []string{".gltf", ".glb"}
}

func (imp *gltfImporter) Load(path string) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return imp.importFromParser(parser, path)
}

func (imp *gltfImporter) LoadReader(r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}

	return imp.importFromParser(parser, "")
}

// importFromParser performs a full import from a parser that has already loaded a document.
// Meshes are taken from the nodes that place them, so a skinned node pairs its mesh with its skin.
// A document that places no meshes contributes every mesh unskinned, in document order.
//
// Parameters:
//   - parser: the glTF parser that has already loaded a document
//   - fallbackPath: optional file path used as a fallback for model naming
func (imp *gltfImporter) importFromParser(parser gltfParser, fallbackPath string) (*model.ImportedModel, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, ErrNoDocument
	}

	nodeExtractor := newGLTFNodeExtractor(parser)
	meshExtractor := newGLTFMeshExtractor(parser, nodeExtractor)
	animationExtractor := newGLTFAnimationExtractor(parser, nodeExtractor)

	nodes, instances, err := nodeExtractor.ExtractNodes()
	if err != nil {
		return nil, fmt.Errorf("node extraction failed: %w", err)
	}

	var meshes []model.ImportedMesh
	if len(instances) > 0 {
		for _, inst := range instances {
			extracted, err := meshExtractor.ExtractInstance(inst)
			if err != nil {
				return nil, fmt.Errorf("mesh extraction failed: %w", err)
			}
			meshes = append(meshes, extracted...)
		}
	} else {
		for i := range doc.Meshes {
			extracted, err := meshExtractor.ExtractMesh(i)
			if err != nil {
				return nil, fmt.Errorf("mesh extraction failed: %w", err)
			}
			meshes = append(meshes, extracted...)
		}
	}

	animations, err := animationExtractor.ExtractAllAnimations()
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}

	return &model.ImportedModel{
		Name:       gltfExtractModelName(doc, fallbackPath),
		Meshes:     meshes,
		Nodes:      nodes,
		Animations: animations,
	}, nil
}

// --- Helper Functions ---

// gltfExtractModelName derives a model name from the default scene or the file name.
func gltfExtractModelName(doc *gltfDocument, fallbackPath string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}

	if fallbackPath != "" {
		base := filepath.Base(fallbackPath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}

	return gltfUnnamedModel
}
