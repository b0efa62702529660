package loader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaxBones is the bone capacity of the skinning palette a loaded model must fit in.
const DefaultMaxBones = 100

var (
	// ErrUnsupportedFormat is returned when no backend handles a file's extension.
	ErrUnsupportedFormat = errors.New("unsupported model format")

	// ErrTooManyBones is returned when a model has more bones than the configured capacity.
	ErrTooManyBones = errors.New("model exceeds bone capacity")
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	maxBones int

	modelCache map[string]model.Model

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching animated models.
// It abstracts the file format behind a backend and keeps a cache of previously loaded models.
// Loaded models are read-only and safe to share between any number of animation instances.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: ErrUnsupportedFormat, ErrTooManyBones, or an import error
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		maxBones:   DefaultMaxBones,
		modelCache: make(map[string]model.Model),
		backend:    newLoaderBackend(backendType),
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	m, err := l.importedToModel(imported)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", path, err)
	}

	return l.store(path, m), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	if l.backend == nil {
		return nil, fmt.Errorf("load %q: %w", name, ErrUnsupportedFormat)
	}

	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	if imported.Name == "" || imported.Name == gltfUnnamedModel {
		imported.Name = name
	}

	m, err := l.importedToModel(imported)
	if err != nil {
		return nil, fmt.Errorf("failed to build %q: %w", name, err)
	}

	return l.store(name, m), nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// store caches m under key unless a concurrent load got there first, and returns the cached model.
func (l *loader) store(key string, m model.Model) model.Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.modelCache[key]; ok {
		return existing
	}
	l.modelCache[key] = m
	return m
}

// resolveBackend returns the configured backend if it reads the file's extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l.backend != nil && slices.Contains(l.backend.Extensions(), ext) {
		return l.backend, nil
	}
	return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
}

// importedToModel converts an ImportedModel (CPU data) into a Model (engine-ready).
// All meshes are combined into a single vertex and index stream, with each mesh's indices
// offset by the vertices that precede it. Bones from every mesh are resolved into one rig,
// and skinned models carry packed bone ids and weights in their vertex stream.
//
// Parameters:
//   - imported: the CPU-side ImportedModel containing meshes, nodes and animations
//
// Returns:
//   - model.Model: the engine-ready Model
//   - error: ErrTooManyBones, or an error from rig construction
func (l *loader) importedToModel(imported *model.ImportedModel) (model.Model, error) {
	skins := make([]skeleton.MeshSkin, len(imported.Meshes))
	entries := make([]model.MeshEntry, len(imported.Meshes))
	var (
		allVertices []model.Vertex
		allIndices  []uint32
	)

	for i, mesh := range imported.Meshes {
		baseVertex := uint32(len(allVertices))
		entries[i] = model.MeshEntry{
			Name:          mesh.Name,
			BaseVertex:    baseVertex,
			BaseIndex:     uint32(len(allIndices)),
			IndexCount:    uint32(len(mesh.Indices)),
			MaterialIndex: mesh.MaterialIndex,
		}
		skins[i] = skeleton.MeshSkin{VertexCount: len(mesh.Vertices), Bones: mesh.Bones}

		allVertices = append(allVertices, mesh.Vertices...)
		for _, idx := range mesh.Indices {
			allIndices = append(allIndices, idx+baseVertex)
		}
	}

	rig, err := skeleton.Build(skins)
	if err != nil {
		return nil, err
	}
	if rig.Dropped > 0 {
		log.Printf("[Loader] %s: ignored %d bone influences past %d per vertex", imported.Name, rig.Dropped, skeleton.MaxBonesPerVertex)
	}
	if l.maxBones > 0 && rig.Index.Len() > l.maxBones {
		return nil, fmt.Errorf("%s has %d bones, capacity %d: %w", imported.Name, rig.Index.Len(), l.maxBones, ErrTooManyBones)
	}

	nodes := imported.Nodes
	if len(nodes) == 0 {
		nodes = []model.Node{{Name: imported.Name, Transform: mgl32.Ident4()}}
	}
	globalInverse, ok := common.Invert4(nodes[0].Transform)
	if !ok {
		log.Printf("[Loader] %s: root transform is singular, using identity", imported.Name)
	}

	skinned := rig.Index.Len() > 0
	var vertexData []byte
	if skinned {
		vertexData = make([]byte, 0, len(allVertices)*64)
		for i, v := range allVertices {
			vb := rig.VertexBones[i]
			sv := model.SkinnedVertex{Vertex: v, BoneIDs: vb.IDsUint32(), Weights: vb.Weights}
			vertexData = append(vertexData, sv.Marshal()...)
		}
	} else {
		vertexData = make([]byte, 0, len(allVertices)*32)
		for i := range allVertices {
			vertexData = append(vertexData, allVertices[i].Marshal()...)
		}
	}

	return model.NewModel(
		model.WithName(imported.Name),
		model.WithNodes(nodes),
		model.WithRig(rig),
		model.WithGlobalInverse(globalInverse),
		model.WithAnimations(imported.Animations),
		model.WithMeshes(entries),
		model.WithVertexData(vertexData),
		model.WithIndexData(common.MarshalIndices(nil, allIndices)),
		model.WithIndexCount(len(allIndices)),
		model.WithBoundingRadius(model.ComputeBoundingRadius(allVertices)),
	), nil
}
