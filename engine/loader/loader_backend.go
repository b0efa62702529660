package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loaderBackend turns one file format into an ImportedModel.
type loaderBackend interface {
	// Load performs a full model import from the given file path: node hierarchy,
	// meshes with their bone weights, and animations.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	Load(path string) (*model.ImportedModel, error)

	// LoadReader imports a model from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*model.ImportedModel, error)

	// Extensions lists the lower-case file extensions, dot included, this backend reads.
	Extensions() []string
}

// newLoaderBackend returns the backend for t, or nil for an unknown type.
func newLoaderBackend(t LoaderBackendType) loaderBackend {
	switch t {
	case BackendTypeGLTF:
		return newGLTFImporter()
	}
	return nil
}
