package loader

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithMaxBones is an option builder that sets the bone capacity loaded models must fit in.
// A value of zero or less disables the check.
//
// Parameters:
//   - n: the maximum number of distinct bones per model
//
// Returns:
//   - LoaderBuilderOption: a function that applies the bone capacity option to a loader
func WithMaxBones(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxBones = n
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}
