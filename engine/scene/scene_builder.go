package scene

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
)

// SceneBuilderOption is a functional option for configuring a Scene.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene starts active.
//
// Parameters:
//   - active: true to have the engine update the scene from the first tick
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithRenderables adds initial renderables to the scene in order.
//
// Parameters:
//   - renderables: the renderables to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRenderables(renderables ...*renderable.Renderable) SceneBuilderOption {
	return func(s *scene) {
		for _, r := range renderables {
			s.Add(r)
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines Update fans animators out to.
// Defaults to runtime.NumCPU()-1. More workers help scenes with many animators;
// fewer reduce scheduling overhead for small scenes.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithMaxBones sets the consumer's bone palette capacity checked by Submit.
//
// Parameters:
//   - n: the maximum bones per instance, 0 or less to disable the check
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMaxBones(n int) SceneBuilderOption {
	return func(s *scene) {
		s.maxBones = max(n, 0)
	}
}
