package engine

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithScene registers a scene at the given key during engine construction.
// Scenes are updated and submitted in ascending key order.
//
// Parameters:
//   - key: the ordering key (lower updates first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithUploader sets the collaborator that receives each tick's scene data.
//
// Parameters:
//   - u: the uploader
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithUploader(u renderable.BufferUploader) EngineBuilderOption {
	return func(e *engine) {
		e.uploader = u
	}
}

// WithTickCallback sets the callback run at the start of every tick.
//
// Parameters:
//   - callback: function receiving the seconds elapsed since the previous tick
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}
