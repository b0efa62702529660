package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

// ErrAlreadyRunning is returned by Run when the engine loop is already active.
var ErrAlreadyRunning = errors.New("engine is already running")

// engine implements the Engine interface.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration // Channel for live tick rate updates

	running bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	uploader renderable.BufferUploader

	scenes map[int]scene.Scene
	frames uint64
}

// Engine is the main entry point for the engine.
// It drives a fixed-rate loop that advances every active scene's animation and hands the
// results to a BufferUploader. There is no window; whatever draws the frames lives behind the uploader.
type Engine interface {
	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine loop rate in ticks per second.
	// Applies on the next tick when the loop is running.
	//
	// Parameters:
	//   - fps: target ticks per second, values <= 0 mean 60
	SetTickRate(fps float64)

	// TickRate returns the current tick interval.
	//
	// Returns:
	//   - time.Duration: the time between ticks
	TickRate() time.Duration

	// SetTickCallback sets the callback run at the start of every tick, before scenes update.
	//
	// Parameters:
	//   - callback: function receiving the seconds elapsed since the previous tick
	SetTickCallback(callback func(deltaTime float32))

	// SetUploader sets the collaborator that receives every active scene's data after it updates.
	// With no uploader, scenes are updated but nothing is submitted.
	//
	// Parameters:
	//   - u: the uploader, or nil
	SetUploader(u renderable.BufferUploader)

	// AddScene registers a scene at the given key. Scenes update in ascending key order.
	//
	// Parameters:
	//   - key: the ordering key (lower updates first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene unregisters the scene at key.
	//
	// Parameters:
	//   - key: the ordering key
	RemoveScene(key int)

	// Scene returns the scene at key, or nil.
	//
	// Parameters:
	//   - key: the ordering key
	//
	// Returns:
	//   - scene.Scene: the scene or nil
	Scene(key int) scene.Scene

	// Scenes returns a copy of the registered scenes.
	//
	// Returns:
	//   - map[int]scene.Scene: the scenes by key
	Scenes() map[int]scene.Scene

	// Frames returns the number of ticks completed since construction.
	//
	// Returns:
	//   - uint64: the tick count
	Frames() uint64

	// Run blocks, ticking until ctx is cancelled, Quit is called or a submission fails.
	// Each tick runs the tick callback, updates the active scenes in key order, submits them
	// to the uploader and ticks the profiler.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: nil after Quit, ctx.Err() after cancellation, or the first submission error
	Run(ctx context.Context) error

	// Quit stops the loop. Safe to call more than once and from the tick callback.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine configured with the provided options.
//
// Parameters:
//   - options: functional options for the engine
//
// Returns:
//   - Engine: the new engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.RWMutex{},
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		scenes:           make(map[int]scene.Scene),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	rate := e.engineTickRate
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.quitChannel:
			return nil
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if err := e.tick(dt); err != nil {
				log.Printf("[Engine] stopping: %v", err)
				return err
			}
		}
	}
}

// tick runs one engine step.
func (e *engine) tick(dt float32) error {
	e.mu.RLock()
	callback := e.tickCallback
	e.mu.RUnlock()
	if callback != nil {
		callback(dt)
	}

	scenes, uploader := e.activeScenes()
	for _, s := range scenes {
		s.Update(dt)
	}
	if uploader != nil {
		for _, s := range scenes {
			if err := s.Submit(uploader); err != nil {
				return fmt.Errorf("submit: %w", err)
			}
		}
	}

	e.mu.Lock()
	e.frames++
	profile := e.profilingEnabled
	e.mu.Unlock()
	if profile {
		e.profiler.Tick()
	}
	return nil
}

// activeScenes returns the active scenes in ascending key order, and the current uploader.
func (e *engine) activeScenes() ([]scene.Scene, renderable.BufferUploader) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active, e.uploader
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	e.mu.Lock()
	e.engineTickRate = newRate
	running := e.running
	e.mu.Unlock()
	if !running {
		return
	}

	// Replace any rate the loop has not picked up yet.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) TickRate() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.engineTickRate
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetUploader(u renderable.BufferUploader) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploader = u
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) Frames() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frames
}

// tickInterval converts ticks per second to a ticker period, treating fps <= 0 as 60.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}
