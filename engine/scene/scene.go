package scene

import (
	"fmt"
	"log"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
)

// Scene manages a collection of Renderables and the Animators behind the skinned ones.
// Update advances every animator on a shared worker pool and returns only once all of them
// have finished, so instance transforms have exactly one writer per frame and are read only
// after the barrier. Submit then hands every renderable to a BufferUploader in insertion order.
// Scenes can be hot-swapped via the Active flag.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently updated by the engine.
	Active() bool

	// SetActive sets whether this scene is updated by the engine.
	SetActive(active bool)

	// Add registers a renderable and, for a skinned one, its animator.
	// An animator shared by several renderables is advanced once per frame.
	//
	// Parameters:
	//   - r: the renderable to add
	//
	// Returns:
	//   - uint64: the ID assigned to the renderable
	Add(r *renderable.Renderable) uint64

	// Get retrieves a renderable by ID.
	//
	// Parameters:
	//   - id: the renderable ID
	//
	// Returns:
	//   - *renderable.Renderable: the renderable, or nil if not found
	Get(id uint64) *renderable.Renderable

	// Remove unregisters a renderable. Its animator is dropped once no renderable uses it.
	//
	// Parameters:
	//   - id: the renderable ID
	Remove(id uint64)

	// Count returns the number of registered renderables.
	Count() int

	// Renderables returns the registered renderables in insertion order.
	Renderables() []*renderable.Renderable

	// Animators returns the registered animators in registration order.
	Animators() []animator.Animator

	// Update advances every animator by deltaTime and stages its palettes.
	// Animators are processed in parallel; Update blocks until all of them are done.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Update(deltaTime float32)

	// Submit hands every renderable to the uploader in insertion order, stopping at the first failure.
	//
	// Parameters:
	//   - uploader: the device-side collaborator
	//
	// Returns:
	//   - error: the first submission error, wrapped with the renderable's ID
	Submit(uploader renderable.BufferUploader) error

	// Clear removes every renderable and animator.
	Clear()

	// Release stops the worker pool. Update becomes a no-op afterwards.
	Release()
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	renderables map[uint64]*renderable.Renderable
	order       []uint64
	nextID      uint64

	animators []animator.Animator
	// animatorRefs counts the renderables sharing each animator.
	animatorRefs map[animator.Animator]int

	maxBones int

	// computePool keeps a bounded set of goroutines alive across frames for Update.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	released       bool
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new Scene configured with the provided options.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		renderables:    make(map[uint64]*renderable.Renderable),
		animatorRefs:   make(map[animator.Animator]int),
		nextID:         1,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Add(r *renderable.Renderable) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.renderables[id] = r
	s.order = append(s.order, id)

	if r.Kind == renderable.KindSkinnedModel && r.Animator != nil {
		if s.animatorRefs[r.Animator] == 0 {
			s.animators = append(s.animators, r.Animator)
		}
		s.animatorRefs[r.Animator]++
	}
	return id
}

func (s *scene) Get(id uint64) *renderable.Renderable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderables[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.renderables[id]
	if !ok {
		return
	}
	delete(s.renderables, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}

	if a := r.Animator; a != nil && s.animatorRefs[a] > 0 {
		s.animatorRefs[a]--
		if s.animatorRefs[a] == 0 {
			delete(s.animatorRefs, a)
			if i := slices.Index(s.animators, a); i >= 0 {
				s.animators = slices.Delete(s.animators, i, i+1)
			}
		}
	}
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *scene) Renderables() []*renderable.Renderable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*renderable.Renderable, len(s.order))
	for i, id := range s.order {
		out[i] = s.renderables[id]
	}
	return out
}

func (s *scene) Animators() []animator.Animator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.animators)
}

func (s *scene) Update(deltaTime float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return
	}

	// Workers are reused across frames. A WaitGroup is the per-frame barrier since
	// pool.Wait() waits for workers to idle-exit, which never happens at frame rate.
	var wg sync.WaitGroup
	for id, a := range s.animators {
		if a.InstanceCount() == 0 {
			continue
		}

		wg.Add(1)
		aCap := a
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				aCap.PrepareFrame(deltaTime)
				aCap.Flush()
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Submit(uploader renderable.BufferUploader) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Each animator is drained once; every renderable drawing it gets the same writes.
	writes := make(map[animator.Animator][]animator.BufferWrite, len(s.animators))
	for _, a := range s.animators {
		writes[a] = a.StagedWriteData()
	}

	for _, id := range s.order {
		r := s.renderables[id]
		if err := renderable.SubmitWrites(r, uploader, s.maxBones, writes[r.Animator]); err != nil {
			return fmt.Errorf("scene %s: renderable %d: %w", s.name, id, err)
		}
	}
	return nil
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.renderables = make(map[uint64]*renderable.Renderable)
	s.order = nil
	s.animators = nil
	s.animatorRefs = make(map[animator.Animator]int)
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.computePool.Stop()
	log.Printf("[Scene] %s released %d renderables", s.name, len(s.order))
}
