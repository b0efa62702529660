package animator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNoModel is returned when adding an instance to an animator that has no model.
	ErrNoModel = errors.New("animator has no model")

	// ErrInstanceOutOfRange is returned when addressing an instance index that is not registered.
	ErrInstanceOutOfRange = errors.New("animator instance index out of range")
)

// defaultMaxInstances is the initial instance capacity before the first automatic grow.
const defaultMaxInstances = 16

// BufferWrite is a staged palette upload covering a contiguous run of instances.
// Offset is in bytes from the start of the animator's palette buffer, where every instance
// occupies BoneCount column-major matrices. Data is reused by the next Flush.
type BufferWrite struct {
	FirstInstance uint32
	InstanceCount uint32
	Offset        uint64
	Data          []byte
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	model model.Model

	maxInstances uint32
	instances    []*animation.Instance

	dirty                bool
	dirtyStart, dirtyEnd uint32

	stagedWriteData []BufferWrite

	// Reusable staging buffer; consumers copy the data before the next Flush.
	stagingPalette []byte
}

// Animator drives every animated copy of one model.
//
// Each instance owns its playback time and bone table while sharing the model's node tree and
// keyframe tracks. PrepareFrame is the only writer of instance transforms; once it returns,
// Flush stages the palettes of the updated instances as byte writes for the consumer to upload.
// All methods are safe for concurrent use.
type Animator interface {
	// Model retrieves the Model this animator plays.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// BoneCount returns the number of palette matrices per instance.
	//
	// Returns:
	//   - int: the model's bone count, or 0 without a model
	BoneCount() int

	// MaxInstances returns the current instance capacity. Adding past it grows the capacity.
	//
	// Returns:
	//   - uint32: the instance capacity
	MaxInstances() uint32

	// AddInstance registers a new instance playing the model's first clip from time 0.
	// If the current capacity is exceeded, the capacity doubles.
	//
	// Returns:
	//   - uint32: the index of the newly registered instance
	//   - error: ErrNoModel if the animator has no model
	AddInstance() (uint32, error)

	// RemoveInstance removes the instance at the given index using a swap-remove strategy.
	// Returns the old last index that was swapped and whether a swap occurred.
	//
	// Parameters:
	//   - index: the instance index to remove
	//
	// Returns:
	//   - uint32: the old last index that was swapped into the removed slot (only meaningful when bool is true)
	//   - bool: true if the last instance was swapped into the removed slot
	RemoveInstance(index uint32) (uint32, bool)

	// InstanceCount returns the current number of registered instances.
	//
	// Returns:
	//   - uint32: the number of active instances
	InstanceCount() uint32

	// PlayAnimation starts playback of a clip on an instance from time 0.
	//
	// Parameters:
	//   - instanceIndex: the instance to animate
	//   - clipIndex: the clip to play, or -1 to hold the bind pose
	//
	// Returns:
	//   - error: an error if the instance or clip index is out of range
	PlayAnimation(instanceIndex uint32, clipIndex int) error

	// SetAnimationSpeed sets the playback speed multiplier for an instance.
	// Out of range indices are ignored.
	//
	// Parameters:
	//   - instanceIndex: the instance to update
	//   - speed: the speed multiplier (1.0 = normal, 0.5 = half speed)
	SetAnimationSpeed(instanceIndex uint32, speed float32)

	// SetAnimationTime sets the playback position for an instance.
	// Out of range indices are ignored.
	//
	// Parameters:
	//   - instanceIndex: the instance to update
	//   - seconds: the playback time in seconds
	SetAnimationTime(instanceIndex uint32, seconds float32)

	// ClipIndex returns the clip an instance is playing.
	//
	// Parameters:
	//   - instanceIndex: the instance to query
	//
	// Returns:
	//   - int: the clip index, or -1 for none or an out of range instance
	ClipIndex(instanceIndex uint32) int

	// PrepareFrame advances every instance by deltaTime and re-evaluates its bone transforms.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	PrepareFrame(deltaTime float32)

	// Flush stages the palettes of instances updated since the last flush as a BufferWrite.
	// At most one write is pending: a write not yet drained is merged into the new one.
	//
	// Returns:
	//   - uint32: the number of instances that were flushed
	Flush() uint32

	// StagedWriteData returns and clears the pending palette write, if any.
	//
	// Returns:
	//   - []BufferWrite: the pending writes
	StagedWriteData() []BufferWrite

	// BoneTransforms returns a copy of one instance's final transforms in BoneID order.
	//
	// Parameters:
	//   - instanceIndex: the instance to query
	//
	// Returns:
	//   - []mgl32.Mat4: one matrix per bone, nil for an out of range instance
	BoneTransforms(instanceIndex uint32) []mgl32.Mat4

	// Release drops every instance and pending write.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator configured using the provided options.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: a new instance of Animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:              &sync.Mutex{},
		maxInstances:    defaultMaxInstances,
		stagedWriteData: make([]BufferWrite, 0, 1),
	}
	for _, opt := range options {
		opt(a)
	}
	a.instances = make([]*animation.Instance, 0, a.maxInstances)
	return a
}

func (a *animator) Model() model.Model {
	return a.model
}

func (a *animator) BoneCount() int {
	if a.model == nil {
		return 0
	}
	return a.model.BoneCount()
}

func (a *animator) MaxInstances() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxInstances
}

func (a *animator) AddInstance() (uint32, error) {
	if a.model == nil {
		return 0, ErrNoModel
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if uint32(len(a.instances)) >= a.maxInstances {
		a.grow(max(a.maxInstances*2, 8))
	}

	inst := animation.NewInstance(a.model)
	inst.Evaluate()
	idx := uint32(len(a.instances))
	a.instances = append(a.instances, inst)
	a.markDirty(idx, idx+1)
	return idx, nil
}

// grow raises the capacity to newMax, keeping every instance. Caller holds the lock.
func (a *animator) grow(newMax uint32) {
	if newMax <= a.maxInstances {
		return
	}
	grown := make([]*animation.Instance, len(a.instances), newMax)
	copy(grown, a.instances)
	a.instances = grown
	a.maxInstances = newMax
}

func (a *animator) RemoveInstance(index uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	count := uint32(len(a.instances))
	if count == 0 || index >= count {
		return 0, false
	}

	last := count - 1
	swapped := index != last
	if swapped {
		a.instances[index] = a.instances[last]
		a.markDirty(index, index+1)
	}
	a.instances[last] = nil
	a.instances = a.instances[:last]

	// The removed tail no longer exists; keep the dirty range inside the live instances.
	if a.dirty {
		a.dirtyEnd = min(a.dirtyEnd, last)
		if a.dirtyStart >= a.dirtyEnd {
			a.dirty = false
			a.dirtyStart, a.dirtyEnd = 0, 0
		}
	}
	return last, swapped
}

func (a *animator) InstanceCount() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint32(len(a.instances))
}

func (a *animator) PlayAnimation(instanceIndex uint32, clipIndex int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, err := a.instance(instanceIndex)
	if err != nil {
		return err
	}
	if err := inst.Play(clipIndex); err != nil {
		return fmt.Errorf("instance %d: %w", instanceIndex, err)
	}
	return nil
}

func (a *animator) SetAnimationSpeed(instanceIndex uint32, speed float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, err := a.instance(instanceIndex); err == nil {
		inst.SetSpeed(speed)
	}
}

func (a *animator) SetAnimationTime(instanceIndex uint32, seconds float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inst, err := a.instance(instanceIndex); err == nil {
		inst.SetTime(seconds)
	}
}

func (a *animator) ClipIndex(instanceIndex uint32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, err := a.instance(instanceIndex)
	if err != nil {
		return -1
	}
	return inst.ClipIndex()
}

func (a *animator) PrepareFrame(deltaTime float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, inst := range a.instances {
		inst.Update(deltaTime)
	}
	if len(a.instances) > 0 {
		a.markDirty(0, uint32(len(a.instances)))
	}
}

func (a *animator) Flush() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.dirty {
		return 0
	}

	start, end := a.dirtyStart, a.dirtyEnd
	// An undrained write shares the staging buffer, so it is folded into this one.
	if len(a.stagedWriteData) > 0 {
		p := a.stagedWriteData[0]
		start = min(start, p.FirstInstance)
		end = min(max(end, p.FirstInstance+p.InstanceCount), uint32(len(a.instances)))
	}

	count := end - start
	stride := uint64(a.BoneCount()) * 64

	buf := a.stagingPalette[:0]
	for _, inst := range a.instances[start:end] {
		buf = common.MarshalMatrices(buf, inst.Palette())
	}
	a.stagingPalette = buf

	a.stagedWriteData = []BufferWrite{{
		FirstInstance: start,
		InstanceCount: count,
		Offset:        uint64(start) * stride,
		Data:          buf,
	}}

	a.dirty = false
	a.dirtyStart = 0
	a.dirtyEnd = 0
	return count
}

func (a *animator) StagedWriteData() []BufferWrite {
	a.mu.Lock()
	defer a.mu.Unlock()
	w := a.stagedWriteData
	a.stagedWriteData = nil
	return w
}

func (a *animator) BoneTransforms(instanceIndex uint32) []mgl32.Mat4 {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, err := a.instance(instanceIndex)
	if err != nil {
		return nil
	}
	return inst.BoneTransforms()
}

func (a *animator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.instances = a.instances[:0]
	a.stagedWriteData = nil
	a.stagingPalette = nil
	a.dirty = false
	a.dirtyStart, a.dirtyEnd = 0, 0
}

// instance returns the instance at index. Caller holds the lock.
func (a *animator) instance(index uint32) (*animation.Instance, error) {
	if index >= uint32(len(a.instances)) {
		return nil, fmt.Errorf("instance %d of %d: %w", index, len(a.instances), ErrInstanceOutOfRange)
	}
	return a.instances[index], nil
}

// markDirty widens the dirty instance range to cover [start, end). Caller holds the lock.
func (a *animator) markDirty(start, end uint32) {
	if !a.dirty {
		a.dirtyStart = start
		a.dirtyEnd = end
		a.dirty = true
		return
	}
	a.dirtyStart = min(a.dirtyStart, start)
	a.dirtyEnd = max(a.dirtyEnd, end)
}
