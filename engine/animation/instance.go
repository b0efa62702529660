package animation

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrClipOutOfRange is returned when selecting a clip index the model does not have.
var ErrClipOutOfRange = errors.New("animation clip index out of range")

// Instance is one independently playing copy of a model's skeleton.
// Keyframe tracks and the node tree are shared read-only through the model; the bone table
// holding final transforms is owned by the instance. Update is the single writer.
type Instance struct {
	model   model.Model
	clip    int
	speed   float32
	elapsed float32
	bones   *skeleton.BoneInfoTable
	palette []mgl32.Mat4
	eval    Evaluator
}

// NewInstance creates an instance bound to m, playing the model's first clip if it has one.
// Final transforms are identity until the first Update.
//
// Parameters:
//   - m: the loaded model
//
// Returns:
//   - *Instance: the new instance
func NewInstance(m model.Model) *Instance {
	clip := -1
	if m.AnimationCount() > 0 {
		clip = 0
	}
	inst := &Instance{
		model: m,
		clip:  clip,
		speed: 1,
		bones: skeleton.NewBoneInfoTable(m.BoneOffsets()),
	}
	inst.palette = inst.bones.Finals(nil)
	return inst
}

// Model returns the model the instance plays.
func (i *Instance) Model() model.Model {
	return i.model
}

// Play selects the active clip by index and restarts playback from time 0.
//
// Parameters:
//   - clip: the clip index, or -1 to hold the bind pose
//
// Returns:
//   - error: ErrClipOutOfRange if the index is invalid
func (i *Instance) Play(clip int) error {
	if clip < -1 || clip >= i.model.AnimationCount() {
		return fmt.Errorf("play %d of %d clips: %w", clip, i.model.AnimationCount(), ErrClipOutOfRange)
	}
	i.clip = clip
	i.elapsed = 0
	return nil
}

// ClipIndex returns the active clip index, or -1 when none is playing.
func (i *Instance) ClipIndex() int {
	return i.clip
}

// Clip returns the active clip, or nil when none is playing.
func (i *Instance) Clip() *model.AnimationClip {
	if i.clip < 0 {
		return nil
	}
	return i.model.Animations()[i.clip]
}

// SetSpeed sets the playback speed multiplier applied to every Update delta.
func (i *Instance) SetSpeed(speed float32) {
	i.speed = speed
}

// Speed returns the playback speed multiplier.
func (i *Instance) Speed() float32 {
	return i.speed
}

// SetTime sets the accumulated playback time in seconds.
func (i *Instance) SetTime(seconds float32) {
	i.elapsed = seconds
}

// Elapsed returns the accumulated playback time in seconds.
func (i *Instance) Elapsed() float32 {
	return i.elapsed
}

// TimeTicks returns the current clip-local time in ticks.
func (i *Instance) TimeTicks() float32 {
	return AnimationTimeTicks(i.Clip(), i.elapsed)
}

// Update advances playback by dt seconds, scaled by the instance speed, and re-evaluates every
// bone's final transform.
//
// Parameters:
//   - dt: elapsed seconds since the previous update
func (i *Instance) Update(dt float32) {
	i.elapsed += dt * i.speed
	i.Evaluate()
}

// Evaluate recomputes final transforms at the current time without advancing it.
func (i *Instance) Evaluate() {
	clip := i.Clip()
	i.eval.Evaluate(
		i.model.Nodes(),
		clip,
		AnimationTimeTicks(clip, i.elapsed),
		i.model.BoneIndex(),
		i.model.GlobalInverse(),
		i.bones,
	)
	i.palette = i.bones.Finals(i.palette)
}

// Palette returns the final transforms of the last evaluation in BoneID order.
// The slice is overwritten by the next Update and must not be retained across frames.
func (i *Instance) Palette() []mgl32.Mat4 {
	return i.palette
}

// BoneTransforms returns a copy of the final transforms in BoneID order.
//
// Returns:
//   - []mgl32.Mat4: one matrix per bone
func (i *Instance) BoneTransforms() []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(i.palette))
	copy(out, i.palette)
	return out
}

// Export copies the final transforms into dst, reusing its capacity, and returns the filled slice.
// Consumers that keep one buffer per frame use Export instead of BoneTransforms to avoid allocating.
//
// Parameters:
//   - dst: the destination slice, may be nil
//
// Returns:
//   - []mgl32.Mat4: dst resized to the bone count and filled
func (i *Instance) Export(dst []mgl32.Mat4) []mgl32.Mat4 {
	if cap(dst) < len(i.palette) {
		dst = make([]mgl32.Mat4, len(i.palette))
	}
	dst = dst[:len(i.palette)]
	copy(dst, i.palette)
	return dst
}

// FinalTransform returns the final transform of a named bone.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - mgl32.Mat4: the bone's final transform, or identity when not found
//   - bool: false if the name is not a bone of the model
func (i *Instance) FinalTransform(name string) (mgl32.Mat4, bool) {
	id, ok := i.model.BoneIndex().Lookup(name)
	if !ok || int(id) >= i.bones.Len() {
		return mgl32.Ident4(), false
	}
	return i.bones.At(id).Final, true
}
