// Package renderable describes what the engine hands to the drawing side each frame.
// The drawing side itself is external; it is reached only through the BufferUploader interface.
package renderable

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind is the closed set of renderable variants.
type Kind = model.Kind

const (
	KindStaticMesh     = model.KindStaticMesh
	KindSkinnedModel   = model.KindSkinnedModel
	KindInstancedVoxel = model.KindInstancedVoxel
)

var (
	// ErrTooManyBones is returned when a skinned palette exceeds the uploader's bone capacity.
	ErrTooManyBones = errors.New("bone palette exceeds capacity")

	// ErrMissingData is returned when a renderable lacks the data its kind requires.
	ErrMissingData = errors.New("renderable is missing data for its kind")

	// ErrUnknownKind is returned for a Kind outside the closed set.
	ErrUnknownKind = errors.New("unknown renderable kind")
)

// BufferUploader is the device-side collaborator that owns GPU buffers.
// Byte slices passed to it are only valid for the duration of the call.
type BufferUploader interface {
	// UploadMesh uploads the combined vertex and index streams of a model.
	UploadMesh(name string, vertexData, indexData []byte, indexCount int) error

	// UploadWorld uploads a renderable's column-major world matrix. It is called every frame.
	UploadWorld(name string, world []byte) error

	// UploadBoneTransforms uploads the bone palettes of a run of instances of a skinned model.
	// The palette holds boneCount column-major matrices per instance, instances back to back,
	// and lands at offset bytes into the model's palette buffer.
	UploadBoneTransforms(name string, offset uint64, palette []byte, boneCount int) error

	// UploadInstances uploads one column-major world matrix per instance.
	UploadInstances(name string, data []byte, count int) error
}

// Renderable is one drawable entry of a scene.
// Which fields apply depends on Kind:
//   - KindStaticMesh uses Model and World.
//   - KindSkinnedModel also uses Animator, whose staged palette writes are uploaded each frame.
//   - KindInstancedVoxel uses Model and Instances, one matrix per copy placed under World.
type Renderable struct {
	Name  string
	Kind  Kind
	World mgl32.Mat4
	Model model.Model

	Animator animator.Animator

	Instances []mgl32.Mat4

	// meshUploaded is set once the mesh streams have been handed to an uploader.
	meshUploaded bool
	worldBytes   []byte
}

// NewStatic creates a static mesh renderable.
//
// Parameters:
//   - name: the renderable name passed to the uploader
//   - m: the model to draw
//   - world: the model's world transform
//
// Returns:
//   - *Renderable: the renderable
func NewStatic(name string, m model.Model, world mgl32.Mat4) *Renderable {
	return &Renderable{Name: name, Kind: KindStaticMesh, World: world, Model: m}
}

// NewSkinned creates a skinned renderable drawing every instance of an animator.
//
// Parameters:
//   - name: the renderable name passed to the uploader
//   - a: the animator owning the instances; its model is the one drawn
//   - world: the world transform shared by the instances
//
// Returns:
//   - *Renderable: the renderable
func NewSkinned(name string, a animator.Animator, world mgl32.Mat4) *Renderable {
	return &Renderable{Name: name, Kind: KindSkinnedModel, World: world, Model: a.Model(), Animator: a}
}

// NewInstanced creates an instanced voxel renderable.
//
// Parameters:
//   - name: the renderable name passed to the uploader
//   - m: the model drawn at every instance transform
//   - instances: one world matrix per copy
//
// Returns:
//   - *Renderable: the renderable
func NewInstanced(name string, m model.Model, instances []mgl32.Mat4) *Renderable {
	return &Renderable{Name: name, Kind: KindInstancedVoxel, World: mgl32.Ident4(), Model: m, Instances: instances}
}

// Submit hands a renderable's data to the uploader according to its Kind.
// Mesh streams are uploaded on the first successful submission only and the world matrix on every one.
// Skinned palettes are drained from the animator's staged writes and rejected when the bone count
// exceeds maxBones. Renderables sharing an animator should go through SubmitWrites instead, since
// draining leaves nothing for the next one.
//
// Parameters:
//   - r: the renderable to submit
//   - uploader: the device-side collaborator
//   - maxBones: the bone capacity of the consumer, or 0 for no limit
//
// Returns:
//   - error: ErrTooManyBones, ErrMissingData, ErrUnknownKind or an uploader error
func Submit(r *Renderable, uploader BufferUploader, maxBones int) error {
	var writes []animator.BufferWrite
	if r.Kind == KindSkinnedModel && r.Animator != nil {
		writes = r.Animator.StagedWriteData()
	}
	return SubmitWrites(r, uploader, maxBones, writes)
}

// SubmitWrites is Submit with the animator's palette writes drained by the caller.
// The writes are ignored for kinds other than KindSkinnedModel.
//
// Parameters:
//   - r: the renderable to submit
//   - uploader: the device-side collaborator
//   - maxBones: the bone capacity of the consumer, or 0 for no limit
//   - writes: this frame's palette writes of r.Animator
//
// Returns:
//   - error: ErrTooManyBones, ErrMissingData, ErrUnknownKind or an uploader error
func SubmitWrites(r *Renderable, uploader BufferUploader, maxBones int, writes []animator.BufferWrite) error {
	if r.Model == nil {
		return fmt.Errorf("%s: no model: %w", r.Name, ErrMissingData)
	}

	switch r.Kind {
	case KindStaticMesh:
		if err := r.uploadMesh(uploader); err != nil {
			return err
		}
		return r.uploadWorld(uploader)

	case KindSkinnedModel:
		if r.Animator == nil {
			return fmt.Errorf("%s: no animator: %w", r.Name, ErrMissingData)
		}
		bones := r.Animator.BoneCount()
		if maxBones > 0 && bones > maxBones {
			return fmt.Errorf("%s: %d bones, capacity %d: %w", r.Name, bones, maxBones, ErrTooManyBones)
		}
		if err := r.uploadMesh(uploader); err != nil {
			return err
		}
		if err := r.uploadWorld(uploader); err != nil {
			return err
		}
		for _, w := range writes {
			if err := uploader.UploadBoneTransforms(r.Name, w.Offset, w.Data, bones); err != nil {
				return fmt.Errorf("%s: upload bone transforms: %w", r.Name, err)
			}
		}
		return nil

	case KindInstancedVoxel:
		if len(r.Instances) == 0 {
			return fmt.Errorf("%s: no instances: %w", r.Name, ErrMissingData)
		}
		if err := r.uploadMesh(uploader); err != nil {
			return err
		}
		if err := r.uploadWorld(uploader); err != nil {
			return err
		}
		data := common.MarshalMatrices(nil, r.Instances)
		if err := uploader.UploadInstances(r.Name, data, len(r.Instances)); err != nil {
			return fmt.Errorf("%s: upload instances: %w", r.Name, err)
		}
		return nil

	default:
		return fmt.Errorf("%s: kind %d: %w", r.Name, int(r.Kind), ErrUnknownKind)
	}
}

func (r *Renderable) uploadWorld(uploader BufferUploader) error {
	r.worldBytes = common.MarshalMatrices(r.worldBytes[:0], []mgl32.Mat4{r.World})
	if err := uploader.UploadWorld(r.Name, r.worldBytes); err != nil {
		return fmt.Errorf("%s: upload world: %w", r.Name, err)
	}
	return nil
}

func (r *Renderable) uploadMesh(uploader BufferUploader) error {
	if r.meshUploaded {
		return nil
	}
	m := r.Model
	if err := uploader.UploadMesh(r.Name, m.VertexData(), m.IndexData(), m.IndexCount()); err != nil {
		return fmt.Errorf("%s: upload mesh: %w", r.Name, err)
	}
	r.meshUploaded = true
	return nil
}
