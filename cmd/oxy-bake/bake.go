package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/config"
	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	errNotSkinned  = errors.New("model has no skeleton to bake")
	errUnknownClip = errors.New("model has no clip with that name")
)

// Result is the JSON document written by oxy-bake.
type Result struct {
	Model     string  `json:"model"`
	Clip      string  `json:"clip"`
	Bones     int     `json:"bones"`
	Instances int     `json:"instances"`
	Delta     float64 `json:"delta"`
	Frames    []Frame `json:"frames"`
}

// Frame holds every instance's palette after one step; Instances[i][b] is bone b of instance i.
type Frame struct {
	Index     int             `json:"frame"`
	Instances [][][16]float32 `json:"instances"`
}

// recorder is a BufferUploader that keeps a copy of every palette it receives.
// Staged palette bytes are reused by the animator, so they are decoded on arrival.
// Each write is placed over the latest pose of every instance and recorded as one frame.
type recorder struct {
	mu        sync.Mutex
	frames    []Frame
	current   [][][16]float32
	meshBytes int
}

func (r *recorder) UploadMesh(_ string, vertexData, indexData []byte, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meshBytes += len(vertexData) + len(indexData)
	return nil
}

func (r *recorder) UploadWorld(string, []byte) error {
	return nil
}

func (r *recorder) UploadBoneTransforms(_ string, offset uint64, palette []byte, boneCount int) error {
	stride := boneCount * 64
	if boneCount <= 0 || len(palette)%stride != 0 || offset%uint64(stride) != 0 {
		return fmt.Errorf("palette of %d bytes at offset %d is not a whole number of %d-bone instances", len(palette), offset, boneCount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	first := int(offset / uint64(stride))
	for i := 0; i*stride < len(palette); i++ {
		bones := make([][16]float32, boneCount)
		for b := range bones {
			for k := range bones[b] {
				bits := binary.LittleEndian.Uint32(palette[i*stride+b*64+k*4:])
				bones[b][k] = math.Float32frombits(bits)
			}
		}
		for len(r.current) <= first+i {
			r.current = append(r.current, nil)
		}
		r.current[first+i] = bones
	}
	r.frames = append(r.frames, Frame{Index: len(r.frames), Instances: slices.Clone(r.current)})
	return nil
}

func (r *recorder) UploadInstances(string, []byte, int) error {
	return nil
}

func (r *recorder) snapshot() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// newBakeScene builds one skinned renderable with cfg.Instances copies of m, each playing
// the configured clip with its start time spread evenly across one loop.
func newBakeScene(m model.Model, cfg config.Config) (scene.Scene, string, error) {
	if !m.Skinned() {
		return nil, "", fmt.Errorf("%s: %w", m.Name(), errNotSkinned)
	}

	clipIndex := -1
	if m.AnimationCount() > 0 {
		clipIndex = 0
	}
	if cfg.Clip != "" {
		if clipIndex = m.GetAnimationIndex(cfg.Clip); clipIndex < 0 {
			return nil, "", fmt.Errorf("%s: clip %q: %w", m.Name(), cfg.Clip, errUnknownClip)
		}
	}

	var clipName string
	var loop float32
	if clipIndex >= 0 {
		clip := m.Animations()[clipIndex]
		clipName = clip.Name
		loop = animation.ClipSeconds(clip)
	}

	a := animator.NewAnimator(animator.WithModel(m), animator.WithMaxInstances(cfg.Instances))
	for i := 0; i < cfg.Instances; i++ {
		idx, err := a.AddInstance()
		if err != nil {
			return nil, "", err
		}
		if err := a.PlayAnimation(idx, clipIndex); err != nil {
			return nil, "", err
		}
		a.SetAnimationTime(idx, loop*float32(i)/float32(cfg.Instances))
	}

	s := scene.NewScene(m.Name(),
		scene.WithActive(true),
		scene.WithComputeWorkers(cfg.Workers),
		scene.WithMaxBones(cfg.MaxBones),
		scene.WithRenderables(renderable.NewSkinned(m.Name(), a, mgl32.Ident4())),
	)
	return s, clipName, nil
}

// bake steps cfg.Frames fixed deltas through a scene. Frame 0 is the starting pose.
func bake(m model.Model, cfg config.Config) (*Result, error) {
	s, clipName, err := newBakeScene(m, cfg)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	var prof *profiler.Profiler
	if cfg.Profiling {
		prof = profiler.NewProfiler()
	}

	rec := &recorder{}
	for f := 0; f < cfg.Frames; f++ {
		dt := float32(cfg.Delta)
		if f == 0 {
			dt = 0
		}
		s.Update(dt)
		if err := s.Submit(rec); err != nil {
			return nil, fmt.Errorf("frame %d: %w", f, err)
		}
		if prof != nil {
			prof.Tick()
		}
	}
	return newResult(m, clipName, cfg, rec), nil
}

// bakeRealtime drives the scene through the engine loop at cfg.TickRate, so frame deltas
// are measured wall time rather than cfg.Delta.
func bakeRealtime(ctx context.Context, m model.Model, cfg config.Config) (*Result, error) {
	s, clipName, err := newBakeScene(m, cfg)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	rec := &recorder{}
	e := engine.NewEngine(
		engine.WithTickRate(cfg.TickRate),
		engine.WithProfiling(cfg.Profiling),
		engine.WithScene(0, s),
		engine.WithUploader(rec),
	)
	e.SetTickCallback(func(float32) {
		if e.Frames()+1 >= uint64(cfg.Frames) {
			e.Quit()
		}
	})

	log.Printf("[bake] running %d frames at %.0f ticks per second", cfg.Frames, cfg.TickRate)
	if err := e.Run(ctx); err != nil {
		return nil, err
	}
	return newResult(m, clipName, cfg, rec), nil
}

func newResult(m model.Model, clipName string, cfg config.Config, rec *recorder) *Result {
	frames := rec.snapshot()
	// The engine may finish one tick after Quit.
	frames = frames[:min(len(frames), cfg.Frames)]
	return &Result{
		Model:     m.Name(),
		Clip:      clipName,
		Bones:     m.BoneCount(),
		Instances: cfg.Instances,
		Delta:     cfg.Delta,
		Frames:    frames,
	}
}
