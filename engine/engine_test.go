package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model/modeltest"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type meshRecorder struct {
	mu     sync.Mutex
	meshes []string
	bones  int
	err    error
}

func (r *meshRecorder) UploadMesh(name string, _, _ []byte, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meshes = append(r.meshes, name)
	return r.err
}

func (r *meshRecorder) UploadWorld(string, []byte) error {
	return nil
}

func (r *meshRecorder) UploadBoneTransforms(string, uint64, []byte, int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bones++
	return nil
}

func (r *meshRecorder) UploadInstances(string, []byte, int) error {
	return nil
}

func staticScene(t *testing.T, name string, active bool) scene.Scene {
	t.Helper()
	s := scene.NewScene(name, scene.WithActive(active), scene.WithComputeWorkers(1),
		scene.WithRenderables(renderable.NewStatic(name, modeltest.Static(), mgl32.Ident4())))
	t.Cleanup(s.Release)
	return s
}

func TestRunUpdatesActiveScenesInKeyOrder(t *testing.T) {
	t.Parallel()
	up := &meshRecorder{}

	a := animator.NewAnimator(animator.WithModel(modeltest.Chain()))
	_, err := a.AddInstance()
	require.NoError(t, err)
	skinned := scene.NewScene("skinned", scene.WithActive(true), scene.WithComputeWorkers(1),
		scene.WithRenderables(renderable.NewSkinned("chain", a, mgl32.Ident4())))
	t.Cleanup(skinned.Release)

	e := NewEngine(
		WithTickRate(500),
		WithUploader(up),
		WithScene(2, staticScene(t, "second", true)),
		WithScene(1, staticScene(t, "first", true)),
		WithScene(0, staticScene(t, "hidden", false)),
		WithScene(3, skinned),
	)

	ticks := 0
	e.SetTickCallback(func(dt float32) {
		assert.GreaterOrEqual(t, dt, float32(0))
		ticks++
		if ticks == 3 {
			e.Quit()
		}
	})

	require.NoError(t, e.Run(context.Background()))
	assert.GreaterOrEqual(t, ticks, 3)
	assert.Equal(t, uint64(ticks), e.Frames())

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, []string{"first", "second", "chain"}, up.meshes, "meshes upload once, inactive scenes are skipped")
	assert.Equal(t, ticks, up.bones, "one palette write per tick")

	rest := animator.NewAnimator(animator.WithModel(modeltest.Chain()))
	_, err = rest.AddInstance()
	require.NoError(t, err)
	assert.NotEqual(t, rest.BoneTransforms(0), a.BoneTransforms(0), "the skinned scene advanced")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithTickRate(1000))
	ctx, cancel := context.WithCancel(context.Background())
	e.SetTickCallback(func(float32) { cancel() })

	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
	assert.GreaterOrEqual(t, e.Frames(), uint64(1))
}

func TestRunReturnsSubmitError(t *testing.T) {
	t.Parallel()
	boom := errors.New("device lost")
	e := NewEngine(
		WithTickRate(1000),
		WithUploader(&meshRecorder{err: boom}),
		WithScene(0, staticScene(t, "main", true)),
	)
	assert.ErrorIs(t, e.Run(context.Background()), boom)
}

func TestQuitIsIdempotent(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	e.Quit()
	e.Quit()
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(0), e.Frames())
}

func TestRunRejectsSecondLoop(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithTickRate(1000))
	started := make(chan struct{})
	var once sync.Once
	e.SetTickCallback(func(float32) { once.Do(func() { close(started) }) })

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-started

	assert.ErrorIs(t, e.Run(context.Background()), ErrAlreadyRunning)
	e.Quit()
	assert.NoError(t, <-done)
}

func TestSetTickRate(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		fps  float64
		want time.Duration
	}{
		"120 per second": {fps: 120, want: time.Second / 120},
		"zero defaults":  {fps: 0, want: time.Second / 60},
		"negative":       {fps: -5, want: time.Second / 60},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e := NewEngine(WithTickRate(30))
			e.SetTickRate(tt.fps)
			assert.Equal(t, tt.want, e.TickRate())
		})
	}
}

func TestSetTickRateWhileRunning(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithTickRate(200))
	ticks := 0
	e.SetTickCallback(func(float32) {
		ticks++
		switch ticks {
		case 1:
			e.SetTickRate(1000)
		case 5:
			e.Quit()
		}
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, time.Millisecond, e.TickRate())
}

func TestSceneRegistry(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	s := staticScene(t, "main", true)
	e.AddScene(4, s)
	assert.Equal(t, s, e.Scene(4))

	scenes := e.Scenes()
	delete(scenes, 4)
	assert.NotNil(t, e.Scene(4), "Scenes returns a copy")

	e.RemoveScene(4)
	assert.Nil(t, e.Scene(4))
	e.EnableProfiler()
	e.DisableProfiler()
}
