package scene

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model/modeltest"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	order    []string
	palettes map[string]int
	worlds   map[string]int
	failOn   string
}

func (u *recordingUploader) UploadMesh(name string, _, _ []byte, _ int) error {
	if name == u.failOn {
		return errors.New("out of memory")
	}
	u.order = append(u.order, name)
	return nil
}

func (u *recordingUploader) UploadWorld(name string, _ []byte) error {
	if u.worlds == nil {
		u.worlds = make(map[string]int)
	}
	u.worlds[name]++
	return nil
}

func (u *recordingUploader) UploadBoneTransforms(name string, _ uint64, palette []byte, _ int) error {
	if u.palettes == nil {
		u.palettes = make(map[string]int)
	}
	u.palettes[name] += len(palette)
	return nil
}

func (u *recordingUploader) UploadInstances(string, []byte, int) error {
	return nil
}

func chainAnimator(t *testing.T, instances int) animator.Animator {
	t.Helper()
	a := animator.NewAnimator(animator.WithModel(modeltest.Chain()))
	for i := 0; i < instances; i++ {
		_, err := a.AddInstance()
		require.NoError(t, err)
	}
	return a
}

func TestAddAndRemove(t *testing.T) {
	t.Parallel()
	s := NewScene("main", WithComputeWorkers(2))
	t.Cleanup(s.Release)

	a := chainAnimator(t, 1)
	first := s.Add(renderable.NewSkinned("left", a, mgl32.Ident4()))
	second := s.Add(renderable.NewSkinned("right", a, mgl32.Translate3D(2, 0, 0)))
	static := s.Add(renderable.NewStatic("floor", modeltest.Static(), mgl32.Ident4()))

	assert.Equal(t, 3, s.Count())
	assert.Len(t, s.Animators(), 1, "a shared animator is registered once")
	assert.Equal(t, "floor", s.Get(static).Name)

	s.Remove(first)
	assert.Len(t, s.Animators(), 1, "still referenced by the second renderable")
	s.Remove(second)
	assert.Empty(t, s.Animators())
	assert.Nil(t, s.Get(second))
	assert.Equal(t, 1, s.Count())

	s.Clear()
	assert.Equal(t, 0, s.Count())
}

func TestUpdateAdvancesEveryAnimator(t *testing.T) {
	t.Parallel()
	s := NewScene("main", WithComputeWorkers(3))
	t.Cleanup(s.Release)

	animators := make([]animator.Animator, 5)
	for i := range animators {
		animators[i] = chainAnimator(t, 2)
		s.Add(renderable.NewSkinned("chain", animators[i], mgl32.Ident4()))
	}

	reference := chainAnimator(t, 1)
	reference.PrepareFrame(5)
	want := reference.BoneTransforms(0)

	// Drain the writes staged when the instances were added.
	for _, a := range animators {
		a.Flush()
		a.StagedWriteData()
	}

	s.Update(5)
	for i, a := range animators {
		assert.Equal(t, want, a.BoneTransforms(1), "animator %d", i)
		writes := a.StagedWriteData()
		require.Len(t, writes, 1, "animator %d staged its palettes", i)
		assert.Equal(t, uint32(2), writes[0].InstanceCount)
	}
}

func TestSubmitInInsertionOrder(t *testing.T) {
	t.Parallel()
	s := NewScene("main",
		WithActive(true),
		WithRenderables(
			renderable.NewStatic("b", modeltest.Static(), mgl32.Ident4()),
			renderable.NewSkinned("a", chainAnimator(t, 3), mgl32.Ident4()),
			renderable.NewInstanced("c", modeltest.Static(), []mgl32.Mat4{mgl32.Ident4()}),
		),
	)
	t.Cleanup(s.Release)
	assert.True(t, s.Active())

	s.Update(0.25)
	up := &recordingUploader{}
	require.NoError(t, s.Submit(up))
	assert.Equal(t, []string{"b", "a", "c"}, up.order)
	assert.Equal(t, 3*2*64, up.palettes["a"])
}

func TestSubmitSharedAnimator(t *testing.T) {
	t.Parallel()
	a := chainAnimator(t, 2)
	s := NewScene("main", WithComputeWorkers(2),
		WithRenderables(
			renderable.NewSkinned("left", a, mgl32.Ident4()),
			renderable.NewSkinned("right", a, mgl32.Translate3D(2, 0, 0)),
		),
	)
	t.Cleanup(s.Release)

	for frame := 1; frame <= 3; frame++ {
		s.Update(0.1)
		up := &recordingUploader{}
		require.NoError(t, s.Submit(up))
		assert.Equal(t, 2*2*64, up.palettes["left"], "frame %d", frame)
		assert.Equal(t, 2*2*64, up.palettes["right"], "frame %d", frame)
		assert.Equal(t, map[string]int{"left": 1, "right": 1}, up.worlds, "frame %d", frame)
	}
}

func TestUpdateWithoutSubmitKeepsOneWrite(t *testing.T) {
	t.Parallel()
	a := chainAnimator(t, 2)
	s := NewScene("main", WithComputeWorkers(1), WithRenderables(renderable.NewSkinned("chain", a, mgl32.Ident4())))
	t.Cleanup(s.Release)

	for i := 0; i < 100; i++ {
		s.Update(0.1)
	}
	up := &recordingUploader{}
	require.NoError(t, s.Submit(up))
	assert.Equal(t, 2*2*64, up.palettes["chain"], "only the latest palettes are uploaded")
}

func TestSubmitErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		options  []SceneBuilderOption
		failOn   string
		wantErr  error
		wantSent []string
	}{
		"bone capacity": {
			options:  []SceneBuilderOption{WithMaxBones(1)},
			wantErr:  renderable.ErrTooManyBones,
			wantSent: []string{"floor"},
		},
		"uploader failure stops the walk": {
			failOn:   "floor",
			wantSent: nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := NewScene("main", tt.options...)
			t.Cleanup(s.Release)
			s.Add(renderable.NewStatic("floor", modeltest.Static(), mgl32.Ident4()))
			s.Add(renderable.NewSkinned("chain", chainAnimator(t, 1), mgl32.Ident4()))

			up := &recordingUploader{failOn: tt.failOn}
			err := s.Submit(up)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantSent, up.order)
		})
	}
}

func TestReleaseStopsUpdates(t *testing.T) {
	t.Parallel()
	a := chainAnimator(t, 1)
	s := NewScene("main", WithComputeWorkers(1))
	s.Add(renderable.NewSkinned("chain", a, mgl32.Ident4()))
	a.Flush()
	a.StagedWriteData()

	s.Release()
	s.Release()
	s.Update(1)
	assert.Equal(t, uint32(0), a.Flush(), "a released scene no longer advances animators")
}
