package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model/modeltest"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderable"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Instances = 2
	cfg.Frames = 3
	cfg.Delta = 5
	cfg.Workers = 2
	return cfg
}

func TestBakeStaggersInstances(t *testing.T) {
	t.Parallel()
	result, err := bake(modeltest.Chain(), testConfig())
	require.NoError(t, err)

	assert.Equal(t, "chain", result.Model)
	assert.Equal(t, "bend", result.Clip)
	assert.Equal(t, 2, result.Bones)
	require.Len(t, result.Frames, 3)
	for i, f := range result.Frames {
		assert.Equal(t, i, f.Index)
		require.Len(t, f.Instances, 2)
	}

	// The clip loops every 20 seconds, so instance 1 starts 10 seconds in.
	// After two 5 second steps instance 0 reaches that same pose.
	assert.Equal(t, result.Frames[0].Instances[1], result.Frames[2].Instances[0])
	assert.NotEqual(t, result.Frames[0].Instances[0], result.Frames[0].Instances[1])
}

func TestBakeMatchesAnimator(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Instances = 1
	result, err := bake(modeltest.Chain(), cfg)
	require.NoError(t, err)

	a := animator.NewAnimator(animator.WithModel(modeltest.Chain()))
	_, err = a.AddInstance()
	require.NoError(t, err)
	a.PrepareFrame(10)
	want := a.BoneTransforms(0)

	got := result.Frames[2].Instances[0]
	for b := range want {
		assert.Equal(t, [16]float32(want[b]), got[b], "bone %d", b)
	}
}

func TestBakeErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		cfg  func() config.Config
		want error
	}{
		"unknown clip": {
			cfg: func() config.Config {
				cfg := testConfig()
				cfg.Clip = "run"
				return cfg
			},
			want: errUnknownClip,
		},
		"over bone capacity": {
			cfg: func() config.Config {
				cfg := testConfig()
				cfg.MaxBones = 1
				return cfg
			},
			want: renderable.ErrTooManyBones,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := bake(modeltest.Chain(), tt.cfg())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := bake(modeltest.Static(), testConfig())
	assert.ErrorIs(t, err, errNotSkinned)
}

func TestBakeRealtime(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.TickRate = 500
	result, err := bakeRealtime(context.Background(), modeltest.Chain(), cfg)
	require.NoError(t, err)
	assert.Len(t, result.Frames, 3)
}

func TestRecorderRejectsPartialPalette(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	assert.Error(t, rec.UploadBoneTransforms("chain", 0, make([]byte, 100), 2))
	assert.Error(t, rec.UploadBoneTransforms("chain", 0, nil, 0))
	assert.Error(t, rec.UploadBoneTransforms("chain", 64, make([]byte, 2*64), 2))
	require.NoError(t, rec.UploadBoneTransforms("chain", 0, make([]byte, 2*64), 2))
	assert.Len(t, rec.snapshot(), 1)
}

func TestRecorderPlacesWritesByOffset(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	full := common.MarshalMatrices(nil, []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4()})
	require.NoError(t, rec.UploadBoneTransforms("chain", 0, full, 2))

	moved := common.MarshalMatrices(nil, []mgl32.Mat4{mgl32.Translate3D(1, 0, 0), mgl32.Translate3D(2, 0, 0)})
	require.NoError(t, rec.UploadBoneTransforms("chain", 2*64, moved, 2))

	frames := rec.snapshot()
	require.Len(t, frames, 2)
	require.Len(t, frames[1].Instances, 2)
	assert.Equal(t, [16]float32(mgl32.Ident4()), frames[1].Instances[0][0], "instance 0 keeps its pose")
	assert.Equal(t, [16]float32(mgl32.Translate3D(2, 0, 0)), frames[1].Instances[1][1])
	assert.Equal(t, [16]float32(mgl32.Ident4()), frames[0].Instances[1][1], "earlier frames are not rewritten")
}

func TestWriteResult(t *testing.T) {
	t.Parallel()
	r := &Result{
		Model:  "chain",
		Bones:  1,
		Frames: []Frame{{Index: 0, Instances: [][][16]float32{{[16]float32(mgl32.Ident4())}}}},
	}
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, r))

	var decoded Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *r, decoded)
}
