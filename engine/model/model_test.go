package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformMatrixOrder(t *testing.T) {
	t.Parallel()
	tr := Transform{
		Translation: [3]float32{1, 2, 3},
		Rotation:    [4]float32{0, 0, 0, 1},
		Scale:       [3]float32{2, 2, 2},
	}
	m := tr.Matrix()
	// Scale applies before translation.
	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDeltaSlice(t, []float32{3, 2, 3, 1}, p[:], 1e-6)

	assert.Equal(t, mgl32.Ident4(), IdentityTransform().Matrix())
}

func TestClipChannelLookup(t *testing.T) {
	t.Parallel()
	clip := &AnimationClip{
		Name: "walk",
		Channels: []AnimationChannel{
			{NodeName: "hips"},
			{NodeName: "arm", RotationKeys: []QuaternionKeyframe{{Time: 1}}},
		},
	}
	ch, ok := clip.Channel("arm")
	require.True(t, ok)
	assert.Len(t, ch.RotationKeys, 1)

	ch, ok = clip.Channel("leg")
	assert.False(t, ok)
	assert.Nil(t, ch)
}

func TestNewModelDefaults(t *testing.T) {
	t.Parallel()
	m := NewModel(WithName("crate"))
	assert.Equal(t, "crate", m.Name())
	assert.Equal(t, KindStaticMesh, m.Kind())
	assert.False(t, m.Skinned())
	require.Len(t, m.Nodes(), 1)
	assert.Equal(t, mgl32.Ident4(), m.GlobalInverse())
	assert.Equal(t, 0, m.BoneCount())
	assert.Equal(t, -1, m.GetAnimationIndex("idle"))
}

func TestNewModelWithRig(t *testing.T) {
	t.Parallel()
	rig, err := skeleton.Build([]skeleton.MeshSkin{{
		VertexCount: 1,
		Bones:       []MeshBone{{Name: "root", OffsetMatrix: mgl32.Ident4(), Weights: []VertexWeight{{VertexID: 0, Weight: 1}}}},
	}})
	require.NoError(t, err)

	m := NewModel(
		WithRig(rig),
		WithAnimations([]*AnimationClip{{Name: "idle"}, {Name: "run"}}),
	)
	assert.True(t, m.Skinned())
	assert.Equal(t, KindSkinnedModel, m.Kind())
	assert.Equal(t, 1, m.BoneCount())
	id, ok := m.BoneIndex().Lookup("root")
	assert.True(t, ok)
	assert.Equal(t, skeleton.BoneID(0), id)
	assert.Equal(t, []string{"idle", "run"}, m.AnimationNames())
	assert.Equal(t, 1, m.GetAnimationIndex("run"))

	voxel := NewModel(WithKind(KindInstancedVoxel))
	assert.Equal(t, KindInstancedVoxel, voxel.Kind())
	assert.Equal(t, "instanced_voxel", voxel.Kind().String())
}

func TestSkinnedVertexMarshal(t *testing.T) {
	t.Parallel()
	v := SkinnedVertex{
		Vertex: Vertex{
			Position: [3]float32{1, 2, 3},
			TexCoord: [2]float32{0.5, 0.25},
			Normal:   [3]float32{0, 1, 0},
		},
		BoneIDs: [4]uint32{7, 0, 0, 0},
		Weights: [4]float32{1, 0, 0, 0},
	}
	buf := v.Marshal()
	require.Len(t, buf, v.Size())
	assert.Equal(t, 32, v.Vertex.Size())

	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[16:20])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[24:28])))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[32:36]))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[48:52])))
}

func TestComputeBoundingRadius(t *testing.T) {
	t.Parallel()
	r := ComputeBoundingRadius([]Vertex{
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 3, 4}},
	})
	assert.InDelta(t, 5, r, 1e-6)
	assert.Zero(t, ComputeBoundingRadius(nil))
}
