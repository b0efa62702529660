package skeleton

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrAssignID(t *testing.T) {
	t.Parallel()
	idx := NewBoneIndex()

	names := []string{"hips", "spine", "neck", "head"}
	for i, n := range names {
		assert.Equal(t, BoneID(i), idx.GetOrAssignID(n))
	}
	for i, n := range names {
		assert.Equal(t, BoneID(i), idx.GetOrAssignID(n), "repeat call must be idempotent")
	}
	assert.Equal(t, len(names), idx.Len())
	assert.Equal(t, names, idx.Names())
	assert.Equal(t, "neck", idx.Name(2))
	assert.Equal(t, "", idx.Name(99))
}

func TestLookup(t *testing.T) {
	t.Parallel()
	idx := NewBoneIndex()
	idx.GetOrAssignID("root")
	idx.GetOrAssignID("arm")

	id, ok := idx.Lookup("arm")
	assert.True(t, ok)
	assert.Equal(t, BoneID(1), id)

	_, ok = idx.Lookup("tail")
	assert.False(t, ok)
	assert.Equal(t, 2, idx.Len(), "lookup must not assign")

	var nilIdx *BoneIndex
	_, ok = nilIdx.Lookup("root")
	assert.False(t, ok)
	assert.Equal(t, 0, nilIdx.Len())
}

func TestRegisterAppendsOnFirstSight(t *testing.T) {
	t.Parallel()
	table := &BoneInfoTable{}
	first := mgl32.Translate3D(1, 0, 0)
	second := mgl32.Translate3D(0, 5, 0)

	assert.True(t, table.Register(0, first))
	assert.False(t, table.Register(0, second))
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, first, table.Offset(0))
	assert.Equal(t, mgl32.Ident4(), table.At(0).Final)

	assert.False(t, table.Register(3, second), "ids past the next slot are not appended")
	assert.True(t, table.Register(1, second))
	assert.Equal(t, 2, table.Len())
}

func TestBoneInfoTableCloneIsIndependent(t *testing.T) {
	t.Parallel()
	table := NewBoneInfoTable([]mgl32.Mat4{mgl32.Ident4(), mgl32.Scale3D(2, 2, 2)})
	clone := table.Clone()

	clone.SetFinal(1, mgl32.Translate3D(4, 4, 4))
	assert.Equal(t, mgl32.Ident4(), table.At(1).Final)
	assert.Equal(t, mgl32.Translate3D(4, 4, 4), clone.At(1).Final)
	assert.Equal(t, table.Offsets(), clone.Offsets())

	finals := clone.Finals(nil)
	require.Len(t, finals, 2)
	assert.Equal(t, mgl32.Translate3D(4, 4, 4), finals[1])
}

func TestVertexBoneDataCap(t *testing.T) {
	t.Parallel()
	var v VertexBoneData
	for i := 0; i < MaxBonesPerVertex; i++ {
		assert.True(t, v.Add(BoneID(i), 0.25))
	}
	before := v

	assert.False(t, v.Add(9, 0.9))
	assert.Equal(t, before, v, "a fifth influence leaves the vertex unchanged")
	assert.Equal(t, MaxBonesPerVertex, v.Count())
	assert.Equal(t, [4]uint32{0, 1, 2, 3}, v.IDsUint32())
}

func TestVertexBoneDataKeepsWeightsAsGiven(t *testing.T) {
	t.Parallel()
	var v VertexBoneData
	v.Add(0, 0.7)
	v.Add(1, 0.7)
	assert.Equal(t, [4]float32{0.7, 0.7, 0, 0}, v.Weights)
}

func TestBuildUsesBaseVertexOffsets(t *testing.T) {
	t.Parallel()
	offA := mgl32.Translate3D(0, -1, 0)
	offB := mgl32.Translate3D(0, -2, 0)

	meshes := []MeshSkin{
		{
			VertexCount: 3,
			Bones: []MeshBone{
				{Name: "a", OffsetMatrix: offA, Weights: []VertexWeight{{VertexID: 0, Weight: 1}, {VertexID: 2, Weight: 0.5}}},
			},
		},
		{
			VertexCount: 2,
			Bones: []MeshBone{
				{Name: "b", OffsetMatrix: offB, Weights: []VertexWeight{{VertexID: 1, Weight: 1}}},
				// Same bone seen again with a different offset: the first sighting wins.
				{Name: "a", OffsetMatrix: mgl32.Ident4(), Weights: []VertexWeight{{VertexID: 0, Weight: 0.3}}},
			},
		},
	}

	rig, err := Build(meshes)
	require.NoError(t, err)

	assert.Equal(t, 2, rig.Index.Len())
	assert.Equal(t, 2, rig.Bones.Len())
	assert.Equal(t, offA, rig.Bones.Offset(0))
	assert.Equal(t, offB, rig.Bones.Offset(1))
	require.Len(t, rig.VertexBones, 5)

	assert.Equal(t, 1, rig.VertexBones[0].Count())
	assert.Equal(t, BoneID(0), rig.VertexBones[0].IDs[0])
	assert.Equal(t, 0, rig.VertexBones[1].Count())
	assert.Equal(t, float32(0.5), rig.VertexBones[2].Weights[0])

	// Mesh 1 starts at global vertex 3.
	assert.Equal(t, 1, rig.VertexBones[3].Count())
	assert.Equal(t, BoneID(0), rig.VertexBones[3].IDs[0])
	assert.Equal(t, float32(0.3), rig.VertexBones[3].Weights[0])
	assert.Equal(t, BoneID(1), rig.VertexBones[4].IDs[0])
	assert.Zero(t, rig.Dropped)
}

func TestBuildCountsDroppedInfluences(t *testing.T) {
	t.Parallel()
	var bones []MeshBone
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		bones = append(bones, MeshBone{Name: n, OffsetMatrix: mgl32.Ident4(), Weights: []VertexWeight{{VertexID: 0, Weight: 0.2}}})
	}
	rig, err := Build([]MeshSkin{{VertexCount: 1, Bones: bones}})
	require.NoError(t, err)
	assert.Equal(t, 5, rig.Index.Len())
	assert.Equal(t, 1, rig.Dropped)
	assert.Equal(t, [4]BoneID{0, 1, 2, 3}, rig.VertexBones[0].IDs)
}

func TestBuildRejectsOutOfRangeVertex(t *testing.T) {
	t.Parallel()
	_, err := Build([]MeshSkin{{
		VertexCount: 2,
		Bones:       []MeshBone{{Name: "a", OffsetMatrix: mgl32.Ident4(), Weights: []VertexWeight{{VertexID: 2, Weight: 1}}}},
	}})
	assert.ErrorIs(t, err, ErrVertexOutOfRange)
}
