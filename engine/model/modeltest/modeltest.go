// Package modeltest builds small in-memory models for tests of packages that consume model.Model.
package modeltest

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// RootBind and ChildBind are the bind transforms of the Chain model's two bones.
var (
	RootBind  = mgl32.Translate3D(0, 0, 2)
	ChildBind = mgl32.Translate3D(0, 1, 0)
)

// Chain returns a two-bone skinned model named "chain": a root bone at (0,0,2) with a child
// one unit above it, each weighting one vertex of a single triangle. Its only clip, "bend",
// lasts 20 ticks at one tick per second and turns the child 90 degrees about Y between ticks 0 and 10.
func Chain() model.Model {
	rootOffset, _ := common.Invert4(RootBind)
	childOffset, _ := common.Invert4(RootBind.Mul4(ChildBind))

	rig, err := skeleton.Build([]skeleton.MeshSkin{{
		VertexCount: 3,
		Bones: []skeleton.MeshBone{
			{Name: "root", OffsetMatrix: rootOffset, Weights: []skeleton.VertexWeight{{VertexID: 0, Weight: 1}, {VertexID: 2, Weight: 0.5}}},
			{Name: "child", OffsetMatrix: childOffset, Weights: []skeleton.VertexWeight{{VertexID: 1, Weight: 1}, {VertexID: 2, Weight: 0.5}}},
		},
	}})
	if err != nil {
		panic(err)
	}

	clip := &model.AnimationClip{
		Name:           "bend",
		Duration:       20,
		TicksPerSecond: 1,
		Channels: []model.AnimationChannel{{
			NodeName:     "child",
			PositionKeys: []model.VectorKeyframe{{Value: [3]float32{0, 1, 0}}},
			RotationKeys: []model.QuaternionKeyframe{
				{Time: 0, Value: [4]float32{0, 0, 0, 1}},
				{Time: 10, Value: common.QuatToXYZW(mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0}))},
			},
			ScaleKeys: []model.VectorKeyframe{{Value: [3]float32{1, 1, 1}}},
		}},
	}

	vertices := []model.Vertex{
		{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}},
	}
	var vertexData []byte
	for i, v := range vertices {
		vb := rig.VertexBones[i]
		sv := model.SkinnedVertex{Vertex: v, BoneIDs: vb.IDsUint32(), Weights: vb.Weights}
		vertexData = append(vertexData, sv.Marshal()...)
	}
	indices := []uint32{0, 1, 2}

	return model.NewModel(
		model.WithName("chain"),
		model.WithNodes([]model.Node{
			{Name: "root", Transform: RootBind, Children: []int{1}},
			{Name: "child", Transform: ChildBind},
		}),
		model.WithRig(rig),
		model.WithGlobalInverse(rootOffset),
		model.WithAnimations([]*model.AnimationClip{clip}),
		model.WithMeshes([]model.MeshEntry{{Name: "tri", IndexCount: 3, MaterialIndex: -1}}),
		model.WithVertexData(vertexData),
		model.WithIndexData(common.MarshalIndices(nil, indices)),
		model.WithIndexCount(len(indices)),
		model.WithBoundingRadius(model.ComputeBoundingRadius(vertices)),
	)
}

// Static returns an unskinned single-triangle model named "tri".
func Static() model.Model {
	vertices := []model.Vertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 1, 0}},
	}
	var vertexData []byte
	for i := range vertices {
		vertexData = append(vertexData, vertices[i].Marshal()...)
	}
	indices := []uint32{0, 1, 2}

	return model.NewModel(
		model.WithName("tri"),
		model.WithMeshes([]model.MeshEntry{{Name: "tri", IndexCount: 3, MaterialIndex: -1}}),
		model.WithVertexData(vertexData),
		model.WithIndexData(common.MarshalIndices(nil, indices)),
		model.WithIndexCount(len(indices)),
		model.WithBoundingRadius(model.ComputeBoundingRadius(vertices)),
	)
}
