package animation

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-5

func assertMat(t *testing.T, want, got mgl32.Mat4, msgAndArgs ...any) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], tol, msgAndArgs...)
}

func quatKey(time float32, q mgl32.Quat) model.QuaternionKeyframe {
	return model.QuaternionKeyframe{Time: time, Value: common.QuatToXYZW(q)}
}

func TestSingleKeyShortCircuit(t *testing.T) {
	t.Parallel()
	pos := []model.VectorKeyframe{{Time: 5, Value: [3]float32{1, 2, 3}}}
	scl := []model.VectorKeyframe{{Time: 5, Value: [3]float32{2, 2, 2}}}
	q := mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})
	rot := []model.QuaternionKeyframe{quatKey(5, q)}

	for _, at := range []float32{0, -3, 5, 1e6} {
		assert.Equal(t, mgl32.Vec3{1, 2, 3}, InterpolatePosition(pos, at))
		assert.Equal(t, mgl32.Vec3{2, 2, 2}, InterpolateScale(scl, at))
		assert.Equal(t, q, InterpolateRotation(rot, at))
	}
}

func TestEmptyTracksYieldIdentityComponents(t *testing.T) {
	t.Parallel()
	assert.Equal(t, mgl32.Vec3{}, InterpolatePosition(nil, 3))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, InterpolateScale(nil, 3))
	assert.Equal(t, mgl32.QuatIdent(), InterpolateRotation(nil, 3))
}

func TestTwoKeyBoundaries(t *testing.T) {
	t.Parallel()
	pos := []model.VectorKeyframe{
		{Time: 0, Value: [3]float32{0, 0, 0}},
		{Time: 10, Value: [3]float32{10, 20, 30}},
	}
	scl := []model.VectorKeyframe{
		{Time: 0, Value: [3]float32{1, 1, 1}},
		{Time: 10, Value: [3]float32{3, 3, 3}},
	}
	qa := mgl32.QuatIdent()
	qb := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0})
	rot := []model.QuaternionKeyframe{quatKey(0, qa), quatKey(10, qb)}

	tests := map[string]struct {
		at    float32
		pos   mgl32.Vec3
		scale mgl32.Vec3
		rot   mgl32.Quat
	}{
		"start":    {0, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}, qa},
		"midpoint": {5, mgl32.Vec3{5, 10, 15}, mgl32.Vec3{2, 2, 2}, mgl32.QuatRotate(math32.Pi/4, mgl32.Vec3{0, 1, 0})},
		"end":      {10, mgl32.Vec3{10, 20, 30}, mgl32.Vec3{3, 3, 3}, qb},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p := InterpolatePosition(pos, tt.at)
			s := InterpolateScale(scl, tt.at)
			r := InterpolateRotation(rot, tt.at)
			assert.InDeltaSlice(t, tt.pos[:], p[:], tol)
			assert.InDeltaSlice(t, tt.scale[:], s[:], tol)
			assert.InDelta(t, tt.rot.W, r.W, tol)
			assert.InDeltaSlice(t, tt.rot.V[:], r.V[:], tol)
			assert.InDelta(t, 1, r.Len(), tol)
		})
	}
}

func TestKeySearchOverrunFallsBackToFirstInterval(t *testing.T) {
	t.Parallel()
	pos := []model.VectorKeyframe{
		{Time: 0, Value: [3]float32{0, 0, 0}},
		{Time: 10, Value: [3]float32{10, 0, 0}},
		{Time: 20, Value: [3]float32{40, 0, 0}},
	}
	assert.Equal(t, 1, keyIndex(pos, 15, vectorTime))
	assert.Equal(t, 0, keyIndex(pos, 20, vectorTime))
	assert.Equal(t, 0, keyIndex(pos, 25, vectorTime))

	// Past the last key the first interval is extrapolated: f = 25 / 10.
	p := InterpolatePosition(pos, 25)
	assert.InDelta(t, 25, p[0], tol)
}

func TestDuplicateKeyTimesDoNotProduceNaN(t *testing.T) {
	t.Parallel()
	pos := []model.VectorKeyframe{
		{Time: 2, Value: [3]float32{1, 0, 0}},
		{Time: 2, Value: [3]float32{5, 0, 0}},
	}
	p := InterpolatePosition(pos, 0)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, p)
}

func TestAnimationTimeTicks(t *testing.T) {
	t.Parallel()
	ch := []model.AnimationChannel{{NodeName: "n"}}
	tests := map[string]struct {
		clip    *model.AnimationClip
		elapsed float32
		want    float32
	}{
		"nil clip":          {nil, 3, 0},
		"zero duration":     {&model.AnimationClip{TicksPerSecond: 30, Channels: ch}, 3, 0},
		"no channels":       {&model.AnimationClip{Duration: 10, TicksPerSecond: 1}, 3, 0},
		"default tps":       {&model.AnimationClip{Duration: 100, Channels: ch}, 1, 25},
		"default tps wraps": {&model.AnimationClip{Duration: 100, Channels: ch}, 5, 25},
		"declared tps":      {&model.AnimationClip{Duration: 10, TicksPerSecond: 2, Channels: ch}, 6, 2},
		"negative elapsed":  {&model.AnimationClip{Duration: 10, TicksPerSecond: 1, Channels: ch}, -1, 9},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AnimationTimeTicks(tt.clip, tt.elapsed), tol)
		})
	}
}

func TestClipSeconds(t *testing.T) {
	t.Parallel()
	ch := []model.AnimationChannel{{NodeName: "n"}}
	assert.InDelta(t, 4, ClipSeconds(&model.AnimationClip{Duration: 100, Channels: ch}), tol)
	assert.InDelta(t, 5, ClipSeconds(&model.AnimationClip{Duration: 10, TicksPerSecond: 2, Channels: ch}), tol)
	assert.Zero(t, ClipSeconds(&model.AnimationClip{Duration: 10}))
	assert.Zero(t, ClipSeconds(nil))
}

// chain builds a root bone at (0,0,2) with a child bone one unit up, offsets set to the
// inverse bind globals, and a clip rotating the child 90 degrees about Y between t=0 and t=10.
func chain(t *testing.T) (model.Model, mgl32.Mat4, mgl32.Mat4) {
	t.Helper()
	rootBind := mgl32.Translate3D(0, 0, 2)
	childBind := mgl32.Translate3D(0, 1, 0)

	rootOffset, ok := common.Invert4(rootBind)
	require.True(t, ok)
	childOffset, ok := common.Invert4(rootBind.Mul4(childBind))
	require.True(t, ok)

	rig, err := skeleton.Build([]skeleton.MeshSkin{{
		VertexCount: 2,
		Bones: []skeleton.MeshBone{
			{Name: "root", OffsetMatrix: rootOffset, Weights: []skeleton.VertexWeight{{VertexID: 0, Weight: 1}}},
			{Name: "child", OffsetMatrix: childOffset, Weights: []skeleton.VertexWeight{{VertexID: 1, Weight: 1}}},
		},
	}})
	require.NoError(t, err)

	clip := &model.AnimationClip{
		Name:           "bend",
		Duration:       20,
		TicksPerSecond: 1,
		Channels: []model.AnimationChannel{{
			NodeName:     "child",
			PositionKeys: []model.VectorKeyframe{{Time: 0, Value: [3]float32{0, 1, 0}}},
			RotationKeys: []model.QuaternionKeyframe{
				quatKey(0, mgl32.QuatIdent()),
				quatKey(10, mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0})),
			},
			ScaleKeys: []model.VectorKeyframe{{Time: 0, Value: [3]float32{1, 1, 1}}},
		}},
	}

	globalInverse, _ := common.Invert4(rootBind)
	m := model.NewModel(
		model.WithName("chain"),
		model.WithNodes([]model.Node{
			{Name: "root", Transform: rootBind, Children: []int{1}},
			{Name: "child", Transform: childBind},
		}),
		model.WithRig(rig),
		model.WithGlobalInverse(globalInverse),
		model.WithAnimations([]*model.AnimationClip{clip}),
	)
	return m, rootBind, childOffset
}

func TestTwoBoneChainEndToEnd(t *testing.T) {
	t.Parallel()
	m, rootBind, childOffset := chain(t)
	gi := m.GlobalInverse()

	inst := NewInstance(m)
	inst.Update(0)
	palette := inst.BoneTransforms()
	require.Len(t, palette, 2)

	// In bind pose every global cancels its offset, leaving the global inverse.
	assertMat(t, gi, palette[0], "root at t=0")
	assertMat(t, gi, palette[1], "child at t=0")

	inst.Update(10)
	palette = inst.BoneTransforms()
	childLocal := mgl32.Translate3D(0, 1, 0).Mul4(mgl32.HomogRotate3DY(math32.Pi / 2))
	want := gi.Mul4(rootBind).Mul4(childLocal).Mul4(childOffset)
	assertMat(t, gi, palette[0], "static root bone is unaffected")
	assertMat(t, want, palette[1], "child at t=10")

	final, ok := inst.FinalTransform("child")
	assert.True(t, ok)
	assertMat(t, want, final)
	_, ok = inst.FinalTransform("tail")
	assert.False(t, ok)
}

func TestBindPoseFallback(t *testing.T) {
	t.Parallel()
	m, rootBind, _ := chain(t)
	clip := m.Animations()[0]
	bones := skeleton.NewBoneInfoTable(m.BoneOffsets())

	var e Evaluator
	for _, at := range []float32{0, 3, 7.5, 19} {
		e.Evaluate(m.Nodes(), clip, at, m.BoneIndex(), mgl32.Ident4(), bones)
		// The root has no channel, so its global is always its bind transform.
		assertMat(t, rootBind.Mul4(bones.Offset(0)), bones.At(0).Final)
	}
}

func TestZeroDurationUsesBindPose(t *testing.T) {
	t.Parallel()
	m, _, _ := chain(t)
	clip := m.Animations()[0]
	frozen := &model.AnimationClip{Name: "frozen", Channels: clip.Channels}

	bones := skeleton.NewBoneInfoTable(m.BoneOffsets())
	var e Evaluator
	e.Evaluate(m.Nodes(), frozen, 10, m.BoneIndex(), m.GlobalInverse(), bones)
	assertMat(t, m.GlobalInverse(), bones.At(1).Final)
}

func TestInstancesAreIndependent(t *testing.T) {
	t.Parallel()
	m, _, _ := chain(t)
	a := NewInstance(m)
	b := NewInstance(m)

	a.Update(0)
	before := a.BoneTransforms()
	b.Update(5)

	assert.Equal(t, before, a.BoneTransforms(), "updating b must not touch a")
	assert.NotEqual(t, a.BoneTransforms()[1], b.BoneTransforms()[1])
}

func TestInstanceDeterminism(t *testing.T) {
	t.Parallel()
	m1, _, _ := chain(t)
	m2, _, _ := chain(t)
	a, b := NewInstance(m1), NewInstance(m2)
	a.Update(3.3)
	b.Update(3.3)
	assert.Equal(t, a.BoneTransforms(), b.BoneTransforms())
}

func TestInstancePlaybackControls(t *testing.T) {
	t.Parallel()
	m, _, _ := chain(t)
	inst := NewInstance(m)
	assert.Equal(t, 0, inst.ClipIndex())
	assert.Equal(t, mgl32.Ident4(), inst.Palette()[0], "finals are identity before the first update")

	inst.SetSpeed(2)
	inst.Update(1.5)
	assert.InDelta(t, 3, inst.Elapsed(), tol)
	assert.InDelta(t, 3, inst.TimeTicks(), tol)

	inst.SetTime(25)
	assert.InDelta(t, 5, inst.TimeTicks(), tol)

	assert.ErrorIs(t, inst.Play(4), ErrClipOutOfRange)
	require.NoError(t, inst.Play(-1))
	assert.Nil(t, inst.Clip())
	assert.Zero(t, inst.Elapsed())
	inst.Update(10)
	assertMat(t, m.GlobalInverse(), inst.Palette()[1], "no clip holds the bind pose")
}

func TestExportReusesDestination(t *testing.T) {
	t.Parallel()
	m, _, _ := chain(t)
	inst := NewInstance(m)
	inst.Update(10)

	dst := make([]mgl32.Mat4, 0, 8)
	out := inst.Export(dst)
	require.Len(t, out, 2)
	assert.Same(t, &dst[:1][0], &out[0])
	assert.Equal(t, inst.BoneTransforms(), out)

	// The exported copy is not touched by later updates.
	inst.Update(5)
	assert.NotEqual(t, inst.BoneTransforms()[1], out[1])
}
