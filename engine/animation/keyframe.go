package animation

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// keyIndex returns the index i of the interval [key[i], key[i+1]) containing t using a forward scan.
// A query past every interval falls back to index 0.
func keyIndex[K any](keys []K, t float32, timeOf func(K) float32) int {
	for i := 0; i < len(keys)-1; i++ {
		if t < timeOf(keys[i+1]) {
			return i
		}
	}
	return 0
}

// factor returns the unclamped position of t within [t0, t1]. A zero-length interval yields 0.
func factor(t, t0, t1 float32) float32 {
	dt := t1 - t0
	if dt == 0 {
		return 0
	}
	return (t - t0) / dt
}

func vectorTime(k model.VectorKeyframe) float32         { return k.Time }
func quaternionTime(k model.QuaternionKeyframe) float32 { return k.Time }

func interpolateVector(keys []model.VectorKeyframe, t float32, empty mgl32.Vec3) mgl32.Vec3 {
	switch len(keys) {
	case 0:
		return empty
	case 1:
		return mgl32.Vec3(keys[0].Value)
	}
	i := keyIndex(keys, t, vectorTime)
	a, b := mgl32.Vec3(keys[i].Value), mgl32.Vec3(keys[i+1].Value)
	f := factor(t, keys[i].Time, keys[i+1].Time)
	return a.Add(b.Sub(a).Mul(f))
}

// InterpolatePosition samples a translation track at t ticks.
// A single key is returned as is. An empty track yields the zero vector.
//
// Parameters:
//   - keys: translation keys ordered by time
//   - t: query time in ticks
//
// Returns:
//   - mgl32.Vec3: the interpolated translation
func InterpolatePosition(keys []model.VectorKeyframe, t float32) mgl32.Vec3 {
	return interpolateVector(keys, t, mgl32.Vec3{})
}

// InterpolateScale samples a scale track at t ticks.
// A single key is returned as is. An empty track yields unit scale.
//
// Parameters:
//   - keys: scale keys ordered by time
//   - t: query time in ticks
//
// Returns:
//   - mgl32.Vec3: the interpolated scale
func InterpolateScale(keys []model.VectorKeyframe, t float32) mgl32.Vec3 {
	return interpolateVector(keys, t, mgl32.Vec3{1, 1, 1})
}

// InterpolateRotation samples a rotation track at t ticks using spherical linear interpolation
// and renormalizes the result.
// A single key is returned as is. An empty track yields the identity rotation.
//
// Parameters:
//   - keys: rotation keys ordered by time, values in (x, y, z, w) order
//   - t: query time in ticks
//
// Returns:
//   - mgl32.Quat: the interpolated rotation
func InterpolateRotation(keys []model.QuaternionKeyframe, t float32) mgl32.Quat {
	switch len(keys) {
	case 0:
		return mgl32.QuatIdent()
	case 1:
		return common.QuatFromXYZW(keys[0].Value)
	}
	i := keyIndex(keys, t, quaternionTime)
	a, b := common.QuatFromXYZW(keys[i].Value), common.QuatFromXYZW(keys[i+1].Value)
	f := factor(t, keys[i].Time, keys[i+1].Time)
	return mgl32.QuatSlerp(a, b, f).Normalize()
}

// ChannelTransform composes a channel's sampled translation, rotation and scale at t ticks.
//
// Parameters:
//   - ch: the node's animation channel
//   - t: query time in ticks
//
// Returns:
//   - mgl32.Mat4: the node's local transform, T * R * S
func ChannelTransform(ch *model.AnimationChannel, t float32) mgl32.Mat4 {
	return common.ComposeTRS(
		InterpolatePosition(ch.PositionKeys, t),
		InterpolateRotation(ch.RotationKeys, t),
		InterpolateScale(ch.ScaleKeys, t),
	)
}
