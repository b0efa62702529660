package common

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// singularEpsilon is the determinant magnitude below which a matrix is treated as non-invertible.
const singularEpsilon = 1e-12

// MarshalIndices appends triangle indices to dst as little-endian uint32 values,
// the index stream layout handed to the uploader.
//
// Parameters:
//   - dst: the buffer to append to, may be nil
//   - indices: the indices to encode
//
// Returns:
//   - []byte: dst with 4 bytes appended per index
func MarshalIndices(dst []byte, indices []uint32) []byte {
	dst = slices.Grow(dst, 4*len(indices))
	for _, idx := range indices {
		dst = binary.LittleEndian.AppendUint32(dst, idx)
	}
	return dst
}

// QuatFromXYZW builds a quaternion from an (x, y, z, w) array, the layout used by glTF and keyframes.
//
// Parameters:
//   - v: the quaternion components in x, y, z, w order
//
// Returns:
//   - mgl32.Quat: the quaternion
func QuatFromXYZW(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// QuatToXYZW flattens a quaternion into an (x, y, z, w) array.
//
// Parameters:
//   - q: the quaternion
//
// Returns:
//   - [4]float32: the components in x, y, z, w order
func QuatToXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// ComposeTRS builds a local transform from translation, rotation and scale.
// Scale and rotation act about the local origin and translation is applied last,
// which with column vectors is T * R * S.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion
//   - s: scale factors
//
// Returns:
//   - mgl32.Mat4: the composed column-major matrix
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// Invert4 computes the inverse of a 4x4 column-major matrix.
// If the matrix is singular (determinant ≈ 0) the identity is returned alongside false.
//
// Parameters:
//   - m: source matrix
//
// Returns:
//   - mgl32.Mat4: the inverse, or identity when m is singular
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(m mgl32.Mat4) (mgl32.Mat4, bool) {
	if math32.Abs(m.Det()) < singularEpsilon {
		return mgl32.Ident4(), false
	}
	return m.Inv(), true
}

// Length3 returns the Euclidean length of a 3-component vector.
func Length3(v [3]float32) float32 {
	return math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// MarshalMatrices appends the little-endian bytes of every matrix to dst in column-major order.
// This is the byte layout of bone palettes and instance transforms handed to a BufferUploader.
//
// Parameters:
//   - dst: the buffer to append to, may be nil
//   - ms: the matrices to encode
//
// Returns:
//   - []byte: dst extended by 64 bytes per matrix
func MarshalMatrices(dst []byte, ms []mgl32.Mat4) []byte {
	for _, m := range ms {
		for _, f := range m {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
		}
	}
	return dst
}
