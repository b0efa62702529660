package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-anim/common"
)

// Vertex is a single static mesh vertex.
// Size: 32 bytes, tightly packed.
type Vertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	TexCoord [2]float32 // offset 12: UV texture coordinate (8 bytes)
	Normal   [3]float32 // offset 20: vertex normal (12 bytes)
}

// Size returns the size of the Vertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *Vertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the Vertex into a little-endian byte buffer suitable for a vertex upload.
//
// Returns:
//   - []byte: 32-byte buffer.
func (v *Vertex) Marshal() []byte {
	buf := make([]byte, 32)
	v.put(buf)
	return buf
}

func (v *Vertex) put(buf []byte) {
	putFloats(buf[0:12], v.Position[:])
	putFloats(buf[12:20], v.TexCoord[:])
	putFloats(buf[20:32], v.Normal[:])
}

// SkinnedVertex extends Vertex with up to four bone influences.
// Size: 64 bytes (32 base vertex + 32 skinning data).
type SkinnedVertex struct {
	Vertex             // offset  0: base vertex data (32 bytes)
	BoneIDs [4]uint32  // offset 32: indices of up to 4 influencing bones (16 bytes)
	Weights [4]float32 // offset 48: blend weights for each bone, as given by the asset (16 bytes)
}

// Size returns the size of the SkinnedVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *SkinnedVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the SkinnedVertex into a little-endian byte buffer suitable for a vertex upload.
//
// Returns:
//   - []byte: 64-byte buffer.
func (v *SkinnedVertex) Marshal() []byte {
	buf := make([]byte, 64)
	v.Vertex.put(buf[0:32])
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[32+i*4:36+i*4], v.BoneIDs[i])
	}
	putFloats(buf[48:64], v.Weights[:])
	return buf
}

func putFloats(dst []byte, src []float32) {
	for i, f := range src {
		binary.LittleEndian.PutUint32(dst[i*4:(i+1)*4], math.Float32bits(f))
	}
}

// ComputeBoundingRadius calculates the bounding sphere radius from a slice of vertices.
// The radius is the maximum distance from the origin across all vertices in the slice.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []Vertex) float32 {
	var maxDist float32
	for _, v := range vertices {
		if d := common.Length3(v.Position); d > maxDist {
			maxDist = d
		}
	}
	return maxDist
}
