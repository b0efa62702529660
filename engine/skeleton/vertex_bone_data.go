package skeleton

// MaxBonesPerVertex is the number of bone influences a single vertex can carry.
const MaxBonesPerVertex = 4

// VertexBoneData holds up to MaxBonesPerVertex (bone, weight) influences for one vertex.
// Weights are stored as given and are not renormalized.
type VertexBoneData struct {
	IDs     [MaxBonesPerVertex]BoneID
	Weights [MaxBonesPerVertex]float32
	count   uint8
}

// Add records an influence. Once the vertex holds MaxBonesPerVertex influences, further ones are ignored.
//
// Parameters:
//   - id: the influencing bone
//   - weight: the bone's weight on this vertex
//
// Returns:
//   - bool: false if the influence was dropped
func (v *VertexBoneData) Add(id BoneID, weight float32) bool {
	if v.count >= MaxBonesPerVertex {
		return false
	}
	v.IDs[v.count] = id
	v.Weights[v.count] = weight
	v.count++
	return true
}

// Count returns the number of stored influences.
func (v *VertexBoneData) Count() int {
	return int(v.count)
}

// IDsUint32 returns the bone ids widened for a vertex stream.
func (v *VertexBoneData) IDsUint32() [MaxBonesPerVertex]uint32 {
	var out [MaxBonesPerVertex]uint32
	for i, id := range v.IDs {
		out[i] = uint32(id)
	}
	return out
}
