package skeleton

import "github.com/go-gl/mathgl/mgl32"

// BoneInfo pairs a bone's load-time offset matrix with its per-frame final transform.
type BoneInfo struct {
	// Offset maps bind-pose mesh space into bone space. Set once at load.
	Offset mgl32.Mat4

	// Final is the skinning matrix for the current frame. Identity until the first evaluation.
	Final mgl32.Mat4
}

// BoneInfoTable holds one BoneInfo per BoneID.
// Each animated instance owns its own table; only the owning instance writes Final.
type BoneInfoTable struct {
	infos []BoneInfo
}

// NewBoneInfoTable builds a table from offsets in BoneID order, with identity finals.
//
// Parameters:
//   - offsets: one offset matrix per bone
//
// Returns:
//   - *BoneInfoTable: the new table
func NewBoneInfoTable(offsets []mgl32.Mat4) *BoneInfoTable {
	t := &BoneInfoTable{infos: make([]BoneInfo, 0, len(offsets))}
	for i, off := range offsets {
		t.Register(BoneID(i), off)
	}
	return t
}

// Register appends a BoneInfo for id when id is the next unseen id.
// Repeat sightings leave the stored offset untouched.
//
// Parameters:
//   - id: the bone id returned by BoneIndex.GetOrAssignID
//   - offset: the bone's offset matrix
//
// Returns:
//   - bool: true if a new entry was appended
func (t *BoneInfoTable) Register(id BoneID, offset mgl32.Mat4) bool {
	if int(id) != len(t.infos) {
		return false
	}
	t.infos = append(t.infos, BoneInfo{Offset: offset, Final: mgl32.Ident4()})
	return true
}

// Len returns the number of bones in the table.
func (t *BoneInfoTable) Len() int {
	return len(t.infos)
}

// At returns the BoneInfo for id. It panics if id is out of range.
func (t *BoneInfoTable) At(id BoneID) BoneInfo {
	return t.infos[id]
}

// Offset returns the offset matrix for id.
func (t *BoneInfoTable) Offset(id BoneID) mgl32.Mat4 {
	return t.infos[id].Offset
}

// SetFinal stores the final transform for id.
func (t *BoneInfoTable) SetFinal(id BoneID, m mgl32.Mat4) {
	t.infos[id].Final = m
}

// Offsets returns a copy of every offset matrix in BoneID order.
func (t *BoneInfoTable) Offsets() []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(t.infos))
	for i := range t.infos {
		out[i] = t.infos[i].Offset
	}
	return out
}

// Finals copies every final transform into dst in BoneID order, growing it when needed.
//
// Parameters:
//   - dst: destination slice, may be nil
//
// Returns:
//   - []mgl32.Mat4: dst resized to Len() and filled
func (t *BoneInfoTable) Finals(dst []mgl32.Mat4) []mgl32.Mat4 {
	if cap(dst) < len(t.infos) {
		dst = make([]mgl32.Mat4, len(t.infos))
	}
	dst = dst[:len(t.infos)]
	for i := range t.infos {
		dst[i] = t.infos[i].Final
	}
	return dst
}

// Clone returns an independent copy of the table.
func (t *BoneInfoTable) Clone() *BoneInfoTable {
	c := &BoneInfoTable{infos: make([]BoneInfo, len(t.infos))}
	copy(c.infos, t.infos)
	return c
}
