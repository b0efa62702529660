package skeleton

// BoneID is a dense, zero-based bone identifier.
// IDs are assigned in first-sighting order and are stable for the lifetime of a loaded model.
type BoneID uint32

// BoneIndex maps bone names to dense BoneIDs.
// It is populated once at load time and read-only afterwards, so concurrent readers need no locking.
type BoneIndex struct {
	ids   map[string]BoneID
	names []string
}

// NewBoneIndex creates an empty BoneIndex.
//
// Returns:
//   - *BoneIndex: the new index
func NewBoneIndex() *BoneIndex {
	return &BoneIndex{ids: make(map[string]BoneID)}
}

// GetOrAssignID returns the id mapped to name, assigning the next sequential id on first sighting.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - BoneID: the existing or newly assigned id
func (b *BoneIndex) GetOrAssignID(name string) BoneID {
	if id, ok := b.ids[name]; ok {
		return id
	}
	id := BoneID(len(b.names))
	b.ids[name] = id
	b.names = append(b.names, name)
	return id
}

// Lookup resolves a bone name without assigning.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - BoneID: the id, or 0 when not found
//   - bool: false when the name is unknown
func (b *BoneIndex) Lookup(name string) (BoneID, bool) {
	if b == nil {
		return 0, false
	}
	id, ok := b.ids[name]
	return id, ok
}

// Len returns the number of distinct bones.
func (b *BoneIndex) Len() int {
	if b == nil {
		return 0
	}
	return len(b.names)
}

// Name returns the bone name for id, or "" when id is out of range.
func (b *BoneIndex) Name(id BoneID) string {
	if b == nil || int(id) >= len(b.names) {
		return ""
	}
	return b.names[id]
}

// Names returns a copy of all bone names in BoneID order.
func (b *BoneIndex) Names() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}
