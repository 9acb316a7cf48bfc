package memory

import "encoding/json"

// Snapshot is the serialized form of an EntityMemory. Every stored reference
// round-trips, including arbitrary non-canonical types, along with the cap.
type Snapshot struct {
	Entities           map[string][]EntityReference `json:"entities"`
	MaxEntitiesPerType int                          `json:"max_entities_per_type"`
}

// Snapshot produces a deep copy suitable for serialization.
func (m *EntityMemory) Snapshot() Snapshot {
	entities := make(map[string][]EntityReference, len(m.entities))
	for entityType, refs := range m.entities {
		copied := make([]EntityReference, len(refs))
		copy(copied, refs)
		entities[entityType] = copied
	}
	return Snapshot{Entities: entities, MaxEntitiesPerType: m.maxPerType}
}

// FromSnapshot rebuilds a store from its serialized form. Lists longer than
// the restored cap are truncated to their most recent entries.
func FromSnapshot(snap Snapshot) *EntityMemory {
	m := NewEntityMemory(snap.MaxEntitiesPerType)
	for entityType, refs := range snap.Entities {
		if len(refs) > m.maxPerType {
			refs = refs[len(refs)-m.maxPerType:]
		}
		copied := make([]EntityReference, len(refs))
		copy(copied, refs)
		m.entities[entityType] = copied
	}
	return m
}

// MarshalJSON serializes the snapshot form.
func (m *EntityMemory) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// UnmarshalJSON restores from the snapshot form. Missing keys default rather
// than fail, so documents written by older builds keep loading.
func (m *EntityMemory) UnmarshalJSON(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	*m = *FromSnapshot(snap)
	return nil
}
