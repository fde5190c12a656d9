package conversation

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the current persisted schema version.
const SnapshotVersion = 2

// Snapshot is the durable, versioned encoding of a State. Version 1
// predates turn sequence numbers; FromSnapshot migrates it by assigning
// sequence numbers in transcript order.
type Snapshot struct {
	Version      int         `json:"version"`
	Instructions string      `json:"instructions"`
	NextSeq      int64       `json:"next_seq"`
	Turns        []Turn      `json:"turns"`
	Checkpoint   *Checkpoint `json:"checkpoint,omitempty"`
}

// ToSnapshot encodes the state for persistence. The round trip through
// FromSnapshot is lossless for all fields.
func (s State) ToSnapshot() Snapshot {
	snap := Snapshot{
		Version:      SnapshotVersion,
		Instructions: s.instructions,
		NextSeq:      s.nextSeq,
		Turns:        s.Turns(),
	}
	if s.checkpoint != nil {
		cp := *s.checkpoint
		snap.Checkpoint = &cp
	}
	return snap
}

// FromSnapshot reconstructs a State. Snapshots newer than this build are
// rejected; older versions are migrated in place.
func FromSnapshot(snap Snapshot) (State, error) {
	if snap.Version > SnapshotVersion {
		return State{}, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	if snap.Version < 1 {
		return State{}, fmt.Errorf("snapshot has invalid version %d", snap.Version)
	}

	turns := make([]Turn, len(snap.Turns))
	copy(turns, snap.Turns)
	nextSeq := snap.NextSeq

	if snap.Version == 1 {
		// v1 had no sequence numbers: assign them in transcript order.
		for i := range turns {
			turns[i].Seq = int64(i) + 1
		}
		nextSeq = int64(len(turns)) + 1
	}

	if nextSeq < 1 {
		nextSeq = 1
	}
	for _, t := range turns {
		if t.Seq >= nextSeq {
			return State{}, fmt.Errorf("snapshot turn seq %d is not below next_seq %d", t.Seq, nextSeq)
		}
	}

	st := State{
		instructions: snap.Instructions,
		turns:        turns,
		nextSeq:      nextSeq,
	}
	if snap.Checkpoint != nil {
		cp := *snap.Checkpoint
		st.checkpoint = &cp
	}
	return st, nil
}

// MarshalSnapshot serializes a snapshot to JSON bytes.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot parses snapshot JSON. Structurally invalid data is a
// fatal load error, surfaced to the caller rather than silently recovered.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
