package ir

import (
	"encoding/json"
	"fmt"
)

// Record is a single drawable element of a scene.
//
// Records are immutable by convention: mutation means producing a new value
// with a higher Version and a fresh VersionNonce. The merge treats a record
// as one opaque unit once a winner is chosen; it never merges field by field.
type Record struct {
	// ID is globally unique and never reassigned.
	ID string

	// Version increases on every local mutation by the owning client.
	Version int64

	// VersionNonce is re-rolled on every local mutation. It is only a
	// deterministic tie-breaker for equal versions, never a clock.
	VersionNonce int64

	// OrderKey places the record in the scene. Empty means unassigned,
	// a transient state that index repair resolves.
	OrderKey string

	// Deleted marks a tombstone. Tombstones stay in the set so deletion
	// propagates and merges like any other edit.
	Deleted bool

	// Payload carries geometry, style and other fields the merge ignores.
	Payload Object
}

// HasOrderKey reports whether an order key has been assigned.
func (r Record) HasOrderKey() bool {
	return r.OrderKey != ""
}

// Clone returns a copy whose payload shares no memory with r.
func (r Record) Clone() Record {
	r.Payload = r.Payload.Clone()
	return r
}

// Bump returns a copy of r with the version incremented and the nonce
// replaced. Every local content edit goes through Bump.
func (r Record) Bump(nonce int64) Record {
	out := r.Clone()
	out.Version++
	out.VersionNonce = nonce
	return out
}

// String renders the merge-relevant fields for logs and error messages.
func (r Record) String() string {
	return fmt.Sprintf("%s:%s:%t:%d:%d", r.OrderKey, r.ID, r.Deleted, r.Version, r.VersionNonce)
}

// CloneAll deep-copies a slice of records.
func CloneAll(recs []Record) []Record {
	if recs == nil {
		return nil
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

// IDs returns the record ids in slice order.
func IDs(recs []Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

// recordJSON is the wire form. A missing key is encoded as null.
type recordJSON struct {
	ID           string  `json:"id"`
	Version      int64   `json:"version"`
	VersionNonce int64   `json:"version_nonce"`
	OrderKey     *string `json:"order_key"`
	Deleted      bool    `json:"deleted,omitempty"`
	Payload      Object  `json:"payload,omitempty"`
}

// MarshalJSON implements json.Marshaler for Record.
func (r Record) MarshalJSON() ([]byte, error) {
	w := recordJSON{
		ID:           r.ID,
		Version:      r.Version,
		VersionNonce: r.VersionNonce,
		Deleted:      r.Deleted,
		Payload:      r.Payload,
	}
	if r.OrderKey != "" {
		key := r.OrderKey
		w.OrderKey = &key
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler for Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("record: id is required")
	}
	*r = Record{
		ID:           w.ID,
		Version:      w.Version,
		VersionNonce: w.VersionNonce,
		Deleted:      w.Deleted,
		Payload:      w.Payload,
	}
	if w.OrderKey != nil {
		r.OrderKey = *w.OrderKey
	}
	return nil
}

// DecodeRecords parses a JSON array of records.
func DecodeRecords(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return recs, nil
}
