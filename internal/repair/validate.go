package repair

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/boardsync/internal/ir"
)

// Violation describes one record whose key breaks strict ordering.
// Neighbour fields are empty at the sequence ends.
type Violation struct {
	Position int    `json:"position"`
	Prev     string `json:"prev,omitempty"`
	Current  string `json:"current"`
	Next     string `json:"next,omitempty"`
}

func (v Violation) String() string {
	return fmt.Sprintf("position %d: %q, %q, %q", v.Position, v.Prev, v.Current, v.Next)
}

// InvalidOrderError lists every record that violates strictly increasing
// order keys. Records are rendered as key:id:deleted:version:nonce.
type InvalidOrderError struct {
	Violations []Violation
}

func (e *InvalidOrderError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "order keys invariant compromised at %d position(s)", len(e.Violations))
	for _, v := range e.Violations {
		sb.WriteString("\n  ")
		sb.WriteString(v.String())
	}
	return sb.String()
}

// IsInvalidOrder reports whether err is (or wraps) an InvalidOrderError.
func IsInvalidOrder(err error) bool {
	var ioe *InvalidOrderError
	return errors.As(err, &ioe)
}

// Validate reports whether every key in recs is present, well formed and
// strictly greater than its predecessor.
func Validate(recs []ir.Record) bool {
	return defaultRepairer.Validate(recs)
}

// Check is Validate with a detailed error.
func Check(recs []ir.Record) error {
	return defaultRepairer.Check(recs)
}

// Validate reports whether recs satisfies strict key order.
func (r *Repairer) Validate(recs []ir.Record) bool {
	for i := range recs {
		if !r.validAt(recs, i) {
			return false
		}
	}
	return true
}

// Check returns nil when recs is validly ordered and an *InvalidOrderError
// naming every offending position otherwise.
func (r *Repairer) Check(recs []ir.Record) error {
	var violations []Violation
	for i := range recs {
		if r.validAt(recs, i) {
			continue
		}
		v := Violation{Position: i, Current: recs[i].String()}
		if i > 0 {
			v.Prev = recs[i-1].String()
		}
		if i+1 < len(recs) {
			v.Next = recs[i+1].String()
		}
		violations = append(violations, v)
	}
	if len(violations) == 0 {
		return nil
	}
	return &InvalidOrderError{Violations: violations}
}

// validAt checks the key at i against both immediate neighbours.
func (r *Repairer) validAt(recs []ir.Record, i int) bool {
	k := recs[i].OrderKey
	if !r.valid(k) {
		return false
	}
	if i > 0 && r.valid(recs[i-1].OrderKey) && recs[i-1].OrderKey >= k {
		return false
	}
	if i+1 < len(recs) && r.valid(recs[i+1].OrderKey) && k >= recs[i+1].OrderKey {
		return false
	}
	return true
}
