package repair

import (
	"fmt"
	"log/slog"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/orderkey"
)

// Repairer rewrites order keys with a fixed alphabet.
// It holds no mutable state and is safe for concurrent use on distinct
// slices.
type Repairer struct {
	gen *orderkey.Generator
}

// New creates a Repairer. A nil generator selects Base62. Jitter configured
// on gen is ignored; repaired keys are always deterministic.
func New(gen *orderkey.Generator) *Repairer {
	if gen == nil {
		gen = orderkey.Default()
	}
	return &Repairer{gen: gen.Deterministic()}
}

var defaultRepairer = New(nil)

// FixInvalidIndices repairs recs in place with the Base62 alphabet.
func FixInvalidIndices(recs []ir.Record) ([]int, error) {
	return defaultRepairer.FixInvalidIndices(recs)
}

// RepairFromScratch repairs recs in place with the Base62 alphabet.
func RepairFromScratch(recs []ir.Record) ([]int, error) {
	return defaultRepairer.RepairFromScratch(recs)
}

// Generator returns the deterministic generator used for repaired keys.
func (r *Repairer) Generator() *orderkey.Generator {
	return r.gen
}

func (r *Repairer) valid(key string) bool {
	return key != "" && r.gen.Alphabet().Valid(key)
}

// FixInvalidIndices rewrites the order keys of every maximal run of records
// whose key is not strictly between the nearest valid key to its left and
// the nearest greater key to its right. Records that already fit keep their
// keys. It returns the positions whose key changed, ascending.
//
// Errors indicate a broken alphabet, never bad record data.
func (r *Repairer) FixInvalidIndices(recs []ir.Record) ([]int, error) {
	var changed []int
	s := boundScanner{r: r, recs: recs}

	lower := ""
	i := 0
	for i < len(recs) {
		if s.fits(i, lower) {
			lower = recs[i].OrderKey
			i++
			continue
		}

		start := i
		for i < len(recs) && !s.fits(i, lower) {
			i++
		}
		upper := ""
		if i < len(recs) {
			upper = recs[i].OrderKey
		}

		positions, err := r.regenerate(recs, start, i, lower, upper)
		if err != nil {
			return changed, err
		}
		changed = append(changed, positions...)
	}
	return changed, nil
}

// RepairFromScratch walks recs once keeping a running last good key. Any
// record whose key is missing, malformed or not greater than the last good
// key is rewritten. Each such run is keyed between the last good key and
// the next original key that is still greater, if any.
//
// Unlike FixInvalidIndices it trusts the leftmost keys: a single oversized
// key early in the sequence causes every smaller key after it to move.
func (r *Repairer) RepairFromScratch(recs []ir.Record) ([]int, error) {
	var changed []int

	last := ""
	i := 0
	for i < len(recs) {
		if r.greater(recs[i].OrderKey, last) {
			last = recs[i].OrderKey
			i++
			continue
		}

		start := i
		for i < len(recs) && !r.greater(recs[i].OrderKey, last) {
			i++
		}
		hint := ""
		if i < len(recs) {
			hint = recs[i].OrderKey
		}

		positions, err := r.regenerate(recs, start, i, last, hint)
		if err != nil {
			return changed, err
		}
		changed = append(changed, positions...)
	}
	return changed, nil
}

func (r *Repairer) greater(key, last string) bool {
	return r.valid(key) && (last == "" || key > last)
}

// regenerate assigns fresh keys to recs[start:end] between lower and upper
// and returns the positions whose key changed.
func (r *Repairer) regenerate(recs []ir.Record, start, end int, lower, upper string) ([]int, error) {
	keys, err := r.gen.KeysBetween(lower, upper, end-start)
	if err != nil {
		return nil, fmt.Errorf("regenerate order keys [%d,%d) between %q and %q: %w", start, end, lower, upper, err)
	}

	var changed []int
	for j, k := range keys {
		pos := start + j
		if recs[pos].OrderKey == k {
			continue
		}
		slog.Debug("order key rewritten",
			"id", recs[pos].ID,
			"position", pos,
			"old", recs[pos].OrderKey,
			"new", k,
		)
		recs[pos].OrderKey = k
		changed = append(changed, pos)
	}
	return changed, nil
}

// boundScanner finds upper bounds for FixInvalidIndices.
//
// The upper bound of position i under lower is the key of the first later
// record whose key is valid, greater than lower and different from the key
// at i. Equal keys are duplicates, not bounds: the leftmost copy keeps its
// key and the others are rewritten.
//
// lower only grows as the scan advances, so a record once skipped for being
// too small stays skipped and the search resumes from the cached position.
type boundScanner struct {
	r    *Repairer
	recs []ir.Record
	next int
}

func (s *boundScanner) upper(i int, lower, key string) string {
	j := s.next
	if j <= i {
		j = i + 1
	}
	for ; j < len(s.recs); j++ {
		if s.above(j, lower) {
			break
		}
	}
	s.next = j

	for ; j < len(s.recs); j++ {
		if s.above(j, lower) && s.recs[j].OrderKey != key {
			return s.recs[j].OrderKey
		}
	}
	return ""
}

func (s *boundScanner) above(j int, lower string) bool {
	k := s.recs[j].OrderKey
	return s.r.valid(k) && (lower == "" || k > lower)
}

// fits reports whether the key at i is valid and strictly between lower
// and the upper bound of i.
func (s *boundScanner) fits(i int, lower string) bool {
	if !s.above(i, lower) {
		return false
	}
	k := s.recs[i].OrderKey
	up := s.upper(i, lower, k)
	return up == "" || k < up
}
