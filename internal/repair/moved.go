package repair

import (
	"log/slog"

	"github.com/roach88/boardsync/internal/ir"
)

// SyncMoved repairs recs in place with the Base62 alphabet after an
// explicit reorder.
func SyncMoved(recs []ir.Record, moved map[string]struct{}) ([]int, error) {
	return defaultRepairer.SyncMoved(recs, moved)
}

// SyncMoved rewrites the keys of the records named in moved so they match
// their new array positions. recs must already be in the desired order.
//
// Each contiguous group of moved records is keyed between its unmoved
// neighbours. The result is validated before anything is written; if a
// group cannot be keyed (a neighbour is itself out of order) or the result
// would still be invalid, SyncMoved falls back to FixInvalidIndices, which
// may also rewrite records that were not moved.
func (r *Repairer) SyncMoved(recs []ir.Record, moved map[string]struct{}) ([]int, error) {
	candidate, ok := r.movedKeys(recs, moved)
	if ok && r.validKeys(candidate) {
		var changed []int
		for i, k := range candidate {
			if recs[i].OrderKey != k {
				recs[i].OrderKey = k
				changed = append(changed, i)
			}
		}
		return changed, nil
	}

	slog.Debug("moved records could not be keyed in place, repairing sequence",
		"records", len(recs),
		"moved", len(moved),
	)
	return r.FixInvalidIndices(recs)
}

// movedKeys returns the full key list with every moved group regenerated.
func (r *Repairer) movedKeys(recs []ir.Record, moved map[string]struct{}) ([]string, bool) {
	keys := make([]string, len(recs))
	for i := range recs {
		keys[i] = recs[i].OrderKey
	}

	i := 0
	for i < len(recs) {
		if _, ok := moved[recs[i].ID]; !ok {
			i++
			continue
		}
		start := i
		for i < len(recs) {
			if _, ok := moved[recs[i].ID]; !ok {
				break
			}
			i++
		}

		lower, upper := "", ""
		if start > 0 {
			lower = keys[start-1]
		}
		if i < len(recs) {
			upper = keys[i]
		}
		group, err := r.gen.KeysBetween(lower, upper, i-start)
		if err != nil {
			return nil, false
		}
		copy(keys[start:i], group)
	}
	return keys, true
}

func (r *Repairer) validKeys(keys []string) bool {
	for i, k := range keys {
		if !r.valid(k) {
			return false
		}
		if i > 0 && keys[i-1] >= k {
			return false
		}
	}
	return true
}
