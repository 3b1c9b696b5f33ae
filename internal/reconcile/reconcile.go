package reconcile

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/repair"
)

// Decision records where the surviving copy of an id came from.
type Decision int

const (
	// LocalOnly: the remote batch did not mention the id.
	LocalOnly Decision = iota
	// RemoteOnly: the id was unknown locally.
	RemoteOnly
	// LocalKept: both sides had the id and the local copy won.
	LocalKept
	// RemoteTaken: both sides had the id and the remote copy won.
	RemoteTaken
)

func (d Decision) String() string {
	switch d {
	case LocalOnly:
		return "local_only"
	case RemoteOnly:
		return "remote_only"
	case LocalKept:
		return "local_kept"
	case RemoteTaken:
		return "remote_taken"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Outcome is the decision for one id.
type Outcome struct {
	ID       string
	Decision Decision
	// Protected is set when the local copy won only because it was
	// named in the edit context.
	Protected bool
}

// Report is a merge result with the reasoning behind it.
type Report struct {
	// Records is the merged, validly ordered scene.
	Records []ir.Record
	// Outcomes holds one entry per id in output order.
	Outcomes []Outcome
	// Repaired lists output positions whose order key was rewritten.
	Repaired []int
	// Protected counts ids kept local by the edit context alone.
	Protected int
}

// Reconciler merges scenes. The zero value is not usable; call New.
type Reconciler struct {
	repairer *repair.Repairer
}

// New creates a Reconciler repairing keys with r (Base62 when nil).
func New(r *repair.Repairer) *Reconciler {
	if r == nil {
		r = repair.New(nil)
	}
	return &Reconciler{repairer: r}
}

var defaultReconciler = New(nil)

// Reconcile merges local and remote with the Base62 alphabet.
func Reconcile(local, remote []ir.Record, edit EditContext) ([]ir.Record, error) {
	return defaultReconciler.Reconcile(local, remote, edit)
}

// Reconcile merges local and remote. See ReconcileWithReport.
func (rc *Reconciler) Reconcile(local, remote []ir.Record, edit EditContext) ([]ir.Record, error) {
	rep, err := rc.ReconcileWithReport(local, remote, edit)
	if err != nil {
		return nil, err
	}
	return rep.Records, nil
}

// ReconcileWithReport merges local and remote and explains every decision.
//
// The output contains every id of either input exactly once, ordered by
// (order key, id) with keys repaired to strictly increase. Duplicate ids
// inside one input collapse to their newest copy. Errors come only from a
// broken alphabet and are not recoverable by retrying.
func (rc *Reconciler) ReconcileWithReport(local, remote []ir.Record, edit EditContext) (*Report, error) {
	localByID := collapse(local)
	remoteByID := collapse(remote)

	merged := make([]ir.Record, 0, len(localByID)+len(remoteByID))
	decisions := make(map[string]Outcome, cap(merged))

	for _, r := range remote {
		if _, placed := decisions[r.ID]; placed {
			continue
		}
		rem := remoteByID[r.ID]

		l, ok := localByID[r.ID]
		if !ok {
			merged = append(merged, rem.Clone())
			decisions[r.ID] = Outcome{ID: r.ID, Decision: RemoteOnly}
			continue
		}

		if DiscardRemote(l, rem, edit) {
			protected := edit.Protects(l.ID) && !Newer(l, rem)
			merged = append(merged, l.Clone())
			decisions[r.ID] = Outcome{ID: r.ID, Decision: LocalKept, Protected: protected}
			continue
		}
		merged = append(merged, rem.Clone())
		decisions[r.ID] = Outcome{ID: r.ID, Decision: RemoteTaken}
	}

	for _, l := range local {
		if _, placed := decisions[l.ID]; placed {
			continue
		}
		merged = append(merged, localByID[l.ID].Clone())
		decisions[l.ID] = Outcome{ID: l.ID, Decision: LocalOnly}
	}

	sortByOrderKey(merged)

	repaired, err := rc.repairer.FixInvalidIndices(merged)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	rep := &Report{
		Records:  merged,
		Outcomes: make([]Outcome, len(merged)),
		Repaired: repaired,
	}
	for i, r := range merged {
		o := decisions[r.ID]
		rep.Outcomes[i] = o
		if o.Protected {
			rep.Protected++
		}
		slog.Debug("reconcile decision", "id", r.ID, "decision", o.Decision, "protected", o.Protected)
	}

	slog.Debug("reconciled",
		"local", len(local),
		"remote", len(remote),
		"merged", len(merged),
		"repaired", len(repaired),
		"protected", rep.Protected,
	)
	return rep, nil
}

// collapse indexes recs by id, keeping the newest copy of duplicated ids.
func collapse(recs []ir.Record) map[string]ir.Record {
	byID := make(map[string]ir.Record, len(recs))
	for _, r := range recs {
		if prev, ok := byID[r.ID]; ok && !Newer(r, prev) {
			continue
		}
		byID[r.ID] = r
	}
	return byID
}

// sortByOrderKey sorts by (order key, id). Records without a key go last,
// ordered by id, so the result does not depend on input order.
func sortByOrderKey(recs []ir.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.HasOrderKey() != b.HasOrderKey() {
			return a.HasOrderKey()
		}
		if a.OrderKey != b.OrderKey {
			return a.OrderKey < b.OrderKey
		}
		return a.ID < b.ID
	})
}
