package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/reconcile"
	"github.com/roach88/boardsync/internal/repair"
)

// Runner executes scenarios over one key alphabet.
type Runner struct {
	repairer   *repair.Repairer
	reconciler *reconcile.Reconciler
}

// NewRunner creates a Runner keying and merging with r (Base62 when nil).
func NewRunner(r *repair.Repairer) *Runner {
	if r == nil {
		r = repair.New(nil)
	}
	return &Runner{repairer: r, reconciler: reconcile.New(r)}
}

var defaultRunner = NewRunner(nil)

// Run executes a scenario with the Base62 alphabet.
func Run(scenario *Scenario) (*Result, error) {
	return defaultRunner.Run(scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build both sides, assigning missing keys
//  2. Merge with the scenario's edit context
//  3. Evaluate expect assertions
//  4. Run the automatic checks that are not skipped
//
// A returned error means the scenario could not be executed at all;
// assertion failures are reported in Result.Errors.
func (rn *Runner) Run(scenario *Scenario) (*Result, error) {
	cache := map[string]ir.Record{}
	local, err := rn.buildSide(scenario.Local, cache)
	if err != nil {
		return nil, fmt.Errorf("build local: %w", err)
	}
	remote, err := rn.buildSide(scenario.Remote, cache)
	if err != nil {
		return nil, fmt.Errorf("build remote: %w", err)
	}

	edit := scenario.editContext()
	rep, err := rn.reconciler.ReconcileWithReport(local, remote, edit)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	result := NewResult()
	result.Records = rep.Records
	if rep.Repaired != nil {
		result.Repaired = rep.Repaired
	}
	for i, r := range rep.Records {
		o := rep.Outcomes[i]
		result.Trace = append(result.Trace, TraceEvent{
			Position:  i,
			ID:        r.ID,
			Decision:  o.Decision.String(),
			Protected: o.Protected,
			Key:       r.OrderKey,
			Version:   r.Version,
			Deleted:   r.Deleted,
		})
	}

	if scenario.Expect != nil {
		for _, msg := range EvaluateExpect(result, rep, scenario.Expect) {
			result.AddError(msg)
		}
	}

	checks := []struct {
		name      string
		symmetric bool
		run       func() error
	}{
		{CheckValidOrder, false, func() error { return checkValidOrder(rn.repairer, rep.Records) }},
		{CheckUnion, false, func() error { return checkUnion(rep.Records, local, remote) }},
		{CheckConverge, true, func() error { return checkConverge(rn.reconciler, rep.Records, local, remote) }},
		{CheckRereconcile, true, func() error { return checkRereconcile(rn.reconciler, rep.Records, local, remote) }},
	}
	for _, c := range checks {
		if scenario.skips(c.name) || (c.symmetric && len(edit) > 0) {
			continue
		}
		if err := c.run(); err != nil {
			result.AddError(err.Error())
		}
	}

	slog.Debug("scenario executed",
		"scenario", scenario.Name,
		"records", len(rep.Records),
		"repaired", len(rep.Repaired),
		"pass", result.Pass,
	)
	return result, nil
}

// buildSide converts specs into a keyed record sequence. A shorthand uid
// seen earlier reuses that record, key included, so both sides can hold
// identical copies.
func (rn *Runner) buildSide(specs []RecordSpec, cache map[string]ir.Record) ([]ir.Record, error) {
	recs := make([]ir.Record, len(specs))
	for i, spec := range specs {
		if spec.Shorthand {
			if cached, ok := cache[spec.uid()]; ok {
				recs[i] = cached.Clone()
				continue
			}
		}
		rec := ir.Record{
			ID:           spec.ID,
			Version:      spec.Version,
			VersionNonce: spec.Nonce,
			OrderKey:     spec.Key,
			Deleted:      spec.Deleted,
		}
		if spec.Payload != nil {
			v, err := ir.FromGo(spec.Payload)
			if err != nil {
				return nil, fmt.Errorf("record %s payload: %w", spec.ID, err)
			}
			rec.Payload = v.(ir.Object)
		}
		recs[i] = rec
	}

	if _, err := rn.repairer.FixInvalidIndices(recs); err != nil {
		return nil, err
	}

	for i, spec := range specs {
		if spec.Shorthand {
			cache[spec.uid()] = recs[i]
		}
	}
	return recs, nil
}
