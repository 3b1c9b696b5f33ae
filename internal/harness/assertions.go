package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/reconcile"
	"github.com/roach88/boardsync/internal/repair"
)

// AssertionError is returned when a check fails.
// It includes the merged scene to help debug the failure.
type AssertionError struct {
	Check    string
	Expected string
	Actual   string
	Records  []ir.Record
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Records) > 0 {
		fmt.Fprintf(&buf, "\nMerged scene:\n")
		for i, r := range e.Records {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, r)
		}
	}

	return buf.String()
}

// EvaluateExpect checks the merge against the scenario's expect clause and
// returns one message per failed assertion.
func EvaluateExpect(result *Result, rep *reconcile.Report, expect *Expect) []string {
	var errs []string
	fail := func(check, expected, actual string) {
		errs = append(errs, (&AssertionError{
			Check:    check,
			Expected: expected,
			Actual:   actual,
			Records:  result.Records,
		}).Error())
	}

	if expect.Order != nil {
		got := ir.IDs(result.Records)
		if !reflect.DeepEqual(got, expect.Order) {
			fail("order", fmt.Sprint(expect.Order), fmt.Sprint(got))
		}
	}

	if expect.Keys != nil {
		got := make([]string, len(result.Records))
		for i, r := range result.Records {
			got[i] = r.OrderKey
		}
		if !reflect.DeepEqual(got, expect.Keys) {
			fail("keys", fmt.Sprint(expect.Keys), fmt.Sprint(got))
		}
	}

	byID := make(map[string]ir.Record, len(result.Records))
	for _, r := range result.Records {
		byID[r.ID] = r
	}

	ids := make([]string, 0, len(expect.Versions))
	for id := range expect.Versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		want := expect.Versions[id]
		r, ok := byID[id]
		switch {
		case !ok:
			fail("versions", fmt.Sprintf("%s at version %d", id, want), "id missing")
		case r.Version != want:
			fail("versions", fmt.Sprintf("%s at version %d", id, want), fmt.Sprintf("version %d", r.Version))
		}
	}

	if expect.Deleted != nil {
		want := append([]string(nil), expect.Deleted...)
		sort.Strings(want)
		got := []string{}
		for _, r := range result.Records {
			if r.Deleted {
				got = append(got, r.ID)
			}
		}
		sort.Strings(got)
		if !reflect.DeepEqual(got, want) {
			fail("deleted", fmt.Sprint(want), fmt.Sprint(got))
		}
	}

	if expect.Protected != nil && rep.Protected != *expect.Protected {
		fail("protected", fmt.Sprint(*expect.Protected), fmt.Sprint(rep.Protected))
	}

	return errs
}

// checkValidOrder verifies that output keys strictly increase.
func checkValidOrder(rp *repair.Repairer, recs []ir.Record) error {
	if err := rp.Check(recs); err != nil {
		return &AssertionError{
			Check:    CheckValidOrder,
			Expected: "strictly increasing order keys",
			Actual:   err.Error(),
			Records:  recs,
		}
	}
	return nil
}

// checkUnion verifies that the output holds every input id exactly once.
func checkUnion(recs, local, remote []ir.Record) error {
	want := map[string]bool{}
	for _, side := range [][]ir.Record{local, remote} {
		for _, r := range side {
			want[r.ID] = true
		}
	}

	seen := map[string]int{}
	for _, r := range recs {
		seen[r.ID]++
	}

	var problems []string
	for id := range want {
		if seen[id] != 1 {
			problems = append(problems, fmt.Sprintf("%s appears %d times", id, seen[id]))
		}
	}
	for id := range seen {
		if !want[id] {
			problems = append(problems, fmt.Sprintf("%s was never an input", id))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return &AssertionError{
		Check:    CheckUnion,
		Expected: "every input id exactly once",
		Actual:   strings.Join(problems, "; "),
		Records:  recs,
	}
}

// checkConverge verifies that the peer merging the same two views in the
// opposite roles reaches an identical scene.
func checkConverge(rc *reconcile.Reconciler, recs, local, remote []ir.Record) error {
	mirror, err := rc.Reconcile(remote, local, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", CheckConverge, err)
	}
	if reflect.DeepEqual(describe(mirror), describe(recs)) {
		return nil
	}
	return &AssertionError{
		Check:    CheckConverge,
		Expected: strings.Join(describe(recs), " "),
		Actual:   strings.Join(describe(mirror), " "),
		Records:  recs,
	}
}

// checkRereconcile verifies that either peer, receiving the merged scene
// back, ends up with exactly that scene: same ids, versions, nonces and
// keys in the same order.
func checkRereconcile(rc *reconcile.Reconciler, recs, local, remote []ir.Record) error {
	want := describe(recs)
	for _, side := range []struct {
		name string
		recs []ir.Record
	}{{"local", local}, {"remote", remote}} {
		again, err := rc.Reconcile(side.recs, recs, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", CheckRereconcile, err)
		}
		if got := describe(again); !reflect.DeepEqual(got, want) {
			return &AssertionError{
				Check:    CheckRereconcile,
				Expected: strings.Join(want, " "),
				Actual:   side.name + ": " + strings.Join(got, " "),
				Records:  recs,
			}
		}
	}
	return nil
}

// describe renders the merge-relevant fields of each record.
func describe(recs []ir.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.String()
	}
	return out
}
