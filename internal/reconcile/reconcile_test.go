package reconcile

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/repair"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func rec(id string, version, nonce int64, key string) ir.Record {
	return ir.Record{ID: id, Version: version, VersionNonce: nonce, OrderKey: key}
}

func withPayload(r ir.Record, fields ir.Object) ir.Record {
	r.Payload = fields
	return r
}

func keys(recs []ir.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.OrderKey
	}
	return out
}

func TestReconcile_RemoteNewerVersionWins(t *testing.T) {
	local := []ir.Record{rec("A", 1, 1, "a0"), rec("B", 1, 1, "a1"), rec("C", 1, 1, "a2")}
	remote := []ir.Record{rec("B", 2, 7, "a1")}

	out, err := Reconcile(local, remote, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, ir.IDs(out))
	assert.Equal(t, int64(2), out[1].Version)
	assert.Equal(t, int64(7), out[1].VersionNonce)
	assert.Equal(t, []string{"a0", "a1", "a2"}, keys(out))
}

func TestReconcile_CollidingKeyRepaired(t *testing.T) {
	local := []ir.Record{rec("A", 1, 1, "a0"), rec("B", 1, 1, "a1"), rec("C", 1, 1, "a2")}
	remote := []ir.Record{rec("B", 2, 7, "a0")}

	rep, err := New(nil).ReconcileWithReport(local, remote, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, ir.IDs(rep.Records))
	assert.Equal(t, []string{"a0", "a1", "a2"}, keys(rep.Records))
	assert.Equal(t, []int{1}, rep.Repaired)
	assert.Equal(t, int64(2), rep.Records[1].Version, "repair must not bump versions")
	assert.True(t, repair.Validate(rep.Records))
}

func TestReconcile_CollidingKeyRepairIsStable(t *testing.T) {
	local := []ir.Record{rec("A", 1, 1, "a0"), rec("B", 1, 1, "a1"), rec("C", 1, 1, "a2")}
	remote := []ir.Record{rec("B", 2, 7, "a0")}
	rc := New(nil)

	out, err := rc.Reconcile(local, remote, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a0", "a1", "a2"}, keys(out))

	// the repaired B shares version and nonce with the stale remote copy
	for _, side := range [][]ir.Record{local, remote} {
		again, err := rc.Reconcile(out, side, nil)
		require.NoError(t, err)
		assert.Equal(t, ir.IDs(out), ir.IDs(again))
		assert.Equal(t, keys(out), keys(again))

		again, err = rc.Reconcile(side, out, nil)
		require.NoError(t, err)
		assert.Equal(t, keys(out), keys(again))
	}
}

func TestReconcile_IdenticalRecordNotDuplicated(t *testing.T) {
	a := withPayload(rec("A", 1, 5, "a0"), ir.Object{"x": ir.Int(10)})
	local := []ir.Record{a}
	remote := []ir.Record{a.Clone(), rec("B", 1, 3, "a1")}

	out, err := Reconcile(local, remote, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ir.IDs(out))
	assert.Equal(t, []string{"a0", "a1"}, keys(out))
}

func TestReconcile_LocalNewerVersionWins(t *testing.T) {
	local := []ir.Record{rec("A", 2, 9, "a0")}
	remote := []ir.Record{rec("A", 1, 1, "a0"), rec("B", 1, 1, "a1")}

	rep, err := New(nil).ReconcileWithReport(local, remote, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"A", "B"}, ir.IDs(rep.Records))
	assert.Equal(t, int64(2), rep.Records[0].Version)
	assert.Equal(t, []Outcome{
		{ID: "A", Decision: LocalKept},
		{ID: "B", Decision: RemoteOnly},
	}, rep.Outcomes)
}

func TestReconcile_NonceTieBreakIsSymmetric(t *testing.T) {
	low := withPayload(rec("A", 5, 10, "a0"), ir.Object{"side": ir.String("low")})
	high := withPayload(rec("A", 5, 20, "a0"), ir.Object{"side": ir.String("high")})

	for _, tc := range []struct {
		name          string
		local, remote ir.Record
		decision      Decision
	}{
		{"low nonce local", low, high, LocalKept},
		{"low nonce remote", high, low, RemoteTaken},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := New(nil).ReconcileWithReport([]ir.Record{tc.local}, []ir.Record{tc.remote}, nil)
			require.NoError(t, err)
			require.Len(t, rep.Records, 1)
			assert.Equal(t, int64(10), rep.Records[0].VersionNonce)
			assert.Equal(t, ir.String("low"), rep.Records[0].Payload["side"])
			assert.Equal(t, tc.decision, rep.Outcomes[0].Decision)
		})
	}
}

func TestReconcile_EqualNonceDifferentContentConverges(t *testing.T) {
	a := withPayload(rec("A", 3, 4, "a0"), ir.Object{"w": ir.Int(1)})
	b := withPayload(rec("A", 3, 4, "a0"), ir.Object{"w": ir.Int(2)})

	ab, err := Reconcile([]ir.Record{a}, []ir.Record{b}, nil)
	require.NoError(t, err)
	ba, err := Reconcile([]ir.Record{b}, []ir.Record{a}, nil)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestReconcile_EditContextProtectsLocal(t *testing.T) {
	for _, kind := range []EditKind{Dragging, Resizing, EditingText, Creating} {
		t.Run(kind.String(), func(t *testing.T) {
			local := []ir.Record{rec("A", 1, 50, "a0"), rec("B", 1, 1, "a1")}
			remote := []ir.Record{rec("A", 9, 1, "a5"), rec("B", 2, 1, "a1")}

			rep, err := New(nil).ReconcileWithReport(local, remote, EditContext{"A": kind})
			require.NoError(t, err)

			require.Equal(t, []string{"A", "B"}, ir.IDs(rep.Records))
			assert.Equal(t, int64(1), rep.Records[0].Version)
			assert.Equal(t, int64(2), rep.Records[1].Version)
			assert.Equal(t, 1, rep.Protected)
			assert.True(t, rep.Outcomes[0].Protected)
			assert.Equal(t, LocalKept, rep.Outcomes[0].Decision)
			assert.Equal(t, RemoteTaken, rep.Outcomes[1].Decision)
		})
	}
}

func TestReconcile_EditNoneDoesNotProtect(t *testing.T) {
	out, err := Reconcile(
		[]ir.Record{rec("A", 1, 1, "a0")},
		[]ir.Record{rec("A", 2, 1, "a0")},
		EditContext{"A": EditNone},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out[0].Version)
}

func TestReconcile_ProtectedButAlreadyNewerIsNotCounted(t *testing.T) {
	rep, err := New(nil).ReconcileWithReport(
		[]ir.Record{rec("A", 3, 1, "a0")},
		[]ir.Record{rec("A", 2, 1, "a0")},
		EditContext{"A": Dragging},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Protected)
	assert.Equal(t, LocalKept, rep.Outcomes[0].Decision)
}

func TestReconcile_AbsenceIsNotDeletion(t *testing.T) {
	local := []ir.Record{rec("A", 1, 1, "a0"), rec("B", 1, 1, "a1")}
	remote := []ir.Record{rec("A", 1, 1, "a0")}

	out, err := Reconcile(local, remote, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ir.IDs(out))
	assert.False(t, out[1].Deleted)
}

func TestReconcile_TombstonePropagates(t *testing.T) {
	local := []ir.Record{rec("A", 1, 1, "a0"), rec("B", 1, 1, "a1")}
	tomb := rec("B", 2, 8, "a1")
	tomb.Deleted = true

	out, err := Reconcile(local, []ir.Record{tomb}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, ir.IDs(out))
	assert.True(t, out[1].Deleted)
}

func TestReconcile_DuplicateIDsCollapse(t *testing.T) {
	local := []ir.Record{rec("A", 2, 1, "a0")}
	remote := []ir.Record{rec("A", 1, 1, "a0"), rec("A", 3, 1, "a1"), rec("B", 1, 1, "a2"), rec("B", 1, 1, "a2")}

	out, err := Reconcile(local, remote, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ir.IDs(out))
	assert.Equal(t, int64(3), out[0].Version)
}

func TestReconcile_MissingKeysSortLastByID(t *testing.T) {
	local := []ir.Record{rec("C", 1, 1, ""), rec("A", 1, 1, "a0")}
	remote := []ir.Record{rec("B", 1, 1, "")}

	out, err := Reconcile(local, remote, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ir.IDs(out))
	assert.Equal(t, []string{"a0", "a1", "a2"}, keys(out))
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	local := []ir.Record{
		withPayload(rec("A", 1, 1, "a0"), ir.Object{"tags": ir.Array{ir.String("x")}}),
		rec("B", 1, 1, "a0"),
		rec("C", 1, 1, ""),
	}
	remote := []ir.Record{rec("D", 1, 1, "a0")}
	localBefore := ir.CloneAll(local)
	remoteBefore := ir.CloneAll(remote)

	out, err := Reconcile(local, remote, nil)
	require.NoError(t, err)
	require.True(t, repair.Validate(out))

	out[0].Payload["tags"].(ir.Array)[0] = ir.String("changed")
	out[0].OrderKey = "zz"

	assert.Equal(t, localBefore, local)
	assert.Equal(t, remoteBefore, remote)
}

func TestReconcile_EmptyInputs(t *testing.T) {
	out, err := Reconcile(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Reconcile(nil, []ir.Record{rec("A", 1, 1, "")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a0"}, keys(out))
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "local_only", LocalOnly.String())
	assert.Equal(t, "remote_only", RemoteOnly.String())
	assert.Equal(t, "local_kept", LocalKept.String())
	assert.Equal(t, "remote_taken", RemoteTaken.String())
	assert.Equal(t, "Decision(9)", Decision(9).String())
}

func TestEditKind_ParseRoundTrip(t *testing.T) {
	for _, k := range []EditKind{EditNone, Dragging, Resizing, EditingText, Creating} {
		got, ok := ParseEditKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseEditKind("juggling")
	assert.False(t, ok)
}

func TestNewer_Antisymmetric(t *testing.T) {
	pairs := [][2]ir.Record{
		{rec("A", 1, 1, "a0"), rec("A", 2, 1, "a0")},
		{rec("A", 2, 1, "a0"), rec("A", 2, 3, "a0")},
		{rec("A", 2, 3, "a0"), rec("A", 2, 3, "a1")},
		{rec("A", 2, 3, ""), rec("A", 2, 3, "a1")},
		{withPayload(rec("A", 2, 3, "a0"), ir.Object{"k": ir.Bool(true)}), rec("A", 2, 3, "a0")},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		assert.NotEqual(t, Newer(a, b), Newer(b, a), "%s vs %s", a, b)
	}
	same := rec("A", 1, 1, "a0")
	assert.False(t, Newer(same, same))
}

func TestNewer_PrefersLargerValidKey(t *testing.T) {
	assert.True(t, Newer(rec("A", 2, 3, "a0V"), rec("A", 2, 3, "a0")))
	assert.False(t, Newer(rec("A", 2, 3, "a0"), rec("A", 2, 3, "a0V")))
	assert.True(t, Newer(rec("A", 2, 3, "a0"), rec("A", 2, 3, "")), "missing key loses")
	assert.True(t, Newer(rec("A", 2, 3, "a0"), rec("A", 2, 3, "zzz")), "malformed key loses")
}
