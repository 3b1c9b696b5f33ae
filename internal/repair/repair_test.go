package repair

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/orderkey"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// seq builds records A, B, C, ... carrying the given keys.
func seq(keys ...string) []ir.Record {
	recs := make([]ir.Record, len(keys))
	for i, k := range keys {
		recs[i] = ir.Record{
			ID:           string(rune('A' + i)),
			Version:      1,
			VersionNonce: int64(100 + i),
			OrderKey:     k,
		}
	}
	return recs
}

func keysOf(recs []ir.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.OrderKey
	}
	return out
}

func TestFixInvalidIndices(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		want    []string
		changed []int
	}{
		{
			name: "empty",
			keys: []string{},
			want: []string{},
		},
		{
			name: "already valid",
			keys: []string{"a0", "a1", "a2"},
			want: []string{"a0", "a1", "a2"},
		},
		{
			name:    "single missing",
			keys:    []string{""},
			want:    []string{"a0"},
			changed: []int{0},
		},
		{
			name:    "all missing",
			keys:    []string{"", "", ""},
			want:    []string{"a0", "a1", "a2"},
			changed: []int{0, 1, 2},
		},
		{
			name:    "missing in the middle",
			keys:    []string{"a0", "", "a1"},
			want:    []string{"a0", "a0V", "a1"},
			changed: []int{1},
		},
		{
			name:    "missing at the start",
			keys:    []string{"", "a0", "a1"},
			want:    []string{"Zz", "a0", "a1"},
			changed: []int{0},
		},
		{
			name:    "missing at the end",
			keys:    []string{"a0", "a1", "", ""},
			want:    []string{"a0", "a1", "a2", "a3"},
			changed: []int{2, 3},
		},
		{
			name:    "duplicate keeps leftmost",
			keys:    []string{"a0", "a0", "a2"},
			want:    []string{"a0", "a1", "a2"},
			changed: []int{1},
		},
		{
			name:    "triple duplicate at the end",
			keys:    []string{"a0", "a0", "a0"},
			want:    []string{"a0", "a1", "a2"},
			changed: []int{1, 2},
		},
		{
			name:    "single oversized key moves alone",
			keys:    []string{"a0", "a5", "a1", "a2"},
			want:    []string{"a0", "a0V", "a1", "a2"},
			changed: []int{1},
		},
		{
			name:    "oversized first key moves alone",
			keys:    []string{"a5", "a1", "a2", "a3"},
			want:    []string{"a0", "a1", "a2", "a3"},
			changed: []int{0},
		},
		{
			name:    "malformed key treated as missing",
			keys:    []string{"a0", "a00", "a1"},
			want:    []string{"a0", "a0V", "a1"},
			changed: []int{1},
		},
		{
			name:    "descending tail",
			keys:    []string{"a0", "a3", "a2", "a1"},
			want:    []string{"a0", "a0G", "a0V", "a1"},
			changed: []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := seq(tt.keys...)
			changed, err := FixInvalidIndices(recs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keysOf(recs))
			assert.Equal(t, tt.changed, changed)
			assert.True(t, Validate(recs))
		})
	}
}

func TestFixInvalidIndices_DoesNotTouchVersions(t *testing.T) {
	recs := seq("a1", "a1", "", "a0")
	before := ir.CloneAll(recs)

	_, err := FixInvalidIndices(recs)
	require.NoError(t, err)

	for i := range recs {
		assert.Equal(t, before[i].ID, recs[i].ID)
		assert.Equal(t, before[i].Version, recs[i].Version)
		assert.Equal(t, before[i].VersionNonce, recs[i].VersionNonce)
	}
	assert.True(t, Validate(recs))
}

func TestFixInvalidIndices_Idempotent(t *testing.T) {
	recs := seq("b00", "", "a5", "a5", "Zz", "", "a00", "c000")
	_, err := FixInvalidIndices(recs)
	require.NoError(t, err)
	require.True(t, Validate(recs))

	again := ir.CloneAll(recs)
	changed, err := FixInvalidIndices(again)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, keysOf(recs), keysOf(again))
}

func TestFixInvalidIndices_LargeInsertedBlockStaysShort(t *testing.T) {
	keys := make([]string, 0, 1002)
	keys = append(keys, "a0")
	for i := 0; i < 1000; i++ {
		keys = append(keys, "")
	}
	keys = append(keys, "a1")
	recs := seq(keys...)

	changed, err := FixInvalidIndices(recs)
	require.NoError(t, err)
	assert.Len(t, changed, 1000)
	require.True(t, Validate(recs))

	for _, r := range recs {
		assert.LessOrEqual(t, len(r.OrderKey), 8, "key %q grew linearly", r.OrderKey)
	}
}

func TestFixInvalidIndices_PseudoRandomSequences(t *testing.T) {
	pool := []string{"", "a0", "a1", "a2", "a0V", "Zz", "b00", "a00", "a1", "a0"}
	state := uint32(12345)
	for round := 0; round < 200; round++ {
		n := 1 + round%15
		keys := make([]string, n)
		for i := range keys {
			state = state*1664525 + 1013904223
			keys[i] = pool[int(state>>16)%len(pool)]
		}
		recs := seq(keys...)

		_, err := FixInvalidIndices(recs)
		require.NoError(t, err)
		require.True(t, Validate(recs), "round %d keys %v -> %v", round, keys, keysOf(recs))
	}
}

func TestRepairFromScratch(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		want    []string
		changed []int
	}{
		{
			name: "valid untouched",
			keys: []string{"a0", "a1"},
			want: []string{"a0", "a1"},
		},
		{
			name:    "no keys at all",
			keys:    []string{"", "", ""},
			want:    []string{"a0", "a1", "a2"},
			changed: []int{0, 1, 2},
		},
		{
			name:    "trusts leftmost key",
			keys:    []string{"a5", "a1", "a2", "a3"},
			want:    []string{"a5", "a6", "a7", "a8"},
			changed: []int{1, 2, 3},
		},
		{
			name:    "uses next original key as upper hint",
			keys:    []string{"a0", "", "a0", "a3"},
			want:    []string{"a0", "a0V", "a1", "a3"},
			changed: []int{1, 2},
		},
		{
			name:    "duplicates across the set",
			keys:    []string{"a1", "a1", "a1"},
			want:    []string{"a1", "a2", "a3"},
			changed: []int{1, 2},
		},
		{
			name:    "malformed keys",
			keys:    []string{"zz", "a0", "!"},
			want:    []string{"Zz", "a0", "a1"},
			changed: []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := seq(tt.keys...)
			changed, err := RepairFromScratch(recs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keysOf(recs))
			assert.Equal(t, tt.changed, changed)
			assert.True(t, Validate(recs))
		})
	}
}

func TestRepairer_CustomAlphabet(t *testing.T) {
	alpha := orderkey.MustAlphabet(orderkey.Config{
		Digits:        "0123456789",
		PositiveFirst: 'a',
		PositiveLast:  'j',
		NegativeFirst: 'A',
		NegativeLast:  'J',
	})
	r := New(orderkey.NewGenerator(alpha, orderkey.WithJitter(3)))

	recs := seq("a0", "", "a1", "aZ")
	changed, err := r.FixInvalidIndices(recs)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, changed)
	assert.Equal(t, []string{"a0", "a05", "a1", "a2"}, keysOf(recs))
	assert.True(t, r.Validate(recs))

	// Base62 keys are foreign here; the default repairer accepts them.
	assert.False(t, r.Validate(seq("a0", "aZ")))
	assert.True(t, Validate(seq("a0", "aZ")))
}

func TestNew_DropsJitter(t *testing.T) {
	r := New(orderkey.NewGenerator(nil, orderkey.WithJitter(5)))
	assert.Equal(t, 0, r.Generator().Jitter())

	recs := seq("", "")
	_, err := r.FixInvalidIndices(recs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "a1"}, keysOf(recs))
}

func TestFixInvalidIndices_LongDuplicateRun(t *testing.T) {
	keys := make([]string, 500)
	for i := range keys {
		keys[i] = "a0"
	}
	recs := seq(keys...)

	_, err := FixInvalidIndices(recs)
	require.NoError(t, err)
	require.True(t, Validate(recs))
	assert.Equal(t, "a0", recs[0].OrderKey)
	assert.False(t, strings.HasPrefix(recs[1].OrderKey, "Z"))
}
