package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/reconcile"
)

const localScene = `[
  {"id": "a", "version": 1, "version_nonce": 5, "order_key": "a0"},
  {"id": "b", "version": 1, "version_nonce": 5, "order_key": "a1"}
]`

const remoteBatch = `[
  {"id": "b", "version": 2, "version_nonce": 9, "order_key": "a1", "payload": {"x": 10}},
  {"id": "c", "version": 1, "version_nonce": 3, "order_key": "a2"}
]`

type reconcileResponse struct {
	Status string          `json:"status"`
	Data   ReconcileResult `json:"data"`
}

func TestReconcile_JSON(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.json", localScene)
	remote := writeFile(t, dir, "remote.json", remoteBatch)

	out, err := execute(t, NewReconcileCommand(&RootOptions{Format: "json"}), local, remote)
	require.NoError(t, err)

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"a", "b", "c"}, ir.IDs(resp.Data.Records))
	assert.Equal(t, int64(2), resp.Data.Records[1].Version)
	assert.Equal(t, ir.Object{"x": ir.Int(10)}, resp.Data.Records[1].Payload)
	assert.Equal(t, []OutcomeView{
		{ID: "a", Decision: "local_only"},
		{ID: "b", Decision: "remote_taken"},
		{ID: "c", Decision: "remote_only"},
	}, resp.Data.Outcomes)
	assert.Empty(t, resp.Data.Repaired)
	assert.Zero(t, resp.Data.Protected)

	digest, err := ir.SceneDigest(resp.Data.Records)
	require.NoError(t, err)
	assert.Equal(t, digest, resp.Data.Digest)
}

func TestReconcile_EditProtects(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.json", localScene)
	remote := writeFile(t, dir, "remote.json", remoteBatch)

	out, err := execute(t, NewReconcileCommand(&RootOptions{Format: "json"}), local, remote, "--edit", "b=dragging")
	require.NoError(t, err)

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(1), resp.Data.Records[1].Version)
	assert.Equal(t, OutcomeView{ID: "b", Decision: "local_kept", Protected: true}, resp.Data.Outcomes[1])
	assert.Equal(t, 1, resp.Data.Protected)
}

func TestReconcile_Text(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.json", localScene)
	remote := writeFile(t, dir, "remote.json", remoteBatch)

	out, err := execute(t, NewReconcileCommand(&RootOptions{Format: "text"}), local, remote)
	require.NoError(t, err)
	assert.Contains(t, out, "merged 3 record(s): 0 repaired, 0 protected")
	assert.Contains(t, out, "   1  a1           b  v2/9")
}

func TestReconcile_OutputFile(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.json", localScene)
	remote := writeFile(t, dir, "remote.json", `[]`)
	merged := filepath.Join(dir, "merged.json")

	_, err := execute(t, NewReconcileCommand(&RootOptions{Format: "text"}), local, remote, "-o", merged)
	require.NoError(t, err)

	data, err := os.ReadFile(merged)
	require.NoError(t, err)
	recs, err := ir.DecodeRecords(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ir.IDs(recs))
}

func TestReconcile_RepairsCollidingKeys(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.json", `[{"id": "a", "version": 1, "version_nonce": 1, "order_key": "a0"}]`)
	remote := writeFile(t, dir, "remote.json", `[{"id": "b", "version": 1, "version_nonce": 1, "order_key": "a0"}]`)

	out, err := execute(t, NewReconcileCommand(&RootOptions{Format: "json"}), local, remote)
	require.NoError(t, err)

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"a", "b"}, ir.IDs(resp.Data.Records))
	assert.Equal(t, []int{1}, resp.Data.Repaired)
	assert.Equal(t, "a1", resp.Data.Records[1].OrderKey)
}

func TestReconcile_Stdin(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.json", localScene)

	cmd := NewReconcileCommand(&RootOptions{Format: "json"})
	cmd.SetIn(strings.NewReader(remoteBatch))
	out, err := execute(t, cmd, local, "-")
	require.NoError(t, err)

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data.Records, 3)
}

func TestReconcile_BadEdit(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "local.json", localScene)
	remote := writeFile(t, dir, "remote.json", remoteBatch)

	for _, edit := range []string{"b", "=dragging", "b=flying", "b=none"} {
		out, err := execute(t, NewReconcileCommand(&RootOptions{Format: "text"}), local, remote, "--edit", edit)
		require.Error(t, err, edit)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E_USAGE]")
	}
}

func TestParseEdits(t *testing.T) {
	edit, err := parseEdits([]string{"r1=dragging", "r2=editing_text"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.EditContext{"r1": reconcile.Dragging, "r2": reconcile.EditingText}, edit)
	assert.Equal(t, []string{"r1", "r2"}, editNames(edit))

	edit, err = parseEdits(nil)
	require.NoError(t, err)
	assert.Nil(t, edit)
}
