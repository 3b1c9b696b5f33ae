package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderedScene = `[
  {"id": "r1", "version": 1, "version_nonce": 5, "order_key": "a0"},
  {"id": "r2", "version": 1, "version_nonce": 5, "order_key": "a1"},
  {"id": "r3", "version": 2, "version_nonce": 7, "order_key": "a2", "deleted": true}
]`

const swappedScene = `[
  {"id": "r1", "version": 1, "version_nonce": 5, "order_key": "a1"},
  {"id": "r2", "version": 1, "version_nonce": 5, "order_key": "a0"}
]`

func TestValidate_Ordered(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.json", orderedScene)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 record(s) validly ordered")
}

func TestValidate_OrderedJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.json", orderedScene)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Records)
}

func TestValidate_OutOfOrder(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.json", swappedScene)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInvalidOrder)
	assert.Contains(t, out, "2 of 2 record(s) out of order")
	assert.Contains(t, out, `position 0: "", "a1:r1:false:1:5", "a0:r2:false:1:5"`)
}

func TestValidate_OutOfOrderJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.json", swappedScene)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInvalidOrder, resp.Error.Code)
	assert.False(t, resp.Error.Details.Valid)
	require.Len(t, resp.Error.Details.Violations, 2)
	assert.Equal(t, 1, resp.Error.Details.Violations[1].Position)
	assert.Equal(t, "a1:r1:false:1:5", resp.Error.Details.Violations[1].Prev)
}

func TestValidate_MissingKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.json", `[{"id": "r1", "version": 1, "version_nonce": 1, "order_key": null}]`)

	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_EmptyScene(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.json", `[]`)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 record(s) validly ordered")
}

func TestValidate_FileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", dir + "/nope.json", ErrCodeIO},
		{"not_json", writeFile(t, dir, "bad.json", `{"id":`), ErrCodeDecode},
		{"no_id", writeFile(t, dir, "noid.json", `[{"version": 1}]`), ErrCodeDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidate_MissingArgs(t *testing.T) {
	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
