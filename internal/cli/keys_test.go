package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"first", nil, "a0\n"},
		{"append", []string{"--after", "a0"}, "a1\n"},
		{"prepend", []string{"--before", "a0"}, "Zz\n"},
		{"between", []string{"--after", "a0", "--before", "a1", "-n", "3"}, "a0G\na0V\na0l\n"},
		{"none", []string{"-n", "0"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewKeysCommand(&RootOptions{Format: "text"}), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestKeys_JSON(t *testing.T) {
	out, err := execute(t, NewKeysCommand(&RootOptions{Format: "json"}), "--after", "a0", "-n", "2")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   KeysResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, KeysResult{After: "a0", Keys: []string{"a1", "a2"}}, resp.Data)
}

func TestKeys_Jitter(t *testing.T) {
	out, err := execute(t, NewKeysCommand(&RootOptions{Format: "text"}), "--after", "a0", "--before", "a2", "--jitter")
	require.NoError(t, err)

	key := strings.TrimSpace(out)
	assert.Len(t, key, 6)
	assert.True(t, strings.HasPrefix(key, "a1"), key)
	assert.Less(t, key, "a2")
}

func TestKeys_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"inverted", []string{"--after", "a1", "--before", "a0"}, ErrCodeInvalidOrder},
		{"equal", []string{"--after", "a1", "--before", "a1"}, ErrCodeInvalidOrder},
		{"malformed", []string{"--after", "a"}, ErrCodeUsage},
		{"negative", []string{"-n", "-1"}, ErrCodeUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewKeysCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
