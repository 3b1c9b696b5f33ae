package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boardsync/internal/orderkey"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, orderkey.DefaultConfig(), cfg.Alphabet)
	assert.Equal(t, orderkey.DefaultJitter, cfg.Jitter)
	assert.Equal(t, "boardsync.db", cfg.StorePath)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestCompile_OverridesDefaults(t *testing.T) {
	src := `
alphabet: {
	digits: "0123456789"
	positive: {first: "a", last: "j"}
	negative: {first: "A", last: "J"}
}
jitter: 0
store: path: "scenes.db"
log: level: "debug"
`
	cfg, err := Compile([]byte(src), "boardsync.cue")
	require.NoError(t, err)

	assert.Equal(t, "0123456789", cfg.Alphabet.Digits)
	assert.Equal(t, byte('j'), cfg.Alphabet.PositiveLast)
	assert.Equal(t, byte('J'), cfg.Alphabet.NegativeLast)
	assert.Equal(t, 0, cfg.Jitter)
	assert.Equal(t, "scenes.db", cfg.StorePath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)

	gen, err := cfg.NewGenerator()
	require.NoError(t, err)
	k, err := gen.JitteredKeyBetween("a9", "")
	require.NoError(t, err)
	assert.Equal(t, "b00", k)
}

func TestCompile_PartialFile(t *testing.T) {
	cfg, err := Compile([]byte(`jitter: 2`), "boardsync.cue")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Jitter)
	assert.Equal(t, orderkey.Base62Digits, cfg.Alphabet.Digits)
	assert.Equal(t, "boardsync.db", cfg.StorePath)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"syntax", `jitter: `, "cue"},
		{"unknown field", `colour: "red"`, "cue"},
		{"jitter range", `jitter: 40`, "cue"},
		{"jitter type", `jitter: "four"`, "cue"},
		{"log level", `log: level: "trace"`, "cue"},
		{"multi-byte head", `alphabet: positive: first: "ab"`, "alphabet.positive.first"},
		{"unsorted digits", `alphabet: digits: "10"`, "alphabet.digits"},
		{"overlapping heads", `alphabet: negative: last: "b"`, "alphabet.heads"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			require.True(t, IsCompileError(err), "got %T: %v", err, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompile_ErrorCarriesPosition(t *testing.T) {
	_, err := Compile([]byte("store: path: \"x\"\njitter: 99\n"), "pos.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, "pos.cue", ce.Pos.Filename())
	assert.Equal(t, 2, ce.Pos.Line())
	assert.True(t, strings.HasPrefix(err.Error(), "pos.cue:2:"), err.Error())
}

func TestPathPos(t *testing.T) {
	user := cuecontext.New().CompileString("store: path: \"x\"\njitter: 99\n", cue.Filename("u.cue"))
	require.NoError(t, user.Err())

	pos := pathPos([]string{"#Config", "jitter"}, []cue.Value{user})
	require.True(t, pos.IsValid())
	assert.Equal(t, 2, pos.Line())

	assert.Equal(t, 1, pathPos([]string{"store", "path"}, []cue.Value{user}).Line())
	assert.False(t, pathPos(nil, []cue.Value{user}).IsValid())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boardsync.cue")
	require.NoError(t, os.WriteFile(path, []byte(`store: path: "x.db"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x.db", cfg.StorePath)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(dir, "missing.cue"))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "jitter", Message: "too wide"}
	assert.Equal(t, "jitter: too wide", err.Error())
}
