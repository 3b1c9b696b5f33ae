package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/boardsync/internal/orderkey"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "boardsync.cue"

// Config is the compiled configuration.
type Config struct {
	Alphabet  orderkey.Config
	Jitter    int
	StorePath string
	LogLevel  slog.Level
}

// Default returns the configuration an empty file compiles to.
func Default() *Config {
	cfg, err := Compile([]byte{}, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults do not compile: %v", err))
	}
	return cfg
}

// Load reads and compiles the file at path. An empty path, or the default
// file name when it does not exist, yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultFile {
			return Default(), nil
		}
		return nil, &CompileError{Field: "file", Message: err.Error()}
	}
	return Compile(data, path)
}

// Compile unifies src with the schema and extracts the settings.
func Compile(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, user, v)
	}

	cfg := &Config{}
	var err error

	if cfg.Alphabet.Digits, err = lookupString(v, "alphabet.digits"); err != nil {
		return nil, err
	}
	heads := []struct {
		path string
		dst  *byte
	}{
		{"alphabet.positive.first", &cfg.Alphabet.PositiveFirst},
		{"alphabet.positive.last", &cfg.Alphabet.PositiveLast},
		{"alphabet.negative.first", &cfg.Alphabet.NegativeFirst},
		{"alphabet.negative.last", &cfg.Alphabet.NegativeLast},
	}
	for _, h := range heads {
		if *h.dst, err = lookupHead(v, h.path); err != nil {
			return nil, err
		}
	}
	if _, err := orderkey.NewAlphabet(cfg.Alphabet); err != nil {
		field := "alphabet"
		var ke *orderkey.ConfigError
		if errors.As(err, &ke) {
			field = "alphabet." + ke.Field
		}
		return nil, &CompileError{
			Field:   field,
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("alphabet")).Pos(),
		}
	}

	jitter, err := lookup(v, "jitter").Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	cfg.Jitter = int(jitter)

	if cfg.StorePath, err = lookupString(v, "store.path"); err != nil {
		return nil, err
	}

	level, err := lookupString(v, "log.level")
	if err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, &CompileError{Field: "log.level", Message: err.Error(), Pos: lookup(v, "log.level").Pos()}
	}

	return cfg, nil
}

// NewAlphabet builds the configured alphabet.
func (c *Config) NewAlphabet() (*orderkey.Alphabet, error) {
	return orderkey.NewAlphabet(c.Alphabet)
}

// NewGenerator builds a key generator with the configured alphabet and
// jitter width.
func (c *Config) NewGenerator(opts ...orderkey.Option) (*orderkey.Generator, error) {
	alpha, err := c.NewAlphabet()
	if err != nil {
		return nil, err
	}
	opts = append([]orderkey.Option{orderkey.WithJitter(c.Jitter)}, opts...)
	return orderkey.NewGenerator(alpha, opts...), nil
}

// lookup resolves path, selecting the default of a disjunction.
func lookup(v cue.Value, path string) cue.Value {
	field := v.LookupPath(cue.ParsePath(path))
	if d, ok := field.Default(); ok {
		return d
	}
	return field
}

func lookupString(v cue.Value, path string) (string, error) {
	s, err := lookup(v, path).String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func lookupHead(v cue.Value, path string) (byte, error) {
	s, err := lookupString(v, path)
	if err != nil {
		return 0, err
	}
	if len(s) != 1 {
		return 0, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("head must be a single ASCII symbol, got %q", s),
			Pos:     lookup(v, path).Pos(),
		}
	}
	return s[0], nil
}
