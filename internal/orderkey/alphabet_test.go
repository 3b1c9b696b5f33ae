package orderkey

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalConfig() Config {
	return Config{
		Digits:        "0123456789",
		PositiveFirst: 'a',
		PositiveLast:  'j',
		NegativeFirst: 'A',
		NegativeLast:  'J',
	}
}

func TestNewAlphabet_Default(t *testing.T) {
	a, err := NewAlphabet(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Base62Digits, a.Digits())
	assert.Equal(t, DefaultConfig(), a.Config())
}

func TestNewAlphabet_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"single digit", func(c *Config) { c.Digits = "0" }, "digits"},
		{"not increasing", func(c *Config) { c.Digits = "0213" }, "digits"},
		{"duplicate digit", func(c *Config) { c.Digits = "0112" }, "digits"},
		{"non printable digit", func(c *Config) { c.Digits = "0 12" }, "digits"},
		{"positive inverted", func(c *Config) { c.PositiveFirst, c.PositiveLast = 'z', 'a' }, "positive"},
		{"negative inverted", func(c *Config) { c.NegativeFirst, c.NegativeLast = 'Z', 'A' }, "negative"},
		{"negative after positive", func(c *Config) {
			c.NegativeFirst, c.NegativeLast, c.PositiveFirst, c.PositiveLast = 'a', 'z', 'A', 'Z'
		}, "heads"},
		{"non printable head", func(c *Config) { c.PositiveLast = 0x7f }, "heads"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)

			a, err := NewAlphabet(cfg)
			require.Error(t, err)
			assert.Nil(t, a)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.True(t, IsConfigError(err))
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestMustAlphabet_PanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		MustAlphabet(Config{Digits: "0"})
	})
}

func TestValidate(t *testing.T) {
	smallest := "A" + strings.Repeat("0", 26)

	tests := []struct {
		key   string
		valid bool
	}{
		{"a0", true},
		{"a1", true},
		{"Zz", true},
		{"a0V", true},
		{"b12", true},
		{"b12V", true},
		{"Xzzz", true},
		{smallest + "V", true},
		{"", false},
		{"a", false},
		{"b1", false},
		{"a00", false},
		{"a0V0", false},
		{"a0!", false},
		{"0", false},
		{"!a0", false},
		{smallest, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := Base62.Validate(tt.key)
			if tt.valid {
				assert.NoError(t, err)
				assert.True(t, Base62.Valid(tt.key))
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.False(t, Base62.Valid(tt.key))
		})
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare("Zz", "a0"))
	assert.Equal(t, -1, Compare("a0", "a0V"))
	assert.Equal(t, -1, Compare("a0V", "a1"))
	assert.Equal(t, 0, Compare("a1", "a1"))
	assert.Equal(t, 1, Compare("b00", "az"))
}
