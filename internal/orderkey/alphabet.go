package orderkey

import (
	"fmt"
	"strings"
)

// Base62Digits is the default digit set. It is byte-monotonic.
const Base62Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Config parameterizes an Alphabet.
type Config struct {
	// Digits is the full symbol set, strictly increasing in byte order.
	// Digits[0] is the zero digit.
	Digits string

	// PositiveFirst and PositiveLast bound the heads of non-negative
	// integer parts. PositiveFirst carries one integer digit, each
	// following head one more.
	PositiveFirst byte
	PositiveLast  byte

	// NegativeFirst and NegativeLast bound the heads of negative integer
	// parts. NegativeLast carries one integer digit, each preceding head
	// one more.
	NegativeFirst byte
	NegativeLast  byte
}

// DefaultConfig returns the Base62 configuration with 'a'..'z' positive
// and 'A'..'Z' negative heads.
func DefaultConfig() Config {
	return Config{
		Digits:        Base62Digits,
		PositiveFirst: 'a',
		PositiveLast:  'z',
		NegativeFirst: 'A',
		NegativeLast:  'Z',
	}
}

// Alphabet is a validated key alphabet. It is immutable and safe for
// concurrent use.
type Alphabet struct {
	cfg      Config
	index    [256]int16
	smallest string // the smallest integer part, which has no predecessor
}

// Base62 is the default alphabet.
var Base62 = MustAlphabet(DefaultConfig())

// NewAlphabet validates cfg and builds an Alphabet.
// Every error returned is a *ConfigError.
func NewAlphabet(cfg Config) (*Alphabet, error) {
	a := &Alphabet{cfg: cfg}
	for i := range a.index {
		a.index[i] = -1
	}

	if len(cfg.Digits) < 2 {
		return nil, &ConfigError{Field: "digits", Message: "at least two digits are required"}
	}
	for i := 0; i < len(cfg.Digits); i++ {
		c := cfg.Digits[i]
		if c <= ' ' || c >= 0x7f {
			return nil, &ConfigError{Field: "digits", Message: fmt.Sprintf("digit %q is not printable ASCII", c)}
		}
		if i > 0 && c <= cfg.Digits[i-1] {
			return nil, &ConfigError{Field: "digits", Message: fmt.Sprintf("digits must be strictly increasing, %q follows %q", c, cfg.Digits[i-1])}
		}
		a.index[c] = int16(i)
	}

	for _, h := range []byte{cfg.PositiveFirst, cfg.PositiveLast, cfg.NegativeFirst, cfg.NegativeLast} {
		if h <= ' ' || h >= 0x7f {
			return nil, &ConfigError{Field: "heads", Message: fmt.Sprintf("head %q is not printable ASCII", h)}
		}
	}
	if cfg.PositiveFirst > cfg.PositiveLast {
		return nil, &ConfigError{Field: "positive", Message: "first head is after last head"}
	}
	if cfg.NegativeFirst > cfg.NegativeLast {
		return nil, &ConfigError{Field: "negative", Message: "first head is after last head"}
	}
	if cfg.NegativeLast >= cfg.PositiveFirst {
		return nil, &ConfigError{Field: "heads", Message: "negative heads must sort before positive heads"}
	}

	a.smallest = string(cfg.NegativeFirst) + strings.Repeat(string(a.zero()), a.negativeLength(cfg.NegativeFirst)-1)
	return a, nil
}

// MustAlphabet is NewAlphabet that panics on a configuration error.
// Use it for compile-time constants where a bad alphabet is fatal.
func MustAlphabet(cfg Config) *Alphabet {
	a, err := NewAlphabet(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

// Config returns the configuration the alphabet was built from.
func (a *Alphabet) Config() Config {
	return a.cfg
}

// Digits returns the digit set.
func (a *Alphabet) Digits() string {
	return a.cfg.Digits
}

func (a *Alphabet) zero() byte {
	return a.cfg.Digits[0]
}

func (a *Alphabet) last() byte {
	return a.cfg.Digits[len(a.cfg.Digits)-1]
}

func (a *Alphabet) digit(c byte) int {
	return int(a.index[c])
}

func (a *Alphabet) negativeLength(head byte) int {
	return int(a.cfg.NegativeLast-head) + 2
}

// Compare orders two keys. The alphabet is byte-monotonic, so this is a
// plain byte comparison.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// Valid reports whether key is well formed for this alphabet.
func (a *Alphabet) Valid(key string) bool {
	return a.Validate(key) == nil
}

// Validate checks key syntax: a known head, the exact number of integer
// digits it encodes, known digits throughout, and no trailing zero digit in
// the fraction.
func (a *Alphabet) Validate(key string) error {
	if key == "" {
		return &KeyError{Key: key, Reason: "empty"}
	}
	if key == a.smallest {
		return &KeyError{Key: key, Reason: "smallest integer has no predecessor"}
	}
	ip, err := a.integerPart(key)
	if err != nil {
		return err
	}
	for i := 1; i < len(key); i++ {
		if a.digit(key[i]) < 0 {
			return &KeyError{Key: key, Reason: fmt.Sprintf("unknown digit %q at %d", key[i], i)}
		}
	}
	if len(key) > len(ip) && key[len(key)-1] == a.zero() {
		return &KeyError{Key: key, Reason: "fraction ends in the zero digit"}
	}
	return nil
}
