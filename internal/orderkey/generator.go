package orderkey

import (
	"math/rand"
)

// DefaultJitter is the number of random symbols appended by jittered
// generators unless configured otherwise.
const DefaultJitter = 4

// maxJitterAttempts bounds how often the base key is advanced when a suffix
// would reach the upper neighbour.
const maxJitterAttempts = 8

// Source supplies randomness for jitter. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// globalSource uses the goroutine-safe top-level math/rand functions.
type globalSource struct{}

func (globalSource) Intn(n int) int { return rand.Intn(n) }

// Generator produces order keys over an alphabet, optionally jittered.
//
// A Generator is safe for concurrent use when its Source is. The default
// source is.
type Generator struct {
	alphabet *Alphabet
	jitter   int
	source   Source
}

// Option configures a Generator.
type Option func(*Generator)

// WithJitter sets the number of random symbols appended to jittered keys.
// Zero disables jitter.
func WithJitter(width int) Option {
	return func(g *Generator) {
		if width < 0 {
			width = 0
		}
		g.jitter = width
	}
}

// WithSource sets the randomness used for jitter. Tests pass a seeded
// source for reproducible keys.
func WithSource(src Source) Option {
	return func(g *Generator) {
		g.source = src
	}
}

// NewGenerator creates a generator over alphabet (Base62 when nil).
func NewGenerator(alphabet *Alphabet, opts ...Option) *Generator {
	if alphabet == nil {
		alphabet = Base62
	}
	g := &Generator{
		alphabet: alphabet,
		jitter:   DefaultJitter,
		source:   globalSource{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Default returns a deterministic Base62 generator.
func Default() *Generator {
	return NewGenerator(Base62, WithJitter(0))
}

// Alphabet returns the generator's alphabet.
func (g *Generator) Alphabet() *Alphabet {
	return g.alphabet
}

// Jitter returns the configured jitter width.
func (g *Generator) Jitter() int {
	return g.jitter
}

// Deterministic returns a copy of g that never appends jitter. Its output
// is a pure function of the bounds, which makes it suitable for fixtures
// and for index repair.
func (g *Generator) Deterministic() *Generator {
	out := *g
	out.jitter = 0
	return &out
}

// KeyBetween returns a deterministic key between lower and upper.
func (g *Generator) KeyBetween(lower, upper string) (string, error) {
	return g.alphabet.KeyBetween(lower, upper)
}

// KeysBetween returns n deterministic ascending keys between lower and upper.
func (g *Generator) KeysBetween(lower, upper string, n int) ([]string, error) {
	return g.alphabet.KeysBetween(lower, upper, n)
}

// JitteredKeyBetween returns a key between lower and upper with a random
// suffix appended. Without jitter configured it equals KeyBetween.
func (g *Generator) JitteredKeyBetween(lower, upper string) (string, error) {
	k, err := g.alphabet.KeyBetween(lower, upper)
	if err != nil {
		return "", err
	}
	return g.jitterKey(k, upper), nil
}

// JitteredKeysBetween returns n ascending jittered keys. Each key is
// jittered below its deterministic successor, so the batch stays ordered.
func (g *Generator) JitteredKeysBetween(lower, upper string, n int) ([]string, error) {
	keys, err := g.alphabet.KeysBetween(lower, upper, n)
	if err != nil {
		return nil, err
	}
	if g.jitter == 0 {
		return keys, nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		next := upper
		if i+1 < len(keys) {
			next = keys[i+1]
		}
		out[i] = g.jitterKey(k, next)
	}
	return out, nil
}

// jitterKey appends a random suffix to key while staying below upper.
// key must already be valid and strictly below upper.
func (g *Generator) jitterKey(key, upper string) string {
	if g.jitter == 0 {
		return key
	}
	base := key
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		candidate := base + g.suffix()
		if upper == "" || candidate < upper {
			return candidate
		}
		// base is a prefix of upper; step towards upper and try again.
		next, err := g.alphabet.KeyBetween(base, upper)
		if err != nil {
			return base
		}
		base = next
	}
	return base
}

// suffix returns jitter random digits; the last is never the zero digit.
func (g *Generator) suffix() string {
	digits := g.alphabet.cfg.Digits
	buf := make([]byte, g.jitter)
	for i := 0; i < len(buf)-1; i++ {
		buf[i] = digits[g.source.Intn(len(digits))]
	}
	buf[len(buf)-1] = digits[1+g.source.Intn(len(digits)-1)]
	return string(buf)
}
