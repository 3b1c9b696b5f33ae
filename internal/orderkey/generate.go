package orderkey

import "fmt"

// KeyBetween returns a key strictly between lower and upper using the
// Base62 alphabet. An empty bound means "unbounded" on that side.
func KeyBetween(lower, upper string) (string, error) {
	return Base62.KeyBetween(lower, upper)
}

// KeysBetween returns n ascending keys strictly between lower and upper
// using the Base62 alphabet.
func KeysBetween(lower, upper string, n int) ([]string, error) {
	return Base62.KeysBetween(lower, upper, n)
}

// KeyBetween returns a key strictly between lower and upper.
//
//   - both empty: the canonical first key (PositiveFirst + zero, "a0")
//   - only lower: a key after lower with no upper bound (append)
//   - only upper: a key before upper with no lower bound (prepend)
//   - both: a key strictly between; lower >= upper is an
//     *OrderViolationError
//
// Malformed bounds are rejected with a *KeyError.
func (a *Alphabet) KeyBetween(lower, upper string) (string, error) {
	if lower != "" {
		if err := a.Validate(lower); err != nil {
			return "", err
		}
	}
	if upper != "" {
		if err := a.Validate(upper); err != nil {
			return "", err
		}
	}
	if lower != "" && upper != "" && lower >= upper {
		return "", &OrderViolationError{Lower: lower, Upper: upper}
	}

	if lower == "" {
		if upper == "" {
			return string(a.cfg.PositiveFirst) + string(a.zero()), nil
		}
		ib, _ := a.integerPart(upper)
		fb := upper[len(ib):]
		if ib == a.smallest {
			m, err := a.midpoint("", fb)
			if err != nil {
				return "", err
			}
			return ib + m, nil
		}
		if ib < upper {
			return ib, nil
		}
		res, ok := a.decrement(ib)
		if !ok {
			return "", fmt.Errorf("prepend before %q: %w", upper, ErrKeyspaceExhausted)
		}
		if res == a.smallest {
			// the smallest integer is not a key on its own
			m, err := a.midpoint("", "")
			if err != nil {
				return "", err
			}
			return res + m, nil
		}
		return res, nil
	}

	ia, _ := a.integerPart(lower)
	fa := lower[len(ia):]

	if upper == "" {
		if next, ok := a.increment(ia); ok {
			return next, nil
		}
		m, err := a.midpoint(fa, "")
		if err != nil {
			return "", err
		}
		return ia + m, nil
	}

	ib, _ := a.integerPart(upper)
	fb := upper[len(ib):]
	if ia == ib {
		m, err := a.midpoint(fa, fb)
		if err != nil {
			return "", err
		}
		return ia + m, nil
	}
	next, ok := a.increment(ia)
	if !ok {
		return "", fmt.Errorf("append after %q: %w", lower, ErrKeyspaceExhausted)
	}
	if next < upper {
		return next, nil
	}
	m, err := a.midpoint(fa, "")
	if err != nil {
		return "", err
	}
	return ia + m, nil
}

// KeysBetween returns n keys in ascending order, all strictly between lower
// and upper. Bounded ranges are bisected recursively so key length grows
// with log(n) rather than n.
func (a *Alphabet) KeysBetween(lower, upper string, n int) ([]string, error) {
	switch {
	case n < 0:
		return nil, fmt.Errorf("keys between: negative count %d", n)
	case n == 0:
		return []string{}, nil
	case n == 1:
		k, err := a.KeyBetween(lower, upper)
		if err != nil {
			return nil, err
		}
		return []string{k}, nil
	}

	if upper == "" {
		keys := make([]string, 0, n)
		c := lower
		for i := 0; i < n; i++ {
			k, err := a.KeyBetween(c, upper)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
			c = k
		}
		return keys, nil
	}

	if lower == "" {
		keys := make([]string, n)
		c := upper
		for i := n - 1; i >= 0; i-- {
			k, err := a.KeyBetween(lower, c)
			if err != nil {
				return nil, err
			}
			keys[i] = k
			c = k
		}
		return keys, nil
	}

	mid := n / 2
	c, err := a.KeyBetween(lower, upper)
	if err != nil {
		return nil, err
	}
	left, err := a.KeysBetween(lower, c, mid)
	if err != nil {
		return nil, err
	}
	right, err := a.KeysBetween(c, upper, n-mid-1)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, n)
	keys = append(keys, left...)
	keys = append(keys, c)
	keys = append(keys, right...)
	return keys, nil
}

// midpoint returns a fraction strictly between fractions lo and hi.
// An empty hi means no upper bound. Neither may end in the zero digit.
func (a *Alphabet) midpoint(lo, hi string) (string, error) {
	zero := a.zero()
	if hi != "" && lo >= hi {
		return "", &OrderViolationError{Lower: lo, Upper: hi}
	}
	if (lo != "" && lo[len(lo)-1] == zero) || (hi != "" && hi[len(hi)-1] == zero) {
		return "", &KeyError{Key: lo + "|" + hi, Reason: "fraction ends in the zero digit"}
	}

	if hi != "" {
		// Skip the common prefix, treating lo as zero-padded.
		n := 0
		for n < len(hi) && digitAt(lo, n, zero) == hi[n] {
			n++
		}
		if n > 0 {
			m, err := a.midpoint(tail(lo, n), hi[n:])
			if err != nil {
				return "", err
			}
			return hi[:n] + m, nil
		}
	}

	digitLo := 0
	if lo != "" {
		digitLo = a.digit(lo[0])
	}
	digitHi := len(a.cfg.Digits)
	if hi != "" {
		digitHi = a.digit(hi[0])
	}

	if digitHi-digitLo > 1 {
		// round half up
		return string(a.cfg.Digits[(digitLo+digitHi+1)/2]), nil
	}
	if len(hi) > 1 {
		return hi[:1], nil
	}
	m, err := a.midpoint(tail(lo, 1), "")
	if err != nil {
		return "", err
	}
	return string(a.cfg.Digits[digitLo]) + m, nil
}

func digitAt(s string, i int, zero byte) byte {
	if i < len(s) {
		return s[i]
	}
	return zero
}

func tail(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}
