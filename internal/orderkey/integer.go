package orderkey

import "fmt"

// integerLength returns the total length (head included) of an integer
// part starting with head.
func (a *Alphabet) integerLength(head byte) (int, error) {
	switch {
	case head >= a.cfg.PositiveFirst && head <= a.cfg.PositiveLast:
		return int(head-a.cfg.PositiveFirst) + 2, nil
	case head >= a.cfg.NegativeFirst && head <= a.cfg.NegativeLast:
		return a.negativeLength(head), nil
	}
	return 0, &KeyError{Key: string(head), Reason: "invalid head"}
}

// integerPart returns the head plus integer digits of key.
func (a *Alphabet) integerPart(key string) (string, error) {
	n, err := a.integerLength(key[0])
	if err != nil {
		return "", &KeyError{Key: key, Reason: fmt.Sprintf("invalid head %q", key[0])}
	}
	if n > len(key) {
		return "", &KeyError{Key: key, Reason: fmt.Sprintf("integer part needs %d symbols", n)}
	}
	return key[:n], nil
}

// increment returns the next integer part, or ok=false when x is already
// the largest integer.
func (a *Alphabet) increment(x string) (string, bool) {
	head := x[0]
	digs := []byte(x[1:])

	carry := true
	for i := len(digs) - 1; carry && i >= 0; i-- {
		d := a.digit(digs[i]) + 1
		if d == len(a.cfg.Digits) {
			digs[i] = a.zero()
		} else {
			digs[i] = a.cfg.Digits[d]
			carry = false
		}
	}
	if !carry {
		return string(head) + string(digs), true
	}

	switch head {
	case a.cfg.NegativeLast:
		return string(a.cfg.PositiveFirst) + string(a.zero()), true
	case a.cfg.PositiveLast:
		return "", false
	}
	h := head + 1
	if h > a.cfg.PositiveFirst {
		digs = append(digs, a.zero())
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs), true
}

// decrement returns the previous integer part, or ok=false when x is
// already the smallest integer.
func (a *Alphabet) decrement(x string) (string, bool) {
	head := x[0]
	digs := []byte(x[1:])

	borrow := true
	for i := len(digs) - 1; borrow && i >= 0; i-- {
		d := a.digit(digs[i]) - 1
		if d == -1 {
			digs[i] = a.last()
		} else {
			digs[i] = a.cfg.Digits[d]
			borrow = false
		}
	}
	if !borrow {
		return string(head) + string(digs), true
	}

	switch head {
	case a.cfg.PositiveFirst:
		return string(a.cfg.NegativeLast) + string(a.last()), true
	case a.cfg.NegativeFirst:
		return "", false
	}
	h := head - 1
	if h < a.cfg.NegativeLast {
		digs = append(digs, a.last())
	} else {
		digs = digs[:len(digs)-1]
	}
	return string(h) + string(digs), true
}
