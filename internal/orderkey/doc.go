// Package orderkey implements dense order keys (fractional indexing).
//
// An order key is a string over a byte-monotonic alphabet. For any two
// valid keys a < b there is a key c with a < c < b, so a record can be
// placed between any two neighbours without renumbering the others.
//
// Key layout:
//
//	<head><integer digits><fraction>
//
// The head symbol encodes how many integer digits follow: positive heads
// ('a'..'z' by default) grow the integer longer as they increase, negative
// heads ('A'..'Z') grow it longer as they decrease. Appending and prepending
// therefore only lengthen keys logarithmically. The fraction never ends in
// the zero digit, which keeps every key's successor space non-empty.
//
// Because the alphabet is byte-monotonic, key order is plain byte order:
// Compare is strings.Compare.
//
// Generation is deterministic unless jitter is configured, in which case a
// random suffix is appended after the deterministic key. Jitter lowers the
// chance that two peers inserting into the same gap at the same time produce
// byte-identical keys; it never changes relative order.
package orderkey
