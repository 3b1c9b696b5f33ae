package ir

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Domain prefixes for digests. The version suffix allows a future algorithm
// migration without ambiguity.
const (
	DomainRecord = "boardsync/record/v1"
	DomainScene  = "boardsync/scene/v1"
)

// hashWithDomain computes BLAKE3(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, chunks ...[]byte) string {
	h := blake3.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, c := range chunks {
		h.Write(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ContentDigest identifies the content of one record version: every field
// except the order key. Two copies that differ only by index repair share
// a content digest.
func ContentDigest(r Record) (string, error) {
	canonical, err := CanonicalRecord(r, false)
	if err != nil {
		return "", fmt.Errorf("ContentDigest: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// SceneDigest fingerprints an ordered record list including order keys.
// Two replicas hold observationally equal scenes iff their digests match.
func SceneDigest(recs []Record) (string, error) {
	chunks := make([][]byte, 0, 2*len(recs))
	for _, r := range recs {
		canonical, err := CanonicalRecord(r, true)
		if err != nil {
			return "", fmt.Errorf("SceneDigest: %w", err)
		}
		chunks = append(chunks, canonical, []byte{'\n'})
	}
	return hashWithDomain(DomainScene, chunks...), nil
}
