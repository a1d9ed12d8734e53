package services

import (
	"hash/fnv"
	"math/bits"

	"github.com/custodia-labs/recall-cli/internal/lexical"
)

// SimHash computes a 64-bit locality-sensitive fingerprint of the text:
// near-identical texts produce fingerprints within a small Hamming
// distance of each other, unlike ContentHash which flips entirely on any
// detected change. Stored per source to tell "lightly edited" from
// "replaced" when content changes.
func SimHash(text string) uint64 {
	var counts [64]int

	for _, token := range lexical.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if sum&(1<<uint(bit)) != 0 {
				counts[bit]++
			} else {
				counts[bit]--
			}
		}
	}

	var fingerprint uint64
	for bit := 0; bit < 64; bit++ {
		if counts[bit] > 0 {
			fingerprint |= 1 << uint(bit)
		}
	}
	return fingerprint
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// NearDuplicate reports whether two fingerprints are within the given
// Hamming distance. A threshold of 3 catches typo-level edits on
// paragraph-sized texts.
func NearDuplicate(a, b uint64, threshold int) bool {
	return HammingDistance(a, b) <= threshold
}
