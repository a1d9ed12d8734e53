package services

import (
	"fmt"
	"hash/fnv"
)

// hashEdgeLen is how many characters from each end of the text feed the
// content hash.
const hashEdgeLen = 200

// ContentHash computes the cheap fingerprint used to decide skip-vs-
// reindex: overall length plus the first and last 200 characters.
// Intentionally not cryptographic; hashing megabytes of text on every
// indexing request would cost more than it saves.
//
// Known limitation: an edit confined to the middle of a long text that
// does not change its length is not detected. Callers that need certainty
// can force a re-index by removing the source's metadata record.
func ContentHash(text string) string {
	head := text
	if len(head) > hashEdgeLen {
		head = head[:hashEdgeLen]
	}
	tail := text
	if len(tail) > hashEdgeLen {
		tail = tail[len(tail)-hashEdgeLen:]
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s", len(text), head, tail)
	return fmt.Sprintf("%016x", h.Sum64())
}
