package billing

import (
	"crypto/sha256"
	"encoding/hex"
)

// IdempotencyKey derives the deterministic key used for every mutating
// provider call in the reconciliation path. Webhook delivery is
// at-least-once and unordered, so the key is scoped to the
// (resource, event) pair: redelivery of the same event produces the same
// key and the provider deduplicates the mutation, while a later event
// touching the same resource gets a fresh key and is applied normally.
//
// The hash keeps the key well under the provider's 255-character limit
// regardless of input length.
func IdempotencyKey(resourceID, eventID string) string {
	sum := sha256.Sum256([]byte(resourceID + "/" + eventID))
	return "reconcile_" + hex.EncodeToString(sum[:16])
}
