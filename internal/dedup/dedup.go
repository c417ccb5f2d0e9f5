package dedup

import "context"

// Ledger guards against reprocessing a redelivered carrier event. The
// carrier redelivers on any non-2xx response, and may deliver the same
// event concurrently, so Claim must be atomic per (account, event) key.
//
// Lifecycle: Claim → work → MarkProcessed (terminal outcome) or
// Release (transient failure; the next redelivery retries).
type Ledger interface {
	// Claim returns true when this delivery should proceed. False means
	// the pair was already processed, or another delivery of the same
	// pair is in flight right now.
	Claim(ctx context.Context, accountID, eventID string) (bool, error)

	// MarkProcessed records the pair as done for the retention window
	// and drops the in-flight claim.
	MarkProcessed(ctx context.Context, accountID, eventID string) error

	// Release drops the in-flight claim without marking the pair
	// processed, so a later redelivery runs the pipeline again.
	Release(ctx context.Context, accountID, eventID string) error
}

func key(accountID, eventID string) string {
	return accountID + ":" + eventID
}
