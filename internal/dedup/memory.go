package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is a single-process ledger: a mutex-guarded map with
// lazy expiry. Suitable for one gateway instance; swap in the Redis
// ledger for anything multi-process.
type MemoryLedger struct {
	mu        sync.Mutex
	retention time.Duration
	inflight  map[string]struct{}
	done      map[string]time.Time // key -> processed-at
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger(retention time.Duration) *MemoryLedger {
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	return &MemoryLedger{
		retention: retention,
		inflight:  make(map[string]struct{}),
		done:      make(map[string]time.Time),
	}
}

func (l *MemoryLedger) Claim(_ context.Context, accountID, eventID string) (bool, error) {
	k := key(accountID, eventID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if at, ok := l.done[k]; ok {
		if time.Since(at) < l.retention {
			return false, nil
		}
		delete(l.done, k) // expired; the redelivery window is long past
	}
	if _, ok := l.inflight[k]; ok {
		return false, nil
	}
	l.inflight[k] = struct{}{}
	l.sweepLocked()

	return true, nil
}

func (l *MemoryLedger) MarkProcessed(_ context.Context, accountID, eventID string) error {
	k := key(accountID, eventID)

	l.mu.Lock()
	delete(l.inflight, k)
	l.done[k] = time.Now()
	l.mu.Unlock()

	return nil
}

func (l *MemoryLedger) Release(_ context.Context, accountID, eventID string) error {
	k := key(accountID, eventID)

	l.mu.Lock()
	delete(l.inflight, k)
	l.mu.Unlock()

	return nil
}

// sweepLocked drops expired processed markers so the map stays bounded
// by the retention window. Caller holds l.mu.
func (l *MemoryLedger) sweepLocked() {
	if len(l.done) < 4096 {
		return
	}
	cutoff := time.Now().Add(-l.retention)
	for k, at := range l.done {
		if at.Before(cutoff) {
			delete(l.done, k)
		}
	}
}
