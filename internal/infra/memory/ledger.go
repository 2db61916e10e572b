package memory

import (
	"context"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/ledger"
)

// Ledger is an in-memory implementation of ledger.Store (tests/dev). The
// mutex serializes Consume so racing presentations of the same ticket id
// resolve to exactly one success.
type Ledger struct {
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]ledger.Entry
}

func NewLedger() *Ledger {
	return &Ledger{clock: time.Now, entries: make(map[string]ledger.Entry)}
}

// NewLedgerWithClock is test-only for deterministic expiry.
func NewLedgerWithClock(clock func() time.Time) *Ledger {
	return &Ledger{clock: clock, entries: make(map[string]ledger.Entry)}
}

func (l *Ledger) Consume(_ context.Context, entry ledger.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.entries[entry.TicketID]; ok && existing.ExpiresAt.After(l.clock()) {
		return domain.ErrTicketAlreadyUsed
	}
	l.entries[entry.TicketID] = entry
	return nil
}

func (l *Ledger) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, entry := range l.entries {
		if !entry.ExpiresAt.After(now) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live entries (test helper).
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
