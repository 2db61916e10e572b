package ledger

import (
	"context"
	"testing"
	"time"

	"quiz-attempt-service/internal/domain"
)

// countingStore counts Consume calls so tests can observe the cache fast path.
type countingStore struct {
	consumed map[string]time.Time
	calls    int
}

func newCountingStore() *countingStore {
	return &countingStore{consumed: make(map[string]time.Time)}
}

func (s *countingStore) Consume(_ context.Context, entry Entry) error {
	s.calls++
	if _, ok := s.consumed[entry.TicketID]; ok {
		return domain.ErrTicketAlreadyUsed
	}
	s.consumed[entry.TicketID] = entry.ExpiresAt
	return nil
}

func (s *countingStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for id, expiry := range s.consumed {
		if !expiry.After(now) {
			delete(s.consumed, id)
			removed++
		}
	}
	return removed, nil
}

func TestCachedStoreShortCircuitsRepeats(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	store := NewCachedStore(inner)

	entry := Entry{TicketID: "t1", QuizID: "quiz-1", StudentID: "s1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Consume(ctx, entry); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := store.Consume(ctx, entry); err != domain.ErrTicketAlreadyUsed {
		t.Fatalf("expected ErrTicketAlreadyUsed, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected the repeat to be served from the cache, store calls=%d", inner.calls)
	}
}

func TestCachedStoreIsNotAuthoritative(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	entry := Entry{TicketID: "t1", ExpiresAt: time.Now().Add(time.Hour)}

	// Simulate another process having consumed the ticket already.
	if err := inner.Consume(ctx, entry); err != nil {
		t.Fatalf("seed consume: %v", err)
	}

	store := NewCachedStore(inner)
	if err := store.Consume(ctx, entry); err != domain.ErrTicketAlreadyUsed {
		t.Fatalf("cold cache must still fall through to the store, got %v", err)
	}
}

func TestCachedStorePrunesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()

	current := time.Now()
	store := NewCachedStoreWithClock(inner, func() time.Time { return current })

	entry := Entry{TicketID: "t1", ExpiresAt: current.Add(time.Minute)}
	if err := store.Consume(ctx, entry); err != nil {
		t.Fatalf("consume: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := store.DeleteExpired(ctx, current); err != nil {
		t.Fatalf("delete expired: %v", err)
	}

	store.mu.Lock()
	_, cached := store.seen["t1"]
	store.mu.Unlock()
	if cached {
		t.Fatal("expected expired entry to be pruned from the cache")
	}
}
