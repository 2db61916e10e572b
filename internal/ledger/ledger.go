// Package ledger records which launch tickets have been consumed.
//
// The durable store is the single source of truth for "ticket already used";
// consumption is an atomic insert-if-absent so two racing presentations of
// the same ticket cannot both succeed. Entries expire once their retention
// window passes, which must outlive the ticket's own validity so replay
// against a cold cache is still caught.
package ledger

import (
	"context"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
)

// Entry is a consumption record for a single ticket id. RemoteAddr and
// UserAgent are retained for forensic use only.
type Entry struct {
	TicketID   string
	QuizID     string
	StudentID  string
	RemoteAddr string
	UserAgent  string
	ExpiresAt  time.Time
}

// Store is the durable ledger. Consume inserts the entry if and only if no
// record exists for its ticket id, returning domain.ErrTicketAlreadyUsed
// otherwise. DeleteExpired is the janitor hook; stores with native expiry
// may report zero removals.
type Store interface {
	Consume(ctx context.Context, entry Entry) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CachedStore fronts a durable store with an in-process map of recently
// consumed ticket ids. The cache is purely a latency optimization: it can
// short-circuit a repeat presentation, but a miss always falls through to
// the durable store, so restarts or multiple processes never reopen the
// replay window.
type CachedStore struct {
	store Store
	now   func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewCachedStore(store Store) *CachedStore {
	return &CachedStore{store: store, now: time.Now, seen: make(map[string]time.Time)}
}

// NewCachedStoreWithClock is test-only for deterministic expiry.
func NewCachedStoreWithClock(store Store, now func() time.Time) *CachedStore {
	return &CachedStore{store: store, now: now, seen: make(map[string]time.Time)}
}

func (c *CachedStore) Consume(ctx context.Context, entry Entry) error {
	now := c.now()

	c.mu.Lock()
	if expiry, ok := c.seen[entry.TicketID]; ok && expiry.After(now) {
		c.mu.Unlock()
		return domain.ErrTicketAlreadyUsed
	}
	c.mu.Unlock()

	if err := c.store.Consume(ctx, entry); err != nil {
		return err
	}

	c.mu.Lock()
	c.pruneLocked(now)
	c.seen[entry.TicketID] = entry.ExpiresAt
	c.mu.Unlock()
	return nil
}

func (c *CachedStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	c.pruneLocked(now)
	c.mu.Unlock()
	return c.store.DeleteExpired(ctx, now)
}

func (c *CachedStore) pruneLocked(now time.Time) {
	for id, expiry := range c.seen {
		if !expiry.After(now) {
			delete(c.seen, id)
		}
	}
}
