package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/ledger"
)

// Ledger is the Postgres implementation of ledger.Store. The primary key on
// ticket_id makes Consume an atomic insert-if-absent; Postgres has no native
// row expiry, so the janitor's DeleteExpired sweep does the garbage
// collection.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Consume(ctx context.Context, entry ledger.Entry) error {
	tag, err := l.pool.Exec(ctx, `
		INSERT INTO used_tickets (ticket_id, quiz_id, student_id, remote_addr, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticket_id) DO NOTHING`,
		entry.TicketID, entry.QuizID, entry.StudentID, entry.RemoteAddr, entry.UserAgent, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("consume ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketAlreadyUsed
	}
	return nil
}

func (l *Ledger) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM used_tickets WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tickets: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
