package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

// uniqueViolation is the Postgres error code raised when an insert collides
// with a unique constraint.
const uniqueViolation = "23505"

// ResultRepository persists attempt results. Create is a plain insert; the
// UNIQUE (quiz_id, student_id) constraint is the serialization point that
// guarantees exactly one result per pair even under concurrent submissions.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func (r *ResultRepository) Find(ctx context.Context, quizID, studentID string) (domain.Result, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, quiz_id, student_id, answers, score, correct_count, total_count, time_spent_seconds, submitted_at
		FROM results WHERE quiz_id=$1 AND student_id=$2`, quizID, studentID)
	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, false, nil
		}
		return domain.Result{}, false, fmt.Errorf("find result: %w", err)
	}
	return result, true, nil
}

func (r *ResultRepository) Create(ctx context.Context, result domain.Result) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO results (id, quiz_id, student_id, answers, score, correct_count, total_count, time_spent_seconds, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.QuizID, result.StudentID, answers,
		result.Score, result.CorrectCount, result.TotalCount, result.TimeSpentSeconds, result.SubmittedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			existing, found, findErr := r.Find(ctx, result.QuizID, result.StudentID)
			if findErr == nil && found {
				return &domain.DuplicateSubmissionError{ExistingID: existing.ID, SubmittedAt: existing.SubmittedAt}
			}
			return &domain.DuplicateSubmissionError{}
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *ResultRepository) ListByStudent(ctx context.Context, studentID string) ([]domain.Result, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quiz_id, student_id, answers, score, correct_count, total_count, time_spent_seconds, submitted_at
		FROM results WHERE student_id=$1`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (domain.Result, error) {
	var (
		result domain.Result
		raw    []byte
	)
	err := row.Scan(&result.ID, &result.QuizID, &result.StudentID, &raw,
		&result.Score, &result.CorrectCount, &result.TotalCount, &result.TimeSpentSeconds, &result.SubmittedAt)
	if err != nil {
		return domain.Result{}, err
	}
	if err := json.Unmarshal(raw, &result.Answers); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}
