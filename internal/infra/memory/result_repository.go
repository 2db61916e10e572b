package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// ResultRepository is an in-memory implementation of app.ResultRepository.
// The mutex makes Create an atomic check-and-insert, mirroring the unique
// constraint the durable stores provide.
type ResultRepository struct {
	mu      sync.RWMutex
	results map[resultKey]domain.Result
}

type resultKey struct {
	quizID    string
	studentID string
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{results: make(map[resultKey]domain.Result)}
}

func (r *ResultRepository) Find(_ context.Context, quizID, studentID string) (domain.Result, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[resultKey{quizID, studentID}]
	return result, ok, nil
}

func (r *ResultRepository) Create(_ context.Context, result domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := resultKey{result.QuizID, result.StudentID}
	if existing, ok := r.results[key]; ok {
		return &domain.DuplicateSubmissionError{ExistingID: existing.ID, SubmittedAt: existing.SubmittedAt}
	}
	r.results[key] = result
	return nil
}

func (r *ResultRepository) ListByStudent(_ context.Context, studentID string) ([]domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]domain.Result, 0)
	for key, result := range r.results {
		if key.studentID == studentID {
			results = append(results, result)
		}
	}
	return results, nil
}
