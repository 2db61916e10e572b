package app

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"quiz-attempt-service/internal/audit"
	"quiz-attempt-service/internal/domain"
)

// Submission is a student's completed answer set. Answers is sparse: a
// question the student skipped simply has no entry.
type Submission struct {
	QuizID           string
	StudentID        string
	Answers          map[string]int
	TimeSpentSeconds int
	RemoteAddr       string
	UserAgent        string
}

// SubmitResult grades the submission and persists it exactly once. Two
// concurrent submissions for the same (quiz, student) produce exactly one
// stored result; the loser receives *domain.DuplicateSubmissionError with
// the winner's id and timestamp. The explicit existence check is a fast
// path; the store's uniqueness constraint is the correctness backstop.
func (s *Service) SubmitResult(ctx context.Context, sub Submission) (domain.Result, error) {
	if sub.QuizID == "" || sub.StudentID == "" || sub.Answers == nil {
		return domain.Result{}, domain.ErrValidation
	}

	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Result{}, err
		}
		return domain.Result{}, domain.ErrQuizNotFound
	}

	now := s.now()
	if !s.windowOpen(quiz, now) {
		s.audit.Denied(audit.ActionSubmit, sub.StudentID, sub.QuizID, sub.RemoteAddr, sub.UserAgent, "window_closed")
		return domain.Result{}, domain.ErrNotOpen
	}

	correct, total := grade(quiz, sub.Answers)
	result := domain.Result{
		ID:               uuid.NewString(),
		QuizID:           sub.QuizID,
		StudentID:        sub.StudentID,
		Answers:          sub.Answers,
		Score:            score(correct, total),
		CorrectCount:     correct,
		TotalCount:       total,
		TimeSpentSeconds: sub.TimeSpentSeconds,
		SubmittedAt:      now,
	}

	if existing, found, err := s.results.Find(ctx, sub.QuizID, sub.StudentID); err != nil {
		return domain.Result{}, err
	} else if found {
		s.audit.Denied(audit.ActionSubmit, sub.StudentID, sub.QuizID, sub.RemoteAddr, sub.UserAgent, "duplicate_submission")
		return domain.Result{}, &domain.DuplicateSubmissionError{ExistingID: existing.ID, SubmittedAt: existing.SubmittedAt}
	}

	if err := s.results.Create(ctx, result); err != nil {
		var dup *domain.DuplicateSubmissionError
		if errors.As(err, &dup) {
			s.audit.Denied(audit.ActionSubmit, sub.StudentID, sub.QuizID, sub.RemoteAddr, sub.UserAgent, "duplicate_submission")
			return domain.Result{}, dup
		}
		return domain.Result{}, err
	}

	s.audit.Allowed(audit.ActionSubmit, sub.StudentID, sub.QuizID, sub.RemoteAddr, sub.UserAgent)
	return result, nil
}

func grade(quiz domain.Quiz, answers map[string]int) (correct, total int) {
	total = len(quiz.Questions)
	for _, q := range quiz.Questions {
		if chosen, ok := answers[q.ID]; ok && chosen == q.CorrectIndex {
			correct++
		}
	}
	return correct, total
}

// score rounds to the nearest whole percentage; an empty quiz scores zero.
func score(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
