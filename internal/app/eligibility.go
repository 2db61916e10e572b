package app

import (
	"context"

	"quiz-attempt-service/internal/domain"
)

// EligibleQuizzes returns the quizzes the student may currently attempt:
// assigned (or public), inside the time window, and not yet submitted.
func (s *Service) EligibleQuizzes(ctx context.Context, studentID string) ([]domain.QuizSummary, error) {
	quizzes, submitted, err := s.loadForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	eligible := make([]domain.QuizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		if !quiz.AssignedTo(studentID) || !s.windowOpen(quiz, now) || submitted[quiz.ID] {
			continue
		}
		eligible = append(eligible, domain.Summary(quiz))
	}
	return eligible, nil
}

// ExplainAvailability is the diagnostic variant: for every quiz it reports
// each eligibility reason independently, so an operator can see all failing
// conditions at once rather than the first one encountered.
func (s *Service) ExplainAvailability(ctx context.Context, studentID string) ([]domain.Availability, error) {
	quizzes, submitted, err := s.loadForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := make([]domain.Availability, 0, len(quizzes))
	for _, quiz := range quizzes {
		entry := domain.Availability{
			QuizID:       quiz.ID,
			Title:        quiz.Title,
			Assigned:     quiz.AssignedTo(studentID),
			WindowOpen:   s.windowOpen(quiz, now),
			NotSubmitted: !submitted[quiz.ID],
		}
		entry.Eligible = entry.Assigned && entry.WindowOpen && entry.NotSubmitted
		report = append(report, entry)
	}
	return report, nil
}

func (s *Service) loadForStudent(ctx context.Context, studentID string) ([]domain.Quiz, map[string]bool, error) {
	quizzes, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	submitted := make(map[string]bool, len(results))
	for _, r := range results {
		submitted[r.QuizID] = true
	}
	return quizzes, submitted, nil
}
