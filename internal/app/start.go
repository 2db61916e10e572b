package app

import (
	"context"
	"errors"

	"quiz-attempt-service/internal/audit"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/ledger"
	"quiz-attempt-service/internal/ticket"
)

// StartAttempt turns a verified launch ticket into the quiz content the
// student will answer. The time window and network policy are re-checked: a
// ticket minted minutes earlier must not outlive the quiz's open window.
// When single-use enforcement is active this is the step that consumes the
// ticket in the ledger.
func (s *Service) StartAttempt(ctx context.Context, claims ticket.Claims, remoteAddr, userAgent string) (domain.StudentQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, claims.QuizID)
	if err != nil {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			return domain.StudentQuiz{}, err
		}
		s.audit.Denied(audit.ActionStart, claims.StudentID, claims.QuizID, remoteAddr, userAgent, "quiz_not_found")
		return domain.StudentQuiz{}, domain.ErrQuizNotFound
	}

	if !s.windowOpen(quiz, s.now()) {
		s.audit.Denied(audit.ActionStart, claims.StudentID, claims.QuizID, remoteAddr, userAgent, "window_closed")
		return domain.StudentQuiz{}, domain.ErrNotOpen
	}

	if !s.matcher.Allowed(remoteAddr, quiz.AllowedNetworks) {
		s.audit.Denied(audit.ActionStart, claims.StudentID, claims.QuizID, remoteAddr, userAgent, "network_not_allowed")
		return domain.StudentQuiz{}, domain.ErrNetworkNotAllowed
	}

	if s.singleUse && s.tickets != nil {
		entry := ledger.Entry{
			TicketID:   claims.TicketID,
			QuizID:     claims.QuizID,
			StudentID:  claims.StudentID,
			RemoteAddr: remoteAddr,
			UserAgent:  userAgent,
			ExpiresAt:  claims.ExpiresAt.Add(ledgerRetention),
		}
		if err := s.tickets.Consume(ctx, entry); err != nil {
			if err == domain.ErrTicketAlreadyUsed {
				s.audit.Denied(audit.ActionStart, claims.StudentID, claims.QuizID, remoteAddr, userAgent, "ticket_already_used")
			}
			return domain.StudentQuiz{}, err
		}
	}

	s.audit.Allowed(audit.ActionStart, claims.StudentID, claims.QuizID, remoteAddr, userAgent)
	return domain.StudentView(quiz), nil
}
