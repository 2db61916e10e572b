package app

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"quiz-attempt-service/internal/audit"
	"quiz-attempt-service/internal/domain"
)

// LaunchRequest is the first half of starting an attempt.
type LaunchRequest struct {
	QuizID     string
	StudentID  string
	AccessCode string
	RemoteAddr string
	UserAgent  string
}

// Launch verifies the access gates in order (existence, time window, access
// code, network policy) and on success mints a launch ticket. The quiz
// content itself is not disclosed here. Every outcome, allowed or denied,
// is recorded as an audit event.
func (s *Service) Launch(ctx context.Context, req LaunchRequest) (string, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		// Only a genuine miss is the client's problem; a store failure
		// must surface as a server error, not a 404.
		if !errors.Is(err, domain.ErrQuizNotFound) {
			return "", err
		}
		s.deny(req, "quiz_not_found")
		return "", domain.ErrQuizNotFound
	}

	if !s.windowOpen(quiz, s.now()) {
		s.deny(req, "window_closed")
		return "", domain.ErrNotOpen
	}

	if quiz.AccessCodeHash != "" {
		if req.AccessCode == "" {
			s.deny(req, "access_code_required")
			return "", domain.ErrAccessCodeRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(quiz.AccessCodeHash), []byte(req.AccessCode)); err != nil {
			s.deny(req, "access_code_invalid:"+codePrefix(req.AccessCode))
			return "", domain.ErrAccessCodeInvalid
		}
	}

	if !s.matcher.Allowed(req.RemoteAddr, quiz.AllowedNetworks) {
		s.deny(req, "network_not_allowed")
		return "", domain.ErrNetworkNotAllowed
	}

	signed, _, err := s.issuer.Issue(req.StudentID, req.QuizID)
	if err != nil {
		return "", err
	}
	s.audit.Allowed(audit.ActionLaunch, req.StudentID, req.QuizID, req.RemoteAddr, req.UserAgent)
	return signed, nil
}

func (s *Service) deny(req LaunchRequest, reason string) {
	s.audit.Denied(audit.ActionLaunch, req.StudentID, req.QuizID, req.RemoteAddr, req.UserAgent, reason)
}

// codePrefix truncates a wrong access code for diagnostics; the full code is
// never logged. Truncation is by runes so a multibyte code stays valid UTF-8.
func codePrefix(code string) string {
	runes := []rune(code)
	if len(runes) <= 2 {
		return code
	}
	return string(runes[:2]) + "…"
}
