package app

import (
	"context"
	"time"

	"quiz-attempt-service/internal/audit"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/ledger"
	"quiz-attempt-service/internal/netpolicy"
	"quiz-attempt-service/internal/ticket"
)

// ledgerRetention is how long a consumption record outlives its ticket's own
// expiry, so replay after a process restart is still caught.
const ledgerRetention = time.Hour

// QuizRepository loads authored quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// ResultRepository persists attempt results. Create must be insert-if-absent
// on (quizID, studentID) and return *domain.DuplicateSubmissionError when a
// result already exists.
type ResultRepository interface {
	Find(ctx context.Context, quizID, studentID string) (domain.Result, bool, error)
	Create(ctx context.Context, result domain.Result) error
	ListByStudent(ctx context.Context, studentID string) ([]domain.Result, error)
}

// Service implements the quiz access-control use cases: eligibility, launch,
// attempt start and exactly-once submission.
type Service struct {
	quizzes QuizRepository
	results ResultRepository
	tickets ledger.Store
	issuer  *ticket.Issuer
	matcher *netpolicy.Matcher
	audit   *audit.Recorder

	skew      time.Duration
	singleUse bool
	now       func() time.Time
}

// Options carries the policy knobs the service needs beyond its collaborators.
type Options struct {
	// ClockSkew is the tolerance applied to time-window checks.
	ClockSkew time.Duration
	// SingleUseTickets enables ledger consumption on attempt start. Result
	// uniqueness is a hard invariant regardless of this flag.
	SingleUseTickets bool
}

func NewService(
	quizzes QuizRepository,
	results ResultRepository,
	tickets ledger.Store,
	issuer *ticket.Issuer,
	matcher *netpolicy.Matcher,
	recorder *audit.Recorder,
	opts Options,
) *Service {
	if recorder == nil {
		recorder = audit.NewRecorder(nil)
	}
	if matcher == nil {
		matcher = netpolicy.NewMatcher("", nil)
	}
	return &Service{
		quizzes:   quizzes,
		results:   results,
		tickets:   tickets,
		issuer:    issuer,
		matcher:   matcher,
		audit:     recorder,
		skew:      opts.ClockSkew,
		singleUse: opts.SingleUseTickets,
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic time-window checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// windowOpen applies the clock-skew tolerance on both edges of the window.
func (s *Service) windowOpen(quiz domain.Quiz, now time.Time) bool {
	if quiz.StartTime.After(now.Add(s.skew)) {
		return false
	}
	if quiz.EndTime != nil && quiz.EndTime.Before(now.Add(-s.skew)) {
		return false
	}
	return true
}
