package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/audit"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/ledger"
	"quiz-attempt-service/internal/netpolicy"
	"quiz-attempt-service/internal/ticket"
)

var errStoreDown = errors.New("pg: connection lost")

type failingQuizRepo struct{}

func (failingQuizRepo) GetQuiz(context.Context, string) (domain.Quiz, error) {
	return domain.Quiz{}, errStoreDown
}

func (failingQuizRepo) ListQuizzes(context.Context) ([]domain.Quiz, error) {
	return nil, errStoreDown
}

// A quiz-store outage must surface as the raw error, never as not-found:
// the transport maps unknown errors to 500 and logs them, while a 404 would
// tell the student the quiz does not exist.
func TestStoreFailureIsNotMaskedAsNotFound(t *testing.T) {
	ctx := context.Background()
	service := app.NewService(
		failingQuizRepo{},
		memory.NewResultRepository(),
		ledger.NewCachedStore(memory.NewLedger()),
		ticket.NewIssuerWithClock(testSecret, 10*time.Minute, func() time.Time { return baseTime }),
		netpolicy.NewMatcher("", nil),
		audit.NewRecorder(nil),
		app.Options{ClockSkew: time.Minute},
	).WithClock(func() time.Time { return baseTime })

	if _, err := service.Launch(ctx, app.LaunchRequest{QuizID: "quiz-1", StudentID: "s1"}); !errors.Is(err, errStoreDown) {
		t.Fatalf("Launch: expected store error to pass through, got %v", err)
	}

	if _, err := service.StartAttempt(ctx, launchClaims("quiz-1", "s1"), "", ""); !errors.Is(err, errStoreDown) {
		t.Fatalf("StartAttempt: expected store error to pass through, got %v", err)
	}

	if _, err := service.SubmitResult(ctx, app.Submission{
		QuizID:    "quiz-1",
		StudentID: "s1",
		Answers:   map[string]int{"q1": 0},
	}); !errors.Is(err, errStoreDown) {
		t.Fatalf("SubmitResult: expected store error to pass through, got %v", err)
	}

	if _, err := service.EligibleQuizzes(ctx, "s1"); !errors.Is(err, errStoreDown) {
		t.Fatalf("EligibleQuizzes: expected store error to pass through, got %v", err)
	}
}

func TestMissingQuizStillMapsToNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})

	if _, err := f.service.Launch(ctx, app.LaunchRequest{QuizID: "nope", StudentID: "s1"}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}
