package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/ticket"
)

func launchClaims(quizID, studentID string) ticket.Claims {
	return ticket.Claims{
		StudentID: studentID,
		QuizID:    quizID,
		TicketID:  "ticket-" + quizID + "-" + studentID,
		IssuedAt:  baseTime,
		ExpiresAt: baseTime.Add(10 * time.Minute),
	}
}

func TestStartAttemptStripsAnswerKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})
	f.loader.Put(openQuiz("plain"))

	quiz, err := f.service.StartAttempt(ctx, launchClaims("plain", "s1"), "192.168.1.50", "go-test")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	for _, q := range quiz.Questions {
		if q.Prompt == "" || len(q.Options) == 0 {
			t.Fatalf("expected prompt and options, got %+v", q)
		}
	}
}

func TestStartAttemptReChecksWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})

	quiz := openQuiz("closing")
	endedAt := baseTime.Add(-10 * time.Minute)
	quiz.EndTime = &endedAt
	f.loader.Put(quiz)

	// The ticket itself is still valid, but the quiz window has closed.
	if _, err := f.service.StartAttempt(ctx, launchClaims("closing", "s1"), "", ""); err != domain.ErrNotOpen {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestStartAttemptReChecksNetworkPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})

	quiz := openQuiz("lan-only")
	quiz.AllowedNetworks = []string{"192.168.1.0/24"}
	f.loader.Put(quiz)

	if _, err := f.service.StartAttempt(ctx, launchClaims("lan-only", "s1"), "10.9.8.7", ""); err != domain.ErrNetworkNotAllowed {
		t.Fatalf("expected ErrNetworkNotAllowed, got %v", err)
	}
}

func TestStartAttemptSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute, SingleUseTickets: true})
	f.loader.Put(openQuiz("plain"))

	claims := launchClaims("plain", "s1")
	if _, err := f.service.StartAttempt(ctx, claims, "", ""); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := f.service.StartAttempt(ctx, claims, "", ""); err != domain.ErrTicketAlreadyUsed {
		t.Fatalf("expected ErrTicketAlreadyUsed, got %v", err)
	}
}

func TestStartAttemptRePresentationAllowedWhenSingleUseOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})
	f.loader.Put(openQuiz("plain"))

	claims := launchClaims("plain", "s1")
	for i := 0; i < 2; i++ {
		if _, err := f.service.StartAttempt(ctx, claims, "", ""); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
	}
}
