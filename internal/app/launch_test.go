package app_test

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/ticket"
)

func hashCode(t *testing.T, code string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func TestLaunchGateOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})

	guarded := openQuiz("guarded")
	guarded.AccessCodeHash = hashCode(t, "ABCD")
	guarded.AllowedNetworks = []string{"192.168.1.0/24"}
	f.loader.Put(guarded)

	closed := openQuiz("closed")
	endedAt := baseTime.Add(-10 * time.Minute)
	closed.EndTime = &endedAt
	f.loader.Put(closed)

	cases := []struct {
		name string
		req  app.LaunchRequest
		want error
	}{
		{"not found", app.LaunchRequest{QuizID: "missing", StudentID: "s1"}, domain.ErrQuizNotFound},
		{"window closed", app.LaunchRequest{QuizID: "closed", StudentID: "s1"}, domain.ErrNotOpen},
		{"code required", app.LaunchRequest{QuizID: "guarded", StudentID: "s1", RemoteAddr: "192.168.1.50"}, domain.ErrAccessCodeRequired},
		{"code invalid", app.LaunchRequest{QuizID: "guarded", StudentID: "s1", AccessCode: "WXYZ", RemoteAddr: "192.168.1.50"}, domain.ErrAccessCodeInvalid},
		{"network denied", app.LaunchRequest{QuizID: "guarded", StudentID: "s1", AccessCode: "ABCD", RemoteAddr: "10.0.0.7"}, domain.ErrNetworkNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.Launch(ctx, tc.req); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	raw, err := f.service.Launch(ctx, app.LaunchRequest{
		QuizID: "guarded", StudentID: "s1", AccessCode: "ABCD", RemoteAddr: "192.168.1.50:40000",
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	verifier := ticket.NewVerifier(testSecret, time.Minute)
	claims, err := verifier.Verify(raw, "guarded", "s1")
	if err != nil {
		t.Fatalf("expected a verifiable ticket, got %v", err)
	}
	if claims.QuizID != "guarded" || claims.StudentID != "s1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLaunchDoesNotDiscloseQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})
	f.loader.Put(openQuiz("plain"))

	raw, err := f.service.Launch(ctx, app.LaunchRequest{QuizID: "plain", StudentID: "s1"})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	// The launch response is just the ticket; content comes later via Start.
	if raw == "" {
		t.Fatal("expected a ticket")
	}
}
