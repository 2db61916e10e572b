package app_test

import (
	"context"
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

var (
	testSecret = []byte("test-signing-secret")
	baseTime   = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	service *app.Service
	loader  *memory.StaticQuizLoader
	results *memory.ResultRepository
	tickets ledger.Store
}

func newFixture(t *testing.T, opts app.Options) *fixture {
	t.Helper()
	loader := memory.NewStaticQuizLoader(nil)
	results := memory.NewResultRepository()
	clock := func() time.Time { return baseTime }
	tickets := ledger.NewCachedStoreWithClock(memory.NewLedgerWithClock(clock), clock)
	issuer := ticket.NewIssuerWithClock(testSecret, 10*time.Minute, clock)
	service := app.NewService(
		loader2repo(loader), results, tickets, issuer,
		netpolicy.NewMatcher("", nil), audit.NewRecorder(nil), opts,
	).WithClock(func() time.Time { return baseTime })
	return &fixture{service: service, loader: loader, results: results, tickets: tickets}
}

// loader2repo wraps a static loader so tests bypass the TTL cache.
func loader2repo(loader *memory.StaticQuizLoader) app.QuizRepository {
	return staticRepo{loader}
}

type staticRepo struct{ loader *memory.StaticQuizLoader }

func (r staticRepo) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return r.loader.LoadQuiz(ctx, quizID)
}

func (r staticRepo) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return r.loader.LoadAllQuizzes(ctx)
}

func openQuiz(id string, assigned ...string) domain.Quiz {
	end := baseTime.Add(time.Hour)
	return domain.Quiz{
		ID:                 id,
		Title:              "Quiz " + id,
		ModuleCode:         "CS101",
		StartTime:          baseTime.Add(-time.Hour),
		EndTime:            &end,
		AssignedStudentIDs: assigned,
		AuthorID:           "author-1",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "First?", Options: []string{"a", "b", "c"}, CorrectIndex: 1, Feedback: "see chapter 1"},
			{ID: "q2", Prompt: "Second?", Options: []string{"x", "y"}, CorrectIndex: 0},
		},
	}
}

func TestEligibleQuizzes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})

	public := openQuiz("public")
	assigned := openQuiz("assigned-to-x", "student-x")
	ended := openQuiz("ended")
	endedAt := baseTime.Add(-time.Minute)
	ended.EndTime = &endedAt
	future := openQuiz("future")
	future.StartTime = baseTime.Add(time.Hour)
	done := openQuiz("done")

	for _, q := range []domain.Quiz{public, assigned, ended, future, done} {
		f.loader.Put(q)
	}
	if err := f.results.Create(ctx, domain.Result{ID: "r1", QuizID: "done", StudentID: "student-y", SubmittedAt: baseTime}); err != nil {
		t.Fatalf("seed result: %v", err)
	}

	eligible, err := f.service.EligibleQuizzes(ctx, "student-y")
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	got := map[string]bool{}
	for _, q := range eligible {
		got[q.ID] = true
	}
	if !got["public"] || got["assigned-to-x"] || got["ended"] || got["future"] || got["done"] {
		t.Fatalf("unexpected eligibility set: %v", got)
	}

	// student-x sees the quiz assigned to them as well.
	eligible, err = f.service.EligibleQuizzes(ctx, "student-x")
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	got = map[string]bool{}
	for _, q := range eligible {
		got[q.ID] = true
	}
	if !got["public"] || !got["assigned-to-x"] {
		t.Fatalf("expected student-x to see both open quizzes, got %v", got)
	}
}

func TestEndTimeBoundaryUsesSkew(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})

	quiz := openQuiz("edge")
	justEnded := baseTime.Add(-30 * time.Second)
	quiz.EndTime = &justEnded
	f.loader.Put(quiz)

	eligible, err := f.service.EligibleQuizzes(ctx, "student-y")
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(eligible) != 1 {
		t.Fatalf("expected a quiz inside the skew tolerance to stay eligible, got %d", len(eligible))
	}
}

func TestExplainAvailabilityReportsAllReasons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{ClockSkew: time.Minute})

	// Both outside the window and already submitted; assigned to someone else.
	quiz := openQuiz("broken", "student-x")
	endedAt := baseTime.Add(-10 * time.Minute)
	quiz.EndTime = &endedAt
	f.loader.Put(quiz)
	if err := f.results.Create(ctx, domain.Result{ID: "r1", QuizID: "broken", StudentID: "student-y", SubmittedAt: baseTime}); err != nil {
		t.Fatalf("seed result: %v", err)
	}

	report, err := f.service.ExplainAvailability(ctx, "student-y")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if len(report) != 1 {
		t.Fatalf("expected one entry, got %d", len(report))
	}
	entry := report[0]
	if entry.Assigned || entry.WindowOpen || entry.NotSubmitted || entry.Eligible {
		t.Fatalf("expected every reason to fail independently, got %+v", entry)
	}
}
