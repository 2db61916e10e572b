package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/audit"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	pgstore "quiz-attempt-service/internal/infra/postgres"
	redisstore "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/janitor"
	"quiz-attempt-service/internal/ledger"
	"quiz-attempt-service/internal/logging"
	"quiz-attempt-service/internal/netpolicy"
	"quiz-attempt-service/internal/ticket"
	transport "quiz-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Security.SigningSecret == "" {
		return fmt.Errorf("security.signing_secret (or SIGNING_SECRET) is required")
	}

	log, err := logging.Init(cfg.Log.Dir)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizRepository(pool)
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	quizRepo := memory.NewQuizRepository(loader, quizTTL)

	var results app.ResultRepository = memory.NewResultRepository()
	if pool != nil {
		results = pgstore.NewResultRepository(pool)
	}

	// The usage ledger prefers Redis for its native key expiry; Postgres
	// works too but leans on the janitor to reap expired rows.
	var store ledger.Store
	switch {
	case redisClient != nil:
		store = redisstore.NewLedger(redisClient)
	case pool != nil:
		store = pgstore.NewLedger(pool)
	default:
		store = memory.NewLedger()
	}
	tickets := ledger.NewCachedStore(store)

	secret := []byte(cfg.Security.SigningSecret)
	ticketTTL := config.TTLDuration(cfg.Security.TicketTTL, 10*time.Minute)
	skew := config.TTLDuration(cfg.Security.ClockSkew, time.Minute)

	recorder := audit.NewRecorder(log)
	service := app.NewService(
		quizRepo,
		results,
		tickets,
		ticket.NewIssuer(secret, ticketTTL),
		netpolicy.NewMatcher(cfg.Security.LocalNetwork, log),
		recorder,
		app.Options{ClockSkew: skew, SingleUseTickets: cfg.Security.SingleUseTickets},
	)

	// A Postgres ledger is swept even with single-use off: rows written
	// while the flag was on must still be reaped after it is turned off.
	if sweepRequired(cfg.Security.SingleUseTickets, store) {
		sweeper := janitor.New(tickets, log)
		stop := sweeper.Schedule()
		defer stop()
	}

	handler := transport.NewHandler(service, ticket.NewVerifier(secret, skew), transport.NewAuthenticator(secret), recorder, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting attempt service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sweepRequired reports whether the janitor schedule should run: always for
// single-use deployments, and for any Postgres-backed ledger since Postgres
// has no native row expiry.
func sweepRequired(singleUse bool, store ledger.Store) bool {
	if singleUse {
		return true
	}
	_, pg := store.(*pgstore.Ledger)
	return pg
}

// sampleQuizzes seeds an in-memory loader for running without Postgres.
// Access code for quiz-1 is "LETMEIN".
func sampleQuizzes() map[string]domain.Quiz {
	hash, _ := bcrypt.GenerateFromPassword([]byte("LETMEIN"), bcrypt.DefaultCost)
	end := time.Now().Add(24 * time.Hour)
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:             "quiz-1",
			Title:          "Sample quiz",
			ModuleCode:     "SAMPLE",
			StartTime:      time.Now().Add(-time.Hour),
			EndTime:        &end,
			AccessCodeHash: string(hash),
			AuthorID:       "system",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "What is 2 + 2?",
					Options:      []string{"3", "4", "5"},
					CorrectIndex: 1,
				},
			},
		},
	}
}
