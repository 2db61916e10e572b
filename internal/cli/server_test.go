package cli

import (
	"testing"

	"quiz-attempt-service/internal/infra/memory"
	pgstore "quiz-attempt-service/internal/infra/postgres"
)

func TestSweepRequired(t *testing.T) {
	if !sweepRequired(true, memory.NewLedger()) {
		t.Fatal("single-use deployments always need the sweep")
	}
	if sweepRequired(false, memory.NewLedger()) {
		t.Fatal("memory ledger with single-use off needs no sweep")
	}
	// Postgres rows written while single-use was on must still be reaped
	// after the flag is turned off.
	if !sweepRequired(false, pgstore.NewLedger(nil)) {
		t.Fatal("postgres ledger needs the sweep regardless of the flag")
	}
}
