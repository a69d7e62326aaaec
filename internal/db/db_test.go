package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gosqlite "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/codr1/courtwallet/internal/apperror"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
)

func TestBuildDSNAddsLockingParams(t *testing.T) {
	dsn := buildDSN("/tmp/app.db", 0)
	for _, want := range []string{"_fk=1", "_txlock=immediate", "_busy_timeout=5000"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
	if !strings.HasPrefix(dsn, "/tmp/app.db?") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestBuildDSNKeepsExplicitParams(t *testing.T) {
	dsn := buildDSN("file:app.db?_txlock=deferred&_busy_timeout=10", 2000)
	if strings.Count(dsn, "_txlock=") != 1 || !strings.Contains(dsn, "_txlock=deferred") {
		t.Fatalf("explicit txlock overwritten: %q", dsn)
	}
	if strings.Count(dsn, "_busy_timeout=") != 1 {
		t.Fatalf("explicit busy timeout duplicated: %q", dsn)
	}
}

func TestClassifyBusy(t *testing.T) {
	busy := gosqlite.Error{Code: gosqlite.ErrBusy}
	err := Classify(busy)
	if !apperror.Retryable(err) {
		t.Fatalf("expected busy error to be transient, got %v", err)
	}

	plain := errors.New("boom")
	if got := Classify(plain); got != plain {
		t.Fatalf("expected unclassified error to pass through")
	}

	conflict := apperror.New(apperror.SlotConflict, "taken")
	if got := Classify(conflict); !apperror.Is(got, apperror.SlotConflict) {
		t.Fatalf("expected classified error to pass through, got %v", got)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	sentinel := apperror.New(apperror.InsufficientBalance, "no funds")
	err = database.RunInTx(ctx, func(txdb *DB) error {
		if _, err := txdb.Queries.CreateCourt(ctx, dbgen.CreateCourtParams{
			Name:         "Court 1",
			PricePerHour: decimal.NewFromInt(100000),
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !apperror.Is(err, apperror.InsufficientBalance) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	courts, err := database.Queries.ListCourts(ctx)
	if err != nil {
		t.Fatalf("list courts: %v", err)
	}
	if len(courts) != 0 {
		t.Fatalf("expected rollback to discard court, found %d", len(courts))
	}
}
