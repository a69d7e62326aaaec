package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/courtwallet/internal/db"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// InsertCourt creates a court billed at pricePerHour.
func InsertCourt(t *testing.T, database *db.DB, name string, pricePerHour int64, active bool) int64 {
	t.Helper()

	id, err := database.Queries.CreateCourt(context.Background(), dbgen.CreateCourtParams{
		Name:         name,
		PricePerHour: decimal.NewFromInt(pricePerHour),
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert court: %v", err)
	}
	return id
}

// InsertMember creates a member and funds the wallet with a completed deposit
// so the cached balance matches the ledger.
func InsertMember(t *testing.T, database *db.DB, userID, email string, balance decimal.Decimal) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := database.Queries.CreateMember(ctx, dbgen.CreateMemberParams{
		UserID:    userID,
		FullName:  "Member " + userID,
		Email:     sql.NullString{String: email, Valid: email != ""},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert member: %v", err)
	}
	if balance.IsPositive() {
		Fund(t, database, id, balance)
	}
	return id
}

// Fund posts a completed deposit and raises the cached balance by amount.
func Fund(t *testing.T, database *db.DB, memberID int64, amount decimal.Decimal) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	member, err := database.Queries.GetMember(ctx, memberID)
	if err != nil {
		t.Fatalf("load member: %v", err)
	}
	if _, err := database.Queries.CreateLedgerEntry(ctx, dbgen.CreateLedgerEntryParams{
		MemberID:    memberID,
		Amount:      amount,
		Kind:        "deposit",
		Status:      "completed",
		Description: "test funding",
		CreatedAt:   now,
		SettledAt:   sql.NullTime{Time: now, Valid: true},
	}); err != nil {
		t.Fatalf("insert deposit: %v", err)
	}
	if _, err := database.Queries.UpdateMemberBalance(ctx, dbgen.UpdateMemberBalanceParams{
		WalletBalance: member.WalletBalance.Add(amount),
		ID:            memberID,
	}); err != nil {
		t.Fatalf("update balance: %v", err)
	}
}

// SetTier forces a member's tier, used to exercise tier-gated paths.
func SetTier(t *testing.T, database *db.DB, memberID int64, tier string) {
	t.Helper()
	ctx := context.Background()

	member, err := database.Queries.GetMember(ctx, memberID)
	if err != nil {
		t.Fatalf("load member: %v", err)
	}
	if _, err := database.Queries.UpdateMemberSpend(ctx, dbgen.UpdateMemberSpendParams{
		TotalSpent: member.TotalSpent,
		Tier:       tier,
		ID:         memberID,
	}); err != nil {
		t.Fatalf("set tier: %v", err)
	}
}
