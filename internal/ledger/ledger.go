// Package ledger owns wallet balances. Every balance movement is an
// append-only entry; the cached balance on the member row always equals the
// sum of completed entries.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/courtwallet/internal/apperror"
	appdb "github.com/codr1/courtwallet/internal/db"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/email"
	"github.com/codr1/courtwallet/internal/events"
)

type Kind string

const (
	Deposit Kind = "deposit"
	Payment Kind = "payment"
	Refund  Kind = "refund"
	Fee     Kind = "fee"
)

type Status string

const (
	Pending   Status = "pending"
	Completed Status = "completed"
	Rejected  Status = "rejected"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Entry is a ledger movement to append. Zero ReservationID and BatchID mean
// the entry is not tied to a reservation.
type Entry struct {
	MemberID      int64
	Amount        decimal.Decimal
	Kind          Kind
	Status        Status
	Description   string
	ReservationID int64
	BatchID       int64
}

// Posting is a stored entry with the member's balance after it was applied.
type Posting struct {
	Entry   dbgen.LedgerEntry
	Balance decimal.Decimal
}

type Page struct {
	Entries  []dbgen.LedgerEntry
	Total    int64
	Page     int
	PageSize int
}

type Verification struct {
	MemberID   int64
	Cached     decimal.Decimal
	Computed   decimal.Decimal
	Consistent bool
}

type Ledger struct {
	db    *appdb.DB
	clock Clock
	sink  events.Sink
}

type Option func(*Ledger)

func WithClock(c Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

func WithSink(s events.Sink) Option {
	return func(l *Ledger) {
		if s != nil {
			l.sink = s
		}
	}
}

func New(database *appdb.DB, opts ...Option) *Ledger {
	l := &Ledger{db: database, clock: SystemClock{}, sink: events.Discard}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) now() time.Time {
	return l.clock.Now().UTC()
}

// LoadAccount fetches a member through q.
func LoadAccount(ctx context.Context, q *dbgen.Queries, memberID int64) (dbgen.Member, error) {
	member, err := q.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Member{}, apperror.New(apperror.AccountNotFound, "account %d not found", memberID)
		}
		return dbgen.Member{}, fmt.Errorf("load account %d: %w", memberID, err)
	}
	return member, nil
}

func validateEntry(e Entry) error {
	if e.Amount.IsZero() {
		return apperror.New(apperror.InvalidInput, "ledger amount must not be zero")
	}
	switch e.Kind {
	case Deposit, Refund:
		if e.Amount.IsNegative() {
			return apperror.New(apperror.InvalidInput, "%s amount must be positive", e.Kind)
		}
	case Payment, Fee:
		if e.Amount.IsPositive() {
			return apperror.New(apperror.InvalidInput, "%s amount must be negative", e.Kind)
		}
	default:
		return apperror.New(apperror.InvalidInput, "unknown ledger entry kind %q", e.Kind)
	}
	switch e.Status {
	case Pending, Completed:
	default:
		return apperror.New(apperror.InvalidInput, "entries are appended as pending or completed, got %q", e.Status)
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// AppendEntry records e through q, which must be bound to the caller's
// transaction. A completed entry moves the cached balance in the same
// transaction and fails with InsufficientBalance if the balance would go
// negative.
func (l *Ledger) AppendEntry(ctx context.Context, q *dbgen.Queries, e Entry) (Posting, error) {
	e.Amount = Round(e.Amount)
	if err := validateEntry(e); err != nil {
		return Posting{}, err
	}

	member, err := LoadAccount(ctx, q, e.MemberID)
	if err != nil {
		return Posting{}, err
	}

	now := l.now()
	balance := member.WalletBalance
	settledAt := sql.NullTime{}
	if e.Status == Completed {
		balance, err = applyToBalance(ctx, q, member, e.Amount)
		if err != nil {
			return Posting{}, err
		}
		settledAt = sql.NullTime{Time: now, Valid: true}
	}

	id, err := q.CreateLedgerEntry(ctx, dbgen.CreateLedgerEntryParams{
		MemberID:      e.MemberID,
		Amount:        e.Amount,
		Kind:          string(e.Kind),
		Status:        string(e.Status),
		Description:   e.Description,
		ReservationID: nullID(e.ReservationID),
		BatchID:       nullID(e.BatchID),
		CreatedAt:     now,
		SettledAt:     settledAt,
	})
	if err != nil {
		return Posting{}, fmt.Errorf("append ledger entry: %w", err)
	}
	entry, err := q.GetLedgerEntry(ctx, id)
	if err != nil {
		return Posting{}, fmt.Errorf("reload ledger entry %d: %w", id, err)
	}
	return Posting{Entry: entry, Balance: balance}, nil
}

func applyToBalance(ctx context.Context, q *dbgen.Queries, member dbgen.Member, amount decimal.Decimal) (decimal.Decimal, error) {
	next := Round(member.WalletBalance.Add(amount))
	if next.IsNegative() {
		return decimal.Zero, apperror.New(apperror.InsufficientBalance,
			"insufficient balance: have %s, need %s", member.WalletBalance.StringFixed(Scale), amount.Neg().StringFixed(Scale))
	}
	if _, err := q.UpdateMemberBalance(ctx, dbgen.UpdateMemberBalanceParams{
		WalletBalance: next,
		ID:            member.ID,
	}); err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}
	return next, nil
}

// RecordSpend adds amount to the member's total spend and raises the tier
// when a threshold is crossed. The tier never goes down.
func (l *Ledger) RecordSpend(ctx context.Context, q *dbgen.Queries, memberID int64, amount decimal.Decimal) (Tier, error) {
	if amount.IsNegative() {
		return "", apperror.New(apperror.InvalidInput, "spend must not be negative")
	}
	member, err := LoadAccount(ctx, q, memberID)
	if err != nil {
		return "", err
	}
	current, err := ParseTier(member.Tier)
	if err != nil {
		current = Standard
	}
	total := Round(member.TotalSpent.Add(amount))
	tier := MaxTier(current, TierFor(total))
	if _, err := q.UpdateMemberSpend(ctx, dbgen.UpdateMemberSpendParams{
		TotalSpent: total,
		Tier:       string(tier),
		ID:         memberID,
	}); err != nil {
		return "", fmt.Errorf("update spend: %w", err)
	}
	if tier != current {
		log.Ctx(ctx).Info().
			Int64("member_id", memberID).
			Str("from", string(current)).
			Str("to", string(tier)).
			Msg("Member tier upgraded")
	}
	return tier, nil
}

// RequestDeposit records a pending top-up awaiting external approval.
func (l *Ledger) RequestDeposit(ctx context.Context, memberID int64, amount decimal.Decimal, description string) (dbgen.LedgerEntry, error) {
	if !amount.IsPositive() {
		return dbgen.LedgerEntry{}, apperror.New(apperror.InvalidInput, "deposit amount must be positive")
	}
	if description == "" {
		description = "Wallet top-up"
	}

	var posting Posting
	err := l.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		var err error
		posting, err = l.AppendEntry(ctx, txdb.Queries, Entry{
			MemberID:    memberID,
			Amount:      amount,
			Kind:        Deposit,
			Status:      Pending,
			Description: description,
		})
		return err
	})
	if err != nil {
		return dbgen.LedgerEntry{}, err
	}

	log.Ctx(ctx).Info().
		Int64("member_id", memberID).
		Int64("entry_id", posting.Entry.ID).
		Str("amount", posting.Entry.Amount.StringFixed(Scale)).
		Msg("Deposit requested")
	return posting.Entry, nil
}

// SettlePending completes or rejects a pending entry. Approval applies the
// amount to the balance; rejection leaves it untouched. Settling an entry
// twice fails with NotPending.
func (l *Ledger) SettlePending(ctx context.Context, entryID int64, approved bool) (Posting, error) {
	status := Rejected
	if approved {
		status = Completed
	}

	var posting Posting
	err := l.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		entry, err := q.GetLedgerEntry(ctx, entryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.New(apperror.EntryNotFound, "ledger entry %d not found", entryID)
			}
			return fmt.Errorf("load ledger entry %d: %w", entryID, err)
		}
		if Status(entry.Status) != Pending {
			return apperror.New(apperror.NotPending, "transaction is not pending")
		}

		member, err := LoadAccount(ctx, q, entry.MemberID)
		if err != nil {
			return err
		}

		rows, err := q.SettleLedgerEntry(ctx, dbgen.SettleLedgerEntryParams{
			Status:    string(status),
			SettledAt: sql.NullTime{Time: l.now(), Valid: true},
			ID:        entryID,
		})
		if err != nil {
			return fmt.Errorf("settle ledger entry %d: %w", entryID, err)
		}
		if rows == 0 {
			return apperror.New(apperror.NotPending, "transaction is not pending")
		}

		balance := member.WalletBalance
		if approved {
			balance, err = applyToBalance(ctx, q, member, entry.Amount)
			if err != nil {
				return err
			}
		}

		entry, err = q.GetLedgerEntry(ctx, entryID)
		if err != nil {
			return fmt.Errorf("reload ledger entry %d: %w", entryID, err)
		}
		posting = Posting{Entry: entry, Balance: balance}
		return nil
	})
	if err != nil {
		return Posting{}, err
	}

	log.Ctx(ctx).Info().
		Int64("entry_id", entryID).
		Int64("member_id", posting.Entry.MemberID).
		Str("status", string(status)).
		Msg("Pending entry settled")

	amount := posting.Entry.Amount.StringFixed(Scale)
	if approved {
		l.sink.BalanceChanged(ctx, events.BalanceChange{
			AccountID: posting.Entry.MemberID,
			Balance:   posting.Balance,
			Reason:    "deposit.approved",
		})
	}
	msg := email.BuildDepositSettled(amount, approved)
	l.sink.Message(ctx, events.Notice{AccountID: posting.Entry.MemberID, Subject: msg.Subject, Body: msg.Body})
	return posting, nil
}

// Entries returns the member's history, newest first. page is 1-based.
func (l *Ledger) Entries(ctx context.Context, memberID int64, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q := l.db.Queries
	if _, err := LoadAccount(ctx, q, memberID); err != nil {
		return Page{}, err
	}
	total, err := q.CountLedgerEntriesByMember(ctx, memberID)
	if err != nil {
		return Page{}, fmt.Errorf("count ledger entries: %w", err)
	}
	entries, err := q.ListLedgerEntriesByMember(ctx, dbgen.ListLedgerEntriesByMemberParams{
		MemberID: memberID,
		Limit:    int64(pageSize),
		Offset:   int64((page - 1) * pageSize),
	})
	if err != nil {
		return Page{}, fmt.Errorf("list ledger entries: %w", err)
	}
	return Page{Entries: entries, Total: total, Page: page, PageSize: pageSize}, nil
}

func (l *Ledger) PendingDeposits(ctx context.Context) ([]dbgen.LedgerEntry, error) {
	entries, err := l.db.Queries.ListPendingLedgerEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending entries: %w", err)
	}
	return entries, nil
}

func (l *Ledger) Balance(ctx context.Context, memberID int64) (decimal.Decimal, error) {
	member, err := LoadAccount(ctx, l.db.Queries, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	return member.WalletBalance, nil
}

// VerifyBalance recomputes the balance from completed entries and compares
// it with the cached value.
func (l *Ledger) VerifyBalance(ctx context.Context, memberID int64) (Verification, error) {
	q := l.db.Queries
	member, err := LoadAccount(ctx, q, memberID)
	if err != nil {
		return Verification{}, err
	}
	amounts, err := q.ListCompletedAmountsByMember(ctx, memberID)
	if err != nil {
		return Verification{}, fmt.Errorf("list completed amounts: %w", err)
	}
	computed := decimal.Sum(decimal.Zero, amounts...)
	v := Verification{
		MemberID: memberID,
		Cached:   member.WalletBalance,
		Computed: computed,
	}
	v.Consistent = v.Cached.Equal(v.Computed)
	if !v.Consistent {
		log.Ctx(ctx).Error().
			Int64("member_id", memberID).
			Str("cached", v.Cached.String()).
			Str("computed", v.Computed.String()).
			Msg("Wallet balance drift detected")
	}
	return v, nil
}
