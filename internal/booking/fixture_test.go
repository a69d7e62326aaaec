package booking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/apperror"
	appdb "github.com/codr1/courtwallet/internal/db"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/events"
	"github.com/codr1/courtwallet/internal/ledger"
	"github.com/codr1/courtwallet/internal/testutil"
)

// Monday 2030-06-03 08:00 UTC. Fixture rows are stamped with the wall clock,
// so the service clock runs ahead of them.
var baseTime = time.Date(2030, 6, 3, 8, 0, 0, 0, time.UTC)

const courtRate = 150000

type fixture struct {
	db       *appdb.DB
	svc      *Service
	ledger   *ledger.Ledger
	clock    *ManualClock
	events   *events.Recorder
	courtID  int64
	memberID int64
	member   authz.Actor
}

func newFixture(t *testing.T, balance int64, opts ...Option) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	clock := NewManualClock(baseTime)
	rec := &events.Recorder{}
	led := ledger.New(database, ledger.WithClock(clock), ledger.WithSink(rec))
	all := append([]Option{WithClock(clock), WithSink(rec)}, opts...)
	svc := New(database, led, all...)

	courtID := testutil.InsertCourt(t, database, "Court 1", courtRate, true)
	memberID := testutil.InsertMember(t, database, "member-1", "member1@test.com", decimal.NewFromInt(balance))
	return &fixture{
		db:       database,
		svc:      svc,
		ledger:   led,
		clock:    clock,
		events:   rec,
		courtID:  courtID,
		memberID: memberID,
		member:   authz.Actor{AccountID: memberID},
	}
}

func (f *fixture) addMember(t *testing.T, userID string, balance int64) (int64, authz.Actor) {
	t.Helper()
	id := testutil.InsertMember(t, f.db, userID, "", decimal.NewFromInt(balance))
	return id, authz.Actor{AccountID: id}
}

// at returns baseTime's day at hour:00 UTC, offset by days.
func at(days, hour int) time.Time {
	return time.Date(2030, 6, 3+days, hour, 0, 0, 0, time.UTC)
}

func (f *fixture) input(start, end time.Time) CreateInput {
	return CreateInput{CourtID: f.courtID, MemberID: f.memberID, Start: start, End: end}
}

func (f *fixture) book(t *testing.T, start, end time.Time) dbgen.Reservation {
	t.Helper()
	res, err := f.svc.Create(context.Background(), f.member, f.input(start, end))
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return res.Reservation
}

func (f *fixture) reservation(t *testing.T, id int64) dbgen.Reservation {
	t.Helper()
	r, err := f.db.Queries.GetReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("load reservation %d: %v", id, err)
	}
	return r
}

func (f *fixture) entries(t *testing.T, memberID int64) []dbgen.LedgerEntry {
	t.Helper()
	page, err := f.ledger.Entries(context.Background(), memberID, 1, 100)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	return page.Entries
}

func (f *fixture) balance(t *testing.T, memberID int64) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), memberID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

// assertLedgerConsistent checks balance conservation and non-negativity.
func (f *fixture) assertLedgerConsistent(t *testing.T, memberIDs ...int64) {
	t.Helper()
	for _, id := range memberIDs {
		v, err := f.ledger.VerifyBalance(context.Background(), id)
		if err != nil {
			t.Fatalf("verify balance: %v", err)
		}
		if !v.Consistent {
			t.Fatalf("member %d balance %s != ledger sum %s", id, v.Cached, v.Computed)
		}
		if v.Cached.IsNegative() {
			t.Fatalf("member %d balance is negative: %s", id, v.Cached)
		}
	}
}

// assertNoDoubleBooking checks that no two occupying reservations overlap.
func (f *fixture) assertNoDoubleBooking(t *testing.T) {
	t.Helper()
	list, err := f.db.Queries.ListReservationsInWindow(context.Background(), dbgen.ListReservationsInWindowParams{
		WindowStart: baseTime.AddDate(-1, 0, 0),
		WindowEnd:   baseTime.AddDate(1, 0, 0),
	})
	if err != nil {
		t.Fatalf("list reservations: %v", err)
	}
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			a, b := list[i], list[j]
			if a.CourtID != b.CourtID || a.Status == string(StatusCompleted) || b.Status == string(StatusCompleted) {
				continue
			}
			if Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				t.Fatalf("reservations %d and %d overlap on court %d", a.ID, b.ID, a.CourtID)
			}
		}
	}
}

func expectKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if !apperror.Is(err, kind) {
		t.Fatalf("expected %s, got %v", kind, err)
	}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
