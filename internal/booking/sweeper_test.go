package booking

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/courtwallet/internal/testutil"
)

func TestSweepExpiredHolds(t *testing.T) {
	f := newFixture(t, 200000)
	ctx := context.Background()
	court2 := testutil.InsertCourt(t, f.db, "Court 2", courtRate, true)

	first, err := f.svc.Hold(ctx, f.member, f.input(at(0, 10), at(0, 11)))
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	second, err := f.svc.Hold(ctx, f.member, CreateInput{CourtID: court2, MemberID: f.memberID, Start: at(0, 10), End: at(0, 11)})
	if err != nil {
		t.Fatalf("second hold: %v", err)
	}
	f.clock.Advance(4 * time.Minute)
	fresh, err := f.svc.Hold(ctx, f.member, f.input(at(0, 12), at(0, 13)))
	if err != nil {
		t.Fatalf("fresh hold: %v", err)
	}
	f.events.Reset()

	f.clock.Advance(2 * time.Minute)
	report, err := f.svc.SweepExpiredHolds(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Scanned != 2 || report.Changed != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, id := range []int64{first.Reservation.ID, second.Reservation.ID} {
		got := f.reservation(t, id)
		if got.Status != string(StatusCancelled) || got.HoldExpiresAt.Valid {
			t.Fatalf("expected hold %d cancelled with expiry cleared, got %+v", id, got)
		}
	}
	if got := f.reservation(t, fresh.Reservation.ID); got.Status != string(StatusHolding) {
		t.Fatalf("unexpired hold must survive the sweep, got %s", got.Status)
	}

	if n := len(f.entries(t, f.memberID)); n != 1 {
		t.Fatalf("expiring holds must not touch the ledger, got %d entries", n)
	}
	if !f.balance(t, f.memberID).Equal(dec(200000)) {
		t.Fatalf("balance must be unchanged")
	}

	changes := f.events.CalendarChanges()
	if len(changes) != 1 || len(changes[0].CourtIDs) != 2 || changes[0].CourtIDs[0] != f.courtID {
		t.Fatalf("expected one calendar change naming both courts, got %+v", changes)
	}
	if notices := f.events.Notices(); len(notices) != 1 || notices[0].AccountID != f.memberID {
		t.Fatalf("expected one notice for the member, got %+v", notices)
	}

	f.events.Reset()
	report, err = f.svc.SweepExpiredHolds(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if report.Changed != 0 {
		t.Fatalf("second sweep must change nothing, got %+v", report)
	}
	if len(f.events.CalendarChanges()) != 0 {
		t.Fatalf("second sweep must not publish events")
	}
}

func TestExpireSkipsLiveHold(t *testing.T) {
	f := newFixture(t, 200000)
	hold, err := f.svc.Hold(context.Background(), f.member, f.input(at(0, 10), at(0, 11)))
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	_, expired, err := f.svc.Expire(context.Background(), hold.Reservation.ID)
	if err != nil || expired {
		t.Fatalf("live hold must not expire: expired=%v err=%v", expired, err)
	}

	f.clock.Advance(5 * time.Minute)
	r, expired, err := f.svc.Expire(context.Background(), hold.Reservation.ID)
	if err != nil || !expired || r.Status != string(StatusCancelled) {
		t.Fatalf("hold should expire at its deadline: %+v expired=%v err=%v", r, expired, err)
	}
}

func TestCompletePastReservations(t *testing.T) {
	f := newFixture(t, 500000)
	ctx := context.Background()

	done := f.book(t, at(0, 9), at(0, 10))
	upcoming := f.book(t, at(0, 12), at(0, 13))

	f.clock.Set(at(0, 11))
	report, err := f.svc.CompletePastReservations(ctx)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if report.Changed != 1 {
		t.Fatalf("expected one completion, got %+v", report)
	}
	if got := f.reservation(t, done.ID); got.Status != string(StatusCompleted) {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got := f.reservation(t, upcoming.ID); got.Status != string(StatusConfirmed) {
		t.Fatalf("upcoming reservation must stay confirmed, got %s", got.Status)
	}

	report, err = f.svc.CompletePastReservations(ctx)
	if err != nil || report.Changed != 0 {
		t.Fatalf("second run must change nothing: %+v %v", report, err)
	}
	f.assertLedgerConsistent(t, f.memberID)
}
