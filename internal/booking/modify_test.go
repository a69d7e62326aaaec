package booking

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/courtwallet/internal/apperror"
)

func TestEditWithinGraceSettlesDifference(t *testing.T) {
	f := newFixture(t, 400000)
	ctx := context.Background()
	r := f.book(t, at(0, 10), at(0, 11))

	f.clock.Advance(3 * time.Minute)
	res, err := f.svc.Edit(ctx, f.member, r.ID, at(0, 12), at(0, 14))
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !res.Delta.Equal(dec(150000)) || !res.Fee.IsZero() {
		t.Fatalf("unexpected delta %s fee %s", res.Delta, res.Fee)
	}
	if !res.Reservation.StartTime.Equal(at(0, 12)) || !res.Reservation.TotalPrice.Equal(dec(300000)) {
		t.Fatalf("reservation not moved: %+v", res.Reservation)
	}
	if !res.Balance.Equal(dec(100000)) {
		t.Fatalf("expected balance 100000, got %s", res.Balance)
	}

	res, err = f.svc.Edit(ctx, f.member, r.ID, at(0, 12), at(0, 13))
	if err != nil {
		t.Fatalf("edit shorter: %v", err)
	}
	if !res.Delta.Equal(dec(-150000)) || !res.Balance.Equal(dec(250000)) {
		t.Fatalf("expected refund of the difference, got delta %s balance %s", res.Delta, res.Balance)
	}
	if e := f.entries(t, f.memberID)[0]; e.Kind != "refund" || !e.Amount.Equal(dec(150000)) {
		t.Fatalf("unexpected refund entry %+v", e)
	}
	f.assertLedgerConsistent(t, f.memberID)
}

func TestEditRejections(t *testing.T) {
	f := newFixture(t, 400000)
	ctx := context.Background()
	r := f.book(t, at(0, 10), at(0, 11))
	f.book(t, at(0, 14), at(0, 15))

	_, err := f.svc.Edit(ctx, f.member, r.ID, at(0, 14).Add(30*time.Minute), at(0, 15).Add(30*time.Minute))
	expectKind(t, err, apperror.SlotConflict)

	_, err = f.svc.Edit(ctx, f.member, r.ID, at(0, 16), at(0, 21))
	expectKind(t, err, apperror.InsufficientBalance)

	f.clock.Advance(5*time.Minute + time.Second)
	_, err = f.svc.Edit(ctx, f.member, r.ID, at(0, 12), at(0, 13))
	expectKind(t, err, apperror.EditWindowExpired)

	if got := f.reservation(t, r.ID); !got.StartTime.Equal(at(0, 10)) {
		t.Fatalf("rejected edits must not move the reservation")
	}
	f.assertLedgerConsistent(t, f.memberID)
}

func TestEditHoldRetimesWithoutPayment(t *testing.T) {
	f := newFixture(t, 400000)
	hold, err := f.svc.Hold(context.Background(), f.member, f.input(at(0, 10), at(0, 11)))
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	res, err := f.svc.Edit(context.Background(), f.member, hold.Reservation.ID, at(0, 10), at(0, 12))
	if err != nil {
		t.Fatalf("edit hold: %v", err)
	}
	if res.Reservation.Status != string(StatusHolding) || !res.Reservation.TotalPrice.Equal(dec(300000)) {
		t.Fatalf("unexpected hold after edit %+v", res.Reservation)
	}
	if len(f.entries(t, f.memberID)) != 1 || !res.Balance.Equal(dec(400000)) {
		t.Fatalf("editing a hold must not touch the ledger")
	}
}

func TestEditLapsedHoldCancels(t *testing.T) {
	longGrace := DefaultPolicy()
	longGrace.EditGrace = 10 * time.Minute

	tests := []struct {
		name    string
		opts    []Option
		advance time.Duration
	}{
		{"at expiry instant", nil, 5 * time.Minute},
		{"grace longer than hold", []Option{WithPolicy(longGrace)}, 7 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 400000, tt.opts...)
			ctx := context.Background()
			hold, err := f.svc.Hold(ctx, f.member, f.input(at(0, 10), at(0, 11)))
			if err != nil {
				t.Fatalf("hold: %v", err)
			}
			f.clock.Advance(tt.advance)

			_, err = f.svc.Edit(ctx, f.member, hold.Reservation.ID, at(0, 12), at(0, 13))
			expectKind(t, err, apperror.HoldExpired)

			got := f.reservation(t, hold.Reservation.ID)
			if got.Status != string(StatusCancelled) || got.HoldExpiresAt.Valid {
				t.Fatalf("expected lapsed hold cancelled, got status %s", got.Status)
			}
			if !got.StartTime.Equal(at(0, 10)) {
				t.Fatalf("lapsed hold must not be re-timed, start %s", got.StartTime)
			}
			if len(f.entries(t, f.memberID)) != 1 {
				t.Fatalf("lapsed hold must not touch the ledger")
			}
			if _, err := f.svc.Create(ctx, f.member, f.input(at(0, 12), at(0, 13))); err != nil {
				t.Fatalf("target slot should stay free: %v", err)
			}
		})
	}
}

func TestRescheduleChargesFeeAndDifference(t *testing.T) {
	f := newFixture(t, 600000)
	ctx := context.Background()
	r := f.book(t, at(3, 10), at(3, 11))
	f.clock.Advance(time.Hour)

	res, err := f.svc.Reschedule(ctx, f.member, r.ID, at(4, 10), at(4, 12))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !res.Delta.Equal(dec(150000)) || !res.Fee.Equal(dec(15000)) {
		t.Fatalf("unexpected delta %s fee %s", res.Delta, res.Fee)
	}
	if !res.Balance.Equal(dec(285000)) {
		t.Fatalf("expected balance 285000, got %s", res.Balance)
	}
	if !res.PreviousStart.Equal(at(3, 10)) {
		t.Fatalf("unexpected previous start %s", res.PreviousStart)
	}

	entries := f.entries(t, f.memberID)
	if entries[0].Kind != "fee" || !entries[0].Amount.Equal(dec(-15000)) {
		t.Fatalf("expected fee posted last, got %+v", entries[0])
	}
	if entries[1].Kind != "payment" || !entries[1].Amount.Equal(dec(-150000)) {
		t.Fatalf("expected price difference before fee, got %+v", entries[1])
	}

	res, err = f.svc.Reschedule(ctx, f.member, r.ID, at(5, 10), at(5, 11))
	if err != nil {
		t.Fatalf("reschedule shorter: %v", err)
	}
	if !res.Delta.Equal(dec(-150000)) || !res.Fee.Equal(dec(30000)) || !res.Balance.Equal(dec(405000)) {
		t.Fatalf("unexpected shorter reschedule delta %s fee %s balance %s", res.Delta, res.Fee, res.Balance)
	}
	f.assertLedgerConsistent(t, f.memberID)
}

func TestRescheduleRejections(t *testing.T) {
	f := newFixture(t, 600000)
	ctx := context.Background()

	soon := f.book(t, at(0, 20), at(0, 21))
	_, err := f.svc.Reschedule(ctx, f.member, soon.ID, at(3, 10), at(3, 11))
	expectKind(t, err, apperror.RescheduleTooSoon)

	hold, err := f.svc.Hold(ctx, f.member, f.input(at(3, 10), at(3, 11)))
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	_, err = f.svc.Reschedule(ctx, f.member, hold.Reservation.ID, at(4, 10), at(4, 11))
	expectKind(t, err, apperror.InvalidState)

	_, otherActor := f.addMember(t, "member-2", 0)
	later := f.book(t, at(5, 10), at(5, 11))
	_, err = f.svc.Reschedule(ctx, otherActor, later.ID, at(6, 10), at(6, 11))
	expectKind(t, err, apperror.Forbidden)
}
