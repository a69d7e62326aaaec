package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/apperror"
)

func TestCancelInsideCutoffIsRefused(t *testing.T) {
	f := newFixture(t, 200000)
	r := f.book(t, at(0, 11), at(0, 12))

	_, err := f.svc.Cancel(context.Background(), f.member, r.ID)
	expectKind(t, err, apperror.CancelTooLate)

	if got := f.reservation(t, r.ID); got.Status != string(StatusConfirmed) {
		t.Fatalf("refused cancel must leave reservation confirmed, got %s", got.Status)
	}
	if !f.balance(t, f.memberID).Equal(dec(50000)) {
		t.Fatalf("refused cancel must not refund, balance %s", f.balance(t, f.memberID))
	}
}

func TestCancelPartialRefund(t *testing.T) {
	f := newFixture(t, 200000)
	r := f.book(t, at(0, 18), at(0, 19))
	f.events.Reset()

	res, err := f.svc.Cancel(context.Background(), f.member, r.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Reservation.Status != string(StatusCancelled) {
		t.Fatalf("expected cancelled, got %s", res.Reservation.Status)
	}
	if res.RefundPercent != 50 || !res.Refund.Equal(dec(75000)) {
		t.Fatalf("expected 50%% refund of 75000, got %d%% %s", res.RefundPercent, res.Refund)
	}
	if !strings.Contains(res.Message, "50%") {
		t.Fatalf("expected message to state the refund percent, got %q", res.Message)
	}
	if !res.Balance.Equal(dec(125000)) {
		t.Fatalf("expected balance 125000, got %s", res.Balance)
	}

	refund := f.entries(t, f.memberID)[0]
	if refund.Kind != "refund" || !refund.Amount.Equal(dec(75000)) || refund.ReservationID.Int64 != r.ID {
		t.Fatalf("unexpected refund entry %+v", refund)
	}

	notices := f.events.Notices()
	if len(notices) != 1 || !strings.Contains(notices[0].Body, "(50%)") {
		t.Fatalf("expected a cancellation notice with the refund percent, got %+v", notices)
	}
	f.assertLedgerConsistent(t, f.memberID)
}

func TestCancelFullRefundWellAhead(t *testing.T) {
	f := newFixture(t, 200000)
	r := f.book(t, at(2, 10), at(2, 11))

	res, err := f.svc.Cancel(context.Background(), f.member, r.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.RefundPercent != 100 || !res.Balance.Equal(dec(200000)) {
		t.Fatalf("expected full refund, got %d%% balance %s", res.RefundPercent, res.Balance)
	}
	f.assertLedgerConsistent(t, f.memberID)
}

func TestPrivilegedCancelAlwaysRefundsInFull(t *testing.T) {
	f := newFixture(t, 200000)
	r := f.book(t, at(0, 9), at(0, 10))
	staff := authz.Actor{AccountID: 0, Privileged: true}

	if _, err := f.svc.Cancel(context.Background(), f.member, r.ID); !apperror.Is(err, apperror.CancelTooLate) {
		t.Fatalf("member cancel an hour out should be refused, got %v", err)
	}
	res, err := f.svc.Cancel(context.Background(), staff, r.ID)
	if err != nil {
		t.Fatalf("staff cancel: %v", err)
	}
	if res.RefundPercent != 100 || !res.Refund.Equal(dec(150000)) {
		t.Fatalf("expected full staff refund, got %d%% %s", res.RefundPercent, res.Refund)
	}
}

func TestCancelTerminalStates(t *testing.T) {
	f := newFixture(t, 500000)
	ctx := context.Background()
	_, other := f.addMember(t, "member-2", 0)

	r := f.book(t, at(2, 10), at(2, 11))
	_, err := f.svc.Cancel(ctx, other, r.ID)
	expectKind(t, err, apperror.Forbidden)

	if _, err := f.svc.Cancel(ctx, f.member, r.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = f.svc.Cancel(ctx, f.member, r.ID)
	expectKind(t, err, apperror.AlreadyCancelled)

	ended := f.book(t, at(0, 9), at(0, 10))
	f.clock.Set(at(0, 10))
	_, err = f.svc.Cancel(ctx, f.member, ended.ID)
	expectKind(t, err, apperror.AlreadyCompleted)

	if _, err := f.svc.CompletePastReservations(ctx); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = f.svc.Cancel(ctx, f.member, ended.ID)
	expectKind(t, err, apperror.AlreadyCompleted)

	_, err = f.svc.Cancel(ctx, f.member, 4040)
	expectKind(t, err, apperror.ReservationNotFound)
	f.assertLedgerConsistent(t, f.memberID)
}

func TestCancelHoldReleasesWithoutLedgerEffect(t *testing.T) {
	f := newFixture(t, 200000)
	hold, err := f.svc.Hold(context.Background(), f.member, f.input(at(0, 9), at(0, 10)))
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	res, err := f.svc.Cancel(context.Background(), f.member, hold.Reservation.ID)
	if err != nil {
		t.Fatalf("cancel hold: %v", err)
	}
	if res.RefundPercent != 0 || !res.Refund.IsZero() || !res.Balance.Equal(dec(200000)) {
		t.Fatalf("hold cancel must not move money, got %+v", res)
	}
	if len(f.entries(t, f.memberID)) != 1 {
		t.Fatalf("hold cancel must not write ledger entries")
	}
}

func TestCancelPreview(t *testing.T) {
	f := newFixture(t, 500000)
	ctx := context.Background()

	partial := f.book(t, at(0, 18), at(0, 19))
	f.clock.Advance(30 * time.Minute)
	p, err := f.svc.CancelPreview(ctx, f.member, partial.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !p.CanCancel || p.RefundPercent != 50 || !p.RefundAmount.Equal(dec(75000)) || p.HoursUntilStart != 9 {
		t.Fatalf("unexpected preview %+v", p)
	}
	if got := f.reservation(t, partial.ID); got.Status != string(StatusConfirmed) {
		t.Fatalf("preview must not change the reservation")
	}

	late := f.book(t, at(0, 12), at(0, 13))
	p, err = f.svc.CancelPreview(ctx, f.member, late.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if p.CanCancel || !p.RefundAmount.IsZero() || p.Message == "" {
		t.Fatalf("expected refusal inside the cutoff, got %+v", p)
	}

	if _, err := f.svc.Cancel(ctx, authz.Actor{Privileged: true}, late.ID); err != nil {
		t.Fatalf("staff cancel: %v", err)
	}
	p, err = f.svc.CancelPreview(ctx, f.member, late.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if p.CanCancel {
		t.Fatalf("cancelled reservation must not be cancellable")
	}
}
