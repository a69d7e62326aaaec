package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/apperror"
	appdb "github.com/codr1/courtwallet/internal/db"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/email"
	"github.com/codr1/courtwallet/internal/events"
	"github.com/codr1/courtwallet/internal/ledger"
)

// ModifyResult is the outcome of moving a reservation. Delta is new price
// minus old price; Fee is the reschedule fee, zero for edits.
type ModifyResult struct {
	Result
	PreviousStart time.Time
	PreviousEnd   time.Time
	Delta         decimal.Decimal
	Fee           decimal.Decimal
}

type moveKind int

const (
	moveEdit moveKind = iota
	moveReschedule
)

func (k moveKind) String() string {
	if k == moveReschedule {
		return "reschedule"
	}
	return "edit"
}

// Edit moves a reservation shortly after it was made. A confirmed
// reservation settles the price difference; a hold is simply re-timed.
func (s *Service) Edit(ctx context.Context, actor authz.Actor, id int64, start, end time.Time) (ModifyResult, error) {
	return s.move(ctx, actor, id, start, end, moveEdit)
}

// Reschedule moves a confirmed reservation well before it starts, charging
// a fee on the original price on top of the price difference.
func (s *Service) Reschedule(ctx context.Context, actor authz.Actor, id int64, start, end time.Time) (ModifyResult, error) {
	return s.move(ctx, actor, id, start, end, moveReschedule)
}

func (s *Service) checkMovable(r dbgen.Reservation, kind moveKind, now time.Time) error {
	switch Status(r.Status) {
	case StatusCancelled:
		return apperror.New(apperror.AlreadyCancelled, "reservation %d is already cancelled", r.ID)
	case StatusCompleted:
		return apperror.New(apperror.AlreadyCompleted, "reservation %d is already completed", r.ID)
	}

	switch kind {
	case moveEdit:
		st := Status(r.Status)
		if st != StatusHolding && st != StatusConfirmed {
			return apperror.New(apperror.InvalidState, "reservation %d cannot be edited while %s", r.ID, st)
		}
		if now.Sub(r.CreatedAt) > s.policy.EditGrace {
			return apperror.New(apperror.EditWindowExpired,
				"reservations can only be edited within %s of booking", formatDuration(s.policy.EditGrace))
		}
	case moveReschedule:
		if Status(r.Status) != StatusConfirmed {
			return apperror.New(apperror.InvalidState, "only confirmed reservations can be rescheduled")
		}
		if r.StartTime.Sub(now) < s.policy.RescheduleMinLead {
			return apperror.New(apperror.RescheduleTooSoon,
				"reservations can only be rescheduled at least %s before the start time", formatDuration(s.policy.RescheduleMinLead))
		}
	}
	return nil
}

// holdLapsed reports whether r is a hold whose expiry has passed at now.
func holdLapsed(r dbgen.Reservation, now time.Time) bool {
	return Status(r.Status) == StatusHolding && r.HoldExpiresAt.Valid && !now.Before(r.HoldExpiresAt.Time)
}

func (s *Service) move(ctx context.Context, actor authz.Actor, id int64, start, end time.Time, kind moveKind) (ModifyResult, error) {
	if err := s.validateWindow(start, end); err != nil {
		return ModifyResult{}, err
	}

	var (
		res     ModifyResult
		court   dbgen.Court
		outcome error
	)
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		r, err := loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		if !authz.IsOwner(actor, r.MemberID) {
			return apperror.New(apperror.Forbidden, "only the owner can %s reservation %d", kind, id)
		}
		now := s.clock.Now().UTC()
		if kind == moveEdit && holdLapsed(r, now) {
			if err := transition(ctx, q, r, StatusCancelled, now); err != nil {
				return err
			}
			res = ModifyResult{Result: Result{Reservation: r}, PreviousStart: r.StartTime, PreviousEnd: r.EndTime}
			res.Reservation.Status = string(StatusCancelled)
			res.Reservation.HoldExpiresAt = sql.NullTime{}
			outcome = apperror.New(apperror.HoldExpired, "hold on reservation %d expired", id)
			return nil
		}
		if err := s.checkMovable(r, kind, now); err != nil {
			return err
		}
		court, err = loadActiveCourt(ctx, q, r.CourtID)
		if err != nil {
			return err
		}
		member, err := ledger.LoadAccount(ctx, q, r.MemberID)
		if err != nil {
			return err
		}

		oldPrice := r.TotalPrice
		newPrice := ledger.ProRata(court.PricePerHour, end.Sub(start))
		delta := newPrice.Sub(oldPrice)
		fee := decimal.Zero
		if kind == moveReschedule {
			fee = ledger.Percent(oldPrice, s.policy.RescheduleFeePercent)
		}
		paid := Status(r.Status) == StatusConfirmed

		if paid {
			need := delta.Add(fee)
			if need.IsPositive() && member.WalletBalance.LessThan(need) {
				return insufficient(member.WalletBalance, need)
			}
		}

		if err := ensureFree(ctx, q, r.CourtID, start, end, r.ID, s.policy.Occupancy); err != nil {
			return err
		}

		balance := member.WalletBalance
		if paid {
			balance, err = s.settleMove(ctx, q, r, court, delta, fee, kind, balance)
			if err != nil {
				return err
			}
		}

		if _, err := q.UpdateReservationSlot(ctx, dbgen.UpdateReservationSlotParams{
			StartTime:  start.UTC(),
			EndTime:    end.UTC(),
			TotalPrice: newPrice,
			UpdatedAt:  now,
			ID:         r.ID,
		}); err != nil {
			return fmt.Errorf("update reservation %d: %w", r.ID, err)
		}

		updated, err := loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		res = ModifyResult{
			Result:        Result{Reservation: updated, Balance: balance},
			PreviousStart: r.StartTime,
			PreviousEnd:   r.EndTime,
			Delta:         delta,
			Fee:           fee,
		}
		return nil
	})
	if err != nil {
		return ModifyResult{}, err
	}

	r := res.Reservation
	if outcome != nil {
		log.Ctx(ctx).Info().Int64("reservation_id", id).Msg("Expired hold cancelled at edit")
		s.sink.CalendarChanged(ctx, events.CalendarChange{
			CourtIDs: []int64{r.CourtID},
			Start:    r.StartTime,
			End:      r.EndTime,
			Reason:   "reservation.cancelled",
		})
		return res, outcome
	}

	log.Ctx(ctx).Info().
		Int64("reservation_id", id).
		Str("action", kind.String()).
		Str("delta", res.Delta.StringFixed(ledger.Scale)).
		Str("fee", res.Fee.StringFixed(ledger.Scale)).
		Msg("Reservation moved")

	s.sink.CalendarChanged(ctx, events.CalendarChange{
		CourtIDs: []int64{r.CourtID},
		Start:    minTime(res.PreviousStart, r.StartTime),
		End:      maxTime(res.PreviousEnd, r.EndTime),
		Reason:   "reservation." + kind.String(),
	})
	if Status(r.Status) == StatusConfirmed && (!res.Delta.IsZero() || res.Fee.IsPositive()) {
		s.sink.BalanceChanged(ctx, events.BalanceChange{
			AccountID: r.MemberID,
			Balance:   res.Balance,
			Reason:    "reservation." + kind.String(),
		})
	}
	if kind == moveReschedule {
		msg := email.BuildReservationRescheduled(s.details(r, court), res.Fee.StringFixed(ledger.Scale))
		s.sink.Message(ctx, events.Notice{AccountID: r.MemberID, Subject: msg.Subject, Body: msg.Body})
	}
	return res, nil
}

// settleMove posts the price difference first and the fee second.
func (s *Service) settleMove(ctx context.Context, q *dbgen.Queries, r dbgen.Reservation, court dbgen.Court, delta, fee decimal.Decimal, kind moveKind, balance decimal.Decimal) (decimal.Decimal, error) {
	spend := decimal.Zero
	switch {
	case delta.IsPositive():
		posting, err := s.ledger.AppendEntry(ctx, q, ledger.Entry{
			MemberID:      r.MemberID,
			Amount:        delta.Neg(),
			Kind:          ledger.Payment,
			Status:        ledger.Completed,
			Description:   fmt.Sprintf("Price difference (%s) for %s", kind, court.Name),
			ReservationID: r.ID,
		})
		if err != nil {
			return decimal.Zero, err
		}
		balance = posting.Balance
		spend = spend.Add(delta)
	case delta.IsNegative():
		posting, err := s.ledger.AppendEntry(ctx, q, ledger.Entry{
			MemberID:      r.MemberID,
			Amount:        delta.Neg(),
			Kind:          ledger.Refund,
			Status:        ledger.Completed,
			Description:   fmt.Sprintf("Price difference refund (%s) for %s", kind, court.Name),
			ReservationID: r.ID,
		})
		if err != nil {
			return decimal.Zero, err
		}
		balance = posting.Balance
	}

	if fee.IsPositive() {
		posting, err := s.ledger.AppendEntry(ctx, q, ledger.Entry{
			MemberID:      r.MemberID,
			Amount:        fee.Neg(),
			Kind:          ledger.Fee,
			Status:        ledger.Completed,
			Description:   fmt.Sprintf("Reschedule fee (%d%%) for %s", s.policy.RescheduleFeePercent, court.Name),
			ReservationID: r.ID,
		})
		if err != nil {
			return decimal.Zero, err
		}
		balance = posting.Balance
		spend = spend.Add(fee)
	}

	if spend.IsPositive() {
		if _, err := s.ledger.RecordSpend(ctx, q, r.MemberID, spend); err != nil {
			return decimal.Zero, err
		}
	}
	return balance, nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
