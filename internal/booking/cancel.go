package booking

import (
	"context"
	"fmt"
	"math"
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

type CancelResult struct {
	Result
	RefundPercent int
	Refund        decimal.Decimal
	Message       string
}

// CancelPreview describes what cancelling now would do, without doing it.
type CancelPreview struct {
	CanCancel       bool            `json:"can_cancel"`
	RefundPercent   int             `json:"refund_percent"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	Message         string          `json:"message"`
	HoursUntilStart int             `json:"hours_until_start"`
}

type refundDecision struct {
	allowed bool
	percent int
	message string
}

// refundPolicy applies the cancellation ladder. Privileged actors always get
// a full refund; members are refused inside the cutoff and partially
// refunded inside the full-refund lead.
func (s *Service) refundPolicy(actor authz.Actor, start, now time.Time) refundDecision {
	if actor.Privileged {
		return refundDecision{allowed: true, percent: 100, message: "Cancelled by staff with a full refund."}
	}
	until := start.Sub(now)
	switch {
	case until < s.policy.CancelCutoff:
		return refundDecision{
			message: fmt.Sprintf("Reservations cannot be cancelled less than %s before the start time.", formatDuration(s.policy.CancelCutoff)),
		}
	case until < s.policy.FullRefundLead:
		return refundDecision{
			allowed: true,
			percent: s.policy.PartialRefundPercent,
			message: fmt.Sprintf("Cancelling less than %s before the start time refunds %d%%.", formatDuration(s.policy.FullRefundLead), s.policy.PartialRefundPercent),
		}
	default:
		return refundDecision{allowed: true, percent: 100, message: "Cancelling now refunds 100%."}
	}
}

// checkCancellable rejects terminal reservations, including confirmed ones
// that have already ended.
func checkCancellable(r dbgen.Reservation, now time.Time) error {
	switch Status(r.Status) {
	case StatusCancelled:
		return apperror.New(apperror.AlreadyCancelled, "reservation %d is already cancelled", r.ID)
	case StatusCompleted:
		return apperror.New(apperror.AlreadyCompleted, "reservation %d is already completed", r.ID)
	case StatusConfirmed:
		if !now.Before(r.EndTime) {
			return apperror.New(apperror.AlreadyCompleted, "reservation %d has already ended", r.ID)
		}
	}
	return nil
}

// Cancel ends a reservation. Only paid reservations are refunded and only
// they are subject to the cancellation cutoff; holds are released for free.
func (s *Service) Cancel(ctx context.Context, actor authz.Actor, id int64) (CancelResult, error) {
	var (
		res   CancelResult
		court dbgen.Court
	)
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		r, err := loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		if !authz.CanActFor(actor, r.MemberID) {
			return apperror.New(apperror.Forbidden, "not allowed to cancel reservation %d", id)
		}
		now := s.clock.Now().UTC()
		if err := checkCancellable(r, now); err != nil {
			return err
		}
		court, err = loadCourt(ctx, q, r.CourtID)
		if err != nil {
			return err
		}

		member, err := ledger.LoadAccount(ctx, q, r.MemberID)
		if err != nil {
			return err
		}
		balance := member.WalletBalance
		refund := decimal.Zero
		percent := 0
		message := "Reservation released."

		if Status(r.Status) == StatusConfirmed {
			decision := s.refundPolicy(actor, r.StartTime, now)
			if !decision.allowed {
				return apperror.New(apperror.CancelTooLate, "%s", decision.message)
			}
			percent = decision.percent
			message = decision.message
			refund = ledger.Percent(r.TotalPrice, percent)
			if refund.IsPositive() {
				posting, err := s.ledger.AppendEntry(ctx, q, ledger.Entry{
					MemberID:      r.MemberID,
					Amount:        refund,
					Kind:          ledger.Refund,
					Status:        ledger.Completed,
					Description:   fmt.Sprintf("Refund %d%% for %s", percent, court.Name),
					ReservationID: r.ID,
				})
				if err != nil {
					return err
				}
				balance = posting.Balance
			}
		}

		if err := transition(ctx, q, r, StatusCancelled, now); err != nil {
			return err
		}
		r, err = loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		res = CancelResult{
			Result:        Result{Reservation: r, Balance: balance},
			RefundPercent: percent,
			Refund:        refund,
			Message:       message,
		}
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	r := res.Reservation
	log.Ctx(ctx).Info().
		Int64("reservation_id", id).
		Bool("privileged", actor.Privileged).
		Int("refund_percent", res.RefundPercent).
		Str("refund", res.Refund.StringFixed(ledger.Scale)).
		Msg("Reservation cancelled")

	s.sink.CalendarChanged(ctx, events.CalendarChange{
		CourtIDs: []int64{r.CourtID},
		Start:    r.StartTime,
		End:      r.EndTime,
		Reason:   "reservation.cancelled",
	})
	if res.Refund.IsPositive() {
		s.sink.BalanceChanged(ctx, events.BalanceChange{
			AccountID: r.MemberID,
			Balance:   res.Balance,
			Reason:    "reservation.refunded",
		})
	}
	details := email.CancellationDetails{ReservationDetails: s.details(r, court), RefundPercent: res.RefundPercent}
	if res.Refund.IsPositive() {
		details.RefundAmount = res.Refund.StringFixed(ledger.Scale)
	}
	msg := email.BuildReservationCancelled(details)
	s.sink.Message(ctx, events.Notice{AccountID: r.MemberID, Subject: msg.Subject, Body: msg.Body})
	return res, nil
}

// CancelPreview reports the refund Cancel would grant right now.
func (s *Service) CancelPreview(ctx context.Context, actor authz.Actor, id int64) (CancelPreview, error) {
	r, err := loadReservation(ctx, s.db.Queries, id)
	if err != nil {
		return CancelPreview{}, err
	}
	if !authz.CanActFor(actor, r.MemberID) {
		return CancelPreview{}, apperror.New(apperror.Forbidden, "not allowed to view reservation %d", id)
	}

	now := s.clock.Now().UTC()
	preview := CancelPreview{
		RefundAmount:    decimal.Zero,
		HoursUntilStart: int(math.Floor(r.StartTime.Sub(now).Hours())),
	}
	if err := checkCancellable(r, now); err != nil {
		preview.Message = err.Error()
		return preview, nil
	}
	if Status(r.Status) != StatusConfirmed {
		preview.CanCancel = true
		preview.Message = "This reservation has not been paid; cancelling releases the slot."
		return preview, nil
	}

	decision := s.refundPolicy(actor, r.StartTime, now)
	preview.CanCancel = decision.allowed
	preview.Message = decision.message
	if decision.allowed {
		preview.RefundPercent = decision.percent
		preview.RefundAmount = ledger.Percent(r.TotalPrice, decision.percent)
	}
	return preview, nil
}
