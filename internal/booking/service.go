// Package booking implements the reservation state machine: holds,
// confirmation, cancellation with tiered refunds, edits, reschedules,
// recurring batches and the hold expiry sweep. Every mutation runs in one
// database transaction together with its ledger effects.
package booking

import (
	"context"
	"database/sql"
	"errors"
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

type Service struct {
	db     *appdb.DB
	ledger *ledger.Ledger
	clock  Clock
	policy Policy
	sink   events.Sink
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		if p.Location == nil {
			p.Location = time.UTC
		}
		s.policy = p
	}
}

func WithSink(sink events.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func New(database *appdb.DB, led *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		db:     database,
		ledger: led,
		clock:  ledger.SystemClock{},
		policy: DefaultPolicy(),
		sink:   events.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() Policy {
	return s.policy
}

// Now reports the service clock.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// CreateInput describes a single booking request.
type CreateInput struct {
	CourtID  int64
	MemberID int64
	Start    time.Time
	End      time.Time
}

// Result is the reservation after a transition plus the member's balance.
type Result struct {
	Reservation dbgen.Reservation
	Balance     decimal.Decimal
}

type HoldResult struct {
	Result
	ExpiresAt        time.Time
	SecondsRemaining int64
}

// prepared is a validated booking request.
type prepared struct {
	in     CreateInput
	court  dbgen.Court
	member dbgen.Member
	price  decimal.Decimal
}

func (s *Service) validateWindow(start, end time.Time) error {
	if !end.After(start) {
		return apperror.New(apperror.InvalidTimeRange, "end time must be after start time")
	}
	if start.Before(s.clock.Now()) {
		return apperror.New(apperror.InvalidTimeRange, "cannot book a time in the past")
	}
	dur := end.Sub(start)
	if dur < s.policy.MinDuration || dur > s.policy.MaxDuration {
		return apperror.New(apperror.DurationOutOfRange,
			"booking must last between %s and %s", formatDuration(s.policy.MinDuration), formatDuration(s.policy.MaxDuration))
	}
	return nil
}

func loadCourt(ctx context.Context, q *dbgen.Queries, courtID int64) (dbgen.Court, error) {
	court, err := q.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Court{}, apperror.New(apperror.ResourceNotFound, "court %d not found", courtID)
		}
		return dbgen.Court{}, fmt.Errorf("load court %d: %w", courtID, err)
	}
	return court, nil
}

func loadActiveCourt(ctx context.Context, q *dbgen.Queries, courtID int64) (dbgen.Court, error) {
	court, err := loadCourt(ctx, q, courtID)
	if err != nil {
		return dbgen.Court{}, err
	}
	if !court.IsActive {
		return dbgen.Court{}, apperror.New(apperror.ResourceInactive, "court %s is under maintenance", court.Name)
	}
	return court, nil
}

func loadReservation(ctx context.Context, q *dbgen.Queries, id int64) (dbgen.Reservation, error) {
	r, err := q.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Reservation{}, apperror.New(apperror.ReservationNotFound, "reservation %d not found", id)
		}
		return dbgen.Reservation{}, fmt.Errorf("load reservation %d: %w", id, err)
	}
	return r, nil
}

// prepare runs every check that needs no transaction. The balance check here
// is advisory; the ledger repeats it inside the transaction.
func (s *Service) prepare(ctx context.Context, actor authz.Actor, in CreateInput) (prepared, error) {
	if !authz.CanActFor(actor, in.MemberID) {
		return prepared{}, apperror.New(apperror.Forbidden, "not allowed to book for account %d", in.MemberID)
	}
	if err := s.validateWindow(in.Start, in.End); err != nil {
		return prepared{}, err
	}

	q := s.db.Queries
	court, err := loadActiveCourt(ctx, q, in.CourtID)
	if err != nil {
		return prepared{}, err
	}
	member, err := ledger.LoadAccount(ctx, q, in.MemberID)
	if err != nil {
		return prepared{}, err
	}

	price := ledger.ProRata(court.PricePerHour, in.End.Sub(in.Start))
	if member.WalletBalance.LessThan(price) {
		return prepared{}, insufficient(member.WalletBalance, price)
	}
	return prepared{in: in, court: court, member: member, price: price}, nil
}

func insufficient(have, need decimal.Decimal) error {
	return apperror.New(apperror.InsufficientBalance,
		"insufficient balance: have %s, need %s", have.StringFixed(ledger.Scale), need.StringFixed(ledger.Scale))
}

// Create books and pays for a slot in one step.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (Result, error) {
	p, err := s.prepare(ctx, actor, in)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		if err := ensureFree(ctx, q, in.CourtID, in.Start, in.End, 0, s.policy.Occupancy); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		id, err := q.CreateReservation(ctx, dbgen.CreateReservationParams{
			CourtID:    in.CourtID,
			MemberID:   in.MemberID,
			StartTime:  in.Start.UTC(),
			EndTime:    in.End.UTC(),
			TotalPrice: p.price,
			Status:     string(StatusConfirmed),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		balance, err := s.charge(ctx, q, in.MemberID, id, p.price, fmt.Sprintf("Court booking: %s", p.court.Name))
		if err != nil {
			return err
		}

		r, err := loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		res = Result{Reservation: r, Balance: balance}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Ctx(ctx).Info().
		Int64("reservation_id", res.Reservation.ID).
		Int64("court_id", in.CourtID).
		Int64("member_id", in.MemberID).
		Str("price", p.price.StringFixed(ledger.Scale)).
		Msg("Reservation confirmed")

	s.publishConfirmed(ctx, res, p.court)
	return res, nil
}

// charge posts a completed payment for a reservation and records the spend.
func (s *Service) charge(ctx context.Context, q *dbgen.Queries, memberID, reservationID int64, amount decimal.Decimal, description string) (decimal.Decimal, error) {
	posting, err := s.ledger.AppendEntry(ctx, q, ledger.Entry{
		MemberID:      memberID,
		Amount:        amount.Neg(),
		Kind:          ledger.Payment,
		Status:        ledger.Completed,
		Description:   description,
		ReservationID: reservationID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := s.ledger.RecordSpend(ctx, q, memberID, amount); err != nil {
		return decimal.Zero, err
	}
	return posting.Balance, nil
}

// Hold reserves a slot without payment until the hold window elapses.
func (s *Service) Hold(ctx context.Context, actor authz.Actor, in CreateInput) (HoldResult, error) {
	p, err := s.prepare(ctx, actor, in)
	if err != nil {
		return HoldResult{}, err
	}

	var res HoldResult
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		if err := ensureFree(ctx, q, in.CourtID, in.Start, in.End, 0, s.policy.Occupancy); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		expiresAt := now.Add(s.policy.HoldWindow)
		id, err := q.CreateReservation(ctx, dbgen.CreateReservationParams{
			CourtID:       in.CourtID,
			MemberID:      in.MemberID,
			StartTime:     in.Start.UTC(),
			EndTime:       in.End.UTC(),
			TotalPrice:    p.price,
			Status:        string(StatusHolding),
			HoldExpiresAt: sql.NullTime{Time: expiresAt, Valid: true},
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("create hold: %w", err)
		}
		r, err := loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		res = HoldResult{
			Result:           Result{Reservation: r, Balance: p.member.WalletBalance},
			ExpiresAt:        expiresAt,
			SecondsRemaining: int64(s.policy.HoldWindow / time.Second),
		}
		return nil
	})
	if err != nil {
		return HoldResult{}, err
	}

	log.Ctx(ctx).Info().
		Int64("reservation_id", res.Reservation.ID).
		Int64("court_id", in.CourtID).
		Int64("member_id", in.MemberID).
		Time("expires_at", res.ExpiresAt).
		Msg("Reservation held")

	s.sink.CalendarChanged(ctx, events.CalendarChange{
		CourtIDs: []int64{in.CourtID},
		Start:    res.Reservation.StartTime,
		End:      res.Reservation.EndTime,
		Reason:   "reservation.held",
	})
	return res, nil
}

// Confirm pays for a hold. An expired hold, or one the member can no longer
// afford, is cancelled and that cancellation is committed before the error is
// returned.
func (s *Service) Confirm(ctx context.Context, actor authz.Actor, id int64) (Result, error) {
	var (
		res     Result
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
			return apperror.New(apperror.Forbidden, "only the owner can confirm reservation %d", id)
		}
		if err := requireStatus(r, StatusHolding); err != nil {
			return err
		}
		member, err := ledger.LoadAccount(ctx, q, r.MemberID)
		if err != nil {
			return err
		}
		court, err = loadCourt(ctx, q, r.CourtID)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		if r.HoldExpiresAt.Valid && !now.Before(r.HoldExpiresAt.Time) {
			outcome = apperror.New(apperror.HoldExpired, "hold on reservation %d expired", id)
		} else if member.WalletBalance.LessThan(r.TotalPrice) {
			outcome = insufficient(member.WalletBalance, r.TotalPrice)
		}
		if outcome != nil {
			if err := transition(ctx, q, r, StatusCancelled, now); err != nil {
				return err
			}
			res = Result{Reservation: r, Balance: member.WalletBalance}
			res.Reservation.Status = string(StatusCancelled)
			res.Reservation.HoldExpiresAt = sql.NullTime{}
			return nil
		}

		if err := ensureFree(ctx, q, r.CourtID, r.StartTime, r.EndTime, r.ID, s.policy.Occupancy); err != nil {
			return err
		}
		if err := transition(ctx, q, r, StatusConfirmed, now); err != nil {
			return err
		}
		balance, err := s.charge(ctx, q, r.MemberID, r.ID, r.TotalPrice, fmt.Sprintf("Court booking: %s", court.Name))
		if err != nil {
			return err
		}
		r, err = loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		res = Result{Reservation: r, Balance: balance}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if outcome != nil {
		log.Ctx(ctx).Info().
			Int64("reservation_id", id).
			Str("reason", string(apperror.KindOf(outcome))).
			Msg("Hold cancelled at confirmation")
		s.sink.CalendarChanged(ctx, events.CalendarChange{
			CourtIDs: []int64{res.Reservation.CourtID},
			Start:    res.Reservation.StartTime,
			End:      res.Reservation.EndTime,
			Reason:   "reservation.cancelled",
		})
		return res, outcome
	}

	log.Ctx(ctx).Info().
		Int64("reservation_id", id).
		Str("price", res.Reservation.TotalPrice.StringFixed(ledger.Scale)).
		Msg("Hold confirmed")
	s.publishConfirmed(ctx, res, court)
	return res, nil
}

// Expire cancels a hold whose expiry has passed. It reports false without
// error when the reservation is no longer an expired hold.
func (s *Service) Expire(ctx context.Context, id int64) (dbgen.Reservation, bool, error) {
	var (
		r       dbgen.Reservation
		expired bool
	)
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		var err error
		r, err = loadReservation(ctx, q, id)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		if Status(r.Status) != StatusHolding || !r.HoldExpiresAt.Valid || now.Before(r.HoldExpiresAt.Time) {
			return nil
		}
		rows, err := q.TransitionReservationStatus(ctx, dbgen.TransitionReservationStatusParams{
			ToStatus:   string(StatusCancelled),
			UpdatedAt:  now,
			ID:         id,
			FromStatus: string(StatusHolding),
		})
		if err != nil {
			return fmt.Errorf("expire hold %d: %w", id, err)
		}
		expired = rows == 1
		if expired {
			r.Status = string(StatusCancelled)
			r.HoldExpiresAt = sql.NullTime{}
		}
		return nil
	})
	if err != nil {
		return dbgen.Reservation{}, false, err
	}
	return r, expired, nil
}

// Get returns a reservation visible to actor.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (dbgen.Reservation, error) {
	r, err := loadReservation(ctx, s.db.Queries, id)
	if err != nil {
		return dbgen.Reservation{}, err
	}
	if !authz.CanActFor(actor, r.MemberID) {
		return dbgen.Reservation{}, apperror.New(apperror.Forbidden, "reservation %d belongs to another account", id)
	}
	return r, nil
}

// ListForMember returns a member's reservations, latest start first.
func (s *Service) ListForMember(ctx context.Context, actor authz.Actor, memberID int64, limit int) ([]dbgen.Reservation, error) {
	if !authz.CanActFor(actor, memberID) {
		return nil, apperror.New(apperror.Forbidden, "not allowed to list reservations of account %d", memberID)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := s.db.Queries.ListReservationsByMember(ctx, dbgen.ListReservationsByMemberParams{
		MemberID: memberID,
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations for member %d: %w", memberID, err)
	}
	return list, nil
}

// Calendar returns every non-cancelled reservation intersecting [from, to).
func (s *Service) Calendar(ctx context.Context, from, to time.Time) ([]dbgen.Reservation, error) {
	if !to.After(from) {
		return nil, apperror.New(apperror.InvalidTimeRange, "calendar window end must be after start")
	}
	list, err := s.db.Queries.ListReservationsInWindow(ctx, dbgen.ListReservationsInWindowParams{
		WindowEnd:   to.UTC(),
		WindowStart: from.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("list calendar: %w", err)
	}
	return list, nil
}

func requireStatus(r dbgen.Reservation, want Status) error {
	switch st := Status(r.Status); {
	case st == want:
		return nil
	case st == StatusCancelled:
		return apperror.New(apperror.AlreadyCancelled, "reservation %d is already cancelled", r.ID)
	case st == StatusCompleted:
		return apperror.New(apperror.AlreadyCompleted, "reservation %d is already completed", r.ID)
	default:
		return apperror.New(apperror.InvalidState, "reservation %d is %s, expected %s", r.ID, st, want)
	}
}

// transition moves r out of its current status. It fails with InvalidState
// when a concurrent writer already moved it.
func transition(ctx context.Context, q *dbgen.Queries, r dbgen.Reservation, to Status, now time.Time) error {
	rows, err := q.TransitionReservationStatus(ctx, dbgen.TransitionReservationStatusParams{
		ToStatus:   string(to),
		UpdatedAt:  now,
		ID:         r.ID,
		FromStatus: r.Status,
	})
	if err != nil {
		return fmt.Errorf("transition reservation %d to %s: %w", r.ID, to, err)
	}
	if rows == 0 {
		return apperror.New(apperror.InvalidState, "reservation %d changed concurrently", r.ID)
	}
	return nil
}

func (s *Service) details(r dbgen.Reservation, court dbgen.Court) email.ReservationDetails {
	return email.ReservationDetails{
		FacilityName: s.policy.FacilityName,
		CourtName:    court.Name,
		Start:        r.StartTime.In(s.policy.Location),
		End:          r.EndTime.In(s.policy.Location),
		Amount:       r.TotalPrice.StringFixed(ledger.Scale),
	}
}

func (s *Service) publishConfirmed(ctx context.Context, res Result, court dbgen.Court) {
	r := res.Reservation
	s.sink.CalendarChanged(ctx, events.CalendarChange{
		CourtIDs: []int64{r.CourtID},
		Start:    r.StartTime,
		End:      r.EndTime,
		Reason:   "reservation.confirmed",
	})
	s.sink.BalanceChanged(ctx, events.BalanceChange{
		AccountID: r.MemberID,
		Balance:   res.Balance,
		Reason:    "reservation.confirmed",
	})
	msg := email.BuildReservationConfirmed(s.details(r, court))
	s.sink.Message(ctx, events.Notice{AccountID: r.MemberID, Subject: msg.Subject, Body: msg.Body})
}

func formatDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}
