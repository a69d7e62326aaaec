package booking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
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

const dateLayout = "2006-01-02"

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// WeekdaySet is a bit set indexed by time.Weekday.
type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var set WeekdaySet
	for _, d := range days {
		set |= 1 << uint(d)
	}
	return set
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) String() string {
	var names []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			names = append(names, d.String()[:3])
		}
	}
	return strings.Join(names, ",")
}

// ParseRecurrencePattern parses rules of the form "Weekly;Mon,Wed,Fri".
// Only weekly recurrence is supported.
func ParseRecurrencePattern(pattern string) (WeekdaySet, error) {
	parts := strings.Split(strings.TrimSpace(pattern), ";")
	if len(parts) != 2 {
		return 0, apperror.New(apperror.InvalidInput, "invalid recurrence pattern %q, expected e.g. Weekly;Mon,Wed,Fri", pattern)
	}
	if !strings.EqualFold(strings.TrimSpace(parts[0]), "weekly") {
		return 0, apperror.New(apperror.InvalidInput, "unsupported recurrence frequency %q", parts[0])
	}

	var set WeekdaySet
	for _, name := range strings.Split(parts[1], ",") {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		d, ok := weekdayNames[key]
		if !ok {
			return 0, apperror.New(apperror.InvalidInput, "invalid day name %q", strings.TrimSpace(name))
		}
		set |= 1 << uint(d)
	}
	return set, nil
}

// FormatRecurrencePattern renders set in the form ParseRecurrencePattern reads.
func FormatRecurrencePattern(set WeekdaySet) string {
	return "Weekly;" + set.String()
}

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, apperror.New(apperror.InvalidInput, "invalid time of day %q, expected HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) on(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour, t.Minute, 0, 0, loc)
}

// RecurrenceInput describes the dates and daily window to expand. StartDate
// and EndDate are read as calendar dates in Location; both are inclusive.
type RecurrenceInput struct {
	StartDate      time.Time
	EndDate        time.Time
	SlotStart      TimeOfDay
	SlotEnd        TimeOfDay
	Days           WeekdaySet
	MaxOccurrences int
	Location       *time.Location
}

// Interval is a half-open [Start, End) slot.
type Interval struct {
	Start time.Time
	End   time.Time
}

// ExpandRecurrence walks the date range day by day and keeps the days in the
// set until the range ends or the occurrence cap is reached.
func ExpandRecurrence(in RecurrenceInput) ([]Interval, error) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	if in.SlotEnd.minutes() <= in.SlotStart.minutes() {
		return nil, apperror.New(apperror.InvalidTimeRange, "slot end %s must be after slot start %s", in.SlotEnd, in.SlotStart)
	}
	if in.MaxOccurrences <= 0 {
		return nil, apperror.New(apperror.InvalidInput, "occurrence count must be positive")
	}

	sy, sm, sd := in.StartDate.In(loc).Date()
	ey, em, ed := in.EndDate.In(loc).Date()
	day := time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
	last := time.Date(ey, em, ed, 0, 0, 0, 0, loc)

	var slots []Interval
	for !day.After(last) && len(slots) < in.MaxOccurrences {
		if in.Days.Has(day.Weekday()) {
			y, m, d := day.Date()
			slots = append(slots, Interval{
				Start: in.SlotStart.on(y, m, d, loc),
				End:   in.SlotEnd.on(y, m, d, loc),
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	if len(slots) == 0 {
		return nil, apperror.New(apperror.NoSlotsGenerated, "no slots match the recurrence rule")
	}
	return slots, nil
}

type RecurringInput struct {
	CourtID        int64
	MemberID       int64
	StartDate      time.Time
	EndDate        time.Time
	SlotStart      TimeOfDay
	SlotEnd        TimeOfDay
	Pattern        string
	MaxOccurrences int
}

type RecurringResult struct {
	Batch        dbgen.RecurringBatch
	Reservations []dbgen.Reservation
	Balance      decimal.Decimal
}

// CreateRecurring books every slot of a recurrence or none of them. The
// whole batch is paid with one ledger entry.
func (s *Service) CreateRecurring(ctx context.Context, actor authz.Actor, in RecurringInput) (RecurringResult, error) {
	if !authz.CanActFor(actor, in.MemberID) {
		return RecurringResult{}, apperror.New(apperror.Forbidden, "not allowed to book for account %d", in.MemberID)
	}

	q := s.db.Queries
	member, err := ledger.LoadAccount(ctx, q, in.MemberID)
	if err != nil {
		return RecurringResult{}, err
	}
	tier, err := ledger.ParseTier(member.Tier)
	if err != nil || !tier.AtLeast(s.policy.RecurringMinTier) {
		return RecurringResult{}, apperror.New(apperror.TierRequired,
			"recurring bookings require %s tier or above", s.policy.RecurringMinTier)
	}

	loc := s.policy.Location
	now := s.clock.Now()
	today := now.In(loc)
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	startDate := in.StartDate.In(loc)
	startDay := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	endDate := in.EndDate.In(loc)
	endDay := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, loc)
	if startDay.Before(todayDate) {
		return RecurringResult{}, apperror.New(apperror.InvalidTimeRange, "start date cannot be in the past")
	}
	if !endDay.After(startDay) {
		return RecurringResult{}, apperror.New(apperror.InvalidTimeRange, "end date must be after start date")
	}
	if in.MaxOccurrences == 0 {
		in.MaxOccurrences = s.policy.MaxOccurrences
	}
	if in.MaxOccurrences > s.policy.MaxOccurrences {
		return RecurringResult{}, apperror.New(apperror.InvalidInput,
			"at most %d occurrences can be booked at once", s.policy.MaxOccurrences)
	}

	court, err := loadActiveCourt(ctx, q, in.CourtID)
	if err != nil {
		return RecurringResult{}, err
	}

	days, err := ParseRecurrencePattern(in.Pattern)
	if err != nil {
		return RecurringResult{}, err
	}
	slots, err := ExpandRecurrence(RecurrenceInput{
		StartDate:      startDay,
		EndDate:        endDay,
		SlotStart:      in.SlotStart,
		SlotEnd:        in.SlotEnd,
		Days:           days,
		MaxOccurrences: in.MaxOccurrences,
		Location:       loc,
	})
	if err != nil {
		return RecurringResult{}, err
	}

	// Every occurrence is billed at the nominal length, so an occurrence
	// whose wall-clock slot spans a daylight saving change is refused.
	slotLen := time.Duration(in.SlotEnd.minutes()-in.SlotStart.minutes()) * time.Minute
	for _, slot := range slots {
		if slot.End.Sub(slot.Start) != slotLen {
			return RecurringResult{}, apperror.New(apperror.InvalidTimeRange,
				"occurrence on %s crosses a daylight saving change", slot.Start.Format(dateLayout))
		}
	}
	if slotLen < s.policy.MinDuration || slotLen > s.policy.MaxDuration {
		return RecurringResult{}, apperror.New(apperror.DurationOutOfRange,
			"booking must last between %s and %s", formatDuration(s.policy.MinDuration), formatDuration(s.policy.MaxDuration))
	}
	if slots[0].Start.Before(now) {
		return RecurringResult{}, apperror.New(apperror.InvalidTimeRange,
			"first occurrence %s is in the past", slots[0].Start.Format(time.RFC3339))
	}

	pricePerSlot := ledger.ProRata(court.PricePerHour, slotLen)
	total := pricePerSlot.Mul(decimal.NewFromInt(int64(len(slots))))
	if member.WalletBalance.LessThan(total) {
		return RecurringResult{}, apperror.New(apperror.InsufficientBalance,
			"insufficient balance: %d slots cost %s, have %s",
			len(slots), total.StringFixed(ledger.Scale), member.WalletBalance.StringFixed(ledger.Scale))
	}

	rule := FormatRecurrencePattern(days)
	var res RecurringResult
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		for i, slot := range slots {
			conflicts, err := FindConflicts(ctx, q, in.CourtID, slot.Start, slot.End, 0, s.policy.Occupancy)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return apperror.New(apperror.SlotConflict,
					"occurrence %d (%s) is already booked", i+1, slot.Start.Format("2006-01-02 15:04"))
			}
		}

		created := s.clock.Now().UTC()
		batchID, err := q.CreateRecurringBatch(ctx, dbgen.CreateRecurringBatchParams{
			CourtID:        in.CourtID,
			MemberID:       in.MemberID,
			RecurrenceRule: rule,
			StartDate:      startDay.Format(dateLayout),
			EndDate:        endDay.Format(dateLayout),
			SlotStart:      in.SlotStart.String(),
			SlotEnd:        in.SlotEnd.String(),
			Occurrences:    int64(len(slots)),
			PricePerSlot:   pricePerSlot,
			TotalPrice:     total,
			CreatedAt:      created,
		})
		if err != nil {
			return fmt.Errorf("create recurring batch: %w", err)
		}

		for _, slot := range slots {
			if _, err := q.CreateReservation(ctx, dbgen.CreateReservationParams{
				CourtID:    in.CourtID,
				MemberID:   in.MemberID,
				StartTime:  slot.Start.UTC(),
				EndTime:    slot.End.UTC(),
				TotalPrice: pricePerSlot,
				Status:     string(StatusConfirmed),
				BatchID:    nullInt64(batchID),
				CreatedAt:  created,
				UpdatedAt:  created,
			}); err != nil {
				return fmt.Errorf("create recurring occurrence: %w", err)
			}
		}

		posting, err := s.ledger.AppendEntry(ctx, q, ledger.Entry{
			MemberID:    in.MemberID,
			Amount:      total.Neg(),
			Kind:        ledger.Payment,
			Status:      ledger.Completed,
			Description: fmt.Sprintf("Recurring booking %s on %s (%d slots)", rule, court.Name, len(slots)),
			BatchID:     batchID,
		})
		if err != nil {
			return err
		}
		if _, err := s.ledger.RecordSpend(ctx, q, in.MemberID, total); err != nil {
			return err
		}

		batch, err := q.GetRecurringBatch(ctx, batchID)
		if err != nil {
			return fmt.Errorf("reload recurring batch %d: %w", batchID, err)
		}
		children, err := q.ListReservationsByBatch(ctx, nullInt64(batchID))
		if err != nil {
			return fmt.Errorf("list recurring occurrences: %w", err)
		}
		res = RecurringResult{Batch: batch, Reservations: children, Balance: posting.Balance}
		return nil
	})
	if err != nil {
		return RecurringResult{}, err
	}

	log.Ctx(ctx).Info().
		Int64("batch_id", res.Batch.ID).
		Int64("court_id", in.CourtID).
		Int64("member_id", in.MemberID).
		Int("occurrences", len(res.Reservations)).
		Str("total", total.StringFixed(ledger.Scale)).
		Msg("Recurring reservations confirmed")

	s.sink.CalendarChanged(ctx, events.CalendarChange{
		CourtIDs: []int64{in.CourtID},
		Start:    slots[0].Start,
		End:      slots[len(slots)-1].End,
		Reason:   "recurring.confirmed",
	})
	s.sink.BalanceChanged(ctx, events.BalanceChange{
		AccountID: in.MemberID,
		Balance:   res.Balance,
		Reason:    "recurring.confirmed",
	})
	msg := email.BuildRecurringConfirmed(email.ReservationDetails{
		FacilityName: s.policy.FacilityName,
		CourtName:    court.Name,
		Amount:       total.StringFixed(ledger.Scale),
	}, len(slots), rule)
	s.sink.Message(ctx, events.Notice{AccountID: in.MemberID, Subject: msg.Subject, Body: msg.Body})
	return res, nil
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
