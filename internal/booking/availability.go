package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/courtwallet/internal/apperror"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
)

// FindConflicts returns the reservations on courtID whose [start, end)
// interval intersects [start, end) and whose state occupies the slot under
// occupancy. excludeID skips one reservation, used when moving it. Callers
// guarding a write must pass transaction-bound queries.
func FindConflicts(ctx context.Context, q *dbgen.Queries, courtID int64, start, end time.Time, excludeID int64, occupancy Occupancy) ([]dbgen.Reservation, error) {
	conflicts, err := q.FindOverlappingReservations(ctx, dbgen.FindOverlappingReservationsParams{
		CourtID:   courtID,
		ExcludeID: excludeID,
		Statuses:  occupancy.statuses(),
		EndTime:   end.UTC(),
		StartTime: start.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("check court %d availability: %w", courtID, err)
	}
	return conflicts, nil
}

// Overlaps is the half-open interval test.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func ensureFree(ctx context.Context, q *dbgen.Queries, courtID int64, start, end time.Time, excludeID int64, occupancy Occupancy) error {
	conflicts, err := FindConflicts(ctx, q, courtID, start, end, excludeID, occupancy)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return apperror.New(apperror.SlotConflict,
			"court %d is already booked between %s and %s",
			courtID, conflicts[0].StartTime.UTC().Format(time.RFC3339), conflicts[0].EndTime.UTC().Format(time.RFC3339))
	}
	return nil
}

type Slot struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Available     bool      `json:"available"`
	Past          bool      `json:"past"`
	ReservationID int64     `json:"reservation_id,omitempty"`
	Status        Status    `json:"status,omitempty"`
}

type CourtAvailability struct {
	CourtID      int64           `json:"court_id"`
	Name         string          `json:"name"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	Slots        []Slot          `json:"slots"`
}

// ListAvailability returns the hourly slots of date, in the facility time
// zone, for one court or for every active court when courtID is zero.
func (s *Service) ListAvailability(ctx context.Context, date time.Time, courtID int64) ([]CourtAvailability, error) {
	q := s.db.Queries
	loc := s.policy.Location

	var courts []dbgen.Court
	if courtID != 0 {
		court, err := q.GetCourt(ctx, courtID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperror.New(apperror.ResourceNotFound, "court %d not found", courtID)
			}
			return nil, fmt.Errorf("load court %d: %w", courtID, err)
		}
		courts = []dbgen.Court{court}
	} else {
		var err error
		courts, err = q.ListActiveCourts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list courts: %w", err)
		}
	}

	local := date.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), s.policy.DayStartHour, 0, 0, 0, loc)
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), s.policy.DayEndHour, 0, 0, 0, loc)

	booked, err := q.ListReservationsInWindow(ctx, dbgen.ListReservationsInWindowParams{
		WindowEnd:   dayEnd.UTC(),
		WindowStart: dayStart.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	byCourt := make(map[int64][]dbgen.Reservation)
	for _, r := range booked {
		byCourt[r.CourtID] = append(byCourt[r.CourtID], r)
	}

	now := s.clock.Now()
	out := make([]CourtAvailability, 0, len(courts))
	for _, court := range courts {
		ca := CourtAvailability{CourtID: court.ID, Name: court.Name, PricePerHour: court.PricePerHour}
		for start := dayStart; start.Before(dayEnd); start = start.Add(time.Hour) {
			end := start.Add(time.Hour)
			slot := Slot{Start: start, End: end, Available: court.IsActive, Past: start.Before(now)}
			if slot.Past {
				slot.Available = false
			}
			for _, r := range byCourt[court.ID] {
				if !s.policy.Occupancy.shows(Status(r.Status)) {
					continue
				}
				if Overlaps(r.StartTime, r.EndTime, start, end) {
					slot.Available = false
					slot.ReservationID = r.ID
					slot.Status = Status(r.Status)
					break
				}
			}
			ca.Slots = append(ca.Slots, slot)
		}
		out = append(out, ca)
	}
	return out, nil
}
