package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	appdb "github.com/codr1/courtwallet/internal/db"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/email"
	"github.com/codr1/courtwallet/internal/events"
)

// SweepReport summarizes one sweep run.
type SweepReport struct {
	Scanned int
	Changed int
	Failed  int
}

// SweepExpiredHolds cancels every hold whose expiry has passed. Each hold is
// expired in its own transaction so one failure does not stop the batch.
// Running it again with no new expired holds changes nothing.
func (s *Service) SweepExpiredHolds(ctx context.Context) (SweepReport, error) {
	logger := log.Ctx(ctx)
	now := s.clock.Now().UTC()

	holds, err := s.db.Queries.ListExpiredHolds(ctx, dbgen.ListExpiredHoldsParams{
		Now:   now,
		Limit: int64(s.policy.SweepLimit),
	})
	if err != nil {
		return SweepReport{}, fmt.Errorf("list expired holds: %w", err)
	}

	report := SweepReport{Scanned: len(holds)}
	var expired []dbgen.Reservation
	for _, h := range holds {
		r, ok, err := s.Expire(ctx, h.ID)
		if err != nil {
			report.Failed++
			logger.Error().Err(err).Int64("reservation_id", h.ID).Msg("Failed to expire hold")
			continue
		}
		if ok {
			expired = append(expired, r)
		}
	}
	report.Changed = len(expired)

	if len(expired) > 0 {
		logger.Info().
			Int("expired", report.Changed).
			Int("failed", report.Failed).
			Msg("Expired holds released")
		s.publishReleased(ctx, expired)
	}
	return report, nil
}

func (s *Service) publishReleased(ctx context.Context, expired []dbgen.Reservation) {
	courts := make(map[int64]dbgen.Court)
	courtIDs := make([]int64, 0)
	byMember := make(map[int64][]dbgen.Reservation)
	for _, r := range expired {
		if _, seen := courts[r.CourtID]; !seen {
			court, err := s.db.Queries.GetCourt(ctx, r.CourtID)
			if err != nil {
				court = dbgen.Court{ID: r.CourtID}
			}
			courts[r.CourtID] = court
			courtIDs = append(courtIDs, r.CourtID)
		}
		byMember[r.MemberID] = append(byMember[r.MemberID], r)
	}
	sort.Slice(courtIDs, func(i, j int) bool { return courtIDs[i] < courtIDs[j] })

	s.sink.CalendarChanged(ctx, events.CalendarChange{CourtIDs: courtIDs, Reason: "holds.expired"})

	members := make([]int64, 0, len(byMember))
	for id := range byMember {
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	for _, memberID := range members {
		list := byMember[memberID]
		msg := email.BuildHoldExpired(s.details(list[0], courts[list[0].CourtID]))
		if len(list) > 1 {
			msg.Body = fmt.Sprintf("%d of your holds expired before they were confirmed. The slots have been released.\n", len(list))
		}
		s.sink.Message(ctx, events.Notice{AccountID: memberID, Subject: msg.Subject, Body: msg.Body})
	}
}

// CompletePastReservations marks confirmed reservations whose end time has
// passed as completed.
func (s *Service) CompletePastReservations(ctx context.Context) (SweepReport, error) {
	logger := log.Ctx(ctx)
	now := s.clock.Now().UTC()

	ended, err := s.db.Queries.ListEndedConfirmed(ctx, dbgen.ListEndedConfirmedParams{
		Now:   now,
		Limit: int64(s.policy.SweepLimit),
	})
	if err != nil {
		return SweepReport{}, fmt.Errorf("list ended reservations: %w", err)
	}

	report := SweepReport{Scanned: len(ended)}
	courtSet := make(map[int64]struct{})
	for _, r := range ended {
		var rows int64
		err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
			var err error
			rows, err = txdb.Queries.TransitionReservationStatus(ctx, dbgen.TransitionReservationStatusParams{
				ToStatus:   string(StatusCompleted),
				UpdatedAt:  now,
				ID:         r.ID,
				FromStatus: string(StatusConfirmed),
			})
			return err
		})
		if err != nil {
			report.Failed++
			logger.Error().Err(err).Int64("reservation_id", r.ID).Msg("Failed to complete reservation")
			continue
		}
		if rows == 1 {
			report.Changed++
			courtSet[r.CourtID] = struct{}{}
		}
	}

	if report.Changed > 0 {
		courtIDs := make([]int64, 0, len(courtSet))
		for id := range courtSet {
			courtIDs = append(courtIDs, id)
		}
		sort.Slice(courtIDs, func(i, j int) bool { return courtIDs[i] < courtIDs[j] })
		logger.Info().Int("completed", report.Changed).Msg("Past reservations completed")
		s.sink.CalendarChanged(ctx, events.CalendarChange{CourtIDs: courtIDs, Reason: "reservations.completed"})
	}
	return report, nil
}
