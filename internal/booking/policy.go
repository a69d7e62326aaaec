package booking

import (
	"fmt"
	"time"

	"github.com/codr1/courtwallet/internal/config"
	"github.com/codr1/courtwallet/internal/ledger"
)

type Status string

const (
	StatusHolding        Status = "holding"
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
)

// Occupancy selects which reservation states block a slot.
type Occupancy int

const (
	OccupancyIncludeHolds Occupancy = iota
	OccupancyConfirmedOnly
)

func (o Occupancy) statuses() []string {
	if o == OccupancyConfirmedOnly {
		return []string{string(StatusConfirmed)}
	}
	return []string{string(StatusHolding), string(StatusPendingPayment), string(StatusConfirmed)}
}

// shows reports whether a reservation in status takes its slot off the
// availability grid. Completed reservations always do.
func (o Occupancy) shows(status Status) bool {
	if status == StatusCompleted {
		return true
	}
	for _, st := range o.statuses() {
		if st == string(status) {
			return true
		}
	}
	return false
}

func parseOccupancy(s string) (Occupancy, error) {
	switch s {
	case "", "include_holds":
		return OccupancyIncludeHolds, nil
	case "confirmed_only":
		return OccupancyConfirmedOnly, nil
	}
	return 0, fmt.Errorf("unknown occupancy policy %q", s)
}

type Policy struct {
	MinDuration          time.Duration
	MaxDuration          time.Duration
	HoldWindow           time.Duration
	EditGrace            time.Duration
	RescheduleMinLead    time.Duration
	RescheduleFeePercent int
	CancelCutoff         time.Duration
	FullRefundLead       time.Duration
	PartialRefundPercent int
	RecurringMinTier     ledger.Tier
	MaxOccurrences       int
	Occupancy            Occupancy
	// Location is the facility time zone used for recurrence and daily slots.
	Location     *time.Location
	DayStartHour int
	DayEndHour   int
	SweepLimit   int
	FacilityName string
}

func DefaultPolicy() Policy {
	return Policy{
		MinDuration:          time.Hour,
		MaxDuration:          5 * time.Hour,
		HoldWindow:           5 * time.Minute,
		EditGrace:            5 * time.Minute,
		RescheduleMinLead:    24 * time.Hour,
		RescheduleFeePercent: 10,
		CancelCutoff:         6 * time.Hour,
		FullRefundLead:       24 * time.Hour,
		PartialRefundPercent: 50,
		RecurringMinTier:     ledger.Gold,
		MaxOccurrences:       52,
		Occupancy:            OccupancyIncludeHolds,
		Location:             time.UTC,
		DayStartHour:         6,
		DayEndHour:           22,
		SweepLimit:           500,
	}
}

// PolicyFromConfig builds a policy from validated configuration.
func PolicyFromConfig(cfg *config.Config) (Policy, error) {
	p := DefaultPolicy()
	b := cfg.Booking
	p.MinDuration = b.MinDuration
	p.MaxDuration = b.MaxDuration
	p.HoldWindow = b.HoldWindow
	p.EditGrace = b.EditGrace
	p.RescheduleMinLead = b.RescheduleMinLead
	p.RescheduleFeePercent = b.RescheduleFeePercent
	p.CancelCutoff = b.CancelCutoff
	p.FullRefundLead = b.FullRefundLead
	p.PartialRefundPercent = b.PartialRefundPercent
	p.FacilityName = cfg.App.Name

	tier, err := ledger.ParseTier(b.RecurringMinTier)
	if err != nil {
		return Policy{}, err
	}
	p.RecurringMinTier = tier

	occ, err := parseOccupancy(b.Occupancy)
	if err != nil {
		return Policy{}, err
	}
	p.Occupancy = occ

	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return Policy{}, fmt.Errorf("load timezone %q: %w", b.Timezone, err)
	}
	p.Location = loc

	if cfg.Scheduler.SweepBatchSize > 0 {
		p.SweepLimit = cfg.Scheduler.SweepBatchSize
	}
	return p, nil
}
