package reservations

import (
	"context"
	"net/http"

	"github.com/codr1/courtwallet/internal/api/apiutil"
	"github.com/codr1/courtwallet/internal/booking"
	"github.com/codr1/courtwallet/internal/ledger"
)

type recurringRequest struct {
	CourtID        int64  `json:"court_id"`
	MemberID       int64  `json:"member_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Pattern        string `json:"pattern"`
	MaxOccurrences int    `json:"max_occurrences"`
}

type recurringResponse struct {
	BatchID        int64                     `json:"batch_id"`
	RecurrenceRule string                    `json:"recurrence_rule"`
	PricePerSlot   string                    `json:"price_per_slot"`
	TotalPrice     string                    `json:"total_price"`
	Reservations   []apiutil.ReservationView `json:"reservations"`
	Balance        string                    `json:"balance"`
}

// POST /api/v1/reservations/recurring
func HandleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	var req recurringRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}
	in, err := recurringInput(req, actor.AccountID, svc)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := svc.CreateRecurring(ctx, actor, in)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, recurringResponse{
		BatchID:        res.Batch.ID,
		RecurrenceRule: res.Batch.RecurrenceRule,
		PricePerSlot:   res.Batch.PricePerSlot.StringFixed(ledger.Scale),
		TotalPrice:     res.Batch.TotalPrice.StringFixed(ledger.Scale),
		Reservations:   apiutil.NewReservationViews(res.Reservations),
		Balance:        res.Balance.StringFixed(ledger.Scale),
	})
}

func recurringInput(req recurringRequest, callerID int64, svc *booking.Service) (booking.RecurringInput, error) {
	if req.CourtID <= 0 {
		return booking.RecurringInput{}, apiutil.FieldError{Field: "court_id", Reason: "must be greater than 0"}
	}
	if req.MemberID == 0 {
		req.MemberID = callerID
	}
	if req.MaxOccurrences < 0 {
		return booking.RecurringInput{}, apiutil.FieldError{Field: "max_occurrences", Reason: "must be 0 or greater"}
	}
	loc := svc.Policy().Location
	startDate, err := apiutil.ParseDate(req.StartDate, "start_date", loc)
	if err != nil {
		return booking.RecurringInput{}, err
	}
	endDate, err := apiutil.ParseDate(req.EndDate, "end_date", loc)
	if err != nil {
		return booking.RecurringInput{}, err
	}
	slotStart, err := booking.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return booking.RecurringInput{}, err
	}
	slotEnd, err := booking.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return booking.RecurringInput{}, err
	}
	return booking.RecurringInput{
		CourtID:        req.CourtID,
		MemberID:       req.MemberID,
		StartDate:      startDate,
		EndDate:        endDate,
		SlotStart:      slotStart,
		SlotEnd:        slotEnd,
		Pattern:        req.Pattern,
		MaxOccurrences: req.MaxOccurrences,
	}, nil
}
