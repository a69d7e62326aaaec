// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtwallet/internal/api/apiutil"
	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/booking"
	"github.com/codr1/courtwallet/internal/ledger"
	"github.com/codr1/courtwallet/internal/ratelimit"
)

var (
	service     *booking.Service
	limiter     *ratelimit.Limiter
	serviceOnce sync.Once
)

const (
	reservationIDParam = "id"
	requestTimeout     = 10 * time.Second
)

// InitHandlers must be called during server startup before handling requests.
// A nil limiter disables hold throttling.
func InitHandlers(svc *booking.Service, holdLimiter *ratelimit.Limiter) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
		limiter = holdLimiter
	})
}

func loadService(w http.ResponseWriter, r *http.Request) *booking.Service {
	if service == nil {
		log.Ctx(r.Context()).Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	return service
}

type createRequest struct {
	CourtID   int64  `json:"court_id"`
	MemberID  int64  `json:"member_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type moveRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type reservationResponse struct {
	Reservation apiutil.ReservationView `json:"reservation"`
	Balance     string                  `json:"balance"`
}

type holdResponse struct {
	reservationResponse
	ExpiresAt        time.Time `json:"expires_at"`
	SecondsRemaining int64     `json:"seconds_remaining"`
}

type cancelResponse struct {
	reservationResponse
	RefundPercent int    `json:"refund_percent"`
	RefundAmount  string `json:"refund_amount"`
	Message       string `json:"message"`
}

type moveResponse struct {
	reservationResponse
	PreviousStart time.Time `json:"previous_start"`
	PreviousEnd   time.Time `json:"previous_end"`
	PriceDelta    string    `json:"price_delta"`
	Fee           string    `json:"fee"`
}

func newReservationResponse(res booking.Result) reservationResponse {
	return reservationResponse{
		Reservation: apiutil.NewReservationView(res.Reservation),
		Balance:     res.Balance.StringFixed(ledger.Scale),
	}
}

// decodeCreate parses a booking body. member_id defaults to the caller.
func decodeCreate(r *http.Request, actor authz.Actor, loc *time.Location) (booking.CreateInput, error) {
	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		return booking.CreateInput{}, err
	}
	if req.CourtID <= 0 {
		return booking.CreateInput{}, apiutil.FieldError{Field: "court_id", Reason: "must be greater than 0"}
	}
	if req.MemberID == 0 {
		req.MemberID = actor.AccountID
	}
	if req.MemberID <= 0 {
		return booking.CreateInput{}, apiutil.FieldError{Field: "member_id", Reason: "is required"}
	}
	start, err := apiutil.ParseTime(req.StartTime, "start_time", loc)
	if err != nil {
		return booking.CreateInput{}, err
	}
	end, err := apiutil.ParseTime(req.EndTime, "end_time", loc)
	if err != nil {
		return booking.CreateInput{}, err
	}
	return booking.CreateInput{CourtID: req.CourtID, MemberID: req.MemberID, Start: start, End: end}, nil
}

// POST /api/v1/reservations
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	in, err := decodeCreate(r, actor, svc.Policy().Location)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := svc.Create(ctx, actor, in)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, newReservationResponse(res))
}

// POST /api/v1/reservations/holds
func HandleHold(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	in, err := decodeCreate(r, actor, svc.Policy().Location)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	if limiter != nil {
		if result := limiter.CheckHold(in.MemberID); !result.Allowed {
			ratelimit.LogRateLimitExceeded(in.MemberID, ratelimit.GetClientIP(r, false), result.Reason)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			apiutil.WriteJSON(w, http.StatusTooManyRequests, apiutil.ErrorBody{Error: apiutil.ErrorDetail{
				Code:      "RATE_LIMITED",
				Message:   "too many holds, try again shortly",
				Retryable: true,
			}})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := svc.Hold(ctx, actor, in)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if limiter != nil {
		limiter.RecordHold(in.MemberID)
	}
	apiutil.WriteJSON(w, http.StatusCreated, holdResponse{
		reservationResponse: newReservationResponse(res.Result),
		ExpiresAt:           res.ExpiresAt,
		SecondsRemaining:    res.SecondsRemaining,
	})
}

// POST /api/v1/reservations/{id}/confirm
func HandleConfirm(w http.ResponseWriter, r *http.Request) {
	svc, actor, id, ok := prepareByID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := svc.Confirm(ctx, actor, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, newReservationResponse(res))
}

// POST /api/v1/reservations/{id}/cancel
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	svc, actor, id, ok := prepareByID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := svc.Cancel(ctx, actor, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, cancelResponse{
		reservationResponse: newReservationResponse(res.Result),
		RefundPercent:       res.RefundPercent,
		RefundAmount:        res.Refund.StringFixed(ledger.Scale),
		Message:             res.Message,
	})
}

// GET /api/v1/reservations/{id}/cancel-preview
func HandleCancelPreview(w http.ResponseWriter, r *http.Request) {
	svc, actor, id, ok := prepareByID(w, r)
	if !ok {
		return
	}
	preview, err := svc.CancelPreview(r.Context(), actor, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, preview)
}

// POST /api/v1/reservations/{id}/edit
func HandleEdit(w http.ResponseWriter, r *http.Request) {
	handleMove(w, r, (*booking.Service).Edit)
}

// POST /api/v1/reservations/{id}/reschedule
func HandleReschedule(w http.ResponseWriter, r *http.Request) {
	handleMove(w, r, (*booking.Service).Reschedule)
}

type moveFunc func(*booking.Service, context.Context, authz.Actor, int64, time.Time, time.Time) (booking.ModifyResult, error)

func handleMove(w http.ResponseWriter, r *http.Request, move moveFunc) {
	svc, actor, id, ok := prepareByID(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}
	loc := svc.Policy().Location
	start, err := apiutil.ParseTime(req.StartTime, "start_time", loc)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}
	end, err := apiutil.ParseTime(req.EndTime, "end_time", loc)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	res, err := move(svc, ctx, actor, id, start, end)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, moveResponse{
		reservationResponse: newReservationResponse(res.Result),
		PreviousStart:       res.PreviousStart,
		PreviousEnd:         res.PreviousEnd,
		PriceDelta:          res.Delta.StringFixed(ledger.Scale),
		Fee:                 res.Fee.StringFixed(ledger.Scale),
	})
}

// GET /api/v1/reservations/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	svc, actor, id, ok := prepareByID(w, r)
	if !ok {
		return
	}
	res, err := svc.Get(r.Context(), actor, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, apiutil.NewReservationView(res))
}

// GET /api/v1/reservations?member_id=&limit=
func HandleList(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	memberID := actor.AccountID
	if raw := r.URL.Query().Get("member_id"); raw != "" {
		id, err := apiutil.ParsePositiveInt64Field(raw, "member_id")
		if err != nil {
			apiutil.BadRequest(w, r, err)
			return
		}
		memberID = id
	}
	limit, err := apiutil.QueryInt(r, "limit", 50)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	list, err := svc.ListForMember(r.Context(), actor, memberID, limit)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservations": apiutil.NewReservationViews(list)})
}

func prepareByID(w http.ResponseWriter, r *http.Request) (*booking.Service, authz.Actor, int64, bool) {
	svc := loadService(w, r)
	if svc == nil {
		return nil, authz.Actor{}, 0, false
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return nil, authz.Actor{}, 0, false
	}
	id, err := apiutil.PathID(r, reservationIDParam)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return nil, authz.Actor{}, 0, false
	}
	return svc, actor, id, true
}
