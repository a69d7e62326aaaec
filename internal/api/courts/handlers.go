// internal/api/courts/handlers.go
package courts

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtwallet/internal/api/apiutil"
	"github.com/codr1/courtwallet/internal/apperror"
	"github.com/codr1/courtwallet/internal/booking"
	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/ledger"
)

var (
	queries     *dbgen.Queries
	service     *booking.Service
	queriesOnce sync.Once
)

const maxCalendarSpan = 31 * 24 * time.Hour

func InitHandlers(q *dbgen.Queries, svc *booking.Service) {
	if q == nil || svc == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
		service = svc
	})
}

type courtView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PricePerHour string `json:"price_per_hour"`
}

// GET /api/v1/courts
func HandleList(w http.ResponseWriter, r *http.Request) {
	if queries == nil {
		log.Ctx(r.Context()).Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	list, err := queries.ListActiveCourts(r.Context())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	out := make([]courtView, 0, len(list))
	for _, c := range list {
		out = append(out, courtView{ID: c.ID, Name: c.Name, PricePerHour: c.PricePerHour.StringFixed(ledger.Scale)})
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": out})
}

// GET /api/v1/courts/availability?date=YYYY-MM-DD[&court_id=N]
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	if service == nil {
		log.Ctx(r.Context()).Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	loc := service.Policy().Location

	date := service.Now().In(loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := apiutil.ParseDate(raw, "date", loc)
		if err != nil {
			apiutil.BadRequest(w, r, err)
			return
		}
		date = parsed
	}
	var courtID int64
	if raw := r.URL.Query().Get("court_id"); raw != "" {
		id, err := apiutil.ParsePositiveInt64Field(raw, "court_id")
		if err != nil {
			apiutil.BadRequest(w, r, err)
			return
		}
		courtID = id
	}

	courts, err := service.ListAvailability(r.Context(), date, courtID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"date":   date.Format("2006-01-02"),
		"courts": courts,
	})
}

// GET /api/v1/courts/calendar?from=&to=
func HandleCalendar(w http.ResponseWriter, r *http.Request) {
	if service == nil {
		log.Ctx(r.Context()).Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if _, ok := apiutil.RequirePrivileged(w, r); !ok {
		return
	}
	loc := service.Policy().Location
	from, err := apiutil.ParseTime(r.URL.Query().Get("from"), "from", loc)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}
	to, err := apiutil.ParseTime(r.URL.Query().Get("to"), "to", loc)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}
	if !to.After(from) || to.Sub(from) > maxCalendarSpan {
		apiutil.WriteError(w, r, apperror.New(apperror.InvalidTimeRange, "calendar window must be positive and at most 31 days"))
		return
	}

	list, err := service.Calendar(r.Context(), from, to)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"reservations": apiutil.NewReservationViews(list)})
}
