package apiutil

import (
	"time"

	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/ledger"
)

type ReservationView struct {
	ID            int64      `json:"id"`
	CourtID       int64      `json:"court_id"`
	MemberID      int64      `json:"member_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	TotalPrice    string     `json:"total_price"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	BatchID       *int64     `json:"batch_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewReservationView(r dbgen.Reservation) ReservationView {
	v := ReservationView{
		ID:         r.ID,
		CourtID:    r.CourtID,
		MemberID:   r.MemberID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		TotalPrice: r.TotalPrice.StringFixed(ledger.Scale),
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.HoldExpiresAt.Valid {
		t := r.HoldExpiresAt.Time
		v.HoldExpiresAt = &t
	}
	if r.BatchID.Valid {
		id := r.BatchID.Int64
		v.BatchID = &id
	}
	return v
}

func NewReservationViews(list []dbgen.Reservation) []ReservationView {
	out := make([]ReservationView, 0, len(list))
	for _, r := range list {
		out = append(out, NewReservationView(r))
	}
	return out
}

type EntryView struct {
	ID            int64      `json:"id"`
	MemberID      int64      `json:"member_id"`
	Amount        string     `json:"amount"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	Description   string     `json:"description"`
	ReservationID *int64     `json:"reservation_id,omitempty"`
	BatchID       *int64     `json:"batch_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

func NewEntryView(e dbgen.LedgerEntry) EntryView {
	v := EntryView{
		ID:          e.ID,
		MemberID:    e.MemberID,
		Amount:      e.Amount.StringFixed(ledger.Scale),
		Kind:        e.Kind,
		Status:      e.Status,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
	if e.ReservationID.Valid {
		id := e.ReservationID.Int64
		v.ReservationID = &id
	}
	if e.BatchID.Valid {
		id := e.BatchID.Int64
		v.BatchID = &id
	}
	if e.SettledAt.Valid {
		t := e.SettledAt.Time
		v.SettledAt = &t
	}
	return v
}

func NewEntryViews(list []dbgen.LedgerEntry) []EntryView {
	out := make([]EntryView, 0, len(list))
	for _, e := range list {
		out = append(out, NewEntryView(e))
	}
	return out
}
