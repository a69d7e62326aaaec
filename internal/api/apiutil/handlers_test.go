package apiutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/apperror"
)

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.New(apperror.SlotConflict, "taken"), http.StatusConflict, "TIME_SLOT_CONFLICT"},
		{fmt.Errorf("wrapped: %w", apperror.New(apperror.InsufficientBalance, "low")), http.StatusPaymentRequired, "INSUFFICIENT_BALANCE"},
		{apperror.New(apperror.CancelTooLate, "late"), http.StatusUnprocessableEntity, "CANCEL_TOO_LATE"},
		{apperror.New(apperror.HoldExpired, "gone"), http.StatusGone, "HOLD_EXPIRED"},
		{apperror.New(apperror.ReservationNotFound, "missing"), http.StatusNotFound, "RESERVATION_NOT_FOUND"},
		{FieldError{Field: "court_id", Reason: "is required"}, http.StatusBadRequest, "INVALID_INPUT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if rec.Code != tt.status {
				t.Fatalf("status: got %d want %d", rec.Code, tt.status)
			}
			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Code != tt.code {
				t.Fatalf("code: got %s want %s", body.Error.Code, tt.code)
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(body.Error.Message, "fire") {
				t.Fatalf("internal error message leaked: %q", body.Error.Message)
			}
		})
	}
}

func TestWriteErrorTransient(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		apperror.Wrap(apperror.TransientStorageFailure, errors.New("database is locked"), "storage busy"))

	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 503 with Retry-After, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if !strings.Contains(rec.Body.String(), `"retryable":true`) {
		t.Fatalf("expected retryable flag, got %s", rec.Body.String())
	}
}

func TestRequireActor(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, ok := RequireActor(rec, httptest.NewRequest(http.MethodGet, "/", nil)); ok || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authz.ContextWithActor(req.Context(), &authz.Actor{AccountID: 3}))
	rec = httptest.NewRecorder()
	if _, ok := RequirePrivileged(rec, req); ok || rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a member, got %d", rec.Code)
	}
}

func TestParseFields(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	got, err := ParseTime("2030-06-03T10:00", "start_time", ny)
	if err != nil || !got.Equal(time.Date(2030, 6, 3, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("local time: %v %v", got, err)
	}
	if _, err := ParseTime("tomorrow", "start_time", time.UTC); err == nil {
		t.Fatalf("expected invalid time to fail")
	}

	amount, err := ParseAmount("250.50", "amount")
	if err != nil || amount.String() != "250.5" {
		t.Fatalf("amount: %v %v", amount, err)
	}
	for _, bad := range []string{"", "-5", "0", "abc", "1.234"} {
		if _, err := ParseAmount(bad, "amount"); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
