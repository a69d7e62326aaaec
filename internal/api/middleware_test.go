package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/codr1/courtwallet/internal/api/authz"
)

func TestWithIdentity(t *testing.T) {
	tests := []struct {
		name       string
		id, role   string
		wantActor  bool
		wantID     int64
		privileged bool
	}{
		{"member", "42", "member", true, 42, false},
		{"staff with account", "7", "Manager", true, 7, true},
		{"staff without account", "", "admin", true, 0, true},
		{"anonymous", "", "", false, 0, false},
		{"malformed id", "abc", "admin", false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *authz.Actor
			h := WithIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = authz.ActorFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != "" {
				req.Header.Set(HeaderAccountID, tt.id)
			}
			if tt.role != "" {
				req.Header.Set(HeaderAccountRole, tt.role)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (got != nil) != tt.wantActor {
				t.Fatalf("actor present = %v, want %v", got != nil, tt.wantActor)
			}
			if got != nil && (got.AccountID != tt.wantID || got.Privileged != tt.privileged) {
				t.Fatalf("unexpected actor %+v", got)
			}
		})
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(seen); err != nil || rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("expected generated uuid, got %q", seen)
	}

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", inbound)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != inbound {
		t.Fatalf("expected inbound id %s, got %s", inbound, seen)
	}
}

func TestWithRecovery(t *testing.T) {
	h := ChainMiddleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
		WithRecovery,
		WithLogging(false),
		WithRequestID,
	)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
