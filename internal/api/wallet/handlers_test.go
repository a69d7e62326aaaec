package wallet

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/codr1/courtwallet/internal/api/authz"
	appdb "github.com/codr1/courtwallet/internal/db"
	"github.com/codr1/courtwallet/internal/ledger"
	"github.com/codr1/courtwallet/internal/testutil"
)

func setupWalletTest(t *testing.T) (*appdb.DB, int64) {
	t.Helper()

	database := testutil.NewTestDB(t)
	memberID := testutil.InsertMember(t, database, "member-1", "", decimal.NewFromInt(1000))

	wallet = nil
	walletOnce = sync.Once{}
	InitHandlers(ledger.New(database))

	t.Cleanup(func() {
		wallet = nil
		walletOnce = sync.Once{}
	})
	return database, memberID
}

func withActor(req *http.Request, accountID int64, privileged bool) *http.Request {
	return req.WithContext(authz.ContextWithActor(req.Context(), &authz.Actor{AccountID: accountID, Privileged: privileged}))
}

func TestHandleBalance(t *testing.T) {
	_, memberID := setupWalletTest(t)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/balance", memberID), nil)
	req.SetPathValue(accountIDParam, fmt.Sprint(memberID))
	req = withActor(req, memberID, false)
	recorder := httptest.NewRecorder()

	HandleBalance(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	var resp balanceResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != "1000.00" {
		t.Fatalf("balance: %s", resp.Balance)
	}
}

func TestHandleBalance_OtherAccountForbidden(t *testing.T) {
	_, memberID := setupWalletTest(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue(accountIDParam, fmt.Sprint(memberID))
	req = withActor(req, memberID+1, false)
	recorder := httptest.NewRecorder()

	HandleBalance(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestDepositLifecycle(t *testing.T) {
	database, memberID := setupWalletTest(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"250.00"}`))
	req.SetPathValue(accountIDParam, fmt.Sprint(memberID))
	req = withActor(req, memberID, false)
	recorder := httptest.NewRecorder()
	HandleRequestDeposit(recorder, req)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("deposit status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	var entry struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Status != "pending" {
		t.Fatalf("expected pending deposit, got %s", entry.Status)
	}

	// Members cannot approve their own deposits.
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.SetPathValue(entryIDParam, fmt.Sprint(entry.ID))
	req = withActor(req, memberID, false)
	recorder = httptest.NewRecorder()
	HandleApproveDeposit(recorder, req)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("member approve status: %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = withActor(req, 0, true)
	recorder = httptest.NewRecorder()
	HandlePendingDeposits(recorder, req)
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), `"status":"pending"`) {
		t.Fatalf("pending list: %d %s", recorder.Code, recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.SetPathValue(entryIDParam, fmt.Sprint(entry.ID))
	req = withActor(req, 0, true)
	recorder = httptest.NewRecorder()
	HandleApproveDeposit(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("approve status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	var settled settleResponse
	if err := json.NewDecoder(recorder.Body).Decode(&settled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if settled.Balance != "1250.00" || settled.Entry.Status != "completed" {
		t.Fatalf("unexpected settlement %+v", settled)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.SetPathValue(entryIDParam, fmt.Sprint(entry.ID))
	req = withActor(req, 0, true)
	recorder = httptest.NewRecorder()
	HandleRejectDeposit(recorder, req)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("second settlement status: %d", recorder.Code)
	}

	member, err := database.Queries.GetMember(req.Context(), memberID)
	if err != nil {
		t.Fatalf("load member: %v", err)
	}
	if !member.WalletBalance.Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("balance: %s", member.WalletBalance)
	}
}

func TestHandleRequestDeposit_InvalidAmount(t *testing.T) {
	_, memberID := setupWalletTest(t)

	for _, body := range []string{`{"amount":"-5"}`, `{"amount":"abc"}`, `{}`, `{"amount":"5","extra":1}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.SetPathValue(accountIDParam, fmt.Sprint(memberID))
		req = withActor(req, memberID, false)
		recorder := httptest.NewRecorder()
		HandleRequestDeposit(recorder, req)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status %d", body, recorder.Code)
		}
	}
}

func TestHandleEntriesAndVerify(t *testing.T) {
	_, memberID := setupWalletTest(t)

	req := httptest.NewRequest(http.MethodGet, "/?page=1&page_size=10", nil)
	req.SetPathValue(accountIDParam, fmt.Sprint(memberID))
	req = withActor(req, memberID, false)
	recorder := httptest.NewRecorder()
	HandleEntries(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("entries status: %d", recorder.Code)
	}
	var page entriesResponse
	if err := json.NewDecoder(recorder.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Entries) != 1 || page.Entries[0].Amount != "1000.00" {
		t.Fatalf("unexpected page %+v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue(accountIDParam, fmt.Sprint(memberID))
	req = withActor(req, memberID, false)
	recorder = httptest.NewRecorder()
	HandleVerify(recorder, req)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("member verify status: %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue(accountIDParam, fmt.Sprint(memberID))
	req = withActor(req, 0, true)
	recorder = httptest.NewRecorder()
	HandleVerify(recorder, req)
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), `"consistent":true`) {
		t.Fatalf("verify: %d %s", recorder.Code, recorder.Body.String())
	}
}
