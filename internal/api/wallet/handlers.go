// internal/api/wallet/handlers.go
package wallet

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtwallet/internal/api/apiutil"
	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/apperror"
	"github.com/codr1/courtwallet/internal/ledger"
)

var (
	wallet     *ledger.Ledger
	walletOnce sync.Once
)

const (
	accountIDParam = "id"
	entryIDParam   = "id"
)

func InitHandlers(led *ledger.Ledger) {
	if led == nil {
		return
	}
	walletOnce.Do(func() {
		wallet = led
	})
}

type balanceResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
}

type entriesResponse struct {
	Entries  []apiutil.EntryView `json:"entries"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

type depositRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type settleResponse struct {
	Entry   apiutil.EntryView `json:"entry"`
	Balance string            `json:"balance"`
}

type verifyResponse struct {
	AccountID  int64  `json:"account_id"`
	Cached     string `json:"cached_balance"`
	Computed   string `json:"ledger_balance"`
	Consistent bool   `json:"consistent"`
}

// accountFor resolves the account in the path and checks the caller may see it.
func accountFor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if wallet == nil {
		log.Ctx(r.Context()).Error().Msg("Ledger not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return 0, false
	}
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return 0, false
	}
	accountID, err := apiutil.PathID(r, accountIDParam)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return 0, false
	}
	if !authz.CanActFor(actor, accountID) {
		apiutil.WriteError(w, r, apperror.New(apperror.Forbidden, "not allowed to access account %d", accountID))
		return 0, false
	}
	return accountID, true
}

// GET /api/v1/accounts/{id}/balance
func HandleBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFor(w, r)
	if !ok {
		return
	}
	balance, err := wallet.Balance(r.Context(), accountID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance.StringFixed(ledger.Scale)})
}

// GET /api/v1/accounts/{id}/entries?page=&page_size=
func HandleEntries(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFor(w, r)
	if !ok {
		return
	}
	page, err := apiutil.QueryInt(r, "page", 1)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}
	pageSize, err := apiutil.QueryInt(r, "page_size", 0)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	result, err := wallet.Entries(r.Context(), accountID, page, pageSize)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, entriesResponse{
		Entries:  apiutil.NewEntryViews(result.Entries),
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

// POST /api/v1/accounts/{id}/deposits
func HandleRequestDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFor(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}
	amount, err := apiutil.ParseAmount(req.Amount, "amount")
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	entry, err := wallet.RequestDeposit(r.Context(), accountID, amount, req.Description)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, apiutil.NewEntryView(entry))
}

// GET /api/v1/deposits/pending
func HandlePendingDeposits(w http.ResponseWriter, r *http.Request) {
	if wallet == nil {
		log.Ctx(r.Context()).Error().Msg("Ledger not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if _, ok := apiutil.RequirePrivileged(w, r); !ok {
		return
	}
	list, err := wallet.PendingDeposits(r.Context())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"entries": apiutil.NewEntryViews(list)})
}

// POST /api/v1/deposits/{id}/approve
func HandleApproveDeposit(w http.ResponseWriter, r *http.Request) {
	settle(w, r, true)
}

// POST /api/v1/deposits/{id}/reject
func HandleRejectDeposit(w http.ResponseWriter, r *http.Request) {
	settle(w, r, false)
}

func settle(w http.ResponseWriter, r *http.Request, approved bool) {
	if wallet == nil {
		log.Ctx(r.Context()).Error().Msg("Ledger not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	actor, ok := apiutil.RequirePrivileged(w, r)
	if !ok {
		return
	}
	entryID, err := apiutil.PathID(r, entryIDParam)
	if err != nil {
		apiutil.BadRequest(w, r, err)
		return
	}

	posting, err := wallet.SettlePending(r.Context(), entryID, approved)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	log.Ctx(r.Context()).Info().
		Int64("entry_id", entryID).
		Int64("settled_by", actor.AccountID).
		Bool("approved", approved).
		Msg("Deposit settled")
	apiutil.WriteJSON(w, http.StatusOK, settleResponse{
		Entry:   apiutil.NewEntryView(posting.Entry),
		Balance: posting.Balance.StringFixed(ledger.Scale),
	})
}

// GET /api/v1/accounts/{id}/verify
func HandleVerify(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequirePrivileged(w, r); !ok {
		return
	}
	accountID, ok := accountFor(w, r)
	if !ok {
		return
	}
	v, err := wallet.VerifyBalance(r.Context(), accountID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, verifyResponse{
		AccountID:  accountID,
		Cached:     v.Cached.StringFixed(ledger.Scale),
		Computed:   v.Computed.StringFixed(ledger.Scale),
		Consistent: v.Consistent,
	})
}
