package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/apperror"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.InvalidTimeRange, apperror.DurationOutOfRange, apperror.InvalidInput, apperror.NoSlotsGenerated:
		return http.StatusBadRequest
	case apperror.ResourceNotFound, apperror.AccountNotFound, apperror.ReservationNotFound, apperror.EntryNotFound:
		return http.StatusNotFound
	case apperror.SlotConflict, apperror.AlreadyCancelled, apperror.AlreadyCompleted, apperror.InvalidState, apperror.NotPending:
		return http.StatusConflict
	case apperror.InsufficientBalance:
		return http.StatusPaymentRequired
	case apperror.HoldExpired:
		return http.StatusGone
	case apperror.ResourceInactive, apperror.CancelTooLate, apperror.EditWindowExpired, apperror.RescheduleTooSoon:
		return http.StatusUnprocessableEntity
	case apperror.Forbidden, apperror.TierRequired:
		return http.StatusForbidden
	case apperror.TransientStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as a JSON error. Unclassified errors are logged and
// reported without their message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())
	kind := apperror.KindOf(err)
	status := StatusFor(kind)

	detail := ErrorDetail{Code: string(kind), Message: err.Error()}
	var fieldErr FieldError
	switch {
	case errors.As(err, &fieldErr):
		status = http.StatusBadRequest
		detail.Code = string(apperror.InvalidInput)
	case status == http.StatusInternalServerError:
		logger.Error().Err(err).Msg("Request failed")
		detail.Message = "internal error"
	case kind == apperror.TransientStorageFailure:
		logger.Warn().Err(err).Msg("Storage busy")
		detail.Retryable = true
		w.Header().Set("Retry-After", "1")
	default:
		logger.Debug().Err(err).Str("code", detail.Code).Msg("Request rejected")
	}

	if writeErr := WriteJSON(w, status, ErrorBody{Error: detail}); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// BadRequest reports a malformed request.
func BadRequest(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, apperror.Wrap(apperror.InvalidInput, err, err.Error()))
}

// RequireActor returns the caller's identity, writing 401 when there is none.
func RequireActor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, err := authz.RequireActor(r.Context())
	if err != nil {
		unauthenticated(w, r)
		return authz.Actor{}, false
	}
	return actor, true
}

// RequirePrivileged is RequireActor restricted to staff.
func RequirePrivileged(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, err := authz.RequirePrivileged(r.Context())
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		unauthenticated(w, r)
		return authz.Actor{}, false
	case err != nil:
		log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Access denied: forbidden")
		WriteError(w, r, apperror.New(apperror.Forbidden, "staff access required"))
		return authz.Actor{}, false
	}
	return actor, true
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
	WriteJSON(w, http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{Code: "UNAUTHENTICATED", Message: "authentication required"}})
}
