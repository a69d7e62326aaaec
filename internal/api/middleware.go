// internal/api/middleware.go
package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtwallet/internal/api/apiutil"
	"github.com/codr1/courtwallet/internal/api/authz"
	"github.com/codr1/courtwallet/internal/ratelimit"
)

const (
	HeaderAccountID   = "X-Account-ID"
	HeaderAccountRole = "X-Account-Role"
)

type requestIDKey struct{}

type Middleware func(http.Handler) http.Handler

func ChainMiddleware(h http.Handler, middleware ...Middleware) http.Handler {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

// RequestID returns the id assigned by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithLogging logs each request. trustProxy controls whether forwarding
// headers are believed when recording the client address.
func WithLogging(trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)
			log.Ctx(r.Context()).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.status).
				Dur("duration", time.Since(start)).
				Str("client_ip", ratelimit.GetClientIP(r, trustProxy)).
				Msg("Request completed")
		})
	}
}

func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Ctx(r.Context()).Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				apiutil.WriteJSON(w, http.StatusInternalServerError, apiutil.ErrorBody{
					Error: apiutil.ErrorDetail{Code: "INTERNAL", Message: "internal error"},
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// WithRequestID tags the request and its logger with an id, reusing an
// inbound X-Request-ID when it is a valid UUID.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		if inbound, err := uuid.Parse(r.Header.Get("X-Request-ID")); err == nil {
			requestID = inbound.String()
		}

		logger := log.With().Str("request_id", requestID).Logger()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = logger.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity reads the caller identity set by the fronting gateway. A
// request without a usable account id proceeds anonymously; handlers decide
// whether that is acceptable.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := strings.TrimSpace(r.Header.Get(HeaderAccountRole))
		rawID := strings.TrimSpace(r.Header.Get(HeaderAccountID))

		var actor *authz.Actor
		if id, err := strconv.ParseInt(rawID, 10, 64); err == nil && id > 0 {
			actor = &authz.Actor{AccountID: id, Privileged: authz.IsPrivilegedRole(role)}
		} else if rawID == "" && authz.IsPrivilegedRole(role) {
			actor = &authz.Actor{Privileged: true}
		} else if rawID != "" {
			log.Ctx(r.Context()).Warn().Str("account_id", rawID).Msg("Ignoring malformed account id header")
		}

		if actor != nil {
			logger := log.Ctx(r.Context()).With().
				Int64("account_id", actor.AccountID).
				Bool("privileged", actor.Privileged).
				Logger()
			ctx := authz.ContextWithActor(r.Context(), actor)
			r = r.WithContext(logger.WithContext(ctx))
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wrapper to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
