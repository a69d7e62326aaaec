package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSink writes every event to the request logger.
type LogSink struct{}

func (LogSink) CalendarChanged(ctx context.Context, change CalendarChange) {
	log.Ctx(ctx).Info().
		Str("event", "calendar.changed").
		Ints64("court_ids", change.CourtIDs).
		Str("reason", change.Reason).
		Msg("Calendar changed")
}

func (LogSink) BalanceChanged(ctx context.Context, change BalanceChange) {
	log.Ctx(ctx).Info().
		Str("event", "balance.changed").
		Int64("account_id", change.AccountID).
		Str("balance", change.Balance.StringFixed(2)).
		Str("reason", change.Reason).
		Msg("Balance changed")
}

func (LogSink) Message(ctx context.Context, notice Notice) {
	log.Ctx(ctx).Debug().
		Str("event", "member.message").
		Int64("account_id", notice.AccountID).
		Str("subject", notice.Subject).
		Msg("Member notice")
}
