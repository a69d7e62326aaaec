package events

import (
	"context"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/email"
)

// EmailSink forwards member notices by email. Calendar and balance events
// are not mailed.
type EmailSink struct {
	queries *dbgen.Queries
	sender  email.EmailSender
}

func NewEmailSink(queries *dbgen.Queries, sender email.EmailSender) *EmailSink {
	return &EmailSink{queries: queries, sender: sender}
}

func (s *EmailSink) CalendarChanged(context.Context, CalendarChange) {}

func (s *EmailSink) BalanceChanged(context.Context, BalanceChange) {}

func (s *EmailSink) Message(ctx context.Context, notice Notice) {
	logger := log.Ctx(ctx)
	email.SendMemberNotice(ctx, s.queries, s.sender, notice.AccountID, email.Message{
		Subject: notice.Subject,
		Body:    notice.Body,
	}, logger)
}
