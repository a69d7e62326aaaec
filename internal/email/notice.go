package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	dbgen "github.com/codr1/courtwallet/internal/db/generated"
)

const noticeEmailTimeout = 5 * time.Second

// SendMemberNotice looks up the member's email and sends msg asynchronously,
// outliving the caller's context.
// Members without an email address are skipped.
func SendMemberNotice(ctx context.Context, q *dbgen.Queries, sender EmailSender, memberID int64, msg Message, logger *zerolog.Logger) {
	if sender == nil || q == nil {
		return
	}
	if msg.Subject == "" || msg.Body == "" {
		return
	}

	go func() {
		sendCtx, cancel := newEmailContext(ctx, noticeEmailTimeout)
		defer cancel()

		member, err := q.GetMember(sendCtx, memberID)
		if err != nil {
			if logger != nil {
				logger.Error().Err(err).Int64("member_id", memberID).Msg("Failed to load member for notice email")
			}
			return
		}
		if !member.Email.Valid {
			return
		}
		recipient := strings.TrimSpace(member.Email.String)
		if recipient == "" {
			return
		}
		if err := sender.Send(sendCtx, recipient, msg.Subject, msg.Body); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send notice email")
		}
	}()
}

// newEmailContext keeps the caller's values but not its cancellation, so a
// finished request does not abort the send.
func newEmailContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
