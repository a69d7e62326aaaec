package email

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	dbgen "github.com/codr1/courtwallet/internal/db/generated"
	"github.com/codr1/courtwallet/internal/testutil"
)

type sentEmail struct {
	recipient string
	subject   string
	ctxErr    error
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	done chan struct{}
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{done: make(chan struct{}, 4)}
}

func (f *fakeEmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentEmail{recipient: recipient, subject: subject, ctxErr: ctx.Err()})
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeEmailSender) calls() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

func TestSendMemberNoticeDetachesFromCanceledContext(t *testing.T) {
	database := testutil.NewTestDB(t)
	memberID := testutil.InsertMember(t, database, "u-1", "member@test.com", decimal.Zero)
	sender := newFakeEmailSender()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	SendMemberNotice(ctx, database.Queries, sender, memberID, Message{Subject: "Subject", Body: "Body"}, nil)

	select {
	case <-sender.done:
	case <-time.After(time.Second):
		t.Fatal("expected notice to be sent")
	}
	calls := sender.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one send, got %d", len(calls))
	}
	if calls[0].recipient != "member@test.com" {
		t.Fatalf("unexpected recipient %q", calls[0].recipient)
	}
	if calls[0].ctxErr != nil {
		t.Fatalf("send context should not inherit cancellation, got %v", calls[0].ctxErr)
	}
}

func TestSendMemberNoticeSkipsMemberWithoutEmail(t *testing.T) {
	database := testutil.NewTestDB(t)
	id, err := database.Queries.CreateMember(context.Background(), dbgen.CreateMemberParams{
		UserID:    "u-2",
		FullName:  "No Mail",
		Email:     sql.NullString{},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	sender := newFakeEmailSender()

	SendMemberNotice(context.Background(), database.Queries, sender, id, Message{Subject: "Subject", Body: "Body"}, nil)

	select {
	case <-sender.done:
		t.Fatal("expected no send for member without email")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBuildReservationCancelledIncludesRefund(t *testing.T) {
	start := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	msg := BuildReservationCancelled(CancellationDetails{
		ReservationDetails: ReservationDetails{CourtName: "Court 1", Start: start, End: start.Add(time.Hour)},
		RefundPercent:      50,
		RefundAmount:       "75000.00",
	})
	if msg.Subject != "Reservation Cancelled" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "75000.00 (50%)") {
		t.Fatalf("expected refund line in body: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "Monday, Mar 2, 2026") {
		t.Fatalf("expected formatted date in body: %q", msg.Body)
	}
}

func TestBuildDepositSettled(t *testing.T) {
	if got := BuildDepositSettled("100.00", true).Subject; got != "Deposit Approved" {
		t.Fatalf("unexpected approved subject %q", got)
	}
	if got := BuildDepositSettled("100.00", false).Subject; got != "Deposit Rejected" {
		t.Fatalf("unexpected rejected subject %q", got)
	}
}
