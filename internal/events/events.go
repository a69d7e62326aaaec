// Package events delivers post-commit notifications about calendar, wallet
// and member changes. Delivery is fire-and-forget: sinks log their own
// failures and never report them to the caller.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CalendarChange tells subscribers that availability changed for courts.
type CalendarChange struct {
	CourtIDs []int64   `json:"court_ids"`
	Start    time.Time `json:"start,omitempty"`
	End      time.Time `json:"end,omitempty"`
	Reason   string    `json:"reason"`
}

type BalanceChange struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Reason    string          `json:"reason"`
}

// Notice is a human-readable message addressed to one account.
type Notice struct {
	AccountID int64  `json:"account_id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type Sink interface {
	CalendarChanged(ctx context.Context, change CalendarChange)
	BalanceChanged(ctx context.Context, change BalanceChange)
	Message(ctx context.Context, notice Notice)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) CalendarChanged(context.Context, CalendarChange) {}
func (discard) BalanceChanged(context.Context, BalanceChange)   {}
func (discard) Message(context.Context, Notice)                 {}

type multi []Sink

// Multi fans every event out to sinks in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) CalendarChanged(ctx context.Context, change CalendarChange) {
	for _, s := range m {
		s.CalendarChanged(ctx, change)
	}
}

func (m multi) BalanceChanged(ctx context.Context, change BalanceChange) {
	for _, s := range m {
		s.BalanceChanged(ctx, change)
	}
}

func (m multi) Message(ctx context.Context, notice Notice) {
	for _, s := range m {
		s.Message(ctx, notice)
	}
}
