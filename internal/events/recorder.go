package events

import (
	"context"
	"sync"
)

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	calendar []CalendarChange
	balances []BalanceChange
	notices  []Notice
}

func (r *Recorder) CalendarChanged(_ context.Context, change CalendarChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendar = append(r.calendar, change)
}

func (r *Recorder) BalanceChanged(_ context.Context, change BalanceChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = append(r.balances, change)
}

func (r *Recorder) Message(_ context.Context, notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *Recorder) CalendarChanges() []CalendarChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CalendarChange(nil), r.calendar...)
}

func (r *Recorder) BalanceChanges() []BalanceChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BalanceChange(nil), r.balances...)
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendar, r.balances, r.notices = nil, nil, nil
}
