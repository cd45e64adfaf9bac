package trust

import (
	"sync"
	"time"

	"github.com/hupe1980/agentguard/core"
)

// rateKey identifies one rate-limit window.
type rateKey struct {
	userID    string
	requester core.RequesterType
}

// rateWindow is a fixed-size one-minute window that resets on elapse.
// Not a true sliding log: a burst straddling the boundary can briefly
// exceed the nominal rate, which matches the intended cheap semantics.
type rateWindow struct {
	count       int
	windowStart time.Time
}

// rateTracker counts actions per (userID, requesterType) in fixed windows.
// Process-lifetime state with no persistence guarantee.
type rateTracker struct {
	mu      sync.Mutex
	windows map[rateKey]*rateWindow
	period  time.Duration
}

func newRateTracker() *rateTracker {
	return &rateTracker{windows: make(map[rateKey]*rateWindow), period: time.Minute}
}

// allow records one action attempt and reports whether it is within the
// limit. A denied attempt does not consume window budget.
func (t *rateTracker) allow(userID string, requester core.RequesterType, limit int, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := rateKey{userID: userID, requester: requester}
	w, ok := t.windows[key]
	if !ok || now.Sub(w.windowStart) >= t.period {
		w = &rateWindow{windowStart: now}
		t.windows[key] = w
	}
	if limit > 0 && w.count >= limit {
		return false
	}
	w.count++
	return true
}

// reset clears all windows. Intended for tests and administrative use.
func (t *rateTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows = make(map[rateKey]*rateWindow)
}

// budgetKey identifies one user's spend for one calendar day.
type budgetKey struct {
	userID string
	date   string // YYYY-MM-DD, UTC
}

// budgetTracker accumulates daily spend per user. Budget tracking is a
// side effect of a passing check, not merely an observation: charge both
// verifies the ceiling and advances the counter atomically.
type budgetTracker struct {
	mu    sync.Mutex
	spent map[budgetKey]float64
}

func newBudgetTracker() *budgetTracker {
	return &budgetTracker{spent: make(map[budgetKey]float64)}
}

// charge verifies that spending amount keeps the user's daily total at or
// under dailyMax and, if so, records the spend. Returns false (without
// recording) when the ceiling would be exceeded.
func (t *budgetTracker) charge(userID string, amount, dailyMax float64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := budgetKey{userID: userID, date: now.UTC().Format("2006-01-02")}
	if t.spent[key]+amount > dailyMax {
		return false
	}
	t.spent[key] += amount
	return true
}

// spentToday returns the tracked spend for the user on the given day.
func (t *budgetTracker) spentToday(userID string, now time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spent[budgetKey{userID: userID, date: now.UTC().Format("2006-01-02")}]
}

// reset clears all tracked spend. Intended for tests and administrative use.
func (t *budgetTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spent = make(map[budgetKey]float64)
}
