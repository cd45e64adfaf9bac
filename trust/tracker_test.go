package trust

import (
	"testing"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/stretchr/testify/assert"
)

func TestRateTracker_Window(t *testing.T) {
	tracker := newRateTracker()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, tracker.allow("u", core.RequesterAgent, 2, now))
	assert.True(t, tracker.allow("u", core.RequesterAgent, 2, now))
	assert.False(t, tracker.allow("u", core.RequesterAgent, 2, now))

	// A denied attempt does not consume budget: the count stays at the
	// limit, so the window resets cleanly.
	assert.False(t, tracker.allow("u", core.RequesterAgent, 2, now.Add(30*time.Second)))

	assert.True(t, tracker.allow("u", core.RequesterAgent, 2, now.Add(time.Minute)))
}

func TestRateTracker_KeyIsolation(t *testing.T) {
	tracker := newRateTracker()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, tracker.allow("u1", core.RequesterAgent, 1, now))
	assert.False(t, tracker.allow("u1", core.RequesterAgent, 1, now))
	assert.True(t, tracker.allow("u1", core.RequesterWorkflow, 1, now))
	assert.True(t, tracker.allow("u2", core.RequesterAgent, 1, now))
}

func TestRateTracker_ZeroLimitDisables(t *testing.T) {
	tracker := newRateTracker()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		assert.True(t, tracker.allow("u", core.RequesterAgent, 0, now))
	}
}

func TestBudgetTracker_Charge(t *testing.T) {
	tracker := newBudgetTracker()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, tracker.charge("u", 300, 500, now))
	assert.Equal(t, 300.0, tracker.spentToday("u", now))

	// A failing charge records nothing.
	assert.False(t, tracker.charge("u", 300, 500, now))
	assert.Equal(t, 300.0, tracker.spentToday("u", now))

	assert.True(t, tracker.charge("u", 200, 500, now))
	assert.Equal(t, 500.0, tracker.spentToday("u", now))
	assert.False(t, tracker.charge("u", 0.01, 500, now))
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	tracker := newBudgetTracker()
	now := time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC)

	assert.True(t, tracker.charge("u", 500, 500, now))
	assert.False(t, tracker.charge("u", 1, 500, now))

	tomorrow := now.Add(time.Hour)
	assert.True(t, tracker.charge("u", 500, 500, tomorrow))
	assert.Equal(t, 500.0, tracker.spentToday("u", tomorrow))
}

func TestBudgetTracker_PerUser(t *testing.T) {
	tracker := newBudgetTracker()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, tracker.charge("u1", 500, 500, now))
	assert.True(t, tracker.charge("u2", 500, 500, now))
	assert.Equal(t, 500.0, tracker.spentToday("u1", now))
	assert.Equal(t, 500.0, tracker.spentToday("u2", now))
}

func TestTrackerReset(t *testing.T) {
	rates := newRateTracker()
	budgets := newBudgetTracker()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, rates.allow("u", core.RequesterAgent, 1, now))
	assert.False(t, rates.allow("u", core.RequesterAgent, 1, now))
	rates.reset()
	assert.True(t, rates.allow("u", core.RequesterAgent, 1, now))

	assert.True(t, budgets.charge("u", 500, 500, now))
	budgets.reset()
	assert.Zero(t, budgets.spentToday("u", now))
}
