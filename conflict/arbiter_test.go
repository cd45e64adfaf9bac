package conflict

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/lifecycle"
	"github.com/hupe1980/agentguard/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder captures every published lifecycle event type in order.
type eventRecorder struct {
	mu    sync.Mutex
	types []lifecycle.EventType
}

func (r *eventRecorder) Types() []lifecycle.EventType { return nil }

func (r *eventRecorder) Handle(event lifecycle.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.Type)
	return nil
}

func (r *eventRecorder) recorded() []lifecycle.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lifecycle.EventType, len(r.types))
	copy(out, r.types)
	return out
}

func newTestArbiter(optFns ...func(o *ArbiterOptions)) (*Arbiter, *eventRecorder) {
	recorder := &eventRecorder{}
	bus := lifecycle.NewBus(nil)
	bus.Subscribe(recorder)

	fns := append([]func(o *ArbiterOptions){func(o *ArbiterOptions) {
		o.Bus = bus
		o.Clock = func() time.Time { return detectNow }
	}}, optFns...)
	return NewArbiter(fns...), recorder
}

func contradictoryResults() []core.AgentResult {
	return []core.AgentResult{
		{AgentID: "f", AgentName: "finance-agent", Message: "Buy the stock now.", Output: map[string]any{"confidence": 0.9}, Success: true},
		{AgentID: "r", AgentName: "risk-agent", Message: "Sell the position.", Output: map[string]any{"confidence": 0.5}, Success: true},
	}
}

func TestArbiter_DetectRegistersReport(t *testing.T) {
	arbiter, recorder := newTestArbiter()

	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)
	assert.Equal(t, core.ConflictDetected, report.Status)

	active := arbiter.Active()
	require.Len(t, active, 1)
	assert.Equal(t, report.ID, active[0].ID)
	assert.Empty(t, arbiter.History())

	assert.Equal(t, []lifecycle.EventType{lifecycle.EventConflictDetected}, recorder.recorded())
}

func TestArbiter_DetectNoConflict(t *testing.T) {
	arbiter, recorder := newTestArbiter()

	report := arbiter.Detect("task-1", []core.AgentResult{
		{AgentID: "a", AgentName: "agent-a", Message: "All good.", Success: true},
		{AgentID: "b", AgentName: "agent-b", Message: "Agreed.", Success: true},
	})
	assert.Nil(t, report)
	assert.Empty(t, arbiter.Active())
	assert.Empty(t, recorder.recorded())
}

func TestArbiter_ResolveLifecycle(t *testing.T) {
	// Without a model the contradictory default (llm_arbitration) degrades
	// to highest-confidence.
	arbiter, recorder := newTestArbiter()
	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)

	resolution, err := arbiter.Resolve(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyHighestConfidence, resolution.Strategy)
	assert.Equal(t, "f", resolution.SelectedAgent)

	assert.Empty(t, arbiter.Active())
	history := arbiter.History()
	require.Len(t, history, 1)
	assert.Equal(t, core.ConflictResolved, history[0].Status)
	require.NotNil(t, history[0].ResolvedAt)
	assert.Equal(t, detectNow, *history[0].ResolvedAt)
	require.NotNil(t, history[0].Resolution)
	assert.Equal(t, resolution, *history[0].Resolution)

	assert.Equal(t, []lifecycle.EventType{
		lifecycle.EventConflictDetected,
		lifecycle.EventConflictAnalyzing,
		lifecycle.EventConflictResolved,
	}, recorder.recorded())
}

func TestArbiter_ResolveWithModel(t *testing.T) {
	mock := model.NewMockModel("arbiter-test")
	mock.AddResponse("Choose the best outcome",
		`{"selection": "risk-agent", "reasoning": "protect the downside", "confidence": 0.9}`)
	arbiter, _ := newTestArbiter(func(o *ArbiterOptions) { o.Model = mock })

	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)

	resolution, err := arbiter.Resolve(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyLLMArbitration, resolution.Strategy)
	assert.Equal(t, "r", resolution.SelectedAgent)
	assert.Equal(t, 1, mock.Calls())
}

func TestArbiter_ResolveUnknownID(t *testing.T) {
	arbiter, _ := newTestArbiter()

	_, err := arbiter.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestArbiter_ResolveTwice(t *testing.T) {
	arbiter, _ := newTestArbiter()
	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)

	_, err := arbiter.Resolve(context.Background(), report.ID)
	require.NoError(t, err)

	_, err = arbiter.Resolve(context.Background(), report.ID)
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestArbiter_SetStrategy(t *testing.T) {
	arbiter, _ := newTestArbiter()
	arbiter.SetStrategy(core.ConflictContradictory, core.StrategyConservative)

	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)

	resolution, err := arbiter.Resolve(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyConservative, resolution.Strategy)
	assert.True(t, resolution.HumanReviewRequired)
}

func TestArbiter_EscalationStatusAndEvent(t *testing.T) {
	arbiter, recorder := newTestArbiter(func(o *ArbiterOptions) {
		o.Strategies = map[core.ConflictType]core.Strategy{
			core.ConflictContradictory: core.StrategyHumanEscalation,
		}
	})

	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)

	resolution, err := arbiter.Resolve(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyHumanEscalation, resolution.Strategy)

	history := arbiter.History()
	require.Len(t, history, 1)
	assert.Equal(t, core.ConflictEscalated, history[0].Status)

	assert.Equal(t, []lifecycle.EventType{
		lifecycle.EventConflictDetected,
		lifecycle.EventConflictAnalyzing,
		lifecycle.EventConflictEscalated,
	}, recorder.recorded())
}

func TestArbiter_Get(t *testing.T) {
	arbiter, _ := newTestArbiter()
	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)

	found, ok := arbiter.Get(report.ID)
	require.True(t, ok)
	assert.Equal(t, core.ConflictDetected, found.Status)

	_, err := arbiter.Resolve(context.Background(), report.ID)
	require.NoError(t, err)

	found, ok = arbiter.Get(report.ID)
	require.True(t, ok)
	assert.Equal(t, core.ConflictResolved, found.Status)

	_, ok = arbiter.Get("missing")
	assert.False(t, ok)
}

func TestArbiter_ConcurrentResolve(t *testing.T) {
	arbiter, _ := newTestArbiter()
	report := arbiter.Detect("task-1", contradictoryResults())
	require.NotNil(t, report)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = arbiter.Resolve(context.Background(), report.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrConflictNotFound)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one resolver wins the claim")
	assert.Len(t, arbiter.History(), 1)
}
