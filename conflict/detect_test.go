package conflict

import (
	"testing"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var detectNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestDetector() *Detector {
	return NewDetector(func(o *DetectorOptions) {
		o.Clock = func() time.Time { return detectNow }
	})
}

func TestDetectConflicts_SingleResult(t *testing.T) {
	detector := newTestDetector()

	report := detector.DetectConflicts("task-1", []core.AgentResult{
		{AgentID: "a", AgentName: "finance-agent", Message: "Buy the stock.", Success: true},
	})
	assert.Nil(t, report)
}

func TestDetectConflicts_Agreement(t *testing.T) {
	detector := newTestDetector()

	report := detector.DetectConflicts("task-1", []core.AgentResult{
		{AgentID: "a", AgentName: "finance-agent", Message: "Growth of 100 units looks sustainable.", Success: true},
		{AgentID: "b", AgentName: "research-agent", Message: "Growth of 110 units matches the forecast.", Success: true},
	})
	assert.Nil(t, report)
}

func TestDetectConflicts_Contradiction(t *testing.T) {
	detector := newTestDetector()

	report := detector.DetectConflicts("task-7", []core.AgentResult{
		{AgentID: "a", AgentName: "finance-agent", Message: "Buy the stock now. Momentum is strong.", Success: true},
		{AgentID: "b", AgentName: "risk-agent", Message: "Sell the position before earnings.", Success: true},
	})

	require.NotNil(t, report)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "task-7", report.TaskID)
	assert.Equal(t, core.ConflictContradictory, report.Type)
	assert.Equal(t, core.SeverityHigh, report.Severity)
	assert.Equal(t, core.ConflictDetected, report.Status)
	assert.Equal(t, detectNow, report.DetectedAt)
	assert.Contains(t, report.Description, "finance-agent")
	assert.Contains(t, report.Description, "risk-agent")

	require.Len(t, report.Agents, 2)
	assert.Equal(t, "Buy the stock now", report.Agents[0].Position)
	assert.Equal(t, "Sell the position before earnings", report.Agents[1].Position)
}

func TestDetectConflicts_BothWordsInOneResult(t *testing.T) {
	detector := newTestDetector()

	// One agent weighing buy against sell is not a contradiction between
	// agents.
	report := detector.DetectConflicts("task-1", []core.AgentResult{
		{AgentID: "a", AgentName: "finance-agent", Message: "Whether to buy or sell depends on the horizon.", Success: true},
		{AgentID: "b", AgentName: "research-agent", Message: "More data is needed before a call.", Success: true},
	})
	assert.Nil(t, report)
}

func TestDetectConflicts_WordBoundaries(t *testing.T) {
	detector := newTestDetector()

	// "selling" and "buyback" must not trigger the buy/sell pair.
	report := detector.DetectConflicts("task-1", []core.AgentResult{
		{AgentID: "a", AgentName: "finance-agent", Message: "The buyback program continues.", Success: true},
		{AgentID: "b", AgentName: "research-agent", Message: "Insider selling slowed last quarter.", Success: true},
	})
	assert.Nil(t, report)
}

func TestDetectConflicts_FactualDisagreement(t *testing.T) {
	detector := newTestDetector()

	report := detector.DetectConflicts("task-3", []core.AgentResult{
		{AgentID: "a", AgentName: "analyst-agent", Message: "Revenue reached $100 last quarter.", Success: true},
		{AgentID: "b", AgentName: "research-agent", Message: "Revenue reached $300 last quarter.", Success: true},
	})

	require.NotNil(t, report)
	assert.Equal(t, core.ConflictFactualDisagreement, report.Type)
	assert.Equal(t, core.SeverityMedium, report.Severity)
	assert.Contains(t, report.Description, "100.00")
	assert.Contains(t, report.Description, "300.00")
}

func TestDetectConflicts_CloseFiguresAgree(t *testing.T) {
	detector := newTestDetector()

	// 100 vs 120: the gap is below half the average.
	report := detector.DetectConflicts("task-3", []core.AgentResult{
		{AgentID: "a", AgentName: "analyst-agent", Message: "Headcount is 100.", Success: true},
		{AgentID: "b", AgentName: "research-agent", Message: "Headcount is 120.", Success: true},
	})
	assert.Nil(t, report)
}

func TestDetectConflicts_IncompatibleOutputs(t *testing.T) {
	detector := newTestDetector()

	report := detector.DetectConflicts("task-5", []core.AgentResult{
		{AgentID: "a", AgentName: "planner-agent", Output: map[string]any{"schedule": "q3", "owner": "ops"}, Success: true},
		{AgentID: "b", AgentName: "builder-agent", Output: map[string]any{"artifact": "image-1"}, Success: true},
	})

	require.NotNil(t, report)
	assert.Equal(t, core.ConflictIncompatibleOutputs, report.Type)
	assert.Equal(t, core.SeverityMedium, report.Severity)
	assert.Contains(t, report.Description, "planner-agent")
}

func TestDetectConflicts_SharedKeyIsCompatible(t *testing.T) {
	detector := newTestDetector()

	report := detector.DetectConflicts("task-5", []core.AgentResult{
		{AgentID: "a", AgentName: "planner-agent", Output: map[string]any{"schedule": "q3"}, Success: true},
		{AgentID: "b", AgentName: "builder-agent", Output: map[string]any{"schedule": "q4"}, Success: true},
	})
	assert.Nil(t, report)
}

func TestDetectConflicts_MostSevereFindingWins(t *testing.T) {
	detector := newTestDetector()

	// Contradiction (high) outranks factual disagreement and incompatible
	// outputs (both medium).
	report := detector.DetectConflicts("task-9", []core.AgentResult{
		{AgentID: "a", AgentName: "finance-agent", Message: "Buy at $100.", Output: map[string]any{"target": 100}, Success: true},
		{AgentID: "b", AgentName: "risk-agent", Message: "Sell above $400.", Output: map[string]any{"exit": 400}, Success: true},
	})

	require.NotNil(t, report)
	assert.Equal(t, core.ConflictContradictory, report.Type)
	assert.Equal(t, core.SeverityHigh, report.Severity)
}

func TestExtractConfidence(t *testing.T) {
	assert.Equal(t, 0.9, extractConfidence(core.AgentResult{Output: map[string]any{"confidence": 0.9}}))
	assert.Equal(t, 1.0, extractConfidence(core.AgentResult{Output: map[string]any{"confidence": 3.5}}))
	assert.Equal(t, 0.0, extractConfidence(core.AgentResult{Output: map[string]any{"confidence": -1.0}}))
	assert.Equal(t, 0.75, extractConfidence(core.AgentResult{Success: true}))
	assert.Equal(t, 0.25, extractConfidence(core.AgentResult{Success: false}))

	// Non-numeric confidence values fall back to the success default.
	assert.Equal(t, 0.75, extractConfidence(core.AgentResult{Output: map[string]any{"confidence": "high"}, Success: true}))
}

func TestExtractPosition(t *testing.T) {
	assert.Equal(t, "Buy the stock",
		extractPosition(core.AgentResult{Message: "Buy the stock. It is cheap."}))
	assert.Equal(t, "Should we proceed",
		extractPosition(core.AgentResult{Message: "Should we proceed?\nProbably."}))
	assert.Equal(t, "no terminator",
		extractPosition(core.AgentResult{Message: "no terminator"}))

	// Without a message the position is a JSON preview of the output.
	pos := extractPosition(core.AgentResult{Output: map[string]any{"verdict": "hold"}})
	assert.Equal(t, `{"verdict":"hold"}`, pos)

	assert.Empty(t, extractPosition(core.AgentResult{}))
}

func TestExtractSupporting(t *testing.T) {
	message := "Summary first.\n- point one\n* point two\n1. point three\n- point four"
	points := extractSupporting(message, 3)
	assert.Equal(t, []string{"point one", "point two", "point three"}, points)

	assert.Empty(t, extractSupporting("no bullets here", 3))
}

func TestExtractNumbers(t *testing.T) {
	values := extractNumbers("Spent $1,250.50, which is 15% over the 3 planned")
	require.Len(t, values, 3)
	assert.Equal(t, 1250.50, values[0])
	assert.Equal(t, 15.0, values[1])
	assert.Equal(t, 3.0, values[2])

	assert.Empty(t, extractNumbers("no figures"))
}
