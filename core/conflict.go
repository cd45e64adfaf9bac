package core

import "time"

// AgentResult is the per-agent output for one task as supplied by the
// orchestrator: a free-text message, an optional structured output map and
// a success flag. Conflict detection derives positions and confidences
// from it; the raw result travels with the report for arbitration.
type AgentResult struct {
	AgentID   string         `json:"agent_id"`
	AgentName string         `json:"agent_name"`
	Message   string         `json:"message,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
}

// ConflictType is the detected category of disagreement between agent results.
type ConflictType string

const (
	// ConflictContradictory marks results recommending opposite actions.
	ConflictContradictory ConflictType = "contradictory_recommendations"
	// ConflictIncompatibleOutputs marks structurally disjoint outputs.
	ConflictIncompatibleOutputs ConflictType = "incompatible_outputs"
	// ConflictResourceContention marks agents competing for one resource.
	ConflictResourceContention ConflictType = "resource_contention"
	// ConflictPriority marks disagreement about task ordering.
	ConflictPriority ConflictType = "priority_conflict"
	// ConflictDomainOverlap marks agents answering outside their domain.
	ConflictDomainOverlap ConflictType = "domain_overlap"
	// ConflictFactualDisagreement marks materially divergent figures.
	ConflictFactualDisagreement ConflictType = "factual_disagreement"
	// ConflictTimeout marks partial result sets caused by agent timeouts.
	ConflictTimeout ConflictType = "timeout_conflict"
)

// Severity grades how serious a detected conflict is.
type Severity string

const (
	// SeverityLow marks cosmetic disagreement.
	SeverityLow Severity = "low"
	// SeverityMedium marks disagreement that changes details of the outcome.
	SeverityMedium Severity = "medium"
	// SeverityHigh marks disagreement that reverses the outcome.
	SeverityHigh Severity = "high"
	// SeverityCritical marks disagreement that must not reach a user unresolved.
	SeverityCritical Severity = "critical"
)

// severityRank maps severities onto their total order.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the numeric position of the severity in the total order.
func (s Severity) Rank() int { return severityRank[s] }

// ConflictStatus tracks the lifecycle of a conflict report.
type ConflictStatus string

const (
	// ConflictDetected is the initial state set by detection.
	ConflictDetected ConflictStatus = "detected"
	// ConflictAnalyzing means an arbiter has claimed the report.
	ConflictAnalyzing ConflictStatus = "analyzing"
	// ConflictResolved means arbitration produced a usable resolution.
	ConflictResolved ConflictStatus = "resolved"
	// ConflictEscalated means arbitration handed the conflict to a human.
	ConflictEscalated ConflictStatus = "escalated"
)

// ConflictingAgent captures one agent's stance inside a conflict report.
type ConflictingAgent struct {
	AgentID    string      `json:"agent_id"`
	AgentName  string      `json:"agent_name"`
	Position   string      `json:"position"`             // First sentence of the message, or an output preview
	Confidence float64     `json:"confidence"`           // 0..1
	Supporting []string    `json:"supporting,omitempty"` // Up to 3 extracted bullet points
	Result     AgentResult `json:"result"`
}

// ConflictReport describes one detected disagreement on one task. It is
// created by conflict detection, exclusively owned and advanced by the
// arbitration engine, and immutable once resolved or escalated.
type ConflictReport struct {
	ID          string             `json:"id"`
	TaskID      string             `json:"task_id"`
	Type        ConflictType       `json:"type"`
	Severity    Severity           `json:"severity"`
	Agents      []ConflictingAgent `json:"agents"`
	Description string             `json:"description"`
	DetectedAt  time.Time          `json:"detected_at"`
	Status      ConflictStatus     `json:"status"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
	Resolution  *Resolution        `json:"resolution,omitempty"`
}

// Strategy names an arbitration algorithm.
type Strategy string

const (
	// StrategyMajorityVote groups identical normalized positions and picks the largest group.
	StrategyMajorityVote Strategy = "majority_vote"
	// StrategyHighestConfidence picks the agent with the highest confidence.
	StrategyHighestConfidence Strategy = "highest_confidence"
	// StrategyPriorityBased defers to a per-domain authority ordering.
	StrategyPriorityBased Strategy = "priority_based"
	// StrategyMerge unions structured outputs key by key.
	StrategyMerge Strategy = "merge"
	// StrategyLLMArbitration delegates the choice to the language-model collaborator.
	StrategyLLMArbitration Strategy = "llm_arbitration"
	// StrategyConservative picks the most caution-oriented result.
	StrategyConservative Strategy = "conservative"
	// StrategyHumanEscalation hands the conflict to a human unresolved.
	StrategyHumanEscalation Strategy = "human_escalation"
)

// Resolution is the outcome of arbitrating one conflict report.
type Resolution struct {
	Strategy            Strategy       `json:"strategy"`
	SelectedAgent       string         `json:"selected_agent,omitempty"`
	MergedOutput        map[string]any `json:"merged_output,omitempty"`
	Explanation         string         `json:"explanation"`
	Confidence          float64        `json:"confidence"` // 0..1
	HumanReviewRequired bool           `json:"human_review_required"`
}
