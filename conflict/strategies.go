package conflict

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/model"
	"github.com/tidwall/gjson"
)

// reviewConfidenceFloor is the confidence below which a selection-style
// resolution asks for human review.
const reviewConfidenceFloor = 0.7

// cautionWords is the fixed vocabulary the conservative strategy scores by.
var cautionWords = []string{"wait", "caution", "review", "consult", "verify", "safe", "risk"}

var cautionRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(cautionWords))
	for i, w := range cautionWords {
		res[i] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return res
}()

// DefaultStrategies returns the built-in conflict type to strategy table.
func DefaultStrategies() map[core.ConflictType]core.Strategy {
	return map[core.ConflictType]core.Strategy{
		core.ConflictContradictory:       core.StrategyLLMArbitration,
		core.ConflictIncompatibleOutputs: core.StrategyMerge,
		core.ConflictResourceContention:  core.StrategyPriorityBased,
		core.ConflictPriority:            core.StrategyHighestConfidence,
		core.ConflictDomainOverlap:       core.StrategyPriorityBased,
		core.ConflictFactualDisagreement: core.StrategyLLMArbitration,
		core.ConflictTimeout:             core.StrategyConservative,
	}
}

// DefaultAuthorities returns the built-in domain to agent-authority
// ordering used by priority-based arbitration. The concrete agent catalog
// belongs to the host platform; override via ArbiterOptions.
func DefaultAuthorities() map[string][]string {
	return map[string][]string{
		"investment": {"finance-agent", "research-agent", "risk-agent"},
		"credit":     {"finance-agent", "legal-agent"},
		"legal":      {"legal-agent", "compliance-agent"},
		"business":   {"strategy-agent", "finance-agent", "research-agent"},
		"health":     {"health-agent", "research-agent"},
		"security":   {"security-agent", "technical-agent"},
		"technical":  {"technical-agent", "security-agent"},
		"research":   {"research-agent", "analyst-agent"},
	}
}

// execute dispatches one strategy. The boolean reports whether the
// conflict ends escalated rather than resolved.
func (a *Arbiter) execute(ctx context.Context, strategy core.Strategy, report *core.ConflictReport) (core.Resolution, bool) {
	switch strategy {
	case core.StrategyMajorityVote:
		return a.majorityVote(report)
	case core.StrategyHighestConfidence:
		return a.highestConfidence(report)
	case core.StrategyPriorityBased:
		return a.priorityBased(report)
	case core.StrategyMerge:
		return a.mergeOutputs(report)
	case core.StrategyLLMArbitration:
		return a.llmArbitration(ctx, report)
	case core.StrategyConservative:
		return a.conservative(report)
	default:
		// human_escalation and any unmapped strategy terminate here.
		return a.humanEscalation(report)
	}
}

// majorityVote groups agents by normalized position and picks the largest
// group's first member. The vote needs a strict majority to skip review.
func (a *Arbiter) majorityVote(report *core.ConflictReport) (core.Resolution, bool) {
	total := len(report.Agents)
	type group struct {
		first core.ConflictingAgent
		size  int
	}
	groups := make(map[string]*group)
	var order []string
	for _, agent := range report.Agents {
		key := a.normalize(agent.Position)
		g, ok := groups[key]
		if !ok {
			g = &group{first: agent}
			groups[key] = g
			order = append(order, key)
		}
		g.size++
	}

	best := groups[order[0]]
	for _, key := range order[1:] {
		if groups[key].size > best.size {
			best = groups[key]
		}
	}

	confidence := float64(best.size) / float64(total)
	return core.Resolution{
		Strategy:      core.StrategyMajorityVote,
		SelectedAgent: best.first.AgentID,
		Explanation: fmt.Sprintf("%d of %d agents share the position of %s",
			best.size, total, best.first.AgentName),
		Confidence:          confidence,
		HumanReviewRequired: best.size*2 <= total,
	}, false
}

// highestConfidence picks the agent with the highest confidence.
func (a *Arbiter) highestConfidence(report *core.ConflictReport) (core.Resolution, bool) {
	best := report.Agents[0]
	for _, agent := range report.Agents[1:] {
		if agent.Confidence > best.Confidence {
			best = agent
		}
	}
	return core.Resolution{
		Strategy:      core.StrategyHighestConfidence,
		SelectedAgent: best.AgentID,
		Explanation: fmt.Sprintf("%s reported the highest confidence (%.2f)",
			best.AgentName, best.Confidence),
		Confidence:          best.Confidence,
		HumanReviewRequired: best.Confidence < reviewConfidenceFloor,
	}, false
}

// priorityBased defers to the authority ordering of the inferred domain,
// falling back to highest-confidence when no listed authority took part.
func (a *Arbiter) priorityBased(report *core.ConflictReport) (core.Resolution, bool) {
	domain := a.inferDomain(report.Description)
	ranking := a.authorities[domain]

	for rank, name := range ranking {
		for _, agent := range report.Agents {
			if !strings.EqualFold(agent.AgentName, name) {
				continue
			}
			confidence := 0.8 - 0.1*float64(rank)
			if confidence < 0 {
				confidence = 0
			}
			return core.Resolution{
				Strategy:      core.StrategyPriorityBased,
				SelectedAgent: agent.AgentID,
				Explanation: fmt.Sprintf("%s is the rank-%d authority for the %s domain",
					agent.AgentName, rank+1, domain),
				Confidence:          confidence,
				HumanReviewRequired: rank > 1,
			}, false
		}
	}

	return a.highestConfidence(report)
}

// mergeOutputs unions the agents' structured outputs key by key. A key
// collision keeps the higher-confidence agent's value and is recorded;
// the merge escalates when collisions reach half of the merged key count.
func (a *Arbiter) mergeOutputs(report *core.ConflictReport) (core.Resolution, bool) {
	merged := make(map[string]any)
	owner := make(map[string]float64)
	var collisions []string

	for _, agent := range report.Agents {
		keys := make([]string, 0, len(agent.Result.Output))
		for k := range agent.Result.Output {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := agent.Result.Output[k]
			if _, exists := merged[k]; !exists {
				merged[k] = v
				owner[k] = agent.Confidence
				continue
			}
			collisions = append(collisions, k)
			if agent.Confidence > owner[k] {
				merged[k] = v
				owner[k] = agent.Confidence
			}
		}
	}

	keys := len(merged)
	if keys == 0 {
		return core.Resolution{
			Strategy:            core.StrategyMerge,
			Explanation:         "no structured outputs to merge",
			Confidence:          0,
			HumanReviewRequired: true,
		}, true
	}

	confidence := clamp01(1 - float64(len(collisions))/float64(keys))
	escalated := len(collisions)*2 >= keys
	return core.Resolution{
		Strategy:     core.StrategyMerge,
		MergedOutput: merged,
		Explanation: fmt.Sprintf("merged %d keys from %d agents with %d collisions",
			keys, len(report.Agents), len(collisions)),
		Confidence:          confidence,
		HumanReviewRequired: escalated,
	}, escalated
}

// conservative picks the agent whose message scores highest on the caution
// vocabulary. Always asks for human review.
func (a *Arbiter) conservative(report *core.ConflictReport) (core.Resolution, bool) {
	best := report.Agents[0]
	bestScore := cautionScore(best.Result.Message)
	for _, agent := range report.Agents[1:] {
		if score := cautionScore(agent.Result.Message); score > bestScore {
			best = agent
			bestScore = score
		}
	}
	return core.Resolution{
		Strategy:      core.StrategyConservative,
		SelectedAgent: best.AgentID,
		Explanation: fmt.Sprintf("%s takes the most cautious position (caution score %d)",
			best.AgentName, bestScore),
		Confidence:          0.7,
		HumanReviewRequired: true,
	}, false
}

// humanEscalation is the terminal fallback: no selection, no merge, a
// human decides.
func (a *Arbiter) humanEscalation(report *core.ConflictReport) (core.Resolution, bool) {
	return core.Resolution{
		Strategy:            core.StrategyHumanEscalation,
		Explanation:         fmt.Sprintf("conflict %s requires human resolution", report.ID),
		Confidence:          0,
		HumanReviewRequired: true,
	}, true
}

// cautionScore counts caution-vocabulary occurrences in the text.
func cautionScore(text string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, re := range cautionRes {
		score += len(re.FindAllStringIndex(lower, -1))
	}
	return score
}

// llmArbitration delegates the choice to the language-model collaborator,
// degrading to highest-confidence on any call or parse failure. No error
// ever surfaces to the caller.
func (a *Arbiter) llmArbitration(ctx context.Context, report *core.ConflictReport) (core.Resolution, bool) {
	if a.model == nil {
		a.logger.Warn("no model configured for llm arbitration, falling back", "conflict_id", report.ID)
		return a.highestConfidence(report)
	}
	resolution, err := a.tryLLMArbitration(ctx, report)
	if err != nil {
		a.logger.Warn("llm arbitration failed, falling back", "conflict_id", report.ID, "error", err)
		return a.highestConfidence(report)
	}
	return resolution, false
}

func (a *Arbiter) tryLLMArbitration(ctx context.Context, report *core.ConflictReport) (core.Resolution, error) {
	reply, err := a.model.Complete(ctx, buildArbitrationPrompt(report))
	if err != nil {
		return core.Resolution{}, fmt.Errorf("model call: %w", err)
	}

	// The collaborator only promises that the reply contains a JSON object
	// somewhere; extract the first brace-balanced candidate defensively.
	raw, ok := extractJSONObject(reply)
	if !ok {
		return core.Resolution{}, fmt.Errorf("no JSON object in model reply")
	}
	parsed := gjson.Parse(raw)

	selection := parsed.Get("selection")
	if !selection.Exists() || selection.String() == "" {
		return core.Resolution{}, fmt.Errorf("model reply missing selection")
	}

	confidence := reviewConfidenceFloor
	if c := parsed.Get("confidence"); c.Exists() {
		confidence = clamp01(c.Float())
	}
	reasoning := parsed.Get("reasoning").String()
	if reasoning == "" {
		reasoning = "model arbitration"
	}

	if strings.EqualFold(selection.String(), "merge") {
		recommendation := parsed.Get("recommendation").String()
		if recommendation == "" {
			return core.Resolution{}, fmt.Errorf("merge selection without recommendation")
		}
		return core.Resolution{
			Strategy:            core.StrategyLLMArbitration,
			MergedOutput:        map[string]any{"recommendation": recommendation},
			Explanation:         reasoning,
			Confidence:          confidence,
			HumanReviewRequired: confidence < reviewConfidenceFloor,
		}, nil
	}

	for _, agent := range report.Agents {
		if strings.EqualFold(agent.AgentName, selection.String()) {
			return core.Resolution{
				Strategy:            core.StrategyLLMArbitration,
				SelectedAgent:       agent.AgentID,
				Explanation:         reasoning,
				Confidence:          confidence,
				HumanReviewRequired: confidence < reviewConfidenceFloor,
			}, nil
		}
	}
	return core.Resolution{}, fmt.Errorf("model selected unknown agent %q", selection.String())
}

// buildArbitrationPrompt enumerates every agent's position, confidence and
// supporting points and asks for a structured JSON verdict.
func buildArbitrationPrompt(report *core.ConflictReport) []model.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conflict (%s, severity %s): %s\n\n", report.Type, report.Severity, report.Description)
	for _, agent := range report.Agents {
		fmt.Fprintf(&sb, "Agent %q (confidence %.2f): %s\n", agent.AgentName, agent.Confidence, agent.Position)
		for _, point := range agent.Supporting {
			fmt.Fprintf(&sb, "  - %s\n", point)
		}
	}
	sb.WriteString("\nChoose the best outcome. Reply with a single JSON object of the form\n")
	sb.WriteString(`{"selection": "<agent name>" or "merge", "recommendation": "<merged recommendation when selection is merge>", "reasoning": "<short justification>", "confidence": <number 0..1>}`)

	return []model.Message{
		{Role: model.RoleSystem, Text: "You arbitrate disagreements between autonomous agents. Be decisive and concise."},
		{Role: model.RoleUser, Text: sb.String()},
	}
}

// extractJSONObject returns the first brace-balanced JSON object embedded
// in s, tolerating braces inside string literals.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if gjson.Valid(candidate) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
