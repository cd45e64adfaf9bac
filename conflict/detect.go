package conflict

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/agentguard/core"
)

// oppositePairs is the fixed vocabulary of mutually exclusive
// recommendation words scanned by the contradiction heuristic.
var oppositePairs = [][2]string{
	{"buy", "sell"},
	{"increase", "decrease"},
	{"approve", "reject"},
	{"proceed", "stop"},
	{"yes", "no"},
	{"recommend", "avoid"},
}

var (
	numberRe = regexp.MustCompile(`[$€£]?\d+(?:,\d{3})*(?:\.\d+)?%?`)
	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.*)`)
	wordRes  = buildWordMatchers()
)

func buildWordMatchers() map[string]*regexp.Regexp {
	matchers := make(map[string]*regexp.Regexp, len(oppositePairs)*2)
	for _, pair := range oppositePairs {
		for _, w := range pair {
			matchers[w] = regexp.MustCompile(`\b` + w + `\b`)
		}
	}
	return matchers
}

// finding is one heuristic's classification of the result set.
type finding struct {
	conflictType core.ConflictType
	severity     core.Severity
	description  string
}

// Detector classifies disagreement between agent results for one task.
// The zero value is not usable; construct with NewDetector.
type Detector struct {
	now func() time.Time
}

// DetectorOptions configures a Detector.
type DetectorOptions struct {
	// Clock overrides time.Now, intended for tests.
	Clock func() time.Time
}

// NewDetector constructs a Detector.
func NewDetector(optFns ...func(o *DetectorOptions)) *Detector {
	opts := DetectorOptions{Clock: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Detector{now: opts.Clock}
}

// DetectConflicts runs the three heuristics over the results and returns a
// report classifying the most severe finding, or nil when fewer than two
// results exist or no heuristic fires. Findings below the most severe one
// are discarded, not merged.
func (d *Detector) DetectConflicts(taskID string, results []core.AgentResult) *core.ConflictReport {
	if len(results) < 2 {
		return nil
	}

	var findings []finding
	if f := detectContradiction(results); f != nil {
		findings = append(findings, *f)
	}
	if f := detectFactualDisagreement(results); f != nil {
		findings = append(findings, *f)
	}
	if f := detectIncompatibleOutputs(results); f != nil {
		findings = append(findings, *f)
	}
	if len(findings) == 0 {
		return nil
	}

	primary := findings[0]
	for _, f := range findings[1:] {
		if f.severity.Rank() > primary.severity.Rank() {
			primary = f
		}
	}

	agents := make([]core.ConflictingAgent, len(results))
	for i, r := range results {
		agents[i] = buildConflictingAgent(r)
	}

	return &core.ConflictReport{
		ID:          core.NewID(),
		TaskID:      taskID,
		Type:        primary.conflictType,
		Severity:    primary.severity,
		Agents:      agents,
		Description: primary.description,
		DetectedAt:  d.now().UTC(),
		Status:      core.ConflictDetected,
	}
}

// detectContradiction scans message text for hits on both halves of an
// opposite-word pair across different results.
func detectContradiction(results []core.AgentResult) *finding {
	for _, pair := range oppositePairs {
		var hitsA, hitsB []int
		for i, r := range results {
			lower := strings.ToLower(r.Message)
			if wordRes[pair[0]].MatchString(lower) {
				hitsA = append(hitsA, i)
			}
			if wordRes[pair[1]].MatchString(lower) {
				hitsB = append(hitsB, i)
			}
		}
		first, second := distinctPair(hitsA, hitsB)
		if first >= 0 {
			return &finding{
				conflictType: core.ConflictContradictory,
				severity:     core.SeverityHigh,
				description: fmt.Sprintf("%s recommends %q while %s recommends %q",
					results[first].AgentName, pair[0], results[second].AgentName, pair[1]),
			}
		}
	}
	return nil
}

// distinctPair returns the first pair of distinct indices drawn from the
// two hit lists, or (-1, -1) when every hit points at the same result.
func distinctPair(hitsA, hitsB []int) (int, int) {
	for _, a := range hitsA {
		for _, b := range hitsB {
			if a != b {
				return a, b
			}
		}
	}
	return -1, -1
}

// detectFactualDisagreement extracts numeric, currency and percentage
// tokens from each message and flags a pair of agents whose aligned values
// differ by more than half of their average.
func detectFactualDisagreement(results []core.AgentResult) *finding {
	values := make([][]float64, len(results))
	for i, r := range results {
		values[i] = extractNumbers(r.Message)
	}
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			n := len(values[i])
			if len(values[j]) < n {
				n = len(values[j])
			}
			for k := 0; k < n; k++ {
				a, b := values[i][k], values[j][k]
				avg := (a + b) / 2
				if avg == 0 {
					continue
				}
				if math.Abs(a-b) > math.Abs(avg)*0.5 {
					return &finding{
						conflictType: core.ConflictFactualDisagreement,
						severity:     core.SeverityMedium,
						description: fmt.Sprintf("%s cites %.2f where %s cites %.2f",
							results[i].AgentName, a, results[j].AgentName, b),
					}
				}
			}
		}
	}
	return nil
}

// detectIncompatibleOutputs compares structured output key sets: fires
// when the first result has keys and no other result shares any of them.
func detectIncompatibleOutputs(results []core.AgentResult) *finding {
	base := results[0].Output
	if len(base) == 0 {
		return nil
	}
	sharesAny := false
	for _, r := range results[1:] {
		for key := range r.Output {
			if _, ok := base[key]; ok {
				sharesAny = true
				break
			}
		}
		if sharesAny {
			break
		}
	}
	if sharesAny {
		return nil
	}
	return &finding{
		conflictType: core.ConflictIncompatibleOutputs,
		severity:     core.SeverityMedium,
		description: fmt.Sprintf("%s produced output keys no other agent shares",
			results[0].AgentName),
	}
}

// extractNumbers pulls numeric tokens (plain, currency, percent) in order.
func extractNumbers(text string) []float64 {
	matches := numberRe.FindAllString(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", "%", "").Replace(m)
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// buildConflictingAgent derives position, confidence and supporting points
// from one raw result.
func buildConflictingAgent(r core.AgentResult) core.ConflictingAgent {
	return core.ConflictingAgent{
		AgentID:    r.AgentID,
		AgentName:  r.AgentName,
		Position:   extractPosition(r),
		Confidence: extractConfidence(r),
		Supporting: extractSupporting(r.Message, 3),
		Result:     r,
	}
}

// extractPosition takes the first sentence of the message, or a truncated
// JSON preview of the structured output when no message exists.
func extractPosition(r core.AgentResult) string {
	msg := strings.TrimSpace(r.Message)
	if msg != "" {
		for i, ch := range msg {
			if ch == '.' || ch == '!' || ch == '?' || ch == '\n' {
				return strings.TrimSpace(msg[:i])
			}
		}
		return msg
	}
	if len(r.Output) == 0 {
		return ""
	}
	raw, err := json.Marshal(r.Output)
	if err != nil {
		return ""
	}
	const previewLen = 120
	preview := string(raw)
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	return preview
}

// extractConfidence prefers an explicit numeric confidence field in the
// structured output, falling back to 0.75 on success and 0.25 on failure.
func extractConfidence(r core.AgentResult) float64 {
	if v, ok := r.Output["confidence"]; ok {
		switch c := v.(type) {
		case float64:
			return clamp01(c)
		case int:
			return clamp01(float64(c))
		case json.Number:
			if f, err := c.Float64(); err == nil {
				return clamp01(f)
			}
		}
	}
	if r.Success {
		return 0.75
	}
	return 0.25
}

// extractSupporting collects up to max bullet points from the message.
func extractSupporting(message string, max int) []string {
	var points []string
	for _, line := range strings.Split(message, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			points = append(points, strings.TrimSpace(m[1]))
			if len(points) == max {
				break
			}
		}
	}
	return points
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
