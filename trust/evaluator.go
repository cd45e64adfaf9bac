package trust

import "github.com/hupe1980/agentguard/core"

// Verdict is an evaluator's opinion on one action. A nil *Verdict from
// Evaluate means the evaluator has no opinion and the pipeline continues.
type Verdict struct {
	Decision core.Decision
	Reason   string
	// Final stops the evaluator chain immediately; the verdict becomes the
	// pipeline's answer for the evaluator stage.
	Final bool
}

// Evaluator is a pluggable predicate consulted during permission
// evaluation, after hard and rate limits but before tier policy.
// Evaluators run in descending Priority order; Priority is an explicit
// sort key, not insertion order.
type Evaluator interface {
	// Name identifies the evaluator for registration and removal.
	Name() string

	// Priority orders the chain; higher values run earlier.
	Priority() int

	// Evaluate returns a verdict, or nil to pass. An error is logged and
	// the evaluator skipped unless the engine runs in strict mode, in
	// which case evaluation escalates to require-approval.
	Evaluate(action core.Action, tc core.TrustContext, cfg TrustLevelConfig) (*Verdict, error)
}

// FunctionEvaluator wraps a function as an Evaluator implementation.
type FunctionEvaluator struct {
	name     string
	priority int
	fn       func(action core.Action, tc core.TrustContext, cfg TrustLevelConfig) (*Verdict, error)
}

// NewFunctionEvaluator creates an evaluator from a function.
func NewFunctionEvaluator(name string, priority int, fn func(action core.Action, tc core.TrustContext, cfg TrustLevelConfig) (*Verdict, error)) *FunctionEvaluator {
	return &FunctionEvaluator{name: name, priority: priority, fn: fn}
}

// Name returns the evaluator's identifier.
func (e *FunctionEvaluator) Name() string { return e.name }

// Priority returns the evaluator's sort key.
func (e *FunctionEvaluator) Priority() int { return e.priority }

// Evaluate calls the wrapped function.
func (e *FunctionEvaluator) Evaluate(action core.Action, tc core.TrustContext, cfg TrustLevelConfig) (*Verdict, error) {
	return e.fn(action, tc, cfg)
}
