// Package agentguard provides a high-level façade over the decision
// governance engines: trust evaluation for individual agent actions and
// conflict arbitration across disagreeing agent results. Most applications
// interact with this package by:
//  1. Creating a Guard via New() (optionally supplying a model, tier
//     overrides and hard limits)
//  2. Calling CheckPermission for every proposed agent action
//  3. Calling DetectConflicts once a task has two or more results, then
//     Resolve for any report that comes back
//
// Both engines are constructed once and passed by handle; there is no
// process-wide singleton. All defaults are safe for local development and
// testing; production deployments typically supply a real model and a
// structured logger.
package agentguard

import (
	"context"

	"github.com/hupe1980/agentguard/conflict"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/lifecycle"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/model"
	"github.com/hupe1980/agentguard/trust"
)

// Options configures the Guard instance.
type Options struct {
	// Model is the language-model collaborator used by llm_arbitration.
	// Optional; without it that strategy degrades to highest-confidence.
	Model model.Model

	// TierOverrides merge field-by-field onto the built-in tier defaults.
	TierOverrides map[core.TrustLevel]trust.TierOverride

	// HardLimits merge field-by-field onto the built-in global ceilings.
	HardLimits trust.HardLimitsOverride

	// StrictEvaluators escalates evaluator faults instead of skipping them.
	StrictEvaluators bool

	// Strategies overrides entries of the default conflict strategy table.
	Strategies map[core.ConflictType]core.Strategy

	// Authorities overrides the default domain authority ordering.
	Authorities map[string][]string

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Guard is the high-level façade aggregating both governance engines and
// their shared lifecycle bus.
type Guard struct {
	opts    Options
	bus     *lifecycle.Bus
	trust   *trust.Engine
	arbiter *conflict.Arbiter
}

// New creates a new Guard instance with optional overrides.
func New(optFns ...func(o *Options)) *Guard {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	bus := lifecycle.NewBus(opts.Logger)

	trustEngine := trust.NewEngine(func(o *trust.Options) {
		o.TierOverrides = opts.TierOverrides
		o.HardLimits = opts.HardLimits
		o.StrictEvaluators = opts.StrictEvaluators
		o.Bus = bus
		o.Logger = opts.Logger
	})

	arbiter := conflict.NewArbiter(func(o *conflict.ArbiterOptions) {
		o.Model = opts.Model
		o.Strategies = opts.Strategies
		o.Authorities = opts.Authorities
		o.Bus = bus
		o.Logger = opts.Logger
	})

	return &Guard{opts: opts, bus: bus, trust: trustEngine, arbiter: arbiter}
}

// Trust returns the trust evaluation engine.
func (g *Guard) Trust() *trust.Engine { return g.trust }

// Conflicts returns the conflict arbitration engine.
func (g *Guard) Conflicts() *conflict.Arbiter { return g.arbiter }

// Subscribe registers a lifecycle event subscriber (e.g. a UI broadcaster).
func (g *Guard) Subscribe(sub lifecycle.Subscriber) { g.bus.Subscribe(sub) }

// CheckPermission evaluates one proposed action. Never returns an error;
// internal faults become fail-safe require-approval results.
func (g *Guard) CheckPermission(action core.Action, tc core.TrustContext) core.PermissionResult {
	return g.trust.CheckPermission(action, tc)
}

// DetectConflicts classifies disagreement between the results for one
// task, returning nil when there is none.
func (g *Guard) DetectConflicts(taskID string, results []core.AgentResult) *core.ConflictReport {
	return g.arbiter.Detect(taskID, results)
}

// Resolve arbitrates a previously detected conflict.
func (g *Guard) Resolve(ctx context.Context, conflictID string) (core.Resolution, error) {
	return g.arbiter.Resolve(ctx, conflictID)
}
