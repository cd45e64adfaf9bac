package conflict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/lifecycle"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/model"
)

// ErrConflictNotFound is returned when a conflict id is unknown or the
// report has already been claimed, resolved or escalated. This is the one
// call in the governance core that can fail outward.
var ErrConflictNotFound = errors.New("conflict not found")

// ArbiterOptions configures an Arbiter.
type ArbiterOptions struct {
	// Model is the language-model collaborator used by llm_arbitration.
	// Without one, that strategy degrades to highest-confidence.
	Model model.Model

	// Detector overrides the default conflict detector.
	Detector *Detector

	// Strategies overrides entries of the default per-type strategy table.
	Strategies map[core.ConflictType]core.Strategy

	// Authorities overrides the default domain authority ordering.
	Authorities map[string][]string

	// Normalize overrides the default position normalizer.
	Normalize NormalizeFunc

	// InferDomain overrides the default domain inference.
	InferDomain DomainFunc

	// Bus receives conflict.* lifecycle events. Optional.
	Bus *lifecycle.Bus

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Clock overrides time.Now, intended for tests.
	Clock func() time.Time
}

// Arbiter owns conflict reports from detection to closure. Reports move
// from the active set into the resolved history exactly once; the
// detected→analyzing claim under the mutex guarantees at most one
// concurrent resolution per conflict id.
type Arbiter struct {
	model       model.Model
	detector    *Detector
	authorities map[string][]string
	normalize   NormalizeFunc
	inferDomain DomainFunc
	bus         *lifecycle.Bus
	logger      logging.Logger
	now         func() time.Time

	mu         sync.Mutex
	strategies map[core.ConflictType]core.Strategy
	active     map[string]*core.ConflictReport
	resolved   []*core.ConflictReport
}

// NewArbiter constructs an Arbiter.
func NewArbiter(optFns ...func(o *ArbiterOptions)) *Arbiter {
	opts := ArbiterOptions{
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Detector == nil {
		opts.Detector = NewDetector(func(o *DetectorOptions) { o.Clock = opts.Clock })
	}
	if opts.Normalize == nil {
		opts.Normalize = NormalizePosition
	}
	if opts.InferDomain == nil {
		opts.InferDomain = InferDomain
	}

	strategies := DefaultStrategies()
	for conflictType, strategy := range opts.Strategies {
		strategies[conflictType] = strategy
	}
	authorities := opts.Authorities
	if authorities == nil {
		authorities = DefaultAuthorities()
	}

	return &Arbiter{
		model:       opts.Model,
		detector:    opts.Detector,
		authorities: authorities,
		normalize:   opts.Normalize,
		inferDomain: opts.InferDomain,
		bus:         opts.Bus,
		logger:      opts.Logger,
		now:         opts.Clock,
		strategies:  strategies,
		active:      make(map[string]*core.ConflictReport),
	}
}

// Detect runs conflict detection over the results for one task. A found
// conflict is registered in the active set and announced on the bus; the
// returned snapshot is safe for the caller to keep.
func (a *Arbiter) Detect(taskID string, results []core.AgentResult) *core.ConflictReport {
	report := a.detector.DetectConflicts(taskID, results)
	if report == nil {
		return nil
	}

	a.mu.Lock()
	a.active[report.ID] = report
	a.mu.Unlock()

	a.logger.Info("conflict detected", "conflict_id", report.ID, "task_id", taskID, "type", report.Type, "severity", report.Severity)
	a.publish(lifecycle.EventConflictDetected, *report)

	snapshot := *report
	return &snapshot
}

// Resolve arbitrates the identified conflict and closes its report.
// Returns ErrConflictNotFound when the id is unknown or already closed.
// The only suspension point is the LLM round-trip; a caller wanting
// bounded latency imposes a context timeout, which the llm_arbitration
// strategy treats as a model failure.
func (a *Arbiter) Resolve(ctx context.Context, conflictID string) (core.Resolution, error) {
	report, err := a.claim(conflictID)
	if err != nil {
		return core.Resolution{}, err
	}
	a.publish(lifecycle.EventConflictAnalyzing, *report)

	strategy := a.strategyFor(report.Type)
	start := a.now()
	resolution, escalated := a.execute(ctx, strategy, report)
	a.logger.Info("conflict arbitrated", "conflict_id", conflictID, "strategy", resolution.Strategy, "confidence", resolution.Confidence, "elapsed", a.now().Sub(start))

	a.close(report, resolution, escalated)
	return resolution, nil
}

// claim performs the detected→analyzing transition under the mutex so no
// two callers can resolve the same report concurrently.
func (a *Arbiter) claim(conflictID string) (*core.ConflictReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	report, ok := a.active[conflictID]
	if !ok || report.Status != core.ConflictDetected {
		return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, conflictID)
	}
	report.Status = core.ConflictAnalyzing
	return report, nil
}

// close finalizes the report and moves it into the resolved history.
// Safe without re-checking status: the claim made this resolver the
// report's sole owner.
func (a *Arbiter) close(report *core.ConflictReport, resolution core.Resolution, escalated bool) {
	now := a.now().UTC()

	a.mu.Lock()
	report.Resolution = &resolution
	report.ResolvedAt = &now
	if escalated {
		report.Status = core.ConflictEscalated
	} else {
		report.Status = core.ConflictResolved
	}
	delete(a.active, report.ID)
	a.resolved = append(a.resolved, report)
	a.mu.Unlock()

	if escalated {
		a.publish(lifecycle.EventConflictEscalated, *report)
	} else {
		a.publish(lifecycle.EventConflictResolved, *report)
	}
}

// SetStrategy changes the strategy used for one conflict type at runtime.
func (a *Arbiter) SetStrategy(conflictType core.ConflictType, strategy core.Strategy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.strategies[conflictType] = strategy
}

// strategyFor looks up the effective strategy, defaulting to human escalation.
func (a *Arbiter) strategyFor(conflictType core.ConflictType) core.Strategy {
	a.mu.Lock()
	defer a.mu.Unlock()
	if strategy, ok := a.strategies[conflictType]; ok {
		return strategy
	}
	return core.StrategyHumanEscalation
}

// Active returns snapshots of all unresolved reports.
func (a *Arbiter) Active() []core.ConflictReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.ConflictReport, 0, len(a.active))
	for _, report := range a.active {
		out = append(out, *report)
	}
	return out
}

// History returns snapshots of all closed reports in closure order.
func (a *Arbiter) History() []core.ConflictReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.ConflictReport, len(a.resolved))
	for i, report := range a.resolved {
		out[i] = *report
	}
	return out
}

// Get returns a snapshot of the identified report, active or closed.
func (a *Arbiter) Get(conflictID string) (core.ConflictReport, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if report, ok := a.active[conflictID]; ok {
		return *report, true
	}
	for _, report := range a.resolved {
		if report.ID == conflictID {
			return *report, true
		}
	}
	return core.ConflictReport{}, false
}

func (a *Arbiter) publish(eventType lifecycle.EventType, report core.ConflictReport) {
	if a.bus != nil {
		a.bus.Publish(lifecycle.NewEvent(eventType, report))
	}
}
