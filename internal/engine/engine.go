package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weftlabs/weft/internal/actionlog"
	"github.com/weftlabs/weft/internal/dispatch"
	"github.com/weftlabs/weft/internal/gate"
	"github.com/weftlabs/weft/internal/index"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/match"
)

// Engine is the single-writer synchronization loop.
//
// Completions are processed in FIFO order; each one is checked against the
// sync index and any newly satisfied sync fires, appending follow-on
// invocation and completion records to the action log.
//
// CRITICAL: all log appends and fired-set mutations happen in the loop
// goroutine. External callers use Seed and Resolve, which enqueue work;
// they never touch engine state directly.
//
// Thread-safety model:
//   - Seed(), Resolve(): safe from any goroutine
//   - Run() / RunUntilIdle(): exactly one goroutine
//   - NewFlow(): safe from any goroutine (delegates to the generator)
type Engine struct {
	log      *actionlog.Log
	idx      *index.Index
	gates    *gate.Resolver
	registry *dispatch.Registry
	where    *match.WhereEvaluator
	clock    *Clock
	wall     WallClock
	flowGen  FlowIDGenerator
	queue    *completionQueue

	// fired tracks syncs that already fired per flow. A multi-clause sync
	// is indexed under several (concept, action) keys; the set keeps it
	// from firing once per key. Loop-goroutine only.
	fired map[string]map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock installs a pre-positioned logical clock.
// Used when reopening a log, seeded from actionlog.MaxSeq.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithWallClock installs a timestamp source. Tests pin this.
func WithWallClock(w WallClock) Option {
	return func(e *Engine) { e.wall = w }
}

// New creates an Engine over a log, a sync index, a gate resolver, and a
// dispatch registry.
func New(
	log *actionlog.Log,
	idx *index.Index,
	gates *gate.Resolver,
	registry *dispatch.Registry,
	flowGen FlowIDGenerator,
	opts ...Option,
) (*Engine, error) {
	where, err := match.NewWhereEvaluator()
	if err != nil {
		return nil, fmt.Errorf("init where evaluator: %w", err)
	}

	e := &Engine{
		log:      log,
		idx:      idx,
		gates:    gates,
		registry: registry,
		where:    where,
		clock:    NewClock(),
		wall:     SystemWall{},
		flowGen:  flowGen,
		queue:    newCompletionQueue(),
		fired:    make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewFlow generates a fresh flow identifier.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// Seed appends a root completion for a new flow and queues it for sync
// evaluation. This is how external work enters the system: the hosting
// runtime performs an action itself and reports the finished result.
//
// Returns the new flow id. The caller drives evaluation via Run or
// RunUntilIdle.
func (e *Engine) Seed(ctx context.Context, concept, action string, input, output ir.Object, variant string) (string, error) {
	if variant == "" {
		variant = ir.VariantOK
	}
	flowID := e.flowGen.Generate()

	seq := e.clock.Next()
	id, err := ir.CompletionID("", variant, output, seq)
	if err != nil {
		return "", fmt.Errorf("compute root completion id: %w", err)
	}

	rec := ir.ActionRecord{
		ID:      id,
		Type:    ir.RecordCompletion,
		Concept: concept,
		Action:  action,
		FlowID:  flowID,
		Input:   input,
		Output:  output,
		Variant: variant,
		Seq:     seq,
		TS:      e.wall.NowMillis(),
	}
	if err := e.log.Append(ctx, rec); err != nil {
		return "", fmt.Errorf("append root completion: %w", err)
	}

	slog.Info("flow seeded",
		"flow", flowID,
		"concept", concept,
		"action", action,
		"variant", variant,
	)

	e.queue.Enqueue(rec)
	return flowID, nil
}

// Resolve delivers the out-of-band completion of a gated invocation.
// The gated concept (or an operator) calls this when the external event
// the gate was waiting for has happened.
//
// The invocation must exist and must not already have a completion.
func (e *Engine) Resolve(ctx context.Context, invocationID, variant string, output ir.Object) error {
	inv, err := e.log.Record(ctx, invocationID)
	if err != nil {
		return fmt.Errorf("read invocation %s: %w", invocationID, err)
	}
	if inv.Type != ir.RecordInvocation {
		return fmt.Errorf("record %s is a %s, not an invocation", invocationID, inv.Type)
	}

	children, err := e.log.Children(ctx, invocationID)
	if err != nil {
		return fmt.Errorf("read children of %s: %w", invocationID, err)
	}
	if len(children) > 0 {
		return fmt.Errorf("invocation %s already completed", invocationID)
	}

	if variant == "" {
		variant = ir.VariantOK
	}
	rec, err := e.appendCompletion(ctx, inv, variant, output)
	if err != nil {
		return err
	}

	slog.Info("gate resolved",
		"flow", inv.FlowID,
		"invocation", invocationID,
		"concept", inv.Concept,
		"action", inv.Action,
		"variant", variant,
	)

	e.queue.Enqueue(rec)
	return nil
}

// Run starts the single-writer evaluation loop.
// Blocks until the context is cancelled or Stop is called.
//
// ERROR HANDLING: a completion that fails to process is logged with full
// context and the loop continues. Retrying would make replay
// non-deterministic; operators recover from the logged detail.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		rec, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processCompletion(ctx, rec); err != nil {
				slog.Error("completion processing failed",
					"error", err,
					"completion", rec.ID,
					"flow", rec.FlowID,
					"concept", rec.Concept,
					"action", rec.Action,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// RunUntilIdle drains the queue synchronously and returns once it is
// empty. Used by the CLI and tests, where the caller seeds a flow and
// wants the full cascade settled before reading the log.
func (e *Engine) RunUntilIdle(ctx context.Context) error {
	for {
		rec, ok := e.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := e.processCompletion(ctx, rec); err != nil {
			slog.Error("completion processing failed",
				"error", err,
				"completion", rec.ID,
				"flow", rec.FlowID,
				"concept", rec.Concept,
				"action", rec.Action,
			)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the engine. Run returns after the queue
// closes and drains.
func (e *Engine) Stop() {
	e.queue.Close()
}

// QueueLen returns the number of completions awaiting evaluation.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// processCompletion evaluates sync candidates for one completion.
// Loop goroutine only.
func (e *Engine) processCompletion(ctx context.Context, comp ir.ActionRecord) error {
	slog.Debug("processing completion",
		"completion", comp.ID,
		"flow", comp.FlowID,
		"concept", comp.Concept,
		"action", comp.Action,
		"variant", comp.Variant,
	)

	candidates := e.idx.Lookup(comp.Concept, comp.Action)
	if len(candidates) == 0 {
		return nil
	}

	records, err := e.log.FlowRecords(ctx, comp.FlowID)
	if err != nil {
		return fmt.Errorf("read flow %s: %w", comp.FlowID, err)
	}
	completions := make([]ir.ActionRecord, 0, len(records))
	for _, rec := range records {
		if rec.Type == ir.RecordCompletion {
			completions = append(completions, rec)
		}
	}

	for _, sync := range candidates {
		already, err := e.hasFired(ctx, comp.FlowID, sync.Name)
		if err != nil {
			return err
		}
		if already {
			continue
		}

		sat := match.Satisfy(*sync, completions, e.where.Eval)
		if !sat.Fired {
			slog.Debug("sync not satisfied",
				"sync", sync.Name,
				"flow", comp.FlowID,
				"reason", sat.Reason,
			)
			continue
		}

		if err := e.fireSync(ctx, sync, comp, sat.Bindings); err != nil {
			// One sync's failure never blocks independent syncs.
			slog.Error("sync firing failed",
				"error", err,
				"sync", sync.Name,
				"flow", comp.FlowID,
				"completion", comp.ID,
			)
		}
	}

	return nil
}

// hasFired checks the in-memory set first, then the persisted log, so a
// reopened engine never refires a sync that fired before the restart.
func (e *Engine) hasFired(ctx context.Context, flowID, syncName string) (bool, error) {
	if e.fired[flowID][syncName] {
		return true, nil
	}
	persisted, err := e.log.HasSyncInvocation(ctx, flowID, syncName)
	if err != nil {
		return false, fmt.Errorf("check fired %s in flow %s: %w", syncName, flowID, err)
	}
	if persisted {
		e.markFired(flowID, syncName)
	}
	return persisted, nil
}

func (e *Engine) markFired(flowID, syncName string) {
	set, ok := e.fired[flowID]
	if !ok {
		set = make(map[string]bool)
		e.fired[flowID] = set
	}
	set[syncName] = true
}

// fireSync executes every then-clause of a satisfied sync: append the
// invocation, dispatch it, and append the resulting completion unless the
// branch suspends on a gate.
func (e *Engine) fireSync(ctx context.Context, sync *ir.CompiledSync, comp ir.ActionRecord, bindings ir.Object) error {
	// Mark before the first append so a dispatch error cannot lead to a
	// second firing when a later completion re-satisfies the clauses.
	e.markFired(comp.FlowID, sync.Name)

	slog.Info("sync fired",
		"sync", sync.Name,
		"flow", comp.FlowID,
		"completion", comp.ID,
	)

	for _, then := range sync.Then {
		input, err := resolveThenInput(then, bindings)
		if err != nil {
			// A bad then-clause fails its own branch only.
			slog.Error("then-clause input unresolvable",
				"error", err,
				"sync", sync.Name,
				"concept", then.Concept,
				"action", then.Action,
			)
			continue
		}

		inv, err := e.appendInvocation(ctx, sync.Name, comp, then, input)
		if err != nil {
			return err
		}

		if err := e.dispatchInvocation(ctx, inv); err != nil {
			return err
		}
	}

	return nil
}

// dispatchInvocation calls the target concept's handler and records the
// outcome. Handler errors become error-variant completions; a pending
// outcome from a gated concept suspends the branch.
func (e *Engine) dispatchInvocation(ctx context.Context, inv ir.ActionRecord) error {
	outcome, err := e.registry.Invoke(ctx, inv.Concept, inv.Action, inv.Input)
	if err != nil {
		rec, aerr := e.appendCompletion(ctx, inv, ir.VariantError, ir.Object{
			"error": ir.String(err.Error()),
		})
		if aerr != nil {
			return aerr
		}
		slog.Warn("dispatch failed, error completion recorded",
			"flow", inv.FlowID,
			"invocation", inv.ID,
			"concept", inv.Concept,
			"action", inv.Action,
			"error", err,
		)
		e.queue.Enqueue(rec)
		return nil
	}

	if outcome.Pending {
		if e.gates.IsGated(inv.Concept) {
			// Branch suspends. The flow stays open until Resolve
			// delivers a completion for this invocation id.
			slog.Info("gated invocation suspended",
				"flow", inv.FlowID,
				"invocation", inv.ID,
				"concept", inv.Concept,
				"action", inv.Action,
				"wait", gate.WaitDescription(inv.Input),
			)
			return nil
		}
		// Only gated concepts may defer. Anything else deferring is a
		// handler bug, surfaced like any other dispatch failure.
		rec, aerr := e.appendCompletion(ctx, inv, ir.VariantError, ir.Object{
			"error": ir.String(fmt.Sprintf("concept %s is not gated but returned pending", inv.Concept)),
		})
		if aerr != nil {
			return aerr
		}
		e.queue.Enqueue(rec)
		return nil
	}

	variant := outcome.Variant
	if variant == "" {
		variant = ir.VariantOK
	}
	rec, err := e.appendCompletion(ctx, inv, variant, outcome.Output)
	if err != nil {
		return err
	}
	e.queue.Enqueue(rec)
	return nil
}

// appendInvocation stamps and persists one invocation record.
// Parent is the triggering completion; Sync carries the firing rule's name.
func (e *Engine) appendInvocation(ctx context.Context, syncName string, comp ir.ActionRecord, then ir.ThenClause, input ir.Object) (ir.ActionRecord, error) {
	seq := e.clock.Next()
	id, err := ir.InvocationID(comp.FlowID, then.Concept, then.Action, input, seq)
	if err != nil {
		return ir.ActionRecord{}, fmt.Errorf("compute invocation id: %w", err)
	}

	inv := ir.ActionRecord{
		ID:      id,
		Type:    ir.RecordInvocation,
		Concept: then.Concept,
		Action:  then.Action,
		FlowID:  comp.FlowID,
		Parent:  comp.ID,
		Sync:    syncName,
		Input:   input,
		Seq:     seq,
		TS:      e.wall.NowMillis(),
	}
	if err := e.log.Append(ctx, inv); err != nil {
		return ir.ActionRecord{}, fmt.Errorf("append invocation %s: %w", id, err)
	}

	slog.Debug("invocation written",
		"invocation", id,
		"flow", comp.FlowID,
		"sync", syncName,
		"concept", then.Concept,
		"action", then.Action,
	)

	return inv, nil
}

// appendCompletion stamps and persists the completion of an invocation.
func (e *Engine) appendCompletion(ctx context.Context, inv ir.ActionRecord, variant string, output ir.Object) (ir.ActionRecord, error) {
	seq := e.clock.Next()
	id, err := ir.CompletionID(inv.ID, variant, output, seq)
	if err != nil {
		return ir.ActionRecord{}, fmt.Errorf("compute completion id: %w", err)
	}

	rec := ir.ActionRecord{
		ID:      id,
		Type:    ir.RecordCompletion,
		Concept: inv.Concept,
		Action:  inv.Action,
		FlowID:  inv.FlowID,
		Parent:  inv.ID,
		Input:   inv.Input,
		Output:  output,
		Variant: variant,
		Seq:     seq,
		TS:      e.wall.NowMillis(),
	}
	if err := e.log.Append(ctx, rec); err != nil {
		return ir.ActionRecord{}, fmt.Errorf("append completion %s: %w", id, err)
	}

	slog.Debug("completion written",
		"completion", id,
		"invocation", inv.ID,
		"flow", inv.FlowID,
		"variant", variant,
	)

	return rec, nil
}

// resolveThenInput materializes a then-clause's input map: bound
// variables are substituted from the satisfaction's bindings, literal
// fields pass through as-is.
func resolveThenInput(then ir.ThenClause, bindings ir.Object) (ir.Object, error) {
	input := make(ir.Object, len(then.Input))
	for name, field := range then.Input {
		if field.Var != "" {
			val, ok := bindings[field.Var]
			if !ok {
				return nil, fmt.Errorf("binding %q not found for field %q", field.Var, name)
			}
			input[name] = val
			continue
		}
		input[name] = field.Literal
	}
	return input, nil
}
