package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/crudkit/internal/config"
	"github.com/roach88/crudkit/internal/queryspec"
	"github.com/roach88/crudkit/internal/registry"
	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/testutil"
	"github.com/roach88/crudkit/internal/value"
)

// Harness executes one scenario against its own store.
type Harness struct {
	registry *registry.Registry
	logger   *slog.Logger
	seq      int64
}

// Options configure Run.
type Options struct {
	// Logger receives engine and store diagnostics. Discarded when nil.
	Logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Timestamps come from
// a StepClock starting at testutil.Epoch and keys from the scenario's key
// list, so identical scenarios produce identical traces.
//
// The returned error reports a scenario that could not be set up; failed
// expectations are recorded in the Result instead.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st, err := store.Open(":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	defs := slices.Clone(scenario.Resources)
	if scenario.ResourcesFile != "" {
		more, err := config.LoadResources(scenario.ResourcesFile)
		if err != nil {
			return nil, err
		}
		defs = append(defs, more...)
	}

	reg, err := registry.Build(ctx, st, defs, registry.Options{
		Logger:        logger,
		Clock:         testutil.NewStepClock(testutil.Epoch, time.Second),
		Keys:          newScenarioKeys(scenario.Keys),
		WithoutSample: scenario.WithoutSample,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	h := &Harness{registry: reg, logger: logger}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.executeStep(ctx, i, step, result)
	}

	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, st.Handle()) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, traces it, and checks its expectation.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	h.seq++
	event := TraceEvent{
		Seq:  h.seq,
		Op:   step.Resource + "." + step.Op,
		Args: stepArgs(step),
	}

	out, err := h.dispatch(ctx, step)
	switch {
	case err == nil:
		event.Outcome = OutcomeOK
		event.Result = out
	default:
		event.Outcome, event.Message = outcomeOf(err)
	}
	result.Trace = append(result.Trace, event)
	h.logger.Debug("step executed", "seq", event.Seq, "op", event.Op, "outcome", event.Outcome)

	for _, msg := range checkExpect(step.Expect, event) {
		result.AddErrorf("steps[%d] %s: %s", i, event.Op, msg)
	}
}

// dispatch runs the step's operation and renders its result as a Value.
func (h *Harness) dispatch(ctx context.Context, step Step) (value.Value, error) {
	svc, ok := h.registry.Lookup(step.Resource)
	if !ok {
		return nil, &resource.Error{Code: resource.CodeNotFound, Message: resource.MsgNotFound}
	}

	switch step.Op {
	case OpCreate:
		body, err := bodyValue(step.Body)
		if err != nil {
			return nil, err
		}
		return objectOrNil(svc.Create(ctx, body))
	case OpGet:
		return objectOrNil(svc.Get(ctx, step.ID))
	case OpUpdate:
		body, err := bodyValue(step.Body)
		if err != nil {
			return nil, err
		}
		return objectOrNil(svc.Update(ctx, step.ID, body))
	case OpDelete:
		return objectOrNil(svc.Delete(ctx, step.ID))
	case OpList:
		page, err := svc.List(ctx, queryspec.Params(step.Query))
		if err != nil {
			return nil, err
		}
		items := make(value.Array, len(page.Items))
		for i, item := range page.Items {
			items[i] = item
		}
		return value.Object{"items": items, "count": value.Int(page.Count)}, nil
	case OpDistinct:
		vals, err := svc.Distinct(ctx, step.Field)
		if err != nil {
			return nil, err
		}
		arr := make(value.Array, len(vals))
		for i, v := range vals {
			arr[i] = value.String(v)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func objectOrNil(obj value.Object, err error) (value.Value, error) {
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// bodyValue converts a YAML body. An omitted body stays nil so the engine
// sees no body at all.
func bodyValue(body any) (value.Value, error) {
	if body == nil {
		return nil, nil
	}
	v, err := value.FromGo(body)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	return v, nil
}

// outcomeOf maps an error to its trace outcome and message.
func outcomeOf(err error) (string, string) {
	var rerr *resource.Error
	if errors.As(err, &rerr) {
		return string(rerr.Code), rerr.Message
	}
	return OutcomeError, err.Error()
}

// stepArgs records the inputs of a step for the trace.
func stepArgs(step Step) value.Object {
	args := value.Object{}
	if step.ID != "" {
		args["id"] = value.String(step.ID)
	}
	if step.Body != nil {
		if body, err := value.FromGo(step.Body); err == nil {
			args["body"] = body
		}
	}
	if len(step.Query) > 0 {
		query := value.Object{}
		for k, v := range step.Query {
			query[k] = value.String(v)
		}
		args["query"] = query
	}
	if step.Field != "" {
		args["field"] = value.String(step.Field)
	}
	return args
}

// scenarioKeys hands out the scenario's keys, then key-1, key-2, ...
type scenarioKeys struct {
	mu   sync.Mutex
	keys []string
	n    int
}

func newScenarioKeys(keys []string) *scenarioKeys {
	return &scenarioKeys{keys: keys}
}

func (g *scenarioKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n <= len(g.keys) {
		return g.keys[g.n-1]
	}
	return fmt.Sprintf("key-%d", g.n-len(g.keys))
}
