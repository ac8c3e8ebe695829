// Package evaluator walks a document, dispatching every operator node it
// finds bottom-up and writing results back in place.
package evaluator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/core/invariant"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config controls one Evaluator.
type Config struct {
	Policy Policy
	// Parallelism > 1 evaluates the root's children concurrently.
	Parallelism int
	// Strict treats every "_"-prefixed single-key mapping as an operator
	// node, so unregistered operators fail instead of passing through.
	Strict bool
}

// Result is the outcome of one evaluation.
type Result struct {
	RunID string
	Value types.Value
	// Errors holds the failures recorded under CollectAll, in document order.
	Errors dispatch.ErrorList
	// Calls counts dispatched CallSites, failed ones included.
	Calls int64
}

// Err returns the recorded failures as one error, or nil.
func (r *Result) Err() error {
	return r.Errors.Err()
}

// Evaluator evaluates documents against one engine. It is safe for
// concurrent use.
type Evaluator struct {
	engine *dispatch.Engine
	reg    *operator.Registry
	cfg    Config
	logger *slog.Logger
}

// New creates an Evaluator. A nil reg uses the engine's registry and a nil
// logger discards output.
func New(engine *dispatch.Engine, reg *operator.Registry, cfg Config, logger *slog.Logger) *Evaluator {
	invariant.NotNil(engine, "engine")
	if reg == nil {
		reg = engine.Registry()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Evaluator{engine: engine, reg: reg, cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (ev *Evaluator) Config() Config {
	return ev.cfg
}

// Evaluate returns a new document with every operator node replaced by its
// result; root is not modified. Under FailFast the first DispatchError is
// returned as the error. Context cancellation returns ctx.Err().
func (ev *Evaluator) Evaluate(ctx context.Context, root types.Value) (*Result, error) {
	r := &run{
		ev:     ev,
		id:     uuid.NewString(),
		logger: ev.logger,
	}
	r.logger = ev.logger.With("run", r.id)
	r.logger.Debug("evaluation started",
		"policy", ev.cfg.Policy.String(),
		"parallelism", ev.cfg.Parallelism,
		"strict", ev.cfg.Strict)
	start := time.Now()

	var (
		value types.Value
		errs  dispatch.ErrorList
		err   error
	)
	if ev.cfg.Parallelism > 1 && !ev.isOperatorNode(root) {
		value, errs, err = r.evalParallel(ctx, root)
	} else {
		value, _, err = r.eval(ctx, types.Root(), root, &errs)
	}
	if err != nil {
		r.logger.Debug("evaluation aborted", "calls", r.calls.Load(), "error", err)
		return nil, err
	}

	r.logger.Debug("evaluation finished",
		"calls", r.calls.Load(),
		"errors", errs.Len(),
		"duration", time.Since(start))
	return &Result{
		RunID:  r.id,
		Value:  value,
		Errors: errs,
		Calls:  r.calls.Load(),
	}, nil
}

// operatorKey reports whether m is an operator node and splits its key.
func (ev *Evaluator) operatorKey(m *types.Map) (key, op, method string, ok bool) {
	if m.Len() != 1 {
		return "", "", "", false
	}
	key = m.Keys()[0]
	if !strings.HasPrefix(key, "_") {
		return "", "", "", false
	}
	op, method = operator.SplitName(key)
	if !ev.cfg.Strict && !ev.reg.Has(op) {
		return "", "", "", false
	}
	return key, op, method, true
}

func (ev *Evaluator) isOperatorNode(v types.Value) bool {
	m, ok := v.(*types.Map)
	if !ok {
		return false
	}
	_, _, _, ok = ev.operatorKey(m)
	return ok
}

type run struct {
	ev     *Evaluator
	id     string
	logger *slog.Logger
	calls  atomic.Int64
}

// eval returns the evaluated value and whether a failure was recorded
// inside it. A node whose params hold a failure is not dispatched.
func (r *run) eval(ctx context.Context, loc types.Location, v types.Value, errs *dispatch.ErrorList) (types.Value, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	switch t := v.(type) {
	case []types.Value:
		out := make([]types.Value, len(t))
		failed := false
		for i, el := range t {
			got, f, err := r.eval(ctx, loc.Index(i), el, errs)
			if err != nil {
				return nil, false, err
			}
			out[i] = got
			failed = failed || f
		}
		return out, failed, nil

	case *types.Map:
		if key, op, method, ok := r.ev.operatorKey(t); ok {
			return r.call(ctx, loc.Key(key), op, method, t, errs)
		}
		out := types.NewMap()
		failed := false
		for _, key := range t.Keys() {
			child, _ := t.Get(key)
			got, f, err := r.eval(ctx, loc.Key(key), child, errs)
			if err != nil {
				return nil, false, err
			}
			out.Set(key, got)
			failed = failed || f
		}
		return out, failed, nil

	default:
		return v, false, nil
	}
}

func (r *run) call(ctx context.Context, loc types.Location, op, method string, node *types.Map, errs *dispatch.ErrorList) (types.Value, bool, error) {
	raw, _ := node.Get(node.Keys()[0])
	params, failed, err := r.eval(ctx, loc, raw, errs)
	if err != nil {
		return nil, false, err
	}
	if failed {
		r.logger.Debug("skipping call with failed params",
			"operator", op,
			"method", method,
			"location", loc.String())
		return nil, true, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.calls.Add(1)
	result, err := r.ev.engine.Call(dispatch.CallSite{
		Operator: op,
		Method:   method,
		Params:   params,
		Location: loc,
	})
	if err == nil {
		return result, false, nil
	}

	var derr *dispatch.DispatchError
	if !errors.As(err, &derr) {
		derr = dispatch.Report(dispatch.CallSite{Operator: op, Method: method, Location: loc}, dispatch.StageDispatched, err)
	}
	if r.ev.cfg.Policy == FailFast {
		return nil, false, derr
	}
	errs.Add(derr)
	return nil, true, nil
}

// evalParallel evaluates the root's children concurrently and reassembles
// values and failures in document order.
func (r *run) evalParallel(ctx context.Context, root types.Value) (types.Value, dispatch.ErrorList, error) {
	type slot struct {
		loc   types.Location
		in    types.Value
		out   types.Value
		errs  dispatch.ErrorList
		fatal error
	}

	var (
		slots []*slot
		keys  []string
		isMap bool
	)
	switch t := root.(type) {
	case []types.Value:
		for i, el := range t {
			slots = append(slots, &slot{loc: types.Root().Index(i), in: el})
		}
	case *types.Map:
		isMap = true
		keys = t.Keys()
		for _, key := range keys {
			child, _ := t.Get(key)
			slots = append(slots, &slot{loc: types.Root().Key(key), in: child})
		}
	default:
		return root, nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.ev.cfg.Parallelism)
	for _, s := range slots {
		g.Go(func() error {
			s.out, _, s.fatal = r.eval(gctx, s.loc, s.in, &s.errs)
			return s.fatal
		})
	}
	_ = g.Wait()

	// A sibling's failure cancels gctx; report the earliest real failure
	// rather than the cancellations it caused.
	var derr *dispatch.DispatchError
	for _, s := range slots {
		if errors.As(s.fatal, &derr) {
			return nil, nil, derr
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	for _, s := range slots {
		if s.fatal != nil {
			return nil, nil, s.fatal
		}
	}

	var errs dispatch.ErrorList
	for _, s := range slots {
		errs = append(errs, s.errs...)
	}
	if !isMap {
		out := make([]types.Value, len(slots))
		for i, s := range slots {
			out[i] = s.out
		}
		return out, errs, nil
	}
	out := types.NewMap()
	for i, key := range keys {
		out.Set(key, slots[i].out)
	}
	return out, errs, nil
}
