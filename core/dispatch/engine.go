package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aledsdavies/operon/core/invariant"
	"github.com/aledsdavies/operon/core/operator"
	"github.com/aledsdavies/operon/core/types"
)

// Engine runs CallSites through Registry -> Normalize -> Dispatch.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	reg       *operator.Registry
	catalog   *HostCatalog
	logger    *slog.Logger
	metrics   *Metrics
	cacheSize int
	cache     *resultCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Transitions log at debug level and failures at
// warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records call outcomes.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCache enables the result cache for pure methods. Sizes <= 0 disable it.
func WithCache(size int) Option {
	return func(e *Engine) {
		e.cacheSize = size
	}
}

// NewEngine creates an engine after cross-checking that the catalog has a
// routine for every registered method and nothing else.
func NewEngine(reg *operator.Registry, catalog *HostCatalog, opts ...Option) (*Engine, error) {
	invariant.NotNil(reg, "registry")
	invariant.NotNil(catalog, "catalog")

	if err := catalog.Verify(reg); err != nil {
		return nil, fmt.Errorf("registry and host catalog disagree: %w", err)
	}

	e := &Engine{reg: reg, catalog: catalog}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.cacheSize > 0 {
		cache, err := newResultCache(e.cacheSize)
		if err != nil {
			return nil, err
		}
		e.cache = cache
	}
	return e, nil
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *operator.Registry {
	return e.reg
}

// CachedResults returns the number of cached pure results.
func (e *Engine) CachedResults() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.len()
}

// Call runs one CallSite. The error, when non-nil, is a *DispatchError.
func (e *Engine) Call(site CallSite) (types.Value, error) {
	start := time.Now()
	result, method, derr := e.call(site)
	e.metrics.observe(site, method, derr, time.Since(start))

	if derr != nil {
		e.logger.Warn("dispatch failed",
			"operator", derr.Operator,
			"method", derr.Method,
			"location", derr.Location.String(),
			"reason", derr.Reason.String(),
			"stage", derr.Stage.String(),
			"error", derr.Message)
		return nil, derr
	}
	e.logger.Debug("dispatch transition",
		"operator", site.Operator,
		"method", method,
		"location", site.Location.String(),
		"stage", StageSucceeded.String())
	return result, nil
}

// call returns the resolved method name alongside the outcome so metrics
// label default-method calls by the method that actually ran.
func (e *Engine) call(site CallSite) (types.Value, string, *DispatchError) {
	e.trace(site, StageReceived)

	spec, err := e.reg.Lookup(site.Operator, site.Method)
	if err != nil {
		derr := Report(site, StageReceived, err)
		derr.Suggestion = e.reg.Suggest(site.Operator, site.Method)
		return nil, site.Method, derr
	}

	call, err := Normalize(site, spec)
	if err != nil {
		return nil, spec.Method, Report(site, StageReceived, err)
	}
	e.trace(site, StageNormalized)

	var (
		key    [32]byte
		cached bool
	)
	if spec.Pure && e.cache != nil {
		k, kerr := e.cache.key(spec.Operator, spec.Method, call.args)
		if kerr != nil {
			e.logger.Debug("call not cacheable", "operator", spec.Operator, "method", spec.Method, "error", kerr)
		} else {
			key, cached = k, true
			if v, ok := e.cache.get(key); ok {
				e.metrics.cacheHit()
				e.trace(site, StageDispatched, "cache", "hit")
				return v, spec.Method, nil
			}
		}
	}

	result, err := Dispatch(spec, call, e.catalog)
	if err != nil {
		return nil, spec.Method, Report(site, StageNormalized, err)
	}
	e.trace(site, StageDispatched)

	if cached {
		e.cache.put(key, result)
	}
	return result, spec.Method, nil
}

func (e *Engine) trace(site CallSite, stage Stage, attrs ...any) {
	e.logger.Debug("dispatch transition", append([]any{
		"operator", site.Operator,
		"method", site.Method,
		"location", site.Location.String(),
		"stage", stage.String(),
	}, attrs...)...)
}
