package rules

import (
	"errors"
	"fmt"
	"time"
)

// Engine names accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

var (
	ErrUnknownEngine = errors.New("rules: unknown engine")
	// ErrEngineUnavailable is returned for engines compiled out of the binary.
	ErrEngineUnavailable = errors.New("rules: engine not available in this build")
)

// Context carries the bindings for one evaluation.
type Context struct {
	// Bindings become top-level variables. Build them with Bind.
	Bindings map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.Bindings == nil {
		ctx.Bindings = map[string]any{}
	}
	return ctx
}

// label identifies the evaluated subject in errors.
func (ctx Context) label() string {
	if addr, ok := ctx.Bindings["address"].(string); ok && addr != "" {
		return addr
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
	Engine() string
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx Context) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Option configures any evaluator.
type Option func(*evaluatorConfig)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry functions to expressions, both by
// name and through call(name, args...). The registry is copied.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *evaluatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyOptions(opts []Option) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// NewEvaluator builds the evaluator for engine. An empty engine selects expr.
func NewEvaluator(engine string, opts ...Option) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		ev := NewJSEvaluator(opts...)
		if ev == nil {
			return nil, fmt.Errorf("%w: %s (rebuild with -tags js_eval)", ErrEngineUnavailable, engine)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}
