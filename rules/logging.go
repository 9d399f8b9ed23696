package rules

import (
	"context"
	"log/slog"
	"time"
)

// Logged wraps ev so every evaluation is logged at debug level with its
// duration, and failures at warn.
func Logged(ev Evaluator, logger *slog.Logger) Evaluator {
	if logger == nil {
		return ev
	}
	return &loggedEvaluator{Evaluator: ev, logger: logger}
}

type loggedEvaluator struct {
	Evaluator
	logger *slog.Logger
}

func (l *loggedEvaluator) Evaluate(ctx Context, expr string) (any, error) {
	start := time.Now()
	result, err := l.Evaluator.Evaluate(ctx, expr)
	l.log(expr, ctx, time.Since(start), err)
	return result, err
}

func (l *loggedEvaluator) Compile(expr string) (CompiledRule, error) {
	program, err := l.Evaluator.Compile(expr)
	if err != nil {
		l.log(expr, Context{}, 0, err)
		return nil, err
	}
	return &loggedRule{rule: program, expr: expr, parent: l}, nil
}

type loggedRule struct {
	rule   CompiledRule
	expr   string
	parent *loggedEvaluator
}

func (r *loggedRule) Evaluate(ctx Context) (any, error) {
	start := time.Now()
	result, err := r.rule.Evaluate(ctx)
	r.parent.log(r.expr, ctx, time.Since(start), err)
	return result, err
}

func (l *loggedEvaluator) log(expr string, ctx Context, elapsed time.Duration, err error) {
	attrs := []slog.Attr{
		slog.String("engine", l.Engine()),
		slog.String("expr", expr),
		slog.String("subject", ctx.label()),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.LogAttrs(context.Background(), slog.LevelWarn, "rule evaluation failed", attrs...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "rule evaluated", attrs...)
}
