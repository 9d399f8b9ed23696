package rules

import (
	"fmt"

	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/path"
)

var featuresAddr = path.New(path.Field("features"))

// Rule is a predicate every feature must satisfy.
type Rule struct {
	Name string `json:"name" yaml:"name"`
	Expr string `json:"expr" yaml:"expr"`
	// Message is reported for failing features. Defaults to the expression.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Violation is one feature failing one rule.
type Violation struct {
	Rule    string       `json:"rule"`
	Address path.Address `json:"address"`
	Message string       `json:"message"`
}

// Check evaluates every rule against every feature of state, in feature order
// then rule order. A rule that errors or yields a non-boolean aborts the
// check.
func Check(ev Evaluator, state model.DataState, rules ...Rule) ([]Violation, error) {
	compiled := make([]CompiledRule, len(rules))
	for i, rule := range rules {
		program, err := ev.Compile(rule.Expr)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		compiled[i] = program
	}

	violations := []Violation{}
	for _, feature := range state.Features {
		addr := featuresAddr.Key(feature.ID)
		ctx, err := featureContext(feature, addr)
		if err != nil {
			return nil, err
		}
		for i, rule := range rules {
			ok, err := predicate(ev.Engine(), rule.Expr, compiled[i], ctx)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
			}
			if ok {
				continue
			}
			message := rule.Message
			if message == "" {
				message = rule.Expr
			}
			violations = append(violations, Violation{Rule: rule.Name, Address: addr, Message: message})
		}
	}
	return violations, nil
}

// Select returns the features for which expr is true, preserving order.
func Select(ev Evaluator, features []model.Feature, expr string) ([]model.Feature, error) {
	program, err := ev.Compile(expr)
	if err != nil {
		return nil, err
	}
	selected := []model.Feature{}
	for _, feature := range features {
		ctx, err := featureContext(feature, featuresAddr.Key(feature.ID))
		if err != nil {
			return nil, err
		}
		ok, err := predicate(ev.Engine(), expr, program, ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, model.Clone(feature))
		}
	}
	return selected, nil
}

func featureContext(feature model.Feature, addr path.Address) (Context, error) {
	bindings, err := Bind(feature, addr)
	if err != nil {
		return Context{}, fmt.Errorf("rules: bind %s: %w", addr, err)
	}
	return Context{Bindings: bindings}, nil
}

func predicate(engine, expr string, program CompiledRule, ctx Context) (bool, error) {
	result, err := program.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, wrapEvaluationError(engine, expr, ctx.label(), fmt.Errorf("expected bool, got %T", result))
	}
	return ok, nil
}
