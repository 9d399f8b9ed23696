package rules

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Function is a helper callable from rule expressions. Arguments arrive in
// their bound form: maps for objects, []any for lists, int64 for whole
// numbers.
type Function func(args ...any) (any, error)

// FunctionRegistry maps lower-cased names to helpers.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// FeatureFunctions returns a registry holding the feature helpers:
//
//	weak_to(weakness, type)  true when weakness names type
//	attack_count(attacks)    number of attacks
//	max_damage(attacks)      highest leading number in an attack's damage
func FeatureFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.functions["weak_to"] = weakTo
	r.functions["attack_count"] = attackCount
	r.functions["max_damage"] = maxDamage
	return r
}

// Register adds fn under name. Names are case-insensitive and unique.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("rules: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("rules: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("rules: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone copies the name table; the functions are shared.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	functions := maps.Clone(r.functions)
	if functions == nil {
		functions = make(map[string]Function)
	}
	return &FunctionRegistry{functions: functions}
}

func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("rules: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("rules: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

func weakTo(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("weak_to takes a weakness and a type, got %d argument(s)", len(args))
	}
	want, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("weak_to: type must be a string, got %T", args[1])
	}
	// Unset weaknesses arrive as nil, or as a null value from CEL.
	weakness, ok := args[0].(map[string]any)
	if !ok {
		return false, nil
	}
	return weakness["type"] == want, nil
}

func attackCount(args ...any) (any, error) {
	attacks, err := attackList("attack_count", args)
	if err != nil {
		return nil, err
	}
	return int64(len(attacks)), nil
}

// maxDamage reads damage strings such as "30", "20+" or "10x" by their
// leading digits. Attacks without a number count as zero.
func maxDamage(args ...any) (any, error) {
	attacks, err := attackList("max_damage", args)
	if err != nil {
		return nil, err
	}
	var highest int64
	for _, attack := range attacks {
		fields, ok := attack.(map[string]any)
		if !ok {
			continue
		}
		damage, _ := fields["damage"].(string)
		end := 0
		for end < len(damage) && damage[end] >= '0' && damage[end] <= '9' {
			end++
		}
		if end == 0 {
			continue
		}
		n, err := strconv.ParseInt(damage[:end], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("max_damage: %w", err)
		}
		highest = max(highest, n)
	}
	return highest, nil
}

func attackList(name string, args []any) ([]any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s takes one argument, got %d", name, len(args))
	}
	switch attacks := args[0].(type) {
	case nil:
		return nil, nil
	case []any:
		return attacks, nil
	default:
		return nil, fmt.Errorf("%s: attacks must be a list, got %T", name, args[0])
	}
}
