package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-staged/path"
)

// ErrInvalid is wrapped by every *ValidationError.
var ErrInvalid = errors.New("model: invalid state")

// Problem is one validation failure, addressed like the rest of the tree.
type Problem struct {
	Address path.Address `json:"address"`
	Rule    string       `json:"rule"`
	Message string       `json:"message"`
}

// ValidationError collects every Problem found in a tree.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return ErrInvalid.Error()
	}
	parts := make([]string, 0, len(e.Problems))
	for _, problem := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", problem.Address, problem.Message))
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, ok := path.FieldName(field)
			if !ok {
				return "-"
			}
			return name
		})
		_ = v.RegisterValidation("pokemon_type", func(fl validator.FieldLevel) bool {
			return PokemonType(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Validate checks every feature against its field constraints and rejects
// empty or duplicate identities, since features are addressed by id.
func Validate(state DataState) error {
	var problems []Problem
	if state.Count < 0 {
		problems = append(problems, Problem{
			Address: path.New(path.Field("count")),
			Rule:    "gte",
			Message: "count must not be negative",
		})
	}

	seen := make(map[string]int, len(state.Features))
	features := path.New(path.Field("features"))
	for i, feature := range state.Features {
		addr := features.Key(feature.ID)
		if feature.ID == "" {
			addr = features.Index(i)
		} else if first, dup := seen[feature.ID]; dup {
			problems = append(problems, Problem{
				Address: addr,
				Rule:    "unique",
				Message: fmt.Sprintf("duplicate id %q (first at position %d)", feature.ID, first),
			})
			continue
		} else {
			seen[feature.ID] = i
		}
		problems = append(problems, featureProblems(addr, feature)...)
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func featureProblems(base path.Address, feature Feature) []Problem {
	err := structValidator().Struct(feature)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Problem{{Address: base, Rule: "struct", Message: err.Error()}}
	}
	problems := make([]Problem, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		problems = append(problems, Problem{
			Address: base.With(namespaceAddress(fieldErr.Namespace())...),
			Rule:    fieldErr.Tag(),
			Message: describe(fieldErr),
		})
	}
	return problems
}

// namespaceAddress turns "Feature.attacks[0].cost[1]" into the address of the
// offending node relative to the feature.
func namespaceAddress(namespace string) path.Address {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return nil
	}
	addr, err := path.Parse(rest)
	if err != nil {
		return path.New(path.Field(rest))
	}
	return addr
}

func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldErr.Field())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fieldErr.Field(), fieldErr.Param())
	case "pokemon_type":
		return fmt.Sprintf("%s has unknown type %q", fieldErr.Field(), fieldErr.Value())
	default:
		return fmt.Sprintf("%s failed %s", fieldErr.Field(), fieldErr.Tag())
	}
}
