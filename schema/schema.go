// Package schema describes a tree type as an OpenAPI components document so
// editors can build forms for it. Named struct types become components;
// sequences of identity-keyed elements carry an x-keyed-by extension naming
// the identity field used in addresses.
package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-staged/path"
)

// Enumerated is implemented by string types with a closed set of values.
type Enumerated interface {
	Enum() []string
}

var (
	enumeratedType = reflect.TypeFor[Enumerated]()
	keyedType      = reflect.TypeFor[path.Keyed]()
	timeType       = reflect.TypeFor[time.Time]()
)

// Generate builds an OpenAPI document describing the type of value. Only the
// type is inspected; value may be a zero value or a nil pointer.
func Generate(value any, opts ...Option) (map[string]any, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	rt := reflect.TypeOf(value)
	if rt == nil {
		return nil, fmt.Errorf("schema: cannot describe nil")
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: root must be a struct, got %s", rt)
	}

	reg := newRegistry()
	if cfg.rootName != "" {
		reg.names[rt] = reg.uniqueName(cfg.rootName)
	}
	root, err := reg.schemaFor(rt)
	if err != nil {
		return nil, err
	}

	info := map[string]any{
		"title":   cfg.title,
		"version": cfg.version,
	}
	if cfg.description != "" {
		info["description"] = cfg.description
	}
	return map[string]any{
		"openapi": cfg.openAPIVersion,
		"info":    info,
		"paths":   map[string]any{},
		"components": map[string]any{
			"schemas": reg.components,
		},
		"x-root": root["$ref"],
	}, nil
}

type registry struct {
	names      map[reflect.Type]string
	used       map[string]struct{}
	components map[string]any
}

func newRegistry() *registry {
	return &registry{
		names:      map[reflect.Type]string{},
		used:       map[string]struct{}{},
		components: map[string]any{},
	}
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func (r *registry) schemaFor(rt reflect.Type) (map[string]any, error) {
	if rt.Implements(enumeratedType) && rt.Kind() == reflect.String {
		values := reflect.Zero(rt).Interface().(Enumerated).Enum()
		enum := make([]any, len(values))
		for i, v := range values {
			enum[i] = v
		}
		return map[string]any{"type": "string", "enum": enum}, nil
	}

	switch rt.Kind() {
	case reflect.Pointer:
		return r.schemaFor(rt.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Interface:
		return map[string]any{}, nil
	case reflect.Map:
		if rt.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("schema: map key type %s unsupported", rt.Key())
		}
		values, err := r.schemaFor(rt.Elem())
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "object", "additionalProperties": values}, nil
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return map[string]any{"type": "string", "format": "byte"}, nil
		}
		items, err := r.schemaFor(rt.Elem())
		if err != nil {
			return nil, err
		}
		out := map[string]any{"type": "array", "items": items}
		if rt.Elem().Implements(keyedType) {
			out["x-keyed-by"] = path.IdentityField
		}
		return out, nil
	case reflect.Struct:
		if rt == timeType {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return r.component(rt)
	default:
		return nil, fmt.Errorf("schema: type %s unsupported", rt)
	}
}

// component registers rt once and returns a reference to it. Recursive types
// terminate because the name is reserved before the fields are walked.
func (r *registry) component(rt reflect.Type) (map[string]any, error) {
	if name, ok := r.names[rt]; ok {
		if _, done := r.components[name]; done {
			return ref(name), nil
		}
	} else {
		r.names[rt] = r.uniqueName(rt.Name())
	}
	name := r.names[rt]
	r.components[name] = map[string]any{}

	properties := map[string]any{}
	required := []string{}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldName, ok := path.FieldName(field)
		if !ok {
			continue
		}
		child, err := r.schemaFor(field.Type)
		if err != nil {
			return nil, fmt.Errorf("schema: %s.%s: %w", rt.Name(), field.Name, err)
		}
		child = withConstraints(child, field.Tag.Get("validate"))
		if field.Type.Kind() == reflect.Pointer {
			child = nullable(child)
		} else {
			required = append(required, fieldName)
		}
		properties[fieldName] = child
	}

	out := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		slices.Sort(required)
		out["required"] = required
	}
	r.components[name] = out
	return ref(name), nil
}

// nullable marks an optional field. A $ref cannot carry siblings in 3.0, so
// references are wrapped in allOf.
func nullable(s map[string]any) map[string]any {
	if _, isRef := s["$ref"]; isRef {
		return map[string]any{"allOf": []any{s}, "nullable": true}
	}
	s["nullable"] = true
	return s
}

// withConstraints maps the validator tags the model uses onto schema keywords.
func withConstraints(s map[string]any, tag string) map[string]any {
	if tag == "" {
		return s
	}
	for _, rule := range strings.Split(tag, ",") {
		name, param, _ := strings.Cut(rule, "=")
		switch name {
		case "dive":
			return s
		case "required":
			if s["type"] == "string" {
				s["minLength"] = 1
			}
		case "gte", "min":
			if n, err := strconv.ParseFloat(param, 64); err == nil {
				s["minimum"] = n
			}
		case "lte", "max":
			if n, err := strconv.ParseFloat(param, 64); err == nil {
				s["maximum"] = n
			}
		}
	}
	return s
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func (r *registry) uniqueName(hint string) string {
	safe := strings.Trim(componentNameRegexp.ReplaceAllString(hint, "_"), "_")
	if safe == "" {
		safe = "Schema"
	}
	if safe[0] >= '0' && safe[0] <= '9' {
		safe = "_" + safe
	}
	candidate := safe
	for suffix := 1; ; suffix++ {
		if _, taken := r.used[candidate]; !taken {
			r.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", safe, suffix)
	}
}
