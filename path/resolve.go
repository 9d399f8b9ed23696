package path

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Keyed is implemented by sequence elements that carry a stable identity.
// Sequences of Keyed elements are addressed by identity, never by position.
type Keyed interface {
	Key() string
}

// IdentityField is the entry that gives untyped map elements their identity.
const IdentityField = "id"

var keyedType = reflect.TypeFor[Keyed]()

// Resolve returns the value stored at addr. Optional fields that exist in the
// schema but are unset resolve to their nil value; descending through them
// fails with ErrNotFound.
func Resolve(tree any, addr Address) (any, error) {
	v := reflect.ValueOf(tree)
	for i, seg := range addr {
		next, ok := step(v, seg)
		if !ok {
			return nil, fmt.Errorf("%w: %s (missing %s)", ErrNotFound, addr, addr[:i+1])
		}
		v = next
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

// Assign returns a copy of tree with the node at addr replaced by value. The
// input tree is never modified; only the containers along addr are copied.
// Every segment of addr must already exist, otherwise Assign fails with
// ErrInvalidAddress and no partial result is returned.
func Assign(tree any, addr Address, value any) (any, error) {
	root := reflect.ValueOf(tree)
	if !root.IsValid() {
		if addr.IsRoot() {
			return value, nil
		}
		return nil, fmt.Errorf("%w: %s: tree is empty", ErrInvalidAddress, addr)
	}
	out, err := assign(root, addr, 0, value)
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// FieldName reports the name a struct field is addressed by: its json name
// when tagged, its Go name otherwise.
func FieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, true
}

// IsKeyedSequence reports whether elements of seq are addressed by identity.
func IsKeyedSequence(seq reflect.Value) bool {
	seq, ok := indirect(seq)
	if !ok || (seq.Kind() != reflect.Slice && seq.Kind() != reflect.Array) {
		return false
	}
	elem := seq.Type().Elem()
	switch elem.Kind() {
	case reflect.Interface, reflect.Map:
	default:
		return elem.Implements(keyedType)
	}
	if seq.Len() == 0 {
		return false
	}
	for i := 0; i < seq.Len(); i++ {
		if _, ok := elemKey(seq.Index(i)); !ok {
			return false
		}
	}
	return true
}

func step(v reflect.Value, seg Segment) (reflect.Value, bool) {
	v, ok := indirect(v)
	if !ok {
		return reflect.Value{}, false
	}
	switch seg.Kind {
	case KindField:
		switch v.Kind() {
		case reflect.Struct:
			idx, ok := fieldIndex(v.Type(), seg.Token)
			if !ok {
				return reflect.Value{}, false
			}
			return v.Field(idx), true
		case reflect.Map:
			key, ok := mapKey(v, seg.Token)
			if !ok {
				return reflect.Value{}, false
			}
			entry := v.MapIndex(key)
			return entry, entry.IsValid()
		}
	case KindElem:
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			idx, ok := elemPosition(v, seg.Token)
			if !ok {
				return reflect.Value{}, false
			}
			return v.Index(idx), true
		}
	}
	return reflect.Value{}, false
}

func assign(v reflect.Value, addr Address, depth int, value any) (reflect.Value, error) {
	if depth == len(addr) {
		return coerce(value, v.Type(), addr)
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, missing(addr, depth)
		}
		inner, err := assign(v.Elem(), addr, depth, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(inner)
		return out, nil
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, missing(addr, depth)
		}
		inner, err := assign(v.Elem(), addr, depth, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out, nil
	}

	seg := addr[depth]
	switch {
	case seg.Kind == KindField && v.Kind() == reflect.Struct:
		idx, ok := fieldIndex(v.Type(), seg.Token)
		if !ok {
			return reflect.Value{}, missing(addr, depth)
		}
		child, err := assign(v.Field(idx), addr, depth+1, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		out.Field(idx).Set(child)
		return out, nil

	case seg.Kind == KindField && v.Kind() == reflect.Map:
		key, ok := mapKey(v, seg.Token)
		if !ok {
			return reflect.Value{}, missing(addr, depth)
		}
		existing := v.MapIndex(key)
		if !existing.IsValid() {
			return reflect.Value{}, missing(addr, depth)
		}
		child, err := assign(existing, addr, depth+1, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		out.SetMapIndex(key, child)
		return out, nil

	case seg.Kind == KindElem && v.Kind() == reflect.Slice:
		idx, ok := elemPosition(v, seg.Token)
		if !ok {
			return reflect.Value{}, missing(addr, depth)
		}
		child, err := assign(v.Index(idx), addr, depth+1, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(out, v)
		out.Index(idx).Set(child)
		return out, nil

	case seg.Kind == KindElem && v.Kind() == reflect.Array:
		idx, ok := elemPosition(v, seg.Token)
		if !ok {
			return reflect.Value{}, missing(addr, depth)
		}
		child, err := assign(v.Index(idx), addr, depth+1, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		out.Index(idx).Set(child)
		return out, nil
	}
	return reflect.Value{}, missing(addr, depth)
}

func missing(addr Address, depth int) error {
	return fmt.Errorf("%w: %s (missing %s)", ErrInvalidAddress, addr, addr[:depth+1])
}

// coerce converts value into a value of typ. Named types accept their
// underlying kind (string into PokemonType) and pointer targets accept their
// element type, so optional fields can be set from plain values.
func coerce(value any, typ reflect.Type, addr Address) (reflect.Value, error) {
	out := reflect.New(typ).Elem()
	if value == nil {
		switch typ.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			return out, nil
		}
		return reflect.Value{}, fmt.Errorf("%w: %s: cannot assign nil to %s", ErrInvalidAddress, addr, typ)
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(typ):
		out.Set(rv)
	case convertible(rv, typ):
		out.Set(rv.Convert(typ))
	case typ.Kind() == reflect.Pointer && rv.Type().AssignableTo(typ.Elem()):
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(rv)
		out.Set(ptr)
	case typ.Kind() == reflect.Pointer && convertible(rv, typ.Elem()):
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(rv.Convert(typ.Elem()))
		out.Set(ptr)
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s: cannot assign %s to %s", ErrInvalidAddress, addr, rv.Type(), typ)
	}
	return out, nil
}

func convertible(rv reflect.Value, typ reflect.Type) bool {
	return rv.Kind() == typ.Kind() && rv.Type().ConvertibleTo(typ)
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func fieldIndex(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		if fieldName, ok := FieldName(t.Field(i)); ok && fieldName == name {
			return i, true
		}
	}
	return -1, false
}

func mapKey(m reflect.Value, token string) (reflect.Value, bool) {
	keyType := m.Type().Key()
	if keyType.Kind() != reflect.String {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(token).Convert(keyType), true
}

func elemPosition(seq reflect.Value, token string) (int, bool) {
	if IsKeyedSequence(seq) {
		for i := 0; i < seq.Len(); i++ {
			if key, ok := elemKey(seq.Index(i)); ok && key == token {
				return i, true
			}
		}
		return -1, false
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 0 || idx >= seq.Len() {
		return -1, false
	}
	return idx, true
}

func elemKey(v reflect.Value) (string, bool) {
	v, ok := indirect(v)
	if !ok {
		return "", false
	}
	if v.CanInterface() {
		if keyed, ok := v.Interface().(Keyed); ok {
			return keyed.Key(), true
		}
	}
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		raw := v.MapIndex(reflect.ValueOf(IdentityField).Convert(v.Type().Key()))
		if raw.IsValid() {
			if id, ok := raw.Interface().(string); ok {
				return id, true
			}
		}
	}
	return "", false
}
