// Package diff derives the structural difference between a committed and a
// staged DataState.
//
// Features are matched by id: a feature present on one side only counts as
// added or deleted and is reported by its sequence-level address alone. A
// feature present on both sides is compared field by field in declaration
// order, and every differing leaf is reported under features[<id>]. Nested
// sequences (attacks, costs) compare position by position, so inserting an
// element reports every following position as changed.
//
// Results are deterministic: count first, then features in id order.
package diff

import (
	"reflect"
	"sort"

	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/path"
)

// Summary counts features, not fields.
type Summary struct {
	AddedCount    int `json:"addedCount"`
	ModifiedCount int `json:"modifiedCount"`
	DeletedCount  int `json:"deletedCount"`
}

// Result is the shared diff tree.
type Result struct {
	HasChanges   bool           `json:"hasChanges"`
	ChangedPaths []path.Address `json:"changedPaths"`
	Summary      Summary        `json:"summary"`
}

// Empty is the result of comparing a tree with itself.
func Empty() Result {
	return Result{ChangedPaths: []path.Address{}}
}

// Paths returns the changed addresses in canonical string form.
func (r Result) Paths() []string {
	out := make([]string, len(r.ChangedPaths))
	for i, addr := range r.ChangedPaths {
		out[i] = addr.String()
	}
	return out
}

// Touches reports whether any change lies at, above or below addr. Cards use
// it to flag a whole feature when one of its fields changed.
func (r Result) Touches(addr path.Address) bool {
	for _, changed := range r.ChangedPaths {
		if changed.Overlaps(addr) {
			return true
		}
	}
	return false
}

var featuresAddr = path.New(path.Field("features"))

// Compute compares working against baseline. Adds and deletes are directional:
// a feature only in working is added, a feature only in baseline is deleted.
func Compute(baseline, working model.DataState) Result {
	rec := recorder{paths: []path.Address{}}
	if baseline.Count != working.Count {
		rec.add(path.New(path.Field("count")))
	}

	before := byID(baseline.Features)
	after := byID(working.Features)
	var summary Summary
	for _, id := range unionIDs(before, after) {
		addr := featuresAddr.Key(id)
		old, inBefore := before[id]
		cur, inAfter := after[id]
		switch {
		case !inBefore:
			rec.add(addr)
			summary.AddedCount++
		case !inAfter:
			rec.add(addr)
			summary.DeletedCount++
		default:
			mark := len(rec.paths)
			compare(&rec, addr, reflect.ValueOf(old), reflect.ValueOf(cur))
			if len(rec.paths) > mark {
				summary.ModifiedCount++
			}
		}
	}

	return Result{
		HasChanges:   len(rec.paths) > 0,
		ChangedPaths: rec.paths,
		Summary:      summary,
	}
}

type recorder struct {
	paths []path.Address
}

func (r *recorder) add(addr path.Address) {
	r.paths = append(r.paths, addr)
}

// byID keeps the first feature for an id; later duplicates are ignored.
func byID(features []model.Feature) map[string]model.Feature {
	out := make(map[string]model.Feature, len(features))
	for _, feature := range features {
		if _, exists := out[feature.ID]; exists {
			continue
		}
		out[feature.ID] = feature
	}
	return out
}

func unionIDs(a, b map[string]model.Feature) []string {
	ids := make([]string, 0, len(a)+len(b))
	for id := range a {
		ids = append(ids, id)
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// compare records every leaf under addr where a and b differ. Pointers are
// compared by presence first, so an unset optional never equals a set one,
// even when the set value is empty.
func compare(rec *recorder, addr path.Address, a, b reflect.Value) {
	if a.Type() != b.Type() {
		rec.add(addr)
		return
	}

	switch a.Kind() {
	case reflect.Pointer, reflect.Interface:
		if a.IsNil() || b.IsNil() {
			if a.IsNil() != b.IsNil() {
				rec.add(addr)
			}
			return
		}
		if a.Kind() == reflect.Interface && a.Elem().Type() != b.Elem().Type() {
			rec.add(addr)
			return
		}
		compare(rec, addr, a.Elem(), b.Elem())

	case reflect.Struct:
		t := a.Type()
		for i := 0; i < t.NumField(); i++ {
			name, ok := path.FieldName(t.Field(i))
			if !ok {
				continue
			}
			compare(rec, addr.Field(name), a.Field(i), b.Field(i))
		}

	case reflect.Slice, reflect.Array:
		n := max(a.Len(), b.Len())
		for i := 0; i < n; i++ {
			at := addr.Index(i)
			if i >= a.Len() || i >= b.Len() {
				rec.add(at)
				continue
			}
			compare(rec, at, a.Index(i), b.Index(i))
		}

	case reflect.Map:
		keys := mapKeys(a, b)
		for _, key := range keys {
			at := addr.Field(key.String())
			left, right := a.MapIndex(key), b.MapIndex(key)
			if !left.IsValid() || !right.IsValid() {
				rec.add(at)
				continue
			}
			compare(rec, at, left, right)
		}

	default:
		if !a.Equal(b) {
			rec.add(addr)
		}
	}
}

func mapKeys(a, b reflect.Value) []reflect.Value {
	seen := map[string]reflect.Value{}
	for _, m := range []reflect.Value{a, b} {
		iter := m.MapRange()
		for iter.Next() {
			seen[iter.Key().String()] = iter.Key()
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	keys := make([]reflect.Value, len(names))
	for i, name := range names {
		keys[i] = seen[name]
	}
	return keys
}
