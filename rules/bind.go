package rules

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/goliatone/go-staged/model"
	"github.com/goliatone/go-staged/path"
)

var (
	fieldsOnce    sync.Once
	featureFields []string
)

// FeatureFields lists the names every feature binding declares, in field
// order.
func FeatureFields() []string {
	fieldsOnce.Do(func() {
		t := reflect.TypeFor[model.Feature]()
		for i := 0; i < t.NumField(); i++ {
			if name, ok := path.FieldName(t.Field(i)); ok {
				featureFields = append(featureFields, name)
			}
		}
	})
	return append([]string(nil), featureFields...)
}

// variables is every top-level name an expression may reference.
func variables() []string {
	return append(FeatureFields(), "feature", "address", "now", "args", "metadata")
}

// Bind converts feature into evaluation bindings: its JSON form with whole
// numbers as int64 and unset optionals as nil.
func Bind(feature model.Feature, addr path.Address) (map[string]any, error) {
	raw, err := json.Marshal(feature)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var object map[string]any
	if err := decoder.Decode(&object); err != nil {
		return nil, err
	}
	object = normalizeNumbers(object).(map[string]any)

	bindings := make(map[string]any, len(object)+2)
	for _, name := range FeatureFields() {
		bindings[name] = object[name]
	}
	bindings["feature"] = object
	bindings["address"] = addr.String()
	return bindings, nil
}

func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	default:
		return value
	}
}
