package model

import (
	"slices"
	"strconv"
	"strings"
)

// NextFeatureID returns the smallest decimal id, starting from len+1, that no
// feature uses yet.
func NextFeatureID(features []Feature) string {
	used := make(map[string]struct{}, len(features))
	for _, feature := range features {
		used[feature.ID] = struct{}{}
	}
	for n := len(features) + 1; ; n++ {
		id := strconv.Itoa(n)
		if _, taken := used[id]; !taken {
			return id
		}
	}
}

// NewFeature builds the placeholder record inserted by "add feature".
func NewFeature(id string) Feature {
	return Feature{
		ID:          id,
		Name:        "Feature " + id,
		Description: "New feature description",
		Attacks:     []Attack{},
	}
}

// SortedByID returns a copy of features ordered by id.
func SortedByID(features []Feature) []Feature {
	out := Clone(features)
	slices.SortStableFunc(out, func(a, b Feature) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// FindFeature returns the feature with id and its position.
func FindFeature(features []Feature, id string) (Feature, int, bool) {
	for i, feature := range features {
		if feature.ID == id {
			return feature, i, true
		}
	}
	return Feature{}, -1, false
}
