package model_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-staged/model"
)

func TestCloneIsDeep(t *testing.T) {
	original := model.DataState{
		Count: 1,
		Features: []model.Feature{{
			ID:      "1",
			Stage:   model.String("Basic"),
			Attacks: []model.Attack{{Name: "Tackle", Cost: []model.PokemonType{model.TypeColorless}}},
			Ability: &model.Ability{Name: "Run Away"},
		}},
	}
	clone := model.Clone(original)
	if !reflect.DeepEqual(original, clone) {
		t.Fatalf("clone differs from original")
	}

	*clone.Features[0].Stage = "Stage 1"
	clone.Features[0].Attacks[0].Cost[0] = model.TypeFire
	clone.Features[0].Ability.Name = "Static"
	clone.Features = append(clone.Features, model.Feature{ID: "2"})

	if *original.Features[0].Stage != "Basic" ||
		original.Features[0].Attacks[0].Cost[0] != model.TypeColorless ||
		original.Features[0].Ability.Name != "Run Away" ||
		len(original.Features) != 1 {
		t.Fatalf("mutating the clone leaked into the original: %+v", original.Features[0])
	}
}

func TestClonePreservesNilVersusEmpty(t *testing.T) {
	state := model.DataState{Features: []model.Feature{{ID: "1", Rarity: model.String("")}}}
	clone := model.Clone(state)
	if clone.Features[0].Rarity == nil || *clone.Features[0].Rarity != "" {
		t.Fatalf("empty optional must stay set")
	}
	if clone.Features[0].Attacks != nil || clone.Features[0].Stage != nil {
		t.Fatalf("nil fields must stay nil")
	}
}

func TestDocumentStateSeedsZeroCount(t *testing.T) {
	doc := model.Document{Features: []model.Feature{{ID: "1"}}}
	state := doc.State()
	if state.Count != 0 || len(state.Features) != 1 {
		t.Fatalf("unexpected state %+v", state)
	}
	state.Features[0].Name = "changed"
	if doc.Features[0].Name != "" {
		t.Fatalf("state must not alias the document")
	}
}

func TestNextFeatureID(t *testing.T) {
	cases := []struct {
		ids  []string
		want string
	}{
		{ids: nil, want: "1"},
		{ids: []string{"1", "2"}, want: "3"},
		{ids: []string{"1", "3"}, want: "4"},
		{ids: []string{"2", "3"}, want: "4"},
		{ids: []string{"x"}, want: "2"},
	}
	for _, tc := range cases {
		features := make([]model.Feature, len(tc.ids))
		for i, id := range tc.ids {
			features[i] = model.Feature{ID: id}
		}
		if got := model.NextFeatureID(features); got != tc.want {
			t.Fatalf("NextFeatureID(%v): want %q got %q", tc.ids, tc.want, got)
		}
	}
}

func TestNewFeatureAndSort(t *testing.T) {
	feature := model.NewFeature("4")
	if feature.Name != "Feature 4" || feature.Description != "New feature description" {
		t.Fatalf("unexpected placeholder %+v", feature)
	}

	sorted := model.SortedByID([]model.Feature{{ID: "b"}, {ID: "a"}, {ID: "c"}})
	if sorted[0].ID != "a" || sorted[1].ID != "b" || sorted[2].ID != "c" {
		t.Fatalf("unexpected order %v", sorted)
	}

	if _, idx, ok := model.FindFeature(sorted, "c"); !ok || idx != 2 {
		t.Fatalf("FindFeature: got idx=%d ok=%v", idx, ok)
	}
}

func TestValidate(t *testing.T) {
	valid := model.DataState{Features: []model.Feature{{
		ID:       "1",
		Name:     "Bulbasaur",
		HP:       45,
		Type:     model.TypeGrass,
		Attacks:  []model.Attack{{Name: "Vine Whip", Cost: []model.PokemonType{model.TypeGrass}}},
		Weakness: &model.Weakness{Type: model.TypeFire, Multiplier: "x2"},
	}}}
	if err := model.Validate(valid); err != nil {
		t.Fatalf("expected valid state, got %v", err)
	}

	invalid := model.Clone(valid)
	invalid.Features[0].HP = -5
	invalid.Features[0].Attacks[0].Cost = append(invalid.Features[0].Attacks[0].Cost, "Plasma")
	invalid.Features = append(invalid.Features, model.Feature{ID: "1"}, model.Feature{})

	err := model.Validate(invalid)
	if !errors.Is(err, model.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	got := map[string]string{}
	for _, problem := range verr.Problems {
		got[problem.Address.String()] = problem.Rule
	}
	want := map[string]string{
		"features[1].hp":                 "gte",
		"features[1].attacks[0].cost[1]": "pokemon_type",
		"features[1]":                    "unique",
		"features[2].id":                 "required",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("problems mismatch:\nwant: %v\n got: %v", want, got)
	}
}
