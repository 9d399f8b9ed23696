// Package model defines the feature records edited by a session and the two
// document shapes they travel in: the baseline Document delivered by a server
// and the DataState trees held in memory and in durable storage.
package model

// PokemonType enumerates the energy types used by features and attack costs.
type PokemonType string

const (
	TypeGrass     PokemonType = "Grass"
	TypeFire      PokemonType = "Fire"
	TypeWater     PokemonType = "Water"
	TypeLightning PokemonType = "Lightning"
	TypePsychic   PokemonType = "Psychic"
	TypeFighting  PokemonType = "Fighting"
	TypeDarkness  PokemonType = "Darkness"
	TypeMetal     PokemonType = "Metal"
	TypeFairy     PokemonType = "Fairy"
	TypeDragon    PokemonType = "Dragon"
	TypeColorless PokemonType = "Colorless"
)

// PokemonTypes lists every known type in display order.
var PokemonTypes = []PokemonType{
	TypeGrass,
	TypeFire,
	TypeWater,
	TypeLightning,
	TypePsychic,
	TypeFighting,
	TypeDarkness,
	TypeMetal,
	TypeFairy,
	TypeDragon,
	TypeColorless,
}

// Valid reports whether t is one of PokemonTypes.
func (t PokemonType) Valid() bool {
	for _, known := range PokemonTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Enum lists the accepted values as strings.
func (PokemonType) Enum() []string {
	out := make([]string, len(PokemonTypes))
	for i, t := range PokemonTypes {
		out[i] = string(t)
	}
	return out
}

// Attack has no identity; attacks are addressed by position.
type Attack struct {
	Name        string        `json:"name" validate:"required"`
	Cost        []PokemonType `json:"cost" validate:"dive,pokemon_type"`
	Damage      string        `json:"damage"`
	Description *string       `json:"description,omitempty"`
}

type Ability struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type Weakness struct {
	Type       PokemonType `json:"type" validate:"pokemon_type"`
	Multiplier string      `json:"multiplier"`
}

type Resistance struct {
	Type   PokemonType `json:"type" validate:"pokemon_type"`
	Amount string      `json:"amount"`
}

// Feature is one editable record. Pointer fields are optional: nil means
// "not set", which is distinct from a pointer to the empty string.
//
// Field order is significant: diffs report changed fields in this order.
type Feature struct {
	ID          string      `json:"id" validate:"required"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	HP          int         `json:"hp" validate:"gte=0"`
	Type        PokemonType `json:"type" validate:"omitempty,pokemon_type"`
	Stage       *string     `json:"stage,omitempty"`
	EvolvesFrom *string     `json:"evolvesFrom,omitempty"`
	Attacks     []Attack    `json:"attacks" validate:"dive"`
	Ability     *Ability    `json:"ability,omitempty"`
	Weakness    *Weakness   `json:"weakness,omitempty"`
	Resistance  *Resistance `json:"resistance,omitempty"`
	RetreatCost int         `json:"retreatCost" validate:"gte=0"`
	Rarity      *string     `json:"rarity,omitempty"`
	Illustrator *string     `json:"illustrator,omitempty"`
	CardNumber  *string     `json:"cardNumber,omitempty"`
	Set         *string     `json:"set,omitempty"`
}

// Key is the identity used to address a feature inside a sequence.
func (f Feature) Key() string {
	return f.ID
}

// DataState is the shape of both the committed and the staged tree.
type DataState struct {
	Count    int       `json:"count"`
	Features []Feature `json:"features"`
}

// Document is the baseline payload. It carries no count.
type Document struct {
	Features []Feature `json:"features"`
}

// State seeds a committed tree from the document with a zero count.
func (d Document) State() DataState {
	return DataState{
		Count:    0,
		Features: Clone(d.Features),
	}
}

// Empty is the tree every store reports before a session has loaded.
func Empty() DataState {
	return DataState{Count: 0, Features: []Feature{}}
}

// String returns a pointer to s, for populating optional fields.
func String(s string) *string {
	return &s
}
