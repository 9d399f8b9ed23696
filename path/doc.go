// Package path names nodes inside nested state trees and reads or replaces the
// value stored at a name.
//
// An Address is an ordered list of segments. Field segments select struct
// fields (by json name) or string-keyed map entries. Elem segments select
// sequence elements: when the sequence exposes an identity (elements implement
// Keyed, or untyped map elements carry an "id" string) the token is that
// identity, otherwise it is the decimal position.
//
// Canonical form:
//
//	count
//	features[1].hp
//	features[1].attacks[0].cost[2]
//	features["a.b"].ability.name
//
// Tokens made of letters, digits, '_' and '-' are written bare, anything else
// is written as a Go quoted string, so Parse(a.String()) always equals a.
package path
