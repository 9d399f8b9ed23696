// Package rules evaluates predicates over features with a pluggable
// expression engine: expr (default), CEL, or JavaScript when built with the
// js_eval tag.
//
// Every feature is bound by its JSON field names (id, name, hp, attacks, ...).
// Optional fields that are not set are bound to null, so the variable set is
// the same for every feature and programs compile once per expression. The
// whole feature is also available as `feature` and its address as `address`.
// CEL has its own `type` identifier; CEL rules read feature["type"] instead.
package rules
