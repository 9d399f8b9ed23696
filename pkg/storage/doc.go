// Package storage defines the durable key/value contract that backs the staged
// tree, plus in-memory and file-backed implementations.
//
// A Store holds opaque strings under string keys, the same shape a browser's
// local storage offers. Sessions serialise the staged tree to JSON before
// calling Put, and parse what Get returns; the store itself never looks inside
// values. Backends that need a real database live in the sqlite and badger
// subpackages.
package storage
