// Package evidence holds the evidence record model and the in-memory store
// that owns those records.
//
// A record is created once by Register and afterwards only mutated by
// Transfer, which appends to its custody history. Records are never deleted.
package evidence
