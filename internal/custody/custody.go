// Package custody is the command interface of the custody ledger.
//
// A Session owns one evidence.Store and one ledger.Ledger and keeps them in
// lockstep: every accepted registration produces one Evidence and one Block,
// every accepted transfer appends one custody event and, when anchoring is
// enabled, one Block. Rejected commands leave both untouched.
package custody
