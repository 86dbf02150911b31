// Package ledger implements the append-only, hash-linked block chain that
// anchors evidence registrations and custody transfers.
//
// The first block links to GenesisHash (64 hex zeros). Every later block
// records the hash of its predecessor, so altering any stored field is
// detectable via Verify. The chain is held in memory; Sink implementations
// mirror appended blocks to external stores but are never read back.
package ledger
