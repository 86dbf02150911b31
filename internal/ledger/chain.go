package ledger

import "time"

// Ledger is the in-memory block chain. Append is its only mutator; blocks are
// never modified, removed or reordered once appended.
//
// Ledger is not safe for concurrent use. custody.Session guards it together
// with the evidence store under a single lock.
type Ledger struct {
	blocks []Block
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append chains a new block for evidenceID onto the tip and returns a copy of it.
// event is the custody history index being anchored (0 for a registration).
func (l *Ledger) Append(evidenceID string, event int, now time.Time) *Block {
	prev := GenesisHash
	if n := len(l.blocks); n > 0 {
		prev = l.blocks[n-1].Hash
	}

	b := Block{
		Index:        len(l.blocks),
		PreviousHash: prev,
		EvidenceID:   evidenceID,
		Event:        event,
		Timestamp:    now.Unix(),
		Action:       actionFor(event),
	}
	b.Hash = hashBlock(b.Index, b.PreviousHash, b.EvidenceID, b.Timestamp, b.Event)
	l.blocks = append(l.blocks, b)

	cp := b
	return &cp
}

// Get returns a copy of the block at index.
func (l *Ledger) Get(index int) (*Block, bool) {
	if index < 0 || index >= len(l.blocks) {
		return nil, false
	}
	cp := l.blocks[index]
	return &cp, true
}

// Len returns the number of blocks.
func (l *Ledger) Len() int {
	return len(l.blocks)
}

// Root returns the hash of the chain tip, or GenesisHash for an empty chain.
func (l *Ledger) Root() string {
	if len(l.blocks) == 0 {
		return GenesisHash
	}
	return l.blocks[len(l.blocks)-1].Hash
}

// Blocks returns a snapshot of the whole chain.
func (l *Ledger) Blocks() []Block {
	out := make([]Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Verify walks the chain and returns nil when it is intact, or an
// *IntegrityError naming the first detectable break. Failures are reported,
// never repaired.
func (l *Ledger) Verify() error {
	return VerifyBlocks(l.blocks)
}

// VerifyBlocks checks an ordered chain of blocks.
//
// Blocks 1..n-1 are scanned first: each must link to its predecessor's stored
// hash, sit at its own position, and hash to its stored value. The first block
// is checked last against the genesis sentinel and its own hash. A corrupted
// hash on block i is therefore reported at i+1 when a successor exists, since
// that successor's link is the first check to fail.
func VerifyBlocks(blocks []Block) error {
	for i := 1; i < len(blocks); i++ {
		curr, prev := &blocks[i], &blocks[i-1]
		if curr.PreviousHash != prev.Hash {
			return &IntegrityError{Index: i, Reason: ReasonBrokenLink}
		}
		if curr.Index != i {
			return &IntegrityError{Index: i, Reason: ReasonIndexMismatch}
		}
		if hashBlock(i, prev.Hash, curr.EvidenceID, curr.Timestamp, curr.Event) != curr.Hash {
			return &IntegrityError{Index: i, Reason: ReasonHashMismatch}
		}
	}

	if len(blocks) == 0 {
		return nil
	}
	first := &blocks[0]
	if first.PreviousHash != GenesisHash {
		return &IntegrityError{Index: 0, Reason: ReasonGenesis}
	}
	if first.Index != 0 {
		return &IntegrityError{Index: 0, Reason: ReasonIndexMismatch}
	}
	if hashBlock(0, GenesisHash, first.EvidenceID, first.Timestamp, first.Event) != first.Hash {
		return &IntegrityError{Index: 0, Reason: ReasonHashMismatch}
	}
	return nil
}
