package ledger

import (
	"fmt"

	"github.com/jmerrifield20/custodyledger/pkg/digest"
)

// GenesisHash is the previous-hash sentinel of the first block.
const GenesisHash = digest.Zero

// Block actions, derived from the custody event a block anchors.
const (
	ActionRegister = "register"
	ActionTransfer = "transfer"
)

// Block is a single ledger entry.
type Block struct {
	Index        int    `json:"index"`
	PreviousHash string `json:"previous_hash"`
	EvidenceID   string `json:"evidence_id"`
	// Event is the position in the evidence's custody history that this block
	// anchors. Registration blocks always anchor event 0.
	Event     int    `json:"event"`
	Timestamp int64  `json:"timestamp"` // Unix seconds
	Hash      string `json:"hash"`
	// Action is informational and not part of the hash; Event already binds
	// the block to its custody event.
	Action string `json:"action"`
}

func actionFor(event int) string {
	if event > 0 {
		return ActionTransfer
	}
	return ActionRegister
}

// hashBlock computes the digest of the canonical form of a block.
// Registration blocks hash index|previous|evidence|timestamp; transfer blocks
// append |event so each anchored transfer is bound to its history slot.
func hashBlock(index int, previousHash, evidenceID string, timestamp int64, event int) string {
	canonical := fmt.Sprintf("%d|%s|%s|%d", index, previousHash, evidenceID, timestamp)
	if event > 0 {
		canonical += fmt.Sprintf("|%d", event)
	}
	return digest.String(canonical)
}
