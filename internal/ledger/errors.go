package ledger

import (
	"errors"
	"fmt"
)

// ErrChainInvalid is matched by every *IntegrityError.
var ErrChainInvalid = errors.New("ledger chain invalid")

// Reason classifies a verification failure.
type Reason string

const (
	// ReasonBrokenLink: previous_hash does not equal the predecessor's hash.
	ReasonBrokenLink Reason = "broken_link"
	// ReasonHashMismatch: the stored hash does not match the recomputed one.
	ReasonHashMismatch Reason = "hash_mismatch"
	// ReasonIndexMismatch: the stored index differs from the block's position.
	ReasonIndexMismatch Reason = "index_mismatch"
	// ReasonGenesis: the first block does not link to GenesisHash.
	ReasonGenesis Reason = "genesis_mismatch"
)

// IntegrityError reports the first block at which verification failed.
type IntegrityError struct {
	Index  int
	Reason Reason
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity check failed at block %d: %s", e.Index, e.Reason)
}

// Is makes errors.Is(err, ErrChainInvalid) hold for any IntegrityError.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrChainInvalid
}
