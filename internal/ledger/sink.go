package ledger

import (
	"context"
	"errors"
)

// Sink receives every block after it has been appended. Sinks are write-only
// mirrors: the in-memory chain stays authoritative and a failing sink never
// rolls back an append.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	Write(ctx context.Context, b Block) error
	Close() error
}

// Verifier is implemented by sinks that can re-check the chain they mirror.
type Verifier interface {
	VerifyMirror(ctx context.Context) error
}

// CloseAll closes every sink and joins their errors.
func CloseAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
