package evidence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmerrifield20/custodyledger/pkg/digest"
)

var (
	// ErrDuplicateID is returned when registering an identifier that already exists.
	ErrDuplicateID = errors.New("evidence id already registered")

	// ErrNotFound is returned when an operation references an unknown identifier.
	ErrNotFound = errors.New("evidence not found")

	// ErrInvalidID is returned for empty or whitespace-only identifiers.
	ErrInvalidID = errors.New("invalid evidence id")

	// ErrInvalidRole is returned for custodians outside the known role set.
	ErrInvalidRole = errors.New("invalid custodian role")
)

// Store maps evidence identifiers to records. It is the only owner of the
// records it holds: every value it returns is a copy.
//
// Store is not safe for concurrent use; custody.Session serialises access.
type Store struct {
	byID  map[string]*Evidence
	order []string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Evidence)}
}

// Register creates a new evidence record whose history holds a single initial
// handoff to custodian. All validation happens before the store is touched.
func (s *Store) Register(id string, content []byte, custodian Role, now time.Time) (*Evidence, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	if _, exists := s.byID[id]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	if !custodian.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, custodian)
	}

	ts := now.Unix()
	e := &Evidence{
		ID:               id,
		ContentHash:      digest.Sum(content),
		CreatedAt:        ts,
		CurrentCustodian: custodian,
		History: []CustodyEvent{{
			From:      nil,
			To:        custodian,
			Timestamp: ts,
			Action:    ActionInitialHandoff,
		}},
	}
	s.byID[id] = e
	s.order = append(s.order, id)
	return e.Clone(), nil
}

// Transfer hands the item to newCustodian, recording the previous holder in
// the appended history event.
func (s *Store) Transfer(id string, newCustodian Role, now time.Time) (*Evidence, error) {
	if !newCustodian.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, newCustodian)
	}
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	prev := e.CurrentCustodian
	e.History = append(e.History, CustodyEvent{
		From:      &prev,
		To:        newCustodian,
		Timestamp: now.Unix(),
		Action:    ActionTransferred,
	})
	e.CurrentCustodian = newCustodian
	return e.Clone(), nil
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (*Evidence, bool) {
	e, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// List returns copies of all records in registration order.
func (s *Store) List() []*Evidence {
	out := make([]*Evidence, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Len returns the number of registered items.
func (s *Store) Len() int {
	return len(s.order)
}
