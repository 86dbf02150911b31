package evidence

import (
	"fmt"
	"strings"
)

// Role identifies who holds an evidence item. The set is closed; display text
// is produced by the presentation layer.
type Role string

const (
	RoleInvestigator    Role = "Investigator"
	RoleEvidenceOfficer Role = "EvidenceOfficer"
	RoleAnalyst         Role = "Analyst"
	RoleProsecutor      Role = "Prosecutor"
)

// Custody actions recorded in an evidence history.
const (
	ActionInitialHandoff = "Initial Handoff"
	ActionTransferred    = "Transferred"
)

var roles = []Role{RoleInvestigator, RoleEvidenceOfficer, RoleAnalyst, RoleProsecutor}

// Roles returns every valid Role in a stable order.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole maps operator input onto a Role. Matching ignores case, spaces,
// hyphens and underscores, so "evidence officer" and "EVIDENCE_OFFICER" both
// resolve to RoleEvidenceOfficer.
func ParseRole(s string) (Role, error) {
	key := normaliseRole(s)
	for _, r := range roles {
		if normaliseRole(string(r)) == key {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func normaliseRole(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// CustodyEvent is one handoff in an item's history.
type CustodyEvent struct {
	// From is nil for the initial handoff.
	From      *Role  `json:"from"`
	To        Role   `json:"to"`
	Timestamp int64  `json:"timestamp"` // Unix seconds
	Action    string `json:"action"`
}

// Evidence is a registered item and its full custody history.
type Evidence struct {
	ID               string         `json:"id"`
	ContentHash      string         `json:"content_hash"`
	CreatedAt        int64          `json:"created_at"` // Unix seconds
	CurrentCustodian Role           `json:"current_custodian"`
	History          []CustodyEvent `json:"history"`
}

// Clone returns a deep copy of e.
func (e *Evidence) Clone() *Evidence {
	cp := *e
	cp.History = make([]CustodyEvent, len(e.History))
	for i, ev := range e.History {
		if ev.From != nil {
			from := *ev.From
			ev.From = &from
		}
		cp.History[i] = ev
	}
	return &cp
}

// Continuous reports whether the custody chain has no gaps: the first event
// has no previous holder, each event starts where the previous one ended and
// the current custodian is the last recipient.
func (e *Evidence) Continuous() bool {
	if len(e.History) == 0 || e.History[0].From != nil {
		return false
	}
	for i := 1; i < len(e.History); i++ {
		from := e.History[i].From
		if from == nil || *from != e.History[i-1].To {
			return false
		}
	}
	return e.CurrentCustodian == e.History[len(e.History)-1].To
}
