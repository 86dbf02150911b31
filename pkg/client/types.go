package client

// CustodyEvent is one handoff in an item's history. From is nil for the
// initial handoff.
type CustodyEvent struct {
	From      *string `json:"from" yaml:"from"`
	To        string  `json:"to" yaml:"to"`
	Timestamp int64   `json:"timestamp" yaml:"timestamp"`
	Action    string  `json:"action" yaml:"action"`
}

// Evidence is a registered item as returned by the API.
type Evidence struct {
	ID               string         `json:"id" yaml:"id"`
	ContentHash      string         `json:"content_hash" yaml:"content_hash"`
	CreatedAt        int64          `json:"created_at" yaml:"created_at"`
	CurrentCustodian string         `json:"current_custodian" yaml:"current_custodian"`
	History          []CustodyEvent `json:"history" yaml:"history"`
}

// Block is one ledger entry.
type Block struct {
	Index        int    `json:"index" yaml:"index"`
	PreviousHash string `json:"previous_hash" yaml:"previous_hash"`
	EvidenceID   string `json:"evidence_id" yaml:"evidence_id"`
	Event        int    `json:"event" yaml:"event"`
	Timestamp    int64  `json:"timestamp" yaml:"timestamp"`
	Hash         string `json:"hash" yaml:"hash"`
	Action       string `json:"action" yaml:"action"`
}

// RegisterRequest is the payload for Register.
type RegisterRequest struct {
	ID        string
	Content   []byte
	Custodian string
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	ID          string `json:"id" yaml:"id"`
	ContentHash string `json:"content_hash" yaml:"content_hash"`
	BlockIndex  int    `json:"block_index" yaml:"block_index"`
	BlockHash   string `json:"block_hash" yaml:"block_hash"`
}

// TransferResult is returned by Transfer. BlockIndex is -1 when the server
// does not anchor transfers.
type TransferResult struct {
	ID                string `json:"id" yaml:"id"`
	NewCustodian      string `json:"new_custodian" yaml:"new_custodian"`
	PreviousCustodian string `json:"previous_custodian" yaml:"previous_custodian"`
	Event             int    `json:"event" yaml:"event"`
	BlockIndex        int    `json:"block_index" yaml:"block_index"`
}

// VerifyResult is the outcome of a ledger integrity check.
type VerifyResult struct {
	Valid  bool   `json:"valid" yaml:"valid"`
	Index  *int   `json:"index,omitempty" yaml:"index,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Blocks int    `json:"blocks" yaml:"blocks"`
	Root   string `json:"root" yaml:"root"`
}

// LedgerOverview summarises the chain.
type LedgerOverview struct {
	Session string `json:"session" yaml:"session"`
	Blocks  int    `json:"blocks" yaml:"blocks"`
	Root    string `json:"root" yaml:"root"`
}

// Token is an operator bearer token.
type Token struct {
	Token     string `json:"token" yaml:"token"`
	TokenType string `json:"token_type" yaml:"token_type"`
	ExpiresAt string `json:"expires_at" yaml:"expires_at"`
}
