package custody

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/custodyledger/internal/evidence"
	"github.com/jmerrifield20/custodyledger/internal/ledger"
	"go.uber.org/zap"
)

// Event types dispatched to an EventDispatcher.
const (
	EventEvidenceRegistered    = "evidence.registered"
	EventCustodyTransferred    = "custody.transferred"
	EventLedgerIntegrityFailed = "ledger.integrity_failed"
)

// sinkTimeout bounds each sink write so a slow mirror cannot stall commands.
const sinkTimeout = 5 * time.Second

// EventDispatcher fans custody events out to external subscribers.
// *webhooks.Service satisfies this interface.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload map[string]string)
}

// MetricsRecorder receives command outcomes. Any field may be nil.
type MetricsRecorder struct {
	BlockAppended func(action string)
	Verified      func(valid bool)
	SinkFailed    func(sink string)
	EvidenceCount func(n int)
}

// Config controls Session behaviour.
type Config struct {
	// AnchorTransfers appends a block for every accepted transfer so Verify
	// covers the full custody history, not just registrations.
	AnchorTransfers bool
}

// Session owns the evidence store and ledger for one process lifetime.
// A single mutex guards the pair; no other lock protects either of them.
type Session struct {
	mu     sync.Mutex
	id     uuid.UUID
	store  *evidence.Store
	ledger *ledger.Ledger
	cfg    Config

	sinks      []ledger.Sink
	dispatcher EventDispatcher // nil = no event dispatch
	metrics    MetricsRecorder
	now        func() time.Time
	logger     *zap.Logger
}

// NewSession creates a Session with an empty store and ledger.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	return &Session{
		id:     uuid.New(),
		store:  evidence.NewStore(),
		ledger: ledger.New(),
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// ID returns the session identifier used to key mirrored blocks.
func (s *Session) ID() uuid.UUID { return s.id }

// AddSink registers a mirror that receives every appended block.
func (s *Session) AddSink(sink ledger.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Sinks returns the registered mirrors.
func (s *Session) Sinks() []ledger.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Sink, len(s.sinks))
	copy(out, s.sinks)
	return out
}

// SetEventDispatcher configures where custody events are published.
func (s *Session) SetEventDispatcher(d EventDispatcher) {
	s.dispatcher = d
}

// SetMetricsRecorder configures the metrics callbacks.
func (s *Session) SetMetricsRecorder(m MetricsRecorder) {
	s.metrics = m
}

// SetClock replaces the time source.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// RegisterCommand asks the session to register a new evidence item.
type RegisterCommand struct {
	ID        string
	Content   []byte
	Custodian evidence.Role
}

// RegisterResult summarises an accepted registration.
type RegisterResult struct {
	ID          string `json:"id"`
	ContentHash string `json:"content_hash"`
	BlockIndex  int    `json:"block_index"`
	BlockHash   string `json:"block_hash"`
}

// Register creates the evidence record and anchors it in the ledger. If the
// store rejects the command the ledger is not touched.
func (s *Session) Register(ctx context.Context, cmd RegisterCommand) (*RegisterResult, error) {
	s.mu.Lock()
	now := s.now()
	e, err := s.store.Register(cmd.ID, cmd.Content, cmd.Custodian, now)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("registration rejected", zap.String("evidence_id", cmd.ID), zap.Error(err))
		return nil, err
	}
	b := s.ledger.Append(e.ID, 0, now)
	s.publish(ctx, b)
	count := s.store.Len()
	s.mu.Unlock()

	s.logger.Info("evidence registered",
		zap.String("evidence_id", e.ID),
		zap.String("custodian", string(e.CurrentCustodian)),
		zap.Int("block", b.Index),
	)
	if s.metrics.EvidenceCount != nil {
		s.metrics.EvidenceCount(count)
	}
	s.dispatch(ctx, EventEvidenceRegistered, map[string]string{
		"evidence_id":  e.ID,
		"content_hash": e.ContentHash,
		"custodian":    string(e.CurrentCustodian),
		"block_hash":   b.Hash,
	})

	return &RegisterResult{
		ID:          e.ID,
		ContentHash: e.ContentHash,
		BlockIndex:  b.Index,
		BlockHash:   b.Hash,
	}, nil
}

// TransferCommand asks the session to hand an item to a new custodian.
type TransferCommand struct {
	ID           string
	NewCustodian evidence.Role
}

// TransferResult summarises an accepted transfer. BlockIndex is -1 when
// transfers are not anchored.
type TransferResult struct {
	ID                string        `json:"id"`
	NewCustodian      evidence.Role `json:"new_custodian"`
	PreviousCustodian evidence.Role `json:"previous_custodian"`
	Event             int           `json:"event"`
	BlockIndex        int           `json:"block_index"`
}

// Transfer records a custody handoff. Transfers are always permitted for an
// existing item; an unknown id yields evidence.ErrNotFound.
func (s *Session) Transfer(ctx context.Context, cmd TransferCommand) (*TransferResult, error) {
	s.mu.Lock()
	now := s.now()
	e, err := s.store.Transfer(cmd.ID, cmd.NewCustodian, now)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("transfer rejected", zap.String("evidence_id", cmd.ID), zap.Error(err))
		return nil, err
	}

	event := len(e.History) - 1
	res := &TransferResult{
		ID:                e.ID,
		NewCustodian:      e.CurrentCustodian,
		PreviousCustodian: *e.History[event].From,
		Event:             event,
		BlockIndex:        -1,
	}
	if s.cfg.AnchorTransfers {
		b := s.ledger.Append(e.ID, event, now)
		s.publish(ctx, b)
		res.BlockIndex = b.Index
	}
	s.mu.Unlock()

	s.logger.Info("custody transferred",
		zap.String("evidence_id", res.ID),
		zap.String("from", string(res.PreviousCustodian)),
		zap.String("to", string(res.NewCustodian)),
		zap.Int("block", res.BlockIndex),
	)
	s.dispatch(ctx, EventCustodyTransferred, map[string]string{
		"evidence_id": res.ID,
		"from":        string(res.PreviousCustodian),
		"to":          string(res.NewCustodian),
	})
	return res, nil
}

// VerifyResult is the outcome of a ledger integrity check.
type VerifyResult struct {
	Valid bool `json:"valid"`
	// Index is the first failing block; nil when Valid.
	Index  *int          `json:"index,omitempty"`
	Reason ledger.Reason `json:"reason,omitempty"`
	Blocks int           `json:"blocks"`
	Root   string        `json:"root"`
}

// Err returns the integrity error behind an invalid result, or nil.
func (r VerifyResult) Err() error {
	if r.Valid || r.Index == nil {
		return nil
	}
	return &ledger.IntegrityError{Index: *r.Index, Reason: r.Reason}
}

// Verify checks the ledger's hash chain. Repeated calls without intervening
// commands return the same result.
func (s *Session) Verify(ctx context.Context) VerifyResult {
	s.mu.Lock()
	err := s.ledger.Verify()
	res := VerifyResult{Valid: err == nil, Blocks: s.ledger.Len(), Root: s.ledger.Root()}
	s.mu.Unlock()

	var ie *ledger.IntegrityError
	if errors.As(err, &ie) {
		idx := ie.Index
		res.Index = &idx
		res.Reason = ie.Reason
		s.logger.Warn("ledger integrity check failed",
			zap.Int("index", ie.Index),
			zap.String("reason", string(ie.Reason)),
		)
	}
	if s.metrics.Verified != nil {
		s.metrics.Verified(res.Valid)
	}
	return res
}

// ListEvidence returns a snapshot of all evidence in registration order.
func (s *Session) ListEvidence(_ context.Context) []*evidence.Evidence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// GetEvidence returns a snapshot of one evidence record.
func (s *Session) GetEvidence(_ context.Context, id string) (*evidence.Evidence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// GetHistory returns the custody history of id in chronological order.
func (s *Session) GetHistory(ctx context.Context, id string) ([]evidence.CustodyEvent, bool) {
	e, ok := s.GetEvidence(ctx, id)
	if !ok {
		return nil, false
	}
	return e.History, true
}

// Block returns a copy of the block at index.
func (s *Session) Block(_ context.Context, index int) (*ledger.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Get(index)
}

// Blocks returns a snapshot of the whole chain.
func (s *Session) Blocks(_ context.Context) []ledger.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Blocks()
}

// LedgerLen returns the number of blocks.
func (s *Session) LedgerLen(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Len()
}

// Root returns the hash of the chain tip.
func (s *Session) Root(_ context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Root()
}

// publish hands b to every sink. Callers hold s.mu so sinks observe blocks in
// index order. Sink errors are logged and counted, never returned.
func (s *Session) publish(ctx context.Context, b *ledger.Block) {
	if s.metrics.BlockAppended != nil {
		s.metrics.BlockAppended(b.Action)
	}
	for _, sink := range s.sinks {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		err := sink.Write(wctx, *b)
		cancel()
		if err != nil {
			s.logger.Warn("ledger sink write failed",
				zap.String("sink", sink.Name()),
				zap.Int("block", b.Index),
				zap.Error(err),
			)
			if s.metrics.SinkFailed != nil {
				s.metrics.SinkFailed(sink.Name())
			}
		}
	}
}

func (s *Session) dispatch(ctx context.Context, eventType string, payload map[string]string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(context.WithoutCancel(ctx), eventType, payload)
}
