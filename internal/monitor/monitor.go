// Package monitor periodically re-verifies the custody ledger and its mirrors
// and raises an alert when integrity is lost.
package monitor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/custody"
	"github.com/jmerrifield20/custodyledger/internal/ledger"
)

// Config holds monitor configuration.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
}

// Target is the ledger being watched. *custody.Session satisfies it.
type Target interface {
	ID() uuid.UUID
	Verify(ctx context.Context) custody.VerifyResult
	Sinks() []ledger.Sink
}

// WebhookDispatchFunc is an optional callback for dispatching integrity events.
type WebhookDispatchFunc func(ctx context.Context, eventType string, payload map[string]string)

// MirrorRecordFunc is an optional callback for recording mirror check results.
type MirrorRecordFunc func(sink string, ok bool)

// Report is the outcome of the most recent check.
type Report struct {
	CheckedAt time.Time            `json:"checked_at"`
	Ledger    custody.VerifyResult `json:"ledger"`
	// Mirrors maps sink name to "" when the mirror verified, or the error text.
	Mirrors map[string]string `json:"mirrors,omitempty"`
}

// Healthy reports whether the ledger and every mirror verified.
func (r Report) Healthy() bool {
	if !r.Ledger.Valid {
		return false
	}
	for _, e := range r.Mirrors {
		if e != "" {
			return false
		}
	}
	return true
}

// Monitor runs periodic integrity checks.
type Monitor struct {
	target    Target
	cfg       Config
	onWebhook WebhookDispatchFunc
	onMirror  MirrorRecordFunc
	logger    *zap.Logger

	mu        sync.Mutex
	last      *Report
	ledgerBad bool
	mirrorBad map[string]bool
}

// New creates a Monitor. Interval defaults to one minute.
func New(target Target, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	return &Monitor{
		target:    target,
		cfg:       cfg,
		mirrorBad: make(map[string]bool),
		logger:    logger,
	}
}

// SetWebhookDispatch configures the webhook dispatch callback.
func (m *Monitor) SetWebhookDispatch(fn WebhookDispatchFunc) {
	m.onWebhook = fn
}

// SetMirrorRecord configures the mirror metrics callback.
func (m *Monitor) SetMirrorRecord(fn MirrorRecordFunc) {
	m.onMirror = fn
}

// Last returns the most recent report, or nil before the first check.
func (m *Monitor) Last() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	cp := *m.last
	return &cp
}

// Start runs the check loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cctx, cancel := context.WithTimeout(ctx, m.cfg.Interval)
			m.CheckOnce(cctx)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// CheckOnce verifies the ledger and every mirror that supports verification.
// An alert is dispatched only on the transition from valid to invalid.
func (m *Monitor) CheckOnce(ctx context.Context) Report {
	rep := Report{
		CheckedAt: time.Now().UTC(),
		Ledger:    m.target.Verify(ctx),
		Mirrors:   make(map[string]string),
	}

	for _, sink := range m.target.Sinks() {
		v, ok := sink.(ledger.Verifier)
		if !ok {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		err := v.VerifyMirror(pctx)
		cancel()
		if err != nil {
			rep.Mirrors[sink.Name()] = err.Error()
		} else {
			rep.Mirrors[sink.Name()] = ""
		}
		if m.onMirror != nil {
			m.onMirror(sink.Name(), err == nil)
		}
	}

	m.mu.Lock()
	wasBad := m.ledgerBad
	m.ledgerBad = !rep.Ledger.Valid
	var newlyBadMirrors []string
	for name, e := range rep.Mirrors {
		bad := e != ""
		if bad && !m.mirrorBad[name] {
			newlyBadMirrors = append(newlyBadMirrors, name)
		} else if !bad && m.mirrorBad[name] {
			m.logger.Info("monitor: mirror recovered", zap.String("sink", name))
		}
		m.mirrorBad[name] = bad
	}
	m.last = &rep
	m.mu.Unlock()

	if !rep.Ledger.Valid && !wasBad {
		payload := map[string]string{
			"session": m.target.ID().String(),
			"source":  "ledger",
			"reason":  string(rep.Ledger.Reason),
			"blocks":  strconv.Itoa(rep.Ledger.Blocks),
		}
		if rep.Ledger.Index != nil {
			payload["index"] = strconv.Itoa(*rep.Ledger.Index)
		}
		m.logger.Error("monitor: ledger integrity lost",
			zap.String("reason", payload["reason"]),
			zap.String("index", payload["index"]),
		)
		m.alert(ctx, payload)
	} else if rep.Ledger.Valid && wasBad {
		m.logger.Info("monitor: ledger integrity restored")
	}

	for _, name := range newlyBadMirrors {
		m.logger.Error("monitor: mirror diverged",
			zap.String("sink", name),
			zap.String("error", rep.Mirrors[name]),
		)
		m.alert(ctx, map[string]string{
			"session": m.target.ID().String(),
			"source":  name,
			"error":   rep.Mirrors[name],
		})
	}

	return rep
}

func (m *Monitor) alert(ctx context.Context, payload map[string]string) {
	if m.onWebhook != nil {
		m.onWebhook(context.WithoutCancel(ctx), custody.EventLedgerIntegrityFailed, payload)
	}
}
