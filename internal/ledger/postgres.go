package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresSink mirrors appended blocks into the ledger_blocks table.
// Rows are keyed by (session_id, idx) because every process run starts a new
// in-memory chain at index 0.
type PostgresSink struct {
	pool    *pgxpool.Pool
	session uuid.UUID
	logger  *zap.Logger
}

// NewPostgresSink creates a PostgresSink writing blocks for the given session.
// The schema comes from migrations/ (see cmd/migrate).
func NewPostgresSink(pool *pgxpool.Pool, session uuid.UUID, logger *zap.Logger) *PostgresSink {
	return &PostgresSink{pool: pool, session: session, logger: logger}
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, b Block) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_blocks (session_id, idx, evidence_id, event, ts, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.session, b.Index, b.EvidenceID, b.Event, b.Timestamp, b.PreviousHash, b.Hash,
	); err != nil {
		return fmt.Errorf("insert ledger block %d: %w", b.Index, err)
	}

	s.logger.Debug("ledger block mirrored",
		zap.String("sink", s.Name()),
		zap.Int("idx", b.Index),
		zap.String("evidence_id", b.EvidenceID),
	)
	return nil
}

// VerifyMirror implements Verifier. It streams this session's rows ordered by
// idx and runs the same checks as Ledger.Verify.
func (s *PostgresSink) VerifyMirror(ctx context.Context) error {
	rows, err := s.pool.Query(ctx,
		`SELECT idx, evidence_id, event, ts, prev_hash, hash
		 FROM ledger_blocks WHERE session_id = $1 ORDER BY idx ASC`, s.session,
	)
	if err != nil {
		return fmt.Errorf("query ledger mirror: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.Index, &b.EvidenceID, &b.Event, &b.Timestamp, &b.PreviousHash, &b.Hash); err != nil {
			return fmt.Errorf("scan ledger mirror row: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read ledger mirror: %w", err)
	}
	return VerifyBlocks(blocks)
}

// Close implements Sink. The pool is owned by the caller and left open.
func (s *PostgresSink) Close() error { return nil }
