package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_blocks (
	session_id  TEXT    NOT NULL,
	idx         INTEGER NOT NULL,
	evidence_id TEXT    NOT NULL,
	event       INTEGER NOT NULL,
	ts          INTEGER NOT NULL,
	prev_hash   TEXT    NOT NULL,
	hash        TEXT    NOT NULL,
	PRIMARY KEY (session_id, idx)
)`

// SQLiteSink mirrors appended blocks into a local SQLite file.
type SQLiteSink struct {
	db      *sql.DB
	session string
	logger  *zap.Logger
}

// OpenSQLiteSink opens (creating if needed) the SQLite database at path and
// ensures the ledger_blocks table exists.
func OpenSQLiteSink(path string, session uuid.UUID, logger *zap.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps writes ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger_blocks: %w", err)
	}
	return &SQLiteSink{db: db, session: session.String(), logger: logger}, nil
}

// Name implements Sink.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, b Block) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_blocks (session_id, idx, evidence_id, event, ts, prev_hash, hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.session, b.Index, b.EvidenceID, b.Event, b.Timestamp, b.PreviousHash, b.Hash,
	); err != nil {
		return fmt.Errorf("insert ledger block %d: %w", b.Index, err)
	}
	s.logger.Debug("ledger block mirrored",
		zap.String("sink", s.Name()),
		zap.Int("idx", b.Index),
	)
	return nil
}

// VerifyMirror implements Verifier.
func (s *SQLiteSink) VerifyMirror(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, evidence_id, event, ts, prev_hash, hash
		 FROM ledger_blocks WHERE session_id = ? ORDER BY idx ASC`, s.session,
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

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
