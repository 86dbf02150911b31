package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteSink_mirrorsAndVerifies(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.db")

	sink, err := OpenSQLiteSink(path, uuid.New(), zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	l := New()
	base := time.Unix(1_700_000_000, 0)
	for i, id := range []string{"E1", "E2", "E1"} {
		event := 0
		if i == 2 {
			event = 1
		}
		b := l.Append(id, event, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, sink.Write(ctx, *b))
	}

	require.NoError(t, sink.VerifyMirror(ctx))

	_, err = sink.db.ExecContext(ctx, `UPDATE ledger_blocks SET evidence_id = 'forged' WHERE idx = 1`)
	require.NoError(t, err)

	err = sink.VerifyMirror(ctx)
	require.True(t, errors.Is(err, ErrChainInvalid))
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, ie.Index)
}

func TestSQLiteSink_sessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.db")

	a, err := OpenSQLiteSink(path, uuid.New(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenSQLiteSink(path, uuid.New(), zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, a.Write(ctx, *New().Append("E1", 0, now)))
	require.NoError(t, b.Write(ctx, *New().Append("E9", 0, now)))

	assert.NoError(t, a.VerifyMirror(ctx))
	assert.NoError(t, b.VerifyMirror(ctx))
}
