package lineage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerolex/aerolex/pkg/types"
)

func TestMemoryRecorder(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()

	base := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Record(ctx, types.LineageRecord{
		RegulationID: "far-121.542",
		FromSeq:      1,
		ToSeq:        2,
		Effective:    base,
		RecordedAt:   base,
	}))
	require.NoError(t, rec.Record(ctx, types.LineageRecord{
		RegulationID: "far-121.542",
		FromSeq:      2,
		ToSeq:        3,
		Effective:    base.AddDate(1, 0, 0),
		RecordedAt:   base.AddDate(1, 0, 0),
	}))
	require.NoError(t, rec.Record(ctx, types.LineageRecord{
		RegulationID: "easa-cat-op",
		FromSeq:      1,
		ToSeq:        2,
		Effective:    base,
		RecordedAt:   base,
	}))

	history, err := rec.History(ctx, "far-121.542")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].FromSeq)
	assert.Equal(t, 2, history[0].ToSeq)
	assert.Equal(t, 2, history[1].FromSeq)
	assert.Equal(t, 3, history[1].ToSeq)

	history, err = rec.History(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, rec.Close(ctx))
}

func TestHistoryReturnsCopy(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, types.LineageRecord{RegulationID: "r", FromSeq: 1, ToSeq: 2}))

	first, err := rec.History(ctx, "r")
	require.NoError(t, err)
	first[0].FromSeq = 99

	again, err := rec.History(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].FromSeq)
}

func TestNewRecorder(t *testing.T) {
	rec, err := NewRecorder(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRecorder{}, rec)

	_, err = NewRecorder(Config{Backend: BackendNeo4j})
	assert.Error(t, err)

	_, err = NewRecorder(Config{Backend: "postgres"})
	assert.Error(t, err)
}
