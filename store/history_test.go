package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catbox/internal"
)

func openTemp(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistory_RecordAndRecent(t *testing.T) {
	h := openTemp(t)
	ctx := context.Background()
	batch := NewBatchID()

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, h.Record(ctx, internal.HistoryEntry{
		BatchID:    batch,
		Path:       "/tmp/a.png",
		URL:        "https://files.catbox.moe/a.png",
		UploadedAt: stamp,
	}))
	require.NoError(t, h.Record(ctx, internal.HistoryEntry{
		BatchID: batch,
		Path:    "/tmp/b.png",
		Error:   "FileReadFailed (/tmp/b.png): no such file",
	}))

	entries, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "/tmp/b.png", entries[0].Path, "newest first")
	assert.Empty(t, entries[0].URL)
	assert.Contains(t, entries[0].Error, "FileReadFailed")
	assert.False(t, entries[0].UploadedAt.IsZero())

	assert.Equal(t, batch, entries[1].BatchID)
	assert.Equal(t, "https://files.catbox.moe/a.png", entries[1].URL)
	assert.True(t, stamp.Equal(entries[1].UploadedAt))
}

func TestHistory_RecentLimit(t *testing.T) {
	h := openTemp(t)
	ctx := context.Background()
	batch := NewBatchID()

	for i := 0; i < DefaultLimit+5; i++ {
		require.NoError(t, h.Record(ctx, internal.HistoryEntry{BatchID: batch, Path: fmt.Sprintf("f%02d", i)}))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{3, 3},
		{0, DefaultLimit},
		{-1, DefaultLimit},
		{100, DefaultLimit + 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			entries, err := h.Recent(ctx, tt.limit)
			require.NoError(t, err)
			assert.Len(t, entries, tt.want)
		})
	}
}

func TestHistory_RecordRequiresFields(t *testing.T) {
	h := openTemp(t)

	err := h.Record(context.Background(), internal.HistoryEntry{Path: "a"})
	var ve *internal.ValidationError
	assert.True(t, errors.As(err, &ve), "got %v", err)
}

func TestHistory_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	h, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, h.Record(ctx, internal.HistoryEntry{BatchID: NewBatchID(), Path: "kept"}))
	require.NoError(t, h.Close())

	h, err = Open(path)
	require.NoError(t, err)
	defer h.Close()

	entries, err := h.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Path)
}

func TestNewBatchID(t *testing.T) {
	a, b := NewBatchID(), NewBatchID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
