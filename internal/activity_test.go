package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeActivityFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestActivityFeedMissingFile(t *testing.T) {
	feed := NewActivityFeed(filepath.Join(t.TempDir(), "absent.jsonl"), nil)

	windows, err := feed.Windows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestActivityFeedBuildsWindows(t *testing.T) {
	path := writeActivityFile(t, `{"timestamp":"2025-06-01T10:30:00Z","model":"claude-sonnet-4-20250514","input_tokens":100,"output_tokens":50,"cost_usd":0.1}
{"timestamp":"2025-06-01T11:00:00Z","model":"claude-sonnet-4-20250514","input_tokens":200,"output_tokens":100,"cost_usd":0.2}
`)

	feed := NewActivityFeed(path, nil)
	windows, err := feed.Windows(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 1)

	assert.Equal(t, 450, windows[0].TokenCounts.Total())
	assert.InDelta(t, 0.3, windows[0].CostUSD, 1e-9)
}

func TestActivityFeedSkipsBadLines(t *testing.T) {
	path := writeActivityFile(t, `{"timestamp":"2025-06-01T10:30:00Z","model":"claude-sonnet-4-20250514","input_tokens":100}
not json at all
{"timestamp":"2025-06-01T11:00:00Z","input_tokens":100}

{"timestamp":"2025-06-01T11:30:00Z","model":"claude-sonnet-4-20250514","input_tokens":-5}
{"timestamp":"2025-06-01T12:00:00Z","model":"claude-sonnet-4-20250514","input_tokens":50}
`)

	feed := NewActivityFeed(path, nil)
	windows, err := feed.Windows(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 1)

	// Only the two well-formed entries survive: the missing model, the
	// negative count, the blank line and the garbage are all skipped
	assert.Equal(t, 150, windows[0].TokenCounts.Total())
}

func TestActivityFeedHonorsContext(t *testing.T) {
	path := writeActivityFile(t, `{"timestamp":"2025-06-01T10:30:00Z","model":"claude-sonnet-4-20250514","input_tokens":100}
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := NewActivityFeed(path, nil)
	_, err := feed.Windows(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
