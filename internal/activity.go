package internal

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/penwyp/claudeteam/models"
	"github.com/penwyp/claudeteam/sessions"
)

// ActivityFeed reads locally observed usage entries from a JSONL file and
// turns them into candidate windows. It satisfies sessions.WindowSource;
// the selector re-reads it on every memo miss so the candidate list stays
// fresh without a separate watcher.
type ActivityFeed struct {
	path    string
	builder *sessions.Builder
}

// NewActivityFeed creates a feed over the given JSONL activity file
func NewActivityFeed(path string, builder *sessions.Builder) *ActivityFeed {
	if builder == nil {
		builder = sessions.NewBuilder()
	}
	return &ActivityFeed{path: path, builder: builder}
}

// Windows loads all entries and builds candidate windows. Malformed lines
// are skipped, not fatal; a missing file means no activity yet.
func (f *ActivityFeed) Windows(ctx context.Context) ([]models.Window, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Window{}, nil
		}
		return nil, fmt.Errorf("failed to open activity file: %w", err)
	}
	defer file.Close()

	var entries []models.UsageEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry models.UsageEntry
		if err := sonic.Unmarshal(line, &entry); err != nil {
			continue
		}
		if err := entry.Validate(); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity file: %w", err)
	}

	return f.builder.BuildWindows(entries), nil
}
