package sessions

import (
	"sort"
	"time"

	"github.com/penwyp/claudeteam/models"
)

// WindowState classifies a window relative to "now"
type WindowState int

const (
	// StateCurrent means now falls within [StartTime, EndTime)
	StateCurrent WindowState = iota

	// StateActive means the window just ended but the actor is still
	// finishing up: last activity within the activity grace and the
	// nominal end within the trailing grace.
	StateActive

	// StateExpired means neither of the above
	StateExpired
)

func (s WindowState) String() string {
	switch s {
	case StateCurrent:
		return "current"
	case StateActive:
		return "active"
	default:
		return "expired"
	}
}

// Classifier evaluates the window activity predicate. The grace bounds are
// configurable rather than hardcoded; the defaults match the documented
// contract (2h activity grace, 30m trailing grace).
type Classifier struct {
	ActivityGrace time.Duration
	TrailingGrace time.Duration
}

// NewClassifier creates a classifier with the default grace bounds
func NewClassifier() Classifier {
	return Classifier{
		ActivityGrace: models.ActivityGrace,
		TrailingGrace: models.TrailingGrace,
	}
}

// Classify returns the state of a window at the given instant. Pure and
// side-effect free: the result depends only on the window's boundaries,
// its last activity, and now.
func (c Classifier) Classify(w models.Window, now time.Time) WindowState {
	if w.IsGap {
		return StateExpired
	}

	if !now.Before(w.StartTime) && now.Before(w.EndTime) {
		return StateCurrent
	}

	if now.Before(w.StartTime) {
		return StateExpired
	}

	// Past the nominal end. Still active while both graces hold.
	if w.ActualEndTime != nil &&
		now.Sub(*w.ActualEndTime) < c.ActivityGrace &&
		now.Sub(w.EndTime) < c.TrailingGrace {
		return StateActive
	}

	return StateExpired
}

// IsActive reports whether the window represents current usage
func (c Classifier) IsActive(w models.Window, now time.Time) bool {
	state := c.Classify(w, now)
	return state == StateCurrent || state == StateActive
}

// Builder groups raw activity entries into fixed-length windows with gap
// detection. Windows are rebuilt whole on every pass; the ID is derived
// from the start time so recomputed windows keep a stable identity.
type Builder struct {
	windowDuration time.Duration
	gapThreshold   time.Duration
}

// NewBuilder creates a builder with the default window duration
func NewBuilder() *Builder {
	return NewBuilderWithOptions(models.WindowDuration, models.MaxGapDuration)
}

// NewBuilderWithOptions creates a builder with custom durations
func NewBuilderWithOptions(windowDuration, gapThreshold time.Duration) *Builder {
	if windowDuration <= 0 {
		windowDuration = models.WindowDuration
	}
	if gapThreshold <= 0 {
		gapThreshold = windowDuration
	}
	return &Builder{
		windowDuration: windowDuration,
		gapThreshold:   gapThreshold,
	}
}

// floorToHour floors a timestamp to the beginning of the hour
func floorToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// BuildWindows groups entries into time-based windows. Window starts are
// floored to the hour; a gap window is inserted when the quiet period
// between entries exceeds the gap threshold.
func (b *Builder) BuildWindows(entries []models.UsageEntry) []models.Window {
	if len(entries) == 0 {
		return []models.Window{}
	}

	sorted := make([]models.UsageEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	windows := []models.Window{}
	var currentStart *time.Time
	var currentEntries []models.UsageEntry

	for _, entry := range sorted {
		if currentStart == nil {
			floored := floorToHour(entry.Timestamp)
			currentStart = &floored
			currentEntries = []models.UsageEntry{entry}
			continue
		}

		sinceStart := entry.Timestamp.Sub(*currentStart)
		lastEntry := currentEntries[len(currentEntries)-1]
		sinceLast := entry.Timestamp.Sub(lastEntry.Timestamp)

		if sinceStart > b.windowDuration || sinceLast > b.gapThreshold {
			windows = append(windows, b.createWindow(*currentStart, currentEntries))

			if sinceLast > b.gapThreshold {
				if gap := b.createGapWindow(lastEntry.Timestamp, entry.Timestamp); gap != nil {
					windows = append(windows, *gap)
				}
			}

			floored := floorToHour(entry.Timestamp)
			currentStart = &floored
			currentEntries = []models.UsageEntry{entry}
		} else {
			currentEntries = append(currentEntries, entry)
		}
	}

	if currentStart != nil && len(currentEntries) > 0 {
		windows = append(windows, b.createWindow(*currentStart, currentEntries))
	}

	return windows
}

// createWindow aggregates a run of entries into one window
func (b *Builder) createWindow(startTime time.Time, entries []models.UsageEntry) models.Window {
	endTime := startTime.Add(b.windowDuration)

	var actualEnd *time.Time
	if len(entries) > 0 {
		last := entries[len(entries)-1].Timestamp
		actualEnd = &last
	}

	var counts models.TokenCounts
	costUSD := 0.0
	modelSet := make(map[string]struct{})

	for _, entry := range entries {
		counts.Add(models.TokenCounts{
			InputTokens:         entry.InputTokens,
			OutputTokens:        entry.OutputTokens,
			CacheCreationTokens: entry.CacheCreationTokens,
			CacheReadTokens:     entry.CacheReadTokens,
		})
		costUSD += entry.CostUSD
		if entry.Model != "" {
			modelSet[entry.Model] = struct{}{}
		}
	}

	usedModels := make([]string, 0, len(modelSet))
	for m := range modelSet {
		usedModels = append(usedModels, m)
	}
	sort.Strings(usedModels)

	return models.Window{
		ID:            models.WindowID(startTime),
		StartTime:     startTime,
		EndTime:       endTime,
		ActualEndTime: actualEnd,
		TokenCounts:   counts,
		CostUSD:       costUSD,
		Models:        usedModels,
	}
}

// createGapWindow marks a quiet period between two activity runs
func (b *Builder) createGapWindow(lastActivity, nextActivity time.Time) *models.Window {
	gapStart := lastActivity.Add(b.windowDuration)
	if !gapStart.Before(nextActivity) {
		return nil
	}

	return &models.Window{
		ID:        "gap_" + gapStart.UTC().Format(models.WindowIDFormat),
		StartTime: gapStart,
		EndTime:   nextActivity,
		IsGap:     true,
	}
}
