package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/penwyp/claudeteam/errors"
	"github.com/penwyp/claudeteam/models"
)

// WindowSource loads the candidate windows the selector chooses from.
// Implemented by whatever turns raw activity into windows, typically a
// Builder over a local activity reader.
type WindowSource interface {
	Windows(ctx context.Context) ([]models.Window, error)
}

// WindowSourceFunc adapts a function to the WindowSource interface
type WindowSourceFunc func(ctx context.Context) ([]models.Window, error)

func (f WindowSourceFunc) Windows(ctx context.Context) ([]models.Window, error) {
	return f(ctx)
}

// Selector picks the one authoritative current window from the candidate
// list and memoizes the result for a short TTL. Repeated calls inside the
// TTL return the identical window even if a recomputation would tie-break
// differently, so the displayed window cannot flicker between polling
// cycles shorter than the TTL.
type Selector struct {
	source     WindowSource
	classifier Classifier
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	memo      *selectedWindow
	memotime  time.Time
	memovalid bool
}

type selectedWindow struct {
	window models.Window
	found  bool
}

// NewSelector creates a selector with the default TTL and classifier
func NewSelector(source WindowSource) *Selector {
	return &Selector{
		source:     source,
		classifier: NewClassifier(),
		ttl:        models.SelectorTTL,
		now:        time.Now,
	}
}

// NewSelectorWithOptions creates a selector with a custom classifier, TTL
// and clock. Tests inject a fixed clock here.
func NewSelectorWithOptions(source WindowSource, classifier Classifier, ttl time.Duration, now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{
		source:     source,
		classifier: classifier,
		ttl:        ttl,
		now:        now,
	}
}

// Current returns the current window, or found=false when no candidate
// qualifies. A source failure returns a typed local error; the selector
// never serves a memoized value past its TTL in place of reporting the
// failure.
func (s *Selector) Current(ctx context.Context) (models.Window, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.memovalid && now.Sub(s.memotime) < s.ttl {
		return s.memo.window, s.memo.found, nil
	}

	candidates, err := s.source.Windows(ctx)
	if err != nil {
		s.memovalid = false
		return models.Window{}, false, errors.NewLocalError("failed to load candidate windows", err)
	}

	window, found := s.selectWindow(candidates, now)
	s.memo = &selectedWindow{window: window, found: found}
	s.memotime = now
	s.memovalid = true

	return window, found, nil
}

// Invalidate clears the memoized result so the next call recomputes.
// Used after an action known to change state, and by tests.
func (s *Selector) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memovalid = false
	s.memo = nil
}

// selectWindow applies the priority tiers: recently-active windows beat
// windows containing now, which beat the most recent window overall.
func (s *Selector) selectWindow(candidates []models.Window, now time.Time) (models.Window, bool) {
	if len(candidates) == 0 {
		return models.Window{}, false
	}

	var active, current, rest []models.Window
	for _, w := range candidates {
		if w.IsGap {
			continue
		}
		switch s.classifier.Classify(w, now) {
		case StateActive:
			active = append(active, w)
		case StateCurrent:
			current = append(current, w)
		}
		rest = append(rest, w)
	}

	if w, ok := latestByStart(active); ok {
		return w, true
	}
	if w, ok := latestByStart(current); ok {
		return w, true
	}
	return latestByStart(rest)
}

func latestByStart(windows []models.Window) (models.Window, bool) {
	if len(windows) == 0 {
		return models.Window{}, false
	}
	sorted := make([]models.Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})
	return sorted[0], true
}
