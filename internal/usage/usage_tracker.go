// Package usage records per-cycle statistics in the state directory.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"respondo/internal/controller"
	"respondo/internal/logging"
)

// autoSaveDelay debounces writes after Track.
const autoSaveDelay = 5 * time.Second

// Tracker manages cycle recording and persistence.
type Tracker struct {
	mu            sync.Mutex
	data          UsageData
	filePath      string
	autoSaveTimer *time.Timer
	now           func() time.Time
}

// NewTracker creates a tracker persisting to <dir>/usage.json.
func NewTracker(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(dir, "usage.json"),
		data:     UsageData{Version: "1.0"},
		now:      time.Now,
	}
	t.data.Aggregate.ensureMaps()

	if err := t.Load(); err != nil {
		// A corrupt file starts over; the next save replaces it.
		logging.BootWarn("usage: ignoring unreadable %s: %v", t.filePath, err)
		t.data = UsageData{Version: "1.0"}
		t.data.Aggregate.ensureMaps()
	}

	return t, nil
}

func (s *AggregatedStats) ensureMaps() {
	if s.ByOutcome == nil {
		s.ByOutcome = make(map[string]CycleCounts)
	}
	if s.ByDay == nil {
		s.ByDay = make(map[string]CycleCounts)
	}
}

// Path returns the persistence file.
func (t *Tracker) Path() string {
	return t.filePath
}

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded UsageData
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	// Ensure maps are initialized if file was empty/partial
	loaded.Aggregate.ensureMaps()
	t.data = loaded
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Track records a finished cycle.
func (t *Tracker) Track(e CycleEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}

	t.data.Aggregate.Total.Add(e)
	addToMap(t.data.Aggregate.ByOutcome, e.Outcome(), e)
	addToMap(t.data.Aggregate.ByDay, e.Timestamp.Local().Format("2006-01-02"), e)

	// Debounced auto-save
	if t.autoSaveTimer == nil {
		t.autoSaveTimer = time.AfterFunc(autoSaveDelay, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.autoSaveTimer = nil
			if err := t.saveLocked(); err != nil {
				logging.BootWarn("usage: save failed: %v", err)
			}
		})
	}
}

// Close stops the pending auto-save and writes immediately.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.autoSaveTimer != nil {
		t.autoSaveTimer.Stop()
		t.autoSaveTimer = nil
	}
	return t.saveLocked()
}

// OnTransition records terminal transitions, making the tracker a controller.Observer.
func (t *Tracker) OnTransition(tr controller.Transition) {
	if !tr.To.Terminal() || tr.Outcome == nil {
		return
	}
	o := tr.Outcome
	e := CycleEvent{
		CycleID:       tr.CycleID,
		Succeeded:     tr.To == controller.StateResult,
		Elapsed:       o.Elapsed,
		ServerSeconds: o.ProcessingTime,
		Messages:      len(o.Messages),
	}
	if o.Err != nil {
		e.ErrorKind = string(o.Err.Kind)
	}
	t.Track(e)
}

// OnElapsed ignores ticks.
func (t *Tracker) OnElapsed(controller.Tick) {}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByOutcome = copyCountsMap(stats.ByOutcome)
	stats.ByDay = copyCountsMap(stats.ByDay)
	return stats
}

// Keys returns the map keys in sorted order.
func Keys(m map[string]CycleCounts) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyCountsMap(src map[string]CycleCounts) map[string]CycleCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]CycleCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]CycleCounts, key string, e CycleEvent) {
	entry := m[key]
	entry.Add(e)
	m[key] = entry
}
