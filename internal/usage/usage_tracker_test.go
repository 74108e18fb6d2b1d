package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"respondo/internal/controller"
	"respondo/internal/types"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)
}

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	tracker.now = fixedNow
	defer tracker.Close()

	server := 0.5
	tracker.Track(CycleEvent{Succeeded: true, Elapsed: 1200 * time.Millisecond, ServerSeconds: &server, Messages: 4})
	tracker.Track(CycleEvent{Succeeded: true, Elapsed: 800 * time.Millisecond, Messages: 2})
	tracker.Track(CycleEvent{ErrorKind: string(types.ErrorServer), Elapsed: 100 * time.Millisecond})

	stats := tracker.Stats()
	if stats.Total.Cycles != 3 || stats.Total.Succeeded != 2 || stats.Total.Failed != 1 {
		t.Fatalf("Total=%+v, want 3 cycles, 2 succeeded, 1 failed", stats.Total)
	}
	if got := stats.Total.AverageElapsed(); got != 700*time.Millisecond {
		t.Fatalf("AverageElapsed=%v, want 700ms", got)
	}
	if got := stats.ByOutcome[OutcomeResult]; got.Cycles != 2 || got.Messages != 6 || got.ServerSeconds != 0.5 {
		t.Fatalf("ByOutcome[RESULT]=%+v", got)
	}
	if got := stats.ByOutcome[string(types.ErrorServer)]; got.Failed != 1 {
		t.Fatalf("ByOutcome[SERVER_ERROR]=%+v", got)
	}
	if got := stats.ByDay["2025-03-14"]; got.Cycles != 3 {
		t.Fatalf("ByDay=%+v", stats.ByDay)
	}

	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "usage.json"))
	if err != nil {
		t.Fatalf("read usage.json: %v", err)
	}
	var persisted UsageData
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal usage.json: %v", err)
	}
	if persisted.Aggregate.Total.Cycles != 3 {
		t.Fatalf("persisted cycles=%d, want 3", persisted.Aggregate.Total.Cycles)
	}

	reloaded, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if got := reloaded.Stats().Total.Cycles; got != 3 {
		t.Fatalf("reloaded cycles=%d, want 3", got)
	}
}

func TestTracker_ObservesTerminalTransitions(t *testing.T) {
	tracker, err := NewTracker(t.TempDir())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tracker.Close()

	var obs controller.Observer = tracker
	obs.OnTransition(controller.Transition{From: controller.StateIdle, To: controller.StateLoading, CycleID: "a"})
	obs.OnElapsed(controller.Tick{CycleID: "a", Elapsed: time.Second})
	obs.OnTransition(controller.Transition{
		From: controller.StateLoading, To: controller.StateError, CycleID: "a",
		Outcome: &controller.Outcome{State: controller.StateError, Err: types.EmptyResult(), Elapsed: time.Second},
	})
	obs.OnTransition(controller.Transition{
		From: controller.StateError, To: controller.StateLoading, CycleID: "b",
	})
	obs.OnTransition(controller.Transition{
		From: controller.StateLoading, To: controller.StateResult, CycleID: "b",
		Outcome: &controller.Outcome{State: controller.StateResult, Reply: "ok", Messages: make([]types.MessageRecord, 3)},
	})

	stats := tracker.Stats()
	if stats.Total.Cycles != 2 {
		t.Fatalf("cycles=%d, want 2", stats.Total.Cycles)
	}
	if got := stats.ByOutcome[string(types.ErrorEmptyResult)]; got.Failed != 1 {
		t.Fatalf("ByOutcome[EMPTY_RESULT]=%+v", got)
	}
	if got := stats.ByOutcome[OutcomeResult]; got.Messages != 3 {
		t.Fatalf("ByOutcome[RESULT]=%+v", got)
	}
}

func TestTracker_CorruptFileStartsOver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "usage.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if got := tracker.Stats(); got.Total.Cycles != 0 || got.ByOutcome == nil {
		t.Fatalf("expected empty stats, got %+v", got)
	}
}

func TestKeysSorted(t *testing.T) {
	keys := Keys(map[string]CycleCounts{"b": {}, "a": {}, "c": {}})
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Fatalf("Keys=%v", keys)
	}
}
