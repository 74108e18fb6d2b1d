package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func reset(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		CloseAll()
		_ = Initialize(os.TempDir(), Options{})
	})
}

func readLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "logs", "*_"+string(cat)+".log"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no log file for %s (err=%v)", cat, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	if err := Initialize(dir, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("Expected debug mode to be enabled")
	}

	for _, cat := range AllCategories {
		Get(cat).Info("hello from %s", cat)
	}
	CloseAll()

	for _, cat := range AllCategories {
		content := readLog(t, dir, cat)
		if !strings.Contains(content, "hello from "+string(cat)) {
			t.Errorf("category %s: message missing from log: %q", cat, content)
		}
	}
}

func TestProductionModeWritesNothing(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	if err := Initialize(dir, Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Boot("should not be written")
	BridgeDebug("nor this")

	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Errorf("expected no logs directory in production mode, stat err=%v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	err := Initialize(dir, Options{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{"bridge": false},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if IsCategoryEnabled(CategoryBridge) {
		t.Error("bridge should be disabled")
	}
	if !IsCategoryEnabled(CategoryReply) {
		t.Error("reply should default to enabled")
	}

	Bridge("hidden")
	Reply("visible")
	CloseAll()

	if matches, _ := filepath.Glob(filepath.Join(dir, "logs", "*_bridge.log")); len(matches) != 0 {
		t.Errorf("bridge log should not exist: %v", matches)
	}
	if !strings.Contains(readLog(t, dir, CategoryReply), "visible") {
		t.Error("reply log missing message")
	}
}

func TestLevelFilter(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	if err := Initialize(dir, Options{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Get(CategoryController).Debug("debug line")
	Get(CategoryController).Info("info line")
	Get(CategoryController).Warn("warn line")
	CloseAll()

	content := readLog(t, dir, CategoryController)
	if strings.Contains(content, "debug line") || strings.Contains(content, "info line") {
		t.Errorf("lines below warn leaked: %q", content)
	}
	if !strings.Contains(content, "warn line") {
		t.Errorf("warn line missing: %q", content)
	}
}

func TestJSONFormatAndRequestID(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	if err := Initialize(dir, Options{DebugMode: true, Level: "info", JSONFormat: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	WithRequestID(CategoryController, "cycle-123").Info("entered %s", "loading")
	CloseAll()

	content := readLog(t, dir, CategoryController)
	if !strings.Contains(content, `"req":"cycle-123"`) {
		t.Errorf("request id missing: %q", content)
	}
	if !strings.Contains(content, `"msg":"entered loading"`) {
		t.Errorf("message missing: %q", content)
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer(CategoryReply, "op")
	time.Sleep(time.Millisecond)
	if d := timer.Stop(); d <= 0 {
		t.Errorf("expected positive duration, got %v", d)
	}
	if d := StartTimer(CategoryReply, "op").StopWithThreshold(time.Hour); d < 0 {
		t.Errorf("unexpected duration %v", d)
	}
}

func TestInitializeRequiresDir(t *testing.T) {
	if err := Initialize("", Options{}); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestNoopLoggerIsSafe(t *testing.T) {
	l := &Logger{category: CategoryUI}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	WithRequestID(CategoryUI, "r").Error("x")
}

func TestInitializeConcurrentWithGet(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					Get(CategoryBridge)
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		if err := Initialize(dir, Options{DebugMode: i%2 == 0}); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}
