package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.csv")
	other := filepath.Join(dir, "other.csv")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w, err := NewWatcher(Options{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	var calls atomic.Int32
	changed := make(chan string, 4)
	w.OnChange = func(_ context.Context, p string) error {
		calls.Add(1)
		changed <- p
		return nil
	}
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// a burst of writes plus an unrelated file in the same directory
	for i := 2; i <= 4; i++ {
		if err := os.WriteFile(path, []byte("abcd"[:i]), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	abs, _ := filepath.Abs(path)
	select {
	case got := <-changed:
		if got != abs {
			t.Errorf("Expected %s, got %s", abs, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for change")
	}

	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected one debounced call, got %d", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	w, err := NewWatcher(Options{})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(filepath.Join(t.TempDir(), "missing.xes")); err == nil {
		t.Error("Expected error for missing file")
	}
}
