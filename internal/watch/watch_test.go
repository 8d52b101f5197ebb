package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wingedonezero/mkvq/internal/logging"
)

func TestWatcherReportsSettledFile(t *testing.T) {
	dir := t.TempDir()
	settled := make(chan string, 4)

	w := New(dir, 150*time.Millisecond, logging.NewNop(), func(path string) {
		settled <- path
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch a moment to establish before writing.
	time.Sleep(100 * time.Millisecond)
	target := filepath.Join(dir, "movie.iso")
	if err := os.WriteFile(target, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-settled:
		if path != target {
			t.Fatalf("settled path = %q, want %q", path, target)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for settle notification")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestWatcherWritesResetSettleClock(t *testing.T) {
	dir := t.TempDir()
	settled := make(chan string, 4)

	w := New(dir, 300*time.Millisecond, logging.NewNop(), func(path string) {
		settled <- path
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	// Simulate a slow copy: keep appending more often than the settle
	// window allows.
	target := filepath.Join(dir, "slow.iso")
	f, err := os.Create(target)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := f.WriteString("chunk"); err != nil {
			t.Fatal(err)
		}
		if err := f.Sync(); err != nil {
			t.Fatal(err)
		}
		select {
		case path := <-settled:
			t.Fatalf("entry %q settled while still being written", path)
		case <-time.After(150 * time.Millisecond):
		}
	}
	f.Close()

	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("entry never settled after writes stopped")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), time.Second, logging.NewNop(), func(string) {})
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
