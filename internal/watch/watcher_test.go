package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hpungsan/partbridge/internal/logging"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("PK"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func startWatcher(t *testing.T, cfg Config) (context.CancelFunc, <-chan error) {
	t.Helper()
	cfg.Logger = logging.Nop()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func TestWatcher_DebouncesAndFiltersPatterns(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var (
		mu   sync.Mutex
		got  []string
		done = make(chan struct{}, 10)
	)
	cancel, errCh := startWatcher(t, Config{
		Dir:      dir,
		Patterns: []string{"*.zip"},
		Debounce: 100 * time.Millisecond,
		OnArchive: func(_ context.Context, path string) error {
			mu.Lock()
			got = append(got, filepath.Base(path))
			mu.Unlock()
			done <- struct{}{}
			return nil
		},
	})

	writeFile(t, dir, "b.zip")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "a.zip")
	writeFile(t, dir, "c.zip.crdownload")

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for callback")
		}
	}
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "a.zip" || got[1] != "b.zip" {
		t.Errorf("callbacks = %v, want [a.zip b.zip]", got)
	}
}

func TestWatcher_CallbacksAreSequential(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var (
		active  atomic.Int32
		overlap atomic.Bool
		calls   atomic.Int32
		done    = make(chan struct{}, 10)
	)
	cancel, errCh := startWatcher(t, Config{
		Dir:      dir,
		Debounce: 20 * time.Millisecond,
		OnArchive: func(context.Context, string) error {
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(100 * time.Millisecond)
			active.Add(-1)
			calls.Add(1)
			done <- struct{}{}
			return nil
		},
	})

	writeFile(t, dir, "one.zip")
	time.Sleep(60 * time.Millisecond) // second burst lands while the first import runs
	writeFile(t, dir, "two.zip")

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for callback")
		}
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if overlap.Load() {
		t.Error("callbacks ran concurrently")
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want at least 2", calls.Load())
	}
}

func TestWatcher_SkipsVanishedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	called := make(chan string, 10)
	cancel, errCh := startWatcher(t, Config{
		Dir:      dir,
		Debounce: 150 * time.Millisecond,
		OnArchive: func(_ context.Context, path string) error {
			called <- path
			return nil
		},
	})

	writeFile(t, dir, "gone.zip")
	if err := os.Remove(filepath.Join(dir, "gone.zip")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case p := <-called:
		t.Errorf("unexpected callback for %s", p)
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestWatcher_IgnoresSubdirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	called := make(chan string, 10)
	cancel, errCh := startWatcher(t, Config{
		Dir:      dir,
		Patterns: []string{"*.zip"},
		Debounce: 50 * time.Millisecond,
		OnArchive: func(_ context.Context, path string) error {
			called <- path
			return nil
		},
	})

	writeFile(t, sub, "deep.zip")

	select {
	case p := <-called:
		t.Errorf("unexpected callback for %s", p)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()
	w, err := New(Config{Dir: t.TempDir(), Logger: logging.Nop()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// wait until the first Run has claimed the watcher
	deadline := time.Now().Add(2 * time.Second)
	for !w.started.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := w.Run(ctx); err == nil {
		t.Error("second Run() should fail")
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "file.zip")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty dir", Config{}},
		{"missing dir", Config{Dir: filepath.Join(t.TempDir(), "nope")}},
		{"not a dir", Config{Dir: file}},
		{"bad pattern", Config{Dir: t.TempDir(), Patterns: []string{"[unclosed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()
	w := &Watcher{cfg: Config{Patterns: []string{"*.zip", "LIB_*"}}}

	tests := []struct {
		name string
		want bool
	}{
		{"part.zip", true},
		{"LIB_STM32", true},
		{"part.ZIP", false},
		{"part.zip.crdownload", false},
		{"part.zip.part", false},
		{".hidden.zip", false},
		{"readme.md", false},
	}
	for _, tt := range tests {
		if got := w.Matches(tt.name); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	all := &Watcher{}
	if !all.Matches("anything.bin") {
		t.Error("no patterns should match every non-ignored file")
	}
	if all.Matches("x.tmp") {
		t.Error("default ignores apply without patterns")
	}
}
