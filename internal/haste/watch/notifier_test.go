package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNotifierDebouncesBurstsIntoOneCallback(t *testing.T) {
	dir := t.TempDir()

	calls := make(chan []string, 4)
	n, err := NewNotifier([]string{dir}, 50*time.Millisecond, func(paths []string) {
		calls <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer n.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case paths := <-calls:
		if len(paths) == 0 {
			t.Fatal("expected at least one changed path")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced callback")
	}
}
