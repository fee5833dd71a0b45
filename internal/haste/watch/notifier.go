package watch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier watches a set of root directories with fsnotify and debounces
// bursts of events into a single rebuild trigger. It is deliberately kept
// outside the Source interface: the core performs one crawl+process cycle
// per Build call, and a live-reload loop that repeatedly calls Build on
// change is something an embedding application wires up around it, not
// something the core orchestrates itself.
type Notifier struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier over roots, invoking onChange (with the
// set of changed paths) no more often than once per debounce window after
// the last event in a burst.
func NewNotifier(roots []string, debounce time.Duration, onChange func([]string)) (*Notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create notifier: %w", err)
	}

	for _, root := range roots {
		if err := addRecursive(w, root); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch: add root %q: %w", root, err)
		}
	}

	n := &Notifier{
		watcher:   w,
		debouncer: newDebouncer(debounce),
		stopChan:  make(chan struct{}),
	}
	n.debouncer.setCallback(onChange)

	n.wg.Add(1)
	go n.run()

	return n, nil
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				n.debouncer.add(ev.Name)
			}
		case _, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
		case <-n.stopChan:
			return
		}
	}
}

// Stop stops the notifier and releases the underlying fsnotify watcher.
func (n *Notifier) Stop() error {
	select {
	case <-n.stopChan:
	default:
		close(n.stopChan)
	}
	n.wg.Wait()
	n.debouncer.stop()
	return n.watcher.Close()
}

// debouncer collects changed paths and invokes a callback once activity
// has been quiet for duration, adapted from the same pattern a file watcher
// needs for any bursty event source.
type debouncer struct {
	duration time.Duration
	timer    *time.Timer
	paths    map[string]struct{}
	mu       sync.Mutex
	callback func([]string)
	stopChan chan struct{}
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		paths:    make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}
}

func (d *debouncer) setCallback(cb func([]string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = cb
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.paths[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.paths) == 0 {
		return
	}
	paths := make([]string, 0, len(d.paths))
	for p := range d.paths {
		paths = append(paths, p)
	}
	d.paths = make(map[string]struct{})

	if d.callback != nil {
		d.callback(paths)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}
}
