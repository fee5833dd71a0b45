// Package builder orchestrates one build cycle: load cache, crawl, run
// the processor pool, reconcile, persist, and report readiness.
package builder

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/hastemap-dev/hastemap/internal/haste"
	"github.com/hastemap-dev/hastemap/internal/haste/cache"
	"github.com/hastemap-dev/hastemap/internal/haste/crawl"
	"github.com/hastemap-dev/hastemap/internal/haste/pool"
	"github.com/hastemap-dev/hastemap/internal/haste/reconcile"
	"github.com/hastemap-dev/hastemap/internal/haste/watch"
	"github.com/hastemap-dev/hastemap/internal/haste/worker"
	"github.com/hastemap-dev/hastemap/internal/pathnorm"
)

// Config configures a HasteMapBuilder. RootDir, Roots, and Source are
// required; everything else has a usable default.
type Config struct {
	RootDir    string
	Roots      []string
	Extensions []string
	// Platforms is accepted and stored but the core only ever produces
	// the generic platform.
	Platforms []string

	MaxWorkers  int
	ForceInBand bool
	ComputeSha1 bool

	ID             string
	CacheDirectory string
	ResetCache     bool

	HasteImpl           worker.HasteImpl
	DependencyExtractor worker.DependencyExtractor
	RetainAllFiles      bool
	IgnorePattern       *regexp.Regexp

	Source watch.Source
	Logger *zap.Logger
}

// EventSink receives the builder's ready/error notifications. Both methods
// are optional to implement meaningfully; NopEventSink satisfies the
// interface by discarding everything.
type EventSink interface {
	Ready(index *haste.HasteIndex)
	Error(kind string, detail error)
}

// NopEventSink discards every event.
type NopEventSink struct{}

func (NopEventSink) Ready(*haste.HasteIndex) {}
func (NopEventSink) Error(string, error)     {}

// Builder is a single-shot HasteMapBuilder: Build is idempotent, memoizing
// its result so a second call returns the same resolved index (or error)
// without repeating the crawl/process/reconcile cycle.
type Builder struct {
	cfg    Config
	logger *zap.Logger
	sink   EventSink

	crawler     *crawl.Crawler
	reconciler  *reconcile.Reconciler
	cacheStore  *cache.Store
	cachePath   string

	started atomic.Bool
	once    sync.Once
	result  *haste.HasteIndex
	err     error
}

// New constructs a Builder. sink may be nil, in which case events are
// discarded.
func New(cfg Config, sink EventSink) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = NopEventSink{}
	}
	if cfg.IgnorePattern == nil {
		cfg.IgnorePattern = pathnorm.DefaultIgnorePattern
	}
	if cfg.CacheDirectory == "" {
		cfg.CacheDirectory = os.TempDir()
	}

	extra := append([]string{cfg.RootDir}, cfg.Roots...)
	return &Builder{
		cfg:        cfg,
		logger:     logger,
		sink:       sink,
		crawler:    crawl.New(cfg.Source, logger),
		reconciler: reconcile.New(logger),
		cacheStore: cache.New(logger),
		cachePath:  cache.Path(cfg.CacheDirectory, cfg.ID, extra),
	}
}

// Build runs the single build cycle on first call. Every subsequent call
// returns the same memoized result, regardless of ctx.
func (b *Builder) Build(ctx context.Context) (*haste.HasteIndex, error) {
	b.started.Store(true)
	b.once.Do(func() {
		b.result, b.err = b.run(ctx)
		if b.err != nil {
			b.sink.Error("build_failed", b.err)
			return
		}
		b.sink.Ready(b.result)
	})
	return b.result, b.err
}

func (b *Builder) run(ctx context.Context) (*haste.HasteIndex, error) {
	buildID := uuid.New().String()
	logger := b.logger.With(zap.String("build_id", buildID))

	prev := haste.New()
	if !b.cfg.ResetCache {
		prev = b.cacheStore.Load(b.cachePath)
	}

	crawlResult, err := b.crawler.Crawl(ctx, prev, crawl.Config{
		RootDir:       b.cfg.RootDir,
		Roots:         b.cfg.Roots,
		Extensions:    b.cfg.Extensions,
		ComputeSha1:   b.cfg.ComputeSha1,
		IgnorePattern: b.cfg.IgnorePattern,
	})
	if err != nil {
		return nil, fmt.Errorf("builder: crawl: %w", err)
	}

	changedAbsent := crawlResult.Fresh
	needsReconcile := changedAbsent || len(crawlResult.Changed) > 0 || len(crawlResult.Removed) > 0
	if !needsReconcile {
		logger.Debug("no changes detected, returning prior index")
		return prev, nil
	}

	index := &haste.HasteIndex{
		Clocks:     crawlResult.Clocks,
		Files:      crawlResult.Files,
		Map:        prev.Map,
		Duplicates: prev.Duplicates,
		Mocks:      prev.Mocks,
	}

	sel := b.reconciler.Select(index, crawlResult.Removed, crawlResult.Changed, changedAbsent, b.cfg.RetainAllFiles)

	flags := worker.Flags{
		ComputeDependencies: true,
		ComputeSha1:         b.cfg.ComputeSha1,
		HasteImpl:           b.cfg.HasteImpl,
		DependencyExtractor: b.cfg.DependencyExtractor,
		RetainAllFiles:      b.cfg.RetainAllFiles,
	}

	tasks := make([]pool.Task, 0, len(sel.ToProcess))
	for _, p := range sel.ToProcess {
		tasks = append(tasks, pool.Task{Path: p})
	}

	process := func(_ context.Context, task pool.Task) (worker.Metadata, error) {
		return worker.Process(task.Path, b.cfg.RootDir, flags)
	}
	outcomes := pool.Run(ctx, tasks, process, pool.Config{
		Concurrency: b.cfg.MaxWorkers,
		ForceInBand: b.cfg.ForceInBand,
	})

	for outcome := range outcomes {
		if outcome.Err != nil {
			if isDroppableReadError(outcome.Err) {
				logger.Warn("dropping unreadable file", zap.String("path", outcome.Task.Path), zap.Error(outcome.Err))
				delete(index.Files, outcome.Task.Path)
				continue
			}
			return nil, fmt.Errorf("builder: process %s: %w", outcome.Task.Path, outcome.Err)
		}
		b.reconciler.Commit(index, outcome.Task.Path, outcome.Result)
	}

	for _, p := range sel.Shortcut {
		b.reconciler.CommitShortcut(index, p)
	}

	if err := b.cacheStore.Store(b.cachePath, index); err != nil {
		logger.Warn("failed to persist cache", zap.Error(err))
	}

	return index, nil
}

func isDroppableReadError(err error) bool {
	return os.IsNotExist(err) || os.IsPermission(err)
}
