// Package crawl merges a WatchSource's delta into a previous HasteIndex,
// producing the (changed, removed, updated) triple the reconciler consumes.
package crawl

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hastemap-dev/hastemap/internal/fingerprint"
	"github.com/hastemap-dev/hastemap/internal/haste"
	"github.com/hastemap-dev/hastemap/internal/haste/watch"
	"github.com/hastemap-dev/hastemap/internal/pathnorm"
)

// Config configures one crawl.
type Config struct {
	RootDir       string
	Roots         []string
	Extensions    []string
	ComputeSha1   bool
	IgnorePattern *regexp.Regexp
}

// Result is the outcome of one crawl: the merged file map, the subset
// that needs (re)processing, the subset that disappeared, and the clocks
// to persist for the next incremental crawl.
type Result struct {
	Files   map[string]haste.FileMetaData
	Changed map[string]haste.FileMetaData
	Removed map[string]haste.FileMetaData
	Clocks  haste.ClockMap
	Fresh   bool
}

// Error reports that one or more watch roots failed to answer a query.
// Per spec, any root failing fails the whole crawl; no partial merge is
// kept, so the caller must not persist a cache after seeing this error.
type Error struct {
	Cause error
}

func (e *Error) Error() string { return fmt.Sprintf("crawl failed: %v", e.Cause) }
func (e *Error) Unwrap() error { return e.Cause }

// Crawler asks a WatchSource for the delta since the previous index's
// clocks and merges the result into that index's Files.
type Crawler struct {
	source watch.Source
	logger *zap.Logger
}

// New returns a Crawler that queries source. A nil logger is replaced with
// a no-op logger.
func New(source watch.Source, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{source: source, logger: logger}
}

type rootQuery struct {
	watchRoot    string
	relativeRoot string
	relPaths     []string
}

type rootResult struct {
	query   rootQuery
	resp    watch.QueryResponse
	usedSCM bool
}

// Crawl performs one crawl against prev, the previous build's index.
func (c *Crawler) Crawl(ctx context.Context, prev *haste.HasteIndex, cfg Config) (*Result, error) {
	rootsMap, err := c.source.Roots(ctx, cfg.Roots)
	if err != nil {
		return nil, &Error{Cause: err}
	}

	queries := make([]rootQuery, 0, len(rootsMap))
	for watchRoot, relPaths := range rootsMap {
		relRoot, relErr := pathnorm.Relative(cfg.RootDir, watchRoot)
		if relErr != nil {
			relRoot = watchRoot
		}
		queries = append(queries, rootQuery{watchRoot: watchRoot, relativeRoot: relRoot, relPaths: relPaths})
	}

	caps := c.source.Capabilities()
	fields := []string{watch.FieldName, watch.FieldExists, watch.FieldMTimeMS, watch.FieldSize}
	if cfg.ComputeSha1 && caps.ContentSHA1Hex {
		fields = append(fields, watch.FieldContentSHA)
	}

	var (
		mu      sync.Mutex
		results []rootResult
		errs    error
	)

	concurrency := len(queries)
	if concurrency < 1 {
		concurrency = 1
	}
	p := pool.New().WithMaxGoroutines(concurrency)
	for _, q := range queries {
		q := q
		p.Go(func() {
			var since *haste.ClockSpec
			if cs, ok := prev.Clocks[q.relativeRoot]; ok && !cs.IsZero() {
				since = &cs
			}
			expr := watch.Expression{
				Suffixes:        cfg.Extensions,
				DirConstraints:  q.relPaths,
				IncludeDotfiles: since == nil,
			}

			resp, err := c.source.Query(ctx, q.watchRoot, since, expr, fields)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", q.watchRoot, err))
				return
			}
			results = append(results, rootResult{
				query:   q,
				resp:    resp,
				usedSCM: since != nil && since.IsSCM(),
			})
		})
	}
	p.Wait()

	if errs != nil {
		c.logger.Warn("crawl failed", zap.Error(errs))
		return nil, &Error{Cause: errs}
	}

	return c.merge(prev, cfg, results), nil
}

func (c *Crawler) merge(prev *haste.HasteIndex, cfg Config, results []rootResult) *Result {
	isFresh := false
	for _, r := range results {
		if r.usedSCM {
			continue
		}
		if r.resp.IsFreshInstance {
			isFresh = true
		}
	}

	files := make(map[string]haste.FileMetaData, len(prev.Files))
	removed := map[string]haste.FileMetaData{}
	if isFresh {
		for p, m := range prev.Files {
			removed[p] = m
		}
	} else {
		for p, m := range prev.Files {
			files[p] = m
		}
	}

	changed := map[string]haste.FileMetaData{}
	clocks := haste.ClockMap{}
	for k, v := range prev.Clocks {
		clocks[k] = v
	}

	for _, r := range results {
		for _, f := range r.resp.Files {
			relPath, ok := c.relativize(cfg, r.query.watchRoot, f.Name)
			if !ok {
				continue
			}

			if !f.Exists {
				if _, existed := prev.Files[relPath]; existed {
					delete(files, relPath)
					if !isFresh {
						removed[relPath] = prev.Files[relPath]
					}
				}
				continue
			}

			prevMeta, hadPrev := prev.Files[relPath]
			sha1 := ""
			if fingerprint.Valid(f.SHA1) {
				sha1 = f.SHA1
			}

			var entry haste.FileMetaData
			needsProcessing := false
			switch {
			case hadPrev && prevMeta.MTimeMS == f.MTimeMS:
				entry = prevMeta
			case hadPrev && sha1 != "" && prevMeta.SHA1 == sha1:
				entry = prevMeta
				entry.MTimeMS = f.MTimeMS
			default:
				entry = haste.FileMetaData{
					MTimeMS: f.MTimeMS,
					Size:    f.Size,
					SHA1:    sha1,
				}
				needsProcessing = true
			}

			if isFresh {
				delete(removed, relPath)
			}

			files[relPath] = entry
			if needsProcessing {
				changed[relPath] = entry
			}
		}

		clocks[r.query.relativeRoot] = localClockOf(r.resp.Clock)
	}

	return &Result{Files: files, Changed: changed, Removed: removed, Clocks: clocks, Fresh: isFresh}
}

func (c *Crawler) relativize(cfg Config, watchRoot, name string) (string, bool) {
	abs := pathnorm.Join(watchRoot, name)
	relPath, err := pathnorm.Relative(cfg.RootDir, abs)
	if err != nil {
		c.logger.Warn("could not relativize path", zap.String("path", abs), zap.Error(err))
		return "", false
	}
	if pathnorm.Ignored(cfg.IgnorePattern, relPath) {
		return "", false
	}
	return relPath, true
}

func localClockOf(c haste.ClockSpec) haste.ClockSpec {
	if c.SCM != nil {
		return haste.ClockSpec{Local: c.SCM.Clock}
	}
	return haste.ClockSpec{Local: c.Local}
}
