package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hastemap-dev/hastemap/internal/fingerprint"
	"github.com/hastemap-dev/hastemap/internal/haste"
	"github.com/hastemap-dev/hastemap/internal/pathnorm"
)

// FSWalkSource is the in-process fallback Source: it has no persistent
// watch daemon behind it, so every Query does a full directory walk and
// always reports IsFreshInstance. It exists so callers who embed this
// module get a working WatchSource out of the box; production deployments
// that need true incremental queries supply their own adapter (e.g. one
// speaking the Watchman protocol) satisfying the same interface.
type FSWalkSource struct {
	mu        sync.Mutex
	wholeRoot map[string]bool
}

// NewFSWalkSource returns a Source backed by a plain recursive walk.
func NewFSWalkSource() *FSWalkSource {
	return &FSWalkSource{wholeRoot: map[string]bool{}}
}

// Capabilities reports that this source computes sha1 digests on request
// and accepts the suffix-set expression form.
func (s *FSWalkSource) Capabilities() Capabilities {
	return Capabilities{SuffixSet: true, ContentSHA1Hex: true}
}

// Roots treats every requested root as its own watch root with an empty
// relative path (this source has no concept of a broader tree containing
// it the way a daemon with a long-lived root table does), so every root is
// watched whole and is returned with no relative paths. The source
// remembers those roots across calls, per the "watched whole" rule.
func (s *FSWalkSource) Roots(_ context.Context, rootPaths []string) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string][]string{}
	seenThisCall := map[string]bool{}

	for _, root := range rootPaths {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve root %q: %w", root, err)
		}
		watchRoot := abs
		rel := ""

		if s.wholeRoot[watchRoot] {
			// Already watched whole: further relative paths under it are
			// ignored, the watch root itself is still present in the map.
			if _, ok := out[watchRoot]; !ok {
				out[watchRoot] = nil
			}
			continue
		}

		if !seenThisCall[watchRoot] {
			out[watchRoot] = nil
			seenThisCall[watchRoot] = true
		}
		if rel != "" {
			out[watchRoot] = append(out[watchRoot], rel)
		} else {
			s.wholeRoot[watchRoot] = true
		}
	}

	return out, nil
}

// Query walks watchRoot and returns every plain file matching expr. since
// is ignored: this source cannot answer "what changed" without a content
// walk, so it always performs one and reports IsFreshInstance, letting the
// crawler reconcile against its previous file map itself.
func (s *FSWalkSource) Query(ctx context.Context, watchRoot string, _ *haste.ClockSpec, expr Expression, fields []string) (QueryResponse, error) {
	wantSHA1 := false
	for _, f := range fields {
		if f == FieldContentSHA {
			wantSHA1 = true
		}
	}

	suffixSet := make(map[string]bool, len(expr.Suffixes))
	for _, s := range expr.Suffixes {
		suffixSet[strings.ToLower(s)] = true
	}

	var files []FileStat
	walkErr := filepath.WalkDir(watchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		if !matchesDirConstraints(watchRoot, path, expr.DirConstraints) {
			return nil
		}
		base := filepath.Base(path)
		if !expr.IncludeDotfiles && strings.HasPrefix(base, ".") {
			return nil
		}
		ext := pathnorm.Ext(path)
		if len(suffixSet) > 0 && !suffixSet[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint: avoid aborting the whole walk on a single stat race
		}
		rel, err := pathnorm.Relative(watchRoot, path)
		if err != nil {
			return nil
		}

		stat := FileStat{
			Name:    rel,
			Exists:  true,
			MTimeMS: info.ModTime().UnixMilli(),
			Size:    uint64(info.Size()),
		}
		if wantSHA1 {
			if data, readErr := readFileLimited(path); readErr == nil {
				stat.SHA1 = fingerprint.Sum(data)
			}
		}
		files = append(files, stat)
		return nil
	})
	if walkErr != nil {
		return QueryResponse{}, fmt.Errorf("watch: walk %q: %w", watchRoot, walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return QueryResponse{
		Clock:           haste.ClockSpec{Local: newLocalClock()},
		IsFreshInstance: true,
		Files:           files,
	}, nil
}

func matchesDirConstraints(watchRoot, path string, dirs []string) bool {
	if len(dirs) == 0 {
		return true
	}
	rel, err := pathnorm.Relative(watchRoot, path)
	if err != nil {
		return false
	}
	for _, d := range dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}
