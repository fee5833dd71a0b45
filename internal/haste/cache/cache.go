// Package cache persists a HasteIndex between builds under a path derived
// deterministically from a caller-supplied id and extra disambiguating
// strings (typically the root directories being indexed).
package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/hastemap-dev/hastemap/internal/fingerprint"
	"github.com/hastemap-dev/hastemap/internal/haste"
)

var sanitizePattern = regexp.MustCompile(`\W`)

// Sanitize replaces every non-word character in id with "-", matching the
// cache file naming rule.
func Sanitize(id string) string {
	return sanitizePattern.ReplaceAllString(id, "-")
}

// Path returns the deterministic absolute cache path for id and extra,
// under tmpdir.
func Path(tmpdir, id string, extra []string) string {
	digest := fingerprint.Sum([]byte(joinExtra(extra)))
	name := fmt.Sprintf("%s-%s", Sanitize(id), digest[:32])
	return filepath.Join(tmpdir, name)
}

func joinExtra(extra []string) string {
	var buf bytes.Buffer
	for _, e := range extra {
		buf.WriteString(e)
	}
	return buf.String()
}

// gobIndex mirrors haste.HasteIndex for serialization. gob could encode
// haste.HasteIndex directly, since none of its fields need special
// handling, but keeping a distinct type here means a future on-disk format
// change doesn't have to touch the in-memory type.
type gobIndex struct {
	Clocks     haste.ClockMap
	Files      map[string]haste.FileMetaData
	Map        haste.ModuleMap
	Duplicates haste.DuplicatesIndex
	Mocks      map[string]string
}

// Store is a CacheStore: it loads and persists a HasteIndex at a
// deterministic path, tolerating a missing or corrupt cache by treating it
// as empty.
type Store struct {
	logger *zap.Logger
}

// New returns a Store that logs load/store diagnostics through logger. A
// nil logger is replaced with a no-op logger.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Load decodes the index persisted at path. Any failure - the file does
// not exist, is corrupt, or was written by an incompatible version - is
// recovered locally: Load returns a freshly constructed empty index and
// never an error, so a caller with a bad cache behaves as if building from
// scratch.
func (s *Store) Load(path string) *haste.HasteIndex {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache unreadable, starting fresh", zap.String("path", path), zap.Error(err))
		}
		return haste.New()
	}
	defer f.Close()

	var g gobIndex
	if err := gob.NewDecoder(f).Decode(&g); err != nil {
		s.logger.Warn("cache corrupt, starting fresh", zap.String("path", path), zap.Error(err))
		return haste.New()
	}

	idx := haste.New()
	idx.Clocks = g.Clocks
	idx.Files = g.Files
	idx.Map = g.Map
	idx.Duplicates = g.Duplicates
	idx.Mocks = g.Mocks
	return idx
}

// Store persists index at path atomically: a temp file is written and
// encoded in full, then renamed over the destination, so a reader never
// observes a partially written cache.
func (s *Store) Store(path string, index *haste.HasteIndex) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: create directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}

	g := gobIndex{
		Clocks:     index.Clocks,
		Files:      index.Files,
		Map:        index.Map,
		Duplicates: index.Duplicates,
		Mocks:      index.Mocks,
	}
	if err := gob.NewEncoder(f).Encode(g); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("cache: encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: rename into place: %w", err)
	}
	return nil
}
