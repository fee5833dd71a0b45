// Package haste defines the persisted data model of a haste map: the
// per-file metadata, the module-name index, the duplicate-name side table,
// and the watch clocks that let a later build resume where the last one
// left off.
//
// Every exported type here is a value the cache, crawler, worker pool, and
// reconciler pass between themselves; none of them own a mutex - the
// builder is the single logical writer for the duration of a build (see
// internal/haste/builder).
package haste

import "sort"

// ModuleKind distinguishes a haste name claimed by an ordinary source file
// from one claimed by a package descriptor.
type ModuleKind int

const (
	// KindModule is a haste name declared by a source file.
	KindModule ModuleKind = iota
	// KindPackage is a haste name declared by a package.json "name" field.
	KindPackage
)

func (k ModuleKind) String() string {
	if k == KindPackage {
		return "package"
	}
	return "module"
}

// Platform tags. The core only ever produces the generic platform; Native
// is reserved so the data model has room for per-platform specialization
// without a schema change.
const (
	PlatformGeneric = "g"
	PlatformNative  = "native"
)

// ModuleEntry names the file that currently owns a haste name on a given
// platform.
type ModuleEntry struct {
	RelativePath string
	Kind         ModuleKind
}

// PlatformMap maps a platform tag to the file that owns a haste name on
// that platform.
type PlatformMap map[string]ModuleEntry

// ModuleMap maps a haste name to its owning file per platform.
type ModuleMap map[string]PlatformMap

// DuplicatesEntry maps every file claiming a colliding haste name, on one
// platform, to the kind of claim it made.
type DuplicatesEntry map[string]ModuleKind

// DuplicatesIndex maps a haste name to its colliding claimants, per
// platform, for every name that could not be resolved to a single file.
type DuplicatesIndex map[string]map[string]DuplicatesEntry

// FileMetaData is the per-file record kept across builds. HasteID and SHA1
// use the empty string to mean "absent"; Dependencies is nil until a
// worker has visited the file at least once.
type FileMetaData struct {
	HasteID      string
	MTimeMS      int64
	Size         uint64
	Visited      bool
	Dependencies []string
	SHA1         string
}

// SCMQuery is a clock expressed as a source-control mergebase query,
// portable across machines that share the same repository history.
type SCMQuery struct {
	MergebaseWith string
	Mergebase     string
	Clock         string
}

// ClockSpec is the opaque "since" token a WatchSource understands. A clock
// is either a local string (the form every persisted clock takes, per I5)
// or an SCM query (only ever supplied by a caller for a single crawl, never
// persisted as such).
type ClockSpec struct {
	Local string
	SCM   *SCMQuery
}

// IsSCM reports whether this clock was populated from an SCM query.
func (c ClockSpec) IsSCM() bool { return c.SCM != nil }

// IsZero reports whether the clock carries no information at all, i.e. a
// full query should be issued rather than an incremental one.
func (c ClockSpec) IsZero() bool { return c.Local == "" && c.SCM == nil }

// ClockMap maps a root's path (relative to rootDir) to the clock recorded
// for it at the end of the crawl that produced the current Files.
type ClockMap map[string]ClockSpec

// HasteIndex is the single artifact a build produces and the cache
// persists. It is owned by the builder for the duration of a build and
// passed by pointer: the crawler reads it and returns the merged files and
// clocks in a separate result, and the reconciler mutates it in place.
type HasteIndex struct {
	Clocks     ClockMap
	Files      map[string]FileMetaData
	Map        ModuleMap
	Duplicates DuplicatesIndex
	Mocks      map[string]string
}

// New returns an empty index, the starting point for a build with no prior
// cache and the fallback CacheStore.Load returns on any decode failure.
func New() *HasteIndex {
	return &HasteIndex{
		Clocks:     ClockMap{},
		Files:      map[string]FileMetaData{},
		Map:        ModuleMap{},
		Duplicates: DuplicatesIndex{},
		Mocks:      map[string]string{},
	}
}

// SortedFilePaths returns the keys of Files in ascending order. Iteration
// order over a Go map is not stable, and the spec requires deterministic
// ordering wherever it is observable (tests, diagnostics).
func (h *HasteIndex) SortedFilePaths() []string {
	paths := make([]string, 0, len(h.Files))
	for p := range h.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a deep copy of the index: mutating the copy's maps or
// dependency slices never changes the original. The reconciler does not
// call it; it copies individual duplicate-entry maps itself before
// mutating them.
func (h *HasteIndex) Clone() *HasteIndex {
	out := New()
	for k, v := range h.Clocks {
		out.Clocks[k] = v
	}
	for path, meta := range h.Files {
		deps := make([]string, len(meta.Dependencies))
		copy(deps, meta.Dependencies)
		meta.Dependencies = deps
		out.Files[path] = meta
	}
	for id, platforms := range h.Map {
		pm := make(PlatformMap, len(platforms))
		for plat, entry := range platforms {
			pm[plat] = entry
		}
		out.Map[id] = pm
	}
	for id, platforms := range h.Duplicates {
		pm := make(map[string]DuplicatesEntry, len(platforms))
		for plat, entries := range platforms {
			de := make(DuplicatesEntry, len(entries))
			for path, kind := range entries {
				de[path] = kind
			}
			pm[plat] = de
		}
		out.Duplicates[id] = pm
	}
	for k, v := range h.Mocks {
		out.Mocks[k] = v
	}
	return out
}
