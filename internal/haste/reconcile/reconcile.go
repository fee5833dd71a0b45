// Package reconcile applies crawl deltas and worker results to a
// HasteIndex's module map and duplicates index - the part of the design
// that decides whether a haste name resolves unambiguously.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/hastemap-dev/hastemap/internal/haste"
	"github.com/hastemap-dev/hastemap/internal/haste/worker"
	"github.com/hastemap-dev/hastemap/internal/pathnorm"
)

const nodeModulesDir = "node_modules"

// Reconciler maintains map and duplicates as files enter and leave the
// tracked set. It holds no state of its own between calls; every method
// takes the HasteIndex it mutates explicitly.
type Reconciler struct {
	logger *zap.Logger
}

// New returns a Reconciler that logs collisions through logger. A nil
// logger is replaced with a no-op logger.
func New(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Selection is the outcome of deciding which files need a worker dispatch
// for this build cycle.
type Selection struct {
	// ToProcess are paths the caller must run through FileWorker.
	ToProcess []string
	// Shortcut are node_modules paths retained in Files without being
	// dispatched to a worker; the caller marks them visited directly via
	// CommitShortcut.
	Shortcut []string
}

// Select decides the processing set and performs the reset/removal steps
// that must happen before any worker result is committed.
//
// changedAbsent means the crawl could not determine a delta (every file is
// a reprocessing candidate); removed and changed are the crawl's output
// for the files that disappeared and the files needing a fresh look,
// respectively. retainAllFiles disables the node_modules shortcut.
func (r *Reconciler) Select(index *haste.HasteIndex, removed, changed map[string]haste.FileMetaData, changedAbsent bool, retainAllFiles bool) Selection {
	reset := changedAbsent || len(removed) > 0

	if reset {
		index.Map = haste.ModuleMap{}
		index.Mocks = map[string]string{}
	}

	for path, meta := range removed {
		r.recoverDuplicates(index, meta.HasteID, path)
	}

	var candidates []string
	if reset {
		candidates = index.SortedFilePaths()
	} else {
		candidates = make([]string, 0, len(changed))
		for path := range changed {
			candidates = append(candidates, path)
		}
	}

	sel := Selection{}
	for _, path := range candidates {
		if !retainAllFiles && pathnorm.HasDir(path, nodeModulesDir) {
			sel.Shortcut = append(sel.Shortcut, path)
			continue
		}
		sel.ToProcess = append(sel.ToProcess, path)
	}
	return sel
}

// CommitShortcut marks a node_modules file visited and clears its haste
// id, per the shortcut rule; the file never claims a name in map.
func (r *Reconciler) CommitShortcut(index *haste.HasteIndex, path string) {
	meta, ok := index.Files[path]
	if !ok {
		return
	}
	meta.Visited = true
	meta.HasteID = ""
	index.Files[path] = meta
}

// Commit applies one worker result for path to index: the per-file commit
// step, including the setModule collision logic when the result claims a
// haste name.
func (r *Reconciler) Commit(index *haste.HasteIndex, path string, result worker.Metadata) {
	meta, ok := index.Files[path]
	if !ok {
		meta = haste.FileMetaData{}
	}

	meta.Visited = true
	meta.Dependencies = result.Dependencies
	if result.SHA1 != "" {
		meta.SHA1 = result.SHA1
	}

	if result.ID != "" && result.Module != nil {
		meta.HasteID = result.ID
		r.setModule(index, result.ID, *result.Module)
	}

	index.Files[path] = meta
}

// setModule implements the worker-result application algorithm: claim an
// id outright, update an existing claim by the same file in place, or
// record a genuine collision in the duplicates index.
func (r *Reconciler) setModule(index *haste.HasteIndex, id string, entry haste.ModuleEntry) {
	const platform = haste.PlatformGeneric

	moduleMap, ok := index.Map[id]
	if !ok {
		moduleMap = haste.PlatformMap{}
		index.Map[id] = moduleMap
	}

	existing, hasExisting := moduleMap[platform]
	if !hasExisting {
		moduleMap[platform] = entry
		return
	}
	if existing.RelativePath == entry.RelativePath {
		moduleMap[platform] = entry
		return
	}

	r.logger.Warn("haste name collision",
		zap.String("id", id),
		zap.String("existing", existing.RelativePath),
		zap.String("incoming", entry.RelativePath),
	)

	delete(moduleMap, platform)
	if len(moduleMap) == 0 {
		delete(index.Map, id)
	}

	dupsByPlat, ok := index.Duplicates[id]
	if !ok {
		dupsByPlat = map[string]haste.DuplicatesEntry{}
	} else {
		copied := make(map[string]haste.DuplicatesEntry, len(dupsByPlat))
		for plat, entries := range dupsByPlat {
			copied[plat] = entries
		}
		dupsByPlat = copied
	}

	dups, ok := dupsByPlat[platform]
	if !ok {
		dups = haste.DuplicatesEntry{}
	} else {
		copied := make(haste.DuplicatesEntry, len(dups)+2)
		for p, k := range dups {
			copied[p] = k
		}
		dups = copied
	}

	dups[existing.RelativePath] = existing.Kind
	dups[entry.RelativePath] = entry.Kind
	dupsByPlat[platform] = dups
	index.Duplicates[id] = dupsByPlat
}

// recoverDuplicates promotes a duplicate's surviving contender back into
// map when one of the colliding files is removed and only one claimant is
// left. moduleName may be empty (a removed file that never claimed a
// name), in which case this is a no-op.
func (r *Reconciler) recoverDuplicates(index *haste.HasteIndex, moduleName, removedRelPath string) {
	if moduleName == "" {
		return
	}
	const platform = haste.PlatformGeneric

	dupsByPlat, ok := index.Duplicates[moduleName]
	if !ok {
		return
	}
	dups, ok := dupsByPlat[platform]
	if !ok {
		return
	}

	copiedByPlat := make(map[string]haste.DuplicatesEntry, len(dupsByPlat))
	for plat, entries := range dupsByPlat {
		copiedByPlat[plat] = entries
	}
	copiedDups := make(haste.DuplicatesEntry, len(dups))
	for p, k := range dups {
		copiedDups[p] = k
	}
	delete(copiedDups, removedRelPath)
	copiedByPlat[platform] = copiedDups
	index.Duplicates[moduleName] = copiedByPlat

	if len(copiedDups) != 1 {
		return
	}

	var lastPath string
	var lastKind haste.ModuleKind
	for p, k := range copiedDups {
		lastPath, lastKind = p, k
	}

	moduleMap, ok := index.Map[moduleName]
	if !ok {
		moduleMap = haste.PlatformMap{}
		index.Map[moduleName] = moduleMap
	}
	moduleMap[platform] = haste.ModuleEntry{RelativePath: lastPath, Kind: lastKind}

	delete(copiedByPlat, platform)
	if len(copiedByPlat) == 0 {
		delete(index.Duplicates, moduleName)
	}
}
