package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hastemap-dev/hastemap/internal/haste"
	"github.com/hastemap-dev/hastemap/internal/haste/worker"
)

func freshBuild(t *testing.T, index *haste.HasteIndex, files []string, results map[string]worker.Metadata) *Reconciler {
	t.Helper()
	r := New(nil)

	changed := map[string]haste.FileMetaData{}
	for _, f := range files {
		index.Files[f] = haste.FileMetaData{}
		changed[f] = haste.FileMetaData{}
	}

	sel := r.Select(index, nil, changed, false, false)
	for _, p := range sel.ToProcess {
		r.Commit(index, p, results[p])
	}
	for _, p := range sel.Shortcut {
		r.CommitShortcut(index, p)
	}
	return r
}

func TestS1SingleHasteNameResolves(t *testing.T) {
	index := haste.New()
	freshBuild(t, index, []string{"a.js", "b.js"}, map[string]worker.Metadata{
		"a.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "a.js", Kind: haste.KindModule}},
		"b.js": {},
	})

	require.Contains(t, index.Map, "Foo")
	assert.Equal(t, "a.js", index.Map["Foo"][haste.PlatformGeneric].RelativePath)
	assert.Empty(t, index.Duplicates)
	assert.True(t, index.Files["a.js"].Visited)
	assert.True(t, index.Files["b.js"].Visited)
}

func TestS2CollidingHasteNameMovesToDuplicates(t *testing.T) {
	index := haste.New()
	r := freshBuild(t, index, []string{"a.js", "b.js"}, map[string]worker.Metadata{
		"a.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "a.js", Kind: haste.KindModule}},
		"b.js": {},
	})

	index.Files["c.js"] = haste.FileMetaData{}
	changed := map[string]haste.FileMetaData{"c.js": {}}
	sel := r.Select(index, nil, changed, false, false)
	require.Equal(t, []string{"c.js"}, sel.ToProcess)
	r.Commit(index, "c.js", worker.Metadata{ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "c.js", Kind: haste.KindModule}})

	assert.NotContains(t, index.Map, "Foo")
	require.Contains(t, index.Duplicates, "Foo")
	dups := index.Duplicates["Foo"][haste.PlatformGeneric]
	assert.Equal(t, haste.KindModule, dups["a.js"])
	assert.Equal(t, haste.KindModule, dups["c.js"])
}

func TestS3RemovingDuplicateRestoresMap(t *testing.T) {
	index := haste.New()
	r := freshBuild(t, index, []string{"a.js", "c.js"}, map[string]worker.Metadata{
		"a.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "a.js", Kind: haste.KindModule}},
		"c.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "c.js", Kind: haste.KindModule}},
	})
	require.Contains(t, index.Duplicates, "Foo")

	removedMeta := index.Files["c.js"]
	removedMeta.HasteID = "Foo"
	delete(index.Files, "c.js")
	removed := map[string]haste.FileMetaData{"c.js": removedMeta}

	sel := r.Select(index, removed, map[string]haste.FileMetaData{}, false, false)
	for _, p := range sel.ToProcess {
		r.Commit(index, p, worker.Metadata{ID: "Foo", Module: &haste.ModuleEntry{RelativePath: p, Kind: haste.KindModule}})
	}

	require.Contains(t, index.Map, "Foo")
	assert.Equal(t, "a.js", index.Map["Foo"][haste.PlatformGeneric].RelativePath)
	assert.NotContains(t, index.Duplicates, "Foo")
	assert.NotContains(t, index.Files, "c.js")
}

func TestS4PackageJSONClaimsPackageKind(t *testing.T) {
	index := haste.New()
	freshBuild(t, index, []string{"package.json"}, map[string]worker.Metadata{
		"package.json": {ID: "pkg", Module: &haste.ModuleEntry{RelativePath: "package.json", Kind: haste.KindPackage}},
	})

	require.Contains(t, index.Map, "pkg")
	entry := index.Map["pkg"][haste.PlatformGeneric]
	assert.Equal(t, haste.KindPackage, entry.Kind)
}

func TestS5NodeModulesShortcutSkipsWorker(t *testing.T) {
	index := haste.New()
	r := New(nil)
	path := "node_modules/x/i.js"
	index.Files[path] = haste.FileMetaData{}
	changed := map[string]haste.FileMetaData{path: {}}

	sel := r.Select(index, nil, changed, false, false)
	assert.Empty(t, sel.ToProcess)
	require.Equal(t, []string{path}, sel.Shortcut)

	r.CommitShortcut(index, path)

	assert.True(t, index.Files[path].Visited)
	assert.Empty(t, index.Files[path].HasteID)
	assert.NotContains(t, index.Map, "X")
}

func TestS6FreshInstanceOmittedFileTriggersRecoverDuplicates(t *testing.T) {
	index := haste.New()
	r := freshBuild(t, index, []string{"a.js", "b.js", "c.js"}, map[string]worker.Metadata{
		"a.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "a.js", Kind: haste.KindModule}},
		"b.js": {},
		"c.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "c.js", Kind: haste.KindModule}},
	})
	require.Contains(t, index.Duplicates, "Foo")

	removedMeta := index.Files["c.js"]
	delete(index.Files, "c.js")
	removed := map[string]haste.FileMetaData{"c.js": removedMeta}

	sel := r.Select(index, removed, map[string]haste.FileMetaData{"a.js": {}, "b.js": {}}, false, false)
	for _, p := range sel.ToProcess {
		meta := map[string]worker.Metadata{
			"a.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "a.js", Kind: haste.KindModule}},
			"b.js": {},
		}[p]
		r.Commit(index, p, meta)
	}

	assert.NotContains(t, index.Duplicates, "Foo")
	require.Contains(t, index.Map, "Foo")
	assert.Equal(t, "a.js", index.Map["Foo"][haste.PlatformGeneric].RelativePath)
}

func TestP7RecoverDuplicatesPromotesSoleSurvivor(t *testing.T) {
	index := haste.New()
	index.Duplicates["id"] = map[string]haste.DuplicatesEntry{
		haste.PlatformGeneric: {"A": haste.KindModule, "B": haste.KindModule},
	}

	r := New(nil)
	r.recoverDuplicates(index, "id", "A")

	require.Contains(t, index.Map, "id")
	assert.Equal(t, "B", index.Map["id"][haste.PlatformGeneric].RelativePath)
	assert.NotContains(t, index.Duplicates, "id")
}

func TestP4CommitOrderIsCommutative(t *testing.T) {
	results := map[string]worker.Metadata{
		"a.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "a.js", Kind: haste.KindModule}},
		"c.js": {ID: "Foo", Module: &haste.ModuleEntry{RelativePath: "c.js", Kind: haste.KindModule}},
		"b.js": {},
	}

	orderA := []string{"a.js", "b.js", "c.js"}
	orderB := []string{"c.js", "a.js", "b.js"}

	run := func(order []string) *haste.HasteIndex {
		index := haste.New()
		r := New(nil)
		for _, p := range order {
			index.Files[p] = haste.FileMetaData{}
		}
		for _, p := range order {
			r.Commit(index, p, results[p])
		}
		return index
	}

	idxA := run(orderA)
	idxB := run(orderB)

	assert.Equal(t, idxA.Map, idxB.Map)
	assert.Equal(t, idxA.Duplicates, idxB.Duplicates)
}
