package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hastemap-dev/hastemap/internal/haste/watch"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestBuilderFirstBuildVisitsFilesAndExtractsDependencies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "module.exports = 1;")
	writeFile(t, root, "b.js", "require('./a');")

	cacheDir := t.TempDir()
	b := New(Config{
		RootDir:        root,
		Roots:          []string{root},
		Extensions:     []string{"js"},
		ID:             "test-app",
		CacheDirectory: cacheDir,
		Source:         watch.NewFSWalkSource(),
		ForceInBand:    true,
	}, nil)

	idx, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.Files, 2)
	assert.True(t, idx.Files["a.js"].Visited)
	assert.True(t, idx.Files["b.js"].Visited)
	assert.Equal(t, []string{"./a"}, idx.Files["b.js"].Dependencies)
}

func TestBuilderBuildIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "module.exports = 1;")

	b := New(Config{
		RootDir:        root,
		Roots:          []string{root},
		Extensions:     []string{"js"},
		ID:             "test-app",
		CacheDirectory: t.TempDir(),
		Source:         watch.NewFSWalkSource(),
		ForceInBand:    true,
	}, nil)

	idx1, err1 := b.Build(context.Background())
	require.NoError(t, err1)
	idx2, err2 := b.Build(context.Background())
	require.NoError(t, err2)

	assert.Same(t, idx1, idx2, "second Build call must return the memoized result")
}

func TestBuilderPersistsCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "module.exports = 1;")
	cacheDir := t.TempDir()

	cfg := Config{
		RootDir:        root,
		Roots:          []string{root},
		Extensions:     []string{"js"},
		ID:             "test-app",
		CacheDirectory: cacheDir,
		Source:         watch.NewFSWalkSource(),
		ForceInBand:    true,
	}

	b1 := New(cfg, nil)
	idx1, err := b1.Build(context.Background())
	require.NoError(t, err)
	require.True(t, idx1.Files["a.js"].Visited)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "expected a cache file to be written")
}
