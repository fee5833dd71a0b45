package ui

import (
	"fmt"
	"io"
	"sort"

	"github.com/hastemap-dev/hastemap/internal/haste"
)

// RenderBuildSummary prints the headline numbers for a finished build: file
// count, resolved module count, and duplicate count.
func RenderBuildSummary(w io.Writer, index *haste.HasteIndex, noColor bool) {
	kv := NewKeyValueTable(w, noColor)
	kv.AddRow("Files", fmt.Sprintf("%d", len(index.Files)))
	kv.AddRow("Modules", fmt.Sprintf("%d", len(index.Map)))
	kv.AddRow("Duplicates", fmt.Sprintf("%d", len(index.Duplicates)))
	kv.Render()
}

// RenderDuplicates prints every colliding haste name and its claimants, so
// an operator can see at a glance which names cannot be resolved.
func RenderDuplicates(w io.Writer, index *haste.HasteIndex, noColor bool) {
	if len(index.Duplicates) == 0 {
		fmt.Fprintln(w, "no duplicate haste names")
		return
	}

	table := NewTable(w, []string{"Haste Name", "Platform", "File", "Kind"}, &TableOptions{NoColor: noColor})
	for _, id := range sortedKeys(index.Duplicates) {
		byPlatform := index.Duplicates[id]
		for _, platform := range sortedKeys(byPlatform) {
			entries := byPlatform[platform]
			for _, path := range sortedKeys(entries) {
				table.AddRow(id, platform, path, entries[path].String())
			}
		}
	}
	table.Render()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
