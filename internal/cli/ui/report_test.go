package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/hastemap-dev/hastemap/internal/haste"
)

func TestRenderBuildSummary(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	index := haste.New()
	index.Files["a.js"] = haste.FileMetaData{HasteID: "Foo", Visited: true}
	index.Map["Foo"] = haste.PlatformMap{haste.PlatformGeneric: {RelativePath: "a.js", Kind: haste.KindModule}}

	var buf bytes.Buffer
	RenderBuildSummary(&buf, index, true)

	output := buf.String()
	if !strings.Contains(output, "Files:") || !strings.Contains(output, "1") {
		t.Errorf("expected file count in summary, got: %q", output)
	}
	if !strings.Contains(output, "Modules:") {
		t.Errorf("expected module count in summary, got: %q", output)
	}
}

func TestRenderDuplicatesEmpty(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	RenderDuplicates(&buf, haste.New(), true)

	if !strings.Contains(buf.String(), "no duplicate haste names") {
		t.Errorf("expected no-duplicates message, got: %q", buf.String())
	}
}

func TestRenderDuplicatesListsClaimants(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	index := haste.New()
	index.Duplicates["Foo"] = map[string]haste.DuplicatesEntry{
		haste.PlatformGeneric: {"a.js": haste.KindModule, "c.js": haste.KindModule},
	}

	var buf bytes.Buffer
	RenderDuplicates(&buf, index, true)

	output := buf.String()
	for _, want := range []string{"Foo", "a.js", "c.js", "module"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got: %q", want, output)
		}
	}
}
