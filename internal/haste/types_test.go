package haste

import (
	"reflect"
	"testing"
)

func TestSortedFilePaths(t *testing.T) {
	idx := New()
	idx.Files["b.js"] = FileMetaData{}
	idx.Files["a.js"] = FileMetaData{}
	idx.Files["c.js"] = FileMetaData{}

	got := idx.SortedFilePaths()
	want := []string{"a.js", "b.js", "c.js"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	idx := New()
	idx.Files["a.js"] = FileMetaData{HasteID: "Foo", Dependencies: []string{"dep"}}
	idx.Map["Foo"] = PlatformMap{PlatformGeneric: {RelativePath: "a.js", Kind: KindModule}}
	idx.Duplicates["Bar"] = map[string]DuplicatesEntry{
		PlatformGeneric: {"x.js": KindModule, "y.js": KindModule},
	}

	clone := idx.Clone()

	clone.Files["a.js"].Dependencies[0] = "mutated"
	clone.Map["Foo"][PlatformGeneric] = ModuleEntry{RelativePath: "z.js"}
	clone.Duplicates["Bar"][PlatformGeneric]["x.js"] = KindPackage
	delete(clone.Duplicates["Bar"][PlatformGeneric], "y.js")

	if idx.Files["a.js"].Dependencies[0] != "dep" {
		t.Fatal("mutating clone deps mutated original")
	}
	if idx.Map["Foo"][PlatformGeneric].RelativePath != "a.js" {
		t.Fatal("mutating clone map mutated original")
	}
	if idx.Duplicates["Bar"][PlatformGeneric]["x.js"] != KindModule {
		t.Fatal("mutating clone duplicates mutated original")
	}
	if _, ok := idx.Duplicates["Bar"][PlatformGeneric]["y.js"]; !ok {
		t.Fatal("deleting from clone duplicates mutated original")
	}
}
