package pathnorm

import "testing"

func TestRelative(t *testing.T) {
	rel, err := Relative("/r", "/r/a/b.js")
	if err != nil {
		t.Fatal(err)
	}
	if rel != "a/b.js" {
		t.Fatalf("got %q", rel)
	}
}

func TestHasDir(t *testing.T) {
	cases := []struct {
		path string
		dir  string
		want bool
	}{
		{"node_modules/x/i.js", "node_modules", true},
		{"src/node_modules/x/i.js", "node_modules", true},
		{"src/node_modules_extra/i.js", "node_modules", false},
		{"src/a.js", "node_modules", false},
	}
	for _, c := range cases {
		if got := HasDir(c.path, c.dir); got != c.want {
			t.Errorf("HasDir(%q, %q) = %v, want %v", c.path, c.dir, got, c.want)
		}
	}
}

func TestIgnored(t *testing.T) {
	if !Ignored(DefaultIgnorePattern, ".git/HEAD") {
		t.Fatal("expected .git/HEAD to be ignored")
	}
	if Ignored(DefaultIgnorePattern, "src/app.js") {
		t.Fatal("did not expect src/app.js to be ignored")
	}
	if Ignored(nil, ".git/HEAD") {
		t.Fatal("nil pattern must never match")
	}
}

func TestExt(t *testing.T) {
	if got := Ext("a/b/Foo.JS"); got != "js" {
		t.Fatalf("got %q", got)
	}
	if got := Ext("a/b/Makefile"); got != "" {
		t.Fatalf("got %q", got)
	}
}
