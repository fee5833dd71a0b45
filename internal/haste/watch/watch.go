// Package watch defines the WatchSource capability the crawler depends on:
// a way to ask "what changed under this root since this clock" without the
// crawler knowing anything about the underlying watch service's wire
// protocol.
package watch

import (
	"context"

	"github.com/hastemap-dev/hastemap/internal/haste"
)

// FileStat is one file entry in a QueryResponse.
type FileStat struct {
	// Name is the path relative to the watch root, '/'-separated.
	Name    string
	Exists  bool
	MTimeMS int64
	Size    uint64
	// SHA1 is the content digest, or "" if the source did not supply one.
	SHA1 string
}

// QueryResponse is the result of one Query call.
type QueryResponse struct {
	Clock           haste.ClockSpec
	IsFreshInstance bool
	Files           []FileStat
}

// Capabilities describes optional query features a Source may support.
// The crawler adapts its expression and field list to what is advertised
// rather than assuming every source is equally capable.
type Capabilities struct {
	// SuffixSet allows a single "suffix" term with a list of extensions
	// rather than an "anyof" of single-suffix terms. The two forms must
	// be treated as semantically identical by any source.
	SuffixSet bool
	// ContentSHA1Hex allows the source to populate FileStat.SHA1 directly,
	// sparing the crawler (and worker) a content read.
	ContentSHA1Hex bool
}

// Expression is the query the crawler builds: "all plain files under these
// directories with one of these extensions". CompileTerm renders it into
// the nested-array term form a Watchman-protocol adapter would send over
// the wire; a purely in-process source can just read the fields directly.
type Expression struct {
	Suffixes        []string
	DirConstraints  []string
	IncludeDotfiles bool
}

// CompileTerm renders the expression using the suffix-set form when
// suffixSet is true, or the equivalent anyof-of-suffix form otherwise. Both
// forms must select the same file set.
func (e Expression) CompileTerm(suffixSet bool) []interface{} {
	typeTerm := []interface{}{"type", "f"}

	var suffixTerm interface{}
	if suffixSet {
		suffixes := make([]interface{}, len(e.Suffixes))
		for i, s := range e.Suffixes {
			suffixes[i] = s
		}
		suffixTerm = []interface{}{"suffix", suffixes}
	} else {
		anyof := []interface{}{"anyof"}
		for _, s := range e.Suffixes {
			anyof = append(anyof, []interface{}{"suffix", s})
		}
		suffixTerm = anyof
	}

	terms := []interface{}{"allof", typeTerm, suffixTerm}

	if len(e.DirConstraints) > 0 {
		anyof := []interface{}{"anyof"}
		for _, d := range e.DirConstraints {
			anyof = append(anyof, []interface{}{"dirname", d})
		}
		terms = append(terms, anyof)
	}

	return terms
}

// Source is the capability the crawler depends on. An adapter wrapping a
// real filesystem-watch daemon (e.g. one speaking the Watchman protocol)
// satisfies this; so does the in-process fallback in this package.
type Source interface {
	// Roots returns, for each requested root, the (watchRoot, relativePath)
	// pair the source will address it by.
	Roots(ctx context.Context, rootPaths []string) (map[string][]string, error)
	// Query returns files matching expr under watchRoot. since, when
	// non-nil, restricts the result to changes observed after that clock;
	// a nil since requests a full snapshot.
	Query(ctx context.Context, watchRoot string, since *haste.ClockSpec, expr Expression, fields []string) (QueryResponse, error)
	// Capabilities reports the optional features this source supports.
	Capabilities() Capabilities
}

// Standard field names a Query call may request.
const (
	FieldName       = "name"
	FieldExists     = "exists"
	FieldMTimeMS    = "mtime_ms"
	FieldSize       = "size"
	FieldContentSHA = "content.sha1hex"
)
