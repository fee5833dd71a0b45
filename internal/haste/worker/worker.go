// Package worker implements the pure per-file processing step: given a
// path and a set of flags, it reads the file once and produces the
// metadata the reconciler folds into a HasteIndex.
package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hastemap-dev/hastemap/internal/fingerprint"
	"github.com/hastemap-dev/hastemap/internal/haste"
)

// blacklist holds extensions (without the dot) that are tracked but never
// parsed for a haste name or dependencies. package.json is the sole JSON
// exception and is handled before this set is consulted.
var blacklist = map[string]struct{}{
	"json": {}, "bmp": {}, "gif": {}, "ico": {}, "jpeg": {}, "jpg": {}, "png": {}, "svg": {}, "tiff": {}, "tif": {}, "webp": {},
	"avi": {}, "mp4": {}, "mpeg": {}, "mpg": {}, "ogv": {}, "webm": {}, "3gp": {}, "3g2": {},
	"aac": {}, "midi": {}, "mid": {}, "mp3": {}, "oga": {}, "wav": {},
	"eot": {}, "otf": {}, "ttf": {}, "woff": {}, "woff2": {},
}

// Blacklisted reports whether ext (without the leading dot) is in the
// blacklist of extensions the worker never parses.
func Blacklisted(ext string) bool {
	_, ok := blacklist[strings.ToLower(ext)]
	return ok
}

// DependencyDelimiter is the byte used to join an ordered dependency list
// for on-disk storage; kept as a []string in memory.
const DependencyDelimiter = "\x00"

// HasteImpl derives a haste name for a file's content, independent of any
// package.json declaration. Returning ok=false means "this file claims no
// name".
type HasteImpl interface {
	GetHasteName(filePath, content string) (name string, ok bool)
}

// DependencyExtractor pulls the module names a file requires out of its
// source text. defaultExtract is always available so a custom extractor
// can fall back to it for source it does not special-case.
type DependencyExtractor interface {
	Extract(sourceText, filePath string, defaultExtract func(string) []string) []string
}

// Flags configures one FileWorker invocation. The zero value computes
// neither dependencies nor sha1 and applies no plugins.
type Flags struct {
	ComputeDependencies bool
	ComputeSha1         bool
	HasteImpl           HasteImpl
	DependencyExtractor DependencyExtractor
	RetainAllFiles      bool
}

// Metadata is the result of processing one file.
type Metadata struct {
	ID           string
	Module       *haste.ModuleEntry
	Dependencies []string
	SHA1         string
}

// InvalidPackageJSONError reports that a package.json could not be parsed.
// Per spec this is the one hard-failure case FileWorker can raise; every
// other read error is returned as is, and the caller either drops the file
// (ENOENT, EACCES) or propagates the error.
type InvalidPackageJSONError struct {
	Path  string
	Cause error
}

func (e *InvalidPackageJSONError) Error() string {
	return fmt.Sprintf("worker: invalid package.json at %s: %v", e.Path, e.Cause)
}
func (e *InvalidPackageJSONError) Unwrap() error { return e.Cause }

type packageJSON struct {
	Name string `json:"name"`
}

// Process reads filePath (relative to rootDir) and produces its Metadata.
// It is a pure function of the file's content plus flags: the same bytes
// and the same flags always yield the same result.
func Process(filePath, rootDir string, flags Flags) (Metadata, error) {
	abs := filePath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(rootDir, filePath)
	}

	relPath, err := filepath.Rel(rootDir, abs)
	if err != nil {
		relPath = filePath
	}
	relPath = filepath.ToSlash(relPath)

	if filepath.Base(abs) == "package.json" {
		return processPackageJSON(abs, relPath, flags.ComputeSha1)
	}

	ext := strings.TrimPrefix(filepath.Ext(abs), ".")
	if Blacklisted(ext) {
		meta := Metadata{}
		if flags.ComputeSha1 {
			content, rerr := os.ReadFile(abs)
			if rerr != nil {
				return Metadata{}, rerr
			}
			meta.SHA1 = fingerprint.Sum(content)
		}
		return meta, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return Metadata{}, err
	}
	text := string(content)

	meta := Metadata{}
	if flags.HasteImpl != nil {
		if name, ok := flags.HasteImpl.GetHasteName(relPath, text); ok && name != "" {
			meta.ID = name
			meta.Module = &haste.ModuleEntry{RelativePath: relPath, Kind: haste.KindModule}
		}
	}

	if flags.ComputeDependencies {
		meta.Dependencies = extractDependencies(text, relPath, flags.DependencyExtractor)
	}

	if flags.ComputeSha1 {
		meta.SHA1 = fingerprint.Sum(content)
	}

	return meta, nil
}

func processPackageJSON(abs, relPath string, computeSha1 bool) (Metadata, error) {
	content, err := os.ReadFile(abs)
	if err != nil {
		return Metadata{}, err
	}

	var pkg packageJSON
	if err := json.Unmarshal(content, &pkg); err != nil {
		return Metadata{}, &InvalidPackageJSONError{Path: relPath, Cause: err}
	}

	meta := Metadata{}
	if computeSha1 {
		meta.SHA1 = fingerprint.Sum(content)
	}
	if pkg.Name != "" {
		meta.ID = pkg.Name
		meta.Module = &haste.ModuleEntry{RelativePath: relPath, Kind: haste.KindPackage}
	}
	return meta, nil
}

func extractDependencies(text, filePath string, extractor DependencyExtractor) []string {
	if extractor != nil {
		return dedupeOrdered(extractor.Extract(text, filePath, defaultExtract))
	}
	return dedupeOrdered(defaultExtract(text))
}

func dedupeOrdered(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, dep := range in {
		if dep == "" {
			continue
		}
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	return out
}
