// Package pathnorm converts paths between the host separator and the
// '/'-separated form stored in every relative path, and computes
// root-relative paths consistently across the crawler, reconciler, watch
// source, and builder packages.
package pathnorm

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultIgnorePattern matches the VCS metadata directories every crawl
// skips unless a caller overrides it.
var DefaultIgnorePattern = regexp.MustCompile(`\.git/|\.hg/|\.sl/`)

// ToSlash rewrites host separators to '/', the separator stored in every
// persisted relative path.
func ToSlash(p string) string {
	return filepath.ToSlash(p)
}

// FromSlash rewrites '/' to the host separator, for filesystem operations.
func FromSlash(p string) string {
	return filepath.FromSlash(p)
}

// Relative returns path relative to root, using '/' regardless of host.
func Relative(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return ToSlash(rel), nil
}

// Join joins root with a '/'-separated relative path, producing a
// host-native absolute path.
func Join(root, rel string) string {
	return filepath.Join(root, FromSlash(rel))
}

// Ignored reports whether relPath matches pattern. A nil pattern never
// matches, so callers can pass a disabled ignore filter.
func Ignored(pattern *regexp.Regexp, relPath string) bool {
	if pattern == nil {
		return false
	}
	return pattern.MatchString(relPath)
}

// HasDir reports whether relPath contains dir as a path component, used for
// the node_modules shortcut regardless of host separator conventions.
func HasDir(relPath, dir string) bool {
	slashed := "/" + ToSlash(relPath) + "/"
	return strings.Contains(slashed, "/"+dir+"/")
}

// Base is filepath.Base, exposed here so callers normalize through a single
// package rather than mixing path/filepath calls with pathnorm calls.
func Base(p string) string {
	return filepath.Base(p)
}

// Ext returns the file extension without its leading dot, lowercase.
func Ext(p string) string {
	ext := filepath.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
