package worker

import "regexp"

// defaultExtract is the built-in DependencyExtractor fallback: a
// regex sweep for CommonJS require() calls and ES module import/export
// specifiers. It does not parse a real module graph (no comment or
// string-literal awareness beyond the quote characters themselves) -
// callers with stricter needs supply their own DependencyExtractor.
var (
	reRequireCall = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	reImportFrom  = regexp.MustCompile(`(?m)^\s*import\s+[^;'"]*?\s+from\s+['"]([^'"]+)['"]`)
	reImportOnly  = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
	reExportFrom  = regexp.MustCompile(`(?m)^\s*export\s*(?:\*|\{[^}]*\})\s*from\s*['"]([^'"]+)['"]`)
)

func defaultExtract(source string) []string {
	var deps []string
	for _, re := range []*regexp.Regexp{reRequireCall, reImportFrom, reImportOnly, reExportFrom} {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			deps = append(deps, m[1])
		}
	}
	return deps
}
